package game

import "time"

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. Callbacks run on their own goroutine.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// task is a revocable scheduled effect. Its fields are guarded by the
// Engine's mutex.
type task struct {
	timer     Timer
	cancelled bool
}

func (t *task) cancel() {
	if t == nil || t.cancelled {
		return
	}
	t.cancelled = true
	if t.timer != nil {
		t.timer.Stop()
	}
}

// after runs fn once after d under the engine lock, unless the task was
// cancelled or the board generation moved on. MUST be called while e.mu is held.
func (e *Engine) after(d time.Duration, fn func()) *task {
	t := &task{}
	gen := e.generation
	t.timer = e.clock.AfterFunc(d, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if t.cancelled || e.stopped || gen != e.generation {
			return
		}
		t.cancelled = true
		fn()
	})
	return t
}

// every runs fn every d under the engine lock until cancelled. The next run is
// armed before fn is called so fn may cancel its own task.
// MUST be called while e.mu is held.
func (e *Engine) every(d time.Duration, fn func()) *task {
	t := &task{}
	gen := e.generation
	var arm func()
	arm = func() {
		t.timer = e.clock.AfterFunc(d, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			if t.cancelled || e.stopped || gen != e.generation {
				return
			}
			arm()
			fn()
		})
	}
	arm()
	return t
}
