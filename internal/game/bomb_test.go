package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceBomb(t *testing.T) {
	e, _, rec := startedEngine(t, testConfig(), "p1", "p2")

	e.PlaceBomb("p1")
	snap := e.Snapshot()
	require.Len(t, snap.Bombs, 1)

	b := snap.Bombs[0]
	assert.Equal(t, "p1", b.OwnerID)
	assert.Equal(t, Position{X: 1, Y: 1}, b.Position)
	assert.Equal(t, 3, b.Timer)
	assert.Equal(t, 2, b.Radius)
	assert.Equal(t, 0, snap.Players["p1"].BombsAvailable)
	assert.Equal(t, []EventType{EventBombPlaced, EventGameState}, rec.Types())

	// No capacity left: nothing changes, nothing is published.
	rec.Reset()
	before := e.Snapshot()
	e.Move("p1", DirRight)
	rec.Reset()
	e.PlaceBomb("p1")
	after := e.Snapshot()
	assert.Len(t, after.Bombs, 1)
	assert.Equal(t, before.Board, after.Board)
	assert.Empty(t, rec.Events())
}

func TestPlaceBombOwnBombOnTile(t *testing.T) {
	e, _, rec := startedEngine(t, testConfig(), "p1", "p2", "p3")
	place(t, e, "p1", Position{X: 3, Y: 3})
	rec.Reset()

	// p1 with extra capacity cannot stack a second bomb of their own.
	livePlayer(e, "p1").BombsAvailable = 1
	e.PlaceBomb("p1")
	assert.Len(t, e.Snapshot().Bombs, 1)
	assert.Equal(t, 1, livePlayer(e, "p1").BombsAvailable)
	assert.Empty(t, rec.Events())

	// Another player standing on the bomb may still place theirs.
	setPosition(e, "p2", Position{X: 3, Y: 3})
	e.PlaceBomb("p2")
	snap := e.Snapshot()
	require.Len(t, snap.Bombs, 2)
	assert.Equal(t, "p2", snap.Bombs[1].OwnerID)
	assert.Equal(t, Position{X: 3, Y: 3}, snap.Bombs[1].Position)

	// Both go off together.
	setPosition(e, "p2", Position{X: 11, Y: 11})
	e.mu.Lock()
	explosions := e.detonate(e.state.Bombs[0])
	e.mu.Unlock()
	assert.Len(t, explosions, 2)
	assert.Empty(t, e.Snapshot().Bombs)
}

func TestPlaceBombDeadPlayer(t *testing.T) {
	e, _, rec := startedEngine(t, testConfig(), "p1", "p2", "p3")
	livePlayer(e, "p3").Alive = false

	e.PlaceBomb("p3")
	e.PlaceBomb("ghost")
	assert.Empty(t, e.Snapshot().Bombs)
	assert.Empty(t, rec.Events())
}

func TestBombFuse(t *testing.T) {
	e, clock, rec := startedEngine(t, testConfig(), "p1", "p2")
	place(t, e, "p1", Position{X: 3, Y: 3})
	setPosition(e, "p1", Position{X: 7, Y: 7})

	clock.Advance(2 * e.Config.TickInterval)
	snap := e.Snapshot()
	require.Len(t, snap.Bombs, 1)
	assert.Equal(t, 1, snap.Bombs[0].Timer)

	rec.Reset()
	clock.Advance(e.Config.TickInterval)

	snap = e.Snapshot()
	assert.Empty(t, snap.Bombs)
	assert.Equal(t, 1, snap.Players["p1"].BombsAvailable, "detonation returns the bomb")

	exp, ok := rec.Last(EventBombExploded)
	require.True(t, ok)
	assert.Equal(t, Position{X: 3, Y: 3}, exp.Explosion.Position)
	assert.Equal(t, "p1", exp.Explosion.OwnerID)

	// The fuse never fires twice.
	rec.Reset()
	clock.Advance(5 * e.Config.TickInterval)
	for _, ev := range rec.Events() {
		assert.NotEqual(t, EventBombExploded, ev.Type)
	}
}

func TestBlastRays(t *testing.T) {
	tests := []struct {
		name   string
		origin Position
		radius int
		want   []Position
	}{
		{
			name:   "open cross",
			origin: Position{X: 3, Y: 3},
			radius: 2,
			want: []Position{
				{X: 3, Y: 2}, {X: 3, Y: 1},
				{X: 4, Y: 3}, {X: 5, Y: 3},
				{X: 3, Y: 4}, {X: 3, Y: 5},
				{X: 2, Y: 3}, {X: 1, Y: 3},
			},
		},
		{
			name:   "corner against border",
			origin: Position{X: 1, Y: 1},
			radius: 2,
			want: []Position{
				{X: 2, Y: 1}, {X: 3, Y: 1},
				{X: 1, Y: 2}, {X: 1, Y: 3},
			},
		},
		{
			name:   "next to pillar",
			origin: Position{X: 2, Y: 1},
			radius: 2,
			want: []Position{
				{X: 3, Y: 1}, {X: 4, Y: 1},
				{X: 1, Y: 1},
			},
		},
		{
			name:   "long radius stops at walls",
			origin: Position{X: 1, Y: 1},
			radius: 20,
			want: []Position{
				{X: 2, Y: 1}, {X: 3, Y: 1}, {X: 4, Y: 1}, {X: 5, Y: 1}, {X: 6, Y: 1},
				{X: 7, Y: 1}, {X: 8, Y: 1}, {X: 9, Y: 1}, {X: 10, Y: 1}, {X: 11, Y: 1},
				{X: 12, Y: 1}, {X: 13, Y: 1},
				{X: 1, Y: 2}, {X: 1, Y: 3}, {X: 1, Y: 4}, {X: 1, Y: 5}, {X: 1, Y: 6},
				{X: 1, Y: 7}, {X: 1, Y: 8}, {X: 1, Y: 9}, {X: 1, Y: 10}, {X: 1, Y: 11},
				{X: 1, Y: 12}, {X: 1, Y: 13},
			},
		},
	}

	e, _, _ := startedEngine(t, testConfig(), "p1")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.blastTiles(&Bomb{Position: tt.origin, Radius: tt.radius})
			assert.Equal(t, tt.want, got)

			for _, pos := range got {
				dist := abs(pos.X-tt.origin.X) + abs(pos.Y-tt.origin.Y)
				assert.LessOrEqual(t, dist, tt.radius)
				assert.True(t, pos.X == tt.origin.X || pos.Y == tt.origin.Y)
				assert.NotEqual(t, SolidWall, e.state.Board.At(pos))
			}
		})
	}
}

func TestBlastStopsOnBlock(t *testing.T) {
	e, _, _ := startedEngine(t, testConfig(), "p1", "p2")
	e.state.Board.Set(Position{X: 5, Y: 3}, DestructibleBlock)

	b := place(t, e, "p1", Position{X: 3, Y: 3})
	b.Radius = 4
	setPosition(e, "p1", Position{X: 9, Y: 9})

	e.mu.Lock()
	explosions := e.detonate(b)
	e.mu.Unlock()

	require.Len(t, explosions, 1)
	assert.Contains(t, explosions[0].Tiles, Position{X: 5, Y: 3}, "block tile is included")
	assert.NotContains(t, explosions[0].Tiles, Position{X: 6, Y: 3}, "ray stops after the block")
	assert.Equal(t, Empty, e.state.Board.At(Position{X: 5, Y: 3}))
}

func TestBlastRadiusCapturedAtPlacement(t *testing.T) {
	e, _, _ := startedEngine(t, testConfig(), "p1", "p2")
	b := place(t, e, "p1", Position{X: 3, Y: 3})
	livePlayer(e, "p1").BombRadius = 6
	setPosition(e, "p1", Position{X: 11, Y: 11})

	e.mu.Lock()
	explosions := e.detonate(b)
	e.mu.Unlock()

	assert.Len(t, explosions[0].Tiles, 8)
}

func TestChainReaction(t *testing.T) {
	e, clock, rec := startedEngine(t, testConfig(), "p1", "p2")
	livePlayer(e, "p1").BombsAvailable = 3

	place(t, e, "p1", Position{X: 3, Y: 3})
	clock.Advance(e.Config.TickInterval)
	place(t, e, "p1", Position{X: 3, Y: 4})
	clock.Advance(e.Config.TickInterval)
	place(t, e, "p1", Position{X: 3, Y: 5})
	setPosition(e, "p1", Position{X: 11, Y: 11})

	rec.Reset()
	clock.Advance(e.Config.TickInterval)

	snap := e.Snapshot()
	assert.Empty(t, snap.Bombs)
	assert.Equal(t, 3, snap.Players["p1"].BombsAvailable)

	// One round tick, then the whole chain as one step.
	assert.Equal(t, []EventType{
		EventGameState,
		EventBombExploded, EventBombExploded, EventBombExploded,
		EventGameState,
	}, rec.Types())

	var origins []Position
	for _, ev := range rec.Events() {
		if ev.Type == EventBombExploded {
			origins = append(origins, ev.Explosion.Position)
		}
	}
	assert.Equal(t, []Position{{X: 3, Y: 3}, {X: 3, Y: 4}, {X: 3, Y: 5}}, origins)

	// The pre-empted fuses stay revoked.
	rec.Reset()
	clock.Advance(3 * e.Config.TickInterval)
	for _, ev := range rec.Events() {
		assert.NotEqual(t, EventBombExploded, ev.Type)
	}
}

func TestChainUsesOwnRadius(t *testing.T) {
	e, _, _ := startedEngine(t, testConfig(), "p1", "p2")
	livePlayer(e, "p1").BombsAvailable = 2
	livePlayer(e, "p1").BombRadius = 1
	first := place(t, e, "p1", Position{X: 3, Y: 3})
	livePlayer(e, "p1").BombRadius = 4
	place(t, e, "p1", Position{X: 3, Y: 4})
	setPosition(e, "p1", Position{X: 11, Y: 11})

	e.mu.Lock()
	explosions := e.detonate(first)
	e.mu.Unlock()

	require.Len(t, explosions, 2)
	assert.NotContains(t, explosions[0].Tiles, Position{X: 3, Y: 5})
	assert.Contains(t, explosions[1].Tiles, Position{X: 3, Y: 8})
}

func TestHitRespawns(t *testing.T) {
	e, _, rec := startedEngine(t, testConfig(), "p1", "p2")
	p2 := livePlayer(e, "p2")
	p2.Lives = 2

	b := place(t, e, "p1", Position{X: 3, Y: 3})
	setPosition(e, "p1", Position{X: 11, Y: 11})
	setPosition(e, "p2", Position{X: 5, Y: 3})
	rec.Reset()

	e.mu.Lock()
	e.detonate(b)
	e.mu.Unlock()

	assert.Equal(t, 1, p2.Lives)
	assert.True(t, p2.Alive)
	assert.Equal(t, SpawnPositions(15, 15)[p2.Slot], p2.Position)
	assert.Equal(t, 0, livePlayer(e, "p1").Score)

	ev, ok := rec.Last(EventPlayerRespawned)
	require.True(t, ok)
	assert.Equal(t, "p2", ev.Player.ID)
	assert.Equal(t, PhaseActive, e.Phase())
}

func TestHitEliminatesAndScores(t *testing.T) {
	e, _, rec := startedEngine(t, testConfig(), "p1", "p2", "p3")
	p2 := livePlayer(e, "p2")
	p2.Lives = 1

	b := place(t, e, "p1", Position{X: 3, Y: 3})
	setPosition(e, "p1", Position{X: 11, Y: 11})
	setPosition(e, "p2", Position{X: 3, Y: 4})
	rec.Reset()

	e.mu.Lock()
	e.detonate(b)
	e.mu.Unlock()

	assert.False(t, p2.Alive)
	assert.Equal(t, 0, p2.Lives)
	assert.Equal(t, 1, livePlayer(e, "p1").Score)

	ev, ok := rec.Last(EventPlayerEliminated)
	require.True(t, ok)
	assert.Equal(t, "p2", ev.Player.ID)

	e.mu.Lock()
	assert.Len(t, e.state.Players.Contenders(), 2)
	e.mu.Unlock()
	assert.Equal(t, PhaseActive, e.Phase(), "two contenders keep the round going")

	// Eliminated players can neither move nor bomb.
	e.Move("p2", DirRight)
	e.PlaceBomb("p2")
	assert.Equal(t, Position{X: 3, Y: 4}, p2.Position)
}

func TestSelfEliminationDoesNotScore(t *testing.T) {
	e, _, _ := startedEngine(t, testConfig(), "p1", "p2", "p3")
	p1 := livePlayer(e, "p1")
	p1.Lives = 1

	b := place(t, e, "p1", Position{X: 3, Y: 3})

	e.mu.Lock()
	e.detonate(b)
	e.mu.Unlock()

	assert.False(t, p1.Alive)
	assert.Equal(t, 0, p1.Score)
}

func TestChainHitsPlayerOnce(t *testing.T) {
	e, _, rec := startedEngine(t, testConfig(), "p1", "p2", "p3")
	livePlayer(e, "p1").BombsAvailable = 2
	p2 := livePlayer(e, "p2")
	p2.Lives = 1

	first := place(t, e, "p1", Position{X: 3, Y: 3})
	place(t, e, "p1", Position{X: 3, Y: 5})
	setPosition(e, "p1", Position{X: 11, Y: 11})
	// Covered by both blasts.
	setPosition(e, "p2", Position{X: 3, Y: 4})
	rec.Reset()

	e.mu.Lock()
	explosions := e.detonate(first)
	e.mu.Unlock()

	require.Len(t, explosions, 2)
	assert.Equal(t, 1, livePlayer(e, "p1").Score)

	eliminated := 0
	for _, ev := range rec.Events() {
		if ev.Type == EventPlayerEliminated {
			eliminated++
		}
	}
	assert.Equal(t, 1, eliminated)
}

func TestDisconnectedOwnerBombStillExplodes(t *testing.T) {
	e, clock, rec := startedEngine(t, testConfig(), "p1", "p2", "p3")
	place(t, e, "p3", Position{X: 3, Y: 3})
	livePlayer(e, "p2").Lives = 1
	setPosition(e, "p2", Position{X: 3, Y: 4})

	e.Disconnect("p3")
	rec.Reset()
	clock.Advance(3 * e.Config.TickInterval)

	_, ok := rec.Last(EventBombExploded)
	assert.True(t, ok)
	assert.False(t, livePlayer(e, "p2").Alive)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
