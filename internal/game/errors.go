package game

import "errors"

var (
	ErrPlayerExists  = errors.New("player already registered")
	ErrRoomFull      = errors.New("room is full")
	ErrEngineStopped = errors.New("engine stopped")
)
