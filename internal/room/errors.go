package room

import "errors"

var (
	// ErrRoomNotFound is returned when an operation references a room id that
	// is not (or no longer) live.
	ErrRoomNotFound = errors.New("room not found")

	// ErrRoomFull is returned by Join when the per-room joiner quota is
	// reached.
	ErrRoomFull = errors.New("room full")

	// ErrTooManyRooms is returned by Create when the registry-wide room quota
	// is reached.
	ErrTooManyRooms = errors.New("too many rooms")
)
