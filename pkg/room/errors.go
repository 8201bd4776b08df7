package room

import "errors"

var (
	// ErrRoomNotFound means the room code has no live room.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomFull means the room already holds the maximum device count.
	ErrRoomFull = errors.New("room is full")
	// ErrFileNotFound means the room exists but does not contain the file.
	ErrFileNotFound = errors.New("file not found")
	// ErrCorruptRecord means a stored record is missing required fields.
	// This indicates an invariant violation, not an expected absence.
	ErrCorruptRecord = errors.New("corrupt file record")
	// ErrInvalidRoomCode means the supplied code fails format validation.
	ErrInvalidRoomCode = errors.New("invalid room code")
)
