package domain

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrDuplicateRoom = errors.New("room already exists")
	ErrNotMember     = errors.New("user is not a member of this room")
	ErrInvalidInput  = errors.New("invalid input")
)
