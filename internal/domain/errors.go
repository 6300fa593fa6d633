package domain

import "errors"

var (
	ErrInvalidRequest    = errors.New("missing required identifiers")
	ErrRoomExists        = errors.New("room already exists")
	ErrRoomNotFound      = errors.New("room not found")
	ErrIncorrectPassword = errors.New("incorrect room password")
	ErrRoomFull          = errors.New("room is full")
)
