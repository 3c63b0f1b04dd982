package models

import "errors"

// Rejection kinds. Room operations wrap them with a human readable reason.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRoomNotFound = errors.New("room not found")
	ErrForbidden    = errors.New("only the room creator can perform this action")
	ErrNotAMember   = errors.New("participant not found in room")
)

// Wire codes sent in error messages
const (
	CodeInvalidInput = "invalid_input"
	CodeRoomNotFound = "room_not_found"
	CodeForbidden    = "forbidden"
	CodeNotAMember   = "not_a_member"
	CodeInternal     = "internal"
)

// Code maps err to the code reported to clients.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrRoomNotFound):
		return CodeRoomNotFound
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, ErrNotAMember):
		return CodeNotAMember
	default:
		return CodeInternal
	}
}
