package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrRoomExists = errors.New("room key already exists")
)

// ValidationError is returned for malformed input before any I/O happens.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError covers missing and expired rooms as well as missing items.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.Resource == "room" {
		return fmt.Sprintf("room %s not found or expired", e.ID)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

func RoomNotFound(key string) error {
	return &NotFoundError{Resource: "room", ID: key}
}

func ItemNotFound(id string) error {
	return &NotFoundError{Resource: "item", ID: id}
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
