package services

import (
	"errors"
	"fmt"
)

var (
	// ErrEmailRequired is returned when a user is created without an email.
	ErrEmailRequired = errors.New("users must have an email address")
	// ErrInvalidCredentials covers unknown emails, wrong passwords and
	// inactive accounts alike.
	ErrInvalidCredentials = errors.New("unable to authenticate with provided credentials")
	// ErrInvalidImage is returned when an upload is not a decodable image.
	ErrInvalidImage = errors.New("upload a valid image")
	// ErrImageTooLarge is returned when an upload exceeds the size limit.
	ErrImageTooLarge = errors.New("image file too large")
	// ErrPasswordTooLong is returned for passwords over bcrypt's 72-byte limit.
	ErrPasswordTooLong = errors.New("ensure the password has no more than 72 bytes")
	// ErrUnknownReference is wrapped by UnknownReferenceError.
	ErrUnknownReference = errors.New("unknown reference")
)

// UnknownReferenceError reports tag or ingredient ids that do not exist or
// belong to another user.
type UnknownReferenceError struct {
	Field string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("%s: invalid id, object does not exist", e.Field)
}

func (e *UnknownReferenceError) Unwrap() error {
	return ErrUnknownReference
}
