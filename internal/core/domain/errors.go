package domain

import (
	"errors"
	"fmt"
)

var (
	ErrTransport    = errors.New("transport failure")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrServer       = errors.New("server error")
	ErrEmptyPayload = errors.New("empty payload")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// Describe returns the banner line shown to the user when a navigation attempt fails.
func Describe(err error) string {
	switch {
	case err == nil:
		return ""
	case IsKind(err, ErrNotFound):
		return "The document could not be found. It may have been deleted."
	case IsKind(err, ErrForbidden):
		return "You do not have access to this document."
	case IsKind(err, ErrEmptyPayload):
		return "The document file is empty."
	case IsKind(err, ErrServer):
		return "The document service failed to respond. Try again later."
	case IsKind(err, ErrTransport), IsKind(err, ErrTemporary):
		return "Network error while loading the document."
	case IsKind(err, ErrInvalidInput):
		return "The request was rejected as invalid."
	default:
		return "Failed to load the document."
	}
}
