package models

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by every constructor validation failure.
var ErrInvalidInput = errors.New("invalid input")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
