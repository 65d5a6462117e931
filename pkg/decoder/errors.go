package decoder

import (
	"errors"
	"fmt"
)

// ErrMalformed matches every DecodeError via errors.Is.
var ErrMalformed = errors.New("malformed payload")

// DecodeError names the first field that was missing or had the wrong type.
// Field "$" denotes the document itself.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("malformed field %q: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrMalformed }

func malformed(field string, format string, args ...any) *DecodeError {
	return &DecodeError{Field: field, Err: fmt.Errorf(format, args...)}
}
