package apperr

import (
	"errors"
	"fmt"
)

// ValidationError marks a request as malformed by the caller. The error
// normalization layer turns it into a 400 with the message exposed to the
// client; anything else stays a generic 500.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func Validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// AsValidation reports whether err is (or wraps) a ValidationError.
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}
