package backend

import (
	"errors"
	"fmt"
)

// ErrRequestFailed matches every error returned by Client. Transport errors,
// non-2xx statuses and malformed payloads are all reported this way.
var ErrRequestFailed = errors.New("request failed")

// RequestFailedError carries a human-readable description of a failed backend call.
type RequestFailedError struct {
	Op          string
	Description string
	Err         error
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Description)
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

func requestFailed(op string, err error, format string, args ...any) error {
	return &RequestFailedError{
		Op:          op,
		Description: fmt.Sprintf(format, args...),
		Err:         err,
	}
}
