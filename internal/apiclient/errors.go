package apiclient

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a 2xx response whose body does not fit the
// expected schema.
var ErrMalformedResponse = errors.New("malformed response")

// NetworkError is a failed round-trip: transport error, timeout, or a
// non-2xx status whose body carries no usable message.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: request failed with status %d", e.Op, e.Status)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError is an error the API reported itself, or a response that
// failed schema validation.
type ServerError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *ServerError) Unwrap() error { return e.Err }

// Message returns the server-supplied message carried by err, if any.
func Message(err error) (string, bool) {
	var se *ServerError
	if errors.As(err, &se) && se.Message != "" {
		return se.Message, true
	}
	return "", false
}
