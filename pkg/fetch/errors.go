package fetch

import (
	"errors"
	"fmt"
)

var (
	// ErrRequestFailed matches any *StatusError.
	ErrRequestFailed = errors.New("request failed")

	// ErrInvalidURL is returned when a request URL is not absolute.
	ErrInvalidURL = errors.New("invalid url")
)

// StatusError is returned when the server answers with anything but 200.
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed: GET %s: status %d", e.URL, e.StatusCode)
}

// Is reports whether target is ErrRequestFailed.
func (e *StatusError) Is(target error) bool {
	return target == ErrRequestFailed
}

// TransportError wraps network-level failures such as DNS errors,
// refused connections and timeouts.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error: GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is returned when a 200 body is not valid JSON.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode json from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status code carried by err, if any.
func StatusCode(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	return 0, false
}
