package externalApi

import (
	"errors"
	"fmt"
)

var ErrNotFound = errors.New("error not found")

// StatusError carries a non-2xx HTTP status so callers can classify the
// failure without parsing the message.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, e.Status)
}
