package common

import (
	"errors"
	"fmt"
)

var ErrInvalidResource = errors.New("invalid resource")
var ErrLoadTimeout = errors.New("timed out waiting for resource to become ready")
var ErrRetriesExhausted = errors.New("retries exhausted")
var ErrManagerClosed = errors.New("preload manager has been torn down")
var ErrNotTracked = errors.New("url is not tracked by the preloader")

// LoadError is a transport or decode failure reported by the playback capability.
type LoadError struct {
	Url    string
	Reason error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.Url, e.Reason)
}

func (e *LoadError) Unwrap() error {
	return e.Reason
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidResource) && !errors.Is(err, ErrManagerClosed)
}
