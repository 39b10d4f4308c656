package collector

import (
	"errors"
	"net/http"
)

// ErrNoData is returned when the provider knows the symbol but has no bars.
var ErrNoData = errors.New("no data returned")

// TransientError marks a failure worth retrying (network errors, 429, 5xx).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
