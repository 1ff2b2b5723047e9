package dispatch

import (
	"errors"
	"fmt"
)

var (
	ErrMissingCSRFToken = errors.New("dispatch: page context has no csrf_token")
	ErrMissingGroupURL  = errors.New("dispatch: shared mode requires group_url")
	ErrMissingTarget    = errors.New("dispatch: group has no nsid to post to")
	ErrUnresolvedTarget = errors.New("dispatch: relative target and no base URL")
	ErrFragmentTooLarge = errors.New("dispatch: response body exceeds fragment limit")
	ErrNoContainer      = errors.New("dispatch: no container to append to")
	ErrUnknownMode      = errors.New("dispatch: unknown mode")
)

// StatusError is returned for a non-2xx response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dispatch: %s returned status %d", e.URL, e.Code)
}

// IsValidationError reports whether err rejects the page context itself, as
// opposed to a failure of one request.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrMissingCSRFToken) ||
		errors.Is(err, ErrMissingGroupURL) ||
		errors.Is(err, ErrUnknownMode)
}
