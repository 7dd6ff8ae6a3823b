package algolia

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/algolia/algoliasearch-client-go/v4/algolia/search"
)

// Error is a non-2xx answer from the service that the SDK did not retry.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("algolia: status %d: %s", e.Status, e.Message)
}

// classify turns SDK API errors into *Error and wraps everything else
// (transport failures, exhausted retries) with the operation name.
func classify(op string, err error) error {
	var apiErr *search.APIError
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.Message)
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		return &Error{Status: apiErr.Status, Message: msg}
	}
	return fmt.Errorf("algolia: %s: %w", op, err)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusNotFound
}

// IsAuth reports whether err is a rejected credential.
func IsAuth(err error) bool {
	var e *Error
	return errors.As(err, &e) && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}
