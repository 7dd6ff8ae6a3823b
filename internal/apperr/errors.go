// Package apperr defines the error kinds shared across indexsync.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	// ErrConfigurationMissing reports absent credentials. Runs that hit it end
	// without contacting the remote service.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrIndexUnreachable reports that the target index could not be read.
	ErrIndexUnreachable = errors.New("index unreachable")
	// ErrRemote wraps any failed listing, delete or upsert call.
	ErrRemote = errors.New("remote communication error")
	// ErrContentModel reports a malformed content tree or field value.
	ErrContentModel = errors.New("content model error")
	// ErrInvalidTarget reports an unparsable target or an unknown scheme.
	ErrInvalidTarget = errors.New("invalid target")
)

// Kind returns a short label for err, used in the run journal and API responses.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfigurationMissing):
		return "configuration_missing"
	case errors.Is(err, ErrIndexUnreachable):
		return "index_unreachable"
	case errors.Is(err, ErrRemote):
		return "remote"
	case errors.Is(err, ErrContentModel):
		return "content_model"
	case errors.Is(err, ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "internal"
	}
}
