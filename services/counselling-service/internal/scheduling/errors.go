package scheduling

import "errors"

// Error kinds surfaced to callers. Wrap with fmt.Errorf("%w: detail", ErrX).
var (
	ErrValidation   = errors.New("validation error")
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	// ErrUnavailable means an optional integration (payments) is not configured.
	ErrUnavailable = errors.New("unavailable")
)
