package attendance

import "errors"

var (
	// ErrInvalidRequest marks malformed write payloads (missing employee id or
	// date, bad formats, unsupported status, future dates).
	ErrInvalidRequest = errors.New("invalid attendance request")

	// ErrUnknownEmployee is returned when the employee id has no registry row.
	ErrUnknownEmployee = errors.New("unknown employee")

	// ErrStoreUnavailable wraps transient store/network failures. Nothing was
	// written when it is returned.
	ErrStoreUnavailable = errors.New("attendance store unavailable")
)
