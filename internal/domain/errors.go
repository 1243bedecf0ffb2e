package domain

import "errors"

// Error kinds raised by collaborators. Callers match them with errors.Is and
// degrade to a safe default; none of them crosses the event callback.
var (
	// ErrDataCorruption marks a malformed preference value.
	ErrDataCorruption = errors.New("data corruption")

	// ErrPermissionDenied marks a host refusing an overlay or notification.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUnavailableContent marks a missing content tree.
	ErrUnavailableContent = errors.New("content unavailable")
)
