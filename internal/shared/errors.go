package shared

import "errors"

var (
	// ErrNotFound indicates a referenced resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrGatewayUnavailable indicates the remote store could not be reached.
	ErrGatewayUnavailable = errors.New("remote store unavailable")
	// ErrConflict indicates a write precondition failed (concurrent update).
	ErrConflict = errors.New("write conflict")
	// ErrQueuedOffline indicates a mutation was recorded for later replay
	// because the remote store was unreachable.
	ErrQueuedOffline = errors.New("queued for offline replay")
)
