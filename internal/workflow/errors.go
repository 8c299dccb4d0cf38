package workflow

import "errors"

// Sentinel errors for the transition engine. Validation failures
// (ErrUnauthorized, ErrInvalidTarget, stage.ErrUnknown) are always resolved
// before any mutation; ErrConcurrentModification is the one failure a caller
// should auto-retry after re-reading state.
var (
	ErrInstanceNotFound       = errors.New("workflow instance not found")
	ErrNotStarted             = errors.New("workflow not started")
	ErrUnauthorized           = errors.New("transition not authorized")
	ErrInvalidTarget          = errors.New("invalid transition target")
	ErrConcurrentModification = errors.New("concurrent workflow modification")
	ErrActiveInstanceExists   = errors.New("document already has an active workflow")
)
