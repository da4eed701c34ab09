package enginepool

import "errors"

var (
	// ErrShuttingDown is returned by Submit once Shutdown has been
	// called; no further tasks are accepted.
	ErrShuttingDown = errors.New("enginepool: pool is shutting down")
	// ErrTaskTimeout is the error a Future resolves with when its task
	// did not complete within the configured per-task timeout. The
	// engine that was running it is killed and replaced before this
	// error is returned to the caller.
	ErrTaskTimeout = errors.New("enginepool: task exceeded timeout")
	// ErrCancelled is returned when a queued task is abandoned because
	// the context passed to Start was cancelled before a worker started
	// it. Submit itself takes no context.
	ErrCancelled = errors.New("enginepool: task cancelled")
)
