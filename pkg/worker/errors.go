package worker

import "errors"

// Pool lifecycle and submission errors.
var (
	// ErrPoolNotStarted is returned by Submit before Start has been called.
	ErrPoolNotStarted = errors.New("worker pool not started")

	// ErrPoolStopped is returned by Submit after the pool has been stopped.
	ErrPoolStopped = errors.New("worker pool stopped")

	// ErrPoolAlreadyStarted is returned when Start is called twice.
	ErrPoolAlreadyStarted = errors.New("worker pool already started")

	// ErrQueueFull is returned when the work queue is at capacity. The
	// submitted item is dropped; this is the backpressure signal.
	ErrQueueFull = errors.New("worker pool queue full")

	// ErrNilProcessor is the panic value when NewPool gets a nil processor.
	ErrNilProcessor = errors.New("processor function cannot be nil")

	// ErrStopTimeout is returned when workers do not drain within the
	// Stop timeout.
	ErrStopTimeout = errors.New("timeout waiting for workers to stop")
)
