// Package worker provides a generic, thread-safe worker pool for concurrent
// task processing.
//
// The pool manages a fixed number of goroutines that process work items from a
// bounded channel. Submit() is non-blocking: when the queue is full the item is
// dropped and ErrQueueFull returned, which is the backpressure signal.
//
// Statistics are always tracked with atomic operations; Prometheus metrics are
// optional via WithMetricsRegistry.
//
// Basic usage:
//
//	pool := worker.NewPool[Delivery](10, 1000, func(ctx context.Context, d Delivery) error {
//	    return send(ctx, d)
//	})
//	pool.Start(ctx)
//	defer pool.Stop(5 * time.Second)
//	pool.Submit(delivery)
//
// Worker count is fixed at creation; per-item timeouts belong in the processor
// function. Stop closes the queue, drains remaining items, and waits up to the
// given timeout for workers to exit.
package worker
