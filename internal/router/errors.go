// Package router schedules inbound work per conversation and resolves which
// agent session a conversation belongs to.
package router

import "errors"

// Sentinel errors for router operations.
var (
	// ErrQueueClosed indicates the dispatch queue has been shut down and
	// rejected the task without running it.
	ErrQueueClosed = errors.New("router: queue closed")

	// ErrTaskPanic wraps the value recovered from a panicking task.
	ErrTaskPanic = errors.New("router: task panicked")
)
