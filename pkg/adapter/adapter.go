package adapter

import "context"

// Adapter is a transport surface exposing the tool gateway to callers.
//
// Each adapter implements one concrete transport (e.g. the HTTP API) over
// the same gateway, so the guard sequence and audit behavior are identical
// regardless of how a request arrives.
//
// Lifecycle:
//  1. Creation: the adapter is built with its configuration and gateway
//  2. Startup: Serve() binds the transport and blocks until shutdown
//  3. Shutdown: Stop() drains in-flight requests within its context
//
// Thread safety: Stop may be called concurrently with Serve, and more than
// once.
type Adapter interface {
	// Serve starts the transport and blocks until the context is cancelled
	// or an unrecoverable error occurs. Cancellation triggers graceful
	// shutdown; a clean shutdown returns nil or context.Canceled.
	Serve(ctx context.Context) error

	// Stop initiates graceful shutdown, honoring the context deadline for
	// draining in-flight requests. Idempotent.
	Stop(ctx context.Context) error

	// Transport returns the human-readable transport name for logging
	Transport() string

	// Port returns the TCP port the adapter is listening on, or 0 before
	// Serve has bound it
	Port() int
}
