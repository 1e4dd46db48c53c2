package server

import "errors"

var (
	// ErrNetworkFailure wraps listener/accept-level failures.
	ErrNetworkFailure = errors.New("server: network failure")
	// ErrShuttingDown is returned by Start when called on a Server that
	// has already had Stop called on it: Stopped is terminal (spec
	// §4.F) and there is no restarting it.
	ErrShuttingDown = errors.New("server: shutting down")
	// ErrAlreadyRunning is returned by Start on an already-running server.
	ErrAlreadyRunning = errors.New("server: already running")
)
