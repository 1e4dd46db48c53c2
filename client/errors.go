package client

import "errors"

var (
	// ErrNotConnected is returned by Steer once Close has been called.
	ErrNotConnected = errors.New("client: not connected")
)
