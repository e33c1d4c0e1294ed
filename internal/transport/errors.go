package transport

import "errors"

var (
	ErrInvalidEndpoint     = errors.New("invalid endpoint")
	ErrNoMatchingInterface = errors.New("no interface owns the local host address")
	ErrNotUDPConn          = errors.New("listener is not a UDP connection")
)
