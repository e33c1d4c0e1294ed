package communicator

import "errors"

var (
	ErrAlreadyStarted = errors.New("listener already started")
	ErrNotListening   = errors.New("listener is not listening")
	ErrNilConsumer    = errors.New("consumer is nil")
)
