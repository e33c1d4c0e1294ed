package chat

import (
	"context"

	"udpchat/internal/communicator"
)

// Pump переносит события из Notifier в consumer в горутине вызывающего,
// пока не закончится контекст или не закроется канал
func Pump(ctx context.Context, events <-chan communicator.Event, consumer communicator.Consumer) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Kind {
			case communicator.EventMessage:
				consumer.ReceiveMessage(ev.Text)
			case communicator.EventError:
				consumer.Error(ev.Err)
			}
		}
	}
}
