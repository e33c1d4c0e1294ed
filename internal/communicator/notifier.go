package communicator

import (
	"log/slog"
	"sync"
)

const DefaultNotifierBuffer = 64

type EventKind int

const (
	EventMessage EventKind = iota
	EventError
)

type Event struct {
	Kind EventKind
	Text string
	Err  error
}

// Notifier - потокобезопасный Consumer: события складываются в ограниченную очередь,
// которую потребитель читает в своем темпе. При переполнении событие теряется.
type Notifier struct {
	events chan Event
	log    *slog.Logger

	mu     sync.RWMutex
	closed bool
}

func NewNotifier(size int, log *slog.Logger) *Notifier {
	if size <= 0 {
		size = DefaultNotifierBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		events: make(chan Event, size),
		log:    log.With(slog.String("component", "notifier")),
	}
}

func (n *Notifier) ReceiveMessage(text string) {
	n.push(Event{Kind: EventMessage, Text: text})
}

func (n *Notifier) Error(err error) {
	n.push(Event{Kind: EventError, Err: err})
}

func (n *Notifier) Events() <-chan Event {
	return n.events
}

// Close закрывает канал событий; повторный вызов ничего не делает
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return
	}
	n.closed = true
	close(n.events)
}

func (n *Notifier) push(ev Event) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		return
	}

	select {
	case n.events <- ev:
	default:
		n.log.Warn("Event buffer full, dropping event", slog.Int("kind", int(ev.Kind)))
	}
}
