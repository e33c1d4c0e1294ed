package chat

import (
	"strings"

	"udpchat/internal/communicator"
)

// SelfFilter отбрасывает собственные строки, вернувшиеся через multicast/broadcast.
// Совпадение только по префиксу "<name>: ", другой участник с тем же именем тоже будет скрыт.
type SelfFilter struct {
	next   communicator.Consumer
	prefix string
}

func NewSelfFilter(name string, next communicator.Consumer) *SelfFilter {
	return &SelfFilter{
		next:   next,
		prefix: communicator.ChatMessage{Sender: name}.String(),
	}
}

func (f *SelfFilter) ReceiveMessage(text string) {
	if strings.HasPrefix(text, f.prefix) {
		return
	}
	f.next.ReceiveMessage(text)
}

func (f *SelfFilter) Error(err error) {
	f.next.Error(err)
}

// Fanout передает события всем потребителям по очереди
type Fanout []communicator.Consumer

func (f Fanout) ReceiveMessage(text string) {
	for _, c := range f {
		c.ReceiveMessage(text)
	}
}

func (f Fanout) Error(err error) {
	for _, c := range f {
		c.Error(err)
	}
}
