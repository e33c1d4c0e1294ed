package chat

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

// Printer выводит строки чата и ошибки в терминал
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	red *color.Color
}

func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out: out,
		red: color.New(color.FgRed),
	}
}

func (p *Printer) ReceiveMessage(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, text)
}

func (p *Printer) Error(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.red.Fprintf(p.out, "error: %v\n", err)
}
