package communicator

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"

	"udpchat/internal/config"
	"udpchat/internal/transport"
	"udpchat/internal/util/logger/sl"

	"github.com/hashicorp/go-multierror"
)

// Communicator отправляет строки чата датаграммами и слушает чужие.
// Доставка не гарантируется: потери, дубли и перестановки допустимы.
type Communicator struct {
	selector   *transport.Selector
	consumer   Consumer
	bufferSize int
	log        *slog.Logger

	state atomic.Int32

	// mu защищает сокет и членство в группе при переходах состояния
	mu         sync.Mutex
	conn       *net.UDPConn
	membership *transport.Membership

	done chan struct{}
}

type options struct {
	source transport.InterfaceSource
}

type Option func(*options)

// WithInterfaceSource подменяет перечисление интерфейсов (в основном для тестов)
func WithInterfaceSource(src transport.InterfaceSource) Option {
	return func(o *options) {
		o.source = src
	}
}

func New(cfg config.Transport, consumer Consumer, log *slog.Logger, opts ...Option) (*Communicator, error) {
	const op = "communicator.New"

	if consumer == nil {
		return nil, fmt.Errorf("%s: %w", op, ErrNilConsumer)
	}
	if log == nil {
		log = slog.Default()
	}

	o := options{source: transport.SystemInterfaces{}}
	for _, opt := range opts {
		opt(&o)
	}

	selector, err := transport.NewSelector(cfg, o.source, consumer.Error, log)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Communicator{
		selector:   selector,
		consumer:   consumer,
		bufferSize: cfg.BufferSize,
		log:        log.With(slog.String("component", "communicator")),
		done:       make(chan struct{}),
	}, nil
}

func (c *Communicator) Selector() *transport.Selector {
	return c.selector
}

func (c *Communicator) State() State {
	return State(c.state.Load())
}

// Done закрывается, когда цикл приема полностью завершился
func (c *Communicator) Done() <-chan struct{} {
	return c.done
}

// Send отправляет одну датаграмму "<sender>: <body>" через новый сокет.
// Ошибки уходят в Consumer.Error и вызывающему не возвращаются.
func (c *Communicator) Send(sender, body string) {
	const op = "communicator.Send"
	log := c.log.With(slog.String("op", op))

	payload := ChatMessage{Sender: sender, Body: body}.Encode()

	conn, err := c.selector.Dial()
	if err != nil {
		log.Error("Failed to open outbound socket", sl.Err(err))
		c.consumer.Error(err)
		return
	}
	defer conn.Close()

	if _, err := conn.Write(payload); err != nil {
		log.Error("Failed to send datagram", sl.Err(err))
		c.consumer.Error(fmt.Errorf("%s: %w", op, err))
		return
	}

	log.Debug("Datagram sent",
		slog.String("to", conn.RemoteAddr().String()),
		slog.Int("bytes", len(payload)),
	)
}

// StartListening запускает цикл приема в отдельной горутине и сразу возвращается.
// Повторный запуск отклоняется с ErrAlreadyStarted.
func (c *Communicator) StartListening() error {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateStarting)) {
		return ErrAlreadyStarted
	}
	go c.listen()
	return nil
}

// StopListening выходит из группы и закрывает сокет, что и разблокирует прием.
// До запуска возвращает ErrNotListening, после остановки ничего не делает.
func (c *Communicator) StopListening() error {
	stopped, err := c.requestStop()
	if !stopped {
		return err
	}
	if err != nil {
		c.consumer.Error(err)
	}
	return nil
}

func (c *Communicator) requestStop() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		s := State(c.state.Load())
		switch s {
		case StateIdle:
			return false, ErrNotListening
		case StateStopping, StateStopped:
			return false, nil
		}

		if !c.state.CompareAndSwap(int32(s), int32(StateStopping)) {
			continue
		}
		c.log.Info("Stopping listener", slog.String("from", s.String()))

		// в Starting сокета еще нет, горутина сама закроет его после bind
		if s == StateListening {
			return true, c.teardown()
		}
		return true, nil
	}
}

func (c *Communicator) listen() {
	const op = "communicator.listen"
	log := c.log.With(slog.String("op", op))

	defer close(c.done)
	defer c.state.Store(int32(StateStopped))

	conn, err := c.selector.Bind(context.Background())
	if err != nil {
		c.reportUnlessStopping(err)
		return
	}

	membership, err := c.selector.Join(conn)
	if err != nil {
		conn.Close()
		c.reportUnlessStopping(err)
		return
	}

	if !c.publish(conn, membership) {
		if err := release(conn, membership); err != nil {
			log.Warn("Failed to release socket after early stop", sl.Err(err))
		}
		return
	}

	log.Info("Listening",
		slog.String("addr", conn.LocalAddr().String()),
		slog.Int("buffer", c.bufferSize),
	)

	buf := make([]byte, c.bufferSize)
	for {
		n, src, err := conn.ReadFromUDP(buf)
		// датаграмма, пришедшая одновременно с остановкой, отбрасывается
		if c.stopping() {
			log.Info("Listener stopped")
			return
		}
		if err != nil {
			log.Error("Receive failed", sl.Err(err))
			c.consumer.Error(fmt.Errorf("%s: %w", op, err))
			c.abort()
			return
		}

		log.Debug("Datagram received", slog.String("from", src.String()), slog.Int("bytes", n))
		c.consumer.ReceiveMessage(Decode(buf[:n]))
	}
}

// publish делает сокет видимым для StopListening. false - остановка уже запрошена.
func (c *Communicator) publish(conn *net.UDPConn, m *transport.Membership) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(StateStarting), int32(StateListening)) {
		return false
	}
	c.conn = conn
	c.membership = m
	return true
}

// abort освобождает ресурсы после неожиданной ошибки приема
func (c *Communicator) abort() {
	c.mu.Lock()
	c.state.Store(int32(StateStopping))
	err := c.teardown()
	c.mu.Unlock()

	if err != nil {
		c.log.Warn("Failed to release socket after receive error", sl.Err(err))
	}
}

func (c *Communicator) stopping() bool {
	s := State(c.state.Load())
	return s == StateStopping || s == StateStopped
}

func (c *Communicator) reportUnlessStopping(err error) {
	if c.stopping() {
		return
	}
	c.log.Error("Listener failed to start", sl.Err(err))
	c.consumer.Error(err)
}

// teardown вызывается под mu
func (c *Communicator) teardown() error {
	if c.conn == nil {
		return nil
	}
	err := release(c.conn, c.membership)
	c.conn = nil
	c.membership = nil
	return err
}

func release(conn *net.UDPConn, m *transport.Membership) error {
	var result *multierror.Error
	if err := m.Leave(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := conn.Close(); err != nil {
		result = multierror.Append(result, fmt.Errorf("close listener: %w", err))
	}
	return result.ErrorOrNil()
}
