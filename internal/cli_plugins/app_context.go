package cliplugins

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"udpchat/internal/chat"
	"udpchat/internal/communicator"
	"udpchat/internal/config"
	"udpchat/internal/storage/history"
	"udpchat/internal/transport"
)

var (
	ErrNameRequired    = errors.New("sender name is required (--name or NAME)")
	ErrListenerStopped = errors.New("listener stopped unexpectedly")
)

// AppContext хранит зависимости, которые будут использоваться в командах CLI.
// Заполняется до выполнения команды в PersistentPreRunE.
type AppContext struct {
	Config *config.Config
	Log    *slog.Logger
	In     io.Reader
	Out    io.Writer
	Source transport.InterfaceSource
}

func NewAppContext(in io.Reader, out io.Writer) *AppContext {
	return &AppContext{
		In:     in,
		Out:    out,
		Source: transport.SystemInterfaces{},
	}
}

func (a *AppContext) newCommunicator(consumer communicator.Consumer) (*communicator.Communicator, error) {
	return communicator.New(
		a.Config.Transport,
		consumer,
		a.Log,
		communicator.WithInterfaceSource(a.Source),
	)
}

func (a *AppContext) openHistory() (*history.Store, error) {
	return history.Open(history.Config{Path: a.Config.HistoryPath})
}

// runListener слушает до отмены контекста, передавая события в sink из текущей горутины
func (a *AppContext) runListener(ctx context.Context, c *communicator.Communicator, n *communicator.Notifier, sink communicator.Consumer) error {
	if err := c.StartListening(); err != nil {
		return err
	}

	pumpCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		// цикл приема сам завершился (например, ошибка bind) - выходим
		select {
		case <-c.Done():
			cancel()
		case <-pumpCtx.Done():
		}
	}()

	chat.Pump(pumpCtx, n.Events(), sink)
	interrupted := ctx.Err() != nil

	if err := c.StopListening(); err != nil && !errors.Is(err, communicator.ErrNotListening) {
		return err
	}
	<-c.Done()
	n.Close()
	// дочитываем то, что успело прийти до остановки
	chat.Pump(context.Background(), n.Events(), sink)

	if !interrupted {
		return ErrListenerStopped
	}
	return nil
}
