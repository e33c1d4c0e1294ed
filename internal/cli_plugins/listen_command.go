package cliplugins

import (
	"context"
	"fmt"
	"log/slog"

	"udpchat/internal/chat"
	"udpchat/internal/communicator"
	"udpchat/internal/util/logger/sl"

	"github.com/spf13/cobra"
)

type ListenCommand struct {
	cmd *cobra.Command
	app *AppContext
}

func NewListenCommand(app *AppContext) *ListenCommand {
	return &ListenCommand{app: app}
}

func (l *ListenCommand) Meta() *cobra.Command {
	if l.cmd != nil {
		return l.cmd
	}
	l.cmd = &cobra.Command{
		Use:   "listen",
		Short: "Prints incoming chat lines until interrupted",
	}
	l.cmd.Flags().Bool("no-history", false, "do not store received lines")
	return l.cmd
}

func (l *ListenCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	const op = "cli.listen"
	log := l.app.Log.With(slog.String("op", op))

	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return fmt.Errorf("flag --no-history failed")
	}

	sink := chat.Fanout{chat.NewPrinter(l.app.Out)}
	if !noHistory {
		store, err := l.app.openHistory()
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("Failed to close history", sl.Err(err))
			}
		}()
		sink = append(sink, chat.NewRecorder(store, l.app.Log))
	}

	n := communicator.NewNotifier(l.app.Config.NotifierBuffer, l.app.Log)
	c, err := l.app.newCommunicator(n)
	if err != nil {
		return err
	}

	log.Info("Waiting for messages", slog.String("endpoint", c.Selector().Endpoint().String()))
	return l.app.runListener(ctx, c, n, sink)
}
