package cliplugins

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"udpchat/internal/chat"
	"udpchat/internal/communicator"
	"udpchat/internal/util/logger/sl"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const quitCommand = "/quit"

type ChatCommand struct {
	cmd *cobra.Command
	app *AppContext
}

func NewChatCommand(app *AppContext) *ChatCommand {
	return &ChatCommand{app: app}
}

func (c *ChatCommand) Meta() *cobra.Command {
	if c.cmd != nil {
		return c.cmd
	}
	c.cmd = &cobra.Command{
		Use:   "chat",
		Short: "Interactive chat: sends typed lines and prints incoming ones",
		Long:  "Each input line is sent as one datagram. Type " + quitCommand + " or press Ctrl+D to leave.",
	}
	c.cmd.Flags().StringP("name", "n", "", "sender name")
	c.cmd.Flags().Bool("hide-own", false, "hide own lines delivered back by multicast/broadcast")
	c.cmd.Flags().Bool("no-history", false, "do not store received lines")
	return c.cmd
}

func (c *ChatCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	const op = "cli.chat"
	log := c.app.Log.With(slog.String("op", op))

	name, err := senderName(cmd, c.app)
	if err != nil {
		return err
	}
	hideOwn, err := cmd.Flags().GetBool("hide-own")
	if err != nil {
		return fmt.Errorf("flag --hide-own failed")
	}
	hideOwn = hideOwn || c.app.Config.HideOwn
	noHistory, err := cmd.Flags().GetBool("no-history")
	if err != nil {
		return fmt.Errorf("flag --no-history failed")
	}

	var sink communicator.Consumer = chat.NewPrinter(c.app.Out)
	if !noHistory {
		store, err := c.app.openHistory()
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				log.Warn("Failed to close history", sl.Err(err))
			}
		}()
		sink = chat.Fanout{sink, chat.NewRecorder(store, c.app.Log)}
	}
	if hideOwn {
		sink = chat.NewSelfFilter(name, sink)
	}

	n := communicator.NewNotifier(c.app.Config.NotifierBuffer, c.app.Log)
	comm, err := c.app.newCommunicator(n)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		c.readInput(ctx, comm, name)
	}()

	return c.app.runListener(ctx, comm, n, sink)
}

// readInput отправляет каждую введенную строку, пока не закончится ввод
func (c *ChatCommand) readInput(ctx context.Context, comm *communicator.Communicator, name string) {
	interactive := isTerminal(c.app.In)
	prompt := func() {
		if interactive {
			fmt.Fprint(c.app.Out, "> ")
		}
	}

	scanner := bufio.NewScanner(c.app.In)
	prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == quitCommand {
			return
		}
		if line != "" {
			comm.Send(name, line)
		}
		prompt()
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
