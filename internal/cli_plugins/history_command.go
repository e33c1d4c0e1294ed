package cliplugins

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

type HistoryCommand struct {
	cmd *cobra.Command
	app *AppContext
}

func NewHistoryCommand(app *AppContext) *HistoryCommand {
	return &HistoryCommand{app: app}
}

func (h *HistoryCommand) Meta() *cobra.Command {
	if h.cmd != nil {
		return h.cmd
	}
	h.cmd = &cobra.Command{
		Use:   "history",
		Short: "Shows chat lines received by listen/chat",
	}
	h.cmd.Flags().IntP("limit", "l", 20, "number of last lines, 0 for all")
	h.cmd.Flags().Bool("clear", false, "delete stored history")
	return h.cmd
}

func (h *HistoryCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("flag --limit failed")
	}
	clearAll, err := cmd.Flags().GetBool("clear")
	if err != nil {
		return fmt.Errorf("flag --clear failed")
	}

	store, err := h.app.openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	if clearAll {
		return store.Clear(ctx)
	}

	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Fprintf(h.app.Out, "[%s] %s\n", r.ReceivedAt.Format("2006-01-02 15:04:05"), r.Text)
	}
	return nil
}
