package cliplugins

import (
	"context"
	"fmt"
	"strings"

	"udpchat/internal/communicator"
	"udpchat/internal/util/logger/sl"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
)

type SendCommand struct {
	cmd *cobra.Command
	app *AppContext
}

func NewSendCommand(app *AppContext) *SendCommand {
	return &SendCommand{app: app}
}

func (s *SendCommand) Meta() *cobra.Command {
	if s.cmd != nil {
		return s.cmd
	}
	s.cmd = &cobra.Command{
		Use:   "send [text...]",
		Short: "Sends one chat line to everyone on the segment",
		Long:  "Sends one datagram \"<name>: <text>\". Delivery is not confirmed.",
		Annotations: map[string]string{
			cobra.BashCompOneRequiredFlag: "true",
		},
	}
	s.cmd.Flags().StringP("name", "n", "", "sender name")
	s.cmd.Flags().StringP("message", "m", "", "message text (default: remaining args)")
	return s.cmd
}

func (s *SendCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	name, err := senderName(cmd, s.app)
	if err != nil {
		return err
	}

	body, err := cmd.Flags().GetString("message")
	if err != nil {
		return fmt.Errorf("flag --message failed")
	}
	if body == "" {
		body = strings.Join(args, " ")
	}

	// Send не возвращает ошибок, собираем их через consumer.
	// Ошибки выбора интерфейса при создании не мешают отправке, только логируются.
	var (
		sending bool
		sendErr *multierror.Error
	)
	c, err := s.app.newCommunicator(communicator.Funcs{
		OnError: func(err error) {
			if !sending {
				s.app.Log.Warn("Interface selection fell back to default", sl.Err(err))
				return
			}
			sendErr = multierror.Append(sendErr, err)
		},
	})
	if err != nil {
		return err
	}

	sending = true
	c.Send(name, body)
	return sendErr.ErrorOrNil()
}

func senderName(cmd *cobra.Command, app *AppContext) (string, error) {
	name, err := cmd.Flags().GetString("name")
	if err != nil {
		return "", fmt.Errorf("flag --name failed")
	}
	if name == "" {
		name = app.Config.Name
	}
	if name == "" {
		return "", ErrNameRequired
	}
	return name, nil
}
