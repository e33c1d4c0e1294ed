package cliplugins

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"udpchat/internal/transport"

	"github.com/spf13/cobra"
)

type InterfacesCommand struct {
	cmd *cobra.Command
	app *AppContext
}

func NewInterfacesCommand(app *AppContext) *InterfacesCommand {
	return &InterfacesCommand{app: app}
}

func (i *InterfacesCommand) Meta() *cobra.Command {
	if i.cmd != nil {
		return i.cmd
	}
	i.cmd = &cobra.Command{
		Use:   "interfaces",
		Short: "Lists network interfaces and the one chosen for the multicast group",
	}
	return i.cmd
}

func (i *InterfacesCommand) Execute(ctx context.Context, cmd *cobra.Command, args []string) error {
	src := i.app.Source

	ifaces, err := src.Interfaces()
	if err != nil {
		return fmt.Errorf("list interfaces: %w", err)
	}
	for _, iface := range ifaces {
		addrs, err := src.Addrs(iface)
		if err != nil {
			fmt.Fprintf(i.app.Out, "%-12s %-30s error: %v\n", iface.Name, iface.Flags, err)
			continue
		}
		list := make([]string, 0, len(addrs))
		for _, a := range addrs {
			list = append(list, a.String())
		}
		fmt.Fprintf(i.app.Out, "%-12s %-30s %s\n", iface.Name, iface.Flags, strings.Join(list, ", "))
	}

	discovered, err := transport.DiscoverInterface(src, nil)
	switch {
	case err == nil:
		fmt.Fprintf(i.app.Out, "\nlocal host address is on: %s\n", discovered.Name)
	case errors.Is(err, transport.ErrNoMatchingInterface):
		fmt.Fprintf(i.app.Out, "\nlocal host address is on no interface, default %q is used\n", i.app.Config.Transport.DefaultInterface)
	default:
		fmt.Fprintf(i.app.Out, "\ndiscovery failed: %v\n", err)
	}
	return nil
}
