package cliplugins

import (
	"fmt"
	"log/slog"

	"udpchat/internal/config"
	"udpchat/pkg/cli"

	"github.com/spf13/cobra"
)

// NewCLI собирает корневую команду и все команды чата.
// setupLogger вызывается после загрузки конфигурации.
func NewCLI(app *AppContext, setupLogger func(env string) *slog.Logger) *cli.CLI {
	c := cli.NewCLI("udpchat", "Best-effort LAN chat over UDP")

	root := c.Root()
	flags := root.PersistentFlags()
	flags.String("config", "", "path to config file (or CONFIG_PATH)")
	flags.String("mode", "", "transport mode: multicast, broadcast or unicast")
	flags.String("address", "", "multicast group, broadcast or peer address")
	flags.Int("port", 0, "UDP port")
	flags.String("history", "", "history database path")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		path, err := cmd.Flags().GetString("config")
		if err != nil {
			return fmt.Errorf("flag --config failed")
		}

		cfg, err := config.Load(config.ResolvePath(path))
		if err != nil {
			return err
		}
		if err := applyOverrides(cmd, cfg); err != nil {
			return err
		}

		app.Config = cfg
		app.Log = setupLogger(cfg.Env)
		return nil
	}

	c.RegisterPlugin(NewSendCommand(app))
	c.RegisterPlugin(NewListenCommand(app))
	c.RegisterPlugin(NewChatCommand(app))
	c.RegisterPlugin(NewHistoryCommand(app))
	c.RegisterPlugin(NewInterfacesCommand(app))

	return c
}

// applyOverrides: флаги командной строки важнее файла и окружения
func applyOverrides(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("mode") {
		cfg.Transport.Mode, _ = flags.GetString("mode")
	}
	if flags.Changed("address") {
		cfg.Transport.Address, _ = flags.GetString("address")
	}
	if flags.Changed("port") {
		cfg.Transport.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("history") {
		cfg.HistoryPath, _ = flags.GetString("history")
	}

	return cfg.Validate()
}
