package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	cliplugins "udpchat/internal/cli_plugins"
	"udpchat/internal/util/logger/handlers/slogpretty"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	// Создаем контекст с отменой для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Создаем канал для перехвата сигналов ОС
	signalChanel := make(chan os.Signal, 1)
	signal.Notify(signalChanel, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-signalChanel
		slog.Info("Shutdown signal received", slog.Any("signal", sig))
		cancel()
	}()

	app := cliplugins.NewAppContext(os.Stdin, os.Stdout)
	c := cliplugins.NewCLI(app, setupLogger)

	if err := c.Run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "udpchat:", err)
		os.Exit(1)
	}
}

// логи идут в stderr, stdout занят строками чата
func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = setupPrettySlog()
	}

	slog.SetDefault(log)
	return log
}

func setupPrettySlog() *slog.Logger {
	opts := slogpretty.PrettyHandlerOptions{
		SlogOpts: &slog.HandlerOptions{
			Level: slog.LevelDebug,
		},
	}

	handler := opts.NewPrettyHandler(os.Stderr)

	return slog.New(handler)
}
