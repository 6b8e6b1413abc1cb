package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/phoenix-mes/phoenix"
)

var (
	servePort     int
	serveDataPath string
	serveBroker   string
	serveTopic    string
)

var serveCommand = &cobra.Command{
	Use:   "serve",
	Short: "Run the monitor: MQTT ingestion plus the dashboard API",
	RunE:  runServe,
}

func init() {
	serveCommand.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides PHOENIX_PORT)")
	serveCommand.Flags().StringVar(&serveDataPath, "data", "", "Persistence path (overrides PHOENIX_DATA_PATH)")
	serveCommand.Flags().StringVar(&serveBroker, "broker", "", "MQTT broker URL (overrides PHOENIX_BROKER_URL)")
	serveCommand.Flags().StringVar(&serveTopic, "topic", "", "MQTT topic filter (overrides PHOENIX_TOPIC)")
	rootCmd.AddCommand(serveCommand)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	opts := []phoenix.Option{
		phoenix.WithLogger(logger),
		phoenix.WithVersion(version),
	}
	if servePort != 0 {
		opts = append(opts, phoenix.WithPort(servePort))
	}
	if serveDataPath != "" {
		opts = append(opts, phoenix.WithDataPath(serveDataPath))
	}
	if serveBroker != "" {
		opts = append(opts, phoenix.WithBrokerURL(serveBroker))
	}
	if serveTopic != "" {
		opts = append(opts, phoenix.WithTopic(serveTopic))
	}

	app, err := phoenix.New(opts...)
	if err != nil {
		return err
	}
	return app.Run(ctx)
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("PHOENIX_LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
