package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/defistate/position-ledger-go/cmd/client/config"
	"github.com/defistate/position-ledger-go/streams/jsonrpc/client"
	"github.com/defistate/position-ledger-go/streams/jsonrpc/stateops"
)

func main() {
	root := &cobra.Command{
		Use:          "ledger-client",
		Short:        "Position ledger state stream client",
		SilenceUsage: true,
		RunE:         run,
	}

	root.Flags().String("config", "", "config file path")
	root.Flags().String("url", "", "state stream websocket URL")
	root.Flags().Uint("buffer-size", 100, "state channel buffer size")
	root.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	rootLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	// Cancel when the OS sends an interrupt (Ctrl+C) or termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ops, err := stateops.NewStateOps(rootLogger, prometheus.DefaultRegisterer)
	if err != nil {
		return fmt.Errorf("initialize state ops: %w", err)
	}

	streamClient, err := client.NewClient(
		ctx,
		client.Config{
			URL:              cfg.StateStreamURL,
			Logger:           rootLogger.With("component", "jsonrpc-client"),
			BufferSize:       cfg.BufferSize,
			StatePatcher:     ops.Patch,
			StateDecoder:     ops.DecodeStateJSON,
			StateDiffDecoder: ops.DecodeStateDiffJSON,
		},
	)
	if err != nil {
		return fmt.Errorf("initialize client: %w", err)
	}

	for {
		select {
		case state := <-streamClient.State():
			rootLogger.Info("state update",
				"sequence", state.Summary.Sequence,
				"operations", state.Summary.Operations,
				"components", len(state.Components))
		case err := <-streamClient.Err():
			rootLogger.Error("Fatal client error", "error", err)
			return err
		case <-ctx.Done():
			return nil
		}
	}
}

func parseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
