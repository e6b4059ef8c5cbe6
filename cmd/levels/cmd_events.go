package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ailevels/internal/assessment"
	"github.com/felixgeelhaar/ailevels/internal/config"
	"github.com/felixgeelhaar/ailevels/internal/events"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect level completion events",
}

var eventsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print LevelCompleted events as they arrive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		url := cfg.Events.AMQPURL
		if u, _ := cmd.Flags().GetString("url"); u != "" {
			url = u
		}
		workers, _ := cmd.Flags().GetInt("workers")

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
		conn, err := events.Dial(url, cfg.Events.Queue, logger)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer conn.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		consumer := events.NewConsumer(conn, printEvent(cmd.OutOrStdout()), events.ConsumerConfig{Workers: workers}, logger)
		if err := consumer.Start(ctx); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Waiting for events on %s (Ctrl-C to stop)\n", conn.Queue())

		<-ctx.Done()
		consumer.Stop()
		return nil
	},
}

func init() {
	eventsTailCmd.Flags().String("url", "", "AMQP URL (default from config)")
	eventsTailCmd.Flags().Int("workers", 1, "Concurrent consumers")
	eventsCmd.AddCommand(eventsTailCmd)
}

// printEvent writes one JSON line per event.
func printEvent(w io.Writer) events.Handler {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(_ context.Context, ev assessment.LevelCompleted) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(ev)
	}
}
