package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ailevels/internal/config"
	"github.com/felixgeelhaar/ailevels/internal/daemon"
	mcpserver "github.com/felixgeelhaar/ailevels/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the level tools over MCP (stdio, or HTTP with --http)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// stdout carries the protocol; logs go to the home log dir or nowhere
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		if homeDir, err := config.EnsureHomeDir(); err == nil {
			f, err := os.OpenFile(filepath.Join(homeDir, "logs", "levels-mcp.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err == nil {
				defer f.Close()
				logger = slog.New(slog.NewJSONHandler(f, nil))
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := daemon.NewApp(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		srv := mcpserver.NewServer(mcpserver.Config{Service: app.Service, Version: Version})
		if addr, _ := cmd.Flags().GetString("http"); addr != "" {
			logger.Info("serving MCP over HTTP", "addr", addr)
			return srv.ServeHTTP(ctx, addr)
		}
		return srv.ServeStdio(ctx)
	},
}

func init() {
	mcpCmd.Flags().String("http", "", "Serve MCP over HTTP on this address (e.g. 127.0.0.1:7434) instead of stdio")
}
