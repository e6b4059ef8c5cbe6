package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ailevels/internal/config"
)

// Version is set at build time via ldflags
var Version = "dev"

const pidFile = "levelsd.pid"

var rootCmd = &cobra.Command{
	Use:   "levels",
	Short: "AI literacy level assessments",
	Long: `levels drives the AI Levels daemon: four graded levels of AI literacy
questions, generated and graded by a language model, with per-session
progress that unlocks each level after the previous one is passed.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("addr", "", "Daemon address (default from config, e.g. http://127.0.0.1:7433)")

	rootCmd.AddCommand(serveCmd, startCmd, stopCmd, logsCmd)
	rootCmd.AddCommand(generateCmd, statusCmd, thresholdsCmd)
	rootCmd.AddCommand(mcpCmd, eventsCmd)
}

// resolveAddr returns the --addr flag if set, otherwise the address the
// configured daemon listens on.
func resolveAddr(cmd *cobra.Command) (string, error) {
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		return addr, nil
	}
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return daemonAddr(cfg), nil
}

func daemonAddr(cfg *config.LocalConfig) string {
	bind := cfg.Daemon.Bind
	if bind == "" || bind == "0.0.0.0" {
		bind = "127.0.0.1"
	}
	return fmt.Sprintf("http://%s:%d", bind, cfg.Daemon.Port)
}
