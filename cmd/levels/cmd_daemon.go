package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/ailevels/internal/config"
	"github.com/felixgeelhaar/ailevels/internal/daemon"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadLocalConfig()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.Daemon.Port = port
		}

		var level slog.Level
		if err := level.UnmarshalText([]byte(cfg.Daemon.LogLevel)); err != nil {
			level = slog.LevelInfo
		}
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		daemon.Version = Version

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return daemon.Run(ctx, cfg, logger)
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the daemon in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, err := resolveAddr(cmd)
		if err != nil {
			return err
		}
		client := newDaemonClient(addr)
		if client.healthy(cmd.Context()) {
			fmt.Println("✓ Daemon is already running")
			return nil
		}

		homeDir, err := config.EnsureHomeDir()
		if err != nil {
			return fmt.Errorf("setup home directory: %w", err)
		}
		levelsdPath, err := findDaemonBinary()
		if err != nil {
			return fmt.Errorf("find daemon binary: %w", err)
		}

		proc := exec.Command(levelsdPath)
		proc.Dir = homeDir
		configureDaemonProcess(proc)
		if err := proc.Start(); err != nil {
			return fmt.Errorf("start daemon: %w", err)
		}

		fmt.Print("Starting daemon...")
		for i := 0; i < 30; i++ {
			time.Sleep(100 * time.Millisecond)
			if client.healthy(cmd.Context()) {
				fmt.Println(" ✓")
				fmt.Printf("Daemon running at %s\n", addr)
				return nil
			}
			fmt.Print(".")
		}
		fmt.Println(" ✗")
		return fmt.Errorf("daemon failed to start (check logs with 'levels logs')")
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		homeDir, err := config.HomeDir()
		if err != nil {
			return err
		}
		pid, err := readPID(filepath.Join(homeDir, pidFile))
		if os.IsNotExist(err) {
			fmt.Println("Daemon is not running")
			return nil
		}
		if err != nil {
			return err
		}

		process, err := os.FindProcess(pid)
		if err != nil {
			return fmt.Errorf("find process: %w", err)
		}
		fmt.Print("Stopping daemon...")
		if err := process.Signal(syscall.SIGTERM); err != nil {
			return fmt.Errorf("send signal: %w", err)
		}

		addr, err := resolveAddr(cmd)
		if err != nil {
			return err
		}
		client := newDaemonClient(addr)
		for i := 0; i < 50; i++ {
			time.Sleep(100 * time.Millisecond)
			if !client.healthy(cmd.Context()) {
				fmt.Println(" ✓")
				return nil
			}
			fmt.Print(".")
		}
		fmt.Println(" ✗")
		return fmt.Errorf("daemon did not stop gracefully")
	},
}

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recent daemon logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		homeDir, err := config.HomeDir()
		if err != nil {
			return err
		}
		return tailFile(filepath.Join(homeDir, "logs", "levelsd.log"), 4096, cmd.OutOrStdout())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Override the configured port")
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse PID: %w", err)
	}
	return pid, nil
}

// tailFile prints roughly the last n bytes of path, starting at a line
// boundary.
func tailFile(path string, n int64, w io.Writer) error {
	file, err := os.Open(path)
	if os.IsNotExist(err) {
		fmt.Fprintln(w, "No log file found. Start the daemon first.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}
	offset := info.Size() - n
	if offset < 0 {
		offset = 0
	}
	if _, err := file.Seek(offset, 0); err != nil {
		return err
	}

	reader := bufio.NewReader(file)
	if offset > 0 {
		// skip the partial first line
		_, _ = reader.ReadString('\n')
	}
	scanner := bufio.NewScanner(reader)
	for scanner.Scan() {
		fmt.Fprintln(w, scanner.Text())
	}
	return scanner.Err()
}

// findDaemonBinary locates the levelsd binary
func findDaemonBinary() (string, error) {
	if path, err := exec.LookPath("levelsd"); err == nil {
		return path, nil
	}

	if self, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(self), "levelsd")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	for _, path := range []string{"/usr/local/bin/levelsd", "./levelsd", "./cmd/levelsd/levelsd"} {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("levelsd binary not found (build with 'go build ./cmd/levelsd')")
}
