// Command harnessd is the C4 daemon: it loads ambient configuration, opens
// the agent registry, and serves client requests over a local unix socket
// until it receives SIGINT/SIGTERM.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/speckit/harness/internal/config"
	"github.com/speckit/harness/internal/daemon"
	"github.com/speckit/harness/internal/integration/promptrender"
	"github.com/speckit/harness/internal/logging"
	"github.com/speckit/harness/internal/paths"
	"github.com/speckit/harness/internal/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "harnessd:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init(os.Stderr, parseLevel(cfg.LogLevel))
	ctx := logging.WithComponent(context.Background(), "harnessd")

	dataDir, err := paths.DaemonDataDir()
	if err != nil {
		return fmt.Errorf("resolve data dir: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	reg, err := daemon.OpenRegistry(filepath.Join(dataDir, "registry.json"))
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}

	renderer := promptrender.New(promptrender.DefaultConfig(), func(specSlug, specHash string) (string, bool) {
		for _, rec := range reg.List() {
			if rec.SpecSlug == specSlug && rec.SpecHash == specHash {
				return rec.ProjectDir, true
			}
		}
		return "", false
	})

	graceDelay := time.Duration(cfg.StopGraceSeconds) * time.Second
	if graceDelay <= 0 {
		graceDelay = 30 * time.Second
	}
	d := daemon.NewDaemon(reg, renderer, graceDelay)

	socketPath := cfg.SocketPath
	if socketPath == "" {
		socketPath, err = paths.SocketPath()
		if err != nil {
			return fmt.Errorf("resolve socket path: %w", err)
		}
	}

	server, err := daemon.NewServer(d, socketPath)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	tel := telemetry.New()
	defer tel.Close()
	tel.Capture("daemon_started", nil)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info(runCtx, "harnessd listening", "socket", socketPath)
	err = server.Serve(runCtx)
	tel.Capture("daemon_stopped", nil)
	logging.Info(runCtx, "harnessd stopped")
	return err
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
