package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/api"
	"github.com/eliteGoblin/focusd/focus_guard/internal/daemon"
	"github.com/eliteGoblin/focusd/focus_guard/internal/infra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the decision engine on a stream of host events",
	Long: `Reads JSON lines from stdin (or --events) and evaluates each one:

  {"type":"foreground","surface_id":"com.android.chrome","content":{...}}
  {"type":"dismiss"}
  {"type":"interrupt"}

The event log, status and metrics are served on --http.`,
	RunE: runRun,
}

var (
	eventsPath string
	httpAddr   string
)

func init() {
	runCmd.Flags().StringVar(&eventsPath, "events", "", "Read events from file instead of stdin")
	runCmd.Flags().StringVar(&httpAddr, "http", "", "API listen address (empty uses config, \"off\" disables)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, dataDir, err := loadConfig()
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogPath(dataDir), cfg.Log.Level)
	defer logger.Sync()

	s, closeStore, err := openStore(cfg, dataDir)
	if err != nil {
		logger.Error("failed to open preference store", zap.Error(err))
		return err
	}
	defer closeStore()

	var in io.Reader = os.Stdin
	if eventsPath != "" {
		f, err := os.Open(eventsPath)
		if err != nil {
			return fmt.Errorf("failed to open events: %w", err)
		}
		defer f.Close()
		in = f
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var runner *daemon.Runner
	a := buildApp(cfg, s, cmd.OutOrStdout(), func() { runner.Inject(cfg.HomeSurfaceID) }, logger)
	runner = daemon.NewRunner(
		daemon.RunnerConfig{HeartbeatInterval: cfg.HeartbeatInterval, Version: Version},
		a.guard,
		a.engine,
		a.service,
		a.overlay,
		a.host,
		a.content,
		s,
		logger,
	)

	if cfg.Store.Watch {
		w, err := infra.NewPrefsWatcher(s.Path(), 0, logger)
		if err != nil {
			logger.Warn("preference watcher disabled", zap.Error(err))
		} else {
			go func() {
				if err := w.Run(ctx, runner.NotifyPolicyChanged); err != nil {
					logger.Warn("preference watcher stopped", zap.Error(err))
				}
			}()
		}
	}

	addr := cfg.HTTPAddr
	if httpAddr != "" {
		addr = httpAddr
	}
	if addr != "" && addr != "off" {
		srv := api.NewServer(addr, a.service, a.metrics.Handler(), logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("api server failed", zap.Error(err))
			}
		}()
	}

	events := make(chan daemon.Event)
	go func() {
		if err := daemon.ReadEvents(ctx, in, events, logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("event stream ended with error", zap.Error(err))
		}
	}()

	err = runner.Run(ctx, events)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
