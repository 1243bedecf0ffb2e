package main

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/focus_guard/internal/browser"
	"github.com/eliteGoblin/focusd/focus_guard/internal/clock"
	"github.com/eliteGoblin/focusd/focus_guard/internal/config"
	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/eventlog"
	"github.com/eliteGoblin/focusd/focus_guard/internal/infra"
	"github.com/eliteGoblin/focusd/focus_guard/internal/metrics"
	"github.com/eliteGoblin/focusd/focus_guard/internal/overlay"
	"github.com/eliteGoblin/focusd/focus_guard/internal/policy"
	"github.com/eliteGoblin/focusd/focus_guard/internal/usecase"
)

// store is what every backend provides.
type store interface {
	domain.PolicyStore
	domain.PolicyWriter
	domain.InstanceRegistry
	Path() string
}

// loadConfig applies flag overrides on top of the config file.
func loadConfig() (*config.Config, string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, "", err
	}
	if storeKind != "" {
		cfg.Store.Kind = storeKind
	}
	if dataDirFlag != "" {
		cfg.DataDir = dataDirFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}

	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = infra.DetectExecMode().DataDir
	}
	return cfg, dataDir, nil
}

// openStore opens the configured preference backend.
func openStore(cfg *config.Config, dataDir string) (store, func() error, error) {
	switch cfg.Store.Kind {
	case config.StoreEncrypted:
		key, err := infra.EnsureKey(infra.NewFileKeyProvider(dataDir))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load store key: %w", err)
		}
		s, err := infra.NewEncryptedStore(dataDir, key)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return infra.NewFilePreferences(dataDir), func() error { return nil }, nil
	}
}

// app is the assembled engine.
type app struct {
	events   *eventlog.Log
	engine   *usecase.Engine
	overlay  *overlay.Controller
	guard    *usecase.Guard
	service  *usecase.Service
	host     *infra.ConsoleOverlay
	content  *infra.SnapshotContent
	notifier *infra.StatusNotifier
	metrics  *metrics.Metrics
}

// buildApp wires the engine around s. onHome is called after the user is
// sent back to the neutral screen.
func buildApp(cfg *config.Config, s domain.PolicyStore, out io.Writer, onHome func(), logger *zap.Logger) *app {
	m := metrics.New()
	events := eventlog.New(logger.Named("events"))
	content := infra.NewSnapshotContent()
	notifier := infra.NewStatusNotifier(logger)

	engine := usecase.NewEngine(
		usecase.EngineConfig{SelfID: cfg.SelfID},
		policy.NewWhitelist(),
		policy.NewLoader(s, logger),
		browser.NewExtractorWithBudget(cfg.ExtractorBudget, logger),
		content,
		notifier,
		events,
		m,
		logger,
	)

	host := infra.NewConsoleOverlay(out)
	controller := overlay.NewController(
		overlay.Config{Message: cfg.Overlay.Message, DebounceDelay: cfg.Overlay.DebounceDelay},
		host,
		infra.NewConsoleHome(out, onHome),
		clock.New(),
		events,
		logger,
	)

	return &app{
		events:   events,
		engine:   engine,
		overlay:  controller,
		guard:    usecase.NewGuard(engine, controller, events, m, logger),
		service:  usecase.NewService(engine, controller, events),
		host:     host,
		content:  content,
		notifier: notifier,
		metrics:  m,
	}
}

// createLogger builds the daemon logger writing to a file.
func createLogger(path, level string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level != "" {
		if lvl, err := zap.ParseAtomicLevel(level); err == nil {
			cfg.Level = lvl
		}
	}

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

// cliLogger is used by one-shot commands.
func cliLogger() *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}
