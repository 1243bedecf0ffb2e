// Package daemon runs the decision engine against a stream of host events.
package daemon

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/usecase"
)

// RunnerConfig holds runner configuration.
type RunnerConfig struct {
	HeartbeatInterval time.Duration
	Version           string
}

// DefaultRunnerConfig returns default runner configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		HeartbeatInterval: 30 * time.Second,
	}
}

// Acknowledger delivers a user acknowledgment to the overlay host.
type Acknowledger interface {
	Acknowledge() bool
}

// ContentSetter receives the content tree shipped with a foreground event.
type ContentSetter interface {
	Set(root domain.ContentNode)
}

// Closer tears the overlay down on shutdown.
type Closer interface {
	Close()
}

// Runner is the single goroutine that owns event evaluation. Policy reloads
// and injected events are funneled into the same loop.
type Runner struct {
	config   RunnerConfig
	guard    *usecase.Guard
	engine   *usecase.Engine
	service  *usecase.Service
	overlay  Closer
	ack      Acknowledger
	content  ContentSetter
	registry domain.InstanceRegistry
	logger   *zap.Logger

	injected chan domain.ForegroundEvent
	reloads  chan struct{}
}

// NewRunner creates a runner.
func NewRunner(
	config RunnerConfig,
	guard *usecase.Guard,
	engine *usecase.Engine,
	service *usecase.Service,
	overlay Closer,
	ack Acknowledger,
	content ContentSetter,
	registry domain.InstanceRegistry,
	logger *zap.Logger,
) *Runner {
	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultRunnerConfig().HeartbeatInterval
	}
	return &Runner{
		config:   config,
		guard:    guard,
		engine:   engine,
		service:  service,
		overlay:  overlay,
		ack:      ack,
		content:  content,
		registry: registry,
		logger:   logger,
		injected: make(chan domain.ForegroundEvent, 8),
		reloads:  make(chan struct{}, 1),
	}
}

// Run processes events until ctx is cancelled or events is closed.
func (r *Runner) Run(ctx context.Context, events <-chan Event) error {
	now := time.Now()
	instance := domain.Instance{
		PID:           os.Getpid(),
		Version:       r.config.Version,
		StartedAt:     now,
		LastHeartbeat: now,
	}
	if r.registry != nil {
		if err := r.registry.Register(instance); err != nil {
			// Status reporting degrades; evaluation does not depend on it.
			r.logger.Warn("failed to register instance", zap.Error(err))
		}
	}

	r.logger.Info("focusguard runner started",
		zap.Int("pid", instance.PID),
		zap.String("version", instance.Version))
	r.service.Connected()
	r.engine.Refresh()

	heartbeatTicker := time.NewTicker(r.config.HeartbeatInterval)
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.shutdown()
			return ctx.Err()

		case ev, ok := <-events:
			if !ok {
				r.shutdown()
				return nil
			}
			r.handle(ev)

		case ev := <-r.injected:
			r.guard.HandleEvent(ev)

		case <-r.reloads:
			snap, degraded := r.engine.Refresh()
			r.logger.Info("policy reloaded",
				zap.Bool("session_active", snap.SessionActive),
				zap.Int("blocked_apps", len(snap.BlockedApps)),
				zap.Int("blocked_browsers", len(snap.BlockedBrowsers)),
				zap.Int("degraded", degraded))

		case <-heartbeatTicker.C:
			if r.registry == nil {
				continue
			}
			if err := r.registry.Heartbeat(time.Now()); err != nil {
				r.logger.Warn("failed to update heartbeat", zap.Error(err))
			}
		}
	}
}

// Inject queues a foreground event produced by the host itself, such as the
// launcher after returning home. It never blocks; a full queue drops the event.
func (r *Runner) Inject(surfaceID string) {
	select {
	case r.injected <- domain.ForegroundEvent{SurfaceID: surfaceID, Timestamp: time.Now()}:
	default:
		r.logger.Warn("dropping injected event", zap.String("surface", surfaceID))
	}
}

// NotifyPolicyChanged asks the loop to refresh the snapshot. Coalesces.
func (r *Runner) NotifyPolicyChanged() {
	select {
	case r.reloads <- struct{}{}:
	default:
	}
}

func (r *Runner) handle(ev Event) {
	switch ev.Type {
	case EventForeground:
		if ev.Content != nil {
			r.content.Set(ev.Content)
		} else {
			r.content.Set(nil)
		}
		r.guard.HandleEvent(domain.ForegroundEvent{SurfaceID: ev.SurfaceID, Timestamp: ev.Timestamp})

	case EventDismiss:
		if !r.ack.Acknowledge() {
			r.logger.Debug("dismiss without visible overlay")
		}

	case EventInterrupt:
		r.service.Interrupted()
	}
}

func (r *Runner) shutdown() {
	r.logger.Info("focusguard runner stopping")
	r.overlay.Close()
	r.service.Destroyed()
}
