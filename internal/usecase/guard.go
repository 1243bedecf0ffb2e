package usecase

import (
	"errors"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/metrics"
	"github.com/eliteGoblin/focusd/focus_guard/internal/overlay"
)

// Overlay is the part of overlay.Controller the guard drives.
type Overlay interface {
	Show(surfaceID string) (overlay.Outcome, error)
	Locked(surfaceID string) bool
}

// Guard wires engine decisions into the overlay. It is the only place that
// consults the debounce lock.
type Guard struct {
	engine  *Engine
	overlay Overlay
	events  domain.LogSink
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewGuard creates a guard.
func NewGuard(engine *Engine, ov Overlay, events domain.LogSink, m *metrics.Metrics, logger *zap.Logger) *Guard {
	return &Guard{
		engine:  engine,
		overlay: ov,
		events:  events,
		metrics: m,
		logger:  logger,
	}
}

// HandleEvent decides on event and interrupts the surface when it is blocked.
// Failures are logged and never returned.
func (g *Guard) HandleEvent(event domain.ForegroundEvent) domain.BlockDecision {
	d := g.engine.Decide(event)
	if !d.Blocked() {
		return d
	}

	if g.overlay.Locked(d.SurfaceID) {
		g.logger.Debug("block suppressed by debounce lock", zap.String("surface", d.SurfaceID))
		g.events.Append("Debounced: " + d.SurfaceID)
		g.metrics.RecordDebounced()
		return d
	}

	outcome, err := g.overlay.Show(d.SurfaceID)
	g.metrics.RecordOverlay(string(outcome))
	if err != nil {
		if errors.Is(err, domain.ErrPermissionDenied) {
			g.logger.Error("overlay permission missing", zap.String("surface", d.SurfaceID), zap.Error(err))
		} else {
			g.logger.Warn("overlay show failed", zap.String("surface", d.SurfaceID), zap.Error(err))
		}
	}
	return d
}
