// Package usecase contains application business logic.
package usecase

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/browser"
	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
	"github.com/eliteGoblin/focusd/focus_guard/internal/metrics"
	"github.com/eliteGoblin/focusd/focus_guard/internal/policy"
)

// EngineConfig holds decision engine configuration.
type EngineConfig struct {
	// SelfID is the host application's own surface id. It is never evaluated.
	SelfID string
}

// Engine decides, for each foreground event, whether the surface is blocked.
// Decide is not safe for concurrent use; events arrive from one goroutine.
type Engine struct {
	config    EngineConfig
	whitelist *policy.Whitelist
	loader    *policy.Loader
	extractor domain.URLExtractor
	content   domain.ContentSource
	notifier  domain.NotificationHost
	events    domain.LogSink
	metrics   *metrics.Metrics
	logger    *zap.Logger

	lastSeen string

	mu       sync.RWMutex
	snapshot domain.PolicySnapshot
}

// NewEngine creates a decision engine.
func NewEngine(
	config EngineConfig,
	whitelist *policy.Whitelist,
	loader *policy.Loader,
	extractor domain.URLExtractor,
	content domain.ContentSource,
	notifier domain.NotificationHost,
	events domain.LogSink,
	m *metrics.Metrics,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		config:    config,
		whitelist: whitelist,
		loader:    loader,
		extractor: extractor,
		content:   content,
		notifier:  notifier,
		events:    events,
		metrics:   m,
		logger:    logger,
		snapshot:  domain.EmptySnapshot(),
	}
}

// Decide evaluates one event. The rules run in a fixed order and the first
// that applies wins:
//
//  1. same surface as the previous event: Duplicate, nothing else happens
//  2. the host application itself: SelfApp
//  3. critical whitelist: CriticalWhitelist, whatever the policy says
//  4. shield on and a shielded prefix: ShieldProtected
//  5. session on and an explicitly blocked app: Block ExplicitApp
//  6. session on, a blocked browser showing a blocked site: Block BlockedBrowserURL
//  7. Default
//
// The policy snapshot is rebuilt after the duplicate check. Every
// non-duplicate evaluation appends exactly one entry to the event log.
func (e *Engine) Decide(event domain.ForegroundEvent) domain.BlockDecision {
	id := event.SurfaceID
	if id == e.lastSeen {
		d := domain.BlockDecision{Action: domain.ActionAllow, Reason: domain.ReasonDuplicate, SurfaceID: id}
		e.metrics.RecordDecision(d)
		return d
	}
	e.lastSeen = id

	snap, degraded := e.Refresh()
	d := e.evaluate(id, snap)

	e.metrics.RecordDecision(d)
	e.events.Append(summarize(d, snap, degraded))

	if d.Blocked() {
		e.logger.Info("blocking surface",
			zap.String("surface", id),
			zap.String("reason", string(d.Reason)),
			zap.String("url", d.URL))
	} else {
		e.logger.Debug("allowing surface",
			zap.String("surface", id),
			zap.String("reason", string(d.Reason)))
	}
	return d
}

func (e *Engine) evaluate(id string, snap domain.PolicySnapshot) domain.BlockDecision {
	allow := func(r domain.Reason) domain.BlockDecision {
		return domain.BlockDecision{Action: domain.ActionAllow, Reason: r, SurfaceID: id}
	}

	if e.config.SelfID != "" && id == e.config.SelfID {
		return allow(domain.ReasonSelfApp)
	}

	if e.whitelist.IsCritical(id) {
		return allow(domain.ReasonCriticalWhitelist)
	}

	if snap.SystemShieldEnabled {
		if _, ok := e.whitelist.ShieldPrefix(id); ok {
			return allow(domain.ReasonShieldProtected)
		}
	}

	if !snap.SessionActive {
		return allow(domain.ReasonDefault)
	}

	if snap.BlockedApps.Contains(id) {
		return domain.BlockDecision{Action: domain.ActionBlock, Reason: domain.ReasonExplicitApp, SurfaceID: id}
	}

	if snap.BlockedBrowsers.Contains(id) {
		url, ok := e.currentURL(id)
		if ok {
			if entry, hit := browser.MatchBlocked(url, snap.BlockedWebsites); hit {
				return domain.BlockDecision{
					Action:    domain.ActionBlock,
					Reason:    domain.ReasonBlockedBrowserURL,
					SurfaceID: id,
					URL:       url,
					Matched:   entry,
				}
			}
		}
		d := allow(domain.ReasonDefault)
		d.URL = url
		return d
	}

	return allow(domain.ReasonDefault)
}

// Refresh reloads the policy snapshot and mirrors the counts to the
// notification host. It returns the snapshot and the number of degraded values.
func (e *Engine) Refresh() (domain.PolicySnapshot, int) {
	snap, problems := e.loader.Load()

	e.mu.Lock()
	e.snapshot = snap
	e.mu.Unlock()

	e.metrics.RecordSnapshot(snap, len(problems))

	if e.notifier != nil {
		status := domain.ServiceStatus{
			BlockedApps:     len(snap.BlockedApps),
			BlockedBrowsers: len(snap.BlockedBrowsers),
			SessionActive:   snap.SessionActive,
		}
		if err := e.notifier.UpdateStatus(status); err != nil {
			e.logger.Warn("failed to update notification", zap.Error(err))
		}
	}
	return snap, len(problems)
}

// Snapshot returns the policy snapshot from the latest refresh.
func (e *Engine) Snapshot() domain.PolicySnapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}

// currentURL extracts the address shown by the foreground browser. A missing
// content tree or a misbehaving node implementation yields no URL.
func (e *Engine) currentURL(surfaceID string) (url string, ok bool) {
	if e.content == nil || e.extractor == nil {
		e.metrics.RecordExtraction("unavailable")
		return "", false
	}

	root, err := e.content.ActiveRoot()
	if err != nil || root == nil {
		e.logger.Debug("content tree unavailable",
			zap.String("surface", surfaceID),
			zap.Error(err))
		e.metrics.RecordExtraction("unavailable")
		return "", false
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("url extraction panicked",
				zap.String("surface", surfaceID),
				zap.Any("panic", r))
			e.metrics.RecordExtraction("unavailable")
			url, ok = "", false
		}
	}()

	url, ok = e.extractor.Extract(root, surfaceID)
	if ok {
		e.metrics.RecordExtraction("found")
	} else {
		e.metrics.RecordExtraction("none")
	}
	return url, ok
}

// summarize renders the audit line for one evaluation.
func summarize(d domain.BlockDecision, snap domain.PolicySnapshot, degraded int) string {
	session := "OFF"
	if snap.SessionActive {
		session = "ON"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[Session: %s] [App: %t] [Browser: %t] %s -> %s (%s)",
		session,
		snap.BlockedApps.Contains(d.SurfaceID),
		snap.BlockedBrowsers.Contains(d.SurfaceID),
		d.SurfaceID, d.Action, d.Reason)
	if d.URL != "" {
		fmt.Fprintf(&b, " url=%s", d.URL)
	}
	if d.Matched != "" {
		fmt.Fprintf(&b, " matched=%s", d.Matched)
	}
	if degraded > 0 {
		fmt.Fprintf(&b, " [degraded values: %d]", degraded)
	}
	return b.String()
}
