// Package overlay drives the full-screen interruption and owns the debounce
// lock that keeps a just-dismissed surface from being blocked again at once.
package overlay

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// DefaultMessage is the text shown on the interruption overlay.
const DefaultMessage = "This application is restricted to help you stay in the flow.\n\nYou're doing great!"

// DefaultDebounceDelay is how long the lock outlives a dismissal.
const DefaultDebounceDelay = time.Second

// Config holds overlay controller configuration.
type Config struct {
	Message       string
	DebounceDelay time.Duration
}

// DefaultConfig returns the default overlay configuration.
func DefaultConfig() Config {
	return Config{
		Message:       DefaultMessage,
		DebounceDelay: DefaultDebounceDelay,
	}
}

// Outcome describes what a Show call did.
type Outcome string

const (
	OutcomeShown          Outcome = "shown"
	OutcomeAlreadyShowing Outcome = "already_showing"
	OutcomeFailed         Outcome = "failed"
)

// Controller is the Hidden/Showing state machine around an OverlayHost.
// Host callbacks and the release timer may run on other goroutines; the
// mutex is never held while calling into the host or home navigator.
type Controller struct {
	mu        sync.Mutex
	state     domain.OverlayState
	lock      domain.DebounceLock
	gen       uint64 // bumped by every show attempt; stale callbacks compare against it
	onDismiss func()
	release   domain.Timer

	config Config
	host   domain.OverlayHost
	home   domain.HomeNavigator
	clock  domain.Clock
	events domain.LogSink
	logger *zap.Logger
}

// NewController creates a controller in the Hidden phase.
func NewController(
	config Config,
	host domain.OverlayHost,
	home domain.HomeNavigator,
	clock domain.Clock,
	events domain.LogSink,
	logger *zap.Logger,
) *Controller {
	if config.Message == "" {
		config.Message = DefaultMessage
	}
	if config.DebounceDelay <= 0 {
		config.DebounceDelay = DefaultDebounceDelay
	}
	return &Controller{
		state:  domain.OverlayState{Phase: domain.PhaseHidden},
		config: config,
		host:   host,
		home:   home,
		clock:  clock,
		events: events,
		logger: logger,
	}
}

// Show interrupts surfaceID. It is a no-op while another overlay is showing.
// A successful or failed attempt both install the debounce lock for surfaceID.
func (c *Controller) Show(surfaceID string) (Outcome, error) {
	c.mu.Lock()
	if c.state.Phase == domain.PhaseShowing {
		current := c.state.BlockedSurfaceID
		c.mu.Unlock()
		c.logger.Debug("overlay already showing",
			zap.String("showing", current),
			zap.String("requested", surfaceID))
		c.events.Append(fmt.Sprintf("Overlay already showing for %s, ignoring %s", current, surfaceID))
		return OutcomeAlreadyShowing, nil
	}

	c.gen++
	gen := c.gen
	c.stopReleaseLocked()
	c.lock = domain.DebounceLock{SurfaceID: surfaceID}
	c.state = domain.OverlayState{Phase: domain.PhaseShowing, BlockedSurfaceID: surfaceID}
	onDismiss := c.dismissOnce(gen)
	c.onDismiss = onDismiss
	c.mu.Unlock()

	if err := c.host.Show(c.config.Message, onDismiss); err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.state = domain.OverlayState{Phase: domain.PhaseHidden}
			c.onDismiss = nil
			c.expireLocked(gen)
		}
		c.mu.Unlock()

		c.logger.Warn("failed to show overlay",
			zap.String("surface", surfaceID),
			zap.Error(err))
		c.events.Append(fmt.Sprintf("Overlay failed for %s: %v", surfaceID, err))
		return OutcomeFailed, err
	}

	c.mu.Lock()
	live := c.gen == gen && c.state.Phase == domain.PhaseShowing
	c.mu.Unlock()
	if !live {
		// Acknowledged or closed before the host returned.
		c.logger.Debug("overlay gone before show returned", zap.String("surface", surfaceID))
		return OutcomeShown, nil
	}

	c.logger.Info("overlay shown", zap.String("surface", surfaceID))
	c.events.Append("Overlay shown for: " + surfaceID)
	return OutcomeShown, nil
}

// Dismiss is the user acknowledgment entry point for callers that do not go
// through the host callback. It removes the view and then behaves exactly
// like the callback passed to the host.
func (c *Controller) Dismiss() {
	c.mu.Lock()
	onDismiss := c.onDismiss
	c.mu.Unlock()
	if onDismiss == nil {
		return
	}

	if err := c.host.Dismiss(); err != nil {
		c.logger.Warn("failed to remove overlay", zap.Error(err))
	}
	onDismiss()
}

// Close removes a visible overlay on shutdown without navigating home.
func (c *Controller) Close() {
	c.mu.Lock()
	showing := c.state.Phase == domain.PhaseShowing
	surface := c.state.BlockedSurfaceID
	c.gen++
	c.state = domain.OverlayState{Phase: domain.PhaseHidden}
	c.lock = domain.DebounceLock{}
	c.onDismiss = nil
	c.stopReleaseLocked()
	c.mu.Unlock()

	if !showing {
		return
	}
	if err := c.host.Dismiss(); err != nil {
		c.logger.Warn("failed to remove overlay on close", zap.Error(err))
	}
	c.events.Append("Overlay removed on shutdown: " + surface)
}

// Locked reports whether the debounce lock currently covers surfaceID.
func (c *Controller) Locked(surfaceID string) bool {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lock.Holds(surfaceID, now)
}

// State returns a copy of the overlay state.
func (c *Controller) State() domain.OverlayState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// DebounceLock returns a copy of the current lock.
func (c *Controller) DebounceLock() domain.DebounceLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lock
}

// dismissOnce builds the host callback for show attempt gen. Only the first
// invocation has any effect.
func (c *Controller) dismissOnce(gen uint64) func() {
	var once sync.Once
	return func() {
		once.Do(func() { c.acknowledge(gen) })
	}
}

// acknowledge hides the overlay, starts the lock expiry and sends the user home.
func (c *Controller) acknowledge(gen uint64) {
	c.mu.Lock()
	if c.gen != gen || c.state.Phase != domain.PhaseShowing {
		c.mu.Unlock()
		return
	}
	surface := c.state.BlockedSurfaceID
	c.state = domain.OverlayState{Phase: domain.PhaseHidden}
	c.onDismiss = nil
	c.expireLocked(gen)
	c.mu.Unlock()

	c.logger.Info("overlay dismissed", zap.String("surface", surface))
	c.events.Append("User dismissed overlay, returned to home: " + surface)

	// Home navigation may fire a foreground event synchronously; the lock
	// already carries its expiry by now.
	if err := c.home.ReturnToNeutralScreen(); err != nil {
		c.logger.Warn("failed to return to neutral screen", zap.Error(err))
		c.events.Append(fmt.Sprintf("Return to home failed: %v", err))
	}
}

// expireLocked gives the lock its expiry and schedules its release.
func (c *Controller) expireLocked(gen uint64) {
	c.lock.ExpiresAt = c.clock.Now().Add(c.config.DebounceDelay)
	c.stopReleaseLocked()
	c.release = c.clock.AfterFunc(c.config.DebounceDelay, func() {
		c.releaseLock(gen)
	})
}

// releaseLock clears the lock unless a later show replaced it.
func (c *Controller) releaseLock(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return
	}
	c.lock = domain.DebounceLock{}
	c.release = nil
}

func (c *Controller) stopReleaseLocked() {
	if c.release != nil {
		c.release.Stop()
		c.release = nil
	}
}
