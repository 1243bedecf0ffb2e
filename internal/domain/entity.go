// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"sort"
	"time"
)

// ForegroundEvent is one "foreground surface changed" notification from the host.
type ForegroundEvent struct {
	SurfaceID string
	Timestamp time.Time
}

// StringSet is an unordered set of identifiers.
type StringSet map[string]struct{}

// NewStringSet builds a set from the given values, skipping empty strings.
func NewStringSet(values ...string) StringSet {
	s := make(StringSet, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		s[v] = struct{}{}
	}
	return s
}

// Contains reports whether v is in the set. Safe on a nil set.
func (s StringSet) Contains(v string) bool {
	_, ok := s[v]
	return ok
}

// Sorted returns the members in lexical order.
func (s StringSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for v := range s {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// PolicySnapshot is the user policy as read from the store for one evaluation.
// It is rebuilt for every event and never mutated afterwards.
type PolicySnapshot struct {
	BlockedApps         StringSet
	BlockedBrowsers     StringSet
	BlockedWebsites     StringSet
	SessionActive       bool
	SystemShieldEnabled bool
}

// EmptySnapshot is the fail-open policy: nothing blocked, no session.
func EmptySnapshot() PolicySnapshot {
	return PolicySnapshot{
		BlockedApps:     StringSet{},
		BlockedBrowsers: StringSet{},
		BlockedWebsites: StringSet{},
	}
}

// Action is the outcome of a decision.
type Action string

const (
	ActionAllow Action = "allow"
	ActionBlock Action = "block"
)

// Reason tags which rule produced a decision.
type Reason string

const (
	ReasonCriticalWhitelist Reason = "critical_whitelist"
	ReasonShieldProtected   Reason = "shield_protected"
	ReasonExplicitApp       Reason = "explicit_app"
	ReasonBlockedBrowserURL Reason = "blocked_browser_url"
	ReasonSelfApp           Reason = "self_app"
	ReasonDuplicate         Reason = "duplicate"
	ReasonDefault           Reason = "default"
)

// BlockDecision is the derived result of evaluating one event. Not persisted.
type BlockDecision struct {
	Action    Action
	Reason    Reason
	SurfaceID string
	URL       string // extracted URL, browser rule only
	Matched   string // blocked website entry that matched, browser rule only
}

// Blocked reports whether the decision blocks the surface.
func (d BlockDecision) Blocked() bool {
	return d.Action == ActionBlock
}

// OverlayPhase is the state of the interruption overlay.
type OverlayPhase string

const (
	PhaseHidden  OverlayPhase = "hidden"
	PhaseShowing OverlayPhase = "showing"
)

// OverlayState is a copy of the overlay controller state.
type OverlayState struct {
	Phase            OverlayPhase `json:"phase"`
	BlockedSurfaceID string       `json:"blocked_surface_id,omitempty"`
}

// DebounceLock guards a just-blocked surface from being re-blocked immediately.
// A zero ExpiresAt means the lock is held until the overlay is dismissed.
type DebounceLock struct {
	SurfaceID string
	ExpiresAt time.Time
}

// Holds reports whether the lock currently covers surfaceID.
func (l DebounceLock) Holds(surfaceID string, now time.Time) bool {
	if l.SurfaceID == "" || l.SurfaceID != surfaceID {
		return false
	}
	return l.ExpiresAt.IsZero() || now.Before(l.ExpiresAt)
}

// LogEntry is one line of the diagnostic audit trail.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// String renders the entry as "[HH:MM:SS] message".
func (e LogEntry) String() string {
	return "[" + e.Timestamp.Format("15:04:05") + "] " + e.Message
}

// ServiceStatus is the tuple mirrored to the notification host after every refresh.
type ServiceStatus struct {
	BlockedApps     int  `json:"blocked_apps"`
	BlockedBrowsers int  `json:"blocked_browsers"`
	SessionActive   bool `json:"session_active"`
}

// Instance is a running engine process, registered for the status command.
type Instance struct {
	PID           int       `json:"pid"`
	Version       string    `json:"version"`
	StartedAt     time.Time `json:"started_at"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}
