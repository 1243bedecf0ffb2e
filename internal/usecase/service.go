package usecase

import (
	"strings"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// UIPrefix marks log entries appended by the external UI.
const UIPrefix = "ui: "

// OverlayStatus is the part of overlay.Controller the service reports on.
type OverlayStatus interface {
	State() domain.OverlayState
	DebounceLock() domain.DebounceLock
}

// Status is the service state reported to the UI.
type Status struct {
	Service    domain.ServiceStatus `json:"service"`
	Shield     bool                 `json:"system_shield_enabled"`
	Overlay    domain.OverlayState  `json:"overlay"`
	LockedID   string               `json:"debounce_locked_surface,omitempty"`
	LogEntries int                  `json:"log_entries"`
}

// Service is the read/append surface handed to the UI transport. It holds no
// state of its own.
type Service struct {
	engine  *Engine
	overlay OverlayStatus
	events  domain.LogSink
}

// NewService creates the UI façade.
func NewService(engine *Engine, ov OverlayStatus, events domain.LogSink) *Service {
	return &Service{engine: engine, overlay: ov, events: events}
}

// Logs returns the event log, oldest first.
func (s *Service) Logs() []domain.LogEntry {
	return s.events.ReadAll()
}

// AddLog appends a UI-originated message. Blank messages are dropped.
func (s *Service) AddLog(message string) bool {
	message = strings.TrimSpace(message)
	if message == "" {
		return false
	}
	s.events.Append(UIPrefix + message)
	return true
}

// Status reports the latest snapshot counts and overlay state.
func (s *Service) Status() Status {
	snap := s.engine.Snapshot()
	st := Status{
		Service: domain.ServiceStatus{
			BlockedApps:     len(snap.BlockedApps),
			BlockedBrowsers: len(snap.BlockedBrowsers),
			SessionActive:   snap.SessionActive,
		},
		Shield:     snap.SystemShieldEnabled,
		LogEntries: len(s.events.ReadAll()),
	}
	if s.overlay != nil {
		st.Overlay = s.overlay.State()
		st.LockedID = s.overlay.DebounceLock().SurfaceID
	}
	return st
}

// Connected records that the host attached the service.
func (s *Service) Connected() {
	s.events.Append("Service connected")
}

// Interrupted records that the host interrupted the service.
func (s *Service) Interrupted() {
	s.events.Append("Service interrupted")
}

// Destroyed records service teardown.
func (s *Service) Destroyed() {
	s.events.Append("Service destroyed")
}
