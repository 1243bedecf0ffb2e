package infra

import (
	"time"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// ProcessInspector implements domain.ProcessInspector using gopsutil.
type ProcessInspector struct{}

// NewProcessInspector creates a process inspector.
func NewProcessInspector() domain.ProcessInspector {
	return &ProcessInspector{}
}

// IsRunning reports whether pid exists.
func (ProcessInspector) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := process.PidExists(int32(pid))
	return err == nil && ok
}

// Name returns the executable name of pid.
func (ProcessInspector) Name(pid int) (string, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return "", err
	}
	return p.Name()
}

// CreateTime returns when pid was started.
func (ProcessInspector) CreateTime(pid int) (time.Time, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return time.Time{}, err
	}
	ms, err := p.CreateTime()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms), nil
}

// Ensure ProcessInspector implements domain.ProcessInspector.
var _ domain.ProcessInspector = (*ProcessInspector)(nil)
