// Package eventlog keeps the bounded diagnostic trail of decisions shown to the UI.
package eventlog

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// DefaultCapacity is the number of entries kept before the oldest is evicted.
const DefaultCapacity = 500

// Log is a fixed-capacity FIFO of LogEntry. Append and eviction happen under
// one lock so concurrent writers never lose or duplicate entries.
type Log struct {
	mu      sync.Mutex
	entries []domain.LogEntry
	head    int // index of the oldest entry
	size    int
	now     func() time.Time
	logger  *zap.Logger
}

// New creates a log with DefaultCapacity that mirrors entries to logger.
func New(logger *zap.Logger) *Log {
	return NewWithCapacity(DefaultCapacity, logger)
}

// NewWithCapacity creates a log holding at most capacity entries.
func NewWithCapacity(capacity int, logger *zap.Logger) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		entries: make([]domain.LogEntry, capacity),
		now:     time.Now,
		logger:  logger,
	}
}

// Append records message with the current time.
func (l *Log) Append(message string) {
	l.mu.Lock()
	entry := domain.LogEntry{Timestamp: l.now(), Message: message}
	tail := (l.head + l.size) % len(l.entries)
	l.entries[tail] = entry
	if l.size < len(l.entries) {
		l.size++
	} else {
		l.head = (l.head + 1) % len(l.entries)
	}
	l.mu.Unlock()

	l.logger.Info(message)
}

// ReadAll returns a copy of the entries, oldest first.
func (l *Log) ReadAll() []domain.LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.LogEntry, l.size)
	for i := 0; i < l.size; i++ {
		out[i] = l.entries[(l.head+i)%len(l.entries)]
	}
	return out
}

// Len returns the number of stored entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Capacity returns the maximum number of entries.
func (l *Log) Capacity() int {
	return len(l.entries)
}

// Ensure Log implements domain.LogSink.
var _ domain.LogSink = (*Log)(nil)
