package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/content"
)

// Event types accepted on the event stream.
const (
	EventForeground = "foreground"
	EventDismiss    = "dismiss"
	EventInterrupt  = "interrupt"
)

const maxEventLine = 4 << 20

// Event is one line of the host event stream.
type Event struct {
	Type      string        `json:"type"`
	SurfaceID string        `json:"surface_id,omitempty"`
	Content   *content.Node `json:"content,omitempty"`
	Timestamp time.Time     `json:"timestamp,omitempty"`
}

// ParseEvent decodes and validates one event line.
func ParseEvent(line []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	switch ev.Type {
	case EventForeground:
		if ev.SurfaceID == "" {
			return Event{}, fmt.Errorf("foreground event without surface_id")
		}
	case EventDismiss, EventInterrupt:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return ev, nil
}

// ReadEvents decodes JSON lines from r onto out until r is exhausted or ctx
// is cancelled. Malformed lines are logged and skipped. out is closed on return.
func ReadEvents(ctx context.Context, r io.Reader, out chan<- Event, logger *zap.Logger) error {
	defer close(out)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxEventLine)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		ev, err := ParseEvent(line)
		if err != nil {
			logger.Warn("skipping event line", zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		if ev.Timestamp.IsZero() {
			ev.Timestamp = time.Now()
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
