package infra

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// ConsoleOverlay renders the interruption as a text banner. The user
// acknowledges it through Acknowledge, which the daemon calls for a
// dismiss event.
type ConsoleOverlay struct {
	mu        sync.Mutex
	out       io.Writer
	visible   bool
	onDismiss func()
	denied    bool
}

// NewConsoleOverlay creates an overlay host writing to out.
func NewConsoleOverlay(out io.Writer) *ConsoleOverlay {
	return &ConsoleOverlay{out: out}
}

// Deny makes subsequent Show calls fail as if the permission was revoked.
func (o *ConsoleOverlay) Deny(denied bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.denied = denied
}

// Show prints the banner and remembers onDismiss.
func (o *ConsoleOverlay) Show(message string, onDismiss func()) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.denied {
		return fmt.Errorf("%w: overlay", domain.ErrPermissionDenied)
	}

	bar := strings.Repeat("=", 60)
	if _, err := fmt.Fprintf(o.out, "%s\n%s\n[ I Understand ]\n%s\n", bar, message, bar); err != nil {
		return fmt.Errorf("failed to render overlay: %w", err)
	}
	o.visible = true
	o.onDismiss = onDismiss
	return nil
}

// Dismiss removes the banner without invoking the callback.
func (o *ConsoleOverlay) Dismiss() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.visible {
		return nil
	}
	o.visible = false
	o.onDismiss = nil
	_, err := fmt.Fprintln(o.out, "[overlay removed]")
	return err
}

// Acknowledge is the user pressing the button. It reports whether an overlay
// was visible.
func (o *ConsoleOverlay) Acknowledge() bool {
	o.mu.Lock()
	if !o.visible {
		o.mu.Unlock()
		return false
	}
	onDismiss := o.onDismiss
	o.visible = false
	o.onDismiss = nil
	o.mu.Unlock()

	if onDismiss != nil {
		onDismiss()
	}
	return true
}

// Visible reports whether the banner is on screen.
func (o *ConsoleOverlay) Visible() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.visible
}

// ConsoleHome prints the neutral-screen navigation and optionally reports it.
type ConsoleHome struct {
	out    io.Writer
	onHome func()
}

// NewConsoleHome creates a home navigator. onHome may be nil; the daemon uses
// it to feed the launcher surface back as the next foreground event.
func NewConsoleHome(out io.Writer, onHome func()) *ConsoleHome {
	return &ConsoleHome{out: out, onHome: onHome}
}

// ReturnToNeutralScreen announces the navigation.
func (h *ConsoleHome) ReturnToNeutralScreen() error {
	if _, err := fmt.Fprintln(h.out, "[home]"); err != nil {
		return err
	}
	if h.onHome != nil {
		h.onHome()
	}
	return nil
}

// StatusNotifier keeps the persistent status text current.
type StatusNotifier struct {
	mu     sync.Mutex
	last   domain.ServiceStatus
	title  string
	text   string
	logger *zap.Logger
}

// NewStatusNotifier creates a notifier that logs status changes.
func NewStatusNotifier(logger *zap.Logger) *StatusNotifier {
	title, text := FormatStatus(domain.ServiceStatus{})
	return &StatusNotifier{title: title, text: text, logger: logger}
}

// UpdateStatus re-renders the notification when the status changed.
func (n *StatusNotifier) UpdateStatus(status domain.ServiceStatus) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if status == n.last {
		return nil
	}
	n.last = status
	n.title, n.text = FormatStatus(status)
	n.logger.Debug("notification updated",
		zap.String("title", n.title),
		zap.String("text", n.text))
	return nil
}

// Current returns the rendered title and text.
func (n *StatusNotifier) Current() (title, text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.title, n.text
}

// FormatStatus renders the notification title and body for status.
func FormatStatus(status domain.ServiceStatus) (title, text string) {
	title = "FocusGuard - 🟢 Service Ready"
	if status.SessionActive {
		title = "FocusGuard - 🔴 Session Active"
	}
	text = fmt.Sprintf("Blocked: %d app(s)", status.BlockedApps+status.BlockedBrowsers)
	return title, text
}

// Ensure the console adapters implement the host interfaces.
var (
	_ domain.OverlayHost      = (*ConsoleOverlay)(nil)
	_ domain.HomeNavigator    = (*ConsoleHome)(nil)
	_ domain.NotificationHost = (*StatusNotifier)(nil)
)
