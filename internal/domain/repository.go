package domain

import "time"

// Logical preference keys read by the policy loader.
const (
	KeyBlockedApps         = "blocked_apps"
	KeyBlockedBrowsers     = "blocked_browsers"
	KeyBlockedWebsites     = "blocked_websites"
	KeySessionActive       = "session_active"
	KeySystemShieldEnabled = "system_shield_enabled"
)

// PolicyStore is the key-value preference store written by the settings UI.
// Implementations: JSON preference file, SQLCipher database.
type PolicyStore interface {
	// GetStringList returns the JSON array string stored under key ("" if unset).
	GetStringList(key string) (string, error)

	// GetBool returns the flag stored under key (false if unset).
	GetBool(key string) (bool, error)
}

// PolicyWriter is the write side used by the CLI in place of the settings UI.
type PolicyWriter interface {
	SetStringList(key string, values []string) error
	SetBool(key string, value bool) error
}

// InstanceRegistry records the running engine so other commands can find it.
type InstanceRegistry interface {
	// Register saves the instance, replacing any previous one.
	Register(instance Instance) error

	// Heartbeat refreshes the liveness timestamp.
	Heartbeat(at time.Time) error

	// Lookup returns the registered instance, or nil if none.
	Lookup() (*Instance, error)
}

// OverlayHost renders and removes the full-screen interruption.
type OverlayHost interface {
	// Show displays message. onDismiss is invoked exactly once, on explicit
	// user acknowledgment.
	Show(message string, onDismiss func()) error

	// Dismiss removes the overlay without invoking onDismiss.
	Dismiss() error
}

// NotificationHost mirrors the current policy counts to the user.
type NotificationHost interface {
	UpdateStatus(status ServiceStatus) error
}

// HomeNavigator sends the user back to a neutral screen.
type HomeNavigator interface {
	ReturnToNeutralScreen() error
}

// LogSink is the bounded diagnostic trail shared with the UI.
type LogSink interface {
	Append(message string)
	ReadAll() []LogEntry
}

// ContentNode is one node of the on-screen accessibility content tree.
type ContentNode interface {
	// Text is the displayed text, possibly empty.
	Text() string

	// ViewID is the structural identifier, e.g. "com.android.chrome:id/url_bar".
	ViewID() string

	// Role is the widget class, e.g. "android.widget.EditText".
	Role() string

	// Editable reports whether the node accepts text input.
	Editable() bool

	// ChildCount returns the number of children.
	ChildCount() int

	// Child returns the i-th child or nil if it is unavailable.
	Child(i int) ContentNode
}

// ViewIDFinder is an optional ContentNode capability for direct view id lookup.
type ViewIDFinder interface {
	FindByViewID(viewID string) []ContentNode
}

// ContentSource exposes the content tree of the current foreground window.
type ContentSource interface {
	// ActiveRoot returns the root node or an error wrapping ErrUnavailableContent.
	ActiveRoot() (ContentNode, error)
}

// URLExtractor recovers the address shown by a browser surface.
type URLExtractor interface {
	Extract(root ContentNode, surfaceID string) (string, bool)
}

// Clock abstracts time for the debounce timer.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending one-shot callback.
type Timer interface {
	Stop() bool
}

// KeyProvider supplies the encryption key for the encrypted preference store.
type KeyProvider interface {
	GetKey() ([]byte, error)
	StoreKey(key []byte) error
	KeyExists() bool
}

// ProcessInspector answers liveness questions about a registered instance.
type ProcessInspector interface {
	IsRunning(pid int) bool
	Name(pid int) (string, error)
	CreateTime(pid int) (time.Time, error)
}
