package policy

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// Loader rebuilds a PolicySnapshot from the preference store.
type Loader struct {
	store  domain.PolicyStore
	logger *zap.Logger
}

// NewLoader creates a snapshot loader over store.
func NewLoader(store domain.PolicyStore, logger *zap.Logger) *Loader {
	return &Loader{store: store, logger: logger}
}

// Load reads all five keys and returns a fresh snapshot. It never fails:
// corrupt or unreadable lists become empty sets and flags become false.
// The returned problems are the per-key failures, for the audit trail.
func (l *Loader) Load() (domain.PolicySnapshot, []error) {
	snap := domain.EmptySnapshot()
	if l.store == nil {
		return snap, nil
	}

	var problems []error

	snap.BlockedApps = l.loadList(domain.KeyBlockedApps, &problems)
	snap.BlockedBrowsers = l.loadList(domain.KeyBlockedBrowsers, &problems)
	snap.BlockedWebsites = l.loadList(domain.KeyBlockedWebsites, &problems)

	session, err := l.store.GetBool(domain.KeySessionActive)
	if err != nil {
		problems = append(problems, fmt.Errorf("%s: %w", domain.KeySessionActive, err))
		session = false
	}
	snap.SessionActive = session

	shield, err := l.store.GetBool(domain.KeySystemShieldEnabled)
	if err != nil {
		// An unreadable shield flag leaves the shield up: more surfaces allowed.
		problems = append(problems, fmt.Errorf("%s: %w", domain.KeySystemShieldEnabled, err))
		shield = true
	}
	snap.SystemShieldEnabled = shield

	for _, p := range problems {
		l.logger.Warn("policy value degraded", zap.Error(p))
	}
	return snap, problems
}

func (l *Loader) loadList(key string, problems *[]error) domain.StringSet {
	raw, err := l.store.GetStringList(key)
	if err != nil {
		*problems = append(*problems, fmt.Errorf("%s: %w", key, err))
		return domain.StringSet{}
	}
	set, err := ParseList(raw)
	if err != nil {
		*problems = append(*problems, fmt.Errorf("%s: %w", key, err))
	}
	return set
}

// ParseList decodes a JSON array of strings. Empty input is an empty set.
// Any malformed input yields an empty set and an error wrapping
// domain.ErrDataCorruption; entries are trimmed and blanks dropped.
func ParseList(raw string) (domain.StringSet, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return domain.StringSet{}, nil
	}

	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return domain.StringSet{}, fmt.Errorf("%w: %v", domain.ErrDataCorruption, err)
	}

	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}
	return domain.NewStringSet(values...), nil
}

// EncodeList is the inverse of ParseList, used by the preference writers.
func EncodeList(values []string) string {
	data, err := json.Marshal(values)
	if err != nil || values == nil {
		return "[]"
	}
	return string(data)
}
