// Package browser recovers the address shown by a browser surface and matches
// it against the blocked website list.
package browser

import (
	"strings"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// NormalizeHost reduces a URL or bare host to its lower-case host part:
// scheme and a leading "www." are dropped, as is everything from the first "/".
// The steps repeat until nothing changes, so NormalizeHost(NormalizeHost(s))
// == NormalizeHost(s) even for inputs like "http://www.www.x".
func NormalizeHost(s string) string {
	for {
		n := normalizeOnce(s)
		if n == s {
			return n
		}
		s = n
	}
}

func normalizeOnce(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, scheme) {
			s = s[len(scheme):]
			break
		}
	}
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexByte(s, '/'); i >= 0 {
		s = s[:i]
	}
	return s
}

// MatchBlocked reports whether the normalized url contains any normalized
// entry of websites. Containment is deliberately loose: subdomains and longer
// hosts that embed the entry match too. Entries are tried in lexical order so
// the reported match is stable.
func MatchBlocked(url string, websites domain.StringSet) (string, bool) {
	host := NormalizeHost(url)
	if host == "" {
		return "", false
	}
	for _, entry := range websites.Sorted() {
		n := NormalizeHost(entry)
		if n == "" {
			continue
		}
		if strings.Contains(host, n) {
			return entry, true
		}
	}
	return "", false
}
