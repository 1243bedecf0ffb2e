package browser

import (
	"regexp"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// DefaultMaxNodes bounds how many nodes the heuristic search visits.
const DefaultMaxNodes = 5000

// addressBars maps well-known browsers to the view id of their address bar.
var addressBars = map[string]string{
	"com.android.chrome":            "com.android.chrome:id/url_bar",
	"com.chrome.beta":               "com.chrome.beta:id/url_bar",
	"com.brave.browser":             "com.brave.browser:id/url_bar",
	"com.microsoft.emmx":            "com.microsoft.emmx:id/url_bar",
	"org.mozilla.firefox":           "org.mozilla.firefox:id/mozac_browser_toolbar_url_view",
	"org.mozilla.focus":             "org.mozilla.focus:id/mozac_browser_toolbar_url_view",
	"com.opera.browser":             "com.opera.browser:id/url_field",
	"com.sec.android.app.sbrowser":  "com.sec.android.app.sbrowser:id/location_bar_edit_text",
	"com.duckduckgo.mobile.android": "com.duckduckgo.mobile.android:id/omnibarTextInput",
	"com.vivaldi.browser":           "com.vivaldi.browser:id/url_bar",
}

// textInputRoles are role fragments (lower case) that mark a text field.
var textInputRoles = []string{"edittext", "textfield", "textinput", "textbox", "omnibox"}

var schemeToken = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*://`)

// Extractor implements domain.URLExtractor.
type Extractor struct {
	maxNodes int
	logger   *zap.Logger
}

// NewExtractor creates an extractor with the default visit budget.
func NewExtractor(logger *zap.Logger) *Extractor {
	return &Extractor{maxNodes: DefaultMaxNodes, logger: logger}
}

// NewExtractorWithBudget creates an extractor that visits at most maxNodes nodes.
func NewExtractorWithBudget(maxNodes int, logger *zap.Logger) *Extractor {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}
	return &Extractor{maxNodes: maxNodes, logger: logger}
}

// AddressBarViewID returns the known address-bar view id for a browser.
func AddressBarViewID(surfaceID string) (string, bool) {
	id, ok := addressBars[surfaceID]
	return id, ok
}

// Extract returns the best guess at the URL displayed under root.
func (e *Extractor) Extract(root domain.ContentNode, surfaceID string) (string, bool) {
	if root == nil {
		return "", false
	}

	if viewID, ok := addressBars[surfaceID]; ok {
		if url, found := e.fromAddressBar(root, viewID); found {
			e.logger.Debug("url from address bar",
				zap.String("surface", surfaceID),
				zap.String("view_id", viewID))
			return url, true
		}
	}

	return e.search(root, isCandidate)
}

// fromAddressBar looks up the known address-bar node and returns its text.
func (e *Extractor) fromAddressBar(root domain.ContentNode, viewID string) (string, bool) {
	var nodes []domain.ContentNode
	if finder, ok := root.(domain.ViewIDFinder); ok {
		nodes = finder.FindByViewID(viewID)
	} else if n, ok := e.find(root, func(n domain.ContentNode) bool { return n.ViewID() == viewID }); ok {
		nodes = []domain.ContentNode{n}
	}

	for _, n := range nodes {
		if n == nil {
			continue
		}
		if text := strings.TrimSpace(n.Text()); text != "" {
			return text, true
		}
	}
	return "", false
}

// search returns the trimmed text of the first node in pre-order that passes match.
func (e *Extractor) search(root domain.ContentNode, match func(domain.ContentNode) bool) (string, bool) {
	n, ok := e.find(root, match)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(n.Text()), true
}

// find walks the tree depth-first with an explicit stack. Children are pushed
// in reverse so the leftmost child is visited first.
func (e *Extractor) find(root domain.ContentNode, match func(domain.ContentNode) bool) (domain.ContentNode, bool) {
	stack := []domain.ContentNode{root}
	visited := 0

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}

		visited++
		if visited > e.maxNodes {
			e.logger.Debug("content search budget exhausted", zap.Int("max_nodes", e.maxNodes))
			return nil, false
		}

		if match(n) {
			return n, true
		}

		for i := n.ChildCount() - 1; i >= 0; i-- {
			if c := n.Child(i); c != nil {
				stack = append(stack, c)
			}
		}
	}
	return nil, false
}

// isCandidate decides whether a node looks like an address bar showing a URL.
func isCandidate(n domain.ContentNode) bool {
	if !n.Editable() && !isTextInputRole(n.Role()) {
		return false
	}
	return LooksLikeURL(n.Text())
}

// LooksLikeURL applies the address heuristic to displayed text: non-empty,
// contains a dot, and either starts with a scheme or is a single token longer
// than three characters.
func LooksLikeURL(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" || !strings.Contains(text, ".") {
		return false
	}
	if schemeToken.MatchString(text) {
		return true
	}
	return len(text) > 3 && strings.IndexFunc(text, unicode.IsSpace) < 0
}

func isTextInputRole(role string) bool {
	role = strings.ToLower(role)
	for _, r := range textInputRoles {
		if strings.Contains(role, r) {
			return true
		}
	}
	return false
}

// Ensure Extractor implements domain.URLExtractor.
var _ domain.URLExtractor = (*Extractor)(nil)
