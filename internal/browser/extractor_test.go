package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/content"
	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// fakeNode implements domain.ContentNode without the ViewIDFinder capability.
type fakeNode struct {
	text     string
	viewID   string
	role     string
	editable bool
	children []*fakeNode
	visits   *int
}

func (n *fakeNode) Text() string    { return n.text }
func (n *fakeNode) ViewID() string  { return n.viewID }
func (n *fakeNode) Role() string    { return n.role }
func (n *fakeNode) ChildCount() int { return len(n.children) }

// Editable is the first thing the search asks of every visited node.
func (n *fakeNode) Editable() bool {
	n.visit()
	return n.editable
}

func (n *fakeNode) Child(i int) domain.ContentNode {
	if n.children[i] == nil {
		return nil
	}
	return n.children[i]
}

func (n *fakeNode) visit() {
	if n.visits != nil {
		*n.visits++
	}
}

func edit(text string) *fakeNode {
	return &fakeNode{text: text, role: "android.widget.EditText", editable: true}
}

func group(children ...*fakeNode) *fakeNode {
	return &fakeNode{role: "android.widget.FrameLayout", children: children}
}

func TestLooksLikeURL(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"https://example.com", true},
		{"http://a.b", true},
		{"chrome://flags.x", true},
		{"example.com", true},
		{"  youtube.com/watch  ", true},
		{"a.b", false},
		{"", false},
		{"no dot here", false},
		{"search for golang.org", false},
		{"https://nodot", false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeURL(tt.text))
		})
	}
}

func TestExtractor_NilRoot(t *testing.T) {
	e := NewExtractor(zap.NewNop())
	url, ok := e.Extract(nil, "com.android.chrome")
	assert.False(t, ok)
	assert.Empty(t, url)
}

func TestExtractor_KnownBrowserAddressBar(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	root := group(
		edit("decoy.example.com"),
		&fakeNode{viewID: "com.android.chrome:id/url_bar", text: "  youtube.com/watch?v=1 "},
	)

	url, ok := e.Extract(root, "com.android.chrome")
	assert.True(t, ok)
	assert.Equal(t, "youtube.com/watch?v=1", url)
}

func TestExtractor_KnownBrowserUsesViewIDFinder(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	root := &content.Node{
		Children: []*content.Node{
			{NodeText: "", NodeViewID: "org.mozilla.firefox:id/mozac_browser_toolbar_url_view"},
			{NodeText: "reddit.com", NodeViewID: "org.mozilla.firefox:id/mozac_browser_toolbar_url_view"},
		},
	}

	url, ok := e.Extract(root, "org.mozilla.firefox")
	assert.True(t, ok)
	assert.Equal(t, "reddit.com", url)
}

func TestExtractor_KnownBrowserFallsBackToSearch(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	// Address bar present but empty: the heuristic still finds the field.
	root := group(
		&fakeNode{viewID: "com.android.chrome:id/url_bar", text: ""},
		group(edit("news.ycombinator.com")),
	)

	url, ok := e.Extract(root, "com.android.chrome")
	assert.True(t, ok)
	assert.Equal(t, "news.ycombinator.com", url)
}

func TestExtractor_UnknownBrowserHeuristic(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	tests := []struct {
		name    string
		root    *fakeNode
		wantURL string
		wantOK  bool
	}{
		{
			name:    "editable node with url",
			root:    group(&fakeNode{text: "Title"}, edit("example.com")),
			wantURL: "example.com",
			wantOK:  true,
		},
		{
			name:    "role marks text input",
			root:    group(&fakeNode{text: "https://golang.org", role: "android.widget.AutoCompleteTextView.TextInput"}),
			wantURL: "https://golang.org",
			wantOK:  true,
		},
		{
			name:   "static text is ignored",
			root:   group(&fakeNode{text: "example.com", role: "android.widget.TextView"}),
			wantOK: false,
		},
		{
			name:   "editable search text is ignored",
			root:   group(edit("how to cook rice")),
			wantOK: false,
		},
		{
			name:   "nil children are skipped",
			root:   group(nil, nil),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url, ok := e.Extract(tt.root, "com.example.browser")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantURL, url)
		})
	}
}

func TestExtractor_DepthFirstLeftmostWins(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	root := group(
		group(
			group(edit("deep-left.com")),
		),
		edit("shallow-right.com"),
	)

	url, ok := e.Extract(root, "com.example.browser")
	assert.True(t, ok)
	assert.Equal(t, "deep-left.com", url)
}

func TestExtractor_BudgetBoundsSearch(t *testing.T) {
	visits := 0
	var leaves []*fakeNode
	for i := 0; i < 50; i++ {
		leaves = append(leaves, &fakeNode{text: "filler", visits: &visits})
	}
	leaves = append(leaves, edit("late.example.com"))
	root := group(leaves...)

	url, ok := NewExtractorWithBudget(10, zap.NewNop()).Extract(root, "com.example.browser")
	assert.False(t, ok)
	assert.Empty(t, url)
	assert.LessOrEqual(t, visits, 10)

	url, ok = NewExtractor(zap.NewNop()).Extract(root, "com.example.browser")
	assert.True(t, ok)
	assert.Equal(t, "late.example.com", url)
}

func TestAddressBarViewID(t *testing.T) {
	id, ok := AddressBarViewID("com.android.chrome")
	assert.True(t, ok)
	assert.Equal(t, "com.android.chrome:id/url_bar", id)

	_, ok = AddressBarViewID("com.example.browser")
	assert.False(t, ok)
}

func TestExtractor_ImplementsInterface(t *testing.T) {
	var _ domain.URLExtractor = NewExtractor(zap.NewNop())
}
