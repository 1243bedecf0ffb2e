package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTree = `{
  "role": "android.widget.FrameLayout",
  "children": [
    {"text": "Home", "role": "android.widget.TextView"},
    {"view_id": "com.android.chrome:id/url_bar", "text": "youtube.com", "role": "android.widget.EditText", "editable": true,
     "children": [{"view_id": "com.android.chrome:id/url_bar", "text": "nested"}]}
  ]
}`

func TestDecode(t *testing.T) {
	root, err := Decode([]byte(sampleTree))
	require.NoError(t, err)

	assert.Equal(t, "android.widget.FrameLayout", root.Role())
	assert.Equal(t, 2, root.ChildCount())

	bar := root.Child(1)
	require.NotNil(t, bar)
	assert.Equal(t, "youtube.com", bar.Text())
	assert.Equal(t, "com.android.chrome:id/url_bar", bar.ViewID())
	assert.True(t, bar.Editable())
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	assert.Error(t, err)
}

func TestNode_ChildOutOfRange(t *testing.T) {
	n := &Node{Children: []*Node{nil}}
	assert.Nil(t, n.Child(-1))
	assert.Nil(t, n.Child(0))
	assert.Nil(t, n.Child(1))
}

func TestNode_FindByViewIDPreOrder(t *testing.T) {
	root, err := Decode([]byte(sampleTree))
	require.NoError(t, err)

	found := root.FindByViewID("com.android.chrome:id/url_bar")
	require.Len(t, found, 2)
	assert.Equal(t, "youtube.com", found[0].Text())
	assert.Equal(t, "nested", found[1].Text())

	assert.Empty(t, root.FindByViewID("missing"))
}
