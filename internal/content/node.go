// Package content provides a concrete accessibility content tree that can be
// decoded from the event stream.
package content

import (
	"encoding/json"
	"fmt"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// Node is a content tree node as delivered by the host bridge.
type Node struct {
	NodeText     string  `json:"text,omitempty"`
	NodeViewID   string  `json:"view_id,omitempty"`
	NodeRole     string  `json:"role,omitempty"`
	NodeEditable bool    `json:"editable,omitempty"`
	Children     []*Node `json:"children,omitempty"`
}

// Decode parses a JSON content tree.
func Decode(data []byte) (*Node, error) {
	var n Node
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, fmt.Errorf("decode content tree: %w", err)
	}
	return &n, nil
}

func (n *Node) Text() string   { return n.NodeText }
func (n *Node) ViewID() string { return n.NodeViewID }
func (n *Node) Role() string   { return n.NodeRole }
func (n *Node) Editable() bool { return n.NodeEditable }

func (n *Node) ChildCount() int { return len(n.Children) }

// Child returns nil for out-of-range indexes and missing children.
func (n *Node) Child(i int) domain.ContentNode {
	if i < 0 || i >= len(n.Children) || n.Children[i] == nil {
		return nil
	}
	return n.Children[i]
}

// FindByViewID returns all nodes under n with the given view id, in pre-order.
func (n *Node) FindByViewID(viewID string) []domain.ContentNode {
	var found []domain.ContentNode
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == nil {
			continue
		}
		if cur.NodeViewID == viewID {
			found = append(found, cur)
		}
		for i := len(cur.Children) - 1; i >= 0; i-- {
			stack = append(stack, cur.Children[i])
		}
	}
	return found
}

// Ensure Node implements the content interfaces.
var _ domain.ContentNode = (*Node)(nil)
var _ domain.ViewIDFinder = (*Node)(nil)
