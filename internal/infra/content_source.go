package infra

import (
	"sync"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

// SnapshotContent is a ContentSource holding the tree delivered with the
// latest foreground event.
type SnapshotContent struct {
	mu   sync.RWMutex
	root domain.ContentNode
}

// NewSnapshotContent creates an empty content source.
func NewSnapshotContent() *SnapshotContent {
	return &SnapshotContent{}
}

// Set replaces the current tree. A nil root marks content as unavailable.
func (s *SnapshotContent) Set(root domain.ContentNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
}

// ActiveRoot returns the current tree.
func (s *SnapshotContent) ActiveRoot() (domain.ContentNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.root == nil {
		return nil, domain.ErrUnavailableContent
	}
	return s.root, nil
}

// Ensure SnapshotContent implements domain.ContentSource.
var _ domain.ContentSource = (*SnapshotContent)(nil)
