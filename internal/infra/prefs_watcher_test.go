package infra

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/focus_guard/internal/domain"
)

func TestPrefsWatcher_NotifiesOnStoreWrite(t *testing.T) {
	dir := t.TempDir()
	prefs := NewFilePreferences(dir)

	w, err := NewPrefsWatcher(prefs.Path(), 20*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, func() { changes.Add(1) }) }()

	require.NoError(t, prefs.SetBool(domain.KeySessionActive, true))

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestPrefsWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "preferences.json")

	w, err := NewPrefsWatcher(path, 10*time.Millisecond, zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	go func() { _ = w.Run(ctx, func() { changes.Add(1) }) }()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0600))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, int32(0), changes.Load())
}
