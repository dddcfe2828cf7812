package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chojs23/ts-bridge/internal/bridge/config"
	"github.com/chojs23/ts-bridge/internal/bridge/provider"
)

func TestRegisterSessionReusesBrokerForSameRoot(t *testing.T) {
	root := t.TempDir()
	r := New(Options{}, provider.Provider{}, nil)
	defer r.Close()

	b1, err := r.RegisterSession(root, config.Default())
	require.NoError(t, err)
	b2, err := r.RegisterSession(root, config.Default())
	require.NoError(t, err)

	assert.Same(t, b1.Handle, b2.Handle)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterSessionCreatesDistinctBrokersForDistinctRoots(t *testing.T) {
	r := New(Options{}, provider.Provider{}, nil)
	defer r.Close()

	b1, err := r.RegisterSession(t.TempDir(), config.Default())
	require.NoError(t, err)
	b2, err := r.RegisterSession(t.TempDir(), config.Default())
	require.NoError(t, err)

	assert.NotSame(t, b1.Handle, b2.Handle)
	assert.Equal(t, 2, r.Len())
}

func TestUnregisterSessionDecrementsActiveCount(t *testing.T) {
	root := t.TempDir()
	r := New(Options{}, provider.Provider{}, nil)
	defer r.Close()

	bundle, err := r.RegisterSession(root, config.Default())
	require.NoError(t, err)

	r.mu.Lock()
	e := r.entries[bundle.WorkspaceRoot]
	r.mu.Unlock()
	require.NotNil(t, e)
	assert.EqualValues(t, 1, e.activeSessionCount)

	r.UnregisterSession(bundle)
	assert.EqualValues(t, 0, e.activeSessionCount)
}

func TestIdleEvictionRemovesZeroActiveEntry(t *testing.T) {
	root := t.TempDir()
	r := New(Options{IdleTTL: 20 * time.Millisecond}, provider.Provider{}, nil)
	defer r.Close()

	bundle, err := r.RegisterSession(root, config.Default())
	require.NoError(t, err)
	r.UnregisterSession(bundle)

	// The registry's own eviction loop clamps its wake interval to a
	// minimum of 5s, far longer than is practical to wait on in a test,
	// so exercise the sweep directly instead of waiting on the ticker.
	time.Sleep(25 * time.Millisecond)
	r.sweep()

	assert.Equal(t, 0, r.Len())
}

func TestIdleEvictionSparesActiveEntry(t *testing.T) {
	root := t.TempDir()
	r := New(Options{IdleTTL: 20 * time.Millisecond}, provider.Provider{}, nil)
	defer r.Close()

	_, err := r.RegisterSession(root, config.Default())
	require.NoError(t, err)

	time.Sleep(25 * time.Millisecond)
	r.sweep()

	assert.Equal(t, 1, r.Len())
}

func TestMaxEntriesEvictsOldestZeroActive(t *testing.T) {
	r := New(Options{MaxEntries: 1}, provider.Provider{}, nil)
	defer r.Close()

	b1, err := r.RegisterSession(t.TempDir(), config.Default())
	require.NoError(t, err)
	r.UnregisterSession(b1)

	time.Sleep(time.Millisecond)

	_, err = r.RegisterSession(t.TempDir(), config.Default())
	require.NoError(t, err)

	assert.Equal(t, 1, r.Len())
}

func TestCanonicalizeFallsBackOnMissingPath(t *testing.T) {
	got := canonicalize("/definitely/does/not/exist/anywhere")
	assert.Equal(t, "/definitely/does/not/exist/anywhere", got)
}
