package session

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestStoreSetGet(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("token", "abc123", 5))

	var got string
	ok, err := store.Get("token", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc123", got)
}

func TestStoreGetMissingKey(t *testing.T) {
	store := newTestStore(t)

	var got string
	ok, err := store.Get("nope", &got)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreExpiredItemUnreadableAndRemoved(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("token", "stale", 1))

	// Jump past the expiry.
	store.now = func() time.Time { return time.Now().AddDate(0, 0, 2) }

	var got string
	ok, err := store.Get("token", &got)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)

	// The entry is gone from disk, not just hidden.
	_, err = os.Stat(store.path("token"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreUnparsableEntryEvicted(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, os.WriteFile(store.path("token"), []byte("not json"), 0o600))

	var got string
	ok, err := store.Get("token", &got)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = os.Stat(store.path("token"))
	assert.True(t, os.IsNotExist(err))
}

func TestStoreSetUntilKeepsExpiry(t *testing.T) {
	store := newTestStore(t)

	expiry := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	require.NoError(t, store.SetUntil("sessionInfo", map[string]string{"a": "b"}, expiry))

	got, ok := store.ExpiresAt("sessionInfo")
	require.True(t, ok)
	assert.Equal(t, expiry, got.UTC().Truncate(time.Second))
}

func TestStoreStructRoundTrip(t *testing.T) {
	store := newTestStore(t)

	info := SessionInfo{
		RefreshToken: "refresh-1",
		SessionID:    "session-1",
		ExpiresAt:    time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Set("sessionInfo", info, 5))

	var got SessionInfo
	ok, err := store.Get("sessionInfo", &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, info.RefreshToken, got.RefreshToken)
	assert.Equal(t, info.SessionID, got.SessionID)
}

func TestStoreKeySanitized(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("../escape", "x", 1))

	entries, err := filepath.Glob(filepath.Join(store.dir, "*.json"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
