package projcache

import (
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewSQLiteStore(db)
	require.NoError(t, err)
	return store
}

func TestSQLiteStore_SetGetReplace(t *testing.T) {
	store := setupStore(t)

	_, found, err := store.Get("k1")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set("k1", []byte("first"), time.Now().Add(time.Hour)))
	payload, found, err := store.Get("k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("first"), payload)

	// Upsert replaces the payload
	require.NoError(t, store.Set("k1", []byte("second"), time.Now().Add(time.Hour)))
	payload, found, err = store.Get("k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("second"), payload)
}

func TestSQLiteStore_ExpiredEntryIsAMiss(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.Set("k1", []byte("x"), time.Now().Add(-time.Minute)))
	_, found, err := store.Get("k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestSQLiteStore_Prune(t *testing.T) {
	store := setupStore(t)

	require.NoError(t, store.Set("fresh", []byte("a"), time.Now().Add(time.Hour)))
	require.NoError(t, store.Set("stale1", []byte("b"), time.Now().Add(-time.Minute)))
	require.NoError(t, store.Set("stale2", []byte("c"), time.Now().Add(-time.Hour)))

	n, err := store.Prune(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, found, err := store.Get("fresh")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestJanitor_RejectsInvalidSchedule(t *testing.T) {
	cache := New(NewMemoryStore(), time.Hour, zerolog.Nop())
	janitor := NewJanitor(cache, zerolog.Nop())

	err := janitor.Start("not a schedule")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid janitor schedule")
}

func TestJanitor_StartStop(t *testing.T) {
	store := NewMemoryStore()
	cache := New(store, time.Hour, zerolog.Nop())
	janitor := NewJanitor(cache, zerolog.Nop())

	require.NoError(t, janitor.Start("@hourly"))
	janitor.Stop()

	// Pruning still works directly after shutdown
	require.NoError(t, store.Set("stale", []byte("x"), time.Now().Add(-time.Minute)))
	n, err := cache.Prune()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
