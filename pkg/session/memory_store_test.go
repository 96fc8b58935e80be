package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/helpdesk/pkg/session"
)

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore(0)
	t.Cleanup(func() { _ = store.Close() })

	s := &session.Session{Token: "t1", ExpiresAt: time.Now().Add(time.Hour), Data: map[string]string{"a": "1"}}
	require.NoError(t, store.Create(ctx, s))

	got, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.Data["a"])

	// Returned sessions are copies.
	got.Data["a"] = "2"
	again, err := store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "1", again.Data["a"])

	require.NoError(t, store.Update(ctx, got))
	again, err = store.Get(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "2", again.Data["a"])

	err = store.Update(ctx, &session.Session{Token: "missing", ExpiresAt: time.Now().Add(time.Hour)})
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	require.ErrorIs(t, store.Create(ctx, &session.Session{}), session.ErrInvalidSession)

	require.NoError(t, store.Delete(ctx, "t1"))
	_, err = store.Get(ctx, "t1")
	require.ErrorIs(t, err, session.ErrSessionNotFound)
}

func TestMemoryStore_DeleteExpired(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore(0)

	require.NoError(t, store.Create(ctx, &session.Session{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	require.NoError(t, store.Create(ctx, &session.Session{Token: "new", ExpiresAt: time.Now().Add(time.Hour)}))

	_, err := store.Get(ctx, "old")
	require.ErrorIs(t, err, session.ErrSessionNotFound)

	assert.Equal(t, 1, store.DeleteExpired())
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CleanupLoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := session.NewMemoryStore(5 * time.Millisecond)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Create(ctx, &session.Session{Token: "old", ExpiresAt: time.Now().Add(-time.Minute)}))
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 5*time.Millisecond)
}
