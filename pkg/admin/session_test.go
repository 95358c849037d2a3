package admin

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Expiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Hour)
	store.now = func() time.Time { return now }

	sess := store.Create("editor")
	assert.NotEmpty(t, sess.Token)
	assert.NotEmpty(t, sess.CSRF)
	assert.NotEqual(t, sess.Token, sess.CSRF)

	now = now.Add(50 * time.Minute)
	got, ok := store.Get(sess.Token)
	require.True(t, ok)
	assert.Equal(t, "editor", got.Username)
	assert.Equal(t, now.Add(time.Hour), got.Expires, "use slides the expiry")

	now = now.Add(59 * time.Minute)
	_, ok = store.Get(sess.Token)
	assert.True(t, ok)

	now = now.Add(time.Hour)
	_, ok = store.Get(sess.Token)
	assert.False(t, ok)
	assert.Zero(t, store.Len(), "expired sessions are dropped on access")
}

func TestSessionStore_SweepsOnCreate(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewSessionStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Create("a")
	store.Create("b")
	assert.Equal(t, 2, store.Len())

	now = now.Add(2 * time.Minute)
	store.Create("c")
	assert.Equal(t, 1, store.Len())
}

func TestSessionStore_Flash(t *testing.T) {
	store := NewSessionStore(0)
	sess := store.Create("editor")

	store.Flash(sess.Token, Toast{Level: "success", Message: "Saved."})
	store.Flash(sess.Token, Toast{Level: "error", Message: "Oops."})
	store.Flash("unknown", Toast{Level: "error", Message: "ignored"})

	toasts := store.TakeFlash(sess.Token)
	require.Len(t, toasts, 2)
	assert.Equal(t, "Saved.", toasts[0].Message)
	assert.Empty(t, store.TakeFlash(sess.Token), "toasts are shown once")

	store.Delete(sess.Token)
	_, ok := store.Get(sess.Token)
	assert.False(t, ok)
}
