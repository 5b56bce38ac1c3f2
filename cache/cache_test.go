package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetMiss(t *testing.T) {
	m := NewMemory()

	_, err := m.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemory_SetGetExpire(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, m.Set(ctx, "schema", []byte("kind: text"), 5*time.Minute))

	got, err := m.Get(ctx, "schema")
	require.NoError(t, err)
	assert.Equal(t, []byte("kind: text"), got)

	now = now.Add(4*time.Minute + 59*time.Second)
	_, err = m.Get(ctx, "schema")
	assert.NoError(t, err, "still fresh just before the ttl")

	now = now.Add(time.Second)
	_, err = m.Get(ctx, "schema")
	assert.ErrorIs(t, err, ErrMiss, "expired at the ttl")
}

func TestMemory_LastWriteWins(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", []byte("one"), time.Minute))
	require.NoError(t, m.Set(ctx, "k", []byte("two"), time.Minute))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "two", string(got))
}

func TestDial_BadURL(t *testing.T) {
	_, err := Dial("not a url")
	assert.Error(t, err)
}
