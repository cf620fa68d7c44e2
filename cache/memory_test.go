package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rishabhrocktheparty-ai/Blackgpt/config"
)

func TestMemoryGetSet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, ok, err := m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", []byte("v1"), time.Minute))
	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	// returned bytes are a copy
	got[0] = 'X'
	again, _, _ := m.Get(ctx, "k")
	assert.Equal(t, []byte("v1"), again)
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v"), time.Second))
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNewSelectsBackend(t *testing.T) {
	ctx := context.Background()

	s, err := New(ctx, config.CacheConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(ctx, config.CacheConfig{Type: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	_, err = New(ctx, config.CacheConfig{Type: "memcached"})
	assert.Error(t, err)
}
