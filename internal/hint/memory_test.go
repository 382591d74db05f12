package hint_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realm-server/internal/direction"
	"realm-server/internal/hint"
)

func TestShouldEmit_DebounceWindow(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	store := hint.NewMemoryStore(5*time.Second, clock)

	ctx := context.Background()
	playerID, locationID := uuid.New(), uuid.New()

	first, err := store.ShouldEmit(ctx, playerID, locationID, direction.North)
	require.NoError(t, err)
	assert.Equal(t, hint.Decision{Emit: true, DebounceHit: false}, first)

	now = now.Add(2 * time.Second)
	second, err := store.ShouldEmit(ctx, playerID, locationID, direction.North)
	require.NoError(t, err)
	assert.Equal(t, hint.Decision{Emit: false, DebounceHit: true}, second)

	now = now.Add(4 * time.Second) // past the 5s window
	third, err := store.ShouldEmit(ctx, playerID, locationID, direction.North)
	require.NoError(t, err)
	assert.Equal(t, hint.Decision{Emit: true, DebounceHit: false}, third)
}

func TestShouldEmit_IndependentKeys(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := hint.NewMemoryStore(time.Minute, func() time.Time { return now })

	ctx := context.Background()
	p1, p2 := uuid.New(), uuid.New()
	loc := uuid.New()

	first, err := store.ShouldEmit(ctx, p1, loc, direction.North)
	require.NoError(t, err)
	assert.True(t, first.Emit)

	t.Run("different player never interferes", func(t *testing.T) {
		d, err := store.ShouldEmit(ctx, p2, loc, direction.North)
		require.NoError(t, err)
		assert.True(t, d.Emit)
	})

	t.Run("different direction never interferes", func(t *testing.T) {
		d, err := store.ShouldEmit(ctx, p1, loc, direction.East)
		require.NoError(t, err)
		assert.True(t, d.Emit)
	})

	t.Run("different location never interferes", func(t *testing.T) {
		d, err := store.ShouldEmit(ctx, p1, uuid.New(), direction.North)
		require.NoError(t, err)
		assert.True(t, d.Emit)
	})
}
