package worldgraph_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realm-server/internal/direction"
	"realm-server/internal/models"
	"realm-server/internal/worldgraph"
)

func TestUpsertLocation_Versioning(t *testing.T) {
	ctx := context.Background()
	repo := worldgraph.NewMemoryRepository()
	id := uuid.New()

	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: id, Name: "Gate", Description: "old"}))

	loc, err := repo.GetLocation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, int64(1), loc.Version)

	t.Run("content change bumps the version", func(t *testing.T) {
		loc.Description = "new"
		require.NoError(t, repo.UpsertLocation(ctx, loc))
		got, err := repo.GetLocation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
	})

	t.Run("metadata-only touch keeps the version", func(t *testing.T) {
		got, err := repo.GetLocation(ctx, id)
		require.NoError(t, err)
		require.NoError(t, repo.UpsertLocation(ctx, got))
		again, err := repo.GetLocation(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, int64(2), again.Version)
	})
}

func TestEnsureExit(t *testing.T) {
	ctx := context.Background()
	repo := worldgraph.NewMemoryRepository()
	fromID, toID := uuid.New(), uuid.New()
	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: fromID, Name: "A"}))
	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: toID, Name: "B"}))

	edge := models.ExitEdge{FromLocationID: fromID, ToLocationID: toID, Direction: direction.North}
	require.NoError(t, repo.EnsureExit(ctx, edge))

	t.Run("re-ensuring is a no-op", func(t *testing.T) {
		require.NoError(t, repo.EnsureExit(ctx, edge))
		loc, err := repo.GetLocation(ctx, fromID)
		require.NoError(t, err)
		assert.Len(t, loc.Exits, 1)
	})

	t.Run("non-canonical direction is rejected", func(t *testing.T) {
		bad := models.ExitEdge{FromLocationID: fromID, ToLocationID: toID, Direction: "sideways"}
		assert.ErrorIs(t, repo.EnsureExit(ctx, bad), models.ErrInvalidDirection)
	})

	t.Run("missing origin is rejected", func(t *testing.T) {
		stray := models.ExitEdge{FromLocationID: uuid.New(), ToLocationID: toID, Direction: direction.East}
		assert.ErrorIs(t, repo.EnsureExit(ctx, stray), models.ErrLocationNotFound)
	})
}

func TestMove_TypedErrors(t *testing.T) {
	ctx := context.Background()
	repo := worldgraph.NewMemoryRepository()
	fromID, toID, ghostID := uuid.New(), uuid.New(), uuid.New()
	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: fromID, Name: "A"}))
	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: toID, Name: "B"}))
	require.NoError(t, repo.EnsureExit(ctx, models.ExitEdge{FromLocationID: fromID, ToLocationID: toID, Direction: direction.North}))
	require.NoError(t, repo.EnsureExit(ctx, models.ExitEdge{FromLocationID: fromID, ToLocationID: ghostID, Direction: direction.East}))

	t.Run("success returns the destination", func(t *testing.T) {
		dest, err := repo.Move(ctx, fromID, direction.North)
		require.NoError(t, err)
		assert.Equal(t, toID, dest.ID)
	})

	t.Run("non-canonical direction", func(t *testing.T) {
		_, err := repo.Move(ctx, fromID, "sideways")
		assert.ErrorIs(t, err, models.ErrInvalidDirection)
	})

	t.Run("missing origin", func(t *testing.T) {
		_, err := repo.Move(ctx, uuid.New(), direction.North)
		assert.ErrorIs(t, err, models.ErrLocationNotFound)
	})

	t.Run("no exit", func(t *testing.T) {
		_, err := repo.Move(ctx, fromID, direction.South)
		assert.ErrorIs(t, err, models.ErrNoExit)
	})

	t.Run("dangling target", func(t *testing.T) {
		_, err := repo.Move(ctx, fromID, direction.East)
		assert.ErrorIs(t, err, models.ErrTargetLocationNotFound)
	})

	t.Run("blocked edge behaves like no exit", func(t *testing.T) {
		blockedID := uuid.New()
		require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: blockedID, Name: "C"}))
		require.NoError(t, repo.EnsureExit(ctx, models.ExitEdge{
			FromLocationID: toID, ToLocationID: blockedID, Direction: direction.West, Blocked: true,
		}))
		_, err := repo.Move(ctx, toID, direction.West)
		assert.ErrorIs(t, err, models.ErrNoExit)
	})
}

func TestExitAvailability(t *testing.T) {
	ctx := context.Background()
	repo := worldgraph.NewMemoryRepository()
	id := uuid.New()
	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: id, Name: "Edge"}))

	require.NoError(t, repo.SetExitAvailability(ctx, id, direction.North, models.AvailabilityPending))
	require.NoError(t, repo.SetExitAvailability(ctx, id, direction.East, models.AvailabilityForbidden))
	// Setting the same mark twice never duplicates entries.
	require.NoError(t, repo.SetExitAvailability(ctx, id, direction.North, models.AvailabilityPending))

	loc, err := repo.GetLocation(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []direction.Direction{direction.North}, loc.ExitAvailability.Pending)
	assert.Equal(t, []direction.Direction{direction.East}, loc.ExitAvailability.Forbidden)

	require.NoError(t, repo.ClearExitAvailability(ctx, id, direction.North))
	loc, err = repo.GetLocation(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, loc.ExitAvailability.Pending)
	assert.Equal(t, []direction.Direction{direction.East}, loc.ExitAvailability.Forbidden)
}

func TestPruneLocation(t *testing.T) {
	ctx := context.Background()
	repo := worldgraph.NewMemoryRepository()
	aID, bID := uuid.New(), uuid.New()
	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: aID, Name: "A"}))
	require.NoError(t, repo.UpsertLocation(ctx, &models.Location{ID: bID, Name: "B"}))
	require.NoError(t, repo.EnsureExit(ctx, models.ExitEdge{FromLocationID: aID, ToLocationID: bID, Direction: direction.North}))

	t.Run("requires an operator reason", func(t *testing.T) {
		assert.ErrorIs(t, repo.PruneLocation(ctx, bID, ""), models.ErrInvalidInput)
	})

	t.Run("refuses while inbound edges exist", func(t *testing.T) {
		assert.ErrorIs(t, repo.PruneLocation(ctx, bID, "cleanup"), models.ErrLocationHasInboundEdges)
	})

	t.Run("prunes once inbound edges are removed", func(t *testing.T) {
		require.NoError(t, repo.RemoveExit(ctx, aID, direction.North))
		require.NoError(t, repo.PruneLocation(ctx, bID, "cleanup"))
		_, err := repo.GetLocation(ctx, bID)
		assert.ErrorIs(t, err, models.ErrLocationNotFound)
	})
}
