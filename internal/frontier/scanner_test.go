package frontier_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"realm-server/internal/direction"
	"realm-server/internal/frontier"
	"realm-server/internal/models"
	"realm-server/internal/worldgraph"
)

func seedGraph(t *testing.T, locs ...*models.Location) worldgraph.Repository {
	t.Helper()
	repo := worldgraph.NewMemoryRepository()
	ctx := context.Background()
	for _, loc := range locs {
		require.NoError(t, repo.UpsertLocation(ctx, loc))
	}
	for _, loc := range locs {
		for _, e := range loc.Exits {
			require.NoError(t, repo.EnsureExit(ctx, e))
		}
	}
	return repo
}

func TestScanner_MissingReciprocal(t *testing.T) {
	aID, bID := uuid.New(), uuid.New()
	a := &models.Location{ID: aID, Name: "A", Exits: []models.ExitEdge{
		{FromLocationID: aID, ToLocationID: bID, Direction: direction.North},
	}}
	b := &models.Location{ID: bID, Name: "B"}
	repo := seedGraph(t, a, b)

	scanner := frontier.NewScanner(repo, nil, zap.NewNop(), nil)
	report, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.Empty(t, report.DanglingExits)
	assert.Empty(t, report.OrphanLocations)
	require.Len(t, report.MissingReciprocalExits, 1)
	finding := report.MissingReciprocalExits[0]
	assert.Equal(t, aID, finding.From)
	assert.Equal(t, bID, finding.To)
	assert.Equal(t, direction.North, finding.Direction)
	assert.Equal(t, direction.South, finding.ExpectedReverse)
}

func TestScanner_ReciprocalPairIsClean(t *testing.T) {
	aID, bID := uuid.New(), uuid.New()
	a := &models.Location{ID: aID, Name: "A", Exits: []models.ExitEdge{
		{FromLocationID: aID, ToLocationID: bID, Direction: direction.North},
	}}
	b := &models.Location{ID: bID, Name: "B", Exits: []models.ExitEdge{
		{FromLocationID: bID, ToLocationID: aID, Direction: direction.South},
	}}
	repo := seedGraph(t, a, b)

	scanner := frontier.NewScanner(repo, nil, zap.NewNop(), nil)
	report, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Clean())
	assert.Equal(t, 2, report.ScannedLocations)
	assert.Equal(t, 2, report.ScannedEdges)
}

func TestScanner_DanglingExit(t *testing.T) {
	aID, ghostID := uuid.New(), uuid.New()
	a := &models.Location{ID: aID, Name: "A"}
	b := &models.Location{ID: uuid.New(), Name: "B"}

	snapshot := &worldgraph.Snapshot{Locations: []models.Location{*a, *b}}
	snapshot.Locations[0].Exits = []models.ExitEdge{
		{FromLocationID: aID, ToLocationID: ghostID, Direction: direction.East},
	}

	scanner := frontier.NewScanner(nil, nil, zap.NewNop(), []uuid.UUID{b.ID})
	report := scanner.Audit(snapshot)

	require.Len(t, report.DanglingExits, 1)
	assert.Equal(t, ghostID, report.DanglingExits[0].ToLocationID)
	// A dangling edge is excluded from reciprocity: the target does not
	// exist to check against.
	assert.Empty(t, report.MissingReciprocalExits)
}

func TestScanner_Orphans(t *testing.T) {
	seed := &models.Location{ID: uuid.New(), Name: "Seed"}
	stray := &models.Location{ID: uuid.New(), Name: "Stray"}
	snapshot := &worldgraph.Snapshot{Locations: []models.Location{*seed, *stray}}

	scanner := frontier.NewScanner(nil, nil, zap.NewNop(), []uuid.UUID{seed.ID})
	report := scanner.Audit(snapshot)

	assert.Equal(t, []uuid.UUID{stray.ID}, report.OrphanLocations)
}
