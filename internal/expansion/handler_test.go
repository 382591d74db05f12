package expansion_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"realm-server/internal/direction"
	"realm-server/internal/events"
	eventMocks "realm-server/internal/events/mocks"
	"realm-server/internal/expansion"
	"realm-server/internal/generation"
	genMocks "realm-server/internal/generation/mocks"
	"realm-server/internal/layers"
	"realm-server/internal/models"
	"realm-server/internal/worldgraph"
)

type batchFixture struct {
	graph     worldgraph.Repository
	layers    *layers.Store
	generator *genMocks.Generator
	publisher *eventMocks.Publisher
	handler   *expansion.BatchHandler
	root      *models.Location
}

func newBatchFixture(t *testing.T, root *models.Location) *batchFixture {
	t.Helper()
	graph := worldgraph.NewMemoryRepository()
	require.NoError(t, graph.UpsertLocation(context.Background(), root))

	f := &batchFixture{
		graph:     graph,
		layers:    layers.NewStore(layers.NewMemoryRepository(), 500, zap.NewNop()),
		generator: new(genMocks.Generator),
		publisher: new(eventMocks.Publisher),
		root:      root,
	}
	f.handler = expansion.NewBatchHandler(f.graph, f.layers, f.generator, f.publisher, nil, zap.NewNop())
	return f
}

func expandEnvelope(t *testing.T, p events.AreaExpandBatchPayload) *events.Envelope {
	t.Helper()
	actorID := uuid.New()
	env, err := events.NewEnvelope(
		events.EventTypeAreaExpandBatch,
		events.Actor{Kind: events.ActorKindPlayer, ID: &actorID},
		models.LocationScope(p.RootLocationID),
		p,
	)
	require.NoError(t, err)
	return &env
}

// publishedByType filters the publisher's recorded calls down to one event type.
func publishedByType(pub *eventMocks.Publisher, et events.EventType) []events.Envelope {
	var out []events.Envelope
	for _, call := range pub.Calls {
		env := call.Arguments.Get(1).(events.Envelope)
		if env.Type == et {
			out = append(out, env)
		}
	}
	return out
}

func TestBatchHandler_CreatesPlaceholdersAndHeroLayers(t *testing.T) {
	ctx := context.Background()
	f := newBatchFixture(t, &models.Location{ID: uuid.New(), Name: "Meadow"})
	payload := events.AreaExpandBatchPayload{
		RootLocationID:   f.root.ID,
		Terrain:          events.TerrainPlains,
		ArrivalDirection: direction.North,
		Depth:            1,
		BatchSize:        2,
	}

	f.generator.On("GenerateBatch", mock.Anything, mock.Anything).Return([]generation.Result{
		{Text: "Golden grass whispers underfoot."},
		{Text: "A low rise overlooks the plain."},
	}, nil)
	f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.Envelope")).Return(nil)

	require.NoError(t, f.handler.Handle(ctx, expandEnvelope(t, payload), &payload))

	// Plains grow clockwise from north; south is the way back and is skipped.
	wantDirs := []direction.Direction{direction.North, direction.Northeast}
	for i, dir := range wantDirs {
		id := expansion.PlaceholderID(f.root.ID, dir)
		loc, err := f.graph.GetLocation(ctx, id)
		require.NoError(t, err, "expected placeholder toward %s", dir)
		assert.Equal(t, "Unexplored Plains", loc.Name)
		assert.True(t, loc.HasTag(models.TagFrontierBoundary))
		assert.True(t, loc.HasTag("plains"))

		prose, err := f.layers.ResolveHeroProse(ctx, models.LocationScope(id), 0, loc.Description)
		require.NoError(t, err)
		assert.NotEqual(t, loc.Description, prose, "hero layer %d should replace the baseline", i)
	}

	exitCreates := publishedByType(f.publisher, events.EventTypeExitCreate)
	require.Len(t, exitCreates, 2)
	for i, env := range exitCreates {
		assert.Equal(t, events.ActorKindSystem, env.Actor.Kind)
		assert.Equal(t, expansion.ExitCreateKey(f.root.ID, wantDirs[i]), env.IdempotencyKey)
	}
	assert.Empty(t, publishedByType(f.publisher, events.EventTypeAreaExpandBatch),
		"depth 1 must not cascade")
}

func TestBatchHandler_CandidateExclusions(t *testing.T) {
	ctx := context.Background()
	ladder := uuid.New()
	root := &models.Location{
		ID:   uuid.New(),
		Name: "Sinkhole",
		Exits: []models.ExitEdge{
			{ToLocationID: ladder, Direction: direction.Up},
		},
		ExitAvailability: models.ExitAvailability{
			Pending:   []direction.Direction{direction.West, direction.Down},
			Forbidden: []direction.Direction{direction.North},
		},
	}
	root.Exits[0].FromLocationID = root.ID
	f := newBatchFixture(t, root)

	payload := events.AreaExpandBatchPayload{
		RootLocationID:   root.ID,
		Terrain:          events.TerrainCavern,
		ArrivalDirection: direction.East, // the way back is west
		Depth:            1,
		BatchSize:        10,
	}
	f.generator.On("GenerateBatch", mock.Anything, mock.Anything).Return(nil, models.ErrGenerationFailed)
	f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.Envelope")).Return(nil)

	require.NoError(t, f.handler.Handle(ctx, expandEnvelope(t, payload), &payload))

	// Pending marks lead, then the cavern preference order. West is the way
	// back, north is forbidden, and up already has an edge.
	wantDirs := []direction.Direction{direction.Down, direction.East, direction.In, direction.Out}
	for _, dir := range wantDirs {
		_, err := f.graph.GetLocation(ctx, expansion.PlaceholderID(root.ID, dir))
		assert.NoError(t, err, "expected placeholder toward %s", dir)
	}
	for _, dir := range []direction.Direction{direction.West, direction.North, direction.Up} {
		_, err := f.graph.GetLocation(ctx, expansion.PlaceholderID(root.ID, dir))
		assert.ErrorIs(t, err, models.ErrLocationNotFound, "no placeholder expected toward %s", dir)
	}
	assert.Len(t, publishedByType(f.publisher, events.EventTypeExitCreate), len(wantDirs))
}

func TestBatchHandler_RedeliveryReusesPlaceholders(t *testing.T) {
	ctx := context.Background()
	f := newBatchFixture(t, &models.Location{ID: uuid.New(), Name: "Meadow"})
	payload := events.AreaExpandBatchPayload{
		RootLocationID:   f.root.ID,
		Terrain:          events.TerrainCoast,
		ArrivalDirection: direction.South,
		Depth:            1,
		BatchSize:        3,
	}
	f.generator.On("GenerateBatch", mock.Anything, mock.Anything).Return(nil, models.ErrGenerationFailed)
	f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.Envelope")).Return(nil)

	env := expandEnvelope(t, payload)
	require.NoError(t, f.handler.Handle(ctx, env, &payload))
	require.NoError(t, f.handler.Handle(ctx, env, &payload))

	locs, err := f.graph.ListLocations(ctx)
	require.NoError(t, err)
	assert.Len(t, locs, 4, "retry must re-upsert the same placeholders, not mint new ones")

	exitCreates := publishedByType(f.publisher, events.EventTypeExitCreate)
	require.Len(t, exitCreates, 6)
	assert.Equal(t, exitCreates[0].IdempotencyKey, exitCreates[3].IdempotencyKey,
		"redelivered connectivity events carry the same idempotency key")
}

func TestBatchHandler_GenerationFailureKeepsBaseline(t *testing.T) {
	ctx := context.Background()
	f := newBatchFixture(t, &models.Location{ID: uuid.New(), Name: "Meadow"})
	payload := events.AreaExpandBatchPayload{
		RootLocationID:   f.root.ID,
		Terrain:          events.TerrainForest,
		ArrivalDirection: direction.South,
		Depth:            1,
		BatchSize:        1,
	}
	f.generator.On("GenerateBatch", mock.Anything, mock.Anything).
		Return(nil, errors.New("backend unavailable"))
	f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.Envelope")).Return(nil)

	require.NoError(t, f.handler.Handle(ctx, expandEnvelope(t, payload), &payload))

	// The way back is north, so the forest grows east first.
	id := expansion.PlaceholderID(f.root.ID, direction.East)
	loc, err := f.graph.GetLocation(ctx, id)
	require.NoError(t, err)

	prose, err := f.layers.ResolveHeroProse(ctx, models.LocationScope(id), 0, loc.Description)
	require.NoError(t, err)
	assert.Equal(t, loc.Description, prose, "failed generation keeps the baseline description")
}

func TestBatchHandler_DepthCascades(t *testing.T) {
	ctx := context.Background()
	f := newBatchFixture(t, &models.Location{ID: uuid.New(), Name: "Meadow"})
	payload := events.AreaExpandBatchPayload{
		RootLocationID:   f.root.ID,
		Terrain:          events.TerrainCoast,
		ArrivalDirection: direction.East,
		Depth:            2,
		BatchSize:        1,
	}
	f.generator.On("GenerateBatch", mock.Anything, mock.Anything).Return(nil, models.ErrGenerationFailed)
	f.publisher.On("Publish", mock.Anything, mock.AnythingOfType("events.Envelope")).Return(nil)

	parent := expandEnvelope(t, payload)
	require.NoError(t, f.handler.Handle(ctx, parent, &payload))

	children := publishedByType(f.publisher, events.EventTypeAreaExpandBatch)
	require.Len(t, children, 1)

	child := children[0]
	assert.Equal(t, parent.CorrelationID, child.CorrelationID)
	require.NotNil(t, child.CausationID)
	assert.Equal(t, parent.EventID, *child.CausationID)
	assert.Equal(t, events.ActorKindSystem, child.Actor.Kind)

	var childPayload events.AreaExpandBatchPayload
	require.NoError(t, json.Unmarshal(child.Payload, &childPayload))
	assert.Equal(t, 1, childPayload.Depth)
	assert.Equal(t, expansion.PlaceholderID(f.root.ID, direction.North), childPayload.RootLocationID)
	assert.Equal(t, direction.North, childPayload.ArrivalDirection)
}

func TestBatchHandler_MissingRootIsTerminal(t *testing.T) {
	f := newBatchFixture(t, &models.Location{ID: uuid.New(), Name: "Meadow"})
	payload := events.AreaExpandBatchPayload{
		RootLocationID:   uuid.New(),
		Terrain:          events.TerrainPlains,
		ArrivalDirection: direction.North,
		Depth:            1,
		BatchSize:        2,
	}

	err := f.handler.Handle(context.Background(), expandEnvelope(t, payload), &payload)
	require.Error(t, err)
	assert.True(t, events.IsTerminal(err), "a vanished root must not requeue forever")
	f.generator.AssertNotCalled(t, "GenerateBatch", mock.Anything, mock.Anything)
}
