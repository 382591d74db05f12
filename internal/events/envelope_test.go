package events_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realm-server/internal/direction"
	"realm-server/internal/events"
	"realm-server/internal/models"
)

func validExpandPayload() events.AreaExpandBatchPayload {
	return events.AreaExpandBatchPayload{
		RootLocationID:   uuid.New(),
		Terrain:          events.TerrainForest,
		ArrivalDirection: direction.North,
		Depth:            1,
		BatchSize:        3,
	}
}

func TestNewEnvelope(t *testing.T) {
	actorID := uuid.New()
	payload := validExpandPayload()
	env, err := events.NewEnvelope(
		events.EventTypeAreaExpandBatch,
		events.Actor{Kind: events.ActorKindPlayer, ID: &actorID},
		models.LocationScope(payload.RootLocationID),
		payload,
	)
	require.NoError(t, err)
	require.NoError(t, env.Validate())

	assert.NotEqual(t, uuid.Nil, env.EventID)
	assert.NotEqual(t, uuid.Nil, env.CorrelationID)
	assert.Nil(t, env.CausationID)
	assert.Equal(t, 1, env.Version)

	want := events.DeriveIdempotencyKey(
		events.ActorKindPlayer,
		events.EventTypeAreaExpandBatch,
		models.LocationScope(payload.RootLocationID),
		env.OccurredUTC,
	)
	assert.Equal(t, want, env.IdempotencyKey)
}

func TestDeriveIdempotencyKey(t *testing.T) {
	occurred := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	key := events.DeriveIdempotencyKey(events.ActorKindPlayer, events.EventTypeExitCreate, "location:abc", occurred)
	assert.Equal(t, "player:World.Exit.Create:location:abc:2026-03-14T09:26", key)

	t.Run("seconds collapse into the same bucket", func(t *testing.T) {
		later := events.DeriveIdempotencyKey(events.ActorKindPlayer, events.EventTypeExitCreate, "location:abc", occurred.Add(5*time.Second))
		assert.Equal(t, key, later)
	})

	t.Run("the next minute is a different bucket", func(t *testing.T) {
		later := events.DeriveIdempotencyKey(events.ActorKindPlayer, events.EventTypeExitCreate, "location:abc", occurred.Add(time.Minute))
		assert.NotEqual(t, key, later)
	})
}

func TestChildEnvelope(t *testing.T) {
	actorID := uuid.New()
	parent, err := events.NewEnvelope(
		events.EventTypeAreaExpandBatch,
		events.Actor{Kind: events.ActorKindPlayer, ID: &actorID},
		"location:root",
		validExpandPayload(),
	)
	require.NoError(t, err)

	child, err := parent.ChildEnvelope(
		events.EventTypeExitCreate,
		events.Actor{Kind: events.ActorKindSystem},
		"exit-create:root:north",
		events.ExitCreatePayload{FromLocationID: uuid.New(), ToLocationID: uuid.New(), Direction: direction.North},
	)
	require.NoError(t, err)
	require.NoError(t, child.Validate())

	assert.Equal(t, parent.CorrelationID, child.CorrelationID)
	require.NotNil(t, child.CausationID)
	assert.Equal(t, parent.EventID, *child.CausationID)
	assert.NotEqual(t, parent.EventID, child.EventID)
	assert.Equal(t, "exit-create:root:north", child.IdempotencyKey)
}

func TestEnvelopeValidate(t *testing.T) {
	actorID := uuid.New()
	base, err := events.NewEnvelope(
		events.EventTypeAreaExpandBatch,
		events.Actor{Kind: events.ActorKindPlayer, ID: &actorID},
		"location:root",
		validExpandPayload(),
	)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(e *events.Envelope)
		want   error
	}{
		{"missing event id", func(e *events.Envelope) { e.EventID = uuid.Nil }, models.ErrInvalidEnvelope},
		{"missing idempotency key", func(e *events.Envelope) { e.IdempotencyKey = "" }, models.ErrInvalidEnvelope},
		{"zero version", func(e *events.Envelope) { e.Version = 0 }, models.ErrInvalidEnvelope},
		{"unknown type", func(e *events.Envelope) { e.Type = "World.Weather.Change" }, models.ErrUnknownEventType},
		{"unknown actor kind", func(e *events.Envelope) { e.Actor.Kind = "daemon" }, models.ErrInvalidEnvelope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := base
			tt.mutate(&env)
			assert.ErrorIs(t, env.Validate(), tt.want)
		})
	}

	t.Run("valid envelope passes", func(t *testing.T) {
		assert.NoError(t, base.Validate())
	})
}

func TestDecodePayload(t *testing.T) {
	envelopeFor := func(t *testing.T, et events.EventType, payload any) *events.Envelope {
		t.Helper()
		body, err := json.Marshal(payload)
		require.NoError(t, err)
		return &events.Envelope{
			EventID:        uuid.New(),
			Type:           et,
			OccurredUTC:    time.Now().UTC(),
			Actor:          events.Actor{Kind: events.ActorKindSystem},
			CorrelationID:  uuid.New(),
			IdempotencyKey: "k",
			Version:        1,
			Payload:        body,
		}
	}

	t.Run("expand batch round-trips", func(t *testing.T) {
		p := validExpandPayload()
		got, err := events.DecodePayload(envelopeFor(t, events.EventTypeAreaExpandBatch, p))
		require.NoError(t, err)
		decoded, ok := got.(*events.AreaExpandBatchPayload)
		require.True(t, ok)
		assert.Equal(t, p, *decoded)
	})

	t.Run("unknown terrain is rejected", func(t *testing.T) {
		p := validExpandPayload()
		p.Terrain = "swamp"
		_, err := events.DecodePayload(envelopeFor(t, events.EventTypeAreaExpandBatch, p))
		assert.ErrorIs(t, err, models.ErrInvalidPayload)
	})

	t.Run("non-canonical arrival direction is rejected", func(t *testing.T) {
		p := validExpandPayload()
		p.ArrivalDirection = "sideways"
		_, err := events.DecodePayload(envelopeFor(t, events.EventTypeAreaExpandBatch, p))
		assert.ErrorIs(t, err, models.ErrInvalidPayload)
	})

	t.Run("depth outside bounds is rejected", func(t *testing.T) {
		p := validExpandPayload()
		p.Depth = 99
		_, err := events.DecodePayload(envelopeFor(t, events.EventTypeAreaExpandBatch, p))
		assert.ErrorIs(t, err, models.ErrInvalidPayload)
	})

	t.Run("malformed scope key is rejected", func(t *testing.T) {
		p := events.DescriptionUpdatePayload{ScopeKey: "nowhere", LayerType: "dynamic", Value: "x"}
		_, err := events.DecodePayload(envelopeFor(t, events.EventTypeDescriptionUpdate, p))
		assert.ErrorIs(t, err, models.ErrInvalidPayload)
	})

	t.Run("inverted tick interval is rejected", func(t *testing.T) {
		to := int64(3)
		p := events.DescriptionUpdatePayload{
			ScopeKey: "location:abc", LayerType: "dynamic", Value: "x",
			EffectiveFromTick: 5, EffectiveToTick: &to,
		}
		_, err := events.DecodePayload(envelopeFor(t, events.EventTypeDescriptionUpdate, p))
		assert.ErrorIs(t, err, models.ErrInvalidPayload)
	})

	t.Run("unknown event type is rejected", func(t *testing.T) {
		env := envelopeFor(t, "World.Weather.Change", map[string]string{})
		_, err := events.DecodePayload(env)
		assert.ErrorIs(t, err, models.ErrUnknownEventType)
	})

	t.Run("malformed json is rejected", func(t *testing.T) {
		env := envelopeFor(t, events.EventTypeExitCreate, nil)
		env.Payload = json.RawMessage(`{"fromLocationId":`)
		_, err := events.DecodePayload(env)
		assert.ErrorIs(t, err, models.ErrInvalidPayload)
	})
}
