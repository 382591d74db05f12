package frontier_test

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"realm-server/internal/direction"
	"realm-server/internal/frontier"
	"realm-server/internal/models"
)

func TestSelectFrontierExits(t *testing.T) {
	t.Run("forbidden wins and each conflict warns once", func(t *testing.T) {
		core, logs := observer.New(zap.WarnLevel)
		policy := frontier.NewPolicy(zap.New(core))

		loc := &models.Location{
			ID:   uuid.New(),
			Name: "Cliff Edge",
			Tags: []string{models.TagFrontierBoundary},
			ExitAvailability: models.ExitAvailability{
				Pending:   []direction.Direction{direction.North, direction.South, direction.East},
				Forbidden: []direction.Direction{direction.South},
			},
		}

		got := policy.SelectFrontierExits(loc, 10)
		assert.Equal(t, []direction.Direction{direction.North, direction.East}, got)

		warnings := logs.All()
		assert.Len(t, warnings, 1)
		mentioned := false
		for _, f := range warnings[0].Context {
			if strings.Contains(f.String, "south") {
				mentioned = true
			}
		}
		assert.True(t, mentioned, "the warning should name the conflicting direction")
	})

	t.Run("declaration order is preserved", func(t *testing.T) {
		policy := frontier.NewPolicy(zap.NewNop())
		loc := &models.Location{
			ID: uuid.New(),
			ExitAvailability: models.ExitAvailability{
				Pending: []direction.Direction{direction.West, direction.Up, direction.North},
			},
		}
		got := policy.SelectFrontierExits(loc, 10)
		assert.Equal(t, []direction.Direction{direction.West, direction.Up, direction.North}, got)
	})

	t.Run("cap bounds the selection", func(t *testing.T) {
		policy := frontier.NewPolicy(zap.NewNop())
		loc := &models.Location{
			ID: uuid.New(),
			ExitAvailability: models.ExitAvailability{
				Pending: []direction.Direction{
					direction.North, direction.South, direction.East, direction.West,
				},
			},
		}
		got := policy.SelectFrontierExits(loc, 0)
		assert.Len(t, got, frontier.DefaultExitCap)
	})

	t.Run("no pending directions yields nil", func(t *testing.T) {
		policy := frontier.NewPolicy(zap.NewNop())
		loc := &models.Location{ID: uuid.New()}
		assert.Nil(t, policy.SelectFrontierExits(loc, 3))
	})
}

func TestAvailability(t *testing.T) {
	policy := frontier.NewPolicy(zap.NewNop())
	loc := &models.Location{
		ID: uuid.New(),
		ExitAvailability: models.ExitAvailability{
			Pending:   []direction.Direction{direction.North, direction.East},
			Forbidden: []direction.Direction{direction.East},
		},
	}

	state, ok := policy.Availability(loc, direction.North)
	assert.True(t, ok)
	assert.Equal(t, models.AvailabilityPending, state)

	state, ok = policy.Availability(loc, direction.East)
	assert.True(t, ok)
	assert.Equal(t, models.AvailabilityForbidden, state)

	_, ok = policy.Availability(loc, direction.West)
	assert.False(t, ok)
}
