// Package service orchestrates player-facing operations over the world
// graph, the player store, and the event transport.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realm-server/internal/direction"
	"realm-server/internal/events"
	"realm-server/internal/frontier"
	"realm-server/internal/hint"
	"realm-server/internal/models"
	"realm-server/internal/player"
	"realm-server/internal/telemetry"
	"realm-server/internal/worldgraph"
)

// MoveStatus classifies the player-facing result of a move attempt.
type MoveStatus string

const (
	// MoveStatusMoved means the player arrived at a new location.
	MoveStatusMoved MoveStatus = "moved"
	// MoveStatusClarify means the input needs correction; nothing changed.
	MoveStatusClarify MoveStatus = "clarify"
	// MoveStatusPending means the direction resolved but the area is not
	// generated yet; a hint may have been recorded.
	MoveStatusPending MoveStatus = "pending"
	// MoveStatusBlocked means the direction is permanently impassable.
	MoveStatusBlocked MoveStatus = "blocked"
)

// MoveRequest is one movement attempt.
type MoveRequest struct {
	PlayerID uuid.UUID
	Input    string
	// OriginLocationID is honored only for guest players; authenticated
	// players always move from their stored location.
	OriginLocationID uuid.UUID
}

// MoveResult is the player-facing outcome of a move attempt.
type MoveResult struct {
	Status        MoveStatus
	Direction     direction.Direction
	Location      *models.Location
	Clarification string
	HintRecorded  bool
}

// MovementService turns free-form movement input into a world-graph
// transition or a deferred-generation request.
type MovementService struct {
	normalizer *direction.Normalizer
	graph      worldgraph.Repository
	players    player.Repository
	policy     *frontier.Policy
	hints      hint.Store
	publisher  events.Publisher
	metrics    *telemetry.Recorder
	logger     *zap.Logger
}

// NewMovementService wires the movement core.
func NewMovementService(
	normalizer *direction.Normalizer,
	graph worldgraph.Repository,
	players player.Repository,
	policy *frontier.Policy,
	hints hint.Store,
	publisher events.Publisher,
	metrics *telemetry.Recorder,
	logger *zap.Logger,
) *MovementService {
	return &MovementService{
		normalizer: normalizer,
		graph:      graph,
		players:    players,
		policy:     policy,
		hints:      hints,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger.Named("MovementService"),
	}
}

// Move resolves the input, walks the edge when one exists, and otherwise
// records a debounced generation hint. The player's stored location is the
// single source of truth: when persisting the new location fails, the whole
// move fails even though the graph lookup succeeded.
func (s *MovementService) Move(ctx context.Context, req MoveRequest) (*MoveResult, error) {
	p, err := s.players.Get(ctx, req.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load player %s: %w", req.PlayerID, err)
	}

	originID := p.CurrentLocationID
	if p.Guest && req.OriginLocationID != uuid.Nil {
		originID = req.OriginLocationID
	}
	origin, err := s.graph.GetLocation(ctx, originID)
	if err != nil {
		s.metrics.RecordMove("origin_missing")
		return nil, err
	}

	res := s.normalizer.Normalize(req.Input, p.LastHeading, exitContext(origin))
	switch res.Outcome {
	case direction.OutcomeAmbiguous, direction.OutcomeUnknown:
		s.metrics.RecordMove(string(res.Outcome))
		return &MoveResult{Status: MoveStatusClarify, Clarification: res.Clarification}, nil
	case direction.OutcomeGenerate:
		return s.handleGenerate(ctx, p, origin, res)
	case direction.OutcomeOK:
		// Defensive double-check: the exit context may be stale.
		if _, ok := origin.ExitIn(res.Direction); !ok {
			return s.handleGenerate(ctx, p, origin, res)
		}
	}

	dest, err := s.graph.Move(ctx, origin.ID, res.Direction)
	if err != nil {
		s.metrics.RecordMove(moveErrorOutcome(err))
		return nil, err
	}

	heading := res.Direction
	p.CurrentLocationID = dest.ID
	p.LastHeading = &heading
	if err := s.players.Update(ctx, p); err != nil {
		s.metrics.RecordMove("persist_failed")
		s.logger.Error("Failed to persist player location, reporting move as failed",
			zap.Stringer("player_id", p.ID),
			zap.Stringer("location_id", dest.ID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to persist player location: %w", err)
	}

	s.metrics.RecordMove("moved")
	s.logger.Info("Player moved",
		zap.Stringer("player_id", p.ID),
		zap.Stringer("from", origin.ID),
		zap.Stringer("to", dest.ID),
		zap.String("direction", heading.String()),
	)
	return &MoveResult{Status: MoveStatusMoved, Direction: heading, Location: dest}, nil
}

// handleGenerate confirms the direction is actually pending, records a
// debounced hint, and enqueues the expansion event without blocking the
// player's response on generation.
func (s *MovementService) handleGenerate(ctx context.Context, p *models.Player, origin *models.Location, res direction.Resolution) (*MoveResult, error) {
	state, marked := s.policy.Availability(origin, res.Direction)
	if marked && state == models.AvailabilityForbidden {
		s.metrics.RecordMove("blocked")
		return &MoveResult{
			Status:        MoveStatusBlocked,
			Direction:     res.Direction,
			Clarification: fmt.Sprintf("The way %s is impassable.", res.Direction),
		}, nil
	}
	if !marked {
		s.metrics.RecordMove("no_exit")
		return &MoveResult{
			Status:        MoveStatusClarify,
			Direction:     res.Direction,
			Clarification: res.Clarification,
		}, nil
	}

	decision, err := s.hints.ShouldEmit(ctx, p.ID, origin.ID, res.Direction)
	if err != nil {
		// A broken debounce store must not block the player; skip the hint.
		s.logger.Warn("Hint debounce check failed, skipping hint",
			zap.Stringer("player_id", p.ID),
			zap.Stringer("location_id", origin.ID),
			zap.Error(err),
		)
		decision = hint.Decision{}
	}
	if decision.DebounceHit {
		s.metrics.RecordDebounceHit()
	}
	if decision.Emit {
		if err := s.publishExpand(ctx, p, origin, res.Direction); err != nil {
			s.logger.Error("Failed to enqueue area expansion",
				zap.Stringer("location_id", origin.ID),
				zap.String("direction", res.Direction.String()),
				zap.Error(err),
			)
			decision.Emit = false
		}
	}

	s.metrics.RecordMove("pending")
	return &MoveResult{
		Status:        MoveStatusPending,
		Direction:     res.Direction,
		Clarification: res.Clarification,
		HintRecorded:  decision.Emit,
	}, nil
}

func (s *MovementService) publishExpand(ctx context.Context, p *models.Player, origin *models.Location, dir direction.Direction) error {
	// The expansion excludes the way back; when the player's heading is
	// unknown, treat the requested direction as the arrival so it is never
	// excluded from the candidates.
	arrival := dir
	if p.LastHeading != nil {
		arrival = *p.LastHeading
	}
	payload := events.AreaExpandBatchPayload{
		RootLocationID:   origin.ID,
		Terrain:          terrainOf(origin),
		ArrivalDirection: arrival,
		Depth:            1,
		BatchSize:        frontier.DefaultExitCap,
	}
	envelope, err := events.NewEnvelope(
		events.EventTypeAreaExpandBatch,
		events.Actor{Kind: events.ActorKindPlayer, ID: &p.ID},
		models.LocationScope(origin.ID),
		payload,
	)
	if err != nil {
		return err
	}
	return s.publisher.Publish(ctx, envelope)
}

// terrainOf reads a terrain tag off the location, defaulting to plains.
func terrainOf(loc *models.Location) events.Terrain {
	for _, tag := range loc.Tags {
		if t := events.Terrain(strings.ToLower(tag)); t.IsKnown() {
			return t
		}
	}
	return events.TerrainPlains
}

func exitContext(loc *models.Location) direction.ExitContext {
	ctx := direction.ExitContext{ExitDirections: loc.ExitDirections()}
	for _, e := range loc.Exits {
		if e.Description == "" {
			continue
		}
		if ctx.NamedExits == nil {
			ctx.NamedExits = make(map[string]direction.Direction)
		}
		ctx.NamedExits[strings.ToLower(e.Description)] = e.Direction
	}
	return ctx
}

func moveErrorOutcome(err error) string {
	switch {
	case errors.Is(err, models.ErrLocationNotFound):
		return "origin_missing"
	case errors.Is(err, models.ErrNoExit):
		return "no_exit"
	case errors.Is(err, models.ErrTargetLocationNotFound):
		return "target_missing"
	case errors.Is(err, models.ErrInvalidDirection):
		return "invalid_direction"
	default:
		return "error"
	}
}

// EnsurePlayer returns the stored player, creating a guest record at the
// start location when the id is unknown or nil.
func (s *MovementService) EnsurePlayer(ctx context.Context, id uuid.UUID, startLocationID uuid.UUID) (*models.Player, bool, error) {
	return s.players.GetOrCreate(ctx, id, startLocationID)
}
