// Package expansion grows the world graph in response to area expansion
// events. Its handlers are idempotent end to end: placeholder ids are
// derived deterministically, so a retried delivery re-upserts the same
// locations instead of minting new ones.
package expansion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realm-server/internal/direction"
	"realm-server/internal/events"
	"realm-server/internal/generation"
	"realm-server/internal/layers"
	"realm-server/internal/models"
	"realm-server/internal/telemetry"
	"realm-server/internal/worldgraph"
)

// placeholderNamespace seeds deterministic placeholder location ids.
var placeholderNamespace = uuid.MustParse("7e3e4dd6-1f84-4c35-9f61-2a0f0c6b1a42")

// PlaceholderID derives the stable id of the location grown from origin in
// the given direction.
func PlaceholderID(originID uuid.UUID, dir direction.Direction) uuid.UUID {
	return uuid.NewSHA1(placeholderNamespace, []byte(originID.String()+":"+dir.String()))
}

// ExitCreateKey derives the idempotency key for the connectivity event of
// one origin/direction pair, so reciprocal edge creation is itself
// idempotent.
func ExitCreateKey(originID uuid.UUID, dir direction.Direction) string {
	return fmt.Sprintf("exit-create:%s:%s", originID, dir)
}

// BatchHandler processes World.Area.ExpandBatch events: it creates
// placeholder locations, requests prose for them, persists hero layers, and
// enqueues one connectivity event per new location.
type BatchHandler struct {
	graph     worldgraph.Repository
	layers    *layers.Store
	generator generation.Generator
	publisher events.Publisher
	metrics   *telemetry.Recorder
	logger    *zap.Logger
}

// NewBatchHandler wires the expansion orchestrator.
func NewBatchHandler(
	graph worldgraph.Repository,
	layerStore *layers.Store,
	generator generation.Generator,
	publisher events.Publisher,
	metrics *telemetry.Recorder,
	logger *zap.Logger,
) *BatchHandler {
	return &BatchHandler{
		graph:     graph,
		layers:    layerStore,
		generator: generator,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.Named("ExpandBatchHandler"),
	}
}

// Handle executes one expansion. Store failures are retryable; a vanished
// root location is terminal.
func (h *BatchHandler) Handle(ctx context.Context, envelope *events.Envelope, payload any) error {
	p, ok := payload.(*events.AreaExpandBatchPayload)
	if !ok {
		return events.Terminal(fmt.Errorf("%w: unexpected payload type %T", models.ErrInvalidPayload, payload))
	}

	root, err := h.graph.GetLocation(ctx, p.RootLocationID)
	if err != nil {
		if errors.Is(err, models.ErrLocationNotFound) {
			return events.Terminal(fmt.Errorf("expansion root %s: %w", p.RootLocationID, err))
		}
		return err
	}

	candidates := h.candidateDirections(root, p)
	if len(candidates) == 0 {
		h.logger.Info("Nothing to expand",
			zap.Stringer("root_id", root.ID),
			zap.String("terrain", string(p.Terrain)),
		)
		return nil
	}

	prose := h.generateProse(ctx, p.Terrain, candidates)

	for i, dir := range candidates {
		newID := PlaceholderID(root.ID, dir)
		loc := &models.Location{
			ID:          newID,
			Name:        placeholderNames[p.Terrain],
			Description: baselineDescriptions[p.Terrain],
			Tags:        []string{string(p.Terrain), models.TagFrontierBoundary},
		}
		if err := h.graph.UpsertLocation(ctx, loc); err != nil {
			return fmt.Errorf("failed to upsert placeholder %s: %w", newID, err)
		}
		if prose[i] != "" {
			if err := h.writeHeroLayer(ctx, newID, prose[i]); err != nil {
				return err
			}
		}
		if err := h.publishExitCreate(ctx, envelope, root.ID, newID, dir); err != nil {
			return err
		}
		if p.Depth > 1 {
			if err := h.publishChildExpand(ctx, envelope, newID, dir, p); err != nil {
				return err
			}
		}
	}

	h.logger.Info("Expanded area",
		zap.Stringer("root_id", root.ID),
		zap.String("terrain", string(p.Terrain)),
		zap.Int("locations", len(candidates)),
		zap.Int("depth", p.Depth),
	)
	return nil
}

// candidateDirections picks where to grow: pending marks first, then the
// terrain's preferred directions. The way the player came from, existing
// edges, and forbidden marks are always excluded.
func (h *BatchHandler) candidateDirections(root *models.Location, p *events.AreaExpandBatchPayload) []direction.Direction {
	wayBack := p.ArrivalDirection.Opposite()
	seen := make(map[direction.Direction]bool)
	var out []direction.Direction

	consider := func(d direction.Direction) {
		if seen[d] || d == wayBack || len(out) >= p.BatchSize {
			return
		}
		seen[d] = true
		if root.ExitAvailability.IsForbidden(d) {
			return
		}
		if _, exists := root.ExitIn(d); exists {
			return
		}
		out = append(out, d)
	}

	for _, d := range root.ExitAvailability.Pending {
		consider(d)
	}
	for _, d := range terrainCandidates[p.Terrain] {
		consider(d)
	}
	return out
}

// generateProse requests one description per candidate, degrading to empty
// entries when the backend fails so expansion never blocks on generation.
func (h *BatchHandler) generateProse(ctx context.Context, terrain events.Terrain, candidates []direction.Direction) []string {
	requests := make([]generation.Request, len(candidates))
	for i, dir := range candidates {
		requests[i] = generation.Request{
			Name:      placeholderNames[terrain],
			Terrain:   string(terrain),
			Direction: dir.String(),
		}
	}
	prose := make([]string, len(candidates))
	results, err := h.generator.GenerateBatch(ctx, requests)
	if err != nil {
		h.metrics.RecordGenerationFallback()
		h.logger.Warn("Generation failed, keeping baseline descriptions",
			zap.Int("batch_size", len(candidates)),
			zap.Error(err),
		)
		return prose
	}
	for i := range results {
		prose[i] = results[i].Text
	}
	return prose
}

func (h *BatchHandler) writeHeroLayer(ctx context.Context, locationID uuid.UUID, text string) error {
	tick, err := h.layers.Tick(ctx, locationID)
	if err != nil {
		return fmt.Errorf("failed to resolve clock for %s: %w", locationID, err)
	}
	_, err = h.layers.SetLayerInterval(ctx,
		models.LocationScope(locationID),
		models.LayerTypeDynamic,
		tick,
		nil, // indefinite
		text,
		map[string]string{
			models.LayerMetaReplaceBase: "true",
			models.LayerMetaRole:        models.LayerRoleHero,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to write hero layer for %s: %w", locationID, err)
	}
	return nil
}

func (h *BatchHandler) publishExitCreate(ctx context.Context, parent *events.Envelope, fromID, toID uuid.UUID, dir direction.Direction) error {
	child, err := parent.ChildEnvelope(
		events.EventTypeExitCreate,
		events.Actor{Kind: events.ActorKindSystem},
		ExitCreateKey(fromID, dir),
		events.ExitCreatePayload{
			FromLocationID: fromID,
			ToLocationID:   toID,
			Direction:      dir,
		},
	)
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, child)
}

func (h *BatchHandler) publishChildExpand(ctx context.Context, parent *events.Envelope, rootID uuid.UUID, arrival direction.Direction, p *events.AreaExpandBatchPayload) error {
	child, err := parent.ChildEnvelope(
		events.EventTypeAreaExpandBatch,
		events.Actor{Kind: events.ActorKindSystem},
		fmt.Sprintf("expand:%s:%d", rootID, p.Depth-1),
		events.AreaExpandBatchPayload{
			RootLocationID:   rootID,
			Terrain:          p.Terrain,
			ArrivalDirection: arrival,
			Depth:            p.Depth - 1,
			BatchSize:        p.BatchSize,
		},
	)
	if err != nil {
		return err
	}
	return h.publisher.Publish(ctx, child)
}
