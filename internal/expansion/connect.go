package expansion

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"realm-server/internal/events"
	"realm-server/internal/layers"
	"realm-server/internal/models"
	"realm-server/internal/worldgraph"
)

// ConnectHandler processes World.Exit.Create events, wiring the forward
// edge and its geometric reciprocal in one pass. EnsureExit is a no-op on
// an existing edge, so redeliveries converge to the same graph.
type ConnectHandler struct {
	graph  worldgraph.Repository
	logger *zap.Logger
}

// NewConnectHandler creates the connectivity handler.
func NewConnectHandler(graph worldgraph.Repository, logger *zap.Logger) *ConnectHandler {
	return &ConnectHandler{graph: graph, logger: logger.Named("ExitCreateHandler")}
}

// Handle creates both edges and clears the availability marks they resolve.
func (h *ConnectHandler) Handle(ctx context.Context, _ *events.Envelope, payload any) error {
	p, ok := payload.(*events.ExitCreatePayload)
	if !ok {
		return events.Terminal(fmt.Errorf("%w: unexpected payload type %T", models.ErrInvalidPayload, payload))
	}

	forward := models.ExitEdge{
		FromLocationID: p.FromLocationID,
		ToLocationID:   p.ToLocationID,
		Direction:      p.Direction,
		Description:    p.Description,
	}
	if err := h.graph.EnsureExit(ctx, forward); err != nil {
		return classifyGraphErr(fmt.Errorf("failed to ensure forward edge: %w", err))
	}

	reciprocal := models.ExitEdge{
		FromLocationID: p.ToLocationID,
		ToLocationID:   p.FromLocationID,
		Direction:      p.Direction.Opposite(),
	}
	if err := h.graph.EnsureExit(ctx, reciprocal); err != nil {
		return classifyGraphErr(fmt.Errorf("failed to ensure reciprocal edge: %w", err))
	}

	if err := h.graph.ClearExitAvailability(ctx, p.FromLocationID, p.Direction); err != nil {
		return classifyGraphErr(err)
	}
	if err := h.graph.ClearExitAvailability(ctx, p.ToLocationID, p.Direction.Opposite()); err != nil {
		return classifyGraphErr(err)
	}

	h.logger.Info("Connected locations",
		zap.Stringer("from", p.FromLocationID),
		zap.Stringer("to", p.ToLocationID),
		zap.String("direction", p.Direction.String()),
	)
	return nil
}

// classifyGraphErr turns missing-entity errors terminal; everything else
// stays retryable.
func classifyGraphErr(err error) error {
	if errors.Is(err, models.ErrLocationNotFound) || errors.Is(err, models.ErrInvalidDirection) {
		return events.Terminal(err)
	}
	return err
}

// DescribeHandler processes World.Description.Update events by appending a
// new temporal layer for the scope. Layers are immutable; updates never
// touch existing records.
type DescribeHandler struct {
	layers *layers.Store
	logger *zap.Logger
}

// NewDescribeHandler creates the description update handler.
func NewDescribeHandler(layerStore *layers.Store, logger *zap.Logger) *DescribeHandler {
	return &DescribeHandler{layers: layerStore, logger: logger.Named("DescriptionUpdateHandler")}
}

// Handle appends the layer described by the payload.
func (h *DescribeHandler) Handle(ctx context.Context, _ *events.Envelope, payload any) error {
	p, ok := payload.(*events.DescriptionUpdatePayload)
	if !ok {
		return events.Terminal(fmt.Errorf("%w: unexpected payload type %T", models.ErrInvalidPayload, payload))
	}

	layer, err := h.layers.SetLayerInterval(ctx,
		p.ScopeKey,
		p.LayerType,
		p.EffectiveFromTick,
		p.EffectiveToTick,
		p.Value,
		p.Metadata,
	)
	if err != nil {
		if errors.Is(err, models.ErrInvalidInput) {
			return events.Terminal(err)
		}
		return err
	}

	h.logger.Info("Appended description layer",
		zap.String("layer_id", layer.ID),
		zap.String("scope_id", layer.ScopeID),
		zap.String("layer_type", layer.LayerType),
	)
	return nil
}
