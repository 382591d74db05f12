package layers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realm-server/internal/models"
)

// DefaultHeroProseMaxLength bounds hero prose before it falls back to the
// baseline description.
const DefaultHeroProseMaxLength = 4000

// Store is the temporal description layer store.
type Store struct {
	repo               Repository
	logger             *zap.Logger
	heroProseMaxLength int
}

// NewStore creates a layer store.
func NewStore(repo Repository, heroProseMaxLength int, logger *zap.Logger) *Store {
	if heroProseMaxLength <= 0 {
		heroProseMaxLength = DefaultHeroProseMaxLength
	}
	return &Store{
		repo:               repo,
		logger:             logger.Named("LayerStore"),
		heroProseMaxLength: heroProseMaxLength,
	}
}

// SetLayerInterval creates a new immutable layer record. Existing layers are
// never mutated; overlapping intervals are permitted by design.
func (s *Store) SetLayerInterval(ctx context.Context, scopeID, layerType string, fromTick int64, toTick *int64, value string, metadata map[string]string) (models.DescriptionLayer, error) {
	if !models.ValidScopeKey(scopeID) {
		return models.DescriptionLayer{}, fmt.Errorf("%w: malformed scope key %q", models.ErrInvalidInput, scopeID)
	}
	if layerType == "" {
		return models.DescriptionLayer{}, fmt.Errorf("%w: layer type is required", models.ErrInvalidInput)
	}
	if toTick != nil && *toTick <= fromTick {
		return models.DescriptionLayer{}, fmt.Errorf("%w: toTick must exceed fromTick", models.ErrInvalidInput)
	}
	layer := models.DescriptionLayer{
		ID:                uuid.New().String(),
		ScopeID:           scopeID,
		LayerType:         layerType,
		Value:             value,
		EffectiveFromTick: fromTick,
		EffectiveToTick:   toTick,
		AuthoredAt:        time.Now().UTC(),
		Metadata:          metadata,
	}
	if err := s.repo.InsertLayer(ctx, layer); err != nil {
		return models.DescriptionLayer{}, fmt.Errorf("failed to insert layer for %s/%s: %w", scopeID, layerType, err)
	}
	s.logger.Debug("Layer created",
		zap.String("layer_id", layer.ID),
		zap.String("scope_id", scopeID),
		zap.String("layer_type", layerType),
		zap.Int64("from_tick", fromTick),
	)
	return layer, nil
}

// GetActiveLayer returns the layer of (scopeID, layerType) whose interval
// contains tick. When several overlap, the most recently authored one wins;
// equal timestamps break by ascending lexicographic id, keeping selection
// deterministic regardless of insertion order.
func (s *Store) GetActiveLayer(ctx context.Context, scopeID, layerType string, tick int64) (*models.DescriptionLayer, error) {
	all, err := s.repo.ListLayers(ctx, scopeID, layerType)
	if err != nil {
		return nil, fmt.Errorf("failed to list layers for %s/%s: %w", scopeID, layerType, err)
	}
	var active *models.DescriptionLayer
	for i := range all {
		l := &all[i]
		if !l.ContainsTick(tick) {
			continue
		}
		if active == nil || wins(l, active) {
			active = l
		}
	}
	if active == nil {
		return nil, models.ErrLayerNotFound
	}
	out := *active
	return &out, nil
}

// wins reports whether candidate beats current under last-authored-wins with
// the ascending-id tie-break.
func wins(candidate, current *models.DescriptionLayer) bool {
	if candidate.AuthoredAt.After(current.AuthoredAt) {
		return true
	}
	if candidate.AuthoredAt.Before(current.AuthoredAt) {
		return false
	}
	return candidate.ID < current.ID
}

// QueryLayerHistory returns all layers of (scopeID, layerType) intersecting
// [startTick, endTick] in ascending EffectiveFromTick order, inclusive of
// layers with an indefinite end. Nil bounds are unbounded.
func (s *Store) QueryLayerHistory(ctx context.Context, scopeID, layerType string, startTick, endTick *int64) ([]models.DescriptionLayer, error) {
	all, err := s.repo.ListLayers(ctx, scopeID, layerType)
	if err != nil {
		return nil, fmt.Errorf("failed to list layers for %s/%s: %w", scopeID, layerType, err)
	}
	var out []models.DescriptionLayer
	for _, l := range all {
		if startTick != nil && l.EffectiveToTick != nil && *l.EffectiveToTick <= *startTick {
			continue
		}
		if endTick != nil && l.EffectiveFromTick > *endTick {
			continue
		}
		out = append(out, l)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].EffectiveFromTick != out[j].EffectiveFromTick {
			return out[i].EffectiveFromTick < out[j].EffectiveFromTick
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ResolveHeroProse resolves the highest-priority narrative description for a
// scope at the given tick. Content failing basic validity (empty after
// trimming, or longer than the configured bound) is treated as absent and
// the baseline wins.
func (s *Store) ResolveHeroProse(ctx context.Context, scopeID string, tick int64, baseline string) (string, error) {
	layer, err := s.GetActiveLayer(ctx, scopeID, models.LayerTypeDynamic, tick)
	if err != nil {
		if errors.Is(err, models.ErrLayerNotFound) {
			return baseline, nil
		}
		return baseline, err
	}
	if !layer.IsHeroProse() {
		return baseline, nil
	}
	value := strings.TrimSpace(layer.Value)
	if value == "" || len(value) > s.heroProseMaxLength {
		s.logger.Warn("Hero prose layer failed validity check, falling back to baseline",
			zap.String("layer_id", layer.ID),
			zap.String("scope_id", scopeID),
			zap.Int("length", len(value)),
		)
		return baseline, nil
	}
	return value, nil
}

// Tick returns the current world tick for a location, lazily creating the
// clock on first access.
func (s *Store) Tick(ctx context.Context, locationID uuid.UUID) (int64, error) {
	clock, err := s.repo.GetClock(ctx, locationID)
	if err != nil {
		return 0, fmt.Errorf("failed to get clock for %s: %w", locationID, err)
	}
	now := time.Now().UTC()
	if clock == nil {
		fresh := models.LocationClock{
			LocationID:  locationID,
			ClockAnchor: 0,
			LastSynced:  now,
			Revision:    1,
		}
		if err := s.repo.SaveClock(ctx, fresh); err != nil {
			return 0, fmt.Errorf("failed to create clock for %s: %w", locationID, err)
		}
		return 0, nil
	}
	// One tick per wall-clock minute since the anchor was last synced.
	elapsed := int64(now.Sub(clock.LastSynced) / time.Minute)
	return clock.ClockAnchor + elapsed, nil
}
