package layers

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"realm-server/internal/models"
)

// Table layout:
//
//	CREATE TABLE description_layers (
//	    id                  TEXT PRIMARY KEY,
//	    scope_id            TEXT NOT NULL,
//	    layer_type          TEXT NOT NULL,
//	    value               TEXT NOT NULL,
//	    effective_from_tick BIGINT NOT NULL,
//	    effective_to_tick   BIGINT,
//	    authored_at         TIMESTAMPTZ NOT NULL,
//	    metadata            JSONB
//	);
//	CREATE INDEX idx_layers_scope_type ON description_layers (scope_id, layer_type, effective_from_tick);
//
//	CREATE TABLE location_clocks (
//	    location_id  UUID PRIMARY KEY,
//	    clock_anchor BIGINT NOT NULL,
//	    last_synced  TIMESTAMPTZ NOT NULL,
//	    revision     BIGINT NOT NULL
//	);
type postgresRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a Postgres-backed layer repository.
func NewPostgresRepository(db *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepository{db: db, logger: logger.Named("LayerRepo")}
}

func (r *postgresRepository) InsertLayer(ctx context.Context, layer models.DescriptionLayer) error {
	query := `
        INSERT INTO description_layers (id, scope_id, layer_type, value, effective_from_tick, effective_to_tick, authored_at, metadata)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := r.db.Exec(ctx, query,
		layer.ID,
		layer.ScopeID,
		layer.LayerType,
		layer.Value,
		layer.EffectiveFromTick,
		layer.EffectiveToTick,
		layer.AuthoredAt,
		layer.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert description layer %s: %w", layer.ID, err)
	}
	return nil
}

func (r *postgresRepository) ListLayers(ctx context.Context, scopeID, layerType string) ([]models.DescriptionLayer, error) {
	query := `
        SELECT id, scope_id, layer_type, value, effective_from_tick, effective_to_tick, authored_at, metadata
        FROM description_layers
        WHERE scope_id = $1 AND layer_type = $2
        ORDER BY effective_from_tick, id
    `
	rows, err := r.db.Query(ctx, query, scopeID, layerType)
	if err != nil {
		return nil, fmt.Errorf("failed to list description layers: %w", err)
	}
	defer rows.Close()

	var out []models.DescriptionLayer
	for rows.Next() {
		var l models.DescriptionLayer
		if err := rows.Scan(&l.ID, &l.ScopeID, &l.LayerType, &l.Value,
			&l.EffectiveFromTick, &l.EffectiveToTick, &l.AuthoredAt, &l.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan description layer row: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *postgresRepository) GetClock(ctx context.Context, locationID uuid.UUID) (*models.LocationClock, error) {
	query := `
        SELECT location_id, clock_anchor, last_synced, revision
        FROM location_clocks
        WHERE location_id = $1
    `
	clock := &models.LocationClock{}
	err := r.db.QueryRow(ctx, query, locationID).Scan(
		&clock.LocationID,
		&clock.ClockAnchor,
		&clock.LastSynced,
		&clock.Revision,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get location clock %s: %w", locationID, err)
	}
	return clock, nil
}

func (r *postgresRepository) SaveClock(ctx context.Context, clock models.LocationClock) error {
	// Insert on first save (revision 1); otherwise an optimistic update
	// that only lands when the stored revision is one behind.
	if clock.Revision == 1 {
		tag, err := r.db.Exec(ctx, `
            INSERT INTO location_clocks (location_id, clock_anchor, last_synced, revision)
            VALUES ($1, $2, $3, 1)
            ON CONFLICT (location_id) DO NOTHING
        `, clock.LocationID, clock.ClockAnchor, clock.LastSynced)
		if err != nil {
			return fmt.Errorf("failed to create location clock %s: %w", clock.LocationID, err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrRevisionConflict
		}
		return nil
	}
	tag, err := r.db.Exec(ctx, `
        UPDATE location_clocks
        SET clock_anchor = $2, last_synced = $3, revision = $4
        WHERE location_id = $1 AND revision = $4 - 1
    `, clock.LocationID, clock.ClockAnchor, clock.LastSynced, clock.Revision)
	if err != nil {
		return fmt.Errorf("failed to save location clock %s: %w", clock.LocationID, err)
	}
	if tag.RowsAffected() == 0 {
		r.logger.Warn("Location clock revision conflict",
			zap.Stringer("location_id", clock.LocationID),
			zap.Int64("revision", clock.Revision),
		)
		return models.ErrRevisionConflict
	}
	return nil
}
