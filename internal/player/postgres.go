package player

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"realm-server/internal/models"
)

// Table layout:
//
//	CREATE TABLE players (
//	    id                  UUID PRIMARY KEY,
//	    current_location_id UUID NOT NULL,
//	    guest               BOOLEAN NOT NULL DEFAULT TRUE,
//	    created_utc         TIMESTAMPTZ NOT NULL,
//	    updated_utc         TIMESTAMPTZ NOT NULL,
//	    external_id         TEXT NOT NULL DEFAULT '',
//	    name                TEXT NOT NULL DEFAULT '',
//	    last_heading        TEXT
//	);
type postgresRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a Postgres-backed player store.
func NewPostgresRepository(db *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepository{db: db, logger: logger.Named("PlayerRepo")}
}

const playerColumns = `id, current_location_id, guest, created_utc, updated_utc, external_id, name, last_heading`

func (r *postgresRepository) Get(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`
	p := &models.Player{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.CurrentLocationID,
		&p.Guest,
		&p.CreatedUTC,
		&p.UpdatedUTC,
		&p.ExternalID,
		&p.Name,
		&p.LastHeading,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player %s: %w", id, err)
	}
	return p, nil
}

func (r *postgresRepository) GetOrCreate(ctx context.Context, id uuid.UUID, startLocationID uuid.UUID) (*models.Player, bool, error) {
	if id != uuid.Nil {
		p, err := r.Get(ctx, id)
		if err == nil {
			return p, false, nil
		}
		if !errors.Is(err, models.ErrPlayerNotFound) {
			return nil, false, err
		}
	} else {
		id = uuid.New()
	}

	now := time.Now().UTC()
	p := &models.Player{
		ID:                id,
		CurrentLocationID: startLocationID,
		Guest:             true,
		CreatedUTC:        now,
		UpdatedUTC:        now,
	}
	query := `
        INSERT INTO players (id, current_location_id, guest, created_utc, updated_utc, external_id, name, last_heading)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (id) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query,
		p.ID, p.CurrentLocationID, p.Guest, p.CreatedUTC, p.UpdatedUTC, p.ExternalID, p.Name, p.LastHeading,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create player %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		// A concurrent request created the record first; read it back.
		existing, getErr := r.Get(ctx, id)
		if getErr != nil {
			return nil, false, getErr
		}
		return existing, false, nil
	}
	r.logger.Info("Guest player created",
		zap.Stringer("player_id", p.ID),
		zap.Stringer("start_location_id", startLocationID),
	)
	return p, true, nil
}

func (r *postgresRepository) Update(ctx context.Context, p *models.Player) error {
	query := `
        UPDATE players
        SET current_location_id = $2, guest = $3, updated_utc = $4, external_id = $5, name = $6, last_heading = $7
        WHERE id = $1
    `
	p.UpdatedUTC = time.Now().UTC()
	tag, err := r.db.Exec(ctx, query,
		p.ID, p.CurrentLocationID, p.Guest, p.UpdatedUTC, p.ExternalID, p.Name, p.LastHeading,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrPlayerNotFound
	}
	return nil
}
