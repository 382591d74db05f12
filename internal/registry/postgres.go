package registry

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
//	CREATE TABLE processed_events (
//	    id              UUID PRIMARY KEY,
//	    idempotency_key TEXT NOT NULL UNIQUE,
//	    event_id        UUID NOT NULL,
//	    event_type      TEXT NOT NULL,
//	    correlation_id  UUID NOT NULL,
//	    processed_utc   TIMESTAMPTZ NOT NULL,
//	    actor_kind      TEXT NOT NULL,
//	    outcome         TEXT NOT NULL,
//	    expires_utc     TIMESTAMPTZ
//	);
type postgresRegistry struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRegistry creates a Postgres-backed processed-event registry.
func NewPostgresRegistry(db *pgxpool.Pool, logger *zap.Logger) Registry {
	return &postgresRegistry{db: db, logger: logger.Named("ProcessedEventRegistry")}
}

func (r *postgresRegistry) CheckProcessed(ctx context.Context, idempotencyKey string) (*ProcessedEventRecord, error) {
	query := `
        SELECT id, idempotency_key, event_id, event_type, correlation_id, processed_utc, actor_kind, outcome, expires_utc
        FROM processed_events
        WHERE idempotency_key = $1 AND (expires_utc IS NULL OR expires_utc > now())
    `
	rec := &ProcessedEventRecord{}
	err := r.db.QueryRow(ctx, query, idempotencyKey).Scan(
		&rec.ID,
		&rec.IdempotencyKey,
		&rec.EventID,
		&rec.EventType,
		&rec.CorrelationID,
		&rec.ProcessedUTC,
		&rec.ActorKind,
		&rec.Outcome,
		&rec.ExpiresUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check processed event: %w", err)
	}
	return rec, nil
}

func (r *postgresRegistry) MarkProcessed(ctx context.Context, rec ProcessedEventRecord) (bool, error) {
	// ON CONFLICT DO NOTHING makes the first writer win; a racing duplicate
	// delivery observes RowsAffected() == 0.
	query := `
        INSERT INTO processed_events (id, idempotency_key, event_id, event_type, correlation_id, processed_utc, actor_kind, outcome, expires_utc)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        ON CONFLICT (idempotency_key) DO NOTHING
    `
	tag, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.IdempotencyKey,
		rec.EventID,
		rec.EventType,
		rec.CorrelationID,
		rec.ProcessedUTC,
		rec.ActorKind,
		rec.Outcome,
		rec.ExpiresUTC,
	)
	if err != nil {
		return false, fmt.Errorf("failed to mark event processed: %w", err)
	}
	inserted := tag.RowsAffected() == 1
	if !inserted {
		r.logger.Debug("MarkProcessed lost the insert race",
			zap.String("idempotency_key", rec.IdempotencyKey),
			zap.Stringer("event_id", rec.EventID),
		)
	}
	return inserted, nil
}

func (r *postgresRegistry) GetByID(ctx context.Context, id uuid.UUID) (*ProcessedEventRecord, error) {
	query := `
        SELECT id, idempotency_key, event_id, event_type, correlation_id, processed_utc, actor_kind, outcome, expires_utc
        FROM processed_events
        WHERE id = $1
    `
	rec := &ProcessedEventRecord{}
	err := r.db.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.IdempotencyKey,
		&rec.EventID,
		&rec.EventType,
		&rec.CorrelationID,
		&rec.ProcessedUTC,
		&rec.ActorKind,
		&rec.Outcome,
		&rec.ExpiresUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get processed event by id: %w", err)
	}
	return rec, nil
}
