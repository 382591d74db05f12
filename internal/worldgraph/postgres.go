package worldgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"realm-server/internal/direction"
	"realm-server/internal/models"
)

// Table layout:
//
//	CREATE TABLE locations (
//	    id                UUID PRIMARY KEY,
//	    name              TEXT NOT NULL,
//	    description       TEXT NOT NULL,
//	    exit_availability JSONB,
//	    tags              TEXT[] NOT NULL DEFAULT '{}',
//	    version           BIGINT NOT NULL DEFAULT 1,
//	    exit_summary      TEXT NOT NULL DEFAULT '',
//	    created_utc       TIMESTAMPTZ NOT NULL,
//	    updated_utc       TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE exits (
//	    from_location_id UUID NOT NULL REFERENCES locations (id),
//	    direction        TEXT NOT NULL,
//	    to_location_id   UUID NOT NULL,
//	    description      TEXT NOT NULL DEFAULT '',
//	    blocked          BOOLEAN NOT NULL DEFAULT FALSE,
//	    position         INT NOT NULL,
//	    PRIMARY KEY (from_location_id, direction)
//	);
type postgresRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPostgresRepository creates a Postgres-backed world graph store.
func NewPostgresRepository(db *pgxpool.Pool, logger *zap.Logger) Repository {
	return &postgresRepository{db: db, logger: logger.Named("WorldGraphRepo")}
}

func (r *postgresRepository) GetLocation(ctx context.Context, id uuid.UUID) (*models.Location, error) {
	query := `
        SELECT id, name, description, exit_availability, tags, version, exit_summary, created_utc, updated_utc
        FROM locations
        WHERE id = $1
    `
	loc := &models.Location{}
	var availability []byte
	err := r.db.QueryRow(ctx, query, id).Scan(
		&loc.ID,
		&loc.Name,
		&loc.Description,
		&availability,
		&loc.Tags,
		&loc.Version,
		&loc.ExitSummary,
		&loc.CreatedUTC,
		&loc.UpdatedUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to get location %s: %w", id, err)
	}
	if len(availability) > 0 {
		if err := json.Unmarshal(availability, &loc.ExitAvailability); err != nil {
			return nil, fmt.Errorf("failed to decode exit availability for %s: %w", id, err)
		}
	}
	exits, err := r.loadExits(ctx, id)
	if err != nil {
		return nil, err
	}
	loc.Exits = exits
	return loc, nil
}

func (r *postgresRepository) loadExits(ctx context.Context, fromID uuid.UUID) ([]models.ExitEdge, error) {
	query := `
        SELECT from_location_id, direction, to_location_id, description, blocked
        FROM exits
        WHERE from_location_id = $1
        ORDER BY position
    `
	rows, err := r.db.Query(ctx, query, fromID)
	if err != nil {
		return nil, fmt.Errorf("failed to load exits for %s: %w", fromID, err)
	}
	defer rows.Close()

	var exits []models.ExitEdge
	for rows.Next() {
		var e models.ExitEdge
		if err := rows.Scan(&e.FromLocationID, &e.Direction, &e.ToLocationID, &e.Description, &e.Blocked); err != nil {
			return nil, fmt.Errorf("failed to scan exit row: %w", err)
		}
		exits = append(exits, e)
	}
	return exits, rows.Err()
}

func (r *postgresRepository) UpsertLocation(ctx context.Context, loc *models.Location) error {
	if loc.ID == uuid.Nil {
		return fmt.Errorf("%w: location id is required", models.ErrInvalidInput)
	}
	availability, err := json.Marshal(loc.ExitAvailability)
	if err != nil {
		return fmt.Errorf("failed to encode exit availability: %w", err)
	}
	// The version bumps only when content actually changed; availability and
	// summary updates are metadata-only touches.
	query := `
        INSERT INTO locations (id, name, description, exit_availability, tags, version, exit_summary, created_utc, updated_utc)
        VALUES ($1, $2, $3, $4, $5, 1, $6, now(), now())
        ON CONFLICT (id) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            exit_availability = EXCLUDED.exit_availability,
            tags = EXCLUDED.tags,
            exit_summary = EXCLUDED.exit_summary,
            updated_utc = now(),
            version = locations.version + CASE
                WHEN (locations.name, locations.description, locations.tags)
                     IS DISTINCT FROM (EXCLUDED.name, EXCLUDED.description, EXCLUDED.tags)
                THEN 1 ELSE 0 END
    `
	_, err = r.db.Exec(ctx, query,
		loc.ID,
		loc.Name,
		loc.Description,
		availability,
		loc.Tags,
		loc.RenderExitSummary(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert location %s: %w", loc.ID, err)
	}
	return nil
}

func (r *postgresRepository) EnsureExit(ctx context.Context, edge models.ExitEdge) error {
	if !edge.Direction.IsCanonical() {
		return models.ErrInvalidDirection
	}
	query := `
        INSERT INTO exits (from_location_id, direction, to_location_id, description, blocked, position)
        VALUES ($1, $2, $3, $4, $5,
            (SELECT COALESCE(MAX(position), -1) + 1 FROM exits WHERE from_location_id = $1))
        ON CONFLICT (from_location_id, direction) DO NOTHING
    `
	_, err := r.db.Exec(ctx, query,
		edge.FromLocationID,
		edge.Direction,
		edge.ToLocationID,
		edge.Description,
		edge.Blocked,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign_key_violation
			return models.ErrLocationNotFound
		}
		return fmt.Errorf("failed to ensure exit %s/%s: %w", edge.FromLocationID, edge.Direction, err)
	}
	return nil
}

func (r *postgresRepository) RemoveExit(ctx context.Context, fromID uuid.UUID, dir direction.Direction) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM exits WHERE from_location_id = $1 AND direction = $2`, fromID, dir)
	if err != nil {
		return fmt.Errorf("failed to remove exit %s/%s: %w", fromID, dir, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNoExit
	}
	return nil
}

func (r *postgresRepository) SetExitAvailability(ctx context.Context, locationID uuid.UUID, dir direction.Direction, state models.Availability) error {
	if !dir.IsCanonical() {
		return models.ErrInvalidDirection
	}
	if state != models.AvailabilityPending && state != models.AvailabilityForbidden {
		return fmt.Errorf("%w: unknown availability %q", models.ErrInvalidInput, state)
	}
	// Appends the direction to the pending or forbidden array unless it is
	// already there.
	query := `
        UPDATE locations
        SET exit_availability = jsonb_set(
                COALESCE(exit_availability, '{}'::jsonb),
                ARRAY[$3::text],
                COALESCE(exit_availability -> $3::text, '[]'::jsonb) ||
                    CASE WHEN COALESCE(exit_availability -> $3::text, '[]'::jsonb) ? $2::text
                         THEN '[]'::jsonb
                         ELSE to_jsonb($2::text) END,
                true),
            updated_utc = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, locationID, string(dir), string(state))
	if err != nil {
		return fmt.Errorf("failed to set exit availability for %s: %w", locationID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLocationNotFound
	}
	return nil
}

func (r *postgresRepository) ClearExitAvailability(ctx context.Context, locationID uuid.UUID, dir direction.Direction) error {
	query := `
        UPDATE locations
        SET exit_availability = jsonb_build_object(
                'pending', COALESCE(exit_availability -> 'pending', '[]'::jsonb) - $2::text,
                'forbidden', COALESCE(exit_availability -> 'forbidden', '[]'::jsonb) - $2::text),
            updated_utc = now()
        WHERE id = $1
    `
	tag, err := r.db.Exec(ctx, query, locationID, string(dir))
	if err != nil {
		return fmt.Errorf("failed to clear exit availability for %s: %w", locationID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLocationNotFound
	}
	return nil
}

func (r *postgresRepository) ListLocations(ctx context.Context) ([]models.Location, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, name, description, exit_availability, tags, version, exit_summary, created_utc, updated_utc
        FROM locations
        ORDER BY created_utc
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []models.Location
	for rows.Next() {
		var loc models.Location
		var availability []byte
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Description, &availability, &loc.Tags,
			&loc.Version, &loc.ExitSummary, &loc.CreatedUTC, &loc.UpdatedUTC); err != nil {
			return nil, fmt.Errorf("failed to scan location row: %w", err)
		}
		if len(availability) > 0 {
			if err := json.Unmarshal(availability, &loc.ExitAvailability); err != nil {
				return nil, fmt.Errorf("failed to decode exit availability for %s: %w", loc.ID, err)
			}
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Attach exits in one pass rather than one query per location.
	exitRows, err := r.db.Query(ctx, `
        SELECT from_location_id, direction, to_location_id, description, blocked
        FROM exits
        ORDER BY from_location_id, position
    `)
	if err != nil {
		return nil, fmt.Errorf("failed to list exits: %w", err)
	}
	defer exitRows.Close()

	byFrom := make(map[uuid.UUID][]models.ExitEdge)
	for exitRows.Next() {
		var e models.ExitEdge
		if err := exitRows.Scan(&e.FromLocationID, &e.Direction, &e.ToLocationID, &e.Description, &e.Blocked); err != nil {
			return nil, fmt.Errorf("failed to scan exit row: %w", err)
		}
		byFrom[e.FromLocationID] = append(byFrom[e.FromLocationID], e)
	}
	if err := exitRows.Err(); err != nil {
		return nil, err
	}
	for i := range locations {
		locations[i].Exits = byFrom[locations[i].ID]
	}
	return locations, nil
}

func (r *postgresRepository) Move(ctx context.Context, fromID uuid.UUID, dir direction.Direction) (*models.Location, error) {
	if !dir.IsCanonical() {
		return nil, models.ErrInvalidDirection
	}
	from, err := r.GetLocation(ctx, fromID)
	if err != nil {
		return nil, err
	}
	edge, ok := from.ExitIn(dir)
	if !ok || edge.Blocked {
		return nil, models.ErrNoExit
	}
	target, err := r.GetLocation(ctx, edge.ToLocationID)
	if err != nil {
		if errors.Is(err, models.ErrLocationNotFound) {
			return nil, models.ErrTargetLocationNotFound
		}
		return nil, err
	}
	return target, nil
}

func (r *postgresRepository) PruneLocation(ctx context.Context, id uuid.UUID, reason string) error {
	if reason == "" {
		return fmt.Errorf("%w: prune requires an operator reason", models.ErrInvalidInput)
	}
	var inbound int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM exits WHERE to_location_id = $1`, id).Scan(&inbound)
	if err != nil {
		return fmt.Errorf("failed to count inbound edges for %s: %w", id, err)
	}
	if inbound > 0 {
		return models.ErrLocationHasInboundEdges
	}
	r.logger.Warn("Pruning location",
		zap.Stringer("location_id", id),
		zap.String("reason", reason),
	)
	if _, err := r.db.Exec(ctx, `DELETE FROM exits WHERE from_location_id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete outbound exits for %s: %w", id, err)
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete location %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrLocationNotFound
	}
	return nil
}
