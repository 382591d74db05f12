package frontier

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realm-server/internal/direction"
	"realm-server/internal/models"
	"realm-server/internal/telemetry"
	"realm-server/internal/worldgraph"
)

// MissingReciprocal describes an edge A→B whose geometric reverse B→A does
// not exist.
type MissingReciprocal struct {
	From            uuid.UUID           `json:"from"`
	To              uuid.UUID           `json:"to"`
	Direction       direction.Direction `json:"direction"`
	ExpectedReverse direction.Direction `json:"expectedReverse"`
}

// Report collects the findings of one scan. The three finding classes are
// independent: an edge may appear in at most one of them.
type Report struct {
	ScannedLocations       int                 `json:"scannedLocations"`
	ScannedEdges           int                 `json:"scannedEdges"`
	DanglingExits          []models.ExitEdge   `json:"danglingExits"`
	OrphanLocations        []uuid.UUID         `json:"orphanLocations"`
	MissingReciprocalExits []MissingReciprocal `json:"missingReciprocalExits"`
	Duration               time.Duration       `json:"duration"`
}

// Clean reports whether the scan found no violations.
func (r *Report) Clean() bool {
	return len(r.DanglingExits) == 0 &&
		len(r.OrphanLocations) == 0 &&
		len(r.MissingReciprocalExits) == 0
}

// Scanner is a batch, read-only audit over a full graph snapshot. It only
// reports; repairs are left to an operator or a downstream job.
type Scanner struct {
	repo    worldgraph.Repository
	metrics *telemetry.Recorder
	logger  *zap.Logger
	// seedLocations are excluded from the orphan check: they are allowed to
	// exist before any edge reaches them.
	seedLocations map[uuid.UUID]struct{}
}

// NewScanner creates a graph consistency scanner.
func NewScanner(repo worldgraph.Repository, metrics *telemetry.Recorder, logger *zap.Logger, seedLocations []uuid.UUID) *Scanner {
	seeds := make(map[uuid.UUID]struct{}, len(seedLocations))
	for _, id := range seedLocations {
		seeds[id] = struct{}{}
	}
	return &Scanner{
		repo:          repo,
		metrics:       metrics,
		logger:        logger.Named("GraphScanner"),
		seedLocations: seeds,
	}
}

// Scan takes a snapshot of the graph and audits it.
func (s *Scanner) Scan(ctx context.Context) (*Report, error) {
	locations, err := s.repo.ListLocations(ctx)
	if err != nil {
		return nil, err
	}
	report := s.Audit(&worldgraph.Snapshot{Locations: locations})
	if report.Clean() {
		s.logger.Info("Graph scan clean",
			zap.Int("locations", report.ScannedLocations),
			zap.Int("edges", report.ScannedEdges),
			zap.Duration("duration", report.Duration),
		)
	} else {
		s.logger.Warn("Graph scan found violations",
			zap.Int("locations", report.ScannedLocations),
			zap.Int("edges", report.ScannedEdges),
			zap.Int("dangling_exits", len(report.DanglingExits)),
			zap.Int("orphan_locations", len(report.OrphanLocations)),
			zap.Int("missing_reciprocal_exits", len(report.MissingReciprocalExits)),
			zap.Duration("duration", report.Duration),
		)
	}
	return report, nil
}

// Audit checks a prepared snapshot without touching the store.
func (s *Scanner) Audit(snapshot *worldgraph.Snapshot) *Report {
	started := time.Now()

	known := make(map[uuid.UUID]struct{}, len(snapshot.Locations))
	for _, loc := range snapshot.Locations {
		known[loc.ID] = struct{}{}
	}

	report := &Report{ScannedLocations: len(snapshot.Locations)}
	hasEdge := make(map[uuid.UUID]bool, len(snapshot.Locations))
	type edgeKey struct {
		from uuid.UUID
		dir  direction.Direction
	}
	edges := make(map[edgeKey]uuid.UUID)

	for _, loc := range snapshot.Locations {
		for _, e := range loc.Exits {
			report.ScannedEdges++
			hasEdge[e.FromLocationID] = true
			if _, ok := known[e.ToLocationID]; !ok {
				report.DanglingExits = append(report.DanglingExits, e)
				continue
			}
			hasEdge[e.ToLocationID] = true
			edges[edgeKey{from: e.FromLocationID, dir: e.Direction}] = e.ToLocationID
		}
	}

	for _, loc := range snapshot.Locations {
		if hasEdge[loc.ID] {
			continue
		}
		if _, seed := s.seedLocations[loc.ID]; seed {
			continue
		}
		report.OrphanLocations = append(report.OrphanLocations, loc.ID)
	}

	// Dangling edges never enter the edges index, so they are excluded from
	// reciprocity checks: there is no target to check against.
	for key, to := range edges {
		if !key.dir.IsCanonical() {
			continue
		}
		reverse := key.dir.Opposite()
		if back, ok := edges[edgeKey{from: to, dir: reverse}]; !ok || back != key.from {
			report.MissingReciprocalExits = append(report.MissingReciprocalExits, MissingReciprocal{
				From:            key.from,
				To:              to,
				Direction:       key.dir,
				ExpectedReverse: reverse,
			})
		}
	}

	report.Duration = time.Since(started)
	s.metrics.RecordScannerFinding("dangling_exit", len(report.DanglingExits))
	s.metrics.RecordScannerFinding("orphan_location", len(report.OrphanLocations))
	s.metrics.RecordScannerFinding("missing_reciprocal_exit", len(report.MissingReciprocalExits))
	return report
}

// RunPeriodic scans on the given interval until the context is cancelled.
func (s *Scanner) RunPeriodic(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stopping periodic graph scan")
			return
		case <-ticker.C:
			if _, err := s.Scan(ctx); err != nil {
				s.logger.Error("Graph scan failed", zap.Error(err))
			}
		}
	}
}
