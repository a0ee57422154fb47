// Package jobs contains background workers that run on a schedule.
// The orphan sweeper removes organizations left behind when profile creation
// failed after the organization row was already committed. Jobs are designed
// to be idempotent: re-running after a crash produces the same result as a
// clean run.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/mayukh2077/swift-org/internal/db/repositories"
	"github.com/mayukh2077/swift-org/internal/telemetry"
)

// OrphanSweeper periodically deletes organizations that no profile references.
// The signup handler compensates for a failed profile insert by deleting the
// organization it just created, but that delete can itself fail (process crash,
// database hiccup). The sweeper is the backstop that keeps such rows from
// accumulating.
type OrphanSweeper struct {
	orgRepo  *repositories.OrganizationRepository
	interval time.Duration
	stopChan chan struct{}
}

// NewOrphanSweeper creates a sweeper that runs every intervalMinutes minutes.
func NewOrphanSweeper(orgRepo *repositories.OrganizationRepository, intervalMinutes int) *OrphanSweeper {
	if intervalMinutes <= 0 {
		intervalMinutes = 60 // hourly by default
	}

	return &OrphanSweeper{
		orgRepo:  orgRepo,
		interval: time.Duration(intervalMinutes) * time.Minute,
		stopChan: make(chan struct{}),
	}
}

// Start runs the sweep loop until Stop is called or ctx is cancelled.
// It blocks, so callers should launch it on its own goroutine.
func (s *OrphanSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("orphan sweeper started", "interval", s.interval)

	// Run immediately on start
	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			slog.Info("orphan sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("orphan sweeper context cancelled")
			return
		}
	}
}

// Stop signals the sweep loop to exit.
func (s *OrphanSweeper) Stop() {
	close(s.stopChan)
}

func (s *OrphanSweeper) runSweep(ctx context.Context) {
	if s.orgRepo == nil {
		slog.Warn("orphan sweep: repository not configured, skipping")
		return
	}

	n, err := s.orgRepo.DeleteOrphans(ctx)
	if err != nil {
		slog.Error("orphan sweep failed", "error", err)
		return
	}

	if n > 0 {
		telemetry.OrphanOrganizationsSweptTotal.Add(float64(n))
		slog.Info("orphan sweep removed organizations", "count", n)
	}

	// Refresh the organization gauge while we are here; the sweep already
	// touched the table, so this is a cheap piggyback.
	total, err := s.orgRepo.Count(ctx)
	if err != nil {
		slog.Warn("orphan sweep: failed to count organizations", "error", err)
		return
	}
	telemetry.OrganizationsTotal.Set(float64(total))
}
