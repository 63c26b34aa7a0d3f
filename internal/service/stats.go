package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/matrihub/matrihub-go/internal/domain"
)

// ============================================================
// Admin dashboard aggregates
// ============================================================

// GetDirectoryStats fans out the dashboard counts concurrently and reduces
// revenue over the approved ledger. Only approved requests contribute
// revenue; pending amounts are money not yet earned.
func (s *Directory) GetDirectoryStats(ctx context.Context) (*domain.DirectoryStats, error) {
	ctx, span := tracer.Start(ctx, "Directory.GetDirectoryStats")
	defer span.End()

	start := time.Now()
	defer func() { s.metrics.RecordRequestDuration("stats_aggregate", time.Since(start)) }()

	stats := &domain.DirectoryStats{}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.store.CountProfiles(gCtx)
		stats.TotalProfiles = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountProfilesBySex(gCtx, "male")
		stats.MaleProfiles = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountProfilesBySex(gCtx, "female")
		stats.FemaleProfiles = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountPremiumProfiles(gCtx)
		stats.PremiumProfiles = n
		return err
	})
	g.Go(func() error {
		approved, err := s.store.ListRequestsByStatus(gCtx, domain.RequestApproved)
		if err != nil {
			return err
		}
		stats.ApprovedRequests = int64(len(approved))
		for _, r := range approved {
			stats.TotalRevenue += r.Amount
		}
		return nil
	})
	g.Go(func() error {
		pending, err := s.store.ListRequestsByStatus(gCtx, domain.RequestPending)
		stats.PendingRequests = int64(len(pending))
		return err
	})

	if err := g.Wait(); err != nil {
		s.recordExternal(err)
		return nil, err
	}
	return stats, nil
}

// GetEngineMetrics exposes the policy engine's counters for the admin UI.
func (s *Directory) GetEngineMetrics() *domain.EngineMetrics {
	return s.metrics.GetEngineSnapshot()
}
