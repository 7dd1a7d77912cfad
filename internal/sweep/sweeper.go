// Package sweep closes bidding windows that have hit their limit and awards
// the job to a winner chosen by the configured arbiter.
package sweep

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/binarymachines/bxlogic/internal/bidding"
	"github.com/binarymachines/bxlogic/internal/metrics"
)

type Sweeper struct {
	svc      *bidding.Service
	repo     *bidding.Repo
	arbiter  bidding.Arbiter
	stats    *metrics.Collector
	interval time.Duration

	now func() time.Time
}

func New(svc *bidding.Service, arbiter bidding.Arbiter, stats *metrics.Collector, interval time.Duration) *Sweeper {
	return &Sweeper{
		svc:      svc,
		repo:     svc.Repo(),
		arbiter:  arbiter,
		stats:    stats,
		interval: interval,
		now:      time.Now,
	}
}

// Run sweeps on a fixed interval until the context is canceled. One failed
// pass is logged and does not stop the loop.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil {
				log.Printf("sweep: pass failed: %v", err)
			}
		}
	}
}

// SweepOnce examines every open window and awards the ones that are due.
// It returns the number of windows awarded in this pass.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	windows, err := s.repo.ListOpenWindows(ctx)
	if err != nil {
		return 0, err
	}

	awarded := 0
	for _, window := range windows {
		bids, err := s.repo.ActiveBidsForTag(ctx, window.JobTag)
		if err != nil {
			return awarded, err
		}
		if !s.due(window, len(bids)) {
			continue
		}

		winners := s.arbiter.SelectWinners(bids)
		if err := s.svc.Award(ctx, window.ID, winners); err != nil {
			// a concurrent sweeper already closed this window
			if errors.Is(err, bidding.ErrConflict) {
				continue
			}
			return awarded, err
		}
		awarded++
		s.stats.WindowAwarded()
		log.Printf("sweep: window %d for %s awarded to %d bidder(s)", window.ID, window.JobTag, len(winners))
	}

	s.stats.SweepCompleted()
	return awarded, nil
}

// due reports whether a window has hit its limit. A time-limited window with
// no bids stays open rather than awarding to nobody.
func (s *Sweeper) due(window bidding.BiddingWindow, bidCount int) bool {
	if bidCount == 0 {
		return false
	}
	switch window.LimitType {
	case bidding.LimitTypeTimeSeconds:
		return s.now().UTC().Sub(window.OpenTS) >= time.Duration(window.Limit)*time.Second
	case bidding.LimitTypeNumBids:
		return bidCount >= window.Limit
	default:
		return false
	}
}
