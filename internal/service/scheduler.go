package service

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"linkmesh/internal/repository"
)

// Scheduler drives periodic reconciliation: every tick it lists the known
// topology sources and updates them. Different sources run in parallel up to
// a limit; updates for the same source are serialized by the reconciler.
type Scheduler struct {
	repo        repository.Repository
	reconciler  *Reconciler
	interval    time.Duration
	maxParallel int
}

// NewScheduler creates a new scheduler.
func NewScheduler(repo repository.Repository, reconciler *Reconciler, interval time.Duration, maxParallel int) *Scheduler {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Scheduler{
		repo:        repo,
		reconciler:  reconciler,
		interval:    interval,
		maxParallel: maxParallel,
	}
}

// Run blocks until the context is cancelled, reconciling all sources once at
// startup and then on every tick. A failed update is logged and retried on
// the next scheduled run.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	sources, err := s.repo.ListTopologies(ctx)
	if err != nil {
		log.Printf("scheduler: failed to list topology sources: %v", err)
		return
	}

	var g errgroup.Group
	g.SetLimit(s.maxParallel)
	for _, source := range sources {
		g.Go(func() error {
			if err := s.reconciler.Update(ctx, source); err != nil {
				log.Printf("scheduler: update %s failed: %v", source.Slug, err)
			}
			return nil
		})
	}
	g.Wait()
}
