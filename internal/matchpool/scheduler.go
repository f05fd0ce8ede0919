package matchpool

import (
	"context"
	"log"
	"time"
)

// Scheduler drives the nightly pool lifecycle: generating the new day's
// pools at the release hour and expiring superseded ones early each morning.
type Scheduler struct {
	service Service
	repo    Repository
	hour    int
}

func NewScheduler(service Service, repo Repository, releaseHour int) *Scheduler {
	return &Scheduler{service: service, repo: repo, hour: releaseHour}
}

func (s *Scheduler) Start(ctx context.Context) {
	// Pool generation at the daily release hour
	go s.runDaily(ctx, s.hour, 0, s.generatePools)

	// Expire yesterday's pools at 3 AM
	go s.runDaily(ctx, 3, 0, s.expirePools)
}

func (s *Scheduler) generatePools(ctx context.Context) error {
	return s.service.GenerateForAllActive(ctx, time.Now().Format(DateFormat))
}

func (s *Scheduler) expirePools(ctx context.Context) error {
	cutoff := s.service.CurrentPoolDate(time.Now())
	expired, err := s.repo.ExpireBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if expired > 0 {
		log.Printf("matchpool: expired %d pools older than %s", expired, cutoff)
	}
	return nil
}

func (s *Scheduler) runDaily(ctx context.Context, hour, minute int, task func(context.Context) error) {
	for {
		now := time.Now()
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		if now.After(next) {
			next = next.Add(24 * time.Hour)
		}

		timer := time.NewTimer(next.Sub(now))

		select {
		case <-timer.C:
			if err := task(ctx); err != nil {
				log.Printf("Scheduled task failed: %v", err)
			}
		case <-ctx.Done():
			timer.Stop()
			return
		}
	}
}
