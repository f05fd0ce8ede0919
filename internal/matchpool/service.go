package matchpool

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tpg-connect/connect-backend/internal/directory"
	"github.com/tpg-connect/connect-backend/internal/notify"
	"github.com/tpg-connect/connect-backend/internal/safety"
)

var (
	ErrPoolNotReady         = errors.New("today's matches are not ready yet")
	ErrGenerationInProgress = errors.New("pool generation already in progress")
)

// ActionLookup is implemented by the actions package; it breaks what would
// otherwise be an import cycle between pool generation and action history.
type ActionLookup interface {
	ActedOnIDs(ctx context.Context, ownerID string, lookbackDays int) (map[string]struct{}, error)
}

// ServiceConfig carries the pool lifecycle knobs
type ServiceConfig struct {
	ReleaseHour       int
	BatchSize         int
	LookbackDays      int
	AlgorithmVersion  string
	GenerationLockTTL time.Duration
	LookupTimeout     time.Duration
}

type Service interface {
	// GenerateDailyPool builds and persists the pool for (userID, date).
	// Safe to call more than once; repeat calls return the existing pool.
	GenerateDailyPool(ctx context.Context, userID, poolDate string) (*MatchPool, error)
	// GenerateForAllActive runs generation for every active user, skipping
	// failures so one bad profile never blocks the nightly run.
	GenerateForAllActive(ctx context.Context, poolDate string) error
	GetNextMatches(ctx context.Context, userID string) (*NextMatchesResponse, error)
	GetStatus(ctx context.Context, userID string) (*PoolStatusResponse, error)
	GetCountdown(ctx context.Context, userID string) (*CountdownResponse, error)
	GetHistory(ctx context.Context, userID string, page, perPage int) (*PoolHistoryResponse, error)
	// RecordActionStats feeds per-batch action counts back onto the pool
	RecordActionStats(ctx context.Context, userID string, actions, matches int)
	// CurrentPoolDate exposes the release-window date for the reconciler
	CurrentPoolDate(now time.Time) string
}

type service struct {
	repo      Repository
	generator *Generator
	locker    Locker
	directory directory.Directory
	safety    safety.Service
	actions   ActionLookup
	notifier  notify.Notifier
	cfg       ServiceConfig
	now       func() time.Time
}

func NewService(
	repo Repository,
	generator *Generator,
	locker Locker,
	dir directory.Directory,
	safetySvc safety.Service,
	actions ActionLookup,
	notifier notify.Notifier,
	cfg ServiceConfig,
) Service {
	return &service{
		repo:      repo,
		generator: generator,
		locker:    locker,
		directory: dir,
		safety:    safetySvc,
		actions:   actions,
		notifier:  notifier,
		cfg:       cfg,
		now:       time.Now,
	}
}

// CurrentPoolDate returns the pool date whose release window contains now.
// Before the release hour the previous day's pool is still the live one.
func (s *service) CurrentPoolDate(now time.Time) string {
	if now.Hour() >= s.cfg.ReleaseHour {
		return now.Format(DateFormat)
	}
	return now.AddDate(0, 0, -1).Format(DateFormat)
}

func (s *service) GenerateDailyPool(ctx context.Context, userID, poolDate string) (*MatchPool, error) {
	if existing, err := s.repo.GetPool(ctx, userID, poolDate); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrPoolNotFound) {
		return nil, err
	}

	lockKey := userID + ":" + poolDate
	acquired, err := s.locker.Acquire(ctx, lockKey, s.cfg.GenerationLockTTL)
	if err != nil {
		// Redis trouble is not fatal; the unique constraint still protects us
		log.Printf("matchpool: lock acquire failed for %s: %v", lockKey, err)
	} else if !acquired {
		return nil, ErrGenerationInProgress
	} else {
		defer func() {
			if err := s.locker.Release(context.Background(), lockKey); err != nil {
				log.Printf("matchpool: lock release failed for %s: %v", lockKey, err)
			}
		}()
	}

	started := s.now()
	pool, err := s.buildAndPersist(ctx, userID, poolDate)
	if err != nil {
		if errors.Is(err, ErrPoolExists) {
			// A concurrent generator won the insert; serve its pool
			return s.repo.GetPool(ctx, userID, poolDate)
		}
		recordGeneration("error", time.Since(started).Seconds(), 0, false)
		return nil, err
	}
	recordGeneration("ok", time.Since(started).Seconds(), pool.TotalEntries, pool.LowSupply)

	s.notifier.NotifyUser(userID, notify.EventPoolReady, map[string]interface{}{
		"pool_id":   pool.ID,
		"pool_date": pool.PoolDate,
		"count":     pool.TotalEntries,
	})

	return pool, nil
}

func (s *service) buildAndPersist(ctx context.Context, userID, poolDate string) (*MatchPool, error) {
	// Directory and block-set lookups are bounded; a timeout aborts the
	// whole build without partial writes and the caller may retry.
	if s.cfg.LookupTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.LookupTimeout)
		defer cancel()
	}

	owner, err := s.directory.GetProfileSummary(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefs, err := s.directory.GetPreferences(ctx, userID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.directory.ListActiveCandidates(ctx, userID)
	if err != nil {
		return nil, err
	}

	blockSet, err := s.safety.GetBlockSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	actedOn, err := s.actions.ActedOnIDs(ctx, userID, s.cfg.LookbackDays)
	if err != nil {
		return nil, err
	}

	result := s.generator.Build(owner, prefs, candidates, func(cand *directory.ProfileSummary) bool {
		return s.safety.IsExcluded(ctx, blockSet, cand)
	}, actedOn)

	pool := &MatchPool{
		ID:               PoolID(userID, poolDate),
		UserID:           userID,
		PoolDate:         poolDate,
		Status:           PoolStatusReady,
		AlgorithmVersion: s.cfg.AlgorithmVersion,
		Filters:          result.Filters,
		Cursor:           0,
		TotalEntries:     len(result.Entries),
		LowSupply:        result.LowSupply,
		CreatedAt:        s.now(),
	}

	if err := s.repo.CreatePool(ctx, pool, result.Entries); err != nil {
		return nil, err
	}
	return pool, nil
}

func (s *service) GenerateForAllActive(ctx context.Context, poolDate string) error {
	userIDs, err := s.directory.ListActiveUserIDs(ctx)
	if err != nil {
		return err
	}

	var failures int
	for _, userID := range userIDs {
		if _, err := s.GenerateDailyPool(ctx, userID, poolDate); err != nil {
			if errors.Is(err, ErrGenerationInProgress) {
				continue
			}
			failures++
			log.Printf("matchpool: generation failed for user %s: %v", userID, err)
		}
	}

	log.Printf("matchpool: nightly generation done for %s (%d users, %d failures)",
		poolDate, len(userIDs), failures)
	return nil
}

func (s *service) GetNextMatches(ctx context.Context, userID string) (*NextMatchesResponse, error) {
	poolDate := s.CurrentPoolDate(s.now())

	pool, err := s.repo.GetPool(ctx, userID, poolDate)
	if errors.Is(err, ErrPoolNotFound) {
		return nil, ErrPoolNotReady
	}
	if err != nil {
		return nil, err
	}
	if pool.Status == PoolStatusBuilding {
		return nil, ErrPoolNotReady
	}

	advance, err := s.repo.AdvanceCursor(ctx, pool.ID, s.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	entries := []*PoolEntry{}
	if advance.End > advance.Start {
		entries, err = s.repo.GetEntries(ctx, pool.ID, advance.Start, advance.End)
		if err != nil {
			return nil, err
		}
		batchesServed.Inc()
	}

	return &NextMatchesResponse{
		PoolID:    pool.ID,
		PoolDate:  pool.PoolDate,
		Matches:   entries,
		Completed: advance.Completed,
		Remaining: advance.Total - advance.End,
	}, nil
}

func (s *service) GetStatus(ctx context.Context, userID string) (*PoolStatusResponse, error) {
	poolDate := s.CurrentPoolDate(s.now())

	pool, err := s.repo.GetPool(ctx, userID, poolDate)
	if errors.Is(err, ErrPoolNotFound) {
		return &PoolStatusResponse{Available: false}, nil
	}
	if err != nil {
		return nil, err
	}

	return &PoolStatusResponse{
		Available:        pool.Status != PoolStatusBuilding,
		PoolID:           pool.ID,
		PoolDate:         pool.PoolDate,
		Status:           pool.Status,
		TotalEntries:     pool.TotalEntries,
		Remaining:        pool.TotalEntries - pool.Cursor,
		ActionsSubmitted: pool.ActionsSubmitted,
		MatchesFound:     pool.MatchesFound,
		LowSupply:        pool.LowSupply,
	}, nil
}

func (s *service) GetCountdown(ctx context.Context, userID string) (*CountdownResponse, error) {
	now := s.now()
	poolDate := s.CurrentPoolDate(now)

	if _, err := s.repo.GetPool(ctx, userID, poolDate); err == nil {
		return &CountdownResponse{Available: true, NextReleaseAt: nextRelease(now, s.cfg.ReleaseHour)}, nil
	} else if !errors.Is(err, ErrPoolNotFound) {
		return nil, err
	}

	next := nextRelease(now, s.cfg.ReleaseHour)
	return &CountdownResponse{
		Available:        false,
		NextReleaseAt:    next,
		SecondsRemaining: int64(next.Sub(now).Seconds()),
	}, nil
}

func nextRelease(now time.Time, releaseHour int) time.Time {
	release := time.Date(now.Year(), now.Month(), now.Day(), releaseHour, 0, 0, 0, now.Location())
	if !now.Before(release) {
		release = release.AddDate(0, 0, 1)
	}
	return release
}

func (s *service) GetHistory(ctx context.Context, userID string, page, perPage int) (*PoolHistoryResponse, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 50 {
		perPage = 10
	}

	// Fetch one extra row to detect another page
	pools, err := s.repo.ListPools(ctx, userID, perPage+1, (page-1)*perPage)
	if err != nil {
		return nil, err
	}

	hasMore := false
	if len(pools) > perPage {
		hasMore = true
		pools = pools[:perPage]
	}

	return &PoolHistoryResponse{
		Pools:   pools,
		Page:    page,
		PerPage: perPage,
		HasMore: hasMore,
	}, nil
}

func (s *service) RecordActionStats(ctx context.Context, userID string, actions, matches int) {
	if actions == 0 && matches == 0 {
		return
	}
	poolDate := s.CurrentPoolDate(s.now())
	poolID := PoolID(userID, poolDate)
	if err := s.repo.IncrementStats(ctx, poolID, actions, matches); err != nil {
		log.Printf("matchpool: stats update failed for %s: %v", poolID, err)
	}
}
