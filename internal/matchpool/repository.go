package matchpool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

var (
	ErrPoolNotFound = errors.New("match pool not found")
	ErrPoolExists   = errors.New("match pool already exists for this date")
)

// CursorAdvance is the outcome of one consumption step
type CursorAdvance struct {
	Start     int
	End       int
	Total     int
	Completed bool
}

type Repository interface {
	// CreatePool persists the pool and its entries in one transaction. The
	// (user_id, pool_date) unique constraint makes concurrent generation
	// first-writer-wins; losers get ErrPoolExists.
	CreatePool(ctx context.Context, pool *MatchPool, entries []*PoolEntry) error
	GetPool(ctx context.Context, userID, poolDate string) (*MatchPool, error)
	GetPoolByID(ctx context.Context, poolID string) (*MatchPool, error)
	GetEntries(ctx context.Context, poolID string, from, to int) ([]*PoolEntry, error)
	// AdvanceCursor atomically claims the next batch of entries. Concurrent
	// callers serialize on a row lock so no two requests see the same window.
	AdvanceCursor(ctx context.Context, poolID string, batchSize int) (*CursorAdvance, error)
	IncrementStats(ctx context.Context, poolID string, actions, matches int) error
	ListPools(ctx context.Context, userID string, limit, offset int) ([]*MatchPool, error)
	ExpireBefore(ctx context.Context, poolDate string) (int64, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreatePool(ctx context.Context, pool *MatchPool, entries []*PoolEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin pool transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO match_pools (
			id, user_id, pool_date, status, algorithm_version, filters,
			consumption_cursor, total_entries, low_supply, created_at, completed_at
		) VALUES (
			:id, :user_id, :pool_date, :status, :algorithm_version, :filters,
			:consumption_cursor, :total_entries, :low_supply, :created_at, :completed_at
		)
		ON CONFLICT (user_id, pool_date) DO NOTHING`

	result, err := tx.NamedExecContext(ctx, query, pool)
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert pool: %w", err)
	}
	if rows == 0 {
		return ErrPoolExists
	}

	entryQuery := `
		INSERT INTO pool_entries (
			pool_id, position, candidate_id, name, age, primary_photo_url,
			job_title, dating_intention, distance_km, score, shared_interests, reason
		) VALUES (
			:pool_id, :position, :candidate_id, :name, :age, :primary_photo_url,
			:job_title, :dating_intention, :distance_km, :score, :shared_interests, :reason
		)`

	for _, entry := range entries {
		entry.PoolID = pool.ID
		if _, err := tx.NamedExecContext(ctx, entryQuery, entry); err != nil {
			return fmt.Errorf("insert pool entry %d: %w", entry.Position, err)
		}
	}

	return tx.Commit()
}

func (r *postgresRepository) GetPool(ctx context.Context, userID, poolDate string) (*MatchPool, error) {
	var pool MatchPool
	query := `SELECT * FROM match_pools WHERE user_id = $1 AND pool_date = $2`
	err := r.db.GetContext(ctx, &pool, query, userID, poolDate)
	if err == sql.ErrNoRows {
		return nil, ErrPoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pool: %w", err)
	}
	return &pool, nil
}

func (r *postgresRepository) GetPoolByID(ctx context.Context, poolID string) (*MatchPool, error) {
	var pool MatchPool
	err := r.db.GetContext(ctx, &pool, `SELECT * FROM match_pools WHERE id = $1`, poolID)
	if err == sql.ErrNoRows {
		return nil, ErrPoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get pool by id: %w", err)
	}
	return &pool, nil
}

func (r *postgresRepository) GetEntries(ctx context.Context, poolID string, from, to int) ([]*PoolEntry, error) {
	entries := []*PoolEntry{}
	query := `
		SELECT * FROM pool_entries
		WHERE pool_id = $1 AND position >= $2 AND position < $3
		ORDER BY position`
	if err := r.db.SelectContext(ctx, &entries, query, poolID, from, to); err != nil {
		return nil, fmt.Errorf("get pool entries: %w", err)
	}
	return entries, nil
}

func (r *postgresRepository) AdvanceCursor(ctx context.Context, poolID string, batchSize int) (*CursorAdvance, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin cursor transaction: %w", err)
	}
	defer tx.Rollback()

	var pool MatchPool
	err = tx.GetContext(ctx, &pool,
		`SELECT * FROM match_pools WHERE id = $1 FOR UPDATE`, poolID)
	if err == sql.ErrNoRows {
		return nil, ErrPoolNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock pool: %w", err)
	}

	start := pool.Cursor
	end := start + batchSize
	if end > pool.TotalEntries {
		end = pool.TotalEntries
	}
	completed := end >= pool.TotalEntries

	status := pool.Status
	if completed && status == PoolStatusReady {
		status = PoolStatusConsumed
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE match_pools SET consumption_cursor = $1, status = $2 WHERE id = $3`,
		end, status, poolID)
	if err != nil {
		return nil, fmt.Errorf("advance cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit cursor: %w", err)
	}

	return &CursorAdvance{Start: start, End: end, Total: pool.TotalEntries, Completed: completed}, nil
}

func (r *postgresRepository) IncrementStats(ctx context.Context, poolID string, actions, matches int) error {
	query := `
		UPDATE match_pools
		SET actions_submitted = actions_submitted + $1,
		    matches_found = matches_found + $2,
		    completed_at = CASE
		        WHEN actions_submitted + $1 >= total_entries AND completed_at IS NULL THEN $3
		        ELSE completed_at
		    END
		WHERE id = $4`
	_, err := r.db.ExecContext(ctx, query, actions, matches, time.Now(), poolID)
	if err != nil {
		return fmt.Errorf("increment pool stats: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListPools(ctx context.Context, userID string, limit, offset int) ([]*MatchPool, error) {
	pools := []*MatchPool{}
	query := `
		SELECT * FROM match_pools
		WHERE user_id = $1
		ORDER BY pool_date DESC
		LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &pools, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return pools, nil
}

func (r *postgresRepository) ExpireBefore(ctx context.Context, poolDate string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE match_pools SET status = $1 WHERE pool_date < $2 AND status IN ($3, $4)`,
		PoolStatusExpired, poolDate, PoolStatusReady, PoolStatusConsumed)
	if err != nil {
		return 0, fmt.Errorf("expire pools: %w", err)
	}
	return result.RowsAffected()
}
