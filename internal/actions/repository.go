package actions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrActionNotFound = errors.New("action not found")

type Repository interface {
	// ClaimKey conditionally inserts the action. When the key is already
	// claimed the insert is a no-op and the existing row is returned with
	// claimed=false. This is the dedup point for the whole pipeline.
	ClaimKey(ctx context.Context, action *UserAction) (claimed bool, existing *UserAction, err error)
	Resolve(ctx context.Context, ownerID, idempotencyKey, status string, failReason *string) error
	// ReclaimFailed takes a FAILED key back to PENDING so its effects can
	// be re-run. Conditional on the current status, so concurrent retries
	// of the same key yield exactly one winner.
	ReclaimFailed(ctx context.Context, ownerID, idempotencyKey string) (bool, error)
	// LatestApplied returns the owner's most recent APPLIED action toward
	// the target within the lookback window, ErrActionNotFound when there
	// is none; lookbackDays <= 0 means no cutoff.
	LatestApplied(ctx context.Context, ownerID, targetID string, lookbackDays int) (*UserAction, error)
	HasPositiveToward(ctx context.Context, ownerID, targetID string) (bool, error)
	// ActedOnIDs lists all targets the owner has applied actions against
	// within the lookback window; lookbackDays <= 0 means no cutoff.
	ActedOnIDs(ctx context.Context, ownerID string, lookbackDays int) (map[string]struct{}, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) ClaimKey(ctx context.Context, action *UserAction) (bool, *UserAction, error) {
	query := `
		INSERT INTO user_actions (
			owner_id, idempotency_key, target_id, kind, status, pool_date, submitted_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, idempotency_key) DO NOTHING
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query,
		action.OwnerID, action.IdempotencyKey, action.TargetID,
		action.Kind, action.Status, action.PoolDate, action.SubmittedAt,
	).Scan(&action.ID)

	if err == nil {
		return true, nil, nil
	}
	if err != sql.ErrNoRows {
		return false, nil, fmt.Errorf("claim action key: %w", err)
	}

	// Lost the insert; surface the earlier submission
	var existing UserAction
	err = r.db.GetContext(ctx, &existing,
		`SELECT * FROM user_actions WHERE owner_id = $1 AND idempotency_key = $2`,
		action.OwnerID, action.IdempotencyKey)
	if err != nil {
		return false, nil, fmt.Errorf("load existing action: %w", err)
	}
	return false, &existing, nil
}

func (r *postgresRepository) Resolve(ctx context.Context, ownerID, idempotencyKey, status string, failReason *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE user_actions SET status = $1, fail_reason = $2 WHERE owner_id = $3 AND idempotency_key = $4`,
		status, failReason, ownerID, idempotencyKey)
	if err != nil {
		return fmt.Errorf("resolve action: %w", err)
	}
	return nil
}

func (r *postgresRepository) ReclaimFailed(ctx context.Context, ownerID, idempotencyKey string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE user_actions SET status = $1, fail_reason = NULL
		 WHERE owner_id = $2 AND idempotency_key = $3 AND status = $4`,
		StatusPending, ownerID, idempotencyKey, StatusFailed)
	if err != nil {
		return false, fmt.Errorf("reclaim action key: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reclaim action key: %w", err)
	}
	return rows > 0, nil
}

func (r *postgresRepository) LatestApplied(ctx context.Context, ownerID, targetID string, lookbackDays int) (*UserAction, error) {
	query := `
		SELECT * FROM user_actions
		WHERE owner_id = $1 AND target_id = $2 AND status = $3`
	args := []interface{}{ownerID, targetID, StatusApplied}

	// Same cutoff as ActedOnIDs: a candidate re-shown after the window
	// must be actionable again.
	if lookbackDays > 0 {
		query += ` AND submitted_at > NOW() - ($4 || ' days')::interval`
		args = append(args, fmt.Sprintf("%d", lookbackDays))
	}
	query += `
		ORDER BY submitted_at DESC
		LIMIT 1`

	var action UserAction
	err := r.db.GetContext(ctx, &action, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrActionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest applied action: %w", err)
	}
	return &action, nil
}

func (r *postgresRepository) HasPositiveToward(ctx context.Context, ownerID, targetID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS (
			SELECT 1 FROM user_actions
			WHERE owner_id = $1 AND target_id = $2
			  AND kind IN ($3, $4) AND status = $5
		)`
	err := r.db.GetContext(ctx, &exists, query, ownerID, targetID, KindLike, KindSuperLike, StatusApplied)
	if err != nil {
		return false, fmt.Errorf("positive action lookup: %w", err)
	}
	return exists, nil
}

func (r *postgresRepository) ActedOnIDs(ctx context.Context, ownerID string, lookbackDays int) (map[string]struct{}, error) {
	query := `
		SELECT DISTINCT target_id FROM user_actions
		WHERE owner_id = $1 AND status = $2`
	args := []interface{}{ownerID, StatusApplied}

	if lookbackDays > 0 {
		query += ` AND submitted_at > NOW() - ($3 || ' days')::interval`
		args = append(args, fmt.Sprintf("%d", lookbackDays))
	}

	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("acted-on lookup: %w", err)
	}

	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
