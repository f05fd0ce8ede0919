package safety

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
)

type Repository interface {
	// Direct blocks
	UpsertBlock(ctx context.Context, block *BlockedUser) error
	RemoveBlock(ctx context.Context, userID, blockedUserID string) (bool, error)
	GetActiveBlocks(ctx context.Context, userID string) ([]*BlockedUser, error)
	GetBlockedIDsBothDirections(ctx context.Context, userID string) ([]string, error)
	IsBlockedEitherWay(ctx context.Context, user1ID, user2ID string) (bool, error)

	// Pattern rules
	CreateRule(ctx context.Context, rule *BlockRule) error
	UpdateRule(ctx context.Context, rule *BlockRule) error
	DeleteRule(ctx context.Context, userID, ruleID string) (bool, error)
	GetEnabledRules(ctx context.Context, userID string) ([]*BlockRule, error)
	GetRules(ctx context.Context, userID string) ([]*BlockRule, error)
	IncrementRuleMatchCount(ctx context.Context, ruleID string) error

	// Reports
	CreateReport(ctx context.Context, report *UserReport) error
	CountReportsToday(ctx context.Context, reporterID, reportedID string) (int, error)
	CountRecentReports(ctx context.Context, reportedID string, since time.Time) (int, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// Direct block methods

func (r *postgresRepository) UpsertBlock(ctx context.Context, block *BlockedUser) error {
	query := `
		INSERT INTO user_blocks (id, user_id, blocked_user_id, reason, status, blocked_at)
		VALUES ($1, $2, $3, $4, 'ACTIVE', CURRENT_TIMESTAMP)
		ON CONFLICT (user_id, blocked_user_id)
		DO UPDATE SET status = 'ACTIVE', reason = $4, blocked_at = CURRENT_TIMESTAMP
		RETURNING blocked_at
	`

	return r.db.QueryRowxContext(
		ctx, query,
		block.ID, block.UserID, block.BlockedUserID, block.Reason,
	).Scan(&block.BlockedAt)
}

func (r *postgresRepository) RemoveBlock(ctx context.Context, userID, blockedUserID string) (bool, error) {
	query := `
		UPDATE user_blocks SET status = 'REMOVED'
		WHERE user_id = $1 AND blocked_user_id = $2 AND status = 'ACTIVE'
	`

	result, err := r.db.ExecContext(ctx, query, userID, blockedUserID)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *postgresRepository) GetActiveBlocks(ctx context.Context, userID string) ([]*BlockedUser, error) {
	var blocks []*BlockedUser
	query := `
		SELECT id, user_id, blocked_user_id, reason, status, blocked_at
		FROM user_blocks
		WHERE user_id = $1 AND status = 'ACTIVE'
		ORDER BY blocked_at DESC
	`

	err := r.db.SelectContext(ctx, &blocks, query, userID)
	return blocks, err
}

func (r *postgresRepository) GetBlockedIDsBothDirections(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	query := `
		SELECT blocked_user_id FROM user_blocks WHERE user_id = $1 AND status = 'ACTIVE'
		UNION
		SELECT user_id FROM user_blocks WHERE blocked_user_id = $1 AND status = 'ACTIVE'
	`

	err := r.db.SelectContext(ctx, &ids, query, userID)
	return ids, err
}

func (r *postgresRepository) IsBlockedEitherWay(ctx context.Context, user1ID, user2ID string) (bool, error) {
	var exists bool
	query := `
		SELECT EXISTS(
			SELECT 1 FROM user_blocks
			WHERE status = 'ACTIVE'
			AND ((user_id = $1 AND blocked_user_id = $2) OR (user_id = $2 AND blocked_user_id = $1))
		)
	`

	err := r.db.GetContext(ctx, &exists, query, user1ID, user2ID)
	return exists, err
}

// Pattern rule methods

func (r *postgresRepository) CreateRule(ctx context.Context, rule *BlockRule) error {
	query := `
		INSERT INTO safety_block_rules (
			id, user_id, rule_type, pattern, case_sensitive, enabled, description
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	return r.db.QueryRowxContext(
		ctx, query,
		rule.ID, rule.UserID, rule.RuleType, rule.Pattern,
		rule.CaseSensitive, rule.Enabled, rule.Description,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)
}

func (r *postgresRepository) UpdateRule(ctx context.Context, rule *BlockRule) error {
	query := `
		UPDATE safety_block_rules
		SET rule_type = $3, pattern = $4, case_sensitive = $5, enabled = $6,
		    description = $7, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1 AND user_id = $2
	`

	result, err := r.db.ExecContext(
		ctx, query,
		rule.ID, rule.UserID, rule.RuleType, rule.Pattern,
		rule.CaseSensitive, rule.Enabled, rule.Description,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrRuleNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteRule(ctx context.Context, userID, ruleID string) (bool, error) {
	result, err := r.db.ExecContext(
		ctx,
		`DELETE FROM safety_block_rules WHERE id = $1 AND user_id = $2`,
		ruleID, userID,
	)
	if err != nil {
		return false, err
	}

	rows, err := result.RowsAffected()
	return rows > 0, err
}

func (r *postgresRepository) GetEnabledRules(ctx context.Context, userID string) ([]*BlockRule, error) {
	var rules []*BlockRule
	query := `
		SELECT id, user_id, rule_type, pattern, case_sensitive, enabled,
		       description, match_count, created_at, updated_at
		FROM safety_block_rules
		WHERE user_id = $1 AND enabled = TRUE
	`

	err := r.db.SelectContext(ctx, &rules, query, userID)
	return rules, err
}

func (r *postgresRepository) GetRules(ctx context.Context, userID string) ([]*BlockRule, error) {
	var rules []*BlockRule
	query := `
		SELECT id, user_id, rule_type, pattern, case_sensitive, enabled,
		       description, match_count, created_at, updated_at
		FROM safety_block_rules
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	err := r.db.SelectContext(ctx, &rules, query, userID)
	return rules, err
}

func (r *postgresRepository) IncrementRuleMatchCount(ctx context.Context, ruleID string) error {
	_, err := r.db.ExecContext(
		ctx,
		`UPDATE safety_block_rules SET match_count = match_count + 1 WHERE id = $1`,
		ruleID,
	)
	return err
}

// Report methods

func (r *postgresRepository) CreateReport(ctx context.Context, report *UserReport) error {
	query := `
		INSERT INTO user_reports (id, reporter_id, reported_id, reason, details, status)
		VALUES ($1, $2, $3, $4, $5, 'PENDING')
		RETURNING reported_at
	`

	return r.db.QueryRowxContext(
		ctx, query,
		report.ID, report.ReporterID, report.ReportedID, report.Reason, report.Details,
	).Scan(&report.ReportedAt)
}

func (r *postgresRepository) CountReportsToday(ctx context.Context, reporterID, reportedID string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM user_reports
		WHERE reporter_id = $1 AND reported_id = $2
		AND reported_at >= DATE_TRUNC('day', NOW())
	`

	err := r.db.GetContext(ctx, &count, query, reporterID, reportedID)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return count, err
}

func (r *postgresRepository) CountRecentReports(ctx context.Context, reportedID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM user_reports WHERE reported_id = $1 AND reported_at > $2`

	err := r.db.GetContext(ctx, &count, query, reportedID, since)
	return count, err
}
