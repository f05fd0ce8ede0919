package matches

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrMatchNotFound = errors.New("match not found")

type Repository interface {
	// CreateIfAbsent inserts a new ACTIVE match for the pair unless one
	// already exists; a row left behind by an earlier unmatch is revived
	// instead. Returns (match, created, error); when created is false the
	// returned match is the pre-existing ACTIVE or BLOCKED row.
	CreateIfAbsent(ctx context.Context, user1ID, user2ID string) (*Match, bool, error)

	GetByPair(ctx context.Context, user1ID, user2ID string) (*Match, error)
	GetActiveForUser(ctx context.Context, userID string) ([]*Match, error)
	GetCreatedSince(ctx context.Context, userID string, since time.Time) ([]*Match, error)
	UpdateStatus(ctx context.Context, pairKey, status, endedBy string) error
	CountActiveForUser(ctx context.Context, userID string) (int, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const matchColumns = `pair_key, user1_id, user2_id, conversation_id, status, matched_at, ended_by, ended_at`

// CreateIfAbsent is the exactly-once guard for match creation. The pair key
// is the unit of mutual exclusion: concurrent submissions from both sides of
// the pair serialize on the same conditional insert, and only the first
// writer creates the row.
func (r *postgresRepository) CreateIfAbsent(ctx context.Context, user1ID, user2ID string) (*Match, bool, error) {
	u1, u2 := SortPair(user1ID, user2ID)
	pairKey := PairKey(user1ID, user2ID)
	conversationID := ConversationID(user1ID, user2ID)

	// An UNMATCHED row is revived rather than treated as satisfied: the
	// pair legitimately re-matched after an unmatch. ACTIVE and BLOCKED
	// rows are left untouched.
	insert := `
		INSERT INTO matches (pair_key, user1_id, user2_id, conversation_id, status)
		VALUES ($1, $2, $3, $4, 'ACTIVE')
		ON CONFLICT (pair_key) DO UPDATE
		SET status = 'ACTIVE', matched_at = CURRENT_TIMESTAMP, ended_by = NULL, ended_at = NULL
		WHERE matches.status = 'UNMATCHED'
		RETURNING ` + matchColumns

	var match Match
	err := r.db.QueryRowxContext(ctx, insert, pairKey, u1, u2, conversationID).StructScan(&match)
	if err == nil {
		return &match, true, nil
	}
	if err != sql.ErrNoRows {
		return nil, false, err
	}

	// Lost the race: the pair already has an ACTIVE or BLOCKED row. Read
	// it and treat the existing match as canonical.
	existing, err := r.getByPairKey(ctx, pairKey)
	if err != nil {
		return nil, false, err
	}

	return existing, false, nil
}

func (r *postgresRepository) GetByPair(ctx context.Context, user1ID, user2ID string) (*Match, error) {
	return r.getByPairKey(ctx, PairKey(user1ID, user2ID))
}

func (r *postgresRepository) getByPairKey(ctx context.Context, pairKey string) (*Match, error) {
	var match Match
	query := `SELECT ` + matchColumns + ` FROM matches WHERE pair_key = $1`

	err := r.db.GetContext(ctx, &match, query, pairKey)
	if err == sql.ErrNoRows {
		return nil, ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}

	return &match, nil
}

func (r *postgresRepository) GetActiveForUser(ctx context.Context, userID string) ([]*Match, error) {
	var result []*Match
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (user1_id = $1 OR user2_id = $1) AND status = 'ACTIVE'
		ORDER BY matched_at DESC
	`

	err := r.db.SelectContext(ctx, &result, query, userID)
	return result, err
}

func (r *postgresRepository) GetCreatedSince(ctx context.Context, userID string, since time.Time) ([]*Match, error) {
	var result []*Match
	query := `
		SELECT ` + matchColumns + `
		FROM matches
		WHERE (user1_id = $1 OR user2_id = $1) AND matched_at > $2
		ORDER BY matched_at ASC
	`

	err := r.db.SelectContext(ctx, &result, query, userID, since)
	return result, err
}

func (r *postgresRepository) UpdateStatus(ctx context.Context, pairKey, status, endedBy string) error {
	query := `
		UPDATE matches
		SET status = $2, ended_by = $3, ended_at = CURRENT_TIMESTAMP
		WHERE pair_key = $1
	`

	result, err := r.db.ExecContext(ctx, query, pairKey, status, endedBy)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMatchNotFound
	}

	return nil
}

func (r *postgresRepository) CountActiveForUser(ctx context.Context, userID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM matches WHERE (user1_id = $1 OR user2_id = $1) AND status = 'ACTIVE'`

	err := r.db.GetContext(ctx, &count, query, userID)
	return count, err
}
