// internal/directory/directory.go
// Read-only lookups against the profile store. The profile service owns the
// tables; this backend only queries the columns the matching pipeline needs.

package directory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrProfileNotFound = errors.New("profile not found")

type Directory interface {
	GetProfileSummary(ctx context.Context, userID string) (*ProfileSummary, error)
	GetPreferences(ctx context.Context, userID string) (*Preferences, error)
	ListActiveCandidates(ctx context.Context, excludeUserID string) ([]*ProfileSummary, error)
	ListActiveUserIDs(ctx context.Context) ([]string, error)
	ListUpdatedSince(ctx context.Context, userIDs []string, since sql.NullTime) ([]string, error)
}

type postgresDirectory struct {
	db *sqlx.DB
}

func NewPostgresDirectory(db *sqlx.DB) Directory {
	return &postgresDirectory{db: db}
}

const profileColumns = `
	user_id, name, age, gender, primary_photo_url, job_title, company,
	university, email, bio, dating_intention, location, latitude, longitude,
	is_active, updated_at
`

func (d *postgresDirectory) GetProfileSummary(ctx context.Context, userID string) (*ProfileSummary, error) {
	var profile ProfileSummary
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE user_id = $1`

	err := d.db.GetContext(ctx, &profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := d.loadInterests(ctx, &profile); err != nil {
		return nil, err
	}

	return &profile, nil
}

func (d *postgresDirectory) GetPreferences(ctx context.Context, userID string) (*Preferences, error) {
	var prefs Preferences
	var genders pq.StringArray

	query := `
		SELECT user_id, min_age, max_age, max_distance_km, preferred_genders
		FROM discovery_preferences
		WHERE user_id = $1
	`

	row := d.db.QueryRowxContext(ctx, query, userID)
	err := row.Scan(&prefs.UserID, &prefs.MinAge, &prefs.MaxAge, &prefs.MaxDistanceKm, &genders)
	if err == sql.ErrNoRows {
		return defaultPreferences(userID), nil
	}
	if err != nil {
		return nil, err
	}

	prefs.PreferredGenders = []string(genders)
	return &prefs, nil
}

func (d *postgresDirectory) ListActiveCandidates(ctx context.Context, excludeUserID string) ([]*ProfileSummary, error) {
	var profiles []*ProfileSummary
	query := `SELECT ` + profileColumns + ` FROM profiles WHERE is_active = TRUE AND user_id != $1`

	if err := d.db.SelectContext(ctx, &profiles, query, excludeUserID); err != nil {
		return nil, err
	}

	for _, profile := range profiles {
		if err := d.loadInterests(ctx, profile); err != nil {
			return nil, err
		}
	}

	return profiles, nil
}

func (d *postgresDirectory) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT user_id FROM profiles WHERE is_active = TRUE`

	if err := d.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}

	return ids, nil
}

// ListUpdatedSince returns the subset of userIDs whose profiles changed after
// the given time. Used by the sync reconciler to surface profile updates.
func (d *postgresDirectory) ListUpdatedSince(ctx context.Context, userIDs []string, since sql.NullTime) ([]string, error) {
	if len(userIDs) == 0 || !since.Valid {
		return nil, nil
	}

	var ids []string
	query := `SELECT user_id FROM profiles WHERE user_id = ANY($1) AND updated_at > $2`

	if err := d.db.SelectContext(ctx, &ids, query, pq.Array(userIDs), since.Time); err != nil {
		return nil, err
	}

	return ids, nil
}

func (d *postgresDirectory) loadInterests(ctx context.Context, profile *ProfileSummary) error {
	var interests []string
	query := `SELECT interest FROM profile_interests WHERE user_id = $1 ORDER BY interest`

	if err := d.db.SelectContext(ctx, &interests, query, profile.UserID); err != nil {
		return err
	}

	profile.Interests = interests
	return nil
}

func defaultPreferences(userID string) *Preferences {
	return &Preferences{
		UserID:           userID,
		MinAge:           18,
		MaxAge:           99,
		MaxDistanceKm:    100,
		PreferredGenders: nil, // empty set = everyone
	}
}
