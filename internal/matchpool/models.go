package matchpool

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Pool statuses
const (
	PoolStatusBuilding = "BUILDING"
	PoolStatusReady    = "READY"
	PoolStatusConsumed = "CONSUMED"
	PoolStatusExpired  = "EXPIRED"
)

// DateFormat is the canonical release-date format used in pool ids and keys
const DateFormat = "2006-01-02"

// MatchPool is one user's candidate queue for one release date. Entries are
// immutable once the pool is READY; later filter changes only affect future
// pools.
type MatchPool struct {
	ID               string         `json:"id" db:"id"`
	UserID           string         `json:"user_id" db:"user_id"`
	PoolDate         string         `json:"pool_date" db:"pool_date"`
	Status           string         `json:"status" db:"status"`
	AlgorithmVersion string         `json:"algorithm_version" db:"algorithm_version"`
	Filters          FilterSnapshot `json:"filters" db:"filters"`
	Cursor           int            `json:"cursor" db:"consumption_cursor"`
	TotalEntries     int            `json:"total_entries" db:"total_entries"`
	ActionsSubmitted int            `json:"actions_submitted" db:"actions_submitted"`
	MatchesFound     int            `json:"matches_found" db:"matches_found"`
	LowSupply        bool           `json:"low_supply" db:"low_supply"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
}

// PoolEntry is a single ranked candidate with the display snapshot taken at
// generation time. Scores are reproducible from this snapshot only.
type PoolEntry struct {
	PoolID          string      `json:"-" db:"pool_id"`
	Position        int         `json:"position" db:"position"`
	CandidateID     string      `json:"candidate_id" db:"candidate_id"`
	Name            string      `json:"name" db:"name"`
	Age             int         `json:"age" db:"age"`
	PrimaryPhotoURL string      `json:"primary_photo_url" db:"primary_photo_url"`
	JobTitle        string      `json:"job_title" db:"job_title"`
	DatingIntention string      `json:"dating_intention" db:"dating_intention"`
	DistanceKm      float64     `json:"distance_km" db:"distance_km"`
	Score           float64     `json:"score" db:"score"`
	SharedInterests StringSlice `json:"shared_interests" db:"shared_interests"`
	Reason          string      `json:"reason" db:"reason"`
}

// FilterSnapshot records the preference filters the pool was generated with
type FilterSnapshot struct {
	MinAge           int      `json:"min_age"`
	MaxAge           int      `json:"max_age"`
	MaxDistanceKm    float64  `json:"max_distance_km"`
	PreferredGenders []string `json:"preferred_genders,omitempty"`
}

// PoolID derives the canonical pool id for a (user, date) pair
func PoolID(userID, date string) string {
	return "pool_" + userID + "_" + date
}

// Value implements driver.Valuer, storing the snapshot as JSONB
func (f FilterSnapshot) Value() (driver.Value, error) {
	return json.Marshal(f)
}

// Scan implements sql.Scanner
func (f *FilterSnapshot) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	case nil:
		return nil
	}
	return fmt.Errorf("unsupported filter snapshot type %T", src)
}

// StringSlice stores a string list as JSONB
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal([]string(s))
}

func (s *StringSlice) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	case nil:
		*s = nil
		return nil
	}
	return fmt.Errorf("unsupported string slice type %T", src)
}
