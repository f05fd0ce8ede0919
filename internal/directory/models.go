package directory

import "time"

// ProfileSummary is the denormalized slice of a user profile this pipeline
// consumes. Full profile CRUD lives in the profile service.
type ProfileSummary struct {
	UserID          string    `json:"user_id" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Age             int       `json:"age" db:"age"`
	Gender          string    `json:"gender" db:"gender"`
	PrimaryPhotoURL string    `json:"primary_photo_url" db:"primary_photo_url"`
	JobTitle        string    `json:"job_title" db:"job_title"`
	Company         string    `json:"company" db:"company"`
	University      string    `json:"university" db:"university"`
	Email           string    `json:"email" db:"email"`
	Bio             string    `json:"bio" db:"bio"`
	DatingIntention string    `json:"dating_intention" db:"dating_intention"`
	Location        string    `json:"location" db:"location"`
	Latitude        float64   `json:"latitude" db:"latitude"`
	Longitude       float64   `json:"longitude" db:"longitude"`
	Interests       []string  `json:"interests" db:"-"`
	IsActive        bool      `json:"is_active" db:"is_active"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

// Preferences holds a user's discovery filters
type Preferences struct {
	UserID           string   `json:"user_id" db:"user_id"`
	MinAge           int      `json:"min_age" db:"min_age"`
	MaxAge           int      `json:"max_age" db:"max_age"`
	MaxDistanceKm    float64  `json:"max_distance_km" db:"max_distance_km"`
	PreferredGenders []string `json:"preferred_genders" db:"-"`
}
