package safety

import "time"

// Block statuses
const (
	BlockStatusActive  = "ACTIVE"
	BlockStatusRemoved = "REMOVED"
)

// Rule types a safety block rule can match against
const (
	RuleTypeName       = "NAME"
	RuleTypeLocation   = "LOCATION"
	RuleTypeEmail      = "EMAIL"
	RuleTypeKeyword    = "KEYWORD"
	RuleTypeCompany    = "COMPANY"
	RuleTypeUniversity = "UNIVERSITY"
)

// BlockedUser is a direct user-to-user block
type BlockedUser struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	BlockedUserID string    `json:"blocked_user_id" db:"blocked_user_id"`
	Reason        string    `json:"reason,omitempty" db:"reason"`
	Status        string    `json:"status" db:"status"`
	BlockedAt     time.Time `json:"blocked_at" db:"blocked_at"`
}

// BlockRule is a pattern-based exclusion, distinct from a direct block.
// Each rule is independently enabled and carries its own case sensitivity.
type BlockRule struct {
	ID            string    `json:"id" db:"id"`
	UserID        string    `json:"user_id" db:"user_id"`
	RuleType      string    `json:"rule_type" db:"rule_type"`
	Pattern       string    `json:"pattern" db:"pattern"`
	CaseSensitive bool      `json:"case_sensitive" db:"case_sensitive"`
	Enabled       bool      `json:"enabled" db:"enabled"`
	Description   string    `json:"description,omitempty" db:"description"`
	MatchCount    int       `json:"match_count" db:"match_count"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// BlockSet is the owner's full exclusion state: direct blocks in both
// directions plus the enabled pattern rules.
type BlockSet struct {
	DirectBlockIDs map[string]struct{}
	Rules          []*BlockRule
}

// Contains reports whether the candidate id is directly blocked
func (b *BlockSet) Contains(userID string) bool {
	_, ok := b.DirectBlockIDs[userID]
	return ok
}

// UserReport is a report filed against another user
type UserReport struct {
	ID         string    `json:"id" db:"id"`
	ReporterID string    `json:"reporter_id" db:"reporter_id"`
	ReportedID string    `json:"reported_id" db:"reported_id"`
	Reason     string    `json:"reason" db:"reason"`
	Details    string    `json:"details,omitempty" db:"details"`
	Status     string    `json:"status" db:"status"`
	ReportedAt time.Time `json:"reported_at" db:"reported_at"`
}
