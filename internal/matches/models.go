package matches

import (
	"strings"
	"time"
)

// Match statuses
const (
	StatusActive    = "ACTIVE"
	StatusUnmatched = "UNMATCHED"
	StatusBlocked   = "BLOCKED"
)

// Match is a mutual match between an unordered pair of users. User1ID is
// always the lexicographically smaller id so the pair key is canonical.
type Match struct {
	PairKey        string     `json:"pair_key" db:"pair_key"`
	User1ID        string     `json:"user1_id" db:"user1_id"`
	User2ID        string     `json:"user2_id" db:"user2_id"`
	ConversationID string     `json:"conversation_id" db:"conversation_id"`
	Status         string     `json:"status" db:"status"`
	MatchedAt      time.Time  `json:"matched_at" db:"matched_at"`
	EndedBy        *string    `json:"ended_by,omitempty" db:"ended_by"`
	EndedAt        *time.Time `json:"ended_at,omitempty" db:"ended_at"`
}

// OtherUser returns the match partner of the given user
func (m *Match) OtherUser(userID string) string {
	if m.User1ID == userID {
		return m.User2ID
	}
	return m.User1ID
}

// SortPair returns the two ids in canonical (lexicographic) order
func SortPair(id1, id2 string) (string, string) {
	if strings.Compare(id1, id2) <= 0 {
		return id1, id2
	}
	return id2, id1
}

// PairKey derives the canonical key for an unordered pair of user ids.
// Both sides of a pair always compute the same key.
func PairKey(id1, id2 string) string {
	a, b := SortPair(id1, id2)
	return a + "_" + b
}

// ConversationID derives the conversation id for a pair deterministically,
// with no lookup, so clients and server independently agree on it.
func ConversationID(id1, id2 string) string {
	return PairKey(id1, id2)
}
