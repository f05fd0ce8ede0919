package actions

import "time"

// Action kinds
const (
	KindLike      = "LIKE"
	KindPass      = "PASS"
	KindSuperLike = "SUPER_LIKE"
	KindBlock     = "BLOCK"
	KindReport    = "REPORT"
	KindUnmatch   = "UNMATCH"
)

// Action statuses. A row exists for every claimed idempotency key; the
// status records how that claim resolved. REJECTED is terminal (the input
// was invalid); FAILED marks a transient dependency error and the key can
// be reclaimed by a retry.
const (
	StatusPending  = "PENDING"
	StatusApplied  = "APPLIED"
	StatusRejected = "REJECTED"
	StatusFailed   = "FAILED"
)

// Failure reason codes surfaced to clients
const (
	ReasonTargetIsSelf   = "TARGET_IS_SELF"
	ReasonUnknownKind    = "UNKNOWN_ACTION"
	ReasonAlreadyActed   = "ALREADY_ACTIONED"
	ReasonTargetNotFound = "TARGET_NOT_FOUND"
	ReasonNotMatched     = "NOT_MATCHED"
	ReasonInternal       = "INTERNAL_ERROR"
)

// UserAction is one decision by one user about one candidate. The
// (owner_id, idempotency_key) pair is unique; resubmitting the same key
// never applies twice.
type UserAction struct {
	ID             int64     `db:"id"`
	OwnerID        string    `db:"owner_id"`
	IdempotencyKey string    `db:"idempotency_key"`
	TargetID       string    `db:"target_id"`
	Kind           string    `db:"kind"`
	Status         string    `db:"status"`
	FailReason     *string   `db:"fail_reason"`
	PoolDate       string    `db:"pool_date"`
	SubmittedAt    time.Time `db:"submitted_at"`
}

// ValidKind reports whether the kind is one this pipeline processes
func ValidKind(kind string) bool {
	switch kind {
	case KindLike, KindPass, KindSuperLike, KindBlock, KindReport, KindUnmatch:
		return true
	}
	return false
}

// IsPositive reports whether the kind expresses interest and can produce a
// mutual match
func IsPositive(kind string) bool {
	return kind == KindLike || kind == KindSuperLike
}
