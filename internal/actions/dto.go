package actions

import (
	"strings"
	"time"
)

// ActionItem is one submitted action. The idempotency key is generated by
// the client and must be unique per owner.
type ActionItem struct {
	TargetID       string `json:"target_id" validate:"required"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=128"`
}

// ReportItem carries a mandatory reason on top of the action fields
type ReportItem struct {
	ActionItem
	Reason  string `json:"reason" validate:"required,oneof=INAPPROPRIATE_CONTENT HARASSMENT FAKE_PROFILE SPAM UNDERAGE OTHER"`
	Details string `json:"details,omitempty" validate:"omitempty,max=500"`
}

// BatchRequest groups one owner's actions by kind
type BatchRequest struct {
	PoolDate   string       `json:"pool_date,omitempty"`
	Likes      []ActionItem `json:"likes,omitempty" validate:"dive"`
	Passes     []ActionItem `json:"passes,omitempty" validate:"dive"`
	SuperLikes []ActionItem `json:"super_likes,omitempty" validate:"dive"`
	Blocks     []ActionItem `json:"blocks,omitempty" validate:"dive"`
	Reports    []ReportItem `json:"reports,omitempty" validate:"dive"`
	Unmatches  []ActionItem `json:"unmatches,omitempty" validate:"dive"`
}

// Size returns the total number of actions across all kinds
func (b *BatchRequest) Size() int {
	return len(b.Likes) + len(b.Passes) + len(b.SuperLikes) +
		len(b.Blocks) + len(b.Reports) + len(b.Unmatches)
}

// ProcessedCounts reports how many actions of each kind were applied
type ProcessedCounts struct {
	LikesProcessed      int `json:"likes_processed"`
	PassesProcessed     int `json:"passes_processed"`
	SuperLikesProcessed int `json:"super_likes_processed"`
	BlocksProcessed     int `json:"blocks_processed"`
	ReportsProcessed    int `json:"reports_processed"`
	UnmatchesProcessed  int `json:"unmatches_processed"`
}

// NewMatch carries enough denormalized data for a client to render the
// match immediately, without a follow-up profile fetch
type NewMatch struct {
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Age             int       `json:"age"`
	PrimaryPhotoURL string    `json:"primary_photo_url"`
	ConversationID  string    `json:"conversation_id"`
	MatchedAt       time.Time `json:"matched_at"`
}

// ActionFailure describes one rejected or failed action. Retryable is true
// only for transient dependency failures; validation rejections are final.
type ActionFailure struct {
	IdempotencyKey string `json:"idempotency_key"`
	TargetID       string `json:"target_id"`
	Kind           string `json:"kind"`
	Reason         string `json:"reason"`
	Retryable      bool   `json:"retryable"`
}

// BatchResponse is the per-item outcome of one batch. The batch is not
// atomic: some actions may apply while others fail.
type BatchResponse struct {
	ProcessedCounts ProcessedCounts `json:"processed_counts"`
	NewMatches      []NewMatch      `json:"new_matches"`
	Failures        []ActionFailure `json:"failures"`
	Duplicates      int             `json:"duplicates"`
}

// PendingAction is one offline-queued action in a sync request. ActionID
// doubles as the idempotency key.
type PendingAction struct {
	ActionID   string    `json:"action_id" validate:"required,max=128"`
	ActionType string    `json:"action_type" validate:"required"`
	TargetID   string    `json:"target_id" validate:"required"`
	Timestamp  time.Time `json:"timestamp"`
	RetryCount int       `json:"retry_count"`
	Reason     string    `json:"reason,omitempty"`
	PoolDate   string    `json:"pool_date,omitempty"`
}

// SyncRequest replays offline actions and asks for the server-side delta
type SyncRequest struct {
	PendingActions []PendingAction `json:"pending_actions" validate:"dive"`
	LastSyncTime   *time.Time      `json:"last_sync_time,omitempty"`
}

// Server update types
const (
	UpdateNewMatch       = "NEW_MATCH"
	UpdateMatchEnded     = "MATCH_ENDED"
	UpdateProfileChanged = "PROFILE_UPDATED"
)

// ServerUpdate is one server-side event the client missed while offline
type ServerUpdate struct {
	Type           string      `json:"type"`
	UserID         string      `json:"user_id,omitempty"`
	ConversationID string      `json:"conversation_id,omitempty"`
	OccurredAt     time.Time   `json:"occurred_at"`
	Payload        interface{} `json:"payload,omitempty"`
}

// SyncResponse reports replay outcomes plus the missed server events
type SyncResponse struct {
	Results           *BatchResponse `json:"results"`
	ServerUpdates     []ServerUpdate `json:"server_updates"`
	NewSyncTime       time.Time      `json:"new_sync_time"`
	NextSyncInSeconds int            `json:"next_sync_in_seconds"`
	ForceFullSync     bool           `json:"force_full_sync"`
}

// NormalizeKind maps client action-type spellings onto canonical kinds.
// Older clients send suffixed forms like LIKE_USER.
func NormalizeKind(actionType string) string {
	kind := strings.ToUpper(strings.TrimSpace(actionType))
	kind = strings.TrimSuffix(kind, "_USER")
	if kind == "SUPERLIKE" {
		kind = KindSuperLike
	}
	return kind
}
