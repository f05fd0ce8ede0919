package actions

import (
	"context"
	"database/sql"
	"sort"
	"strconv"
	"time"

	"github.com/tpg-connect/connect-backend/internal/directory"
	"github.com/tpg-connect/connect-backend/internal/matches"
)

// ReconcilerConfig holds the sync cadence guidance returned to clients
type ReconcilerConfig struct {
	ActiveInterval time.Duration
	IdleInterval   time.Duration
	// FullResyncAfter forces a full resync when the client has been away
	// longer than this
	FullResyncAfter time.Duration
}

// Reconciler replays offline-queued actions through the batch processor
// and reports the server-side delta since the client's last sync.
type Reconciler interface {
	Sync(ctx context.Context, ownerID string, req *SyncRequest) (*SyncResponse, error)
}

type reconciler struct {
	processor Processor
	matches   matches.Repository
	directory directory.Directory
	poolStats PoolStats
	cfg       ReconcilerConfig
	now       func() time.Time
}

func NewReconciler(
	processor Processor,
	matchRepo matches.Repository,
	dir directory.Directory,
	poolStats PoolStats,
	cfg ReconcilerConfig,
) Reconciler {
	return &reconciler{
		processor: processor,
		matches:   matchRepo,
		directory: dir,
		poolStats: poolStats,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (r *reconciler) Sync(ctx context.Context, ownerID string, req *SyncRequest) (*SyncResponse, error) {
	now := r.now()
	currentPoolDate := r.poolStats.CurrentPoolDate(now)

	// Replay in client timestamp order for determinism of side effects;
	// correctness rests on the idempotency keys, not on ordering.
	pending := make([]PendingAction, len(req.PendingActions))
	copy(pending, req.PendingActions)
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].Timestamp.Before(pending[j].Timestamp)
	})

	batch, preFailures := r.toBatch(pending)

	results, err := r.processor.SubmitBatch(ctx, ownerID, batch)
	if err != nil {
		return nil, err
	}
	results.Failures = append(preFailures, results.Failures...)

	updates, err := r.serverUpdates(ctx, ownerID, req.LastSyncTime)
	if err != nil {
		return nil, err
	}

	forceFull := r.needsFullResync(pending, currentPoolDate, req.LastSyncTime, now)
	syncRequests.WithLabelValues(strconv.FormatBool(forceFull)).Inc()

	interval := r.cfg.IdleInterval
	if len(updates) > 0 || len(results.NewMatches) > 0 || len(pending) > 0 {
		interval = r.cfg.ActiveInterval
	}

	return &SyncResponse{
		Results:           results,
		ServerUpdates:     updates,
		NewSyncTime:       now,
		NextSyncInSeconds: int(interval.Seconds()),
		ForceFullSync:     forceFull,
	}, nil
}

// toBatch maps pending actions onto a batch request. Actions with kinds the
// processor does not know are failed up front so their keys are never
// claimed and the client can drop them.
func (r *reconciler) toBatch(pending []PendingAction) (*BatchRequest, []ActionFailure) {
	batch := &BatchRequest{}
	var failures []ActionFailure

	for _, pa := range pending {
		it := ActionItem{TargetID: pa.TargetID, IdempotencyKey: pa.ActionID}
		switch NormalizeKind(pa.ActionType) {
		case KindLike:
			batch.Likes = append(batch.Likes, it)
		case KindPass:
			batch.Passes = append(batch.Passes, it)
		case KindSuperLike:
			batch.SuperLikes = append(batch.SuperLikes, it)
		case KindBlock:
			batch.Blocks = append(batch.Blocks, it)
		case KindReport:
			reason := pa.Reason
			if reason == "" {
				reason = "OTHER"
			}
			batch.Reports = append(batch.Reports, ReportItem{ActionItem: it, Reason: reason})
		case KindUnmatch:
			batch.Unmatches = append(batch.Unmatches, it)
		default:
			failures = append(failures, ActionFailure{
				IdempotencyKey: pa.ActionID,
				TargetID:       pa.TargetID,
				Kind:           pa.ActionType,
				Reason:         ReasonUnknownKind,
			})
		}
	}
	return batch, failures
}

func (r *reconciler) serverUpdates(ctx context.Context, ownerID string, lastSync *time.Time) ([]ServerUpdate, error) {
	updates := []ServerUpdate{}
	if lastSync == nil {
		return updates, nil
	}

	newMatches, err := r.matches.GetCreatedSince(ctx, ownerID, *lastSync)
	if err != nil {
		return nil, err
	}
	for _, m := range newMatches {
		updates = append(updates, ServerUpdate{
			Type:           UpdateNewMatch,
			UserID:         m.OtherUser(ownerID),
			ConversationID: m.ConversationID,
			OccurredAt:     m.MatchedAt,
		})
	}

	// Profile edits by current match partners
	active, err := r.matches.GetActiveForUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	partnerIDs := make([]string, 0, len(active))
	for _, m := range active {
		partnerIDs = append(partnerIDs, m.OtherUser(ownerID))
	}
	if len(partnerIDs) > 0 {
		changed, err := r.directory.ListUpdatedSince(ctx, partnerIDs,
			sql.NullTime{Time: *lastSync, Valid: true})
		if err != nil {
			return nil, err
		}
		for _, userID := range changed {
			updates = append(updates, ServerUpdate{
				Type:       UpdateProfileChanged,
				UserID:     userID,
				OccurredAt: r.now(),
			})
		}
	}

	return updates, nil
}

// needsFullResync is true when the client's cached state is too stale to
// patch: it references an expired pool window, or it has been offline past
// the resync horizon.
func (r *reconciler) needsFullResync(pending []PendingAction, currentPoolDate string, lastSync *time.Time, now time.Time) bool {
	for _, pa := range pending {
		if pa.PoolDate != "" && pa.PoolDate < currentPoolDate {
			return true
		}
	}
	if lastSync != nil && r.cfg.FullResyncAfter > 0 && now.Sub(*lastSync) > r.cfg.FullResyncAfter {
		return true
	}
	return false
}
