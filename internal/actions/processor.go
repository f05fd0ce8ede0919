package actions

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/tpg-connect/connect-backend/internal/directory"
	"github.com/tpg-connect/connect-backend/internal/matches"
	"github.com/tpg-connect/connect-backend/internal/notify"
	"github.com/tpg-connect/connect-backend/internal/safety"
)

var ErrBatchTooLarge = errors.New("action batch exceeds maximum size")

// maxBatchSize bounds one submission; offline clients chunk larger queues
const maxBatchSize = 200

// PoolStats receives per-batch feedback for pool bookkeeping. Implemented
// by the matchpool service.
type PoolStats interface {
	RecordActionStats(ctx context.Context, userID string, actions, matches int)
	CurrentPoolDate(now time.Time) string
}

type Processor interface {
	// SubmitBatch applies each action independently, exactly once per
	// idempotency key, and reports newly formed mutual matches.
	SubmitBatch(ctx context.Context, ownerID string, batch *BatchRequest) (*BatchResponse, error)
}

type processor struct {
	repo         Repository
	matches      matches.Repository
	safety       safety.Service
	directory    directory.Directory
	notifier     notify.Notifier
	poolStats    PoolStats
	lookbackDays int
	now          func() time.Time
}

func NewProcessor(
	repo Repository,
	matchRepo matches.Repository,
	safetySvc safety.Service,
	dir directory.Directory,
	notifier notify.Notifier,
	poolStats PoolStats,
	lookbackDays int,
) Processor {
	return &processor{
		repo:         repo,
		matches:      matchRepo,
		safety:       safetySvc,
		directory:    dir,
		notifier:     notifier,
		poolStats:    poolStats,
		lookbackDays: lookbackDays,
		now:          time.Now,
	}
}

// item pairs an action with its kind and optional report payload for the
// flat processing loop
type item struct {
	ActionItem
	kind          string
	reportReason  string
	reportDetails string
}

func (p *processor) SubmitBatch(ctx context.Context, ownerID string, batch *BatchRequest) (*BatchResponse, error) {
	if batch.Size() > maxBatchSize {
		return nil, ErrBatchTooLarge
	}

	poolDate := batch.PoolDate
	if poolDate == "" {
		poolDate = p.poolStats.CurrentPoolDate(p.now())
	}

	items := flatten(batch)
	resp := &BatchResponse{NewMatches: []NewMatch{}, Failures: []ActionFailure{}}

	for _, it := range items {
		p.processOne(ctx, ownerID, poolDate, it, resp)
	}

	applied := resp.ProcessedCounts.LikesProcessed + resp.ProcessedCounts.PassesProcessed +
		resp.ProcessedCounts.SuperLikesProcessed + resp.ProcessedCounts.BlocksProcessed +
		resp.ProcessedCounts.ReportsProcessed + resp.ProcessedCounts.UnmatchesProcessed
	p.poolStats.RecordActionStats(ctx, ownerID, applied, len(resp.NewMatches))

	recordBatch(len(items), applied, len(resp.Failures))
	return resp, nil
}

func flatten(batch *BatchRequest) []item {
	items := make([]item, 0, batch.Size())
	for _, a := range batch.Likes {
		items = append(items, item{ActionItem: a, kind: KindLike})
	}
	for _, a := range batch.Passes {
		items = append(items, item{ActionItem: a, kind: KindPass})
	}
	for _, a := range batch.SuperLikes {
		items = append(items, item{ActionItem: a, kind: KindSuperLike})
	}
	for _, a := range batch.Blocks {
		items = append(items, item{ActionItem: a, kind: KindBlock})
	}
	for _, r := range batch.Reports {
		items = append(items, item{ActionItem: r.ActionItem, kind: KindReport, reportReason: r.Reason, reportDetails: r.Details})
	}
	for _, a := range batch.Unmatches {
		items = append(items, item{ActionItem: a, kind: KindUnmatch})
	}
	return items
}

func (p *processor) processOne(ctx context.Context, ownerID, poolDate string, it item, resp *BatchResponse) {
	// Dedup: claiming the key is the atomic gate. A lost claim means this
	// key was processed before; effects only re-run for a key whose last
	// attempt ended in a transient FAILED state.
	action := &UserAction{
		OwnerID:        ownerID,
		IdempotencyKey: it.IdempotencyKey,
		TargetID:       it.TargetID,
		Kind:           it.kind,
		Status:         StatusPending,
		PoolDate:       poolDate,
		SubmittedAt:    p.now(),
	}
	claimed, existing, err := p.repo.ClaimKey(ctx, action)
	if err != nil {
		resp.Failures = append(resp.Failures, failure(it, ReasonInternal, true))
		return
	}
	if !claimed && existing.Status == StatusFailed {
		// A previous attempt died on a transient dependency error; take
		// the key back and run the effects again. Losing the reclaim means
		// another retry of the same key is already in flight.
		claimed, err = p.repo.ReclaimFailed(ctx, ownerID, it.IdempotencyKey)
		if err != nil {
			resp.Failures = append(resp.Failures, failure(it, ReasonInternal, true))
			return
		}
	}
	if !claimed {
		resp.Duplicates++
		if existing.Status == StatusRejected {
			reason := ReasonAlreadyActed
			if existing.FailReason != nil {
				reason = *existing.FailReason
			}
			resp.Failures = append(resp.Failures, failure(it, reason, false))
		}
		duplicateActions.Inc()
		return
	}

	reason, ok, err := p.validate(ctx, ownerID, it)
	if err != nil {
		p.fail(ctx, ownerID, it.IdempotencyKey)
		resp.Failures = append(resp.Failures, failure(it, ReasonInternal, true))
		return
	}
	if !ok {
		p.reject(ctx, ownerID, it.IdempotencyKey, reason)
		resp.Failures = append(resp.Failures, failure(it, reason, false))
		return
	}

	// Mark applied before running effects: a concurrent reciprocal swipe
	// must be able to observe this action or both sides of a pair could
	// miss the mutuality check. Effects are all conditional writes, so a
	// failure downgrades the row to FAILED and a retry reclaims it.
	if err := p.repo.Resolve(ctx, ownerID, it.IdempotencyKey, StatusApplied, nil); err != nil {
		p.fail(ctx, ownerID, it.IdempotencyKey)
		resp.Failures = append(resp.Failures, failure(it, ReasonInternal, true))
		return
	}
	if err := p.apply(ctx, ownerID, it, resp); err != nil {
		p.fail(ctx, ownerID, it.IdempotencyKey)
		resp.Failures = append(resp.Failures, failure(it, ReasonInternal, true))
		return
	}
	countApplied(it.kind, resp)
}

func (p *processor) validate(ctx context.Context, ownerID string, it item) (reason string, ok bool, err error) {
	if it.TargetID == ownerID {
		return ReasonTargetIsSelf, false, nil
	}
	if !ValidKind(it.kind) {
		return ReasonUnknownKind, false, nil
	}

	// Swipe kinds require an eligible target: not already acted on within
	// the lookback window, except the LIKE to SUPER_LIKE upgrade.
	if it.kind == KindLike || it.kind == KindPass || it.kind == KindSuperLike {
		prior, err := p.repo.LatestApplied(ctx, ownerID, it.TargetID, p.lookbackDays)
		if err == nil {
			if it.kind == KindSuperLike && prior.Kind == KindLike {
				return "", true, nil
			}
			return ReasonAlreadyActed, false, nil
		}
		if !errors.Is(err, ErrActionNotFound) {
			return "", false, err
		}
	}
	return "", true, nil
}

func (p *processor) apply(ctx context.Context, ownerID string, it item, resp *BatchResponse) error {
	switch it.kind {
	case KindLike, KindSuperLike:
		return p.applyPositive(ctx, ownerID, it.TargetID, resp)
	case KindPass:
		return nil
	case KindBlock:
		return p.applyBlock(ctx, ownerID, it.TargetID)
	case KindReport:
		return p.applyReport(ctx, ownerID, it)
	case KindUnmatch:
		return p.applyUnmatch(ctx, ownerID, it.TargetID)
	}
	return nil
}

// applyPositive runs the mutuality check. Match creation is a conditional
// insert on the sorted pair key, so concurrent likes from both sides
// converge on one row; the loser treats the existing match as canonical.
func (p *processor) applyPositive(ctx context.Context, ownerID, targetID string, resp *BatchResponse) error {
	reciprocated, err := p.repo.HasPositiveToward(ctx, targetID, ownerID)
	if err != nil {
		return err
	}
	if !reciprocated {
		return nil
	}

	// A block placed after pool generation still vetoes the match
	blocked, err := p.safety.IsBlockedEitherWay(ctx, ownerID, targetID)
	if err != nil {
		return err
	}
	if blocked {
		return nil
	}

	match, created, err := p.matches.CreateIfAbsent(ctx, ownerID, targetID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	newMatch := NewMatch{
		UserID:         targetID,
		ConversationID: match.ConversationID,
		MatchedAt:      match.MatchedAt,
	}
	if profile, err := p.directory.GetProfileSummary(ctx, targetID); err == nil {
		newMatch.Name = profile.Name
		newMatch.Age = profile.Age
		newMatch.PrimaryPhotoURL = profile.PrimaryPhotoURL
	}
	resp.NewMatches = append(resp.NewMatches, newMatch)
	matchesCreated.Inc()

	payload := map[string]interface{}{
		"conversation_id": match.ConversationID,
		"matched_at":      match.MatchedAt,
	}
	p.notifier.NotifyUser(ownerID, notify.EventNewMatch, payload)
	p.notifier.NotifyUser(targetID, notify.EventNewMatch, payload)
	return nil
}

// applyBlock records the block and retroactively ends any active match
func (p *processor) applyBlock(ctx context.Context, ownerID, targetID string) error {
	if err := p.safety.BlockUser(ctx, ownerID, targetID, "user_action"); err != nil {
		return err
	}

	if _, err := p.matches.GetByPair(ctx, ownerID, targetID); err == nil {
		if err := p.matches.UpdateStatus(ctx, matches.PairKey(ownerID, targetID), matches.StatusBlocked, ownerID); err != nil {
			return err
		}
		p.notifier.NotifyUser(targetID, notify.EventMatchEnded, map[string]interface{}{
			"conversation_id": matches.ConversationID(ownerID, targetID),
		})
	} else if !errors.Is(err, matches.ErrMatchNotFound) {
		return err
	}
	return nil
}

func (p *processor) applyReport(ctx context.Context, ownerID string, it item) error {
	reason := it.reportReason
	if reason == "" {
		reason = "OTHER"
	}
	_, err := p.safety.ReportUser(ctx, ownerID, it.TargetID, reason, it.reportDetails)
	if errors.Is(err, safety.ErrAlreadyReported) {
		// Same-day re-report still counts as applied for the submitter
		return nil
	}
	return err
}

func (p *processor) applyUnmatch(ctx context.Context, ownerID, targetID string) error {
	err := p.matches.UpdateStatus(ctx, matches.PairKey(ownerID, targetID), matches.StatusUnmatched, ownerID)
	if errors.Is(err, matches.ErrMatchNotFound) {
		// Nothing to unmatch; treat as applied so retries stay quiet
		return nil
	}
	if err != nil {
		return err
	}
	p.notifier.NotifyUser(targetID, notify.EventMatchEnded, map[string]interface{}{
		"conversation_id": matches.ConversationID(ownerID, targetID),
	})
	return nil
}

func (p *processor) reject(ctx context.Context, ownerID, key, reason string) {
	if err := p.repo.Resolve(ctx, ownerID, key, StatusRejected, &reason); err != nil {
		log.Printf("actions: failed to mark %s rejected: %v", key, err)
	}
}

// fail downgrades a claimed key after a transient error so a retry with the
// same key can reclaim and re-run it
func (p *processor) fail(ctx context.Context, ownerID, key string) {
	reason := ReasonInternal
	if err := p.repo.Resolve(ctx, ownerID, key, StatusFailed, &reason); err != nil {
		log.Printf("actions: failed to mark %s failed: %v", key, err)
	}
}

func failure(it item, reason string, retryable bool) ActionFailure {
	return ActionFailure{
		IdempotencyKey: it.IdempotencyKey,
		TargetID:       it.TargetID,
		Kind:           it.kind,
		Reason:         reason,
		Retryable:      retryable,
	}
}

func countApplied(kind string, resp *BatchResponse) {
	switch kind {
	case KindLike:
		resp.ProcessedCounts.LikesProcessed++
	case KindPass:
		resp.ProcessedCounts.PassesProcessed++
	case KindSuperLike:
		resp.ProcessedCounts.SuperLikesProcessed++
	case KindBlock:
		resp.ProcessedCounts.BlocksProcessed++
	case KindReport:
		resp.ProcessedCounts.ReportsProcessed++
	case KindUnmatch:
		resp.ProcessedCounts.UnmatchesProcessed++
	}
}
