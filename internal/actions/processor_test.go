package actions

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpg-connect/connect-backend/internal/directory"
	"github.com/tpg-connect/connect-backend/internal/matches"
	"github.com/tpg-connect/connect-backend/internal/safety"
)

// memActionRepo is an in-memory Repository keyed the way the real table is.
// failPositive makes the next N HasPositiveToward calls fail, standing in
// for a dependency timeout.
type memActionRepo struct {
	mu           sync.Mutex
	actions      map[string]*UserAction // owner_id:idempotency_key
	nextID       int64
	failPositive int
}

func newMemActionRepo() *memActionRepo {
	return &memActionRepo{actions: make(map[string]*UserAction)}
}

func actionKey(ownerID, idempotencyKey string) string {
	return ownerID + ":" + idempotencyKey
}

func (m *memActionRepo) ClaimKey(ctx context.Context, action *UserAction) (bool, *UserAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := actionKey(action.OwnerID, action.IdempotencyKey)
	if existing, ok := m.actions[key]; ok {
		cp := *existing
		return false, &cp, nil
	}
	m.nextID++
	action.ID = m.nextID
	cp := *action
	m.actions[key] = &cp
	return true, nil, nil
}

func (m *memActionRepo) Resolve(ctx context.Context, ownerID, idempotencyKey, status string, failReason *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.actions[actionKey(ownerID, idempotencyKey)]; ok {
		a.Status = status
		a.FailReason = failReason
	}
	return nil
}

func (m *memActionRepo) ReclaimFailed(ctx context.Context, ownerID, idempotencyKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.actions[actionKey(ownerID, idempotencyKey)]
	if !ok || a.Status != StatusFailed {
		return false, nil
	}
	a.Status = StatusPending
	a.FailReason = nil
	return true, nil
}

func (m *memActionRepo) LatestApplied(ctx context.Context, ownerID, targetID string, lookbackDays int) (*UserAction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var cutoff time.Time
	if lookbackDays > 0 {
		cutoff = time.Now().AddDate(0, 0, -lookbackDays)
	}
	var latest *UserAction
	for _, a := range m.actions {
		if a.OwnerID == ownerID && a.TargetID == targetID && a.Status == StatusApplied && a.SubmittedAt.After(cutoff) {
			if latest == nil || a.SubmittedAt.After(latest.SubmittedAt) {
				latest = a
			}
		}
	}
	if latest == nil {
		return nil, ErrActionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (m *memActionRepo) HasPositiveToward(ctx context.Context, ownerID, targetID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPositive > 0 {
		m.failPositive--
		return false, errors.New("positive action lookup: timeout")
	}
	for _, a := range m.actions {
		if a.OwnerID == ownerID && a.TargetID == targetID && a.Status == StatusApplied && IsPositive(a.Kind) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memActionRepo) ActedOnIDs(ctx context.Context, ownerID string, lookbackDays int) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]struct{})
	for _, a := range m.actions {
		if a.OwnerID == ownerID && a.Status == StatusApplied {
			out[a.TargetID] = struct{}{}
		}
	}
	return out, nil
}

// memMatchRepo mirrors the conditional-insert semantics of the real store
type memMatchRepo struct {
	mu      sync.Mutex
	matches map[string]*matches.Match
}

func newMemMatchRepo() *memMatchRepo {
	return &memMatchRepo{matches: make(map[string]*matches.Match)}
}

func (m *memMatchRepo) CreateIfAbsent(ctx context.Context, user1ID, user2ID string) (*matches.Match, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := matches.PairKey(user1ID, user2ID)
	if existing, ok := m.matches[key]; ok {
		if existing.Status == matches.StatusUnmatched {
			existing.Status = matches.StatusActive
			existing.MatchedAt = time.Now()
			existing.EndedBy = nil
			existing.EndedAt = nil
			cp := *existing
			return &cp, true, nil
		}
		cp := *existing
		return &cp, false, nil
	}
	u1, u2 := matches.SortPair(user1ID, user2ID)
	match := &matches.Match{
		PairKey:        key,
		User1ID:        u1,
		User2ID:        u2,
		ConversationID: matches.ConversationID(user1ID, user2ID),
		Status:         matches.StatusActive,
		MatchedAt:      time.Now(),
	}
	m.matches[key] = match
	cp := *match
	return &cp, true, nil
}

func (m *memMatchRepo) GetByPair(ctx context.Context, user1ID, user2ID string) (*matches.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if match, ok := m.matches[matches.PairKey(user1ID, user2ID)]; ok {
		cp := *match
		return &cp, nil
	}
	return nil, matches.ErrMatchNotFound
}

func (m *memMatchRepo) GetActiveForUser(ctx context.Context, userID string) ([]*matches.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*matches.Match
	for _, match := range m.matches {
		if match.Status == matches.StatusActive && (match.User1ID == userID || match.User2ID == userID) {
			cp := *match
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memMatchRepo) GetCreatedSince(ctx context.Context, userID string, since time.Time) ([]*matches.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*matches.Match
	for _, match := range m.matches {
		if (match.User1ID == userID || match.User2ID == userID) && match.MatchedAt.After(since) {
			cp := *match
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memMatchRepo) UpdateStatus(ctx context.Context, pairKey, status, endedBy string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	match, ok := m.matches[pairKey]
	if !ok {
		return matches.ErrMatchNotFound
	}
	match.Status = status
	match.EndedBy = &endedBy
	now := time.Now()
	match.EndedAt = &now
	return nil
}

func (m *memMatchRepo) CountActiveForUser(ctx context.Context, userID string) (int, error) {
	active, _ := m.GetActiveForUser(ctx, userID)
	return len(active), nil
}

// stubSafety implements the surfaces the processor touches
type stubSafety struct {
	safety.Service
	mu      sync.Mutex
	blocked map[string]bool // pair key
	reports []string
}

func newStubSafety() *stubSafety {
	return &stubSafety{blocked: make(map[string]bool)}
}

func (s *stubSafety) BlockUser(ctx context.Context, userID, targetUserID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocked[matches.PairKey(userID, targetUserID)] = true
	return nil
}

func (s *stubSafety) ReportUser(ctx context.Context, reporterID, targetUserID, reason, details string) (*safety.UserReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.reports {
		if r == reporterID+":"+targetUserID {
			return nil, safety.ErrAlreadyReported
		}
	}
	s.reports = append(s.reports, reporterID+":"+targetUserID)
	return &safety.UserReport{ReporterID: reporterID, ReportedID: targetUserID, Reason: reason}, nil
}

func (s *stubSafety) IsBlockedEitherWay(ctx context.Context, user1ID, user2ID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[matches.PairKey(user1ID, user2ID)], nil
}

type fakeDirectory struct {
	profiles map[string]*directory.ProfileSummary
	updated  []string
}

func (f *fakeDirectory) GetProfileSummary(ctx context.Context, userID string) (*directory.ProfileSummary, error) {
	if p, ok := f.profiles[userID]; ok {
		return p, nil
	}
	return nil, directory.ErrProfileNotFound
}

func (f *fakeDirectory) GetPreferences(ctx context.Context, userID string) (*directory.Preferences, error) {
	return &directory.Preferences{UserID: userID, MinAge: 18, MaxAge: 99, MaxDistanceKm: 100}, nil
}

func (f *fakeDirectory) ListActiveCandidates(ctx context.Context, excludeUserID string) ([]*directory.ProfileSummary, error) {
	return nil, nil
}

func (f *fakeDirectory) ListActiveUserIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

func (f *fakeDirectory) ListUpdatedSince(ctx context.Context, userIDs []string, since sql.NullTime) ([]string, error) {
	var out []string
	for _, id := range f.updated {
		for _, want := range userIDs {
			if id == want {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingNotifier) NotifyUser(userID, eventType string, payload interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, userID+":"+eventType)
}

type stubPoolStats struct {
	mu      sync.Mutex
	actions int
	matches int
}

func (s *stubPoolStats) RecordActionStats(ctx context.Context, userID string, actions, matches int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.actions += actions
	s.matches += matches
}

func (s *stubPoolStats) CurrentPoolDate(now time.Time) string {
	return "2026-09-01"
}

type fixture struct {
	repo      *memActionRepo
	matchRepo *memMatchRepo
	safety    *stubSafety
	notifier  *recordingNotifier
	poolStats *stubPoolStats
	processor Processor
}

func newFixture() *fixture {
	return newLookbackFixture(0)
}

func newLookbackFixture(lookbackDays int) *fixture {
	f := &fixture{
		repo:      newMemActionRepo(),
		matchRepo: newMemMatchRepo(),
		safety:    newStubSafety(),
		notifier:  &recordingNotifier{},
		poolStats: &stubPoolStats{},
	}
	dir := &fakeDirectory{profiles: map[string]*directory.ProfileSummary{
		"alice": {UserID: "alice", Name: "Alice", Age: 29, PrimaryPhotoURL: "https://cdn/a.jpg"},
		"bob":   {UserID: "bob", Name: "Bob", Age: 31, PrimaryPhotoURL: "https://cdn/b.jpg"},
	}}
	f.processor = NewProcessor(f.repo, f.matchRepo, f.safety, dir, f.notifier, f.poolStats, lookbackDays)
	return f
}

func likeBatch(target, key string) *BatchRequest {
	return &BatchRequest{Likes: []ActionItem{{TargetID: target, IdempotencyKey: key}}}
}

func TestSubmitBatchAppliesLike(t *testing.T) {
	f := newFixture()

	resp, err := f.processor.SubmitBatch(context.Background(), "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ProcessedCounts.LikesProcessed)
	assert.Empty(t, resp.NewMatches, "no reciprocal like yet")
	assert.Empty(t, resp.Failures)
	assert.Equal(t, 1, f.poolStats.actions)
}

func TestSubmitBatchDuplicateKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)
	assert.Equal(t, 1, first.ProcessedCounts.LikesProcessed)

	second, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)
	assert.Equal(t, 0, second.ProcessedCounts.LikesProcessed, "duplicate must not recount")
	assert.Equal(t, 1, second.Duplicates)
	assert.Empty(t, second.NewMatches)
	assert.Equal(t, 1, f.poolStats.actions, "pool stats unchanged by replay")
}

func TestMutualLikeCreatesExactlyOneMatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.processor.SubmitBatch(ctx, "bob", likeBatch("alice", "b1"))
	require.NoError(t, err)

	resp, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a1"))
	require.NoError(t, err)

	require.Len(t, resp.NewMatches, 1)
	match := resp.NewMatches[0]
	assert.Equal(t, "bob", match.UserID)
	assert.Equal(t, "Bob", match.Name)
	assert.Equal(t, "alice_bob", match.ConversationID)

	// Both sides get notified
	assert.Contains(t, f.notifier.events, "alice:NEW_MATCH")
	assert.Contains(t, f.notifier.events, "bob:NEW_MATCH")

	// A later positive from either side must not create a second match
	resp2, err := f.processor.SubmitBatch(ctx, "bob", &BatchRequest{
		SuperLikes: []ActionItem{{TargetID: "alice", IdempotencyKey: "b2"}},
	})
	require.NoError(t, err)
	assert.Empty(t, resp2.NewMatches)
	assert.Len(t, f.matchRepo.matches, 1)
}

func TestTargetIsSelfRejected(t *testing.T) {
	f := newFixture()

	resp, err := f.processor.SubmitBatch(context.Background(), "alice", likeBatch("alice", "k1"))
	require.NoError(t, err)

	assert.Equal(t, 0, resp.ProcessedCounts.LikesProcessed)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, ReasonTargetIsSelf, resp.Failures[0].Reason)
	assert.False(t, resp.Failures[0].Retryable)
}

func TestAlreadyActionedRejected(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)

	// A second like at the same target with a fresh key is rejected
	resp, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k2"))
	require.NoError(t, err)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, ReasonAlreadyActed, resp.Failures[0].Reason)
}

func TestLikeUpgradesToSuperLike(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)

	resp, err := f.processor.SubmitBatch(ctx, "alice", &BatchRequest{
		SuperLikes: []ActionItem{{TargetID: "bob", IdempotencyKey: "k2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCounts.SuperLikesProcessed)
	assert.Empty(t, resp.Failures)

	// The reverse downgrade is not allowed
	resp2, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k3"))
	require.NoError(t, err)
	require.Len(t, resp2.Failures, 1)
	assert.Equal(t, ReasonAlreadyActed, resp2.Failures[0].Reason)
}

func TestBlockVetoesMatchCreation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.processor.SubmitBatch(ctx, "bob", likeBatch("alice", "b1"))
	require.NoError(t, err)

	// Bob blocks Alice after liking her; Alice's like must not match
	require.NoError(t, f.safety.BlockUser(ctx, "bob", "alice", ""))

	resp, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a1"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCounts.LikesProcessed, "like itself still applies")
	assert.Empty(t, resp.NewMatches)
	assert.Empty(t, f.matchRepo.matches)
}

func TestBlockEndsActiveMatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.processor.SubmitBatch(ctx, "bob", likeBatch("alice", "b1"))
	require.NoError(t, err)
	_, err = f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a1"))
	require.NoError(t, err)
	require.Len(t, f.matchRepo.matches, 1)

	resp, err := f.processor.SubmitBatch(ctx, "alice", &BatchRequest{
		Blocks: []ActionItem{{TargetID: "bob", IdempotencyKey: "a2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCounts.BlocksProcessed)

	match, err := f.matchRepo.GetByPair(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, matches.StatusBlocked, match.Status)
	assert.Contains(t, f.notifier.events, "bob:MATCH_ENDED")
}

func TestUnmatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.processor.SubmitBatch(ctx, "bob", likeBatch("alice", "b1"))
	require.NoError(t, err)
	_, err = f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a1"))
	require.NoError(t, err)

	resp, err := f.processor.SubmitBatch(ctx, "alice", &BatchRequest{
		Unmatches: []ActionItem{{TargetID: "bob", IdempotencyKey: "a2"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCounts.UnmatchesProcessed)

	match, err := f.matchRepo.GetByPair(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, matches.StatusUnmatched, match.Status)
}

func TestUnmatchWithoutMatchIsQuiet(t *testing.T) {
	f := newFixture()

	resp, err := f.processor.SubmitBatch(context.Background(), "alice", &BatchRequest{
		Unmatches: []ActionItem{{TargetID: "bob", IdempotencyKey: "a1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCounts.UnmatchesProcessed)
	assert.Empty(t, resp.Failures)
}

func TestReportAppliesAndDuplicateStaysQuiet(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	resp, err := f.processor.SubmitBatch(ctx, "alice", &BatchRequest{
		Reports: []ReportItem{{ActionItem: ActionItem{TargetID: "bob", IdempotencyKey: "r1"}, Reason: "SPAM"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCounts.ReportsProcessed)

	// Same-day re-report with a new key is treated as applied, not failed
	resp2, err := f.processor.SubmitBatch(ctx, "alice", &BatchRequest{
		Reports: []ReportItem{{ActionItem: ActionItem{TargetID: "bob", IdempotencyKey: "r2"}, Reason: "SPAM"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp2.ProcessedCounts.ReportsProcessed)
	assert.Empty(t, resp2.Failures)
	assert.Len(t, f.safety.reports, 1)
}

func TestBatchTooLarge(t *testing.T) {
	f := newFixture()

	batch := &BatchRequest{}
	for i := 0; i < maxBatchSize+1; i++ {
		batch.Passes = append(batch.Passes, ActionItem{
			TargetID:       "bob",
			IdempotencyKey: "k" + string(rune('a'+i%26)) + string(rune('0'+i/26)),
		})
	}

	_, err := f.processor.SubmitBatch(context.Background(), "alice", batch)
	assert.ErrorIs(t, err, ErrBatchTooLarge)
}

func TestBatchOutcomesAreIndependent(t *testing.T) {
	f := newFixture()

	resp, err := f.processor.SubmitBatch(context.Background(), "alice", &BatchRequest{
		Likes: []ActionItem{
			{TargetID: "bob", IdempotencyKey: "ok"},
			{TargetID: "alice", IdempotencyKey: "self"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.ProcessedCounts.LikesProcessed)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, "self", resp.Failures[0].IdempotencyKey)
}

func TestTransientFailureRetriesWithSameKey(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	// First attempt dies on the mutuality lookup
	f.repo.failPositive = 1
	resp, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)
	assert.Equal(t, 0, resp.ProcessedCounts.LikesProcessed)
	require.Len(t, resp.Failures, 1)
	assert.Equal(t, ReasonInternal, resp.Failures[0].Reason)
	assert.True(t, resp.Failures[0].Retryable)

	// Retrying the same key reclaims it and applies once the dependency
	// recovers
	retry, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)
	assert.Equal(t, 1, retry.ProcessedCounts.LikesProcessed)
	assert.Equal(t, 0, retry.Duplicates)
	assert.Empty(t, retry.Failures)

	// A further replay is a plain duplicate
	again, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)
	assert.Equal(t, 0, again.ProcessedCounts.LikesProcessed)
	assert.Equal(t, 1, again.Duplicates)
	assert.Empty(t, again.Failures)
}

func TestLookbackWindowAllowsRepeatSwipe(t *testing.T) {
	f := newLookbackFixture(30)
	ctx := context.Background()

	// An applied like from well outside the window
	f.repo.nextID++
	old := &UserAction{
		ID: f.repo.nextID, OwnerID: "alice", IdempotencyKey: "old",
		TargetID: "bob", Kind: KindLike, Status: StatusApplied,
		SubmittedAt: time.Now().AddDate(0, 0, -41),
	}
	f.repo.actions[actionKey("alice", "old")] = old

	resp, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "k1"))
	require.NoError(t, err)
	assert.Equal(t, 1, resp.ProcessedCounts.LikesProcessed)
	assert.Empty(t, resp.Failures, "re-shown candidate must be actionable again")
}

func TestRepeatSwipeAfterUnmatchRevivesMatch(t *testing.T) {
	f := newLookbackFixture(30)
	ctx := context.Background()

	_, err := f.processor.SubmitBatch(ctx, "bob", likeBatch("alice", "b1"))
	require.NoError(t, err)
	_, err = f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a1"))
	require.NoError(t, err)
	_, err = f.processor.SubmitBatch(ctx, "alice", &BatchRequest{
		Unmatches: []ActionItem{{TargetID: "bob", IdempotencyKey: "a2"}},
	})
	require.NoError(t, err)

	// Age the history past the window, then swipe again
	f.repo.mu.Lock()
	for _, a := range f.repo.actions {
		a.SubmittedAt = a.SubmittedAt.AddDate(0, 0, -41)
	}
	f.repo.mu.Unlock()

	resp, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a3"))
	require.NoError(t, err)
	assert.Empty(t, resp.Failures)
	require.Len(t, resp.NewMatches, 1, "unmatched pair re-matches on fresh mutual likes")

	match, err := f.matchRepo.GetByPair(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, matches.StatusActive, match.Status)
}

func TestConcurrentMutualLikesCreateOneMatch(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	var wg sync.WaitGroup
	responses := make([]*BatchResponse, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		resp, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a1"))
		assert.NoError(t, err)
		responses[0] = resp
	}()
	go func() {
		defer wg.Done()
		resp, err := f.processor.SubmitBatch(ctx, "bob", likeBatch("alice", "b1"))
		assert.NoError(t, err)
		responses[1] = resp
	}()
	wg.Wait()

	assert.Equal(t, 1, len(responses[0].NewMatches)+len(responses[1].NewMatches),
		"exactly one side reports the new match")
	require.Len(t, f.matchRepo.matches, 1)

	match, err := f.matchRepo.GetByPair(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, matches.StatusActive, match.Status)
	assert.Equal(t, "alice_bob", match.ConversationID)
}
