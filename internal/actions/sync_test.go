package actions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tpg-connect/connect-backend/internal/directory"
)

func newSyncFixture() (*fixture, Reconciler, *fakeDirectory) {
	f := newFixture()
	dir := &fakeDirectory{profiles: map[string]*directory.ProfileSummary{
		"alice": {UserID: "alice", Name: "Alice", Age: 29},
		"bob":   {UserID: "bob", Name: "Bob", Age: 31},
	}}
	rec := NewReconciler(f.processor, f.matchRepo, dir, f.poolStats, ReconcilerConfig{
		ActiveInterval:  time.Minute,
		IdleInterval:    5 * time.Minute,
		FullResyncAfter: 7 * 24 * time.Hour,
	})
	return f, rec, dir
}

func TestSyncReplaysPendingActions(t *testing.T) {
	_, rec, _ := newSyncFixture()

	resp, err := rec.Sync(context.Background(), "alice", &SyncRequest{
		PendingActions: []PendingAction{
			{ActionID: "off1", ActionType: "LIKE_USER", TargetID: "bob", Timestamp: time.Now()},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Results.ProcessedCounts.LikesProcessed)
	assert.Equal(t, 60, resp.NextSyncInSeconds, "activity keeps the client on the short interval")
	assert.False(t, resp.ForceFullSync)
	assert.WithinDuration(t, time.Now(), resp.NewSyncTime, 5*time.Second)
}

func TestSyncDuplicateReplayHasNoSideEffects(t *testing.T) {
	f, rec, _ := newSyncFixture()
	ctx := context.Background()

	// Action already applied through the online path
	_, err := f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "off1"))
	require.NoError(t, err)

	resp, err := rec.Sync(ctx, "alice", &SyncRequest{
		PendingActions: []PendingAction{
			{ActionID: "off1", ActionType: "LIKE", TargetID: "bob", Timestamp: time.Now(), RetryCount: 3},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Results.Duplicates)
	assert.Equal(t, 0, resp.Results.ProcessedCounts.LikesProcessed)
	assert.Empty(t, resp.Results.NewMatches)
}

func TestSyncOutOfOrderActionsAnchorOnKeys(t *testing.T) {
	_, rec, _ := newSyncFixture()

	// Arbitrarily delayed and out of timestamp order; each key applies once
	resp, err := rec.Sync(context.Background(), "alice", &SyncRequest{
		PendingActions: []PendingAction{
			{ActionID: "late", ActionType: "PASS", TargetID: "bob", Timestamp: time.Now()},
			{ActionID: "early", ActionType: "LIKE", TargetID: "carol", Timestamp: time.Now().Add(-48 * time.Hour)},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, resp.Results.ProcessedCounts.LikesProcessed)
	assert.Equal(t, 1, resp.Results.ProcessedCounts.PassesProcessed)
	assert.Empty(t, resp.Results.Failures)
}

func TestSyncUnknownActionTypeFailsUpFront(t *testing.T) {
	f, rec, _ := newSyncFixture()

	resp, err := rec.Sync(context.Background(), "alice", &SyncRequest{
		PendingActions: []PendingAction{
			{ActionID: "x1", ActionType: "WAVE", TargetID: "bob", Timestamp: time.Now()},
		},
	})
	require.NoError(t, err)

	require.Len(t, resp.Results.Failures, 1)
	assert.Equal(t, ReasonUnknownKind, resp.Results.Failures[0].Reason)

	// The key was never claimed, so a corrected retry could still apply
	assert.Empty(t, f.repo.actions)
}

func TestSyncReportsServerUpdates(t *testing.T) {
	f, rec, dir := newSyncFixture()
	ctx := context.Background()

	lastSync := time.Now().Add(-time.Hour)

	// A match formed while the client was offline
	_, err := f.processor.SubmitBatch(ctx, "bob", likeBatch("alice", "b1"))
	require.NoError(t, err)
	_, err = f.processor.SubmitBatch(ctx, "alice", likeBatch("bob", "a1"))
	require.NoError(t, err)

	// Bob also edited his profile
	dir.updated = []string{"bob"}

	resp, err := rec.Sync(ctx, "alice", &SyncRequest{LastSyncTime: &lastSync})
	require.NoError(t, err)

	require.Len(t, resp.ServerUpdates, 2)
	types := map[string]string{}
	for _, u := range resp.ServerUpdates {
		types[u.Type] = u.UserID
	}
	assert.Equal(t, "bob", types[UpdateNewMatch])
	assert.Equal(t, "bob", types[UpdateProfileChanged])
}

func TestSyncIdleIntervalWhenNothingChanged(t *testing.T) {
	_, rec, _ := newSyncFixture()

	lastSync := time.Now().Add(-time.Minute)
	resp, err := rec.Sync(context.Background(), "alice", &SyncRequest{LastSyncTime: &lastSync})
	require.NoError(t, err)

	assert.Equal(t, 300, resp.NextSyncInSeconds)
	assert.Empty(t, resp.ServerUpdates)
}

func TestSyncForcesFullResyncOnExpiredPoolReference(t *testing.T) {
	_, rec, _ := newSyncFixture()

	// Fixture pool date is 2026-09-01; the pending action references an
	// older window
	resp, err := rec.Sync(context.Background(), "alice", &SyncRequest{
		PendingActions: []PendingAction{
			{ActionID: "p1", ActionType: "PASS", TargetID: "bob", Timestamp: time.Now(), PoolDate: "2026-08-30"},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.ForceFullSync)
}

func TestSyncForcesFullResyncAfterLongOffline(t *testing.T) {
	_, rec, _ := newSyncFixture()

	lastSync := time.Now().Add(-30 * 24 * time.Hour)
	resp, err := rec.Sync(context.Background(), "alice", &SyncRequest{LastSyncTime: &lastSync})
	require.NoError(t, err)
	assert.True(t, resp.ForceFullSync)
}

func TestNormalizeKind(t *testing.T) {
	assert.Equal(t, KindLike, NormalizeKind("LIKE_USER"))
	assert.Equal(t, KindLike, NormalizeKind("like"))
	assert.Equal(t, KindSuperLike, NormalizeKind("SUPERLIKE"))
	assert.Equal(t, KindSuperLike, NormalizeKind("SUPER_LIKE"))
	assert.Equal(t, KindPass, NormalizeKind("PASS_USER"))
	assert.Equal(t, "WAVE", NormalizeKind("wave"))
}
