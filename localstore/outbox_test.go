package localstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestOplogClaimBatchRespectsOrderAndLimit(t *testing.T) {
	s := newTestStore(t, Options{})
	oplog := NewOplog(s)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 5)
	seedPendingOps(t, oplog, "other", 2)

	claimed, err := oplog.ClaimBatch(ctx, "req-1", []string{"items"}, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), claimed)

	entries, err := oplog.PendingByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	// Oldest entries first; the "other" table is untouched.
	require.Equal(t, int64(1), entries[0].ID)
	require.Equal(t, int64(3), entries[2].ID)
	for _, e := range entries {
		require.Equal(t, "items", e.TableName)
	}

	// A second claim under a new id picks up where the first stopped.
	claimed, err = oplog.ClaimBatch(ctx, "req-2", []string{"items"}, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), claimed)
}

func TestOplogClaimBatchEmptyTables(t *testing.T) {
	s := newTestStore(t, Options{})
	oplog := NewOplog(s)

	claimed, err := oplog.ClaimBatch(context.Background(), "req-1", nil, 10)
	require.NoError(t, err)
	require.Zero(t, claimed)
}

func TestOplogReleaseBatchReturnsRowsToPool(t *testing.T) {
	s := newTestStore(t, Options{})
	oplog := NewOplog(s)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 3)
	claimed, err := oplog.ClaimBatch(ctx, "req-1", []string{"items"}, 2)
	require.NoError(t, err)
	require.Equal(t, int64(2), claimed)

	require.NoError(t, oplog.ReleaseBatch(ctx, "req-1"))

	entries, err := oplog.PendingByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Empty(t, entries)

	// All three rows are claimable again, released ones included.
	claimed, err = oplog.ClaimBatch(ctx, "req-2", []string{"items"}, 10)
	require.NoError(t, err)
	require.Equal(t, int64(3), claimed)
}

func TestOplogReleaseBatchLeavesSyncedRowsAlone(t *testing.T) {
	s := newTestStore(t, Options{})
	oplog := NewOplog(s)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 2)
	_, err := oplog.ClaimBatch(ctx, "req-1", []string{"items"}, 2)
	require.NoError(t, err)
	require.NoError(t, oplog.MarkSynced(ctx, "req-1"))

	require.NoError(t, oplog.ReleaseBatch(ctx, "req-1"))

	// Synced entries keep their request id for audit; nothing comes back.
	claimed, err := oplog.ClaimBatch(ctx, "req-2", []string{"items"}, 10)
	require.NoError(t, err)
	require.Zero(t, claimed)
}

func TestOplogPendingByTable(t *testing.T) {
	s := newTestStore(t, Options{})
	oplog := NewOplog(s)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 2)
	seedPendingOps(t, oplog, "orders", 1)

	counts, err := oplog.PendingByTable(ctx)
	require.NoError(t, err)
	require.Equal(t, map[string]int64{"items": 2, "orders": 1}, counts)

	total, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
}

func TestOplogMarkSyncedOnlyTouchesRequest(t *testing.T) {
	s := newTestStore(t, Options{})
	oplog := NewOplog(s)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 4)
	_, err := oplog.ClaimBatch(ctx, "req-1", []string{"items"}, 2)
	require.NoError(t, err)

	require.NoError(t, oplog.MarkSynced(ctx, "req-1"))

	pending, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), pending)
}

func TestOplogPruneSyncedKeepsPending(t *testing.T) {
	clock := newTestClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	s := newTestStore(t, Options{Now: clock.Now})
	oplog := NewOplog(s)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 3)
	_, err := oplog.ClaimBatch(ctx, "req-1", []string{"items"}, 2)
	require.NoError(t, err)
	require.NoError(t, oplog.MarkSynced(ctx, "req-1"))

	// Nothing is old enough yet.
	pruned, err := oplog.PruneSynced(ctx, clock.Now().Add(-time.Hour))
	require.NoError(t, err)
	require.Zero(t, pruned)

	pruned, err = oplog.PruneSynced(ctx, clock.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(2), pruned)

	// Pending entries survive any cutoff.
	pending, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)
}
