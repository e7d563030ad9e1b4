package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func seedPendingOps(t *testing.T, oplog *Oplog, table string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		data := []byte(fmt.Sprintf(`{"insertOne":{"document":{"_id":"row-%d"}}}`, i))
		require.NoError(t, oplog.append(ctx, data, table, OpInsert))
	}
}

type pushServer struct {
	*httptest.Server
	ack      atomic.Value // string
	requests atomic.Int64
	last     atomic.Value // PushRequest
	lastAuth atomic.Value // string
	lastPath atomic.Value // string
}

func newPushServer(t *testing.T) *pushServer {
	t.Helper()
	ps := &pushServer{}
	ps.ack.Store(AckAccepted)
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.requests.Add(1)
		ps.lastAuth.Store(r.Header.Get("Authorization"))
		ps.lastPath.Store(r.URL.Path)
		var req PushRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		ps.last.Store(req)
		json.NewEncoder(w).Encode(PushResponse{Ack: ps.ack.Load().(string)})
	}))
	t.Cleanup(ps.Close)
	return ps
}

func newTestCoordinator(t *testing.T, s *Store, srv *pushServer) (*PushCoordinator, *Oplog) {
	t.Helper()
	oplog := NewOplog(s)
	coord := NewPushCoordinator(NewRegistry(testItemDescriptor), oplog, PushConfig{
		BaseURL: srv.URL,
		Token:   func(ctx context.Context) (string, error) { return "test-token", nil },
	}, s.Logger())
	return coord, oplog
}

func TestPushSubmitsBatchAndMarksSynced(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := newPushServer(t)
	coord, oplog := newTestCoordinator(t, s, srv)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 3)

	require.NoError(t, coord.Push(ctx, "item", "req-1"))
	require.Equal(t, int64(1), srv.requests.Load())
	require.Equal(t, "Bearer test-token", srv.lastAuth.Load().(string))
	require.Equal(t, "/sync/item", srv.lastPath.Load().(string))

	sent := srv.last.Load().(PushRequest)
	require.Equal(t, "req-1", sent.RequestID)
	require.Len(t, sent.Operations, 3)
	require.Equal(t, "items", sent.Operations[0].TableName)
	require.Equal(t, OpInsert, sent.Operations[0].Action)

	pending, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestPushRejectedAckLeavesWholeBatchPending(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := newPushServer(t)
	srv.ack.Store("rejected")
	coord, oplog := newTestCoordinator(t, s, srv)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 3)

	err := coord.Push(ctx, "item", "req-1")
	require.ErrorIs(t, err, ErrPushFailed)

	// All-or-nothing: no entry may be marked synced on a refused batch.
	pending, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), pending)
}

func TestPushFreshRequestIDAfterRejectionDrainsBatch(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := newPushServer(t)
	srv.ack.Store("rejected")
	coord, oplog := newTestCoordinator(t, s, srv)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 3)
	require.ErrorIs(t, coord.Push(ctx, "item", "req-a"), ErrPushFailed)

	pending, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), pending)

	// A rejected batch must not stay tied to the failed request id: the next
	// trigger mints its own id and has to be able to claim the same rows.
	srv.ack.Store(AckAccepted)
	require.NoError(t, coord.Push(ctx, "item", "req-b"))
	require.Equal(t, int64(2), srv.requests.Load())

	sent := srv.last.Load().(PushRequest)
	require.Equal(t, "req-b", sent.RequestID)
	require.Len(t, sent.Operations, 3)

	pending, err = oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Zero(t, pending)
}

func TestPushResumesInterruptedRequestWithSameBatch(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := newPushServer(t)
	coord, oplog := newTestCoordinator(t, s, srv)
	ctx := context.Background()

	// Simulate a crash between claiming and sending: the rows keep their
	// request id and a re-trigger with that id resubmits exactly them.
	seedPendingOps(t, oplog, "items", 2)
	claimed, err := oplog.ClaimBatch(ctx, "req-1", []string{"items"}, 10)
	require.NoError(t, err)
	require.Equal(t, int64(2), claimed)

	seedPendingOps(t, oplog, "items", 1)

	require.NoError(t, coord.Push(ctx, "item", "req-1"))
	sent := srv.last.Load().(PushRequest)
	require.Len(t, sent.Operations, 2)

	pending, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), pending)
}

func TestPushWithNothingPendingIsNoOp(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := newPushServer(t)
	coord, _ := newTestCoordinator(t, s, srv)

	require.NoError(t, coord.Push(context.Background(), "item", "req-1"))
	require.Zero(t, srv.requests.Load())
}

func TestPushAlreadyAcknowledgedRequestIsNoOp(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := newPushServer(t)
	coord, oplog := newTestCoordinator(t, s, srv)
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 2)
	require.NoError(t, coord.Push(ctx, "item", "req-1"))
	require.Equal(t, int64(1), srv.requests.Load())

	// A duplicate trigger for a request whose rows are already synced must
	// not repeat the call.
	require.NoError(t, coord.Push(ctx, "item", "req-1"))
	require.Equal(t, int64(1), srv.requests.Load())
}

func TestPushUnknownEntity(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := newPushServer(t)
	coord, _ := newTestCoordinator(t, s, srv)

	err := coord.Push(context.Background(), "nonexistent", "req-1")
	require.ErrorIs(t, err, ErrTableNotRegistered)
}

func TestPushHTTPErrorKeepsEntriesPending(t *testing.T) {
	s := newTestStore(t, Options{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	oplog := NewOplog(s)
	coord := NewPushCoordinator(NewRegistry(testItemDescriptor), oplog, PushConfig{
		BaseURL: srv.URL,
		Token:   func(ctx context.Context) (string, error) { return "test-token", nil },
	}, s.Logger())
	ctx := context.Background()

	seedPendingOps(t, oplog, "items", 2)
	require.ErrorIs(t, coord.Push(ctx, "item", "req-1"), ErrPushFailed)

	pending, err := oplog.PendingCount(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), pending)
}
