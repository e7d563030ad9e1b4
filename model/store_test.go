package model

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cantina-labs/possync/localstore"
	"github.com/stretchr/testify/require"
)

func newCatalogueStore(t *testing.T) *localstore.Store {
	t.Helper()
	s, err := localstore.Open(filepath.Join(t.TempDir(), "pos.db"), Registry(), localstore.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestProductRepositoryFinders(t *testing.T) {
	s := newCatalogueStore(t)
	products := Products(s)
	ctx := context.Background()

	_, err := products.Create(ctx, Product{
		ID:          "prod-1",
		Name:        LocalizedName{En: "Falafel Wrap", Ar: "لفافة فلافل"},
		SKU:         "FLF-001",
		Barcode:     "6281000009999",
		CategoryRef: "cat-1",
		LocationRef: "loc-1",
		IsActive:    true,
	})
	require.NoError(t, err)

	got, found, err := products.FindBySKU(ctx, "FLF-001")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "prod-1", got.ID)

	_, found, err = products.FindByBarcode(ctx, "0000000000000")
	require.NoError(t, err)
	require.False(t, found)

	byCat, err := products.FindByCategory(ctx, "cat-1")
	require.NoError(t, err)
	require.Len(t, byCat, 1)

	// Matches either localized name field, case-insensitively.
	hits, err := products.SearchByName(ctx, "falafel")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	hits, err = products.SearchByName(ctx, "فلافل")
	require.NoError(t, err)
	require.Len(t, hits, 1)
}

func TestCategoryDeleteOrphansChildren(t *testing.T) {
	s := newCatalogueStore(t)
	categories := Categories(s)
	ctx := context.Background()

	_, err := categories.Create(ctx, Category{ID: "cat-parent", Name: LocalizedName{En: "Drinks"}})
	require.NoError(t, err)
	_, err = categories.Create(ctx, Category{ID: "cat-child", ParentRef: "cat-parent", Name: LocalizedName{En: "Hot"}})
	require.NoError(t, err)

	require.NoError(t, categories.Delete(ctx, "cat-parent"))

	_, err = categories.FindByID(ctx, "cat-parent")
	require.ErrorIs(t, err, localstore.ErrNotFound)

	child, err := categories.FindByID(ctx, "cat-child")
	require.NoError(t, err)
	require.Empty(t, child.ParentRef)

	roots, err := categories.FindRoots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	require.Equal(t, "cat-child", roots[0].ID)
}

func TestOrderLifecycleFinders(t *testing.T) {
	s := newCatalogueStore(t)
	orders := Orders(s)
	ctx := context.Background()

	_, err := orders.Create(ctx, Order{
		ID:       "ord-1",
		Type:     OrderTypeDineIn,
		Status:   OrderStatusOpen,
		TableRef: "tbl-3",
		Items:    []OrderItem{{ProductRef: "prod-1", Quantity: 1, UnitPrice: 18.5}},
	})
	require.NoError(t, err)
	_, err = orders.Create(ctx, Order{ID: "ord-2", Type: OrderTypeTakeaway, Status: OrderStatusPaid})
	require.NoError(t, err)

	open, err := orders.FindOpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)
	require.Equal(t, "ord-1", open[0].ID)

	onTable, err := orders.FindByTable(ctx, "tbl-3")
	require.NoError(t, err)
	require.Len(t, onTable, 1)

	page, total, err := orders.FindByDateRange(ctx,
		"2000-01-01T00:00:00.000Z", "9999-12-31T23:59:59.999Z", 1, 0)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, int64(2), total)
}

func TestAdsReportUsesStoreAssignedKey(t *testing.T) {
	s := newCatalogueStore(t)
	reports := AdsReports(s)
	ctx := context.Background()

	first, err := reports.Create(ctx, AdsReport{AdRef: "ad-1", Impressions: 10, Date: "2026-03-01"})
	require.NoError(t, err)
	require.Equal(t, int64(1), first.ID)

	second, err := reports.Create(ctx, AdsReport{AdRef: "ad-1", Impressions: 20, Date: "2026-03-02"})
	require.NoError(t, err)
	require.Equal(t, int64(2), second.ID)

	byAd, err := reports.FindByAd(ctx, "ad-1")
	require.NoError(t, err)
	require.Len(t, byAd, 2)
}

// End-to-end: a catalogue write flows through the change listener into the
// outbox and wakes the sync side for the right entity; a later write to the
// same row queues as an update, not a second insert.
func TestLocalWriteReachesOutboxAndNotifier(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	s, err := localstore.Open(filepath.Join(t.TempDir(), "pos.db"), Registry(), localstore.Options{Now: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	oplog := localstore.NewOplog(s)
	notifier := localstore.NewNotifier(16, s.Logger())
	listener := localstore.NewListener(s, Registry(), oplog, notifier)
	ctx, cancel := context.WithCancel(context.Background())
	listener.Start(ctx)
	t.Cleanup(func() {
		listener.Stop()
		cancel()
	})

	created, err := Products(s).Create(ctx, Product{Name: LocalizedName{En: "Karak Tea"}})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := oplog.PendingCount(ctx)
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	counts, err := oplog.PendingByTable(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), counts["products"])

	select {
	case entity := <-notifier.C():
		require.Equal(t, "product", entity)
	case <-time.After(time.Second):
		t.Fatal("expected a sync notification for products")
	}

	// The queued payload carries the full document keyed by its new id.
	claimed, err := oplog.ClaimBatch(ctx, "req-1", []string{"products"}, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), claimed)
	entries, err := oplog.PendingByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var env struct {
		InsertOne struct {
			Document Product `json:"document"`
		} `json:"insertOne"`
	}
	require.NoError(t, json.Unmarshal([]byte(entries[0].Data), &env))
	require.Equal(t, created.ID, env.InsertOne.Document.ID)
	require.Equal(t, "Karak Tea", env.InsertOne.Document.Name.En)

	// Renaming the product in a later minute queues an update filtered by
	// the same id, not a duplicate insert.
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	created.Name.En = "Karak Chai"
	require.NoError(t, Products(s).Update(ctx, created.ID, created))

	// The claimed insert is still pending, plus the fresh update.
	require.Eventually(t, func() bool {
		n, err := oplog.PendingCount(ctx)
		return err == nil && n == 2
	}, 2*time.Second, 10*time.Millisecond)

	pending, err := oplog.PendingByRequest(ctx, "req-1")
	require.NoError(t, err)
	require.Len(t, pending, 1) // the claimed insert, untouched

	claimed, err = oplog.ClaimBatch(ctx, "req-2", []string{"products"}, 10)
	require.NoError(t, err)
	require.Equal(t, int64(1), claimed)
	updates, err := oplog.PendingByRequest(ctx, "req-2")
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.Equal(t, "UPDATE", updates[0].Action)

	var upd struct {
		UpdateOne struct {
			Filter struct {
				ID string `json:"_id"`
			} `json:"filter"`
			Update Product `json:"update"`
		} `json:"updateOne"`
	}
	require.NoError(t, json.Unmarshal([]byte(updates[0].Data), &upd))
	require.Equal(t, created.ID, upd.UpdateOne.Filter.ID)
	require.Equal(t, "Karak Chai", upd.UpdateOne.Update.Name.En)
}

// Rows applied from the server must not loop back into the outbox.
func TestServerAppliedWriteDoesNotLoop(t *testing.T) {
	s := newCatalogueStore(t)
	oplog := localstore.NewOplog(s)
	listener := localstore.NewListener(s, Registry(), oplog, nil)
	ctx, cancel := context.WithCancel(context.Background())
	listener.Start(ctx)
	t.Cleanup(func() {
		listener.Stop()
		cancel()
	})

	_, err := Products(s).Create(ctx, Product{
		ID:     "prod-srv",
		Name:   LocalizedName{En: "Pulled from server"},
		Source: localstore.SourceServer,
	})
	require.NoError(t, err)

	// Fence with a local write, then check only the local one was queued.
	_, err = Customers(s).Create(ctx, Customer{Name: "Walk-in"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		n, err := oplog.PendingCount(ctx)
		return err == nil && n >= 1
	}, 2*time.Second, 10*time.Millisecond)

	counts, err := oplog.PendingByTable(ctx)
	require.NoError(t, err)
	require.Zero(t, counts["products"])
	require.Equal(t, int64(1), counts["customers"])
}
