package model

import (
	"testing"

	"github.com/cantina-labs/possync/localstore"
	"github.com/stretchr/testify/require"
)

func TestProductRowRoundTrip(t *testing.T) {
	in := Product{
		ID:          "prod-1",
		Name:        LocalizedName{En: "Shawarma", Ar: "شاورما"},
		SKU:         "SHW-001",
		Barcode:     "6281000001234",
		Price:       18.5,
		Cost:        7.25,
		Unit:        "piece",
		Stock:       StockConfig{Tracked: true, Quantity: 42, AlertAt: 5},
		CategoryRef: "cat-1",
		Category:    Snapshot{Name: LocalizedName{En: "Sandwiches", Ar: "ساندويتشات"}},
		LocationRef: "loc-1",
		CompanyRef:  "co-1",
		IsActive:    true,
		Source:      "local",
		CreatedAt:   "2026-03-01T10:30:00.000Z",
		UpdatedAt:   "2026-03-01T10:30:00.000Z",
	}

	out, err := productFromRow(productToRow(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestOrderRowRoundTrip(t *testing.T) {
	in := Order{
		ID:          "ord-1",
		OrderNumber: "A-0042",
		Type:        OrderTypeDineIn,
		Status:      OrderStatusOpen,
		TableRef:    "tbl-3",
		Table:       Snapshot{Name: LocalizedName{En: "Table 3", Ar: "طاولة ٣"}},
		CustomerRef: "cust-1",
		Customer:    Snapshot{Name: LocalizedName{En: "Walk-in"}},
		Items: []OrderItem{
			{
				ProductRef: "prod-1",
				Product:    Snapshot{Name: LocalizedName{En: "Shawarma"}},
				Quantity:   2,
				UnitPrice:  18.5,
				Modifiers:  []OrderAddOn{{Name: LocalizedName{En: "Extra garlic"}, Price: 1}},
			},
		},
		Totals:      OrderTotals{Subtotal: 37, Tax: 5.55, Total: 42.55},
		Payments:    []Payment{{Method: "cash", Amount: 42.55, PaidAt: "2026-03-01T11:00:00.000Z"}},
		LocationRef: "loc-1",
		CompanyRef:  "co-1",
		Source:      "local",
		CreatedAt:   "2026-03-01T10:30:00.000Z",
		UpdatedAt:   "2026-03-01T10:30:00.000Z",
	}

	out, err := orderFromRow(orderToRow(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestCashDrawerRowRoundTrip(t *testing.T) {
	in := CashDrawerTransaction{
		ID:          "cd-1",
		SessionRef:  "sess-1",
		Type:        DrawerClose,
		Expected:    1500,
		Counted:     1498.75,
		Reason:      "end of shift",
		EmployeeRef: "emp-1",
		LocationRef: "loc-1",
		Source:      "local",
		CreatedAt:   "2026-03-01T23:00:00.000Z",
		UpdatedAt:   "2026-03-01T23:00:00.000Z",
	}

	out, err := cashDrawerFromRow(cashDrawerToRow(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestAdsReportRowRoundTrip(t *testing.T) {
	in := AdsReport{
		ID:          7,
		AdRef:       "ad-1",
		Impressions: 120,
		Clicks:      4,
		Date:        "2026-03-01",
		Source:      "local",
		CreatedAt:   "2026-03-01T10:30:00.000Z",
		UpdatedAt:   "2026-03-01T10:30:00.000Z",
	}

	out, err := adsReportFromRow(adsReportToRow(in))
	require.NoError(t, err)
	require.Equal(t, in, out)
}

func TestEmptyJSONColumnDecodesToDefaults(t *testing.T) {
	p, err := productFromRow(localstore.Row{"_id": "prod-1", "name": ""})
	require.NoError(t, err)
	require.Equal(t, LocalizedName{}, p.Name)
	require.Equal(t, StockConfig{}, p.Stock)
}

func TestMalformedJSONColumnFailsTheRead(t *testing.T) {
	_, err := productFromRow(localstore.Row{"_id": "prod-1", "name": "{not json"})
	require.ErrorIs(t, err, localstore.ErrMalformedRow)

	_, err = orderFromRow(localstore.Row{"_id": "ord-1", "items": "[broken"})
	require.ErrorIs(t, err, localstore.ErrMalformedRow)
}

func TestCategoryRowNullsEmptyParent(t *testing.T) {
	row := categoryToRow(Category{ID: "cat-1"})
	require.Nil(t, row["parentRef"])

	row = categoryToRow(Category{ID: "cat-2", ParentRef: "cat-1"})
	require.Equal(t, "cat-1", row["parentRef"])
}

func TestRegistryCoversCatalogue(t *testing.T) {
	reg := Registry()
	for _, table := range []string{
		"products", "categories", "customers", "orders", "billingSettings",
		"sectionTables", "batches", "boxCrates", "printers", "voidComps",
		"customCharges", "adsManagement", "adsReports", "businessDetails",
		"cashDrawerTransactions",
	} {
		_, ok := reg.Lookup(table)
		require.True(t, ok, "table %s should be registered", table)
	}
	require.Equal(t, []string{"products"}, reg.TablesForEntity("product"))
}
