package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// BillingSettings holds per-location tax and receipt configuration.
type BillingSettings struct {
	ID            string        `json:"_id"`
	TaxRate       float64       `json:"taxRate"`
	TaxInclusive  bool          `json:"taxInclusive"`
	CurrencyCode  string        `json:"currencyCode"`
	RoundingMode  string        `json:"roundingMode"`
	ReceiptFooter LocalizedName `json:"receiptFooter"`
	LocationRef   string        `json:"locationRef"`
	Source        string        `json:"source"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

func billingSettingsToRow(b BillingSettings) localstore.Row {
	return localstore.Row{
		"_id":           b.ID,
		"taxRate":       b.TaxRate,
		"taxInclusive":  boolInt(b.TaxInclusive),
		"currencyCode":  b.CurrencyCode,
		"roundingMode":  b.RoundingMode,
		"receiptFooter": jsonText(b.ReceiptFooter),
		"locationRef":   b.LocationRef,
		"source":        b.Source,
		"createdAt":     b.CreatedAt,
		"updatedAt":     b.UpdatedAt,
	}
}

func billingSettingsFromRow(row localstore.Row) (BillingSettings, error) {
	b := BillingSettings{
		ID:           rowString(row, "_id"),
		TaxRate:      rowFloat(row, "taxRate"),
		TaxInclusive: rowBool(row, "taxInclusive"),
		CurrencyCode: rowString(row, "currencyCode"),
		RoundingMode: rowString(row, "roundingMode"),
		LocationRef:  rowString(row, "locationRef"),
		Source:       rowString(row, "source"),
		CreatedAt:    rowString(row, "createdAt"),
		UpdatedAt:    rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "receiptFooter", &b.ReceiptFooter); err != nil {
		return BillingSettings{}, err
	}
	return b, nil
}

var BillingSettingsDescriptor = localstore.EntityDescriptor{
	Table:      "billingSettings",
	PushEntity: "billingSettings",
	Columns: []string{
		"_id", "taxRate", "taxInclusive", "currencyCode", "roundingMode",
		"receiptFooter", "locationRef", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS billingSettings (
		_id           TEXT PRIMARY KEY,
		taxRate       REAL NOT NULL DEFAULT 0,
		taxInclusive  INTEGER NOT NULL DEFAULT 0,
		currencyCode  TEXT,
		roundingMode  TEXT,
		receiptFooter TEXT,
		locationRef   TEXT,
		source        TEXT NOT NULL DEFAULT 'local',
		createdAt     TEXT,
		updatedAt     TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return billingSettingsFromRow(row) },
}

type BillingSettingsRepository struct {
	*localstore.Repository[BillingSettings]
}

func BillingSettingsRepo(s *localstore.Store) *BillingSettingsRepository {
	return &BillingSettingsRepository{localstore.NewRepository(s, BillingSettingsDescriptor, localstore.Codec[BillingSettings]{
		FromRow: billingSettingsFromRow,
		ToRow:   billingSettingsToRow,
	})}
}

// FindByLocation returns the settings row for a location, if any.
func (r *BillingSettingsRepository) FindByLocation(ctx context.Context, locationRef string) (BillingSettings, bool, error) {
	return r.FindOneBy(ctx, localstore.Where{"locationRef": locationRef})
}
