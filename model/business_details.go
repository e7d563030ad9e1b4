package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// BusinessDetails holds the merchant profile for one location: legal
// identity, tax registration, and the receipt header/footer text.
type BusinessDetails struct {
	ID            string        `json:"_id"`
	Name          LocalizedName `json:"name"`
	LocationRef   string        `json:"locationRef"`
	TaxNumber     string        `json:"taxNumber"`
	CRNumber      string        `json:"crNumber"`
	Phone         string        `json:"phone"`
	Email         string        `json:"email"`
	Address       Address       `json:"address"`
	ReceiptHeader string        `json:"receiptHeader"`
	ReceiptFooter string        `json:"receiptFooter"`
	Currency      string        `json:"currency"`
	LogoURL       string        `json:"logoUrl"`
	Source        string        `json:"source"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

func businessDetailsToRow(b BusinessDetails) localstore.Row {
	return localstore.Row{
		"_id":           b.ID,
		"name":          jsonText(b.Name),
		"locationRef":   b.LocationRef,
		"taxNumber":     b.TaxNumber,
		"crNumber":      b.CRNumber,
		"phone":         b.Phone,
		"email":         b.Email,
		"address":       jsonText(b.Address),
		"receiptHeader": b.ReceiptHeader,
		"receiptFooter": b.ReceiptFooter,
		"currency":      b.Currency,
		"logoUrl":       b.LogoURL,
		"source":        b.Source,
		"createdAt":     b.CreatedAt,
		"updatedAt":     b.UpdatedAt,
	}
}

func businessDetailsFromRow(row localstore.Row) (BusinessDetails, error) {
	b := BusinessDetails{
		ID:            rowString(row, "_id"),
		LocationRef:   rowString(row, "locationRef"),
		TaxNumber:     rowString(row, "taxNumber"),
		CRNumber:      rowString(row, "crNumber"),
		Phone:         rowString(row, "phone"),
		Email:         rowString(row, "email"),
		ReceiptHeader: rowString(row, "receiptHeader"),
		ReceiptFooter: rowString(row, "receiptFooter"),
		Currency:      rowString(row, "currency"),
		LogoURL:       rowString(row, "logoUrl"),
		Source:        rowString(row, "source"),
		CreatedAt:     rowString(row, "createdAt"),
		UpdatedAt:     rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "name", &b.Name); err != nil {
		return BusinessDetails{}, err
	}
	if err := jsonInto(row, "address", &b.Address); err != nil {
		return BusinessDetails{}, err
	}
	return b, nil
}

var BusinessDetailsDescriptor = localstore.EntityDescriptor{
	Table:      "businessDetails",
	PushEntity: "businessDetails",
	Columns: []string{
		"_id", "name", "locationRef", "taxNumber", "crNumber", "phone",
		"email", "address", "receiptHeader", "receiptFooter", "currency",
		"logoUrl", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS businessDetails (
		_id           TEXT PRIMARY KEY,
		name          TEXT,
		locationRef   TEXT,
		taxNumber     TEXT,
		crNumber      TEXT,
		phone         TEXT,
		email         TEXT,
		address       TEXT,
		receiptHeader TEXT,
		receiptFooter TEXT,
		currency      TEXT,
		logoUrl       TEXT,
		source        TEXT NOT NULL DEFAULT 'local',
		createdAt     TEXT,
		updatedAt     TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return businessDetailsFromRow(row) },
}

type BusinessDetailsRepository struct {
	*localstore.Repository[BusinessDetails]
}

func Business(s *localstore.Store) *BusinessDetailsRepository {
	return &BusinessDetailsRepository{localstore.NewRepository(s, BusinessDetailsDescriptor, localstore.Codec[BusinessDetails]{
		FromRow: businessDetailsFromRow,
		ToRow:   businessDetailsToRow,
	})}
}

// FindByLocation returns the profile for a location, if one has been
// provisioned.
func (r *BusinessDetailsRepository) FindByLocation(ctx context.Context, locationRef string) (BusinessDetails, bool, error) {
	return r.FindOneBy(ctx, localstore.Where{"locationRef": locationRef})
}
