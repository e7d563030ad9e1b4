package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// Batch tracks one received lot of a stock-tracked product.
type Batch struct {
	ID          string   `json:"_id"`
	ProductRef  string   `json:"productRef"`
	Product     Snapshot `json:"product"`
	BatchNumber string   `json:"batchNumber"`
	Quantity    float64  `json:"quantity"`
	ExpiryDate  string   `json:"expiryDate"`
	ReceivedAt  string   `json:"receivedAt"`
	IsActive    bool     `json:"isActive"`
	Source      string   `json:"source"`
	CreatedAt   string   `json:"createdAt"`
	UpdatedAt   string   `json:"updatedAt"`
}

func batchToRow(b Batch) localstore.Row {
	return localstore.Row{
		"_id":         b.ID,
		"productRef":  b.ProductRef,
		"product":     jsonText(b.Product),
		"batchNumber": b.BatchNumber,
		"quantity":    b.Quantity,
		"expiryDate":  b.ExpiryDate,
		"receivedAt":  b.ReceivedAt,
		"isActive":    boolInt(b.IsActive),
		"source":      b.Source,
		"createdAt":   b.CreatedAt,
		"updatedAt":   b.UpdatedAt,
	}
}

func batchFromRow(row localstore.Row) (Batch, error) {
	b := Batch{
		ID:          rowString(row, "_id"),
		ProductRef:  rowString(row, "productRef"),
		BatchNumber: rowString(row, "batchNumber"),
		Quantity:    rowFloat(row, "quantity"),
		ExpiryDate:  rowString(row, "expiryDate"),
		ReceivedAt:  rowString(row, "receivedAt"),
		IsActive:    rowBool(row, "isActive"),
		Source:      rowString(row, "source"),
		CreatedAt:   rowString(row, "createdAt"),
		UpdatedAt:   rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "product", &b.Product); err != nil {
		return Batch{}, err
	}
	return b, nil
}

var BatchDescriptor = localstore.EntityDescriptor{
	Table:      "batches",
	PushEntity: "batch",
	Columns: []string{
		"_id", "productRef", "product", "batchNumber", "quantity",
		"expiryDate", "receivedAt", "isActive", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS batches (
		_id         TEXT PRIMARY KEY,
		productRef  TEXT,
		product     TEXT,
		batchNumber TEXT,
		quantity    REAL NOT NULL DEFAULT 0,
		expiryDate  TEXT,
		receivedAt  TEXT,
		isActive    INTEGER NOT NULL DEFAULT 1,
		source      TEXT NOT NULL DEFAULT 'local',
		createdAt   TEXT,
		updatedAt   TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return batchFromRow(row) },
}

type BatchRepository struct {
	*localstore.Repository[Batch]
}

func Batches(s *localstore.Store) *BatchRepository {
	return &BatchRepository{localstore.NewRepository(s, BatchDescriptor, localstore.Codec[Batch]{
		FromRow: batchFromRow,
		ToRow:   batchToRow,
	})}
}

// FindActiveBatches returns the active batches for a product, oldest
// received first so stock is drawn down FIFO.
func (r *BatchRepository) FindActiveBatches(ctx context.Context, productRef string) ([]Batch, error) {
	return r.Find(ctx, localstore.Query{
		Where: localstore.Where{"productRef": productRef, "isActive": int64(1)},
		Order: []localstore.OrderBy{{Column: "receivedAt"}},
	})
}
