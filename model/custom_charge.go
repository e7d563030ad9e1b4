package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// CustomCharge is a configurable extra charge (service fee, delivery fee)
// applied to orders either as a flat amount or a percentage.
type CustomCharge struct {
	ID           string        `json:"_id"`
	Name         LocalizedName `json:"name"`
	Amount       float64       `json:"amount"`
	IsPercentage bool          `json:"isPercentage"`
	AppliesTo    string        `json:"appliesTo"`
	IsActive     bool          `json:"isActive"`
	Source       string        `json:"source"`
	CreatedAt    string        `json:"createdAt"`
	UpdatedAt    string        `json:"updatedAt"`
}

func customChargeToRow(c CustomCharge) localstore.Row {
	return localstore.Row{
		"_id":          c.ID,
		"name":         jsonText(c.Name),
		"amount":       c.Amount,
		"isPercentage": boolInt(c.IsPercentage),
		"appliesTo":    c.AppliesTo,
		"isActive":     boolInt(c.IsActive),
		"source":       c.Source,
		"createdAt":    c.CreatedAt,
		"updatedAt":    c.UpdatedAt,
	}
}

func customChargeFromRow(row localstore.Row) (CustomCharge, error) {
	c := CustomCharge{
		ID:           rowString(row, "_id"),
		Amount:       rowFloat(row, "amount"),
		IsPercentage: rowBool(row, "isPercentage"),
		AppliesTo:    rowString(row, "appliesTo"),
		IsActive:     rowBool(row, "isActive"),
		Source:       rowString(row, "source"),
		CreatedAt:    rowString(row, "createdAt"),
		UpdatedAt:    rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "name", &c.Name); err != nil {
		return CustomCharge{}, err
	}
	return c, nil
}

var CustomChargeDescriptor = localstore.EntityDescriptor{
	Table:      "customCharges",
	PushEntity: "customCharge",
	Columns: []string{
		"_id", "name", "amount", "isPercentage", "appliesTo", "isActive",
		"source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS customCharges (
		_id          TEXT PRIMARY KEY,
		name         TEXT,
		amount       REAL NOT NULL DEFAULT 0,
		isPercentage INTEGER NOT NULL DEFAULT 0,
		appliesTo    TEXT,
		isActive     INTEGER NOT NULL DEFAULT 1,
		source       TEXT NOT NULL DEFAULT 'local',
		createdAt    TEXT,
		updatedAt    TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return customChargeFromRow(row) },
}

type CustomChargeRepository struct {
	*localstore.Repository[CustomCharge]
}

func CustomCharges(s *localstore.Store) *CustomChargeRepository {
	return &CustomChargeRepository{localstore.NewRepository(s, CustomChargeDescriptor, localstore.Codec[CustomCharge]{
		FromRow: customChargeFromRow,
		ToRow:   customChargeToRow,
	})}
}

// FindActive returns the charges currently applied to new orders.
func (r *CustomChargeRepository) FindActive(ctx context.Context) ([]CustomCharge, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"isActive": int64(1)}})
}
