package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// VoidComp kinds.
const (
	VoidCompTypeVoid = "void"
	VoidCompTypeComp = "comp"
)

// VoidComp records a voided or comped order line with its approval trail.
type VoidComp struct {
	ID         string        `json:"_id"`
	OrderRef   string        `json:"orderRef"`
	ProductRef string        `json:"productRef"`
	Reason     LocalizedName `json:"reason"`
	Type       string        `json:"type"`
	Amount     float64       `json:"amount"`
	ApprovedBy string        `json:"approvedBy"`
	Source     string        `json:"source"`
	CreatedAt  string        `json:"createdAt"`
	UpdatedAt  string        `json:"updatedAt"`
}

func voidCompToRow(v VoidComp) localstore.Row {
	return localstore.Row{
		"_id":        v.ID,
		"orderRef":   v.OrderRef,
		"productRef": v.ProductRef,
		"reason":     jsonText(v.Reason),
		"type":       v.Type,
		"amount":     v.Amount,
		"approvedBy": v.ApprovedBy,
		"source":     v.Source,
		"createdAt":  v.CreatedAt,
		"updatedAt":  v.UpdatedAt,
	}
}

func voidCompFromRow(row localstore.Row) (VoidComp, error) {
	v := VoidComp{
		ID:         rowString(row, "_id"),
		OrderRef:   rowString(row, "orderRef"),
		ProductRef: rowString(row, "productRef"),
		Type:       rowString(row, "type"),
		Amount:     rowFloat(row, "amount"),
		ApprovedBy: rowString(row, "approvedBy"),
		Source:     rowString(row, "source"),
		CreatedAt:  rowString(row, "createdAt"),
		UpdatedAt:  rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "reason", &v.Reason); err != nil {
		return VoidComp{}, err
	}
	return v, nil
}

var VoidCompDescriptor = localstore.EntityDescriptor{
	Table:      "voidComps",
	PushEntity: "voidComp",
	Columns: []string{
		"_id", "orderRef", "productRef", "reason", "type", "amount",
		"approvedBy", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS voidComps (
		_id        TEXT PRIMARY KEY,
		orderRef   TEXT,
		productRef TEXT,
		reason     TEXT,
		type       TEXT,
		amount     REAL NOT NULL DEFAULT 0,
		approvedBy TEXT,
		source     TEXT NOT NULL DEFAULT 'local',
		createdAt  TEXT,
		updatedAt  TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return voidCompFromRow(row) },
}

type VoidCompRepository struct {
	*localstore.Repository[VoidComp]
}

func VoidComps(s *localstore.Store) *VoidCompRepository {
	return &VoidCompRepository{localstore.NewRepository(s, VoidCompDescriptor, localstore.Codec[VoidComp]{
		FromRow: voidCompFromRow,
		ToRow:   voidCompToRow,
	})}
}

// FindByOrder returns the void/comp records for one order.
func (r *VoidCompRepository) FindByOrder(ctx context.Context, orderRef string) ([]VoidComp, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"orderRef": orderRef}})
}
