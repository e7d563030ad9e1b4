package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// Cash drawer transaction types.
const (
	DrawerOpen   = "open"
	DrawerClose  = "close"
	DrawerPayIn  = "payIn"
	DrawerPayOut = "payOut"
	DrawerSale   = "sale"
)

// CashDrawerTransaction is one movement of cash through the drawer,
// grouped by the register session that produced it.
type CashDrawerTransaction struct {
	ID          string  `json:"_id"`
	SessionRef  string  `json:"sessionRef"`
	Type        string  `json:"type"`
	Amount      float64 `json:"amount"`
	Expected    float64 `json:"expected"`
	Counted     float64 `json:"counted"`
	Reason      string  `json:"reason"`
	OrderRef    string  `json:"orderRef"`
	EmployeeRef string  `json:"employeeRef"`
	LocationRef string  `json:"locationRef"`
	Source      string  `json:"source"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
}

func cashDrawerToRow(t CashDrawerTransaction) localstore.Row {
	return localstore.Row{
		"_id":         t.ID,
		"sessionRef":  t.SessionRef,
		"type":        t.Type,
		"amount":      t.Amount,
		"expected":    t.Expected,
		"counted":     t.Counted,
		"reason":      t.Reason,
		"orderRef":    t.OrderRef,
		"employeeRef": t.EmployeeRef,
		"locationRef": t.LocationRef,
		"source":      t.Source,
		"createdAt":   t.CreatedAt,
		"updatedAt":   t.UpdatedAt,
	}
}

func cashDrawerFromRow(row localstore.Row) (CashDrawerTransaction, error) {
	return CashDrawerTransaction{
		ID:          rowString(row, "_id"),
		SessionRef:  rowString(row, "sessionRef"),
		Type:        rowString(row, "type"),
		Amount:      rowFloat(row, "amount"),
		Expected:    rowFloat(row, "expected"),
		Counted:     rowFloat(row, "counted"),
		Reason:      rowString(row, "reason"),
		OrderRef:    rowString(row, "orderRef"),
		EmployeeRef: rowString(row, "employeeRef"),
		LocationRef: rowString(row, "locationRef"),
		Source:      rowString(row, "source"),
		CreatedAt:   rowString(row, "createdAt"),
		UpdatedAt:   rowString(row, "updatedAt"),
	}, nil
}

var CashDrawerDescriptor = localstore.EntityDescriptor{
	Table:      "cashDrawerTransactions",
	PushEntity: "cashDrawerTransaction",
	Columns: []string{
		"_id", "sessionRef", "type", "amount", "expected", "counted",
		"reason", "orderRef", "employeeRef", "locationRef", "source",
		"createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS cashDrawerTransactions (
		_id         TEXT PRIMARY KEY,
		sessionRef  TEXT,
		type        TEXT,
		amount      REAL NOT NULL DEFAULT 0,
		expected    REAL NOT NULL DEFAULT 0,
		counted     REAL NOT NULL DEFAULT 0,
		reason      TEXT,
		orderRef    TEXT,
		employeeRef TEXT,
		locationRef TEXT,
		source      TEXT NOT NULL DEFAULT 'local',
		createdAt   TEXT,
		updatedAt   TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return cashDrawerFromRow(row) },
}

type CashDrawerRepository struct {
	*localstore.Repository[CashDrawerTransaction]
}

func CashDrawer(s *localstore.Store) *CashDrawerRepository {
	return &CashDrawerRepository{localstore.NewRepository(s, CashDrawerDescriptor, localstore.Codec[CashDrawerTransaction]{
		FromRow: cashDrawerFromRow,
		ToRow:   cashDrawerToRow,
	})}
}

// FindBySession returns every drawer movement of one register session,
// oldest first.
func (r *CashDrawerRepository) FindBySession(ctx context.Context, sessionRef string) ([]CashDrawerTransaction, error) {
	return r.Find(ctx, localstore.Query{
		Where: localstore.Where{"sessionRef": sessionRef},
		Order: []localstore.OrderBy{{Column: "createdAt"}},
	})
}

// FindOpenDrawerTransactions returns the "open" transactions that have no
// matching "close" yet, i.e. drawers currently open at a location.
func (r *CashDrawerRepository) FindOpenDrawerTransactions(ctx context.Context, locationRef string) ([]CashDrawerTransaction, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{
		"locationRef": locationRef,
		"type":        DrawerOpen,
		"":            localstore.Raw{SQL: `sessionRef NOT IN (SELECT sessionRef FROM cashDrawerTransactions WHERE type = ?)`, Args: []any{DrawerClose}},
	}})
}
