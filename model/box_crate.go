package model

import (
	"github.com/cantina-labs/possync/localstore"
)

// BoxCrate is a returnable container (crate, box) carrying a deposit.
type BoxCrate struct {
	ID            string        `json:"_id"`
	Name          LocalizedName `json:"name"`
	Capacity      int64         `json:"capacity"`
	DepositAmount float64       `json:"depositAmount"`
	ProductRef    string        `json:"productRef"`
	IsReturnable  bool          `json:"isReturnable"`
	Source        string        `json:"source"`
	CreatedAt     string        `json:"createdAt"`
	UpdatedAt     string        `json:"updatedAt"`
}

func boxCrateToRow(b BoxCrate) localstore.Row {
	return localstore.Row{
		"_id":           b.ID,
		"name":          jsonText(b.Name),
		"capacity":      b.Capacity,
		"depositAmount": b.DepositAmount,
		"productRef":    b.ProductRef,
		"isReturnable":  boolInt(b.IsReturnable),
		"source":        b.Source,
		"createdAt":     b.CreatedAt,
		"updatedAt":     b.UpdatedAt,
	}
}

func boxCrateFromRow(row localstore.Row) (BoxCrate, error) {
	b := BoxCrate{
		ID:            rowString(row, "_id"),
		Capacity:      rowInt(row, "capacity"),
		DepositAmount: rowFloat(row, "depositAmount"),
		ProductRef:    rowString(row, "productRef"),
		IsReturnable:  rowBool(row, "isReturnable"),
		Source:        rowString(row, "source"),
		CreatedAt:     rowString(row, "createdAt"),
		UpdatedAt:     rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "name", &b.Name); err != nil {
		return BoxCrate{}, err
	}
	return b, nil
}

var BoxCrateDescriptor = localstore.EntityDescriptor{
	Table:      "boxCrates",
	PushEntity: "boxCrate",
	Columns: []string{
		"_id", "name", "capacity", "depositAmount", "productRef",
		"isReturnable", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS boxCrates (
		_id           TEXT PRIMARY KEY,
		name          TEXT,
		capacity      INTEGER NOT NULL DEFAULT 0,
		depositAmount REAL NOT NULL DEFAULT 0,
		productRef    TEXT,
		isReturnable  INTEGER NOT NULL DEFAULT 1,
		source        TEXT NOT NULL DEFAULT 'local',
		createdAt     TEXT,
		updatedAt     TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return boxCrateFromRow(row) },
}

type BoxCrateRepository struct {
	*localstore.Repository[BoxCrate]
}

func BoxCrates(s *localstore.Store) *BoxCrateRepository {
	return &BoxCrateRepository{localstore.NewRepository(s, BoxCrateDescriptor, localstore.Codec[BoxCrate]{
		FromRow: boxCrateFromRow,
		ToRow:   boxCrateToRow,
	})}
}
