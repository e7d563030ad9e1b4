package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// Printer is a configured receipt or kitchen printer. Category routing
// decides which order lines print where.
type Printer struct {
	ID         string   `json:"_id"`
	Name       string   `json:"name"`
	Address    string   `json:"address"`
	Model      string   `json:"model"`
	PaperWidth int64    `json:"paperWidth"`
	Categories []string `json:"categories"`
	IsDefault  bool     `json:"isDefault"`
	IsActive   bool     `json:"isActive"`
	Source     string   `json:"source"`
	CreatedAt  string   `json:"createdAt"`
	UpdatedAt  string   `json:"updatedAt"`
}

func printerToRow(p Printer) localstore.Row {
	return localstore.Row{
		"_id":        p.ID,
		"name":       p.Name,
		"address":    p.Address,
		"model":      p.Model,
		"paperWidth": p.PaperWidth,
		"categories": jsonText(p.Categories),
		"isDefault":  boolInt(p.IsDefault),
		"isActive":   boolInt(p.IsActive),
		"source":     p.Source,
		"createdAt":  p.CreatedAt,
		"updatedAt":  p.UpdatedAt,
	}
}

func printerFromRow(row localstore.Row) (Printer, error) {
	p := Printer{
		ID:         rowString(row, "_id"),
		Name:       rowString(row, "name"),
		Address:    rowString(row, "address"),
		Model:      rowString(row, "model"),
		PaperWidth: rowInt(row, "paperWidth"),
		IsDefault:  rowBool(row, "isDefault"),
		IsActive:   rowBool(row, "isActive"),
		Source:     rowString(row, "source"),
		CreatedAt:  rowString(row, "createdAt"),
		UpdatedAt:  rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "categories", &p.Categories); err != nil {
		return Printer{}, err
	}
	return p, nil
}

var PrinterDescriptor = localstore.EntityDescriptor{
	Table:      "printers",
	PushEntity: "printer",
	Columns: []string{
		"_id", "name", "address", "model", "paperWidth", "categories",
		"isDefault", "isActive", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS printers (
		_id        TEXT PRIMARY KEY,
		name       TEXT,
		address    TEXT,
		model      TEXT,
		paperWidth INTEGER NOT NULL DEFAULT 80,
		categories TEXT,
		isDefault  INTEGER NOT NULL DEFAULT 0,
		isActive   INTEGER NOT NULL DEFAULT 1,
		source     TEXT NOT NULL DEFAULT 'local',
		createdAt  TEXT,
		updatedAt  TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return printerFromRow(row) },
}

type PrinterRepository struct {
	*localstore.Repository[Printer]
}

func Printers(s *localstore.Store) *PrinterRepository {
	return &PrinterRepository{localstore.NewRepository(s, PrinterDescriptor, localstore.Codec[Printer]{
		FromRow: printerFromRow,
		ToRow:   printerToRow,
	})}
}

// FindDefault returns the default printer, if one is configured.
func (r *PrinterRepository) FindDefault(ctx context.Context) (Printer, bool, error) {
	return r.FindOneBy(ctx, localstore.Where{"isDefault": int64(1), "isActive": int64(1)})
}
