package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// SectionTable is one physical dine-in table inside a floor section.
type SectionTable struct {
	ID              string        `json:"_id"`
	Name            LocalizedName `json:"name"`
	SectionRef      string        `json:"sectionRef"`
	Section         Snapshot      `json:"section"`
	Seats           int64         `json:"seats"`
	IsOccupied      bool          `json:"isOccupied"`
	CurrentOrderRef string        `json:"currentOrderRef"`
	LocationRef     string        `json:"locationRef"`
	Source          string        `json:"source"`
	CreatedAt       string        `json:"createdAt"`
	UpdatedAt       string        `json:"updatedAt"`
}

func sectionTableToRow(t SectionTable) localstore.Row {
	return localstore.Row{
		"_id":             t.ID,
		"name":            jsonText(t.Name),
		"sectionRef":      t.SectionRef,
		"section":         jsonText(t.Section),
		"seats":           t.Seats,
		"isOccupied":      boolInt(t.IsOccupied),
		"currentOrderRef": t.CurrentOrderRef,
		"locationRef":     t.LocationRef,
		"source":          t.Source,
		"createdAt":       t.CreatedAt,
		"updatedAt":       t.UpdatedAt,
	}
}

func sectionTableFromRow(row localstore.Row) (SectionTable, error) {
	t := SectionTable{
		ID:              rowString(row, "_id"),
		SectionRef:      rowString(row, "sectionRef"),
		Seats:           rowInt(row, "seats"),
		IsOccupied:      rowBool(row, "isOccupied"),
		CurrentOrderRef: rowString(row, "currentOrderRef"),
		LocationRef:     rowString(row, "locationRef"),
		Source:          rowString(row, "source"),
		CreatedAt:       rowString(row, "createdAt"),
		UpdatedAt:       rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "name", &t.Name); err != nil {
		return SectionTable{}, err
	}
	if err := jsonInto(row, "section", &t.Section); err != nil {
		return SectionTable{}, err
	}
	return t, nil
}

var SectionTableDescriptor = localstore.EntityDescriptor{
	Table:      "sectionTables",
	PushEntity: "sectionTable",
	Columns: []string{
		"_id", "name", "sectionRef", "section", "seats", "isOccupied",
		"currentOrderRef", "locationRef", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS sectionTables (
		_id             TEXT PRIMARY KEY,
		name            TEXT,
		sectionRef      TEXT,
		section         TEXT,
		seats           INTEGER NOT NULL DEFAULT 0,
		isOccupied      INTEGER NOT NULL DEFAULT 0,
		currentOrderRef TEXT,
		locationRef     TEXT,
		source          TEXT NOT NULL DEFAULT 'local',
		createdAt       TEXT,
		updatedAt       TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return sectionTableFromRow(row) },
}

type SectionTableRepository struct {
	*localstore.Repository[SectionTable]
}

func SectionTables(s *localstore.Store) *SectionTableRepository {
	return &SectionTableRepository{localstore.NewRepository(s, SectionTableDescriptor, localstore.Codec[SectionTable]{
		FromRow: sectionTableFromRow,
		ToRow:   sectionTableToRow,
	})}
}

// FindBySection returns all tables in a floor section.
func (r *SectionTableRepository) FindBySection(ctx context.Context, sectionRef string) ([]SectionTable, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"sectionRef": sectionRef}})
}

// FindOccupied returns tables with a seated party.
func (r *SectionTableRepository) FindOccupied(ctx context.Context) ([]SectionTable, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"isOccupied": int64(1)}})
}
