package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cantina-labs/possync/localstore"
)

// Category groups products. Categories nest one level through ParentRef.
type Category struct {
	ID          string        `json:"_id"`
	Name        LocalizedName `json:"name"`
	ParentRef   string        `json:"parentRef"`
	LocationRef string        `json:"locationRef"`
	SortOrder   int64         `json:"sortOrder"`
	IsActive    bool          `json:"isActive"`
	Source      string        `json:"source"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

func categoryToRow(c Category) localstore.Row {
	row := localstore.Row{
		"_id":         c.ID,
		"name":        jsonText(c.Name),
		"parentRef":   c.ParentRef,
		"locationRef": c.LocationRef,
		"sortOrder":   c.SortOrder,
		"isActive":    boolInt(c.IsActive),
		"source":      c.Source,
		"createdAt":   c.CreatedAt,
		"updatedAt":   c.UpdatedAt,
	}
	if c.ParentRef == "" {
		row["parentRef"] = nil
	}
	return row
}

func categoryFromRow(row localstore.Row) (Category, error) {
	c := Category{
		ID:          rowString(row, "_id"),
		ParentRef:   rowString(row, "parentRef"),
		LocationRef: rowString(row, "locationRef"),
		SortOrder:   rowInt(row, "sortOrder"),
		IsActive:    rowBool(row, "isActive"),
		Source:      rowString(row, "source"),
		CreatedAt:   rowString(row, "createdAt"),
		UpdatedAt:   rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "name", &c.Name); err != nil {
		return Category{}, err
	}
	return c, nil
}

// CategoryDescriptor registers the categories table for storage and sync.
var CategoryDescriptor = localstore.EntityDescriptor{
	Table:      "categories",
	PushEntity: "category",
	Columns: []string{
		"_id", "name", "parentRef", "locationRef", "sortOrder", "isActive",
		"source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS categories (
		_id         TEXT PRIMARY KEY,
		name        TEXT,
		parentRef   TEXT,
		locationRef TEXT,
		sortOrder   INTEGER NOT NULL DEFAULT 0,
		isActive    INTEGER NOT NULL DEFAULT 1,
		source      TEXT NOT NULL DEFAULT 'local',
		createdAt   TEXT,
		updatedAt   TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return categoryFromRow(row) },
}

// CategoryRepository specializes Delete: removing a category orphans its
// children (parentRef nulled) instead of cascading the delete down.
type CategoryRepository struct {
	*localstore.Repository[Category]
	store *localstore.Store
}

// Categories builds the category repository over a store.
func Categories(s *localstore.Store) *CategoryRepository {
	return &CategoryRepository{
		Repository: localstore.NewRepository(s, CategoryDescriptor, localstore.Codec[Category]{
			FromRow: categoryFromRow,
			ToRow:   categoryToRow,
		}),
		store: s,
	}
}

// Delete removes the category after detaching its children. Both statements
// run in one exclusive transaction so a crash cannot leave children pointing
// at a deleted parent.
func (r *CategoryRepository) Delete(ctx context.Context, id any) error {
	return r.store.WithImmediateTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE categories SET parentRef = NULL, updatedAt = ? WHERE parentRef = ?`,
			r.store.NowString(), id); err != nil {
			return fmt.Errorf("failed to orphan child categories: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE _id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return nil
	})
}

// FindChildren returns the direct children of a category.
func (r *CategoryRepository) FindChildren(ctx context.Context, parentRef string) ([]Category, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"parentRef": parentRef}})
}

// FindRoots returns categories with no parent, in sort order.
func (r *CategoryRepository) FindRoots(ctx context.Context) ([]Category, error) {
	return r.Find(ctx, localstore.Query{
		Where: localstore.Where{"parentRef": nil},
		Order: []localstore.OrderBy{{Column: "sortOrder"}},
	})
}
