package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// StockConfig describes how (and whether) stock is tracked for a product.
type StockConfig struct {
	Tracked  bool    `json:"tracked"`
	Quantity float64 `json:"quantity"`
	AlertAt  float64 `json:"alertAt"`
}

// Product is one sellable catalogue item.
type Product struct {
	ID          string        `json:"_id"`
	Name        LocalizedName `json:"name"`
	SKU         string        `json:"sku"`
	Barcode     string        `json:"barcode"`
	Price       float64       `json:"price"`
	Cost        float64       `json:"cost"`
	Unit        string        `json:"unit"`
	Stock       StockConfig   `json:"stock"`
	CategoryRef string        `json:"categoryRef"`
	Category    Snapshot      `json:"category"`
	LocationRef string        `json:"locationRef"`
	CompanyRef  string        `json:"companyRef"`
	IsActive    bool          `json:"isActive"`
	Source      string        `json:"source"`
	CreatedAt   string        `json:"createdAt"`
	UpdatedAt   string        `json:"updatedAt"`
}

func productToRow(p Product) localstore.Row {
	return localstore.Row{
		"_id":         p.ID,
		"name":        jsonText(p.Name),
		"sku":         p.SKU,
		"barcode":     p.Barcode,
		"price":       p.Price,
		"cost":        p.Cost,
		"unit":        p.Unit,
		"stock":       jsonText(p.Stock),
		"categoryRef": p.CategoryRef,
		"category":    jsonText(p.Category),
		"locationRef": p.LocationRef,
		"companyRef":  p.CompanyRef,
		"isActive":    boolInt(p.IsActive),
		"source":      p.Source,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

func productFromRow(row localstore.Row) (Product, error) {
	p := Product{
		ID:          rowString(row, "_id"),
		SKU:         rowString(row, "sku"),
		Barcode:     rowString(row, "barcode"),
		Price:       rowFloat(row, "price"),
		Cost:        rowFloat(row, "cost"),
		Unit:        rowString(row, "unit"),
		CategoryRef: rowString(row, "categoryRef"),
		LocationRef: rowString(row, "locationRef"),
		CompanyRef:  rowString(row, "companyRef"),
		IsActive:    rowBool(row, "isActive"),
		Source:      rowString(row, "source"),
		CreatedAt:   rowString(row, "createdAt"),
		UpdatedAt:   rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "name", &p.Name); err != nil {
		return Product{}, err
	}
	if err := jsonInto(row, "stock", &p.Stock); err != nil {
		return Product{}, err
	}
	if err := jsonInto(row, "category", &p.Category); err != nil {
		return Product{}, err
	}
	return p, nil
}

// ProductDescriptor registers the products table for storage and sync.
var ProductDescriptor = localstore.EntityDescriptor{
	Table:      "products",
	PushEntity: "product",
	Columns: []string{
		"_id", "name", "sku", "barcode", "price", "cost", "unit", "stock",
		"categoryRef", "category", "locationRef", "companyRef", "isActive",
		"source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS products (
		_id         TEXT PRIMARY KEY,
		name        TEXT,
		sku         TEXT,
		barcode     TEXT,
		price       REAL NOT NULL DEFAULT 0,
		cost        REAL NOT NULL DEFAULT 0,
		unit        TEXT,
		stock       TEXT,
		categoryRef TEXT,
		category    TEXT,
		locationRef TEXT,
		companyRef  TEXT,
		isActive    INTEGER NOT NULL DEFAULT 1,
		source      TEXT NOT NULL DEFAULT 'local',
		createdAt   TEXT,
		updatedAt   TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return productFromRow(row) },
}

// ProductRepository adds the product-specific finders the billing screens
// use on top of the generic CRUD surface.
type ProductRepository struct {
	*localstore.Repository[Product]
}

// Products builds the product repository over a store.
func Products(s *localstore.Store) *ProductRepository {
	return &ProductRepository{localstore.NewRepository(s, ProductDescriptor, localstore.Codec[Product]{
		FromRow: productFromRow,
		ToRow:   productToRow,
	})}
}

// FindBySKU returns the product with the given SKU, if any.
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (Product, bool, error) {
	return r.FindOneBy(ctx, localstore.Where{"sku": sku})
}

// FindByBarcode returns the product with the given barcode, if any.
func (r *ProductRepository) FindByBarcode(ctx context.Context, barcode string) (Product, bool, error) {
	return r.FindOneBy(ctx, localstore.Where{"barcode": barcode})
}

// FindByCategory returns every product in a category.
func (r *ProductRepository) FindByCategory(ctx context.Context, categoryRef string) ([]Product, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"categoryRef": categoryRef}})
}

// FindByLocation returns every product assigned to a location.
func (r *ProductRepository) FindByLocation(ctx context.Context, locationRef string) ([]Product, error) {
	return r.Find(ctx, localstore.Query{Where: localstore.Where{"locationRef": locationRef}})
}

// SearchByName matches term against both localized name fields.
func (r *ProductRepository) SearchByName(ctx context.Context, term string) ([]Product, error) {
	return r.Search(ctx, term, "name.en", "name.ar")
}
