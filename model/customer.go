package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// Customer is a known buyer attached to orders for loyalty and receipts.
type Customer struct {
	ID            string  `json:"_id"`
	Name          string  `json:"name"`
	Phone         string  `json:"phone"`
	Email         string  `json:"email"`
	Address       Address `json:"address"`
	LoyaltyPoints float64 `json:"loyaltyPoints"`
	CompanyRef    string  `json:"companyRef"`
	Source        string  `json:"source"`
	CreatedAt     string  `json:"createdAt"`
	UpdatedAt     string  `json:"updatedAt"`
}

func customerToRow(c Customer) localstore.Row {
	return localstore.Row{
		"_id":           c.ID,
		"name":          c.Name,
		"phone":         c.Phone,
		"email":         c.Email,
		"address":       jsonText(c.Address),
		"loyaltyPoints": c.LoyaltyPoints,
		"companyRef":    c.CompanyRef,
		"source":        c.Source,
		"createdAt":     c.CreatedAt,
		"updatedAt":     c.UpdatedAt,
	}
}

func customerFromRow(row localstore.Row) (Customer, error) {
	c := Customer{
		ID:            rowString(row, "_id"),
		Name:          rowString(row, "name"),
		Phone:         rowString(row, "phone"),
		Email:         rowString(row, "email"),
		LoyaltyPoints: rowFloat(row, "loyaltyPoints"),
		CompanyRef:    rowString(row, "companyRef"),
		Source:        rowString(row, "source"),
		CreatedAt:     rowString(row, "createdAt"),
		UpdatedAt:     rowString(row, "updatedAt"),
	}
	if err := jsonInto(row, "address", &c.Address); err != nil {
		return Customer{}, err
	}
	return c, nil
}

// CustomerDescriptor registers the customers table for storage and sync.
var CustomerDescriptor = localstore.EntityDescriptor{
	Table:      "customers",
	PushEntity: "customer",
	Columns: []string{
		"_id", "name", "phone", "email", "address", "loyaltyPoints",
		"companyRef", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS customers (
		_id           TEXT PRIMARY KEY,
		name          TEXT,
		phone         TEXT,
		email         TEXT,
		address       TEXT,
		loyaltyPoints REAL NOT NULL DEFAULT 0,
		companyRef    TEXT,
		source        TEXT NOT NULL DEFAULT 'local',
		createdAt     TEXT,
		updatedAt     TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return customerFromRow(row) },
}

// CustomerRepository adds phone/name lookups.
type CustomerRepository struct {
	*localstore.Repository[Customer]
}

// Customers builds the customer repository over a store.
func Customers(s *localstore.Store) *CustomerRepository {
	return &CustomerRepository{localstore.NewRepository(s, CustomerDescriptor, localstore.Codec[Customer]{
		FromRow: customerFromRow,
		ToRow:   customerToRow,
	})}
}

// FindByPhone returns the customer with the given phone number, if any.
func (r *CustomerRepository) FindByPhone(ctx context.Context, phone string) (Customer, bool, error) {
	return r.FindOneBy(ctx, localstore.Where{"phone": phone})
}

// SearchByName matches term against the customer name.
func (r *CustomerRepository) SearchByName(ctx context.Context, term string) ([]Customer, error) {
	return r.Search(ctx, term, "name")
}
