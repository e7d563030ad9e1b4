package model

import (
	"context"

	"github.com/cantina-labs/possync/localstore"
)

// Order types and statuses.
const (
	OrderTypeDineIn   = "dineIn"
	OrderTypeTakeaway = "takeaway"
	OrderTypeDelivery = "delivery"

	OrderStatusOpen      = "open"
	OrderStatusPaid      = "paid"
	OrderStatusCancelled = "cancelled"
)

// OrderItem is one line of an order. Product name and price are snapshotted
// at ordering time so later catalogue edits do not rewrite history.
type OrderItem struct {
	ProductRef string       `json:"productRef"`
	Product    Snapshot     `json:"product"`
	Quantity   float64      `json:"quantity"`
	UnitPrice  float64      `json:"unitPrice"`
	Discount   float64      `json:"discount"`
	Note       string       `json:"note"`
	Modifiers  []OrderAddOn `json:"modifiers"`
}

// OrderAddOn is an extra applied to a line item.
type OrderAddOn struct {
	Name  LocalizedName `json:"name"`
	Price float64       `json:"price"`
}

// OrderTotals is the computed money summary for an order.
type OrderTotals struct {
	Subtotal float64 `json:"subtotal"`
	Tax      float64 `json:"tax"`
	Discount float64 `json:"discount"`
	Charges  float64 `json:"charges"`
	Total    float64 `json:"total"`
}

// Payment is one settlement against an order.
type Payment struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
	PaidAt string  `json:"paidAt"`
}

// Order is a dine-in, takeaway or delivery sale.
type Order struct {
	ID          string      `json:"_id"`
	OrderNumber string      `json:"orderNumber"`
	Type        string      `json:"type"`
	Status      string      `json:"status"`
	TableRef    string      `json:"tableRef"`
	Table       Snapshot    `json:"table"`
	CustomerRef string      `json:"customerRef"`
	Customer    Snapshot    `json:"customer"`
	Items       []OrderItem `json:"items"`
	Totals      OrderTotals `json:"totals"`
	Payments    []Payment   `json:"payments"`
	LocationRef string      `json:"locationRef"`
	CompanyRef  string      `json:"companyRef"`
	Source      string      `json:"source"`
	CreatedAt   string      `json:"createdAt"`
	UpdatedAt   string      `json:"updatedAt"`
}

func orderToRow(o Order) localstore.Row {
	return localstore.Row{
		"_id":         o.ID,
		"orderNumber": o.OrderNumber,
		"type":        o.Type,
		"status":      o.Status,
		"tableRef":    o.TableRef,
		"tableName":   jsonText(o.Table),
		"customerRef": o.CustomerRef,
		"customer":    jsonText(o.Customer),
		"items":       jsonText(o.Items),
		"totals":      jsonText(o.Totals),
		"payments":    jsonText(o.Payments),
		"locationRef": o.LocationRef,
		"companyRef":  o.CompanyRef,
		"source":      o.Source,
		"createdAt":   o.CreatedAt,
		"updatedAt":   o.UpdatedAt,
	}
}

func orderFromRow(row localstore.Row) (Order, error) {
	o := Order{
		ID:          rowString(row, "_id"),
		OrderNumber: rowString(row, "orderNumber"),
		Type:        rowString(row, "type"),
		Status:      rowString(row, "status"),
		TableRef:    rowString(row, "tableRef"),
		CustomerRef: rowString(row, "customerRef"),
		LocationRef: rowString(row, "locationRef"),
		CompanyRef:  rowString(row, "companyRef"),
		Source:      rowString(row, "source"),
		CreatedAt:   rowString(row, "createdAt"),
		UpdatedAt:   rowString(row, "updatedAt"),
	}
	for col, dst := range map[string]any{
		"tableName": &o.Table,
		"customer":  &o.Customer,
		"items":     &o.Items,
		"totals":    &o.Totals,
		"payments":  &o.Payments,
	} {
		if err := jsonInto(row, col, dst); err != nil {
			return Order{}, err
		}
	}
	return o, nil
}

// OrderDescriptor registers the orders table for storage and sync. The
// table-name snapshot column is "tableName" because "table" is reserved.
var OrderDescriptor = localstore.EntityDescriptor{
	Table:      "orders",
	PushEntity: "order",
	Columns: []string{
		"_id", "orderNumber", "type", "status", "tableRef", "tableName",
		"customerRef", "customer", "items", "totals", "payments",
		"locationRef", "companyRef", "source", "createdAt", "updatedAt",
	},
	CreateSQL: `CREATE TABLE IF NOT EXISTS orders (
		_id         TEXT PRIMARY KEY,
		orderNumber TEXT,
		type        TEXT,
		status      TEXT,
		tableRef    TEXT,
		tableName   TEXT,
		customerRef TEXT,
		customer    TEXT,
		items       TEXT,
		totals      TEXT,
		payments    TEXT,
		locationRef TEXT,
		companyRef  TEXT,
		source      TEXT NOT NULL DEFAULT 'local',
		createdAt   TEXT,
		updatedAt   TEXT
	)`,
	Document: func(row localstore.Row) (any, error) { return orderFromRow(row) },
}

// OrderRepository adds the lifecycle finders the billing and dine-in screens
// drive.
type OrderRepository struct {
	*localstore.Repository[Order]
}

// Orders builds the order repository over a store.
func Orders(s *localstore.Store) *OrderRepository {
	return &OrderRepository{localstore.NewRepository(s, OrderDescriptor, localstore.Codec[Order]{
		FromRow: orderFromRow,
		ToRow:   orderToRow,
	})}
}

// FindOpenOrders returns unpaid orders, newest first.
func (r *OrderRepository) FindOpenOrders(ctx context.Context) ([]Order, error) {
	return r.Find(ctx, localstore.Query{
		Where: localstore.Where{"status": OrderStatusOpen},
		Order: []localstore.OrderBy{{Column: "createdAt", Desc: true}},
	})
}

// FindByTable returns the open orders on a dine-in table.
func (r *OrderRepository) FindByTable(ctx context.Context, tableRef string) ([]Order, error) {
	return r.Find(ctx, localstore.Query{
		Where: localstore.Where{"tableRef": tableRef, "status": OrderStatusOpen},
	})
}

// FindByDateRange returns one page of orders created in [from, to],
// inclusive, plus the total count for that range.
func (r *OrderRepository) FindByDateRange(ctx context.Context, from, to string, take, skip int) ([]Order, int64, error) {
	return r.FindAndCount(ctx, localstore.Query{
		Where: localstore.Where{"createdAt": localstore.Between{From: from, To: to}},
		Order: []localstore.OrderBy{{Column: "createdAt", Desc: true}},
		Take:  take,
		Skip:  skip,
	})
}
