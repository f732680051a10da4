// Package orderdb provides the order storage behind the order-info tools,
// with a Postgres-backed store for deployments and an in-memory store seeded
// with sample data for local runs and tests.
package orderdb

import (
	"context"
	"errors"

	"github.com/uptrace/bun"
)

var (
	ErrUserNotFound  = errors.New("user id not found")
	ErrOrderNotFound = errors.New("order id not found")
)

type Customer struct {
	bun.BaseModel `bun:"table:customers"`

	UserID string `bun:"user_id,pk" json:"user_id"`
	Name   string `bun:"name" json:"name,omitempty"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders,alias:o"`

	OrderID  string      `bun:"order_id,pk" json:"order_id"`
	UserID   string      `bun:"user_id" json:"user_id"`
	PlacedAt string      `bun:"placed_at" json:"placed_at"`
	Status   string      `bun:"status" json:"status"`
	Items    []OrderItem `bun:"rel:has-many,join:order_id=order_id" json:"items"`
}

type OrderItem struct {
	bun.BaseModel `bun:"table:order_items"`

	ID      int64   `bun:"id,pk,autoincrement" json:"-"`
	OrderID string  `bun:"order_id" json:"-"`
	SKU     string  `bun:"sku" json:"sku"`
	Name    string  `bun:"name" json:"name"`
	Qty     int     `bun:"qty" json:"qty"`
	PriceNT int     `bun:"price_nt" json:"price_nt"`
}

// Store is the lookup surface the order tools need. Implementations must
// distinguish an unknown user from a known user with no orders.
type Store interface {
	OrdersByUser(ctx context.Context, userID string) ([]Order, error)
	OrderByID(ctx context.Context, userID, orderID string) (Order, error)
}
