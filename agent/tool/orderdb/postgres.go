package orderdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// PostgresStore reads orders from Postgres via bun.
type PostgresStore struct {
	db *bun.DB
}

var _ Store = (*PostgresStore)(nil)

// Open connects to Postgres with the given DSN and returns a store over it.
func Open(dsn string) (*PostgresStore, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return NewPostgresStore(db), nil
}

func NewPostgresStore(db *bun.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) OrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	if err := s.ensureCustomer(ctx, userID); err != nil {
		return nil, err
	}

	var orders []Order
	err := s.db.NewSelect().
		Model(&orders).
		Relation("Items").
		Where("o.user_id = ?", userID).
		Order("o.placed_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("orderdb: list orders: %w", err)
	}
	return orders, nil
}

func (s *PostgresStore) OrderByID(ctx context.Context, userID, orderID string) (Order, error) {
	if err := s.ensureCustomer(ctx, userID); err != nil {
		return Order{}, err
	}

	var order Order
	err := s.db.NewSelect().
		Model(&order).
		Relation("Items").
		Where("o.user_id = ?", userID).
		Where("o.order_id = ?", orderID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		return Order{}, fmt.Errorf("orderdb: get order: %w", err)
	}
	return order, nil
}

func (s *PostgresStore) ensureCustomer(ctx context.Context, userID string) error {
	exists, err := s.db.NewSelect().
		Model((*Customer)(nil)).
		Where("user_id = ?", userID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("orderdb: check customer: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return nil
}
