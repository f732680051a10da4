package orderdb

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps orders per user in memory. A user present with an empty
// order list reads as "no orders", an absent user as "not found".
type MemoryStore struct {
	mu     sync.RWMutex
	orders map[string][]Order
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string][]Order)}
}

// NewMemoryStoreWithSamples returns a store seeded with the demo dataset.
func NewMemoryStoreWithSamples() *MemoryStore {
	s := NewMemoryStore()
	for userID, orders := range sampleOrders() {
		s.Seed(userID, orders...)
	}
	return s
}

// Seed registers a user and appends orders. Calling with no orders registers
// the user with an empty order history.
func (s *MemoryStore) Seed(userID string, orders ...Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[userID] = append(s.orders[userID], orders...)
}

func (s *MemoryStore) OrdersByUser(ctx context.Context, userID string) ([]Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders, ok := s.orders[userID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	out := make([]Order, len(orders))
	copy(out, orders)
	return out, nil
}

func (s *MemoryStore) OrderByID(ctx context.Context, userID, orderID string) (Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	orders, ok := s.orders[userID]
	if !ok {
		return Order{}, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	for _, o := range orders {
		if o.OrderID == orderID {
			return o, nil
		}
	}
	return Order{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
}

func sampleOrders() map[string][]Order {
	return map[string][]Order{
		"u_123456": {
			{
				OrderID:  "JTCG-202508-10001",
				UserID:   "u_123456",
				PlacedAt: "2025-08-02T10:15:00+08:00",
				Status:   "shipped",
				Items: []OrderItem{
					{OrderID: "JTCG-202508-10001", SKU: "ARM-PRO-32", Name: "JTCG Pro Monitor Arm 32\"", Qty: 1, PriceNT: 3290},
					{OrderID: "JTCG-202508-10001", SKU: "CLMP-STD", Name: "Reinforced Desk Clamp", Qty: 1, PriceNT: 390},
				},
			},
			{
				OrderID:  "JTCG-202507-10233",
				UserID:   "u_123456",
				PlacedAt: "2025-07-18T21:40:00+08:00",
				Status:   "delivered",
				Items: []OrderItem{
					{OrderID: "JTCG-202507-10233", SKU: "ARM-DUO-27", Name: "JTCG Duo Dual Monitor Arm 27\"", Qty: 1, PriceNT: 4590},
				},
			},
		},
		"u_777888": {
			{
				OrderID:  "JTCG-202508-10100",
				UserID:   "u_777888",
				PlacedAt: "2025-08-11T09:05:00+08:00",
				Status:   "processing",
				Items: []OrderItem{
					{OrderID: "JTCG-202508-10100", SKU: "ARM-LITE-24", Name: "JTCG Lite Monitor Arm 24\"", Qty: 2, PriceNT: 1890},
				},
			},
		},
		// registered user, never ordered
		"u_000001": {},
	}
}
