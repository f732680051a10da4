package tool

import (
	"context"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	"github.com/tanpawarit/jtcg-crm-agent/agent/tool/orderdb"
)

// ListOrdersTool returns a summary list of a user's orders.
type ListOrdersTool struct {
	store orderdb.Store
}

var _ contractx.Tool = (*ListOrdersTool)(nil)

func NewListOrdersTool(store orderdb.Store) *ListOrdersTool {
	return &ListOrdersTool{store: store}
}

func (t *ListOrdersTool) Name() contractx.ToolID { return contractx.ToolListOrdersByUser }

func (t *ListOrdersTool) DisplayName() string { return "List Orders" }

func (t *ListOrdersTool) Call(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	userID, _ := args["user_id"].(string)
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return contractx.ToolResult{}, fmt.Errorf("%w: user_id is required", contractx.ErrValidation)
	}

	orders, err := t.store.OrdersByUser(ctx, userID)
	if errors.Is(err, orderdb.ErrUserNotFound) {
		return contractx.ToolResult{Status: contractx.StatusNotFound, Message: "User ID not found."}, nil
	}
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrToolFailed, err)
	}
	if len(orders) == 0 {
		return contractx.ToolResult{Status: contractx.StatusNoOrders, Message: "This user has no orders."}, nil
	}

	summaries := make([]map[string]any, 0, len(orders))
	for _, o := range orders {
		summary := ""
		if len(o.Items) > 0 {
			summary = o.Items[0].Name
		}
		summaries = append(summaries, map[string]any{
			"order_id":  o.OrderID,
			"placed_at": o.PlacedAt,
			"summary":   summary,
		})
	}

	return contractx.ToolResult{
		Status:  contractx.StatusSuccess,
		Payload: map[string]any{"orders": summaries},
	}, nil
}

// OrderDetailsTool returns the full record of one order, scoped to the
// requesting user. An order belonging to someone else reads as not_found,
// indistinguishable from an order that does not exist.
type OrderDetailsTool struct {
	store orderdb.Store
}

var _ contractx.Tool = (*OrderDetailsTool)(nil)

func NewOrderDetailsTool(store orderdb.Store) *OrderDetailsTool {
	return &OrderDetailsTool{store: store}
}

func (t *OrderDetailsTool) Name() contractx.ToolID { return contractx.ToolGetOrderDetails }

func (t *OrderDetailsTool) DisplayName() string { return "Order Details" }

func (t *OrderDetailsTool) Call(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	userID, _ := args["user_id"].(string)
	orderID, _ := args["order_id"].(string)
	userID = strings.TrimSpace(userID)
	orderID = strings.TrimSpace(orderID)
	if userID == "" || orderID == "" {
		return contractx.ToolResult{}, fmt.Errorf("%w: user_id and order_id are required", contractx.ErrValidation)
	}

	order, err := t.store.OrderByID(ctx, userID, orderID)
	if errors.Is(err, orderdb.ErrUserNotFound) {
		return contractx.ToolResult{Status: contractx.StatusNotFound, Message: "User ID not found."}, nil
	}
	if errors.Is(err, orderdb.ErrOrderNotFound) {
		return contractx.ToolResult{Status: contractx.StatusNotFound, Message: "Order ID not found."}, nil
	}
	if err != nil {
		return contractx.ToolResult{}, fmt.Errorf("%w: %v", contractx.ErrToolFailed, err)
	}

	return contractx.ToolResult{
		Status:  contractx.StatusSuccess,
		Payload: map[string]any{"details": order},
	}, nil
}
