package router

import (
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
)

func newConv(t *testing.T) *statex.ConversationContext {
	t.Helper()
	return statex.NewConversationContext("JTCG-CHAT-test", "system prompt", time.Now())
}

func TestRouteRejectWinsAlways(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	conv.UserID = "u_123456"
	if err := conv.SetWaiting(statex.SlotEmail); err != nil {
		t.Fatalf("SetWaiting() error = %v", err)
	}

	action := Route(contractx.Intent{Kind: contractx.IntentRejectRequest}, conv)
	if action.Type != contractx.ActionReject {
		t.Fatalf("expected reject, got %s", action.Type)
	}
	// reject leaves the pending request untouched
	if conv.WaitingFor != statex.SlotEmail {
		t.Fatalf("waiting_for changed: %q", conv.WaitingFor)
	}
}

func TestRouteOrderInfoWithoutUserIDAsks(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	conv.OrderID = "JTCG-202508-10001"

	action := Route(contractx.Intent{Kind: contractx.IntentOrderInfo}, conv)
	if action.Type != contractx.ActionAskForInfo || action.Slot != string(statex.SlotUserID) {
		t.Fatalf("expected ask_for_info user_id, got %#v", action)
	}
	if conv.WaitingFor != statex.SlotUserID {
		t.Fatalf("expected waiting_for user_id, got %q", conv.WaitingFor)
	}
}

func TestRouteOrderInfoWithUserIDListsOrders(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	conv.UserID = "u_123456"

	action := Route(contractx.Intent{Kind: contractx.IntentOrderInfo}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolListOrdersByUser {
		t.Fatalf("expected dispatch list_orders_by_user, got %#v", action)
	}
}

func TestRouteOrderInfoWithBothSlotsGetsDetails(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	conv.UserID = "u_123456"
	conv.OrderID = "JTCG-202508-10001"

	action := Route(contractx.Intent{Kind: contractx.IntentOrderInfo}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolGetOrderDetails {
		t.Fatalf("expected dispatch get_order_details, got %#v", action)
	}
}

func TestRouteVolunteeredUserIDShortCircuitsAsk(t *testing.T) {
	t.Parallel()

	conv := newConv(t)

	action := Route(contractx.Intent{
		Kind:     contractx.IntentOrderInfo,
		Entities: contractx.Entities{UserID: "u_123456"},
	}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolListOrdersByUser {
		t.Fatalf("expected dispatch list_orders_by_user, got %#v", action)
	}
	if conv.UserID != "u_123456" {
		t.Fatalf("user_id not absorbed: %q", conv.UserID)
	}
	if conv.WaitingFor != "" {
		t.Fatalf("unexpected waiting_for: %q", conv.WaitingFor)
	}
}

func TestRouteNewOrderIDReplacesPreviousOrder(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	conv.UserID = "u_123456"
	conv.OrderID = "JTCG-202508-10001"

	action := Route(contractx.Intent{
		Kind:     contractx.IntentOrderInfo,
		Entities: contractx.Entities{OrderID: "JTCG-202507-10233"},
	}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolGetOrderDetails {
		t.Fatalf("expected dispatch get_order_details, got %#v", action)
	}
	if conv.OrderID != "JTCG-202507-10233" {
		t.Fatalf("stale order id kept: %q", conv.OrderID)
	}
}

func TestRouteCorrectedEmailOverwrites(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	conv.Email = "ann@exmaple.com"

	action := Route(contractx.Intent{
		Kind:     contractx.IntentHumanHandover,
		Entities: contractx.Entities{Email: "ann@example.com"},
	}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolCreateSupportTicket {
		t.Fatalf("expected dispatch create_support_ticket, got %#v", action)
	}
	if conv.Email != "ann@example.com" {
		t.Fatalf("corrected email not stored: %q", conv.Email)
	}
}

func TestRouteProvidingInfoFillsAwaitedSlot(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	if err := conv.SetWaiting(statex.SlotUserID); err != nil {
		t.Fatalf("SetWaiting() error = %v", err)
	}

	action := Route(contractx.Intent{
		Kind:     contractx.IntentProvidingInfo,
		Entities: contractx.Entities{UserID: "u_123456"},
	}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolListOrdersByUser {
		t.Fatalf("expected dispatch list_orders_by_user, got %#v", action)
	}
	if conv.WaitingFor != "" {
		t.Fatalf("waiting_for not cleared: %q", conv.WaitingFor)
	}
}

func TestRouteAwaitedSlotWinsOverVolunteeredEmail(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	if err := conv.SetWaiting(statex.SlotUserID); err != nil {
		t.Fatalf("SetWaiting() error = %v", err)
	}

	action := Route(contractx.Intent{
		Kind:     contractx.IntentProvidingInfo,
		Entities: contractx.Entities{UserID: "u_123456", Email: "ann@example.com"},
	}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolListOrdersByUser {
		t.Fatalf("expected dispatch list_orders_by_user, got %#v", action)
	}
	if conv.Email != "ann@example.com" {
		t.Fatalf("volunteered email not stored: %q", conv.Email)
	}
}

func TestRouteProvidingInfoWithoutExtractionUsesRawMessage(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	if err := conv.SetWaiting(statex.SlotUserID); err != nil {
		t.Fatalf("SetWaiting() error = %v", err)
	}
	conv.Append(schema.UserMessage("u_777888"))

	action := Route(contractx.Intent{Kind: contractx.IntentProvidingInfo}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolListOrdersByUser {
		t.Fatalf("expected dispatch list_orders_by_user, got %#v", action)
	}
	if conv.UserID != "u_777888" {
		t.Fatalf("raw message not taken as slot value: %q", conv.UserID)
	}
}

func TestRouteEmailFillWhileWaitingCreatesTicket(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	if err := conv.SetWaiting(statex.SlotEmail); err != nil {
		t.Fatalf("SetWaiting() error = %v", err)
	}

	action := Route(contractx.Intent{
		Kind:     contractx.IntentProvidingInfo,
		Entities: contractx.Entities{Email: "ann@example.com"},
	}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolCreateSupportTicket {
		t.Fatalf("expected dispatch create_support_ticket, got %#v", action)
	}
	if conv.Email != "ann@example.com" {
		t.Fatalf("email not absorbed: %q", conv.Email)
	}
}

func TestRouteSubjectChangeOverridesPendingWait(t *testing.T) {
	t.Parallel()

	conv := newConv(t)
	if err := conv.SetWaiting(statex.SlotUserID); err != nil {
		t.Fatalf("SetWaiting() error = %v", err)
	}

	action := Route(contractx.Intent{
		Kind:    contractx.IntentProductSearch,
		Summary: "monitor arm for a 32 inch display",
	}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolProductSearch {
		t.Fatalf("expected dispatch product_search, got %#v", action)
	}
}

func TestRouteHandoverWithoutEmailAsks(t *testing.T) {
	t.Parallel()

	conv := newConv(t)

	action := Route(contractx.Intent{Kind: contractx.IntentHumanHandover}, conv)
	if action.Type != contractx.ActionAskForInfo || action.Slot != string(statex.SlotEmail) {
		t.Fatalf("expected ask_for_info email, got %#v", action)
	}
	if conv.WaitingFor != statex.SlotEmail {
		t.Fatalf("expected waiting_for email, got %q", conv.WaitingFor)
	}
}

func TestRouteFAQDispatchesKnowledgeSearch(t *testing.T) {
	t.Parallel()

	conv := newConv(t)

	action := Route(contractx.Intent{Kind: contractx.IntentFAQ, Summary: "warranty period"}, conv)
	if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolKnowledgeSearch {
		t.Fatalf("expected dispatch knowledge_search, got %#v", action)
	}
}

func TestRouteGeneralResponseFallsThrough(t *testing.T) {
	t.Parallel()

	conv := newConv(t)

	action := Route(contractx.Intent{Kind: contractx.IntentGeneralResponse}, conv)
	if action.Type != contractx.ActionGeneralReply {
		t.Fatalf("expected general_reply, got %#v", action)
	}
}

func TestRouteIsDeterministic(t *testing.T) {
	t.Parallel()

	intent := contractx.Intent{Kind: contractx.IntentOrderInfo}
	for i := 0; i < 3; i++ {
		conv := newConv(t)
		conv.UserID = "u_123456"
		action := Route(intent, conv)
		if action.Type != contractx.ActionDispatch || action.Tool != contractx.ToolListOrdersByUser {
			t.Fatalf("run %d: unexpected action %#v", i, action)
		}
	}
}
