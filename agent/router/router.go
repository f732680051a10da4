// Package router maps a classified intent plus conversation state to exactly
// one action. Routing is a pure function over its inputs: no model calls, no
// I/O, same decision for the same state every time.
package router

import (
	"strings"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
)

// Route decides the action for one turn and applies the slot transitions that
// decision implies to conv (absorbing extracted entities, clearing a
// satisfied wait, marking a new one).
func Route(intent contractx.Intent, conv *statex.ConversationContext) contractx.Action {
	if intent.Kind == contractx.IntentRejectRequest {
		return contractx.Reject()
	}

	// absorbed slot writes clear a matching wait, so capture it first
	pending := conv.WaitingFor
	absorbed := absorbEntities(intent.Entities, conv)

	kind := intent.Kind
	if pending != "" || len(absorbed) > 0 {
		kind = resolveWaiting(intent, conv, absorbed, pending)
	}

	switch kind {
	case contractx.IntentOrderInfo:
		return routeOrderInfo(conv)
	case contractx.IntentProductSearch:
		return contractx.Dispatch(contractx.ToolProductSearch)
	case contractx.IntentFAQ:
		return contractx.Dispatch(contractx.ToolKnowledgeSearch)
	case contractx.IntentHumanHandover:
		return routeHandover(conv)
	default:
		return contractx.GeneralReply()
	}
}

// absorbEntities writes extracted slot values into the conversation before
// any routing decision, so volunteered information short-circuits a pending
// or would-be slot request. An extracted value overwrites a previously
// stored one: a question about a different order or a corrected user id or
// email must replace the stale slot. Returns the slots whose value changed
// this turn.
func absorbEntities(e contractx.Entities, conv *statex.ConversationContext) map[statex.SlotName]bool {
	absorbed := map[statex.SlotName]bool{}
	for slot, value := range map[statex.SlotName]string{
		statex.SlotUserID:  e.UserID,
		statex.SlotOrderID: e.OrderID,
		statex.SlotEmail:   e.Email,
	} {
		value = strings.TrimSpace(value)
		if value == "" || conv.Slot(slot) == value {
			continue
		}
		if err := conv.SetSlot(slot, value); err == nil {
			absorbed[slot] = true
		}
	}
	return absorbed
}

// resolveWaiting handles a turn that arrives while a slot request is pending,
// or that volunteered slot values unprompted. The wait is satisfied when
// extraction filled the awaited slot, or when the user signalled
// providing_info; in the latter case with no extraction the raw message text
// is taken as the slot value. The effective intent is then re-derived from
// the slot that was filled.
func resolveWaiting(intent contractx.Intent, conv *statex.ConversationContext, absorbed map[statex.SlotName]bool, pending statex.SlotName) contractx.IntentKind {
	if pending != "" && conv.Slot(pending) == "" && intent.Kind == contractx.IntentProvidingInfo {
		if raw := strings.TrimSpace(conv.LastUserMessage()); raw != "" {
			_ = conv.SetSlot(pending, raw)
			absorbed[pending] = true
		}
	}

	// wait still open: the user changed the subject, route the new intent
	if pending != "" && !absorbed[pending] {
		if intent.Kind != contractx.IntentProvidingInfo {
			return intent.Kind
		}
		return contractx.IntentGeneralResponse
	}

	// a satisfied wait re-derives strictly from the slot that was awaited;
	// extra values volunteered in the same turn must not change the path
	if pending != "" {
		switch pending {
		case statex.SlotUserID, statex.SlotOrderID:
			return contractx.IntentOrderInfo
		case statex.SlotEmail:
			return contractx.IntentHumanHandover
		}
	}

	// nothing was pending: derive from what a providing_info turn volunteered
	if intent.Kind == contractx.IntentProvidingInfo {
		switch {
		case absorbed[statex.SlotEmail]:
			return contractx.IntentHumanHandover
		case absorbed[statex.SlotUserID] || absorbed[statex.SlotOrderID]:
			return contractx.IntentOrderInfo
		}
	}
	return intent.Kind
}

func routeOrderInfo(conv *statex.ConversationContext) contractx.Action {
	if conv.UserID == "" {
		_ = conv.SetWaiting(statex.SlotUserID)
		return contractx.AskForInfo(string(statex.SlotUserID))
	}
	if conv.OrderID == "" {
		return contractx.Dispatch(contractx.ToolListOrdersByUser)
	}
	return contractx.Dispatch(contractx.ToolGetOrderDetails)
}

func routeHandover(conv *statex.ConversationContext) contractx.Action {
	if conv.Email == "" {
		_ = conv.SetWaiting(statex.SlotEmail)
		return contractx.AskForInfo(string(statex.SlotEmail))
	}
	return contractx.Dispatch(contractx.ToolCreateSupportTicket)
}
