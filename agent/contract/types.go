package contract

// IntentKind is the closed set of classifications the intent model may
// produce. Anything outside this set is a schema violation by the model.
type IntentKind string

const (
	IntentOrderInfo       IntentKind = "order_info"
	IntentProductSearch   IntentKind = "product_search"
	IntentFAQ             IntentKind = "faq"
	IntentHumanHandover   IntentKind = "human_handover"
	IntentGeneralResponse IntentKind = "general_response"
	IntentRejectRequest   IntentKind = "reject_request"
	// IntentProvidingInfo is only meaningful while a slot request is pending.
	IntentProvidingInfo IntentKind = "providing_info"
)

func (k IntentKind) Valid() bool {
	switch k {
	case IntentOrderInfo, IntentProductSearch, IntentFAQ, IntentHumanHandover,
		IntentGeneralResponse, IntentRejectRequest, IntentProvidingInfo:
		return true
	}
	return false
}

// Entities is the fixed-shape record of extracted fields. Fields the model
// did not extract stay at their zero value and are treated as absent.
type Entities struct {
	UserID  string `json:"user_id,omitempty"`
	OrderID string `json:"order_id,omitempty"`
	Email   string `json:"email,omitempty"`

	ProductQuery    string  `json:"product_query,omitempty"`
	SizeInch        int     `json:"size_inch,omitempty"`
	WeightKg        float64 `json:"weight_kg,omitempty"`
	ArmType         string  `json:"arm_type,omitempty"`
	Vesa            string  `json:"vesa,omitempty"`
	DeskThicknessMM int     `json:"desk_thickness_mm,omitempty"`
}

// Intent is the per-turn classification result. It is not persisted beyond
// the turn that produced it; ConversationContext keeps only the kind for
// diagnostics.
type Intent struct {
	Kind     IntentKind `json:"intent"`
	Language string     `json:"language,omitempty"`
	Entities Entities   `json:"entities"`
	// Summary restates the user's request and becomes the effective query
	// passed to tool-backed workers.
	Summary string `json:"summary"`
}

type ToolID string

const (
	ToolKnowledgeSearch     ToolID = "knowledge_search"
	ToolProductSearch       ToolID = "product_search"
	ToolListOrdersByUser    ToolID = "list_orders_by_user"
	ToolGetOrderDetails     ToolID = "get_order_details"
	ToolCreateSupportTicket ToolID = "create_support_ticket"
)

type ToolStatus string

const (
	StatusSuccess  ToolStatus = "success"
	StatusNotFound ToolStatus = "not_found"
	StatusNoOrders ToolStatus = "no_orders"
	StatusError    ToolStatus = "error"
)

// ToolResult is the uniform envelope every tool returns. Payload carries the
// tool-specific data; Message carries a human-readable note (localized for
// the ticket tool, diagnostic elsewhere).
type ToolResult struct {
	Status  ToolStatus `json:"status"`
	Payload any        `json:"payload,omitempty"`
	Message string     `json:"message,omitempty"`
}

type ActionType string

const (
	ActionAskForInfo   ActionType = "ask_for_info"
	ActionDispatch     ActionType = "dispatch"
	ActionReject       ActionType = "reject"
	ActionGeneralReply ActionType = "general_reply"
)

// Action is the routing decision for one turn. Slot is set only for
// ActionAskForInfo, Tool only for ActionDispatch.
type Action struct {
	Type ActionType
	Slot string
	Tool ToolID
}

func AskForInfo(slot string) Action {
	return Action{Type: ActionAskForInfo, Slot: slot}
}

func Dispatch(tool ToolID) Action {
	return Action{Type: ActionDispatch, Tool: tool}
}

func Reject() Action {
	return Action{Type: ActionReject}
}

func GeneralReply() Action {
	return Action{Type: ActionGeneralReply}
}

// TurnResult is the orchestrator output for one user turn. The shape is
// complete even when the turn failed internally; Message is then a
// natural-language fallback, never a raw error.
type TurnResult struct {
	Message string   `json:"message"`
	Intent  string   `json:"intent"`
	Tools   []string `json:"tools"`
}
