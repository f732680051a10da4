package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"
)

// SlotName identifies one piece of information the agent may have to collect
// before an action can proceed.
type SlotName string

const (
	SlotUserID  SlotName = "user_id"
	SlotOrderID SlotName = "order_id"
	SlotEmail   SlotName = "email"
)

func (s SlotName) Valid() bool {
	switch s {
	case SlotUserID, SlotOrderID, SlotEmail:
		return true
	}
	return false
}

var (
	ErrUnknownSlot     = errors.New("unknown slot")
	ErrSlotAlreadySet  = errors.New("slot already set")
	ErrInvalidWaitFor  = errors.New("waiting_for must name an unset slot")
	ErrCorruptHistory  = errors.New("history must start with the system prompt")
	ErrNilConversation = errors.New("conversation context is nil")
)

// ConversationContext is the per-conversation state: transcript, slots and
// bookkeeping. It is single-writer: exactly one in-flight turn may mutate it,
// which the orchestrator enforces with a per-conversation lock. Mutators are
// therefore plain methods, not internally synchronized.
type ConversationContext struct {
	ConversationID string    `json:"conversation_id"`
	SystemPrompt   string    `json:"system_prompt"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Transcript is append-only except for the lazy system-prompt seeding
	// performed by History. Insertion order is replayed verbatim to the model.
	Transcript []*schema.Message `json:"history,omitempty"`

	UserID  string `json:"user_id,omitempty"`
	OrderID string `json:"order_id,omitempty"`
	Email   string `json:"email,omitempty"`

	// WaitingFor names the single slot the agent is currently expecting the
	// user to supply. Empty when nothing is pending.
	WaitingFor SlotName `json:"waiting_for,omitempty"`

	Language string `json:"language,omitempty"`

	// ToolsCalled records tool identifiers in invocation order. Audit only,
	// never consulted for routing.
	ToolsCalled []string `json:"tools_called,omitempty"`

	// LastIntent is the most recent classified intent kind. Diagnostic only.
	LastIntent string `json:"last_intent,omitempty"`
}

func NewConversationContext(conversationID, systemPrompt string, now time.Time) *ConversationContext {
	return &ConversationContext{
		ConversationID: strings.TrimSpace(conversationID),
		SystemPrompt:   systemPrompt,
		UpdatedAt:      now.UTC(),
	}
}

// History returns the transcript, seeding the system prompt lazily on first
// read. The seed happens at most once; a transcript whose first turn is
// already a system message is returned as-is.
func (c *ConversationContext) History() []*schema.Message {
	if len(c.Transcript) == 0 || c.Transcript[0] == nil || c.Transcript[0].Role != schema.System {
		seeded := make([]*schema.Message, 0, len(c.Transcript)+1)
		seeded = append(seeded, schema.SystemMessage(c.SystemPrompt))
		seeded = append(seeded, c.Transcript...)
		c.Transcript = seeded
	}
	return c.Transcript
}

// Append adds one turn to the transcript. Nil messages are dropped.
func (c *ConversationContext) Append(msg *schema.Message) {
	if msg == nil {
		return
	}
	c.History()
	c.Transcript = append(c.Transcript, msg)
}

// AppendPair adds a correlated tool-call/tool-result pair as one unit, so a
// reader never observes the call without its result.
func (c *ConversationContext) AppendPair(call, result *schema.Message) {
	if call == nil || result == nil {
		return
	}
	c.History()
	c.Transcript = append(c.Transcript, call, result)
}

// LastUserMessage returns the content of the most recent user turn, or "".
func (c *ConversationContext) LastUserMessage() string {
	for i := len(c.Transcript) - 1; i >= 0; i-- {
		if m := c.Transcript[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}

// Slot returns the value of a named slot; unknown names read as unset.
func (c *ConversationContext) Slot(name SlotName) string {
	switch name {
	case SlotUserID:
		return c.UserID
	case SlotOrderID:
		return c.OrderID
	case SlotEmail:
		return c.Email
	}
	return ""
}

// SetSlot writes a slot value. Setting the slot named by WaitingFor clears
// the pending request in the same transition.
func (c *ConversationContext) SetSlot(name SlotName, value string) error {
	value = strings.TrimSpace(value)
	switch name {
	case SlotUserID:
		c.UserID = value
	case SlotOrderID:
		c.OrderID = value
	case SlotEmail:
		c.Email = value
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSlot, name)
	}
	if c.WaitingFor == name && value != "" {
		c.WaitingFor = ""
	}
	return nil
}

// ClearSlot resets a slot to unset (e.g. email after a completed handover).
func (c *ConversationContext) ClearSlot(name SlotName) error {
	switch name {
	case SlotUserID:
		c.UserID = ""
	case SlotOrderID:
		c.OrderID = ""
	case SlotEmail:
		c.Email = ""
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSlot, name)
	}
	return nil
}

// SetWaiting marks a slot as the outstanding request. At most one request is
// tracked; the slot must be unset when the request is recorded.
func (c *ConversationContext) SetWaiting(name SlotName) error {
	if !name.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownSlot, name)
	}
	if c.Slot(name) != "" {
		return fmt.Errorf("%w: %s", ErrInvalidWaitFor, name)
	}
	c.WaitingFor = name
	return nil
}

func (c *ConversationContext) ClearWaiting() {
	c.WaitingFor = ""
}

// RecordTool appends a tool identifier to the audit trail.
func (c *ConversationContext) RecordTool(tool string) {
	if strings.TrimSpace(tool) == "" {
		return
	}
	c.ToolsCalled = append(c.ToolsCalled, tool)
}

// ToolTrail returns a copy of the invocation audit trail.
func (c *ConversationContext) ToolTrail() []string {
	out := make([]string, len(c.ToolsCalled))
	copy(out, c.ToolsCalled)
	return out
}

func (c *ConversationContext) Touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

// Validate checks the context invariants. A loaded context that fails here
// is treated as corrupt by the store.
func (c *ConversationContext) Validate() error {
	if c == nil {
		return ErrNilConversation
	}
	if strings.TrimSpace(c.ConversationID) == "" {
		return errors.New("conversation id is empty")
	}
	if c.WaitingFor != "" {
		if !c.WaitingFor.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownSlot, c.WaitingFor)
		}
		if c.Slot(c.WaitingFor) != "" {
			return fmt.Errorf("%w: %s is set", ErrInvalidWaitFor, c.WaitingFor)
		}
	}
	if len(c.Transcript) > 0 && (c.Transcript[0] == nil || c.Transcript[0].Role != schema.System) {
		return ErrCorruptHistory
	}
	return nil
}
