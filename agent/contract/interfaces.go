package contract

import (
	"context"

	"github.com/cloudwego/eino/schema"

	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
)

// ChatModel is the plain conversational capability: full history in, one
// assistant message out. Used for slot prompts, rejections, general replies,
// handover summaries, and response synthesis.
type ChatModel interface {
	Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error)
}

// IntentClassifier turns the latest user turn plus accumulated context into
// a structured Intent. A result that does not fit the closed Intent shape is
// reported as ErrClassification, never returned partially.
type IntentClassifier interface {
	Classify(ctx context.Context, conv *statex.ConversationContext) (Intent, error)
}

// Tool is one external capability. Call assembles its typed input from the
// args map; absent keys mean absent inputs, never null placeholders.
type Tool interface {
	Name() ToolID
	DisplayName() string
	Call(ctx context.Context, args map[string]any) (ToolResult, error)
}

// ToolRegistry resolves a routed tool id to its implementation. Supplied by
// the host; the router and orchestrator depend only on tool ids.
type ToolRegistry interface {
	Resolve(id ToolID) (Tool, bool)
	Names() []ToolID
}
