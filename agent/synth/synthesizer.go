// Package synth turns raw tool results into user-facing replies. It records
// the call as a correlated tool-call/tool-result pair in the transcript, so
// the responder model sees what was asked of the tool and what came back.
package synth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
	logx "github.com/tanpawarit/jtcg-crm-agent/pkg/logger"
)

const toolCallIDLen = 30

type Synthesizer struct {
	chat contractx.ChatModel
	log  zerolog.Logger
}

func New(chat contractx.ChatModel) (*Synthesizer, error) {
	if chat == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	return &Synthesizer{chat: chat, log: logx.Component("synth")}, nil
}

// Synthesize appends the tool-call pair to the transcript, asks the model for
// a reply over the full history and appends that reply. The pair stays in the
// transcript even if the model call fails, so a retry sees the tool output.
func (s *Synthesizer) Synthesize(
	ctx context.Context,
	conv *statex.ConversationContext,
	tool contractx.ToolID,
	input map[string]any,
	output contractx.ToolResult,
) (string, error) {
	if conv == nil {
		return "", fmt.Errorf("%w: conversation is required", contractx.ErrValidation)
	}

	call, result, err := buildToolPair(tool, input, output)
	if err != nil {
		return "", err
	}
	conv.AppendPair(call, result)

	reply, err := s.chat.Chat(ctx, conv.History())
	if err != nil {
		return "", fmt.Errorf("synthesize %s: %w", tool, err)
	}

	conv.Append(reply)

	s.log.Debug().
		Str("conversation_id", conv.ConversationID).
		Str("tool", string(tool)).
		Msg("synthesized tool response")

	return reply.Content, nil
}

// SynthesizePlain asks the model for a reply steered by a one-off instruction
// that is not recorded in the transcript. The reply is appended.
func (s *Synthesizer) SynthesizePlain(ctx context.Context, conv *statex.ConversationContext, instruction string) (string, error) {
	if conv == nil {
		return "", fmt.Errorf("%w: conversation is required", contractx.ErrValidation)
	}

	history := conv.History()
	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, schema.SystemMessage(instruction))

	reply, err := s.chat.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("synthesize plain: %w", err)
	}

	conv.Append(reply)
	return reply.Content, nil
}

// Summarize produces a transcript summary without touching the transcript.
func (s *Synthesizer) Summarize(ctx context.Context, conv *statex.ConversationContext, instruction string) (string, error) {
	if conv == nil {
		return "", fmt.Errorf("%w: conversation is required", contractx.ErrValidation)
	}

	history := conv.History()
	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, schema.SystemMessage(instruction))

	reply, err := s.chat.Chat(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("summarize: %w", err)
	}
	return reply.Content, nil
}

func buildToolPair(tool contractx.ToolID, input map[string]any, output contractx.ToolResult) (*schema.Message, *schema.Message, error) {
	callID := "call_" + uuid.NewString()
	if len(callID) > toolCallIDLen {
		callID = callID[:toolCallIDLen]
	}

	if input == nil {
		input = map[string]any{}
	}
	argsJSON, err := json.Marshal(input)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tool input: %w", err)
	}
	outputJSON, err := json.Marshal(output)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal tool output: %w", err)
	}

	call := &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{
			{
				ID:   callID,
				Type: "function",
				Function: schema.FunctionCall{
					Name:      string(tool),
					Arguments: string(argsJSON),
				},
			},
		},
	}
	result := &schema.Message{
		Role:       schema.Tool,
		Content:    string(outputJSON),
		ToolCallID: callID,
	}
	return call, result, nil
}
