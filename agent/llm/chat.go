package llm

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
)

// ChatModel adapts an eino chat model to the narrower contract used by the
// synthesizer and orchestrator.
type ChatModel struct {
	model einomodel.BaseChatModel
}

var _ contractx.ChatModel = (*ChatModel)(nil)

func NewChatModel(model einomodel.BaseChatModel) (*ChatModel, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	return &ChatModel{model: model}, nil
}

func (c *ChatModel) Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	out, err := c.model.Generate(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("llm: generate: %w", err)
	}
	return out, nil
}
