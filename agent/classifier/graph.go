package classifier

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
)

// intentLLMOutput mirrors the JSON document the intent prompt instructs the
// model to emit.
type intentLLMOutput struct {
	Intent   string             `json:"intent"`
	Language string             `json:"language"`
	Entities contractx.Entities `json:"entities"`
	Summary  string             `json:"summary"`
}

func compileIntentGraph(
	ctx context.Context,
	chatModel einomodel.BaseChatModel,
	systemPrompt string,
) (compose.Runnable[map[string]any, intentLLMOutput], error) {
	template := einoprompt.FromMessages(
		schema.FString,
		schema.SystemMessage(systemPrompt),
		schema.MessagesPlaceholder("history", true),
	)

	parser := schema.NewMessageJSONParser[intentLLMOutput](&schema.MessageJSONParseConfig{
		ParseFrom: schema.MessageParseFromContent,
	})

	graph := compose.NewGraph[map[string]any, intentLLMOutput]()
	if err := graph.AddChatTemplateNode("prompt", template); err != nil {
		return nil, fmt.Errorf("add intent prompt node: %w", err)
	}
	if err := graph.AddChatModelNode("model", chatModel); err != nil {
		return nil, fmt.Errorf("add intent model node: %w", err)
	}
	if err := graph.AddLambdaNode("parse_json", compose.MessageParser(parser)); err != nil {
		return nil, fmt.Errorf("add intent parser node: %w", err)
	}

	if err := graph.AddEdge(compose.START, "prompt"); err != nil {
		return nil, fmt.Errorf("add intent edge start->prompt: %w", err)
	}
	if err := graph.AddEdge("prompt", "model"); err != nil {
		return nil, fmt.Errorf("add intent edge prompt->model: %w", err)
	}
	if err := graph.AddEdge("model", "parse_json"); err != nil {
		return nil, fmt.Errorf("add intent edge model->parse: %w", err)
	}
	if err := graph.AddEdge("parse_json", compose.END); err != nil {
		return nil, fmt.Errorf("add intent edge parse->end: %w", err)
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("classifier.intent_graph"))
	if err != nil {
		return nil, fmt.Errorf("compile intent graph: %w", err)
	}
	return runner, nil
}
