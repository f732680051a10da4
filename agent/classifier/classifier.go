// Package classifier turns one user turn plus accumulated conversation
// context into a structured intent via a structured-output LLM graph.
package classifier

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
	logx "github.com/tanpawarit/jtcg-crm-agent/pkg/logger"
)

type Classifier struct {
	runner compose.Runnable[map[string]any, intentLLMOutput]
	log    zerolog.Logger
}

var _ contractx.IntentClassifier = (*Classifier)(nil)

func New(ctx context.Context, chatModel einomodel.BaseChatModel, intentPrompt string) (*Classifier, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: chat model is required", contractx.ErrValidation)
	}
	if strings.TrimSpace(intentPrompt) == "" {
		return nil, fmt.Errorf("%w: intent prompt is required", contractx.ErrValidation)
	}

	runner, err := compileIntentGraph(ctx, chatModel, intentPrompt)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		runner: runner,
		log:    logx.Component("classifier"),
	}, nil
}

// Classify runs the intent graph over the transcript. Slot values already
// collected are surfaced to the model through the prompt so it does not
// re-extract them or ask again.
func (c *Classifier) Classify(ctx context.Context, conv *statex.ConversationContext) (contractx.Intent, error) {
	if conv == nil {
		return contractx.Intent{}, fmt.Errorf("%w: conversation is required", contractx.ErrValidation)
	}

	input := map[string]any{
		"user_id":     orNone(conv.UserID),
		"order_id":    orNone(conv.OrderID),
		"email":       orNone(conv.Email),
		"waiting_for": orNone(string(conv.WaitingFor)),
		"history":     dialogueTurns(conv.History()),
	}

	out, err := c.runner.Invoke(ctx, input)
	if err != nil {
		return contractx.Intent{}, fmt.Errorf("%w: %v", contractx.ErrClassification, err)
	}

	kind := contractx.IntentKind(strings.TrimSpace(out.Intent))
	if !kind.Valid() {
		return contractx.Intent{}, fmt.Errorf("%w: unknown intent %q", contractx.ErrSchemaViolation, out.Intent)
	}

	intent := contractx.Intent{
		Kind:     kind,
		Language: strings.TrimSpace(out.Language),
		Entities: normalizeEntities(out.Entities),
		Summary:  strings.TrimSpace(out.Summary),
	}

	c.log.Debug().
		Str("conversation_id", conv.ConversationID).
		Str("intent", string(intent.Kind)).
		Str("language", intent.Language).
		Msg("classified turn")

	return intent, nil
}

// dialogueTurns strips system turns so the intent prompt stays the sole
// system instruction the model sees.
func dialogueTurns(history []*schema.Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(history))
	for _, m := range history {
		if m == nil || m.Role == schema.System {
			continue
		}
		out = append(out, m)
	}
	return out
}

func normalizeEntities(e contractx.Entities) contractx.Entities {
	e.UserID = strings.TrimSpace(e.UserID)
	e.OrderID = strings.TrimSpace(e.OrderID)
	e.Email = strings.TrimSpace(e.Email)
	e.ProductQuery = strings.TrimSpace(e.ProductQuery)
	e.ArmType = strings.TrimSpace(e.ArmType)
	e.Vesa = strings.TrimSpace(e.Vesa)
	return e
}

func orNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return "none"
	}
	return v
}
