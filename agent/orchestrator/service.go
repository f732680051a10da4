// Package orchestrator drives one user turn end to end: classify, route,
// collect or dispatch, synthesize, persist.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	routerx "github.com/tanpawarit/jtcg-crm-agent/agent/router"
	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
	logx "github.com/tanpawarit/jtcg-crm-agent/pkg/logger"
)

var (
	ErrInvalidConversation = errors.New("conversation id is required")
	ErrInvalidMessage      = errors.New("message text is required")
)

const (
	classifyFallbackMsg = "Sorry, I'm having trouble understanding right now. Could you please rephrase?"
	retryLaterMsg       = "Sorry, that took longer than expected. Please try again in a moment."
	rejectFallbackMsg   = "I'm sorry, but I can't help with that request."
	toolErrorNote       = "The tool could not complete the request."
)

type Config struct {
	ModelTimeout time.Duration `envconfig:"MODEL_TIMEOUT" split_words:"true" default:"30s"`
	ToolTimeout  time.Duration `envconfig:"TOOL_TIMEOUT" split_words:"true" default:"10s"`
}

// Prompts is the set of instructions the orchestrator steers replies with.
type Prompts interface {
	SystemPrompt() string
	RejectPrompt() string
	GeneralPrompt() string
	SummaryPrompt() string
	AskForInfoPrompt(language, infoNeeded string) string
}

// ResponseSynthesizer produces the user-facing reply for a turn.
type ResponseSynthesizer interface {
	Synthesize(ctx context.Context, conv *statex.ConversationContext, tool contractx.ToolID, input map[string]any, output contractx.ToolResult) (string, error)
	SynthesizePlain(ctx context.Context, conv *statex.ConversationContext, instruction string) (string, error)
	Summarize(ctx context.Context, conv *statex.ConversationContext, instruction string) (string, error)
}

type Orchestrator struct {
	store      statex.Store
	classifier contractx.IntentClassifier
	registry   contractx.ToolRegistry
	synth      ResponseSynthesizer
	prompts    Prompts

	cfg Config
	now func() time.Time
	log zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(
	store statex.Store,
	classifier contractx.IntentClassifier,
	registry contractx.ToolRegistry,
	synthesizer ResponseSynthesizer,
	prompts Prompts,
	cfg Config,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if classifier == nil {
		return nil, errors.New("intent classifier is required")
	}
	if registry == nil {
		return nil, errors.New("tool registry is required")
	}
	if synthesizer == nil {
		return nil, errors.New("response synthesizer is required")
	}
	if prompts == nil {
		return nil, errors.New("prompts are required")
	}
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = 30 * time.Second
	}
	if cfg.ToolTimeout <= 0 {
		cfg.ToolTimeout = 10 * time.Second
	}

	return &Orchestrator{
		store:      store,
		classifier: classifier,
		registry:   registry,
		synth:      synthesizer,
		prompts:    prompts,
		cfg:        cfg,
		now:        time.Now,
		log:        logx.Component("orchestrator"),
		locks:      make(map[string]*sync.Mutex),
	}, nil
}

// HandleMessage runs one user turn. Turns for the same conversation are
// serialized on a per-conversation lock; a second message queues behind the
// first and observes its completed state. The returned TurnResult is complete
// even when a step failed internally; Message is then a natural-language
// fallback, never a raw error.
func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID, text string) (contractx.TurnResult, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return contractx.TurnResult{}, ErrInvalidConversation
	}
	if strings.TrimSpace(text) == "" {
		return contractx.TurnResult{}, ErrInvalidMessage
	}

	lock := o.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := o.loadOrCreate(ctx, conversationID)
	if err != nil {
		return contractx.TurnResult{}, err
	}

	conv.Append(schema.UserMessage(text))

	intent, err := o.classify(ctx, conv)
	if err != nil {
		o.log.Error().Err(err).Str("conversation_id", conversationID).Msg("classification failed")
		conv.Append(schema.AssistantMessage(classifyFallbackMsg, nil))
		if saveErr := o.save(ctx, conv); saveErr != nil {
			return contractx.TurnResult{}, saveErr
		}
		return contractx.TurnResult{Message: classifyFallbackMsg, Intent: conv.LastIntent, Tools: conv.ToolTrail()}, nil
	}

	if intent.Language != "" {
		conv.Language = intent.Language
	}
	conv.LastIntent = string(intent.Kind)

	action := routerx.Route(intent, conv)

	o.log.Info().
		Str("conversation_id", conversationID).
		Str("intent", string(intent.Kind)).
		Str("action", string(action.Type)).
		Str("tool", string(action.Tool)).
		Str("slot", action.Slot).
		Msg("routed turn")

	var message string
	switch action.Type {
	case contractx.ActionReject:
		message = o.plainReply(ctx, conv, o.prompts.RejectPrompt(), rejectFallbackMsg)
	case contractx.ActionAskForInfo:
		instruction := o.prompts.AskForInfoPrompt(conv.Language, action.Slot)
		fallback := fmt.Sprintf("Could you please provide your %s?", action.Slot)
		message = o.plainReply(ctx, conv, instruction, fallback)
	case contractx.ActionDispatch:
		message = o.dispatch(ctx, conv, intent, action.Tool)
	default:
		message = o.plainReply(ctx, conv, o.prompts.GeneralPrompt(), classifyFallbackMsg)
	}

	if err := o.save(ctx, conv); err != nil {
		return contractx.TurnResult{}, err
	}

	return contractx.TurnResult{
		Message: message,
		Intent:  string(intent.Kind),
		Tools:   conv.ToolTrail(),
	}, nil
}

func (o *Orchestrator) loadOrCreate(ctx context.Context, conversationID string) (*statex.ConversationContext, error) {
	conv, err := o.store.Load(ctx, conversationID)
	if errors.Is(err, statex.ErrStateNotFound) {
		return statex.NewConversationContext(conversationID, o.prompts.SystemPrompt(), o.now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

func (o *Orchestrator) save(ctx context.Context, conv *statex.ConversationContext) error {
	conv.Touch(o.now())
	if err := o.store.Save(ctx, conv); err != nil {
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

func (o *Orchestrator) classify(ctx context.Context, conv *statex.ConversationContext) (contractx.Intent, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.ModelTimeout)
	defer cancel()
	return o.classifier.Classify(cctx, conv)
}

// plainReply generates an instruction-steered reply; if the model fails, the
// static fallback is appended instead so the transcript always ends with an
// assistant turn.
func (o *Orchestrator) plainReply(ctx context.Context, conv *statex.ConversationContext, instruction, fallback string) string {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.ModelTimeout)
	defer cancel()

	message, err := o.synth.SynthesizePlain(cctx, conv, instruction)
	if err != nil {
		o.log.Error().Err(err).Str("conversation_id", conv.ConversationID).Msg("plain reply failed")
		conv.Append(schema.AssistantMessage(fallback, nil))
		return fallback
	}
	return message
}

func (o *Orchestrator) dispatch(ctx context.Context, conv *statex.ConversationContext, intent contractx.Intent, id contractx.ToolID) string {
	tool, ok := o.registry.Resolve(id)
	if !ok {
		o.log.Error().Str("tool", string(id)).Msg("routed tool not registered")
		conv.Append(schema.AssistantMessage(retryLaterMsg, nil))
		return retryLaterMsg
	}

	args := o.buildArgs(ctx, conv, intent, id)

	result, err := o.callTool(ctx, tool, args)
	if errors.Is(err, contractx.ErrTimeout) {
		// no pair appended, call not recorded: the turn can be retried clean
		o.log.Warn().Str("tool", string(id)).Msg("tool timed out")
		conv.Append(schema.AssistantMessage(retryLaterMsg, nil))
		return retryLaterMsg
	}
	conv.RecordTool(string(id))

	if id == contractx.ToolCreateSupportTicket {
		return o.finishHandover(conv, result, err)
	}

	if err != nil {
		o.log.Error().Err(err).Str("tool", string(id)).Msg("tool failed")
		result = contractx.ToolResult{Status: contractx.StatusError, Message: toolErrorNote}
	}

	cctx, cancel := context.WithTimeout(ctx, o.cfg.ModelTimeout)
	defer cancel()
	message, err := o.synth.Synthesize(cctx, conv, id, args, result)
	if err != nil {
		// tool pair stays in the transcript; only the reply is a fallback
		o.log.Error().Err(err).Str("tool", string(id)).Msg("synthesis failed")
		conv.Append(schema.AssistantMessage(retryLaterMsg, nil))
		return retryLaterMsg
	}
	return message
}

// finishHandover appends the ticket tool's localized confirmation verbatim,
// skipping synthesis. A successful handover consumes the email and any
// pending slot request.
func (o *Orchestrator) finishHandover(conv *statex.ConversationContext, result contractx.ToolResult, err error) string {
	if err != nil {
		o.log.Error().Err(err).Str("conversation_id", conv.ConversationID).Msg("handover failed")
	}
	message := result.Message
	if message == "" {
		message = retryLaterMsg
	}
	conv.Append(schema.AssistantMessage(message, nil))

	if result.Status == contractx.StatusSuccess {
		_ = conv.ClearSlot(statex.SlotEmail)
		conv.ClearWaiting()
	}
	return message
}

func (o *Orchestrator) buildArgs(ctx context.Context, conv *statex.ConversationContext, intent contractx.Intent, id contractx.ToolID) map[string]any {
	switch id {
	case contractx.ToolKnowledgeSearch:
		query := intent.Summary
		if query == "" {
			query = conv.LastUserMessage()
		}
		return map[string]any{"query": query}

	case contractx.ToolProductSearch:
		args := map[string]any{}
		e := intent.Entities
		if e.ProductQuery != "" {
			args["query"] = e.ProductQuery
		}
		if e.SizeInch > 0 {
			args["size_inch"] = e.SizeInch
		}
		if e.WeightKg > 0 {
			args["weight_kg"] = e.WeightKg
		}
		if e.ArmType != "" {
			args["arm_type"] = e.ArmType
		}
		if e.Vesa != "" {
			args["vesa"] = e.Vesa
		}
		if e.DeskThicknessMM > 0 {
			args["desk_thickness_mm"] = e.DeskThicknessMM
		}
		return args

	case contractx.ToolListOrdersByUser:
		return map[string]any{"user_id": conv.UserID}

	case contractx.ToolGetOrderDetails:
		return map[string]any{"user_id": conv.UserID, "order_id": conv.OrderID}

	case contractx.ToolCreateSupportTicket:
		summary := o.handoverSummary(ctx, conv, intent)
		return map[string]any{
			"conversation_id": conv.ConversationID,
			"email":           conv.Email,
			"summary":         summary,
		}
	}
	return map[string]any{}
}

func (o *Orchestrator) handoverSummary(ctx context.Context, conv *statex.ConversationContext, intent contractx.Intent) string {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.ModelTimeout)
	defer cancel()

	summary, err := o.synth.Summarize(cctx, conv, o.prompts.SummaryPrompt())
	if err != nil || strings.TrimSpace(summary) == "" {
		o.log.Warn().Err(err).Str("conversation_id", conv.ConversationID).Msg("handover summary fell back to intent summary")
		return intent.Summary
	}
	return summary
}

func (o *Orchestrator) callTool(ctx context.Context, tool contractx.Tool, args map[string]any) (contractx.ToolResult, error) {
	cctx, cancel := context.WithTimeout(ctx, o.cfg.ToolTimeout)
	defer cancel()

	type outcome struct {
		result contractx.ToolResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: panic: %v", contractx.ErrToolFailed, r)}
			}
		}()
		result, err := tool.Call(cctx, args)
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-cctx.Done():
		return contractx.ToolResult{}, fmt.Errorf("%w: %s", contractx.ErrTimeout, tool.Name())
	case out := <-done:
		if errors.Is(out.err, context.DeadlineExceeded) {
			return contractx.ToolResult{}, fmt.Errorf("%w: %s", contractx.ErrTimeout, tool.Name())
		}
		return out.result, out.err
	}
}

func (o *Orchestrator) lockFor(conversationID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	lock, ok := o.locks[conversationID]
	if !ok {
		lock = &sync.Mutex{}
		o.locks[conversationID] = lock
	}
	return lock
}
