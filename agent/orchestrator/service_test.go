package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
	promptx "github.com/tanpawarit/jtcg-crm-agent/agent/prompt"
	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
	synthx "github.com/tanpawarit/jtcg-crm-agent/agent/synth"
	toolx "github.com/tanpawarit/jtcg-crm-agent/agent/tool"
)

type fakeClassifier struct {
	intents []contractx.Intent
	errs    []error
	idx     int
}

func (f *fakeClassifier) Classify(ctx context.Context, conv *statex.ConversationContext) (contractx.Intent, error) {
	i := f.idx
	f.idx++
	if i < len(f.errs) && f.errs[i] != nil {
		return contractx.Intent{}, f.errs[i]
	}
	if i >= len(f.intents) {
		return contractx.Intent{}, errors.New("no fake intent left")
	}
	return f.intents[i], nil
}

type fakeChat struct {
	replies []string
	err     error
	idx     int
}

func (f *fakeChat) Chat(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.replies) {
		return nil, errors.New("no fake reply left")
	}
	reply := f.replies[f.idx]
	f.idx++
	return schema.AssistantMessage(reply, nil), nil
}

type fakeTool struct {
	id      contractx.ToolID
	result  contractx.ToolResult
	err     error
	delay   time.Duration
	gotArgs map[string]any
}

func (f *fakeTool) Name() contractx.ToolID { return f.id }

func (f *fakeTool) DisplayName() string { return string(f.id) }

func (f *fakeTool) Call(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	f.gotArgs = args
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return contractx.ToolResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func newOrchestrator(t *testing.T, classifier *fakeClassifier, chat *fakeChat, tools ...contractx.Tool) (*Orchestrator, *statex.MemoryStore) {
	t.Helper()

	store := statex.NewMemoryStore()
	registry, err := toolx.NewRegistry(tools...)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	synthesizer, err := synthx.New(chat)
	if err != nil {
		t.Fatalf("synth.New() error = %v", err)
	}

	o, err := New(store, classifier, registry, synthesizer, promptx.LoadPromptSet(), Config{
		ModelTimeout: time.Second,
		ToolTimeout:  100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o, store
}

func TestHandleMessageValidatesInput(t *testing.T) {
	t.Parallel()

	o, _ := newOrchestrator(t, &fakeClassifier{}, &fakeChat{})

	if _, err := o.HandleMessage(context.Background(), "  ", "hi"); !errors.Is(err, ErrInvalidConversation) {
		t.Fatalf("expected ErrInvalidConversation, got %v", err)
	}
	if _, err := o.HandleMessage(context.Background(), "JTCG-CHAT-a", "   "); !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
}

func TestHandleMessageTwoTurnSlotFilling(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		intents: []contractx.Intent{
			{Kind: contractx.IntentOrderInfo, Language: "English", Summary: "check my orders"},
			{Kind: contractx.IntentProvidingInfo, Language: "English", Entities: contractx.Entities{UserID: "u_123456"}},
		},
	}
	chat := &fakeChat{replies: []string{
		"Could you share your user ID?",
		"You have two orders: ...",
	}}
	orders := &fakeTool{
		id:     contractx.ToolListOrdersByUser,
		result: contractx.ToolResult{Status: contractx.StatusSuccess, Payload: map[string]any{"orders": []string{"JTCG-202508-10001"}}},
	}

	o, store := newOrchestrator(t, classifier, chat, orders)

	first, err := o.HandleMessage(context.Background(), "JTCG-CHAT-a", "where are my orders?")
	if err != nil {
		t.Fatalf("turn 1 error = %v", err)
	}
	if first.Message != "Could you share your user ID?" {
		t.Fatalf("unexpected turn 1 message: %q", first.Message)
	}
	if len(first.Tools) != 0 {
		t.Fatalf("no tool should run on turn 1, got %#v", first.Tools)
	}

	saved, err := store.Load(context.Background(), "JTCG-CHAT-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.WaitingFor != statex.SlotUserID {
		t.Fatalf("expected waiting_for user_id, got %q", saved.WaitingFor)
	}

	second, err := o.HandleMessage(context.Background(), "JTCG-CHAT-a", "it's u_123456")
	if err != nil {
		t.Fatalf("turn 2 error = %v", err)
	}
	if second.Message != "You have two orders: ..." {
		t.Fatalf("unexpected turn 2 message: %q", second.Message)
	}
	if len(second.Tools) != 1 || second.Tools[0] != "list_orders_by_user" {
		t.Fatalf("unexpected tool trail: %#v", second.Tools)
	}
	if orders.gotArgs["user_id"] != "u_123456" {
		t.Fatalf("unexpected tool args: %#v", orders.gotArgs)
	}

	saved, err = store.Load(context.Background(), "JTCG-CHAT-a")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.WaitingFor != "" {
		t.Fatalf("waiting_for not cleared: %q", saved.WaitingFor)
	}
	if saved.UserID != "u_123456" {
		t.Fatalf("user_id not persisted: %q", saved.UserID)
	}
}

func TestHandleMessageRejectSkipsTools(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{intents: []contractx.Intent{{Kind: contractx.IntentRejectRequest}}}
	chat := &fakeChat{replies: []string{"I can only help with JTCG products and orders."}}

	o, _ := newOrchestrator(t, classifier, chat)

	res, err := o.HandleMessage(context.Background(), "JTCG-CHAT-b", "write my homework")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.Intent != "reject_request" {
		t.Fatalf("unexpected intent: %q", res.Intent)
	}
	if len(res.Tools) != 0 {
		t.Fatalf("no tools expected, got %#v", res.Tools)
	}
}

func TestHandleMessageClassificationFailureFallsBack(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{errs: []error{contractx.ErrClassification}}
	chat := &fakeChat{}

	o, store := newOrchestrator(t, classifier, chat)

	res, err := o.HandleMessage(context.Background(), "JTCG-CHAT-c", "hello")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.Message != classifyFallbackMsg {
		t.Fatalf("unexpected fallback: %q", res.Message)
	}

	saved, err := store.Load(context.Background(), "JTCG-CHAT-c")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	history := saved.History()
	last := history[len(history)-1]
	if last.Role != schema.Assistant || last.Content != classifyFallbackMsg {
		t.Fatalf("fallback not in transcript: %#v", last)
	}
}

func TestHandleMessageClassificationFailureKeepsLastIntent(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{
		intents: []contractx.Intent{{Kind: contractx.IntentGeneralResponse, Language: "English"}},
		errs:    []error{nil, contractx.ErrClassification},
	}
	chat := &fakeChat{replies: []string{"Hi! How can I help with your monitor arm?"}}

	o, _ := newOrchestrator(t, classifier, chat)

	if _, err := o.HandleMessage(context.Background(), "JTCG-CHAT-c2", "hello"); err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}

	res, err := o.HandleMessage(context.Background(), "JTCG-CHAT-c2", "asdfgh")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.Message != classifyFallbackMsg {
		t.Fatalf("unexpected fallback: %q", res.Message)
	}
	if res.Intent != "general_response" {
		t.Fatalf("last known intent not reported: %q", res.Intent)
	}
}

func TestHandleMessageToolTimeout(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{intents: []contractx.Intent{
		{Kind: contractx.IntentFAQ, Summary: "warranty period"},
	}}
	chat := &fakeChat{}
	slow := &fakeTool{
		id:    contractx.ToolKnowledgeSearch,
		delay: time.Second,
	}

	o, store := newOrchestrator(t, classifier, chat, slow)

	res, err := o.HandleMessage(context.Background(), "JTCG-CHAT-d", "how long is the warranty?")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.Message != retryLaterMsg {
		t.Fatalf("expected retry message, got %q", res.Message)
	}
	if len(res.Tools) != 0 {
		t.Fatalf("timed-out call must not be recorded, got %#v", res.Tools)
	}

	saved, err := store.Load(context.Background(), "JTCG-CHAT-d")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	for _, m := range saved.History() {
		if m.Role == schema.Tool || len(m.ToolCalls) > 0 {
			t.Fatalf("tool pair leaked into transcript: %#v", m)
		}
	}
}

func TestHandleMessageHandoverSuccess(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{intents: []contractx.Intent{
		{Kind: contractx.IntentHumanHandover, Language: "Chinese", Entities: contractx.Entities{Email: "ann@example.com"}, Summary: "wants a human"},
	}}
	// only call is the handover summary
	chat := &fakeChat{replies: []string{"User wants to talk to a human about a refund."}}

	o, store := newOrchestrator(t, classifier, chat, toolx.NewTicketTool(nil))

	res, err := o.HandleMessage(context.Background(), "JTCG-CHAT-e", "請幫我轉真人，我的信箱是 ann@example.com")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.Message != "已為您轉接真人" {
		t.Fatalf("unexpected handover message: %q", res.Message)
	}
	if len(res.Tools) != 1 || res.Tools[0] != "create_support_ticket" {
		t.Fatalf("unexpected tool trail: %#v", res.Tools)
	}

	saved, err := store.Load(context.Background(), "JTCG-CHAT-e")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.Email != "" {
		t.Fatalf("email not cleared after handover: %q", saved.Email)
	}
	if saved.WaitingFor != "" {
		t.Fatalf("waiting_for not cleared: %q", saved.WaitingFor)
	}
	history := saved.History()
	last := history[len(history)-1]
	if last.Role != schema.Assistant || last.Content != "已為您轉接真人" {
		t.Fatalf("confirmation not appended verbatim: %#v", last)
	}
}

func TestHandleMessageHandoverFailurePreservesEmail(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{intents: []contractx.Intent{
		{Kind: contractx.IntentHumanHandover, Entities: contractx.Entities{Email: "ann@example.com"}, Summary: "wants a human"},
	}}
	chat := &fakeChat{replies: []string{"summary"}}

	o, store := newOrchestrator(t, classifier, chat, toolx.NewTicketTool(nil))

	// FAIL prefix simulates a downstream outage in the ticket channel
	res, err := o.HandleMessage(context.Background(), "FAIL-JTCG-CHAT-f", "transfer me, ann@example.com")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.Message != "轉接真人時發生錯誤，請聯繫技術團隊協助" {
		t.Fatalf("unexpected failure message: %q", res.Message)
	}

	saved, err := store.Load(context.Background(), "FAIL-JTCG-CHAT-f")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if saved.Email != "ann@example.com" {
		t.Fatalf("email must survive a failed handover, got %q", saved.Email)
	}
}

func TestHandleMessageProductDispatchArgs(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{intents: []contractx.Intent{
		{
			Kind:     contractx.IntentProductSearch,
			Entities: contractx.Entities{ProductQuery: "monitor arm", SizeInch: 32, WeightKg: 8.5},
			Summary:  "arm for a 32 inch monitor",
		},
	}}
	chat := &fakeChat{replies: []string{"The Pro 32 would fit."}}
	products := &fakeTool{
		id:     contractx.ToolProductSearch,
		result: contractx.ToolResult{Status: contractx.StatusSuccess},
	}

	o, _ := newOrchestrator(t, classifier, chat, products)

	res, err := o.HandleMessage(context.Background(), "JTCG-CHAT-g", "need an arm for my 32 inch, it weighs 8.5kg")
	if err != nil {
		t.Fatalf("HandleMessage() error = %v", err)
	}
	if res.Message != "The Pro 32 would fit." {
		t.Fatalf("unexpected message: %q", res.Message)
	}
	if products.gotArgs["query"] != "monitor arm" || products.gotArgs["size_inch"] != 32 || products.gotArgs["weight_kg"] != 8.5 {
		t.Fatalf("unexpected args: %#v", products.gotArgs)
	}
	if _, present := products.gotArgs["arm_type"]; present {
		t.Fatalf("zero-valued criteria must be omitted: %#v", products.gotArgs)
	}
}
