package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	classifierx "github.com/tanpawarit/jtcg-crm-agent/agent/classifier"
	llmx "github.com/tanpawarit/jtcg-crm-agent/agent/llm"
	orchestratorx "github.com/tanpawarit/jtcg-crm-agent/agent/orchestrator"
	promptx "github.com/tanpawarit/jtcg-crm-agent/agent/prompt"
	statex "github.com/tanpawarit/jtcg-crm-agent/agent/state"
	synthx "github.com/tanpawarit/jtcg-crm-agent/agent/synth"
	toolx "github.com/tanpawarit/jtcg-crm-agent/agent/tool"
	orderdbx "github.com/tanpawarit/jtcg-crm-agent/agent/tool/orderdb"
	configx "github.com/tanpawarit/jtcg-crm-agent/pkg/config"
	_ "github.com/tanpawarit/jtcg-crm-agent/pkg/logger/autoload"
	openrouterx "github.com/tanpawarit/jtcg-crm-agent/pkg/openrouter"
	redisx "github.com/tanpawarit/jtcg-crm-agent/pkg/redis"
)

type AppConfig struct {
	OrderDBDSN string `envconfig:"ORDER_DB_DSN"`
}

func main() {
	ctx := context.Background()

	appCfg := configx.MustNew[AppConfig]("")

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	if err := llmCfg.Validate(); err != nil {
		panic(err)
	}
	if openrouterx.NewClient(llmCfg.OpenRouterFor(llmx.RoleResponder)) == nil {
		panic("failed to initialize openrouter client")
	}

	classifierCfg := llmCfg.OpenRouterFor(llmx.RoleClassifier)
	classifierModel, err := classifierCfg.New(ctx)
	if err != nil {
		panic(err)
	}
	responderCfg := llmCfg.OpenRouterFor(llmx.RoleResponder)
	responderModel, err := responderCfg.New(ctx)
	if err != nil {
		panic(err)
	}
	chatModel, err := llmx.NewChatModel(responderModel)
	if err != nil {
		panic(err)
	}

	prompts := promptx.LoadPromptSet()

	cls, err := classifierx.New(ctx, classifierModel, prompts.IntentRouter)
	if err != nil {
		panic(err)
	}
	synthesizer, err := synthx.New(chatModel)
	if err != nil {
		panic(err)
	}

	store := buildStateStore(ctx)
	orders := buildOrderStore(appCfg.OrderDBDSN)

	registry, err := toolx.NewRegistry(
		toolx.NewKnowledgeTool(nil),
		toolx.NewProductTool(nil),
		toolx.NewListOrdersTool(orders),
		toolx.NewOrderDetailsTool(orders),
		toolx.NewTicketTool(nil),
	)
	if err != nil {
		panic(err)
	}

	agentCfg := configx.MustNew[orchestratorx.Config]("AGENT")
	orch, err := orchestratorx.New(store, cls, registry, synthesizer, prompts, *agentCfg)
	if err != nil {
		panic(err)
	}

	runChatLoop(ctx, orch)
}

func buildStateStore(ctx context.Context) statex.Store {
	redisCfg := configx.MustNew[redisx.Config]("REDIS")
	if strings.TrimSpace(redisCfg.URL) == "" {
		log.Info().Msg("REDIS_URL not set, using in-memory conversation store")
		return statex.NewMemoryStore()
	}
	client := redisx.MustNew(ctx, *redisCfg)
	store, err := statex.NewRedisStore(client)
	if err != nil {
		panic(err)
	}
	return store
}

func buildOrderStore(dsn string) orderdbx.Store {
	if strings.TrimSpace(dsn) == "" {
		log.Info().Msg("ORDER_DB_DSN not set, using sample order data")
		return orderdbx.NewMemoryStoreWithSamples()
	}
	store, err := orderdbx.Open(dsn)
	if err != nil {
		panic(err)
	}
	return store
}

func runChatLoop(ctx context.Context, orch *orchestratorx.Orchestrator) {
	conversationID := "JTCG-CHAT-" + uuid.NewString()

	fmt.Println("--- JTCG CRM Agent ---")
	fmt.Printf("conversation: %s\n", conversationID)
	fmt.Println("Type 'exit' or 'quit' to end the chat.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nUser: ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if lowered := strings.ToLower(input); lowered == "exit" || lowered == "quit" {
			fmt.Println("Agent: Goodbye!")
			return
		}

		result, err := orch.HandleMessage(ctx, conversationID, input)
		if err != nil {
			log.Error().Err(err).Msg("turn failed")
			continue
		}

		fmt.Printf("\nAgent: %s\n", result.Message)
		if len(result.Tools) > 0 {
			fmt.Printf("(tools: %s)\n", strings.Join(result.Tools, ", "))
		}
	}
}
