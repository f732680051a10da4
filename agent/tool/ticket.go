package tool

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	handoverSuccessMsg = "已為您轉接真人"
	handoverFailureMsg = "轉接真人時發生錯誤，請聯繫技術團隊協助"

	maxSummaryLen = 500
)

// TicketSubmitter delivers a handover ticket to the human support channel.
type TicketSubmitter interface {
	Submit(ctx context.Context, conversationID, email, summary string) error
}

// TicketTool escalates a conversation to a human agent. Its result Message
// is the localized user-facing confirmation, appended to the transcript
// as-is rather than going through synthesis.
type TicketTool struct {
	submitter TicketSubmitter
}

var _ contractx.Tool = (*TicketTool)(nil)

func NewTicketTool(submitter TicketSubmitter) *TicketTool {
	if submitter == nil {
		submitter = simulatedSubmitter{}
	}
	return &TicketTool{submitter: submitter}
}

func (t *TicketTool) Name() contractx.ToolID { return contractx.ToolCreateSupportTicket }

func (t *TicketTool) DisplayName() string { return "Create Support Ticket" }

func (t *TicketTool) Call(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	conversationID, _ := args["conversation_id"].(string)
	email, _ := args["email"].(string)
	summary, _ := args["summary"].(string)

	if !emailRe.MatchString(strings.TrimSpace(email)) {
		return contractx.ToolResult{
			Status:  contractx.StatusError,
			Message: handoverFailureMsg,
		}, fmt.Errorf("%w: malformed email", contractx.ErrHandoffValidation)
	}

	if r := []rune(summary); len(r) > maxSummaryLen {
		summary = string(r[:maxSummaryLen])
	}

	if err := t.submitter.Submit(ctx, conversationID, strings.TrimSpace(email), summary); err != nil {
		return contractx.ToolResult{
			Status:  contractx.StatusError,
			Message: handoverFailureMsg,
		}, nil
	}

	return contractx.ToolResult{
		Status:  contractx.StatusSuccess,
		Message: handoverSuccessMsg,
	}, nil
}

// simulatedSubmitter stands in for the real support channel. A conversation
// id prefixed with FAIL simulates a downstream outage, which keeps the
// failure path reachable in demos and tests.
type simulatedSubmitter struct{}

func (simulatedSubmitter) Submit(ctx context.Context, conversationID, email, summary string) error {
	if strings.HasPrefix(strings.ToUpper(conversationID), "FAIL") {
		return fmt.Errorf("support channel rejected ticket for %s", conversationID)
	}
	return nil
}
