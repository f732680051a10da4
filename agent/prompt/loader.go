package prompt

import (
	_ "embed"
	"strings"
)

var (
	//go:embed template/system.txt
	systemRaw string

	//go:embed template/intent.txt
	intentRaw string

	//go:embed template/ask_for_info.txt
	askForInfoRaw string

	//go:embed template/reject.txt
	rejectRaw string

	//go:embed template/general.txt
	generalRaw string

	//go:embed template/summary.txt
	summaryRaw string
)

// PromptSet holds loaded prompt content.
//
// System seeds every conversation transcript. IntentRouter is an eino FString
// template with the variables user_id, order_id, email and waiting_for.
// AskForInfo is rendered in-process via RenderAskForInfo.
type PromptSet struct {
	System          string
	IntentRouter    string
	AskForInfo      string
	Reject          string
	General         string
	HandoverSummary string
}

// LoadPromptSet returns a PromptSet with trimmed prompt strings. Safe to call
// concurrently; the embed is compile-time and trimming is cheap.
func LoadPromptSet() PromptSet {
	return PromptSet{
		System:          strings.TrimSpace(systemRaw),
		IntentRouter:    strings.TrimSpace(intentRaw),
		AskForInfo:      strings.TrimSpace(askForInfoRaw),
		Reject:          strings.TrimSpace(rejectRaw),
		General:         strings.TrimSpace(generalRaw),
		HandoverSummary: strings.TrimSpace(summaryRaw),
	}
}

func (p PromptSet) SystemPrompt() string { return p.System }

func (p PromptSet) RejectPrompt() string { return p.Reject }

func (p PromptSet) GeneralPrompt() string { return p.General }

func (p PromptSet) SummaryPrompt() string { return p.HandoverSummary }

func (p PromptSet) AskForInfoPrompt(language, infoNeeded string) string {
	return p.RenderAskForInfo(language, infoNeeded)
}

// RenderAskForInfo fills the slot-prompt template for one pending slot.
func (p PromptSet) RenderAskForInfo(language, infoNeeded string) string {
	if strings.TrimSpace(language) == "" {
		language = "English"
	}
	r := strings.NewReplacer(
		"{language}", language,
		"{info_needed}", infoNeeded,
	)
	return r.Replace(p.AskForInfo)
}
