package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
)

// KBEntry is one knowledge base article.
type KBEntry struct {
	ID      string   `json:"doc_id"`
	Title   string   `json:"title"`
	Content string   `json:"content"`
	URL     string   `json:"url,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// KnowledgeTool answers FAQ queries with keyword-scored retrieval over the
// seeded knowledge base, returning the top matches as text snippets.
type KnowledgeTool struct {
	entries []KBEntry
	topK    int
}

var _ contractx.Tool = (*KnowledgeTool)(nil)

func NewKnowledgeTool(entries []KBEntry) *KnowledgeTool {
	if len(entries) == 0 {
		entries = sampleKnowledgeBase()
	}
	return &KnowledgeTool{entries: entries, topK: 3}
}

func (t *KnowledgeTool) Name() contractx.ToolID { return contractx.ToolKnowledgeSearch }

func (t *KnowledgeTool) DisplayName() string { return "Knowledge Base Search" }

func (t *KnowledgeTool) Call(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	query, _ := args["query"].(string)
	query = strings.TrimSpace(query)
	if query == "" {
		return contractx.ToolResult{}, fmt.Errorf("%w: query is required", contractx.ErrValidation)
	}

	type scored struct {
		entry KBEntry
		score int
	}
	terms := strings.Fields(strings.ToLower(query))
	var hits []scored
	for _, e := range t.entries {
		haystack := strings.ToLower(e.Title + " " + e.Content + " " + strings.Join(e.Tags, " "))
		score := 0
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{entry: e, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > t.topK {
		hits = hits[:t.topK]
	}

	results := make([]string, 0, len(hits))
	for _, h := range hits {
		results = append(results, fmt.Sprintf("Title: %s\nContent: %s", h.entry.Title, h.entry.Content))
	}

	return contractx.ToolResult{
		Status:  contractx.StatusSuccess,
		Payload: map[string]any{"results": results},
	}, nil
}

func sampleKnowledgeBase() []KBEntry {
	return []KBEntry{
		{
			ID:      "kb-001",
			Title:   "Warranty Policy",
			Content: "All JTCG monitor arms carry a 5-year warranty covering gas spring failure and structural defects. Register your product within 30 days of purchase to activate extended coverage.",
			URL:     "https://jtcg.example.com/support/warranty",
			Tags:    []string{"warranty", "policy", "repair"},
		},
		{
			ID:      "kb-002",
			Title:   "Return and Refund",
			Content: "Unused products can be returned within 14 days of delivery for a full refund. Opened products are subject to a restocking inspection. Refunds are issued to the original payment method within 7 business days.",
			URL:     "https://jtcg.example.com/support/returns",
			Tags:    []string{"return", "refund", "policy"},
		},
		{
			ID:      "kb-003",
			Title:   "Desk Clamp Installation",
			Content: "The standard clamp fits desks 10-60mm thick. For glass desks or desks thinner than 10mm, use the reinforcement plate included in the Pro series box. Tighten the clamp until the arm base does not rotate under load.",
			URL:     "https://jtcg.example.com/support/installation",
			Tags:    []string{"installation", "clamp", "desk"},
		},
		{
			ID:      "kb-004",
			Title:   "Monitor Sagging Adjustment",
			Content: "If the monitor drifts downward, increase the gas spring tension with the included hex key. Turn the tension screw clockwise in half-turn increments while the monitor is mounted.",
			URL:     "https://jtcg.example.com/support/sagging",
			Tags:    []string{"sagging", "tension", "adjustment"},
		},
		{
			ID:      "kb-005",
			Title:   "Shipping Times",
			Content: "Orders placed before 14:00 ship the same business day. Domestic delivery takes 1-3 business days; remote areas may take up to 5. A tracking link is emailed once the parcel leaves the warehouse.",
			URL:     "https://jtcg.example.com/support/shipping",
			Tags:    []string{"shipping", "delivery", "tracking"},
		},
	}
}
