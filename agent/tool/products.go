package tool

import (
	"context"
	"strings"

	contractx "github.com/tanpawarit/jtcg-crm-agent/agent/contract"
)

// Product is one catalog row.
type Product struct {
	SKU           string  `json:"sku"`
	Name          string  `json:"name"`
	URL           string  `json:"url"`
	Image         string  `json:"image"`
	SizeMaxInch   int     `json:"size_max_inch"`
	WeightMinKg   float64 `json:"weight_min_kg"`
	WeightMaxKg   float64 `json:"weight_max_kg"`
	ArmType       string  `json:"arm_type"`
	Vesa          string  `json:"vesa"`
	DeskMinMM     int     `json:"desk_min_mm"`
	DeskMaxMM     int     `json:"desk_max_mm"`
	Compatibility string  `json:"compatibility_notes"`
}

// ProductTool filters the catalog by whatever criteria were extracted.
// Filtering is permissive: absent criteria do not constrain, and zero
// criteria returns the full catalog rather than asking the user to narrow.
type ProductTool struct {
	catalog []Product
}

var _ contractx.Tool = (*ProductTool)(nil)

func NewProductTool(catalog []Product) *ProductTool {
	if len(catalog) == 0 {
		catalog = sampleCatalog()
	}
	return &ProductTool{catalog: catalog}
}

func (t *ProductTool) Name() contractx.ToolID { return contractx.ToolProductSearch }

func (t *ProductTool) DisplayName() string { return "Product Search" }

func (t *ProductTool) Call(ctx context.Context, args map[string]any) (contractx.ToolResult, error) {
	query, _ := args["query"].(string)
	sizeInch := asInt(args["size_inch"])
	weightKg := asFloat(args["weight_kg"])
	armType, _ := args["arm_type"].(string)
	vesa, _ := args["vesa"].(string)
	deskMM := asInt(args["desk_thickness_mm"])

	// non-nil so an empty result serializes as [], not null
	matches := []map[string]any{}
	for _, p := range t.catalog {
		if query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(strings.TrimSpace(query))) {
			continue
		}
		if sizeInch > 0 && p.SizeMaxInch < sizeInch {
			continue
		}
		if weightKg > 0 && (weightKg < p.WeightMinKg || weightKg > p.WeightMaxKg) {
			continue
		}
		if armType != "" && !strings.EqualFold(p.ArmType, strings.TrimSpace(armType)) {
			continue
		}
		if vesa != "" && !strings.Contains(strings.ToLower(p.Vesa), strings.ToLower(strings.TrimSpace(vesa))) {
			continue
		}
		if deskMM > 0 && (deskMM < p.DeskMinMM || deskMM > p.DeskMaxMM) {
			continue
		}
		matches = append(matches, map[string]any{
			"sku":           p.SKU,
			"name":          p.Name,
			"url":           p.URL,
			"image":         p.Image,
			"compatibility": p.Compatibility,
		})
	}

	return contractx.ToolResult{
		Status:  contractx.StatusSuccess,
		Payload: map[string]any{"products": matches},
	}, nil
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}

func sampleCatalog() []Product {
	return []Product{
		{
			SKU:           "ARM-LITE-24",
			Name:          "JTCG Lite Monitor Arm 24\"",
			URL:           "https://jtcg.example.com/products/arm-lite-24",
			Image:         "https://jtcg.example.com/img/arm-lite-24.jpg",
			SizeMaxInch:   24,
			WeightMinKg:   2.0,
			WeightMaxKg:   6.5,
			ArmType:       "single",
			Vesa:          "75x75, 100x100",
			DeskMinMM:     10,
			DeskMaxMM:     50,
			Compatibility: "Fits most 24-inch office monitors. Not recommended for curved ultrawides.",
		},
		{
			SKU:           "ARM-PRO-32",
			Name:          "JTCG Pro Monitor Arm 32\"",
			URL:           "https://jtcg.example.com/products/arm-pro-32",
			Image:         "https://jtcg.example.com/img/arm-pro-32.jpg",
			SizeMaxInch:   32,
			WeightMinKg:   3.0,
			WeightMaxKg:   12.0,
			ArmType:       "single",
			Vesa:          "75x75, 100x100",
			DeskMinMM:     10,
			DeskMaxMM:     60,
			Compatibility: "Handles heavy 32-inch and 34-inch ultrawide panels. Reinforcement plate included.",
		},
		{
			SKU:           "ARM-DUO-27",
			Name:          "JTCG Duo Dual Monitor Arm 27\"",
			URL:           "https://jtcg.example.com/products/arm-duo-27",
			Image:         "https://jtcg.example.com/img/arm-duo-27.jpg",
			SizeMaxInch:   27,
			WeightMinKg:   2.0,
			WeightMaxKg:   9.0,
			ArmType:       "dual",
			Vesa:          "75x75, 100x100",
			DeskMinMM:     10,
			DeskMaxMM:     55,
			Compatibility: "Side-by-side dual setup up to 27 inches per panel.",
		},
		{
			SKU:           "ARM-ULTRA-49",
			Name:          "JTCG Ultra Heavy-Duty Arm 49\"",
			URL:           "https://jtcg.example.com/products/arm-ultra-49",
			Image:         "https://jtcg.example.com/img/arm-ultra-49.jpg",
			SizeMaxInch:   49,
			WeightMinKg:   6.0,
			WeightMaxKg:   20.0,
			ArmType:       "single",
			Vesa:          "100x100, 200x100",
			DeskMinMM:     15,
			DeskMaxMM:     70,
			Compatibility: "Built for super-ultrawide 49-inch monitors. Requires grommet or reinforced clamp mount.",
		},
	}
}
