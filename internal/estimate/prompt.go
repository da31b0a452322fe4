package estimate

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

// responseSchema constrains the estimation model's structured output.
const responseSchema = `{
  "type": "OBJECT",
  "properties": {
    "materials": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "sku": {"type": "STRING"},
          "name": {"type": "STRING"},
          "category": {"type": "STRING"},
          "qty": {"type": "NUMBER"},
          "unit": {"type": "STRING"},
          "unit_price": {"type": "NUMBER"},
          "total_price": {"type": "NUMBER"},
          "reasoning": {"type": "STRING"}
        },
        "required": ["sku", "name", "category", "qty", "unit", "unit_price", "total_price"]
      }
    },
    "labor_operations": {
      "type": "ARRAY",
      "items": {
        "type": "OBJECT",
        "properties": {
          "code": {"type": "STRING"},
          "category": {"type": "STRING"},
          "description": {"type": "STRING"},
          "qty": {"type": "NUMBER"},
          "unit": {"type": "STRING"},
          "unit_rate": {"type": "NUMBER"},
          "cost": {"type": "NUMBER"}
        },
        "required": ["code", "description", "qty", "unit", "unit_rate", "cost"]
      }
    },
    "summary": {"type": "STRING"}
  },
  "required": ["materials", "labor_operations", "summary"]
}`

const systemInstruction = `You are a renovation cost estimator for complete bathroom renovations. Produce a material takeoff and labor schedule for the described project, exactly matching the response schema.

RULES:
- Labor costs come ONLY from the fixed rate table below. Use rate codes and unit rates exactly as given; never invent an operation or a rate.
- Materials come ONLY from the supplied product catalog. Never invent a product that is not in the catalog. Reference catalog products by their sku.
- Quantities derive from the room dimensions given. Tile quantities include 10% cut waste.
- Tag every material line and every fixture-specific labor line with its renovation category (Tile, Vanity, Toilet, Faucet, Shower, Bathtub, Mirror, Lighting). General operations (demolition, waterproofing, screed, painting, waste) carry an empty category.
- Category actions: keep = no cost at all for that category; remove = demolition labor only, no materials; replace and add = full materials plus labor. Categories not listed default to replace.`

// tierGuidance steers in-catalog product selection by budget tier.
func tierGuidance(tier roomspec.BudgetTier) string {
	switch tier {
	case roomspec.TierBudget:
		return "BUDGET tier: price every catalog product at its price_low. Prefer products with price_tier \"budget\"."
	case roomspec.TierPremium:
		return "PREMIUM tier: price every catalog product at its price_high. Prefer products with price_tier \"premium\"."
	default:
		return "STANDARD tier: price every catalog product at the midpoint of price_low and price_high. Prefer products with price_tier \"standard\"."
	}
}

// buildUserPrompt assembles the full project description for the model.
func buildUserPrompt(in Input) string {
	var b strings.Builder

	b.WriteString("PROJECT:\n")
	spec := in.Spec
	fmt.Fprintf(&b, "- Room: %s, %s, %.2fm x %.2fm, ceiling %.2fm, floor area %.2f m2\n",
		spec.RoomType, spec.LayoutShape, spec.EstimatedWidthMeters, spec.EstimatedLengthMeters,
		spec.CeilingHeightMeters, spec.TotalAreaM2)
	if spec.PlumbingWall != nil {
		fmt.Fprintf(&b, "- Primary plumbing wall: %s (index %d)\n", *spec.PlumbingWall, int(*spec.PlumbingWall))
	}
	if len(spec.ExistingFixtures) > 0 {
		b.WriteString("- Existing fixtures:\n")
		for _, f := range spec.ExistingFixtures {
			cond := f.Condition
			if cond == "" {
				cond = roomspec.ConditionUnknown
			}
			fmt.Fprintf(&b, "  - %s (%s): %s\n", f.Type, cond, f.Description)
		}
	}

	b.WriteString("\nSTYLE:\n")
	fmt.Fprintf(&b, "- %s\n", in.Style.Summary)
	for _, t := range in.Style.Tags {
		fmt.Fprintf(&b, "- tag %s (weight %.2f)\n", t.Tag, t.Weight)
	}

	b.WriteString("\n" + tierGuidance(in.Tier) + "\n")

	b.WriteString("\nCATEGORY ACTIONS:\n")
	for _, c := range roomspec.Categories() {
		fmt.Fprintf(&b, "- %s: %s\n", c, in.Materials.ActionFor(c))
	}

	b.WriteString("\nPRODUCT CATALOG:\n")
	for _, p := range in.Products {
		fmt.Fprintf(&b, "- sku=%s category=%s brand=%s name=%q price_low=%.2f price_high=%.2f tier=%s\n",
			p.SKU, p.Category, p.Brand, p.Name, p.PriceLow, p.PriceHigh, p.PriceTier)
	}

	b.WriteString("\n" + laborTableText())

	return b.String()
}
