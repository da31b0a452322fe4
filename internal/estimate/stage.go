// Package estimate converts a merged ProjectSpec, style profile, and product
// catalog into a renovation cost estimate via the language model, constrained
// to a fixed labor-rate table. Arithmetic on top of the model's line items is
// deterministic and happens here, never in the model.
package estimate

import (
	"context"
	"encoding/json"
	"math"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/genai"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

// Markup constants. The success and fallback paths deliberately use different
// grand-total multipliers (1.31 vs 1.21); this mirrors the behavior confirmed
// with the product owner and must not be unified. Contingency and tax are
// reported independently, but the grand total is a flat markup on subtotal,
// not their literal sum.
const (
	contingencyRate = 0.10
	taxRate         = 0.21
	successMarkup   = 1.31
	fallbackMarkup  = 1.21
)

// fallbackRatePerM2 prices the deterministic area-based fallback estimate.
const fallbackRatePerM2 = 1500.0

const currency = "EUR"

// Input is everything the estimation stage consumes.
type Input struct {
	Spec      *roomspec.ProjectSpec
	Tier      roomspec.BudgetTier
	Style     roomspec.StyleProfile
	Materials roomspec.MaterialConfig
	Products  []roomspec.DatabaseProduct
}

// Stage is the cost estimation stage.
type Stage struct {
	model  genai.TextModel
	exec   *upstream.Executor
	policy upstream.Policy
	logger *zap.Logger
}

// NewStage creates the estimation stage with direct-first routing and executor
// defaults.
func NewStage(model genai.TextModel, exec *upstream.Executor, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		model:  model,
		exec:   exec,
		policy: upstream.DefaultPolicy(upstream.RoutingDirectFirst),
		logger: logger.Named("estimate"),
	}
}

// Wire shapes matching responseSchema.

type wireMaterial struct {
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	Qty        float64 `json:"qty"`
	Unit       string  `json:"unit"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

type wireLaborOp struct {
	Code        string  `json:"code"`
	Category    string  `json:"category,omitempty"`
	Description string  `json:"description"`
	Qty         float64 `json:"qty"`
	Unit        string  `json:"unit"`
	UnitRate    float64 `json:"unit_rate"`
	Cost        float64 `json:"cost"`
}

type wireEstimate struct {
	Materials       []wireMaterial `json:"materials"`
	LaborOperations []wireLaborOp  `json:"labor_operations"`
	Summary         string         `json:"summary"`
}

// Estimate prices the project. On any error after retries it degrades to the
// deterministic area-based fallback; the returned estimate is never nil.
func (s *Stage) Estimate(ctx context.Context, in Input) *roomspec.Estimate {
	req := genai.StructuredRequest{
		System:      systemInstruction,
		Parts:       []genai.Part{genai.TextPart(buildUserPrompt(in))},
		Schema:      json.RawMessage(responseSchema),
		Temperature: 0.1,
		MaxTokens:   8192,
	}

	raw, err := upstream.Do(ctx, s.exec, s.policy, "cost_estimate",
		func(ctx context.Context, direct bool) (json.RawMessage, error) {
			return s.model.GenerateStructured(ctx, req, direct)
		})
	if err != nil {
		s.logger.Warn("estimate call failed, using area fallback", zap.Error(err))
		return FallbackEstimate(in.Spec.TotalAreaM2)
	}

	var we wireEstimate
	if err := json.Unmarshal(raw, &we); err != nil {
		s.logger.Warn("estimate response unparseable, using area fallback", zap.Error(err))
		return FallbackEstimate(in.Spec.TotalAreaM2)
	}

	est := buildEstimate(we, in.Materials)
	s.logger.Info("estimate priced",
		zap.Int("line_items", len(est.LineItems)),
		zap.Float64("subtotal", est.Subtotal),
		zap.Float64("grand_total", est.GrandTotal),
	)
	return est
}

// buildEstimate applies deterministic post-processing: category-action
// enforcement, the fixed labor rates, and the markup arithmetic.
func buildEstimate(we wireEstimate, materials roomspec.MaterialConfig) *roomspec.Estimate {
	est := &roomspec.Estimate{Currency: currency, Summary: we.Summary}

	for _, m := range we.Materials {
		action := actionForWireCategory(materials, m.Category)
		// keep: zero contribution. remove: demolition labor only, no materials.
		if action == roomspec.ActionKeep || action == roomspec.ActionRemove {
			continue
		}
		est.LineItems = append(est.LineItems, roomspec.CostItem{
			Category:    roomspec.CostMaterials,
			Description: m.Name,
			Amount:      m.Qty,
			Unit:        m.Unit,
			UnitPrice:   m.UnitPrice,
			TotalPrice:  round2(m.TotalPrice),
		})
	}

	for _, op := range we.LaborOperations {
		action := actionForWireCategory(materials, op.Category)
		if action == roomspec.ActionKeep {
			continue
		}
		if action == roomspec.ActionRemove && op.Code != demolitionCode {
			continue
		}
		// Re-derive cost from the fixed table when the code is known; the
		// model's rate arithmetic is advisory only.
		unitRate := op.UnitRate
		cost := op.Cost
		if rate, ok := rateByCode(op.Code); ok {
			unitRate = rate.Rate
			cost = rate.Rate * op.Qty
		}
		est.LineItems = append(est.LineItems, roomspec.CostItem{
			Category:    roomspec.CostLabor,
			Description: op.Description,
			Amount:      op.Qty,
			Unit:        op.Unit,
			UnitPrice:   unitRate,
			TotalPrice:  round2(cost),
		})
	}

	var subtotal float64
	for _, li := range est.LineItems {
		subtotal += li.TotalPrice
	}
	est.Subtotal = round2(subtotal)
	est.Contingency = round2(subtotal * contingencyRate)
	est.Tax = round2(subtotal * taxRate)
	est.GrandTotal = round2(subtotal * successMarkup)
	return est
}

// FallbackEstimate is the deterministic area-based estimate used when the
// model path fails: area × 1500 as a single line item, tax at 21%, grand total
// at the fallback markup.
func FallbackEstimate(areaM2 float64) *roomspec.Estimate {
	subtotal := round2(areaM2 * fallbackRatePerM2)
	return &roomspec.Estimate{
		LineItems: []roomspec.CostItem{
			{
				Category:    roomspec.CostOther,
				Description: "Complete Renovation Package",
				Amount:      areaM2,
				Unit:        "m2",
				UnitPrice:   fallbackRatePerM2,
				TotalPrice:  subtotal,
			},
		},
		Subtotal:   subtotal,
		Tax:        round2(subtotal * taxRate),
		GrandTotal: round2(subtotal * fallbackMarkup),
		Currency:   currency,
		Summary:    "Rough estimate based on floor area; detailed pricing was unavailable.",
		Fallback:   true,
	}
}

// actionForWireCategory resolves the effective action for a wire-level
// category tag. Lines with no category (general operations) always count.
func actionForWireCategory(materials roomspec.MaterialConfig, category string) roomspec.ProductAction {
	if category == "" {
		return roomspec.ActionReplace
	}
	return materials.ActionFor(roomspec.Category(category))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
