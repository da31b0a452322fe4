package render

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/genai"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

// GuardrailResult is the output of the text-only layout guardrail pre-pass.
// Its strings are injected verbatim into the main render prompt.
type GuardrailResult struct {
	CameraLock     string   `json:"camera_lock"`
	StructureLocks []string `json:"structure_locks"`
	RiskNotes      []string `json:"risk_notes"`
}

const guardrailSchema = `{
  "type": "OBJECT",
  "properties": {
    "camera_lock": {"type": "STRING"},
    "structure_locks": {"type": "ARRAY", "items": {"type": "STRING"}},
    "risk_notes": {"type": "ARRAY", "items": {"type": "STRING"}}
  },
  "required": ["camera_lock", "structure_locks"]
}`

const guardrailSystem = `You prepare structural lock statements for an image-editing model that will renovate a bathroom photo. From the room survey given, produce:
- camera_lock: one imperative sentence locking camera position, height, tilt, and field of view.
- structure_locks: one imperative sentence per architectural element (door, window, niche, beam, slope) that must not move, resize, or disappear, with its wall and frame-space location.
- risk_notes: short warnings about elements the image model is likely to hallucinate or drop in this specific room.
Be concrete and terse. No preamble.`

// guardrailPolicy: proxy-only, a single retry, 90s per-attempt timeout.
func guardrailPolicy() upstream.Policy {
	return upstream.Policy{
		Routing:        upstream.RoutingProxyOnly,
		MaxRetries:     1,
		BaseDelay:      3 * time.Second,
		AttemptTimeout: 90 * time.Second,
	}
}

// runGuardrail executes the pre-pass. Failure is non-fatal: the caller logs a
// warning and renders without locks from this pass.
func (s *Stage) runGuardrail(ctx context.Context, spec *roomspec.ProjectSpec) (*GuardrailResult, error) {
	req := genai.StructuredRequest{
		System:      guardrailSystem,
		Parts:       []genai.Part{genai.TextPart(guardrailPrompt(spec))},
		Schema:      json.RawMessage(guardrailSchema),
		Temperature: 0.1,
		MaxTokens:   2048,
	}

	raw, err := upstream.Do(ctx, s.exec, guardrailPolicy(), "layout_guardrail",
		func(ctx context.Context, direct bool) (json.RawMessage, error) {
			return s.textModel.GenerateStructured(ctx, req, direct)
		})
	if err != nil {
		return nil, err
	}

	var out GuardrailResult
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse guardrail response: %w", err)
	}
	return &out, nil
}

// guardrailPrompt summarizes the survey for the pre-pass.
func guardrailPrompt(spec *roomspec.ProjectSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Room: %s, %.2fm x %.2fm, ceiling %.2fm, layout %s.\n",
		spec.RoomType, spec.EstimatedWidthMeters, spec.EstimatedLengthMeters,
		spec.CeilingHeightMeters, spec.LayoutShape)
	if spec.Camera != nil {
		fmt.Fprintf(&b, "Camera: %s, lens %s.\n", spec.Camera.Position, spec.Camera.LensFeel)
	}
	for _, wall := range spec.Walls {
		if !wall.Visible {
			continue
		}
		fmt.Fprintf(&b, "Wall %d (%s): plumbing=%t", int(wall.WallIndex), wall.WallIndex, wall.HasPlumbing)
		if wall.Features != "" {
			fmt.Fprintf(&b, ", features: %s", wall.Features)
		}
		b.WriteString("\n")
		for _, a := range wall.Anchors {
			fmt.Fprintf(&b, "  %s at (%.0f,%.0f)-(%.0f,%.0f)%% of frame, confidence %.2f\n",
				a.ElementType, a.TopLeft.X, a.TopLeft.Y, a.BottomRight.X, a.BottomRight.Y, a.Confidence)
		}
	}
	if spec.NaturalDescription != "" {
		b.WriteString("Description: " + spec.NaturalDescription + "\n")
	}
	return b.String()
}

// logGuardrailSkip records the non-fatal guardrail failure.
func (s *Stage) logGuardrailSkip(err error) {
	s.logger.Warn("layout guardrail pre-pass failed, rendering without it", zap.Error(err))
}
