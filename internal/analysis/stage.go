// Package analysis converts one photo plus an optional homeowner note into a
// structured ProjectSpec using the vision model. The stage degrades to a
// hardcoded conservative spec on any failure; it never aborts the pipeline.
package analysis

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/genai"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

// Stage is the room analysis stage.
type Stage struct {
	model  genai.TextModel
	exec   *upstream.Executor
	policy upstream.Policy
	logger *zap.Logger
}

// NewStage creates the analysis stage with direct-first routing and executor
// defaults.
func NewStage(model genai.TextModel, exec *upstream.Executor, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		model:  model,
		exec:   exec,
		policy: upstream.DefaultPolicy(upstream.RoutingDirectFirst),
		logger: logger.Named("analysis"),
	}
}

// Analyze surveys the photo and returns a ProjectSpec. On any error after
// retries (call failure, parse failure) it logs the cause and returns
// FallbackSpec; the returned spec is never nil.
func (s *Stage) Analyze(ctx context.Context, photo []byte, mimeType, note string) *roomspec.ProjectSpec {
	req := genai.StructuredRequest{
		System: systemInstruction,
		Parts: []genai.Part{
			genai.ImagePart(photo, mimeType),
			genai.TextPart(buildUserPrompt(note)),
		},
		Schema:      json.RawMessage(responseSchema),
		Temperature: 0.2,
		MaxTokens:   8192,
	}

	raw, err := upstream.Do(ctx, s.exec, s.policy, "room_analysis",
		func(ctx context.Context, direct bool) (json.RawMessage, error) {
			return s.model.GenerateStructured(ctx, req, direct)
		})
	if err != nil {
		s.logger.Warn("analysis call failed, using fallback spec", zap.Error(err))
		return FallbackSpec()
	}

	spec, err := toProjectSpec(raw)
	if err != nil {
		s.logger.Warn("analysis response unparseable, using fallback spec", zap.Error(err))
		return FallbackSpec()
	}

	s.logger.Info("room analyzed",
		zap.Float64("width_m", spec.EstimatedWidthMeters),
		zap.Float64("length_m", spec.EstimatedLengthMeters),
		zap.Float64("area_m2", spec.TotalAreaM2),
		zap.Int("fixtures", len(spec.ExistingFixtures)),
		zap.Int("walls", len(spec.Walls)),
	)
	return spec
}
