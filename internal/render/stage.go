// Package render produces the "after" image from the original photo, the room
// spec, the style profile, and the chosen products. The image model is opaque;
// the renovation procedure is encoded entirely in the prompt as five ordered
// steps (study, strip to shell, place fixtures, apply finishes, self-check),
// with optional structural locks per fidelity mode.
//
// Unlike analysis and estimation, this stage has no safe fallback: failure
// propagates to the orchestrator.
package render

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/genai"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

// Input is everything one render call consumes.
type Input struct {
	Photo       ReferenceImage
	Spec        *roomspec.ProjectSpec
	Style       roomspec.StyleProfile
	Products    []SelectedProduct
	Inspiration []ReferenceImage
	Fidelity    FidelityMode
}

// Output is the terminal render artifact: inline bytes or a URL the caller
// must resolve.
type Output struct {
	Data []byte `json:"-"`
	MIME string `json:"mime,omitempty"`
	URL  string `json:"url,omitempty"`
}

// Stage is the render generation stage.
type Stage struct {
	imageModel genai.ImageModel
	textModel  genai.TextModel
	exec       *upstream.Executor
	policy     upstream.Policy
	logger     *zap.Logger
}

// renderPolicy: proxy-only routing, 2 retries, 8s base backoff, 180s
// per-attempt timeout. Render calls are expected to be slow.
func renderPolicy() upstream.Policy {
	return upstream.Policy{
		Routing:        upstream.RoutingProxyOnly,
		MaxRetries:     2,
		BaseDelay:      8 * time.Second,
		AttemptTimeout: 180 * time.Second,
	}
}

// NewStage creates the render stage. textModel is only used by the guardrail
// pre-pass in two_pass_locked mode.
func NewStage(imageModel genai.ImageModel, textModel genai.TextModel, exec *upstream.Executor, logger *zap.Logger) *Stage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Stage{
		imageModel: imageModel,
		textModel:  textModel,
		exec:       exec,
		policy:     renderPolicy(),
		logger:     logger.Named("render"),
	}
}

// Render produces the after image. Guardrail failure in two_pass_locked mode
// is non-fatal; image-model failure is returned.
func (s *Stage) Render(ctx context.Context, in Input) (*Output, error) {
	var guardrail *GuardrailResult
	if in.Fidelity == FidelityTwoPassLocked {
		gr, err := s.runGuardrail(ctx, in.Spec)
		if err != nil {
			s.logGuardrailSkip(err)
		} else {
			guardrail = gr
		}
	}

	images := BuildImageMap(in.Photo, in.Inspiration, in.Products)
	prompt := (&promptBuilder{
		spec:      in.Spec,
		style:     in.Style,
		products:  in.Products,
		images:    images,
		fidelity:  in.Fidelity,
		guardrail: guardrail,
	}).Build()

	req := genai.ImageRequest{
		Parts: append(images.Parts(), genai.TextPart(prompt)),
	}

	result, err := upstream.Do(ctx, s.exec, s.policy, "render",
		func(ctx context.Context, direct bool) (*genai.ImageResult, error) {
			return s.imageModel.GenerateImage(ctx, req, direct)
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info("render generated",
		zap.String("fidelity", string(in.Fidelity)),
		zap.Int("reference_images", images.Len()),
		zap.Bool("inline", len(result.Data) > 0),
	)
	return &Output{Data: result.Data, MIME: result.MIME, URL: result.URL}, nil
}
