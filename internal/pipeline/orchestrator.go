// Package pipeline sequences the three generation stages for one end-to-end
// renovation run: photo → room analysis → (cost estimate ∥ render). Estimate
// and render race once the merged spec exists; both observe a single shared
// budget context and the run fails with one of exactly two public error
// classes.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fyrsmithlabs/renovd/internal/estimate"
	"github.com/fyrsmithlabs/renovd/internal/render"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

// DefaultBudget is the global wall-clock budget for one run.
const DefaultBudget = 120 * time.Second

// Analyzer is the room analysis stage contract. Analysis never fails; it
// degrades to a fallback spec internally.
type Analyzer interface {
	Analyze(ctx context.Context, photo []byte, mimeType, note string) *roomspec.ProjectSpec
}

// Estimator is the cost estimation stage contract. Estimation never fails; it
// degrades to an area-based fallback internally.
type Estimator interface {
	Estimate(ctx context.Context, in estimate.Input) *roomspec.Estimate
}

// Renderer is the render stage contract. Render failure is fatal for the run.
type Renderer interface {
	Render(ctx context.Context, in render.Input) (*render.Output, error)
}

// Normalizer bounds and re-encodes the uploaded photo.
type Normalizer interface {
	Normalize(photo []byte) ([]byte, string, error)
}

// Request is one "generate my renovation" user action.
type Request struct {
	Photo     []byte
	PhotoMIME string
	Note      string

	Style       roomspec.StyleProfile
	Tier        roomspec.BudgetTier
	Materials   roomspec.MaterialConfig
	Products    []roomspec.DatabaseProduct
	Selected    []render.SelectedProduct
	Inspiration []render.ReferenceImage
	Manual      *roomspec.ManualDimensions
	Fidelity    render.FidelityMode
}

// Result is the terminal artifact set of one run.
type Result struct {
	RunID    string                `json:"runId"`
	Spec     *roomspec.ProjectSpec `json:"spec"`
	Estimate *roomspec.Estimate    `json:"estimate"`
	Render   *render.Output        `json:"render"`
	Elapsed  time.Duration         `json:"-"`
}

// Orchestrator wires the stages together.
type Orchestrator struct {
	analyzer   Analyzer
	estimator  Estimator
	renderer   Renderer
	normalizer Normalizer
	budget     time.Duration
	logger     *zap.Logger
	tracer     trace.Tracer
	metrics    *Metrics
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithBudget overrides the global wall-clock budget.
func WithBudget(d time.Duration) Option {
	return func(o *Orchestrator) { o.budget = d }
}

// WithTracer attaches an OTEL tracer for per-stage spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithMetrics attaches run metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New creates an orchestrator with the default budget.
func New(analyzer Analyzer, estimator Estimator, renderer Renderer, normalizer Normalizer, logger *zap.Logger, opts ...Option) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		analyzer:   analyzer,
		estimator:  estimator,
		renderer:   renderer,
		normalizer: normalizer,
		budget:     DefaultBudget,
		logger:     logger.Named("pipeline"),
		tracer:     noop.NewTracerProvider().Tracer("pipeline"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one end-to-end renovation. On failure it returns exactly
// ErrBudgetExceeded or ErrRunFailed; the underlying cause is only logged.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	runID := uuid.NewString()
	logger := o.logger.With(zap.String("run_id", runID))
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, o.budget)
	defer cancel()

	ctx, span := o.tracer.Start(ctx, "pipeline.run",
		trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	res, err := o.run(ctx, runID, logger, req)
	elapsed := time.Since(start)

	if err != nil {
		public := classify(ctx, err)
		outcome := "error"
		if errors.Is(public, ErrBudgetExceeded) {
			outcome = "timeout"
		}
		o.metrics.observe(outcome, elapsed.Seconds())
		logger.Error("run failed",
			zap.Duration("elapsed", elapsed),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
		return nil, public
	}

	res.Elapsed = elapsed
	o.metrics.observe("ok", elapsed.Seconds())
	logger.Info("run complete",
		zap.Duration("elapsed", elapsed),
		zap.Float64("grand_total", res.Estimate.GrandTotal),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, runID string, logger *zap.Logger, req Request) (*Result, error) {
	// Normalize the photo before any stage sees it.
	photo, mime, err := o.normalizePhoto(ctx, req)
	if err != nil {
		return nil, err
	}

	// Warm the image model with a coarse empty-shell pre-render concurrently
	// with analysis. Latency optimization only; the result is discarded.
	warmCtx := ctx
	go o.warmup(warmCtx, logger, photo, mime, req)

	// Stage 1: room analysis (never fails, degrades internally).
	aCtx, aSpan := o.tracer.Start(ctx, "pipeline.analysis")
	spec := o.analyzer.Analyze(aCtx, photo, mime, req.Note)
	aSpan.End()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Merge user-entered dimensions over the AI estimate.
	merged := roomspec.MergeDimensions(spec, req.Manual)

	// Stages 2+3: estimate and render race off the merged spec.
	var est *roomspec.Estimate
	var img *render.Output

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		eCtx, span := o.tracer.Start(gctx, "pipeline.estimate")
		defer span.End()
		est = o.estimator.Estimate(eCtx, estimate.Input{
			Spec:      merged,
			Tier:      req.Tier,
			Style:     req.Style,
			Materials: req.Materials,
			Products:  req.Products,
		})
		return gctx.Err()
	})
	g.Go(func() error {
		rCtx, span := o.tracer.Start(gctx, "pipeline.render")
		defer span.End()
		out, err := o.renderer.Render(rCtx, render.Input{
			Photo:       render.ReferenceImage{Data: photo, MIME: mime},
			Spec:        merged,
			Style:       req.Style,
			Products:    req.Selected,
			Inspiration: req.Inspiration,
			Fidelity:    req.Fidelity,
		})
		if err != nil {
			return err
		}
		img = out
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Result{RunID: runID, Spec: merged, Estimate: est, Render: img}, nil
}

func (o *Orchestrator) normalizePhoto(ctx context.Context, req Request) ([]byte, string, error) {
	if o.normalizer == nil {
		return req.Photo, req.PhotoMIME, nil
	}
	photo, mime, err := o.normalizer.Normalize(req.Photo)
	if err != nil {
		// An unreadable photo cannot proceed.
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	return photo, mime, nil
}

// warmup fires the coarse empty-shell pre-render. Failures are expected and
// only logged at debug.
func (o *Orchestrator) warmup(ctx context.Context, logger *zap.Logger, photo []byte, mime string, req Request) {
	placeholder := &roomspec.ProjectSpec{
		RoomType:    "bathroom",
		LayoutShape: roomspec.LayoutRectangle,
	}
	_, err := o.renderer.Render(ctx, render.Input{
		Photo:    render.ReferenceImage{Data: photo, MIME: mime},
		Spec:     placeholder,
		Style:    req.Style,
		Fidelity: render.FidelityBaseline,
	})
	if err != nil {
		logger.Debug("warmup pre-render discarded", zap.Error(err))
	}
}
