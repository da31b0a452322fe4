// Package http provides the HTTP API for renovd.
package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/catalog"
	"github.com/fyrsmithlabs/renovd/internal/pipeline"
	"github.com/fyrsmithlabs/renovd/internal/render"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

// maxPhotoBytes caps uploaded photo size.
const maxPhotoBytes = 15 << 20 // 15MB

// Runner is the pipeline contract the server depends on.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Catalog is the product catalog read surface exposed to clients.
type Catalog interface {
	Products(ctx context.Context) ([]roomspec.DatabaseProduct, error)
	StyleTags(ctx context.Context) ([]string, error)
	StylePresets(ctx context.Context) ([]catalog.StylePreset, error)
	ProductImage(ctx context.Context, ref string) ([]byte, string, error)
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server exposes the renovation pipeline over HTTP.
type Server struct {
	echo    *echo.Echo
	runner  Runner
	catalog Catalog
	logger  *zap.Logger
	config  *Config
}

// NewServer creates the HTTP server. catalog may be nil, in which case the
// catalog routes are not registered.
func NewServer(runner Runner, catalog Catalog, logger *zap.Logger, cfg *Config) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8480}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(fmt.Sprintf("%dM", maxPhotoBytes>>20)))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return err
		}
	})

	s := &Server{
		echo:    e,
		runner:  runner,
		catalog: catalog,
		logger:  logger,
		config:  cfg,
	}
	s.registerRoutes()
	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/healthz", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/api/v1/plan", s.handlePlan)
	if s.catalog != nil {
		s.echo.GET("/api/v1/catalog/products", s.handleProducts)
		s.echo.GET("/api/v1/catalog/style-tags", s.handleStyleTags)
		s.echo.GET("/api/v1/catalog/style-presets", s.handleStylePresets)
	}
}

// Start runs the server until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	errCh := make(chan error, 1)
	go func() {
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleProducts(c echo.Context) error {
	products, err := s.catalog.Products(c.Request().Context())
	if err != nil {
		s.logger.Warn("catalog products fetch failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "catalog unavailable"})
	}
	return c.JSON(http.StatusOK, products)
}

func (s *Server) handleStyleTags(c echo.Context) error {
	tags, err := s.catalog.StyleTags(c.Request().Context())
	if err != nil {
		s.logger.Warn("catalog style tags fetch failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "catalog unavailable"})
	}
	return c.JSON(http.StatusOK, tags)
}

func (s *Server) handleStylePresets(c echo.Context) error {
	presets, err := s.catalog.StylePresets(c.Request().Context())
	if err != nil {
		s.logger.Warn("catalog style presets fetch failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, errorResponse{Error: "catalog unavailable"})
	}
	return c.JSON(http.StatusOK, presets)
}

// planBody is the JSON side of the multipart plan request.
type planBody struct {
	Note      string                     `json:"note,omitempty"`
	Style     roomspec.StyleProfile      `json:"style"`
	Tier      roomspec.BudgetTier        `json:"tier"`
	Materials roomspec.MaterialConfig    `json:"materials,omitempty"`
	Products  []roomspec.DatabaseProduct `json:"products,omitempty"`
	Manual    *roomspec.ManualDimensions `json:"manualDimensions,omitempty"`
	Fidelity  render.FidelityMode        `json:"fidelity,omitempty"`
}

// planResponse is returned on success. The render image travels as a data URI
// or a URL, whichever the model produced.
type planResponse struct {
	RunID         string                `json:"runId"`
	Spec          *roomspec.ProjectSpec `json:"spec"`
	Estimate      *roomspec.Estimate    `json:"estimate"`
	RenderedImage string                `json:"renderedImage"`
	ElapsedMS     int64                 `json:"elapsedMs"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handlePlan accepts multipart form data: a "photo" file and a "request" JSON
// part. Error responses carry one of exactly two user-facing messages.
func (s *Server) handlePlan(c echo.Context) error {
	photoHeader, err := c.FormFile("photo")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "photo file is required"})
	}
	f, err := photoHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "photo file is unreadable"})
	}
	defer f.Close()
	photo, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "photo file is unreadable"})
	}

	var body planBody
	if raw := c.FormValue("request"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "request part is not valid JSON"})
		}
	}
	if body.Tier == "" {
		body.Tier = roomspec.TierStandard
	}
	if body.Fidelity == "" {
		body.Fidelity = render.FidelityStructureLocked
	}

	inspiration, err := s.inspirationImages(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "inspiration image is unreadable"})
	}

	ctx := c.Request().Context()
	if s.catalog != nil && len(body.Style.Tags) > 0 {
		if vocab, err := s.catalog.StyleTags(ctx); err != nil {
			s.logger.Warn("style tag vocabulary fetch failed", zap.Error(err))
		} else {
			body.Style.Tags = catalog.FilterTags(body.Style.Tags, vocab)
		}
	}

	req := pipeline.Request{
		Photo:       photo,
		PhotoMIME:   photoHeader.Header.Get("Content-Type"),
		Note:        body.Note,
		Style:       body.Style,
		Tier:        body.Tier,
		Materials:   body.Materials,
		Products:    body.Products,
		Selected:    s.selectedProducts(ctx, body.Materials),
		Inspiration: inspiration,
		Manual:      body.Manual,
		Fidelity:    body.Fidelity,
	}

	result, err := s.runner.Run(ctx, req)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, pipeline.ErrBudgetExceeded) {
			status = http.StatusGatewayTimeout
		}
		return c.JSON(status, errorResponse{Error: pipeline.UserMessage(err)})
	}

	return c.JSON(http.StatusOK, planResponse{
		RunID:         result.RunID,
		Spec:          result.Spec,
		Estimate:      result.Estimate,
		RenderedImage: renderReference(result.Render),
		ElapsedMS:     result.Elapsed.Milliseconds(),
	})
}

// inspirationImages reads optional "inspiration" file parts.
func (s *Server) inspirationImages(c echo.Context) ([]render.ReferenceImage, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil
	}
	var out []render.ReferenceImage
	for _, fh := range form.File["inspiration"] {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(io.LimitReader(f, maxPhotoBytes))
		f.Close()
		if err != nil {
			return nil, err
		}
		out = append(out, render.ReferenceImage{
			Data: data,
			MIME: fh.Header.Get("Content-Type"),
		})
	}
	return out, nil
}

// selectedProducts turns the material configuration into the render stage's
// per-category product selection, resolving each chosen product's art through
// the catalog. A failed download leaves the entry without a figure; the render
// prompt then describes the product in words instead.
func (s *Server) selectedProducts(ctx context.Context, mc roomspec.MaterialConfig) []render.SelectedProduct {
	var out []render.SelectedProduct
	for _, cat := range roomspec.Categories() {
		sp := render.SelectedProduct{
			Category: cat,
			Action:   mc.ActionFor(cat),
			Product:  mc.Products[cat],
		}
		if s.catalog != nil && sp.Product != nil && sp.Product.ImageRef != "" {
			data, mime, err := s.catalog.ProductImage(ctx, sp.Product.ImageRef)
			if err != nil {
				s.logger.Warn("product image fetch failed",
					zap.String("category", string(cat)),
					zap.String("ref", sp.Product.ImageRef),
					zap.Error(err))
			} else {
				sp.Image = &render.ReferenceImage{Data: data, MIME: mime}
			}
		}
		out = append(out, sp)
	}
	return out
}

// renderReference encodes the render output as a data URI or passes the URL
// through.
func renderReference(out *render.Output) string {
	if out == nil {
		return ""
	}
	if out.URL != "" {
		return out.URL
	}
	return dataURI(out.Data, out.MIME)
}

func dataURI(data []byte, mime string) string {
	if len(data) == 0 {
		return ""
	}
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
