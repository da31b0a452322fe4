// Package genai holds the HTTP clients for the two upstream model endpoints:
// the vision/language model (structured JSON output) and the image-generation
// model. Both are reachable over a direct route and a proxy route; route
// selection per attempt belongs to the upstream executor, not to this package.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

// Default endpoints and models. Overridable via Config.
const (
	defaultDirectBaseURL = "https://generativelanguage.googleapis.com"
	defaultTextModel     = "gemini-2.5-flash"
	defaultImageModel    = "gemini-2.5-flash-image"
	defaultHTTPTimeout   = 180 * time.Second
)

// Client rate limiting: 50 requests per minute, short bursts allowed.
const (
	defaultRateLimit = 50.0 / 60.0
	defaultBurst     = 5
)

// Part is one ordered content part of a model request. Exactly one of Text or
// ImageData is set.
type Part struct {
	Text      string
	ImageData []byte
	ImageMIME string
}

// TextPart builds a text content part.
func TextPart(s string) Part { return Part{Text: s} }

// ImagePart builds an inline image content part.
func ImagePart(data []byte, mime string) Part {
	return Part{ImageData: data, ImageMIME: mime}
}

// StructuredRequest asks the vision/language model for JSON constrained to a
// response schema.
type StructuredRequest struct {
	System      string
	Parts       []Part
	Schema      json.RawMessage
	Temperature float64
	MaxTokens   int
}

// ImageRequest asks the image model for a single rendered image. Parts carry
// the labeled reference images followed by one large prompt text.
type ImageRequest struct {
	Parts []Part
}

// ImageResult is the render output: either inline bytes or a URL the caller
// must resolve.
type ImageResult struct {
	Data []byte
	MIME string
	URL  string
}

// TextModel is the structured-output capability consumed by the analysis,
// estimation, and guardrail stages.
type TextModel interface {
	GenerateStructured(ctx context.Context, req StructuredRequest, useDirectRoute bool) (json.RawMessage, error)
}

// ImageModel is the image-synthesis capability consumed by the render stage.
type ImageModel interface {
	GenerateImage(ctx context.Context, req ImageRequest, useDirectRoute bool) (*ImageResult, error)
}

// Config configures the HTTP client for both capabilities.
type Config struct {
	APIKey        string
	DirectBaseURL string
	ProxyBaseURL  string
	TextModel     string
	ImageModel    string
	HTTPTimeout   time.Duration
}

// HTTPClient implements TextModel and ImageModel over the wire protocol shared
// by the direct endpoint and the proxy.
type HTTPClient struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewHTTPClient creates a client. The API key is required; the proxy base URL
// is required because every routing policy can fall back to it.
func NewHTTPClient(cfg Config) (*HTTPClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("upstream API key required")
	}
	if cfg.ProxyBaseURL == "" {
		return nil, fmt.Errorf("proxy base URL required")
	}
	if cfg.DirectBaseURL == "" {
		cfg.DirectBaseURL = defaultDirectBaseURL
	}
	if cfg.TextModel == "" {
		cfg.TextModel = defaultTextModel
	}
	if cfg.ImageModel == "" {
		cfg.ImageModel = defaultImageModel
	}
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = defaultHTTPTimeout
	}

	return &HTTPClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.HTTPTimeout,
		},
		limiter: rate.NewLimiter(rate.Limit(defaultRateLimit), defaultBurst),
	}, nil
}

// Wire types for the generateContent protocol.

type wirePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *wireInlineData `json:"inlineData,omitempty"`
}

type wireInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type wireContent struct {
	Role  string     `json:"role,omitempty"`
	Parts []wirePart `json:"parts"`
}

type wireGenerationConfig struct {
	Temperature        float64         `json:"temperature,omitempty"`
	MaxOutputTokens    int             `json:"maxOutputTokens,omitempty"`
	ResponseMIMEType   string          `json:"responseMimeType,omitempty"`
	ResponseSchema     json.RawMessage `json:"responseSchema,omitempty"`
	ResponseModalities []string        `json:"responseModalities,omitempty"`
}

type wireRequest struct {
	SystemInstruction *wireContent         `json:"systemInstruction,omitempty"`
	Contents          []wireContent        `json:"contents"`
	GenerationConfig  wireGenerationConfig `json:"generationConfig"`
}

type wireResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text       string `json:"text,omitempty"`
				InlineData *struct {
					MIMEType string `json:"mimeType"`
					Data     string `json:"data"`
				} `json:"inlineData,omitempty"`
				FileData *struct {
					MIMEType string `json:"mimeType"`
					FileURI  string `json:"fileUri"`
				} `json:"fileData,omitempty"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

type wireError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// GenerateStructured sends one structured-output request and returns the raw
// JSON the model produced, with markdown code fences stripped if present.
func (c *HTTPClient) GenerateStructured(ctx context.Context, req StructuredRequest, useDirectRoute bool) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	wr := wireRequest{
		Contents: []wireContent{{Role: "user", Parts: toWireParts(req.Parts)}},
		GenerationConfig: wireGenerationConfig{
			Temperature:      req.Temperature,
			MaxOutputTokens:  req.MaxTokens,
			ResponseMIMEType: "application/json",
			ResponseSchema:   req.Schema,
		},
	}
	if req.System != "" {
		wr.SystemInstruction = &wireContent{Parts: []wirePart{{Text: req.System}}}
	}

	resp, err := c.post(ctx, c.cfg.TextModel, wr, useDirectRoute)
	if err != nil {
		return nil, err
	}

	text := firstText(resp)
	if text == "" {
		return nil, fmt.Errorf("empty response from model")
	}
	return json.RawMessage(stripFences(text)), nil
}

// GenerateImage sends one image request and returns the first image part of
// the response as inline bytes or a file URL.
func (c *HTTPClient) GenerateImage(ctx context.Context, req ImageRequest, useDirectRoute bool) (*ImageResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	wr := wireRequest{
		Contents: []wireContent{{Role: "user", Parts: toWireParts(req.Parts)}},
		GenerationConfig: wireGenerationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}

	resp, err := c.post(ctx, c.cfg.ImageModel, wr, useDirectRoute)
	if err != nil {
		return nil, err
	}

	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData != nil {
				data, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
				if err != nil {
					return nil, fmt.Errorf("decode image data: %w", err)
				}
				return &ImageResult{Data: data, MIME: p.InlineData.MIMEType}, nil
			}
			if p.FileData != nil {
				return &ImageResult{URL: p.FileData.FileURI, MIME: p.FileData.MIMEType}, nil
			}
		}
	}
	return nil, fmt.Errorf("model returned no image")
}

// post performs the actual HTTP round trip against the chosen route.
func (c *HTTPClient) post(ctx context.Context, model string, wr wireRequest, useDirectRoute bool) (*wireResponse, error) {
	jsonData, err := json.Marshal(wr)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	base := c.cfg.ProxyBaseURL
	if useDirectRoute {
		base = c.cfg.DirectBaseURL
	}
	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimSuffix(base, "/"), model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Goog-Api-Key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var we wireError
		if err := json.Unmarshal(body, &we); err == nil && we.Error.Message != "" {
			return nil, &upstream.StatusError{Code: resp.StatusCode, Body: we.Error.Message}
		}
		return nil, &upstream.StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var out wireResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	return &out, nil
}

func toWireParts(parts []Part) []wirePart {
	out := make([]wirePart, 0, len(parts))
	for _, p := range parts {
		if p.ImageData != nil {
			out = append(out, wirePart{InlineData: &wireInlineData{
				MIMEType: p.ImageMIME,
				Data:     base64.StdEncoding.EncodeToString(p.ImageData),
			}})
			continue
		}
		out = append(out, wirePart{Text: p.Text})
	}
	return out
}

func firstText(resp *wireResponse) string {
	for _, cand := range resp.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// stripFences removes markdown code fences models sometimes wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var _ TextModel = (*HTTPClient)(nil)
var _ ImageModel = (*HTTPClient)(nil)
