// Package catalog reads products, style presets, and the controlled style-tag
// vocabulary from the catalog service. The core never writes to it. A TTL
// cache in front of the HTTP provider makes repeat lookups cheap; staleness is
// acceptable because the cache is an optimization, not a correctness
// dependency.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

// StylePreset is one named preset from the catalog service.
type StylePreset struct {
	ID      string              `json:"id"`
	Name    string              `json:"name"`
	Summary string              `json:"summary"`
	Tags    []roomspec.StyleTag `json:"tags"`
}

// Provider is the read-only catalog contract consumed by the estimation and
// render stages.
type Provider interface {
	Products(ctx context.Context) ([]roomspec.DatabaseProduct, error)
	StyleTags(ctx context.Context) ([]string, error)
	StylePresets(ctx context.Context) ([]StylePreset, error)
	ProductImage(ctx context.Context, ref string) ([]byte, string, error)
}

// maxProductImageBytes bounds a single product art download.
const maxProductImageBytes = 8 << 20 // 8MB

// HTTPProvider reads the catalog over HTTP.
type HTTPProvider struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPProvider creates a provider for the given catalog base URL.
func NewHTTPProvider(baseURL string) (*HTTPProvider, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("catalog base URL required")
	}
	return &HTTPProvider{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}, nil
}

// Products fetches the full product list.
func (p *HTTPProvider) Products(ctx context.Context) ([]roomspec.DatabaseProduct, error) {
	var out []roomspec.DatabaseProduct
	if err := p.get(ctx, "/v1/products", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StyleTags fetches the controlled style-tag vocabulary.
func (p *HTTPProvider) StyleTags(ctx context.Context) ([]string, error) {
	var out []string
	if err := p.get(ctx, "/v1/style-tags", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StylePresets fetches the named style presets.
func (p *HTTPProvider) StylePresets(ctx context.Context) ([]StylePreset, error) {
	var out []StylePreset
	if err := p.get(ctx, "/v1/style-presets", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ProductImage downloads the art behind a product's image ref. Refs are
// either absolute URLs or paths relative to the catalog base URL.
func (p *HTTPProvider) ProductImage(ctx context.Context, ref string) ([]byte, string, error) {
	if ref == "" {
		return nil, "", fmt.Errorf("product image ref required")
	}
	url := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		url = p.baseURL + "/" + strings.TrimPrefix(ref, "/")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("product image request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("product image error (%d)", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxProductImageBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read product image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/jpeg"
	}
	return data, mime, nil
}

func (p *HTTPProvider) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("catalog request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read catalog response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog error (%d): %s", resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("parse catalog response: %w", err)
	}
	return nil
}

// CachingProvider wraps a Provider with the TTL cache.
type CachingProvider struct {
	inner Provider
	cache *Cache
}

// NewCachingProvider wraps inner with cache.
func NewCachingProvider(inner Provider, cache *Cache) *CachingProvider {
	return &CachingProvider{inner: inner, cache: cache}
}

func (c *CachingProvider) Products(ctx context.Context) ([]roomspec.DatabaseProduct, error) {
	if v, ok := c.cache.Get("products"); ok {
		return v.([]roomspec.DatabaseProduct), nil
	}
	out, err := c.inner.Products(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set("products", out)
	return out, nil
}

func (c *CachingProvider) StyleTags(ctx context.Context) ([]string, error) {
	if v, ok := c.cache.Get("style_tags"); ok {
		return v.([]string), nil
	}
	out, err := c.inner.StyleTags(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set("style_tags", out)
	return out, nil
}

func (c *CachingProvider) StylePresets(ctx context.Context) ([]StylePreset, error) {
	if v, ok := c.cache.Get("style_presets"); ok {
		return v.([]StylePreset), nil
	}
	out, err := c.inner.StylePresets(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Set("style_presets", out)
	return out, nil
}

// cachedImage holds one downloaded product art entry.
type cachedImage struct {
	data []byte
	mime string
}

func (c *CachingProvider) ProductImage(ctx context.Context, ref string) ([]byte, string, error) {
	key := "image:" + ref
	if v, ok := c.cache.Get(key); ok {
		img := v.(cachedImage)
		return img.data, img.mime, nil
	}
	data, mime, err := c.inner.ProductImage(ctx, ref)
	if err != nil {
		return nil, "", err
	}
	c.cache.Set(key, cachedImage{data: data, mime: mime})
	return data, mime, nil
}

// FilterTags drops style tags outside the controlled vocabulary. The catalog
// vocabulary is the only valid tag set the pipeline may emit.
func FilterTags(tags []roomspec.StyleTag, vocabulary []string) []roomspec.StyleTag {
	allowed := make(map[string]bool, len(vocabulary))
	for _, v := range vocabulary {
		allowed[strings.ToLower(v)] = true
	}
	out := make([]roomspec.StyleTag, 0, len(tags))
	for _, t := range tags {
		if allowed[strings.ToLower(t.Tag)] {
			out = append(out, t)
		}
	}
	return out
}

var _ Provider = (*HTTPProvider)(nil)
var _ Provider = (*CachingProvider)(nil)
