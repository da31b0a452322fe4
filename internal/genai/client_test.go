package genai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

func newTestClient(t *testing.T, direct, proxy string) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(Config{
		APIKey:        "test-key",
		DirectBaseURL: direct,
		ProxyBaseURL:  proxy,
	})
	require.NoError(t, err)
	return c
}

func textResponse(text string) string {
	b, _ := json.Marshal(map[string]any{
		"candidates": []map[string]any{
			{"content": map[string]any{"parts": []map[string]any{{"text": text}}}},
		},
	})
	return string(b)
}

func TestGenerateStructured_RouteSelectionAndWireShape(t *testing.T) {
	var directHits, proxyHits int
	var captured map[string]any

	handler := func(hits *int) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			*hits++
			assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", r.URL.Path)
			assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
			_, _ = w.Write([]byte(textResponse(`{"ok": true}`)))
		}
	}
	direct := httptest.NewServer(handler(&directHits))
	defer direct.Close()
	proxy := httptest.NewServer(handler(&proxyHits))
	defer proxy.Close()

	c := newTestClient(t, direct.URL, proxy.URL)
	req := StructuredRequest{
		System:      "be terse",
		Parts:       []Part{ImagePart([]byte("img"), "image/jpeg"), TextPart("analyze")},
		Schema:      json.RawMessage(`{"type":"OBJECT"}`),
		Temperature: 0.2,
		MaxTokens:   1024,
	}

	raw, err := c.GenerateStructured(context.Background(), req, true)
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok": true}`, string(raw))
	assert.Equal(t, 1, directHits)
	assert.Equal(t, 0, proxyHits)

	_, err = c.GenerateStructured(context.Background(), req, false)
	require.NoError(t, err)
	assert.Equal(t, 1, proxyHits)

	gc := captured["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gc["responseMimeType"])
	assert.NotNil(t, gc["responseSchema"])
	assert.NotNil(t, captured["systemInstruction"])

	parts := captured["contents"].([]any)[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	inline := parts[0].(map[string]any)["inlineData"].(map[string]any)
	assert.Equal(t, "image/jpeg", inline["mimeType"])
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("img")), inline["data"])
}

func TestGenerateStructured_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error": {"code": 429, "message": "quota exhausted", "status": "RESOURCE_EXHAUSTED"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.GenerateStructured(context.Background(), StructuredRequest{Parts: []Part{TextPart("x")}}, false)

	var se *upstream.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 429, se.Code)
	assert.Equal(t, "quota exhausted", se.Body)
	assert.True(t, upstream.IsTransient(err))
}

func TestGenerateStructured_StripsFences(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(textResponse("```json\n{\"a\": 1}\n```")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	raw, err := c.GenerateStructured(context.Background(), StructuredRequest{Parts: []Part{TextPart("x")}}, false)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": 1}`, string(raw))
}

func TestGenerateImage_InlineData(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G'}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.5-flash-image:generateContent", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		gc := body["generationConfig"].(map[string]any)
		assert.ElementsMatch(t, []any{"IMAGE", "TEXT"}, gc["responseModalities"])

		resp, _ := json.Marshal(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"text": "here you go"},
					{"inlineData": map[string]any{"mimeType": "image/png", "data": base64.StdEncoding.EncodeToString(png)}},
				}}},
			},
		})
		_, _ = w.Write(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	res, err := c.GenerateImage(context.Background(), ImageRequest{Parts: []Part{TextPart("render")}}, false)

	require.NoError(t, err)
	assert.Equal(t, png, res.Data)
	assert.Equal(t, "image/png", res.MIME)
}

func TestGenerateImage_FileData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp, _ := json.Marshal(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"parts": []map[string]any{
					{"fileData": map[string]any{"mimeType": "image/png", "fileUri": "https://files.example/render.png"}},
				}}},
			},
		})
		_, _ = w.Write(resp)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	res, err := c.GenerateImage(context.Background(), ImageRequest{}, false)

	require.NoError(t, err)
	assert.Empty(t, res.Data)
	assert.Equal(t, "https://files.example/render.png", res.URL)
}

func TestGenerateImage_NoImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(textResponse("sorry, cannot")))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, srv.URL)
	_, err := c.GenerateImage(context.Background(), ImageRequest{}, false)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image")
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := NewHTTPClient(Config{ProxyBaseURL: "https://proxy.example.com"})
	require.Error(t, err)

	_, err = NewHTTPClient(Config{APIKey: "k"})
	require.Error(t, err)

	c, err := NewHTTPClient(Config{APIKey: "k", ProxyBaseURL: "https://proxy.example.com"})
	require.NoError(t, err)
	assert.Equal(t, defaultTextModel, c.cfg.TextModel)
	assert.Equal(t, defaultImageModel, c.cfg.ImageModel)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
}
