package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/renovd/internal/catalog"
	"github.com/fyrsmithlabs/renovd/internal/pipeline"
	"github.com/fyrsmithlabs/renovd/internal/render"
	"github.com/fyrsmithlabs/renovd/internal/roomspec"
)

type fakeRunner struct {
	result *pipeline.Result
	err    error
	last   pipeline.Request
}

func (f *fakeRunner) Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeCatalog struct {
	vocab    []string
	images   map[string]string
	imageErr error
}

func (fakeCatalog) Products(ctx context.Context) ([]roomspec.DatabaseProduct, error) {
	return []roomspec.DatabaseProduct{{SKU: "T-1"}}, nil
}
func (f fakeCatalog) StyleTags(ctx context.Context) ([]string, error) {
	if f.vocab != nil {
		return f.vocab, nil
	}
	return []string{"minimal"}, nil
}
func (fakeCatalog) StylePresets(ctx context.Context) ([]catalog.StylePreset, error) {
	return []catalog.StylePreset{{ID: "p1"}}, nil
}
func (f fakeCatalog) ProductImage(ctx context.Context, ref string) ([]byte, string, error) {
	if f.imageErr != nil {
		return nil, "", f.imageErr
	}
	if data, ok := f.images[ref]; ok {
		return []byte(data), "image/jpeg", nil
	}
	return nil, "", errors.New("no such image")
}

func newTestServer(t *testing.T, runner Runner) *Server {
	t.Helper()
	return newTestServerWithCatalog(t, runner, fakeCatalog{})
}

func newTestServerWithCatalog(t *testing.T, runner Runner, cat Catalog) *Server {
	t.Helper()
	srv, err := NewServer(runner, cat, zap.NewNop(), nil)
	require.NoError(t, err)
	return srv
}

func planForm(t *testing.T, body string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("photo", "room.jpg")
	require.NoError(t, err)
	_, err = fw.Write([]byte("jpegdata"))
	require.NoError(t, err)
	if body != "" {
		require.NoError(t, mw.WriteField("request", body))
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func successResult() *pipeline.Result {
	spec := &roomspec.ProjectSpec{RoomType: "bathroom"}
	return &pipeline.Result{
		RunID:    "run-1",
		Spec:     spec,
		Estimate: &roomspec.Estimate{GrandTotal: 11790, Currency: "EUR"},
		Render:   &render.Output{Data: []byte("png"), MIME: "image/png"},
	}
}

func TestHandlePlan_Success(t *testing.T) {
	runner := &fakeRunner{result: successResult()}
	srv := newTestServer(t, runner)

	body, contentType := planForm(t, `{"tier":"PREMIUM","note":"keep the window","fidelity":"two_pass_locked"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp planResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "run-1", resp.RunID)
	assert.Contains(t, resp.RenderedImage, "data:image/png;base64,")

	assert.Equal(t, []byte("jpegdata"), runner.last.Photo)
	assert.Equal(t, "keep the window", runner.last.Note)
	assert.Equal(t, roomspec.TierPremium, runner.last.Tier)
	assert.Equal(t, render.FidelityTwoPassLocked, runner.last.Fidelity)
	assert.Len(t, runner.last.Selected, len(roomspec.Categories()),
		"every category gets a selection entry")
}

func TestHandlePlan_DefaultsWhenBodyOmitted(t *testing.T) {
	runner := &fakeRunner{result: successResult()}
	srv := newTestServer(t, runner)

	body, contentType := planForm(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, roomspec.TierStandard, runner.last.Tier)
	assert.Equal(t, render.FidelityStructureLocked, runner.last.Fidelity)
}

func TestHandlePlan_ResolvesProductImages(t *testing.T) {
	runner := &fakeRunner{result: successResult()}
	srv := newTestServerWithCatalog(t, runner, fakeCatalog{
		images: map[string]string{"art/vanity-60.jpg": "vanityart"},
	})

	body, contentType := planForm(t, `{"materials":{"products":{"Vanity":{"sku":"V-60","brand":"Duravit","name":"D-Neo 60","image_ref":"art/vanity-60.jpg"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var vanity *render.SelectedProduct
	for i := range runner.last.Selected {
		if runner.last.Selected[i].Category == roomspec.CategoryVanity {
			vanity = &runner.last.Selected[i]
		}
	}
	require.NotNil(t, vanity)
	require.NotNil(t, vanity.Image, "catalog art reaches the render input")
	assert.Equal(t, []byte("vanityart"), vanity.Image.Data)
	assert.Equal(t, "image/jpeg", vanity.Image.MIME)
}

func TestHandlePlan_ProductImageFailureDegrades(t *testing.T) {
	runner := &fakeRunner{result: successResult()}
	srv := newTestServerWithCatalog(t, runner, fakeCatalog{
		imageErr: errors.New("cdn down"),
	})

	body, contentType := planForm(t, `{"materials":{"products":{"Vanity":{"sku":"V-60","image_ref":"art/vanity-60.jpg"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	for _, sp := range runner.last.Selected {
		assert.Nil(t, sp.Image, string(sp.Category))
	}
}

func TestHandlePlan_FiltersStyleTagsAgainstVocabulary(t *testing.T) {
	runner := &fakeRunner{result: successResult()}
	srv := newTestServerWithCatalog(t, runner, fakeCatalog{
		vocab: []string{"minimal", "japandi"},
	})

	body, contentType := planForm(t, `{"style":{"tags":[{"tag":"Japandi","weight":0.9},{"tag":"steampunk","weight":0.5}]}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, runner.last.Style.Tags, 1)
	assert.Equal(t, "Japandi", runner.last.Style.Tags[0].Tag)
}

func TestHandlePlan_MissingPhoto(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{result: successResult()})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("request", "{}"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlePlan_BudgetExceededMapsTo504(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{err: pipeline.ErrBudgetExceeded})

	body, contentType := planForm(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusGatewayTimeout, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.MsgTimeout, resp.Error)
}

func TestHandlePlan_RunFailedMapsTo500WithGenericMessage(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{err: pipeline.ErrRunFailed})

	body, contentType := planForm(t, "")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/plan", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	srv.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, pipeline.MsgGeneric, resp.Error)
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestCatalogRoutes(t *testing.T) {
	srv := newTestServer(t, &fakeRunner{})

	for _, path := range []string{
		"/api/v1/catalog/products",
		"/api/v1/catalog/style-tags",
		"/api/v1/catalog/style-presets",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.echo.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRenderReference(t *testing.T) {
	assert.Equal(t, "", renderReference(nil))
	assert.Equal(t, "https://cdn.example/x.png", renderReference(&render.Output{URL: "https://cdn.example/x.png"}))
	assert.Equal(t, "data:image/png;base64,cG5n", renderReference(&render.Output{Data: []byte("png"), MIME: "image/png"}))
}
