package reports

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	blobmem "fibretrace/internal/infra/blob/memory"
)

func newTestHandler(t *testing.T) (*Handler, *blobmem.Store) {
	t.Helper()
	blobs := blobmem.New()
	return NewHandler(NewExporter(seededStore(t), blobs)), blobs
}

func TestHandlerListTemplates(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/templates", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Templates []Template `json:"templates"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Templates) != 2 || payload.Templates[0].Key != TemplateLineageManifest {
		t.Fatalf("unexpected catalog %+v", payload.Templates)
	}
}

func TestHandlerRunJSON(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/lineage-manifest", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var result RunResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Rows) != 1 || result.Rows[0]["fibre_pack_id"] != "FP-1" {
		t.Fatalf("unexpected rows %+v", result.Rows)
	}
}

func TestHandlerRunCSV(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/lineage-manifest?format=csv", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "lineage-manifest") {
		t.Fatalf("content disposition = %s", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "fibre_pack_id,") {
		t.Fatalf("unexpected body %q", rec.Body.String())
	}
}

func TestHandlerRunCSVViaAccept(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/material-breakdown", nil)
	req.Header.Set("Accept", "text/csv")
	handler.ServeHTTP(rec, req)

	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Fatalf("content type = %s", ct)
	}
}

func TestHandlerExport(t *testing.T) {
	handler, blobs := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/lineage-manifest/export", strings.NewReader(`{"formats":["json"]}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Artifacts) != 1 || payload.Artifacts[0].Format != FormatJSON {
		t.Fatalf("unexpected artifacts %+v", payload.Artifacts)
	}
	if _, err := blobs.Head(req.Context(), payload.Artifacts[0].Key); err != nil {
		t.Fatalf("artifact not stored: %v", err)
	}
}

func TestHandlerExportEmptyBodyDefaultsFormats(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/reports/material-breakdown/export", nil))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Artifacts []Artifact `json:"artifacts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Artifacts) != 2 {
		t.Fatalf("expected json and csv artifacts, got %d", len(payload.Artifacts))
	}
}

func TestHandlerExportRejectsBadFormat(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports/lineage-manifest/export", strings.NewReader(`{"formats":["xml"]}`))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandlerListArtifacts(t *testing.T) {
	handler, _ := newTestHandler(t)
	seed := httptest.NewRecorder()
	handler.ServeHTTP(seed, httptest.NewRequest(http.MethodPost, "/api/v1/reports/lineage-manifest/export", strings.NewReader(`{"formats":["csv"]}`)))
	if seed.Code != http.StatusCreated {
		t.Fatalf("seed export status = %d", seed.Code)
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/artifacts?template=lineage-manifest", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var payload struct {
		Artifacts []struct {
			Key string `json:"key"`
		} `json:"artifacts"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Artifacts) != 1 || !strings.HasPrefix(payload.Artifacts[0].Key, "reports/lineage-manifest/") {
		t.Fatalf("unexpected artifacts %+v", payload.Artifacts)
	}
}

func TestHandlerUnknownTemplate(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/nonsense", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHandlerMethodNotAllowed(t *testing.T) {
	handler, _ := newTestHandler(t)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/reports/lineage-manifest", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d", rec.Code)
	}
}
