package helpers

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
)

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("error body is not JSON: %v (body %q)", err, rec.Body.String())
	}
	return out
}

func TestReadJSON_RejectionsKeepErrorShape(t *testing.T) {
	// Content-Type incorrecto.
	req := httptest.NewRequest("POST", "/v1/anything", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()

	var v map[string]any
	if ReadJSON(rec, req, &v) {
		t.Fatal("text/plain accepted")
	}
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("Content-Type = %q, want application/json", ct)
	}
	out := decodeErrorBody(t, rec)
	if out["success"] != false || out["error"] == "" {
		t.Fatalf("body = %v, want {success:false, error}", out)
	}

	// Body malformado.
	req = httptest.NewRequest("POST", "/v1/anything", strings.NewReader(`{"a":`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()

	if ReadJSON(rec, req, &v) {
		t.Fatal("malformed json accepted")
	}
	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	out = decodeErrorBody(t, rec)
	if out["success"] != false || out["error"] == "" {
		t.Fatalf("body = %v, want {success:false, error}", out)
	}
}

func TestReadJSON_AcceptsCharsetParameter(t *testing.T) {
	req := httptest.NewRequest("POST", "/v1/anything", strings.NewReader(`{"a":1}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()

	var v map[string]any
	if !ReadJSON(rec, req, &v) {
		t.Fatalf("rejected valid request: %s", rec.Body.String())
	}
	if v["a"] != float64(1) {
		t.Fatalf("decoded %v", v)
	}
}
