package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shantamg/meet-without-fear-sub002/internal/store"
)

func newTestHandler() (http.Handler, *memStore, *fakeReasoner, *fakeNotifier) {
	svc, ms, fr, fn := newTestService()
	return NewHTTPServer(svc, "*"), ms, fr, fn
}

func doRequest(handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("x-mwf-service-token", token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	handler, _, _, _ := newTestHandler()
	rec := doRequest(handler, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %+v", body)
	}
	if rec.Header().Get("x-request-id") == "" {
		t.Fatal("missing x-request-id header")
	}
}

func TestReadyEndpoint(t *testing.T) {
	handler, _, _, _ := newTestHandler()
	rec := doRequest(handler, http.MethodGet, "/api/ready", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler, _, _, _ := newTestHandler()
	rec := doRequest(handler, http.MethodOptions, "/api/sessions/s1/empathy", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("allow-origin = %q", rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestServiceTokenGuard(t *testing.T) {
	handler, _, _, _ := newTestHandler()

	rec := doRequest(handler, http.MethodGet, "/api/sessions/s1/reconciler/status", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", rec.Code)
	}

	rec = doRequest(handler, http.MethodGet, "/api/sessions/s1/reconciler/status", "wrong", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status with bad token = %d, want 401", rec.Code)
	}

	rec = doRequest(handler, http.MethodGet, "/api/sessions/s1/reconciler/status", "test-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", rec.Code)
	}
}

func TestUnknownRoute(t *testing.T) {
	handler, _, _, _ := newTestHandler()
	rec := doRequest(handler, http.MethodGet, "/api/sessions/s1/unknown", "test-token", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSubmitEmpathyEndpoint(t *testing.T) {
	handler, ms, _, _ := newTestHandler()

	rec := doRequest(handler, http.MethodPost, "/api/sessions/s1/empathy", "test-token",
		`{"userId":"alice","partnerId":"bob","displayName":"Alice","content":"I think you felt unseen."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != store.AttemptHeld {
		t.Fatalf("body = %+v, want status %s", body, store.AttemptHeld)
	}
	if len(ms.attempts) != 1 {
		t.Fatalf("attempts stored = %d, want 1", len(ms.attempts))
	}
}

func TestSubmitEmpathyEndpointValidation(t *testing.T) {
	handler, _, _, _ := newTestHandler()

	rec := doRequest(handler, http.MethodPost, "/api/sessions/s1/empathy", "test-token",
		`{"userId":"alice","partnerId":"bob","content":""}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	rec = doRequest(handler, http.MethodPost, "/api/sessions/s1/empathy", "test-token", `not json`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestShareSuggestionEndpoint(t *testing.T) {
	handler, _, _, _ := newTestHandler()

	rec := doRequest(handler, http.MethodGet, "/api/sessions/s1/share-suggestion", "test-token", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status without userId = %d, want 422", rec.Code)
	}

	rec = doRequest(handler, http.MethodGet, "/api/sessions/s1/share-suggestion?userId=bob", "test-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["hasSuggestion"] != false {
		t.Fatalf("body = %+v, want hasSuggestion=false", body)
	}
}
