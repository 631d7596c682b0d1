package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gonkalabs/piisweep-go"
	"github.com/gonkalabs/piisweep-go/internal/sanitize"
	"github.com/gonkalabs/piisweep-go/internal/sanitize/piiclassifier"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeService stands in for the PII Sweep API. It records the last request
// body and answers with a fixed status and body.
type fakeService struct {
	status int
	body   string
	last   map[string]json.RawMessage
	auth   string
}

func (f *fakeService) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		f.last = nil
		_ = json.Unmarshal(b, &f.last)
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, f.body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newGateway(t *testing.T, f *fakeService, types []piisweep.PIIType, withRedact bool) *http.ServeMux {
	t.Helper()
	srv := f.start(t)
	client := piisweep.NewWithOptions(piisweep.Options{APIKey: "server-key", BaseURL: srv.URL})

	var san *sanitize.Sanitizer
	if withRedact {
		san = sanitize.New(testLogger(), piiclassifier.New(client, types...))
	}

	mux := http.NewServeMux()
	New(client, san, types, testLogger()).Register(mux)
	return mux
}

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

type errBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestHealth(t *testing.T) {
	mux := newGateway(t, &fakeService{status: http.StatusOK}, nil, false)

	rec := do(mux, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"status":"ok"}` {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestStrip_ForwardsAndRelaysResult(t *testing.T) {
	f := &fakeService{
		status: http.StatusOK,
		body:   `{"original_length":9,"stripped_length":9,"stripped_text":"Hej [NAME]","detections":[{"type":"name","original":"Anna","placeholder":"[NAME]"}],"processing_time_ms":2}`,
	}
	mux := newGateway(t, f, nil, false)

	rec := do(mux, http.MethodPost, "/v1/strip", `{"text":"Hej Anna","types":["name"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if f.auth != "Bearer server-key" {
		t.Errorf("authorization = %q", f.auth)
	}
	if string(f.last["types"]) != `["name"]` {
		t.Errorf("forwarded types = %s", f.last["types"])
	}

	var got piisweep.StripResult
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.StrippedText != "Hej [NAME]" || len(got.Detections) != 1 {
		t.Errorf("result = %+v", got)
	}
}

func TestDetect_UsesDefaultTypes(t *testing.T) {
	f := &fakeService{status: http.StatusOK, body: `{"original_length":3,"detections":[],"pii_found":false,"processing_time_ms":1}`}
	mux := newGateway(t, f, []piisweep.PIIType{piisweep.Email}, false)

	rec := do(mux, http.MethodPost, "/v1/detect", `{"text":"hej"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if string(f.last["types"]) != `["email"]` {
		t.Errorf("forwarded types = %s, want [\"email\"]", f.last["types"])
	}
}

func TestDetect_ExplicitEmptyTypesOverrideDefault(t *testing.T) {
	f := &fakeService{status: http.StatusOK, body: `{"original_length":3,"detections":[],"pii_found":false,"processing_time_ms":1}`}
	mux := newGateway(t, f, []piisweep.PIIType{piisweep.Email}, false)

	rec := do(mux, http.MethodPost, "/v1/detect", `{"text":"hej","types":[]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if string(f.last["types"]) != `[]` {
		t.Errorf("forwarded types = %s, want []", f.last["types"])
	}
}

func TestStrip_RelaysServiceError(t *testing.T) {
	f := &fakeService{status: http.StatusUnauthorized, body: `{"error":{"code":"INVALID_KEY","message":"bad key"}}`}
	mux := newGateway(t, f, nil, false)

	rec := do(mux, http.MethodPost, "/v1/strip", `{"text":"hej"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var got errBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error.Code != "INVALID_KEY" || got.Error.Message != "bad key" {
		t.Errorf("error = %+v", got.Error)
	}
}

func TestStrip_NonErrorUpstreamStatusIsBadGateway(t *testing.T) {
	f := &fakeService{status: http.StatusNotModified}
	mux := newGateway(t, f, nil, false)

	rec := do(mux, http.MethodPost, "/v1/strip", `{"text":"hej"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var got errBody
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Error.Code != piisweep.UnknownErrorCode || got.Error.Message != "Request failed with status 304" {
		t.Errorf("error = %+v", got.Error)
	}
}

func TestDetect_MalformedUpstreamIsBadGateway(t *testing.T) {
	f := &fakeService{status: http.StatusOK, body: "<html>"}
	mux := newGateway(t, f, nil, false)

	rec := do(mux, http.MethodPost, "/v1/detect", `{"text":"hej"}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var got errBody
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Error.Code != "UPSTREAM_ERROR" {
		t.Errorf("code = %q, want UPSTREAM_ERROR", got.Error.Code)
	}
}

func TestStrip_InvalidJSON(t *testing.T) {
	mux := newGateway(t, &fakeService{status: http.StatusOK}, nil, false)

	rec := do(mux, http.MethodPost, "/v1/strip", `{"text":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var got errBody
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Error.Code != "INVALID_REQUEST" {
		t.Errorf("code = %q, want INVALID_REQUEST", got.Error.Code)
	}
}

func TestStrip_MethodNotAllowed(t *testing.T) {
	mux := newGateway(t, &fakeService{status: http.StatusOK}, nil, false)

	rec := do(mux, http.MethodGet, "/v1/strip", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestRedact_Disabled(t *testing.T) {
	mux := newGateway(t, &fakeService{status: http.StatusOK}, nil, false)

	rec := do(mux, http.MethodPost, "/v1/redact", `{"text":"hej"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestRedact_ReplacesDetectedValues(t *testing.T) {
	f := &fakeService{
		status: http.StatusOK,
		body:   `{"original_length":26,"detections":[{"type":"email","original":"anna@example.se","placeholder":""}],"pii_found":true,"processing_time_ms":1}`,
	}
	mux := newGateway(t, f, nil, true)

	rec := do(mux, http.MethodPost, "/v1/redact", `{"text":"Skriv till anna@example.se"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var got redactResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if strings.Contains(got.Text, "anna@example.se") {
		t.Errorf("text still contains the email: %q", got.Text)
	}
	if len(got.Redactions) != 1 || got.Redactions[0].Original != "anna@example.se" {
		t.Fatalf("redactions = %+v", got.Redactions)
	}
	if got.Text != "Skriv till "+got.Redactions[0].Token {
		t.Errorf("text = %q", got.Text)
	}
}

func TestRedact_ServiceErrorRelayed(t *testing.T) {
	f := &fakeService{status: http.StatusPaymentRequired, body: `{"error":{"code":"QUOTA_EXCEEDED","message":"quota"}}`}
	mux := newGateway(t, f, nil, true)

	rec := do(mux, http.MethodPost, "/v1/redact", `{"text":"Anna"}`)
	if rec.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", rec.Code)
	}
	var got errBody
	_ = json.Unmarshal(rec.Body.Bytes(), &got)
	if got.Error.Code != "QUOTA_EXCEEDED" {
		t.Errorf("code = %q, want QUOTA_EXCEEDED", got.Error.Code)
	}
}
