package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gonkalabs/piisweep-go"
	"github.com/gonkalabs/piisweep-go/internal/sanitize"
)

// Service is the part of *piisweep.Client the gateway forwards to.
type Service interface {
	Strip(ctx context.Context, text string, types ...piisweep.PIIType) (*piisweep.StripResult, error)
	Detect(ctx context.Context, text string, types ...piisweep.PIIType) (*piisweep.DetectResult, error)
}

// Handler implements all HTTP endpoints. It keeps the API key server-side
// so callers on the local network never see it.
type Handler struct {
	client    Service
	sanitizer *sanitize.Sanitizer // nil disables /v1/redact
	types     []piisweep.PIIType  // default filter when a request names none
	logger    *slog.Logger
}

// New creates a Handler.
func New(client Service, san *sanitize.Sanitizer, types []piisweep.PIIType, logger *slog.Logger) *Handler {
	return &Handler{
		client:    client,
		sanitizer: san,
		types:     types,
		logger:    logger.With("area", "api"),
	}
}

// Register mounts routes on the given mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /v1/strip", h.strip)
	mux.HandleFunc("POST /v1/detect", h.detect)
	mux.HandleFunc("POST /v1/redact", h.redact)
}

// textRequest is the body accepted by every endpoint. It mirrors the
// upstream request so existing clients can point at the gateway unchanged.
type textRequest struct {
	Text  string              `json:"text"`
	Types *[]piisweep.PIIType `json:"types"`
}

type redactResponse struct {
	Text       string               `json:"text"`
	Redactions []sanitize.Redaction `json:"redactions"`
}

// ---------- endpoints ----------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) strip(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.client.Strip(r.Context(), req.Text, h.typesFor(req)...)
	if err != nil {
		h.writeServiceErr(w, "strip", err)
		return
	}
	h.logger.Info("strip", "len", len(req.Text), "detections", len(res.Detections))
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) detect(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	res, err := h.client.Detect(r.Context(), req.Text, h.typesFor(req)...)
	if err != nil {
		h.writeServiceErr(w, "detect", err)
		return
	}
	h.logger.Info("detect", "len", len(req.Text), "pii_found", res.PIIFound)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) redact(w http.ResponseWriter, r *http.Request) {
	if h.sanitizer == nil {
		writeErr(w, http.StatusNotFound, "NOT_ENABLED", "redaction is not enabled")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	out, tm, err := h.sanitizer.Redact(r.Context(), req.Text)
	if err != nil {
		h.writeServiceErr(w, "redact", err)
		return
	}
	redactions := tm.Redactions()
	if redactions == nil {
		redactions = []sanitize.Redaction{}
	}
	h.logger.Info("redact", "len", len(req.Text), "redacted", tm.Count())
	writeJSON(w, http.StatusOK, redactResponse{Text: out, Redactions: redactions})
}

// ---------- helpers ----------

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (textRequest, bool) {
	defer r.Body.Close()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "INVALID_REQUEST", "failed to read body: "+err.Error())
		return textRequest{}, false
	}
	var req textRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON: "+err.Error())
		return textRequest{}, false
	}
	return req, true
}

// typesFor returns the request's filter, or the configured default when the
// request has no "types" key. An explicit [] is forwarded as-is.
func (h *Handler) typesFor(req textRequest) []piisweep.PIIType {
	if req.Types != nil {
		return *req.Types
	}
	return h.types
}

// writeServiceErr relays a service error with its original status and
// envelope. Statuses below 400 become 502 since some of them cannot carry a
// body. Anything else means the service could not be reached or answered
// garbage.
func (h *Handler) writeServiceErr(w http.ResponseWriter, op string, err error) {
	var apiErr *piisweep.Error
	if errors.As(err, &apiErr) {
		h.logger.Warn("service error", "op", op, "code", apiErr.Code, "status", apiErr.Status)
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		writeErr(w, status, apiErr.Code, apiErr.Message)
		return
	}
	h.logger.Error("upstream error", "op", op, "err", err)
	writeErr(w, http.StatusBadGateway, "UPSTREAM_ERROR", "upstream error: "+err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": msg},
	})
}
