// Package server exposes the bridge's HTTP surface: a health probe and the
// single /say command route. Every response is a JSON envelope; per-request
// failures are contained here and never crash the process.
package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/nao-bridge/internal/core"
	"github.com/book-expert/nao-bridge/internal/textnorm"
)

// ServiceName identifies the bridge in the health envelope.
const ServiceName = "nao_bridge"

const (
	headerContentType = "Content-Type"
	headerRequestID   = "X-Request-Id"
	contentTypeJSON   = "application/json; charset=utf-8"

	routeHealth = "/health"
	routeSay    = "/say"
)

// Client-visible failure messages.
const (
	msgNotFound     = "not found"
	msgTextRequired = "text is required"
	msgTextEmpty    = "text is empty"
	msgTextNotText  = "text must be a string"
	msgServerError  = "server error"
)

// encodeErrorBody is written verbatim when the envelope itself cannot be
// serialized.
const encodeErrorBody = `{"ok":false,"msg":"encode error"}`

// emptyJSONObject stands in for a zero-length request body.
var emptyJSONObject = []byte("{}")

// Envelope is the JSON object shape of every bridge response.
type Envelope struct {
	OK      bool   `json:"ok"`
	Msg     string `json:"msg,omitempty"`
	Service string `json:"service,omitempty"`
}

// badRequestError marks a per-request validation failure whose reason is
// safe to echo to the caller as a 400. Every other error is reported as an
// opaque 500.
type badRequestError struct {
	reason string
}

func (e *badRequestError) Error() string {
	return e.reason
}

func badRequest(reason string) error {
	return &badRequestError{reason: reason}
}

// Handler is the stateless per-request handler bound to the process-wide
// backend handle.
type Handler struct {
	speaker    core.Speaker
	normalizer *textnorm.Normalizer
	log        *logger.Logger
}

// NewHandler binds the HTTP surface to the initialized backend handle and
// normalization pipeline.
func NewHandler(speaker core.Speaker, normalizer *textnorm.Normalizer, log *logger.Logger) *Handler {
	return &Handler{
		speaker:    speaker,
		normalizer: normalizer,
		log:        log,
	}
}

// ServeHTTP routes the two supported method/path pairs; everything else is
// a JSON 404 envelope.
func (h *Handler) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	requestID := uuid.NewString()
	writer.Header().Set(headerRequestID, requestID)

	switch {
	case request.Method == http.MethodGet && request.URL.Path == routeHealth:
		h.writeJSON(writer, http.StatusOK, Envelope{OK: true, Msg: "", Service: ServiceName})
	case request.Method == http.MethodPost && request.URL.Path == routeSay:
		h.handleSay(writer, request, requestID)
	default:
		h.writeJSON(writer, http.StatusNotFound, Envelope{OK: false, Msg: msgNotFound, Service: ""})
	}
}

// handleSay maps the say pipeline outcome onto the HTTP contract: nil is
// 200, a bad request is 400 with its reason, anything else is an opaque 500
// with the detail logged server-side only.
func (h *Handler) handleSay(writer http.ResponseWriter, request *http.Request, requestID string) {
	body, err := io.ReadAll(request.Body)
	if err == nil {
		err = h.processSay(body)
	}

	if err == nil {
		h.writeJSON(writer, http.StatusOK, Envelope{OK: true, Msg: "", Service: ""})

		return
	}

	var validation *badRequestError
	if errors.As(err, &validation) {
		h.log.Warn("say request %s rejected: %s", requestID, validation.reason)
		h.writeJSON(writer, http.StatusBadRequest, Envelope{OK: false, Msg: validation.reason, Service: ""})

		return
	}

	h.log.Error("say request %s failed: %v", requestID, err)
	h.writeJSON(writer, http.StatusInternalServerError, Envelope{OK: false, Msg: msgServerError, Service: ""})
}

// processSay validates and normalizes the request body, then performs
// exactly one blocking backend call. Validation failures are badRequest
// errors; backend failures propagate untouched.
func (h *Handler) processSay(body []byte) error {
	if len(body) == 0 {
		body = emptyJSONObject
	}

	var fields map[string]json.RawMessage

	err := json.Unmarshal(body, &fields)
	if err != nil {
		return badRequest(fmt.Sprintf("Invalid JSON body: %v", err))
	}

	raw, present := fields["text"]
	raw = bytes.TrimSpace(raw)

	if !present || bytes.Equal(raw, []byte("null")) {
		return badRequest(msgTextRequired)
	}

	if len(raw) < 2 || raw[0] != '"' {
		return badRequest(msgTextNotText)
	}

	// Unquote without the stdlib's UTF-8 sanitization so a legacy-encoded
	// byte payload reaches the normalizer intact.
	textBytes, err := unquoteJSONString(raw)
	if err != nil {
		return badRequest(fmt.Sprintf("Invalid JSON body: %v", err))
	}

	text := h.normalizer.Normalize(textBytes)
	if text == "" {
		return badRequest(msgTextEmpty)
	}

	return h.speaker.Say([]byte(text))
}

// writeJSON serializes the envelope; if that itself fails, a fixed fallback
// body is written with status 500.
func (h *Handler) writeJSON(writer http.ResponseWriter, status int, envelope Envelope) {
	body, err := json.Marshal(envelope)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(encodeErrorBody)
	}

	writer.Header().Set(headerContentType, contentTypeJSON)
	writer.WriteHeader(status)

	_, writeErr := writer.Write(body)
	if writeErr != nil {
		h.log.Warn("failed to write response body: %v", writeErr)
	}
}
