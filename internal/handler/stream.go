package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"inkwell/internal/handler/sse"
	"inkwell/internal/httputil"
	"inkwell/internal/service"
)

// StreamHandler serves document generation over SSE
type StreamHandler struct {
	documents *service.DocumentService
	sseConfig *sse.Config
	logger    *slog.Logger
}

// NewStreamHandler creates a new streaming handler
func NewStreamHandler(documents *service.DocumentService, sseConfig *sse.Config, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		documents: documents,
		sseConfig: sseConfig,
		logger:    logger,
	}
}

type generateRequest struct {
	UserInput   string `json:"user_input"`
	Instruction string `json:"instruction"`
	Model       string `json:"model"`
}

// Generate streams a fresh AI generation of the document
// POST /api/documents/{id}/generate
func (h *StreamHandler) Generate(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(req *generateRequest, id, userID string) (<-chan service.DocEvent, error) {
		return h.documents.Generate(r.Context(), id, userID, req.UserInput, req.Model)
	})
}

// FollowUp streams a follow-up edit and opens a review session
// POST /api/documents/{id}/followup
func (h *StreamHandler) FollowUp(w http.ResponseWriter, r *http.Request) {
	h.stream(w, r, func(req *generateRequest, id, userID string) (<-chan service.DocEvent, error) {
		return h.documents.FollowUp(r.Context(), id, userID, req.Instruction, req.Model)
	})
}

func (h *StreamHandler) stream(
	w http.ResponseWriter,
	r *http.Request,
	start func(req *generateRequest, id, userID string) (<-chan service.DocEvent, error),
) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	var req generateRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}

	events, err := start(&req, id, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.RespondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	keepAlive := sse.NewTickerKeepAlive(h.sseConfig.KeepAliveInterval)
	keepAlive.Start(sse.NewSSEKeepAliveWriter(w, flusher, id), h.logger)
	defer keepAlive.Stop()

	for ev := range events {
		switch {
		case ev.Err != nil:
			writeEvent(w, flusher, "error", map[string]string{"detail": ev.Err.Error()})
			return
		case ev.Document != nil:
			payload := map[string]interface{}{"document": ev.Document}
			if ev.Session != nil {
				payload["review"] = sessionJSON(ev.Session)
			}
			if ev.Usage != nil {
				payload["usage"] = map[string]interface{}{
					"model":         ev.Usage.Model,
					"input_tokens":  ev.Usage.InputTokens,
					"output_tokens": ev.Usage.OutputTokens,
					"stop_reason":   ev.Usage.StopReason,
				}
			}
			writeEvent(w, flusher, "done", payload)
		case ev.Text != "":
			writeEvent(w, flusher, "delta", map[string]string{"text": ev.Text})
		}
	}
}

// writeEvent emits one SSE event with a JSON payload
func writeEvent(w http.ResponseWriter, flusher http.Flusher, event string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}
