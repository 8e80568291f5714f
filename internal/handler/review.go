package handler

import (
	"log/slog"
	"net/http"

	"inkwell/internal/diffreview"
	"inkwell/internal/httputil"
	"inkwell/internal/service"
)

// ReviewHandler handles chunked diff review HTTP requests
type ReviewHandler struct {
	reviews   *service.ReviewService
	documents *service.DocumentService
	logger    *slog.Logger
}

// NewReviewHandler creates a new review handler
func NewReviewHandler(reviews *service.ReviewService, documents *service.DocumentService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		reviews:   reviews,
		documents: documents,
		logger:    logger,
	}
}

// sessionJSON shapes a review session for responses
func sessionJSON(session *service.ReviewSession) map[string]interface{} {
	decided, accepted, total := session.Review.Progress()
	return map[string]interface{}{
		"id":       session.ID,
		"doc_id":   session.DocID,
		"hunks":    session.Review.Hunks,
		"decided":  decided,
		"accepted": accepted,
		"total":    total,
	}
}

// GetSession retrieves a review session with its hunks
// GET /api/reviews/{id}
func (h *ReviewHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.reviews.Get(r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessionJSON(session))
}

// SetHunkStatus marks one hunk accepted or rejected
// POST /api/reviews/{id}/hunks/{hunkID}
func (h *ReviewHandler) SetHunkStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status diffreview.HunkStatus `json:"status"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}

	session, err := h.reviews.SetStatus(r.PathValue("id"), httputil.GetUserID(r), r.PathValue("hunkID"), req.Status)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessionJSON(session))
}

// AcceptAll accepts every hunk of a session
// POST /api/reviews/{id}/accept-all
func (h *ReviewHandler) AcceptAll(w http.ResponseWriter, r *http.Request) {
	session, err := h.reviews.AcceptAll(r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessionJSON(session))
}

// RejectAll rejects every hunk of a session
// POST /api/reviews/{id}/reject-all
func (h *ReviewHandler) RejectAll(w http.ResponseWriter, r *http.Request) {
	session, err := h.reviews.RejectAll(r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, sessionJSON(session))
}

// Finalize writes the reconstructed text back to the document and
// discards the session
// POST /api/reviews/{id}/finalize
func (h *ReviewHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	doc, err := h.documents.FinalizeReview(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Discard drops a session without touching the document
// DELETE /api/reviews/{id}
func (h *ReviewHandler) Discard(w http.ResponseWriter, r *http.Request) {
	if _, err := h.reviews.Get(r.PathValue("id"), httputil.GetUserID(r)); err != nil {
		handleError(w, h.logger, err)
		return
	}
	h.reviews.Discard(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}
