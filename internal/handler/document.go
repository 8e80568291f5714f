package handler

import (
	"log/slog"
	"net/http"

	"inkwell/internal/httputil"
	"inkwell/internal/service"
)

// DocumentHandler handles document HTTP requests
type DocumentHandler struct {
	documents *service.DocumentService
	waitarea  *service.WaitAreaService
	logger    *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *service.DocumentService, waitarea *service.WaitAreaService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		documents: documents,
		waitarea:  waitarea,
		logger:    logger,
	}
}

// GetDocument retrieves a document by ID
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	doc, err := h.documents.GetDocument(r.Context(), id, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ListDocuments retrieves all documents of a project
// GET /api/projects/{id}/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	projectID := r.PathValue("id")

	docs, err := h.documents.ListDocuments(r.Context(), projectID, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// UpdateDocument applies a partial metadata update
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	var req service.UpdateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}

	doc, err := h.documents.UpdateDocument(r.Context(), id, userID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// SaveContent persists user-edited content as a manual version
// PUT /api/documents/{id}/content
func (h *DocumentHandler) SaveContent(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	var req struct {
		Content string `json:"content"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}

	doc, err := h.documents.SaveManual(r.Context(), id, userID, req.Content)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// SwitchVersion makes a historical snapshot the current content
// POST /api/documents/{id}/versions/{versionID}/switch
func (h *DocumentHandler) SwitchVersion(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")
	versionID := r.PathValue("versionID")

	doc, err := h.documents.SwitchVersion(r.Context(), id, userID, versionID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// Extract runs the extraction pipeline over the document's content
// POST /api/documents/{id}/extract
func (h *DocumentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	doc, err := h.documents.GetDocument(r.Context(), id, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	result, err := h.waitarea.ExtractFromDocument(r.Context(), doc.ProjectID, doc.ID, doc.Content)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// Inject pushes the project's waiting-area records into the document
// POST /api/documents/{id}/inject
func (h *DocumentHandler) Inject(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	result, err := h.documents.Inject(r.Context(), id, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}
