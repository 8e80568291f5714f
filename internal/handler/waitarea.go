package handler

import (
	"log/slog"
	"net/http"

	"inkwell/internal/ddl"
	"inkwell/internal/httputil"
	"inkwell/internal/models"
	"inkwell/internal/service"
)

// WaitAreaHandler handles waiting-area HTTP requests
type WaitAreaHandler struct {
	waitarea *service.WaitAreaService
	projects *service.ProjectService
	logger   *slog.Logger
}

// NewWaitAreaHandler creates a new waiting-area handler
func NewWaitAreaHandler(waitarea *service.WaitAreaService, projects *service.ProjectService, logger *slog.Logger) *WaitAreaHandler {
	return &WaitAreaHandler{
		waitarea: waitarea,
		projects: projects,
		logger:   logger,
	}
}

// checkProject verifies the project belongs to the user
func (h *WaitAreaHandler) checkProject(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	projectID := r.PathValue("id")

	if _, err := h.projects.GetProject(r.Context(), projectID, userID); err != nil {
		handleError(w, h.logger, err)
		return "", false
	}
	return projectID, true
}

// ListStates lists a project's state records
// GET /api/projects/{id}/states
func (h *WaitAreaHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.checkProject(w, r)
	if !ok {
		return
	}

	states, err := h.waitarea.ListStates(r.Context(), projectID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, states)
}

// ListTables lists a project's table records
// GET /api/projects/{id}/tables
func (h *WaitAreaHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.checkProject(w, r)
	if !ok {
		return
	}

	tables, err := h.waitarea.ListTables(r.Context(), projectID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tables)
}

// UpdateState applies a manual edit to a state record
// PUT /api/projects/{id}/states/{recordID}
func (h *WaitAreaHandler) UpdateState(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.checkProject(w, r)
	if !ok {
		return
	}

	var state models.StateRecord
	if err := httputil.ParseJSON(w, r, &state); err != nil {
		return
	}
	state.ID = r.PathValue("recordID")

	updated, err := h.waitarea.UpdateState(r.Context(), projectID, &state)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, updated)
}

// UpdateTable applies a manual edit to a table record
// PUT /api/projects/{id}/tables/{recordID}
func (h *WaitAreaHandler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.checkProject(w, r)
	if !ok {
		return
	}

	var table models.TableRecord
	if err := httputil.ParseJSON(w, r, &table); err != nil {
		return
	}
	table.ID = r.PathValue("recordID")

	updated, err := h.waitarea.UpdateTable(r.Context(), projectID, &table)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, updated)
}

// DeleteState removes a state record
// DELETE /api/projects/{id}/states/{recordID}
func (h *WaitAreaHandler) DeleteState(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.checkProject(w, r)
	if !ok {
		return
	}

	if err := h.waitarea.DeleteState(r.Context(), projectID, r.PathValue("recordID")); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteTable removes a table record
// DELETE /api/projects/{id}/tables/{recordID}
func (h *WaitAreaHandler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.checkProject(w, r)
	if !ok {
		return
	}

	if err := h.waitarea.DeleteTable(r.Context(), projectID, r.PathValue("recordID")); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ExportDDL renders a project's table records as CREATE TABLE SQL
// GET /api/projects/{id}/tables/ddl?dialect=postgresql&table={recordID}
func (h *WaitAreaHandler) ExportDDL(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.checkProject(w, r)
	if !ok {
		return
	}

	dialect, err := ddl.ParseDialect(r.URL.Query().Get("dialect"))
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var tables []models.TableRecord
	if tableID := r.URL.Query().Get("table"); tableID != "" {
		table, err := h.waitarea.GetTable(r.Context(), projectID, tableID)
		if err != nil {
			handleError(w, h.logger, err)
			return
		}
		tables = []models.TableRecord{*table}
	} else {
		tables, err = h.waitarea.ListTables(r.Context(), projectID)
		if err != nil {
			handleError(w, h.logger, err)
			return
		}
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"dialect": string(dialect),
		"sql":     ddl.GenerateAll(tables, dialect),
	})
}
