package handler

import (
	"log/slog"
	"net/http"

	"inkwell/internal/httputil"
	"inkwell/internal/models"
	"inkwell/internal/service"
	"inkwell/internal/workflow"
)

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	projects  *service.ProjectService
	templates *workflow.Store
	logger    *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects *service.ProjectService, templates *workflow.Store, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects:  projects,
		templates: templates,
		logger:    logger,
	}
}

// ListProjects retrieves all projects for the user
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	projects, err := h.projects.ListProjects(r.Context(), userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a new project from a workflow template
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)

	var req models.CreateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}

	project, err := h.projects.CreateProject(r.Context(), userID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// GetProject retrieves a project by ID
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	project, err := h.projects.GetProject(r.Context(), id, userID)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// UpdateProject applies a partial update
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	var req models.UpdateProjectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		return
	}

	project, err := h.projects.UpdateProject(r.Context(), id, userID, &req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// DeleteProject deletes a project
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	userID := httputil.GetUserID(r)
	id := r.PathValue("id")

	if err := h.projects.DeleteProject(r.Context(), id, userID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTemplates lists the available workflow templates
// GET /api/templates
func (h *ProjectHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, h.templates.List())
}

// GetTemplate retrieves one workflow template
// GET /api/templates/{id}
func (h *ProjectHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tmpl, ok := h.templates.Get(r.PathValue("id"))
	if !ok {
		httputil.RespondError(w, http.StatusNotFound, "template not found")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, tmpl)
}
