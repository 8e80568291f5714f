package models

import (
	"time"
)

// Project is one run of a workflow template: a set of step documents
// plus the shared waiting area accumulated across steps.
type Project struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Vision      string    `json:"vision"`
	TemplateID  string    `json:"template_id"`
	CurrentStep int       `json:"current_step"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateProjectRequest is the payload for creating a project.
type CreateProjectRequest struct {
	Name       string `json:"name"`
	Vision     string `json:"vision"`
	TemplateID string `json:"template_id"`
}

// UpdateProjectRequest is the payload for partial project updates.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Vision      *string `json:"vision,omitempty"`
	CurrentStep *int    `json:"current_step,omitempty"`
}
