package models

import (
	"time"
)

// DocumentStatus tracks where a step document is in its lifecycle.
type DocumentStatus string

const (
	DocStatusPending     DocumentStatus = "pending"
	DocStatusGenerating  DocumentStatus = "generating"
	DocStatusCompleted   DocumentStatus = "completed"
	DocStatusConfirmed   DocumentStatus = "confirmed"
	DocStatusNeedsUpdate DocumentStatus = "needs_update"
)

// VersionSource records what produced a document snapshot.
type VersionSource string

const (
	VersionSourceAI     VersionSource = "ai"
	VersionSourceManual VersionSource = "manual"
)

// DocumentVersion is an immutable content snapshot. A document keeps
// the most recent N versions; older ones are dropped.
type DocumentVersion struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"created_at"`
	Source    VersionSource `json:"source"`
}

// Document is one workflow step's generated artifact.
// Invariant: once at least one version exists, Content equals
// Versions[CurrentVersion].Content.
type Document struct {
	ID             string            `json:"id"`
	ProjectID      string            `json:"project_id"`
	NodeID         string            `json:"node_id"`
	Name           string            `json:"name"`
	Content        string            `json:"content"`
	UserInput      string            `json:"user_input"`
	Status         DocumentStatus    `json:"status"`
	Versions       []DocumentVersion `json:"versions"`
	CurrentVersion int               `json:"current_version"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
