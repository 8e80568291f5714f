package config

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxProjectNameLength = 255

	// MaxDocumentNameLength is the maximum length for document names.
	// Same bound as project names for consistency.
	MaxDocumentNameLength = 255

	// MaxRecordNameLength is the maximum length for waiting-area state
	// and table names. Extraction already caps tokens well below this;
	// the limit guards manual edits.
	MaxRecordNameLength = 255

	// MaxDocumentVersions is how many content snapshots a document
	// keeps. Older versions are dropped oldest-first.
	MaxDocumentVersions = 20

	// MaxUserInputLength bounds the per-step user supplement passed
	// into generation prompts.
	MaxUserInputLength = 10000
)
