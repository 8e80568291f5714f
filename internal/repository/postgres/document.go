package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"inkwell/internal/domain"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

// PostgresDocumentRepository implements the DocumentRepository
// interface. Version history is stored inline as JSONB so a document
// and its snapshots always move together.
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *RepositoryConfig) repository.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const documentColumns = "id, project_id, node_id, name, content, user_input, status, versions, current_version, created_at, updated_at"

// Create creates a new document
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	versions, err := marshalVersions(doc.Versions)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (project_id, node_id, name, content, user_input, status, versions, current_version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	err = executor.QueryRow(ctx, query,
		doc.ProjectID,
		doc.NodeID,
		doc.Name,
		doc.Content,
		doc.UserInput,
		doc.Status,
		versions,
		doc.CurrentVersion,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("document for node '%s' already exists: %w", doc.NodeID, domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("project %s: %w", doc.ProjectID, domain.ErrNotFound)
		}
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

// GetByID retrieves a document by ID
func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE id = $1
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, id))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// GetByNode retrieves the document attached to a workflow node
func (r *PostgresDocumentRepository) GetByNode(ctx context.Context, projectID, nodeID string) (*models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE project_id = $1 AND node_id = $2
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	doc, err := scanDocument(executor.QueryRow(ctx, query, projectID, nodeID))
	if err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("document for node %s: %w", nodeID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document by node: %w", err)
	}
	return doc, nil
}

// ListByProject retrieves all documents of a project ordered by node_id
func (r *PostgresDocumentRepository) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s WHERE project_id = $1 ORDER BY node_id ASC
	`, documentColumns, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, *doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	if docs == nil {
		docs = []models.Document{}
	}

	return docs, nil
}

// Update persists content, status, version history and user input
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	versions, err := marshalVersions(doc.Versions)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET content = $1, user_input = $2, status = $3, versions = $4, current_version = $5, updated_at = $6
		WHERE id = $7
	`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		doc.Content,
		doc.UserInput,
		doc.Status,
		versions,
		doc.CurrentVersion,
		doc.UpdatedAt,
		doc.ID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a document
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Documents)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// rowScanner covers pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*models.Document, error) {
	var doc models.Document
	var versions []byte
	err := row.Scan(
		&doc.ID,
		&doc.ProjectID,
		&doc.NodeID,
		&doc.Name,
		&doc.Content,
		&doc.UserInput,
		&doc.Status,
		&versions,
		&doc.CurrentVersion,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(versions) > 0 {
		if err := json.Unmarshal(versions, &doc.Versions); err != nil {
			return nil, fmt.Errorf("decode document versions: %w", err)
		}
	}
	if doc.Versions == nil {
		doc.Versions = []models.DocumentVersion{}
	}

	return &doc, nil
}

func marshalVersions(versions []models.DocumentVersion) ([]byte, error) {
	if versions == nil {
		versions = []models.DocumentVersion{}
	}
	data, err := json.Marshal(versions)
	if err != nil {
		return nil, fmt.Errorf("encode document versions: %w", err)
	}
	return data, nil
}
