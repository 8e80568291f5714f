package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"inkwell/internal/models"
)

// DBTX is an interface that both *pgxpool.Pool and pgx.Tx implement.
// This allows repositories to work with both regular connections and
// transactions.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, arguments ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, arguments ...interface{}) pgx.Row
}

// txContextKey is the type for transaction context keys
type txContextKey string

const txKey txContextKey = "pgx_tx"

// SetTx stores a transaction in the context
func SetTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey, tx)
}

// GetTx retrieves a transaction from the context.
// Returns nil if no transaction is present.
func GetTx(ctx context.Context) pgx.Tx {
	tx, ok := ctx.Value(txKey).(pgx.Tx)
	if !ok {
		return nil
	}
	return tx
}

// TxFn is a function that runs within a transaction
type TxFn func(ctx context.Context) error

// TransactionManager handles database transactions
type TransactionManager interface {
	// ExecTx executes a function within a transaction
	ExecTx(ctx context.Context, fn TxFn) error
}

// ProjectRepository persists projects, scoped by owning user.
type ProjectRepository interface {
	Create(ctx context.Context, project *models.Project) error
	GetByID(ctx context.Context, id, userID string) (*models.Project, error)
	List(ctx context.Context, userID string) ([]models.Project, error)
	Update(ctx context.Context, project *models.Project) error
	Delete(ctx context.Context, id, userID string) error
}

// DocumentRepository persists step documents. Version history travels
// with the document row as JSONB.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	GetByNode(ctx context.Context, projectID, nodeID string) (*models.Document, error)
	ListByProject(ctx context.Context, projectID string) ([]models.Document, error)
	Update(ctx context.Context, doc *models.Document) error
	Delete(ctx context.Context, id string) error
}

// WaitAreaRepository persists waiting-area state and table records.
// Apply executes a batch of merge actions; callers wrap it in a
// transaction when atomicity across the batch matters.
type WaitAreaRepository interface {
	ListStates(ctx context.Context, projectID string) ([]models.StateRecord, error)
	ListTables(ctx context.Context, projectID string) ([]models.TableRecord, error)
	GetState(ctx context.Context, projectID, id string) (*models.StateRecord, error)
	GetTable(ctx context.Context, projectID, id string) (*models.TableRecord, error)
	Apply(ctx context.Context, projectID string, actions []models.MergeAction) error
	UpdateState(ctx context.Context, projectID string, state *models.StateRecord) error
	UpdateTable(ctx context.Context, projectID string, table *models.TableRecord) error
	DeleteState(ctx context.Context, projectID, id string) error
	DeleteTable(ctx context.Context, projectID, id string) error
}
