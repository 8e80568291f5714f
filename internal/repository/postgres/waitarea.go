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

// PostgresWaitAreaRepository implements the WaitAreaRepository
// interface. Records are stored as JSONB with the name duplicated in
// its own column so the per-project uniqueness the merge engine
// assumes is also enforced by the database.
type PostgresWaitAreaRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewWaitAreaRepository creates a new waiting-area repository
func NewWaitAreaRepository(config *RepositoryConfig) repository.WaitAreaRepository {
	return &PostgresWaitAreaRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// ListStates retrieves all state records of a project ordered by creation time
func (r *PostgresWaitAreaRepository) ListStates(ctx context.Context, projectID string) ([]models.StateRecord, error) {
	query := fmt.Sprintf(`
		SELECT record FROM %s WHERE project_id = $1 ORDER BY created_at ASC
	`, r.tables.WaitStates)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	defer rows.Close()

	states := []models.StateRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		var state models.StateRecord
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, fmt.Errorf("decode state: %w", err)
		}
		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate states: %w", err)
	}

	return states, nil
}

// ListTables retrieves all table records of a project ordered by creation time
func (r *PostgresWaitAreaRepository) ListTables(ctx context.Context, projectID string) ([]models.TableRecord, error) {
	query := fmt.Sprintf(`
		SELECT record FROM %s WHERE project_id = $1 ORDER BY created_at ASC
	`, r.tables.WaitTables)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	tables := []models.TableRecord{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		var table models.TableRecord
		if err := json.Unmarshal(data, &table); err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		tables = append(tables, table)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

// GetState retrieves one state record by ID
func (r *PostgresWaitAreaRepository) GetState(ctx context.Context, projectID, id string) (*models.StateRecord, error) {
	query := fmt.Sprintf(`
		SELECT record FROM %s WHERE project_id = $1 AND id = $2
	`, r.tables.WaitStates)

	executor := GetExecutor(ctx, r.pool)
	var data []byte
	if err := executor.QueryRow(ctx, query, projectID, id).Scan(&data); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("state %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get state: %w", err)
	}

	var state models.StateRecord
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &state, nil
}

// GetTable retrieves one table record by ID
func (r *PostgresWaitAreaRepository) GetTable(ctx context.Context, projectID, id string) (*models.TableRecord, error) {
	query := fmt.Sprintf(`
		SELECT record FROM %s WHERE project_id = $1 AND id = $2
	`, r.tables.WaitTables)

	executor := GetExecutor(ctx, r.pool)
	var data []byte
	if err := executor.QueryRow(ctx, query, projectID, id).Scan(&data); err != nil {
		if isPgNoRowsError(err) {
			return nil, fmt.Errorf("table %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get table: %w", err)
	}

	var table models.TableRecord
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode table: %w", err)
	}
	return &table, nil
}

// Apply executes a batch of merge actions in order. Adds insert a new
// row; updates overwrite the record JSONB of the row with the same ID.
// Run it through TransactionManager.ExecTx when the batch must land
// atomically.
func (r *PostgresWaitAreaRepository) Apply(ctx context.Context, projectID string, actions []models.MergeAction) error {
	for _, action := range actions {
		var err error
		switch action.Type {
		case models.ActionAddState:
			err = r.insertState(ctx, projectID, action.State)
		case models.ActionUpdateState:
			err = r.UpdateState(ctx, projectID, action.State)
		case models.ActionAddTable:
			err = r.insertTable(ctx, projectID, action.Table)
		case models.ActionUpdateTable:
			err = r.UpdateTable(ctx, projectID, action.Table)
		default:
			err = fmt.Errorf("unknown merge action type %q", action.Type)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresWaitAreaRepository) insertState(ctx context.Context, projectID string, state *models.StateRecord) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, name, record)
		VALUES ($1, $2, $3, $4)
	`, r.tables.WaitStates)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, state.ID, projectID, state.Name, data); err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("state '%s' already exists: %w", state.Name, domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert state: %w", err)
	}
	return nil
}

func (r *PostgresWaitAreaRepository) insertTable(ctx context.Context, projectID string, table *models.TableRecord) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, project_id, name, record)
		VALUES ($1, $2, $3, $4)
	`, r.tables.WaitTables)

	executor := GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, table.ID, projectID, table.Name, data); err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("table '%s' already exists: %w", table.Name, domain.ErrConflict)
		}
		if isPgForeignKeyError(err) {
			return fmt.Errorf("project %s: %w", projectID, domain.ErrNotFound)
		}
		return fmt.Errorf("insert table: %w", err)
	}
	return nil
}

// UpdateState overwrites a state record, including renames
func (r *PostgresWaitAreaRepository) UpdateState(ctx context.Context, projectID string, state *models.StateRecord) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, record = $2, updated_at = NOW()
		WHERE project_id = $3 AND id = $4
	`, r.tables.WaitStates)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, state.Name, data, projectID, state.ID)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("state '%s' already exists: %w", state.Name, domain.ErrConflict)
		}
		return fmt.Errorf("update state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("state %s: %w", state.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateTable overwrites a table record, including renames
func (r *PostgresWaitAreaRepository) UpdateTable(ctx context.Context, projectID string, table *models.TableRecord) error {
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("encode table: %w", err)
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, record = $2, updated_at = NOW()
		WHERE project_id = $3 AND id = $4
	`, r.tables.WaitTables)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, table.Name, data, projectID, table.ID)
	if err != nil {
		if isPgDuplicateError(err) {
			return fmt.Errorf("table '%s' already exists: %w", table.Name, domain.ErrConflict)
		}
		return fmt.Errorf("update table: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("table %s: %w", table.ID, domain.ErrNotFound)
	}
	return nil
}

// DeleteState removes a state record
func (r *PostgresWaitAreaRepository) DeleteState(ctx context.Context, projectID, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1 AND id = $2`, r.tables.WaitStates)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, projectID, id)
	if err != nil {
		return fmt.Errorf("delete state: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("state %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// DeleteTable removes a table record
func (r *PostgresWaitAreaRepository) DeleteTable(ctx context.Context, projectID, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE project_id = $1 AND id = $2`, r.tables.WaitTables)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, projectID, id)
	if err != nil {
		return fmt.Errorf("delete table: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("table %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
