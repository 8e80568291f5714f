package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"inkwell/internal/config"
	"inkwell/internal/domain"
	"inkwell/internal/extract"
	"inkwell/internal/llm"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/waitarea"
)

// llmPassTimeout bounds the detached extraction call so an abandoned
// provider request cannot leak the goroutine forever.
const llmPassTimeout = 2 * time.Minute

// WaitAreaService orchestrates the two-pass extraction pipeline and
// manual waiting-area edits. All merge applications go through a
// single mutex: the regex pass, the asynchronous LLM pass and manual
// edits never interleave their read-merge-write cycles.
type WaitAreaService struct {
	waitRepo  repository.WaitAreaRepository
	txManager repository.TransactionManager
	registry  *llm.Registry
	model     string
	logger    *slog.Logger

	mu sync.Mutex
	// background tracks detached LLM passes so tests and shutdown can
	// wait for them.
	background sync.WaitGroup
}

// NewWaitAreaService creates a new waiting-area service
func NewWaitAreaService(
	waitRepo repository.WaitAreaRepository,
	txManager repository.TransactionManager,
	registry *llm.Registry,
	model string,
	logger *slog.Logger,
) *WaitAreaService {
	return &WaitAreaService{
		waitRepo:  waitRepo,
		txManager: txManager,
		registry:  registry,
		model:     model,
		logger:    logger,
	}
}

// ExtractFromDocument runs the regex pass synchronously and returns
// its merge result, then launches the LLM pass in the background. The
// LLM pass re-reads the waiting area when its response arrives and is
// additive only: it supplements names the regex pass (or the user)
// has not produced, never rewrites existing records. Its failures are
// logged and swallowed.
func (s *WaitAreaService) ExtractFromDocument(ctx context.Context, projectID, docID, content string) (*models.MergeResult, error) {
	states := extract.States(content)
	tables := extract.Tables(content)

	result, err := s.mergeAndApply(ctx, projectID, docID, states, tables, false)
	if err != nil {
		return nil, err
	}

	s.logger.Info("regex extraction applied",
		"project_id", projectID,
		"doc_id", docID,
		"summary", result.Summary(),
	)

	s.background.Add(1)
	go s.runLLMPass(projectID, docID, content)

	return result, nil
}

// Wait blocks until all background LLM passes have finished.
func (s *WaitAreaService) Wait() {
	s.background.Wait()
}

func (s *WaitAreaService) runLLMPass(projectID, docID, content string) {
	defer s.background.Done()

	ctx, cancel := context.WithTimeout(context.Background(), llmPassTimeout)
	defer cancel()

	provider, err := s.registry.ForModel(s.model)
	if err != nil {
		s.logger.Warn("llm extraction skipped", "project_id", projectID, "error", err)
		return
	}

	raw, err := provider.Complete(ctx, &llm.Request{
		Model:  s.model,
		Prompt: extract.BuildExtractionPrompt(content),
	})
	if err != nil {
		s.logger.Warn("llm extraction failed", "project_id", projectID, "doc_id", docID, "error", err)
		return
	}

	states, tables := extract.ParseExtractionResponse(raw)
	if len(states) == 0 && len(tables) == 0 {
		s.logger.Debug("llm extraction found nothing", "project_id", projectID, "doc_id", docID)
		return
	}

	result, err := s.mergeAndApply(ctx, projectID, docID, states, tables, true)
	if err != nil {
		s.logger.Warn("llm extraction merge failed", "project_id", projectID, "doc_id", docID, "error", err)
		return
	}

	s.logger.Info("llm extraction applied",
		"project_id", projectID,
		"doc_id", docID,
		"summary", result.Summary(),
	)
}

// mergeAndApply is the single writer to the waiting area. It reads the
// current records, computes merge actions against them and applies the
// batch in one transaction, all under the mutex. In additive mode the
// LLM pass may only introduce names the collection does not have yet:
// candidates whose name already exists are dropped, and the survivors
// merge against an empty collection so they can never update or rename
// an existing record.
func (s *WaitAreaService) mergeAndApply(ctx context.Context, projectID, docID string, states []models.CandidateState, tables []models.CandidateTable, additive bool) (*models.MergeResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existingStates, err := s.waitRepo.ListStates(ctx, projectID)
	if err != nil {
		return nil, err
	}
	existingTables, err := s.waitRepo.ListTables(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var result models.MergeResult
	if additive {
		states = unseenStates(existingStates, states)
		tables = unseenTables(existingTables, tables)
		result = waitarea.Merge(nil, nil, states, tables, docID)
	} else {
		result = waitarea.Merge(existingStates, existingTables, states, tables, docID)
	}
	if len(result.Actions) == 0 {
		return &result, nil
	}

	err = s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		return s.waitRepo.Apply(txCtx, projectID, result.Actions)
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

func unseenStates(existing []models.StateRecord, candidates []models.CandidateState) []models.CandidateState {
	known := make(map[string]bool, len(existing))
	for i := range existing {
		known[existing[i].Name] = true
	}
	out := candidates[:0]
	for _, cand := range candidates {
		if !known[cand.Name] {
			out = append(out, cand)
		}
	}
	return out
}

func unseenTables(existing []models.TableRecord, candidates []models.CandidateTable) []models.CandidateTable {
	known := make(map[string]bool, len(existing))
	for i := range existing {
		known[existing[i].Name] = true
	}
	out := candidates[:0]
	for _, cand := range candidates {
		if !known[cand.Name] {
			out = append(out, cand)
		}
	}
	return out
}

// ListStates returns all state records of a project
func (s *WaitAreaService) ListStates(ctx context.Context, projectID string) ([]models.StateRecord, error) {
	return s.waitRepo.ListStates(ctx, projectID)
}

// ListTables returns all table records of a project
func (s *WaitAreaService) ListTables(ctx context.Context, projectID string) ([]models.TableRecord, error) {
	return s.waitRepo.ListTables(ctx, projectID)
}

// GetTable returns one table record
func (s *WaitAreaService) GetTable(ctx context.Context, projectID, id string) (*models.TableRecord, error) {
	return s.waitRepo.GetTable(ctx, projectID, id)
}

// UpdateState applies a manual edit to a state record
func (s *WaitAreaService) UpdateState(ctx context.Context, projectID string, state *models.StateRecord) (*models.StateRecord, error) {
	if err := validateStateRecord(state); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.waitRepo.UpdateState(ctx, projectID, state); err != nil {
		return nil, err
	}

	s.logger.Info("state updated", "project_id", projectID, "id", state.ID, "name", state.Name)
	return state, nil
}

// UpdateTable applies a manual edit to a table record
func (s *WaitAreaService) UpdateTable(ctx context.Context, projectID string, table *models.TableRecord) (*models.TableRecord, error) {
	if err := validateTableRecord(table); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	for i := range table.Fields {
		table.Fields[i].Type = models.NormalizeFieldType(string(table.Fields[i].Type))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.waitRepo.UpdateTable(ctx, projectID, table); err != nil {
		return nil, err
	}

	s.logger.Info("table updated", "project_id", projectID, "id", table.ID, "name", table.Name)
	return table, nil
}

// DeleteState removes a state record
func (s *WaitAreaService) DeleteState(ctx context.Context, projectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.waitRepo.DeleteState(ctx, projectID, id); err != nil {
		return err
	}

	s.logger.Info("state deleted", "project_id", projectID, "id", id)
	return nil
}

// DeleteTable removes a table record
func (s *WaitAreaService) DeleteTable(ctx context.Context, projectID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.waitRepo.DeleteTable(ctx, projectID, id); err != nil {
		return err
	}

	s.logger.Info("table deleted", "project_id", projectID, "id", id)
	return nil
}

func validateStateRecord(state *models.StateRecord) error {
	return validation.ValidateStruct(state,
		validation.Field(&state.ID, validation.Required),
		validation.Field(&state.Name,
			validation.Required,
			validation.Length(1, config.MaxRecordNameLength),
		),
	)
}

func validateTableRecord(table *models.TableRecord) error {
	return validation.ValidateStruct(table,
		validation.Field(&table.ID, validation.Required),
		validation.Field(&table.Name,
			validation.Required,
			validation.Length(1, config.MaxRecordNameLength),
		),
	)
}
