package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"inkwell/internal/domain"
	"inkwell/internal/llm"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/workflow"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTemplates() *workflow.Store {
	store, err := workflow.Load("")
	if err != nil {
		panic(err)
	}
	return store
}

// fakeTxManager runs the function directly without a transaction
type fakeTxManager struct{}

func (fakeTxManager) ExecTx(ctx context.Context, fn repository.TxFn) error {
	return fn(ctx)
}

// fakeWaitRepo is an in-memory WaitAreaRepository
type fakeWaitRepo struct {
	mu     sync.Mutex
	states map[string][]models.StateRecord
	tables map[string][]models.TableRecord
}

func newFakeWaitRepo() *fakeWaitRepo {
	return &fakeWaitRepo{
		states: make(map[string][]models.StateRecord),
		tables: make(map[string][]models.TableRecord),
	}
}

func (r *fakeWaitRepo) ListStates(ctx context.Context, projectID string) ([]models.StateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.StateRecord{}, r.states[projectID]...), nil
}

func (r *fakeWaitRepo) ListTables(ctx context.Context, projectID string) ([]models.TableRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.TableRecord{}, r.tables[projectID]...), nil
}

func (r *fakeWaitRepo) GetState(ctx context.Context, projectID, id string) (*models.StateRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.states[projectID] {
		if r.states[projectID][i].ID == id {
			state := r.states[projectID][i]
			return &state, nil
		}
	}
	return nil, fmt.Errorf("state %s: %w", id, domain.ErrNotFound)
}

func (r *fakeWaitRepo) GetTable(ctx context.Context, projectID, id string) (*models.TableRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tables[projectID] {
		if r.tables[projectID][i].ID == id {
			table := r.tables[projectID][i]
			return &table, nil
		}
	}
	return nil, fmt.Errorf("table %s: %w", id, domain.ErrNotFound)
}

func (r *fakeWaitRepo) Apply(ctx context.Context, projectID string, actions []models.MergeAction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, action := range actions {
		switch action.Type {
		case models.ActionAddState:
			r.states[projectID] = append(r.states[projectID], *action.State)
		case models.ActionUpdateState:
			for i := range r.states[projectID] {
				if r.states[projectID][i].ID == action.State.ID {
					r.states[projectID][i] = *action.State
				}
			}
		case models.ActionAddTable:
			r.tables[projectID] = append(r.tables[projectID], *action.Table)
		case models.ActionUpdateTable:
			for i := range r.tables[projectID] {
				if r.tables[projectID][i].ID == action.Table.ID {
					r.tables[projectID][i] = *action.Table
				}
			}
		}
	}
	return nil
}

func (r *fakeWaitRepo) UpdateState(ctx context.Context, projectID string, state *models.StateRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.states[projectID] {
		if r.states[projectID][i].ID == state.ID {
			r.states[projectID][i] = *state
			return nil
		}
	}
	return fmt.Errorf("state %s: %w", state.ID, domain.ErrNotFound)
}

func (r *fakeWaitRepo) UpdateTable(ctx context.Context, projectID string, table *models.TableRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tables[projectID] {
		if r.tables[projectID][i].ID == table.ID {
			r.tables[projectID][i] = *table
			return nil
		}
	}
	return fmt.Errorf("table %s: %w", table.ID, domain.ErrNotFound)
}

func (r *fakeWaitRepo) DeleteState(ctx context.Context, projectID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.states[projectID] {
		if r.states[projectID][i].ID == id {
			r.states[projectID] = append(r.states[projectID][:i], r.states[projectID][i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("state %s: %w", id, domain.ErrNotFound)
}

func (r *fakeWaitRepo) DeleteTable(ctx context.Context, projectID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.tables[projectID] {
		if r.tables[projectID][i].ID == id {
			r.tables[projectID] = append(r.tables[projectID][:i], r.tables[projectID][i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("table %s: %w", id, domain.ErrNotFound)
}

// fakeProjectRepo is an in-memory ProjectRepository
type fakeProjectRepo struct {
	mu       sync.Mutex
	projects map[string]models.Project
	nextID   int
}

func newFakeProjectRepo() *fakeProjectRepo {
	return &fakeProjectRepo{projects: make(map[string]models.Project)}
}

func (r *fakeProjectRepo) Create(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	project.ID = fmt.Sprintf("proj-%d", r.nextID)
	r.projects[project.ID] = *project
	return nil
}

func (r *fakeProjectRepo) GetByID(ctx context.Context, id, userID string) (*models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	project, ok := r.projects[id]
	if !ok || project.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	return &project, nil
}

func (r *fakeProjectRepo) List(ctx context.Context, userID string) ([]models.Project, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	projects := []models.Project{}
	for _, p := range r.projects {
		if p.UserID == userID {
			projects = append(projects, p)
		}
	}
	return projects, nil
}

func (r *fakeProjectRepo) Update(ctx context.Context, project *models.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[project.ID]; !ok {
		return fmt.Errorf("project %s: %w", project.ID, domain.ErrNotFound)
	}
	r.projects[project.ID] = *project
	return nil
}

func (r *fakeProjectRepo) Delete(ctx context.Context, id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	delete(r.projects, id)
	return nil
}

// fakeDocRepo is an in-memory DocumentRepository
type fakeDocRepo struct {
	mu     sync.Mutex
	docs   map[string]models.Document
	nextID int
}

func newFakeDocRepo() *fakeDocRepo {
	return &fakeDocRepo{docs: make(map[string]models.Document)}
}

func (r *fakeDocRepo) Create(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	doc.ID = fmt.Sprintf("doc-%d", r.nextID)
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocRepo) GetByID(ctx context.Context, id string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	return &doc, nil
}

func (r *fakeDocRepo) GetByNode(ctx context.Context, projectID, nodeID string) (*models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, doc := range r.docs {
		if doc.ProjectID == projectID && doc.NodeID == nodeID {
			return &doc, nil
		}
	}
	return nil, fmt.Errorf("document for node %s: %w", nodeID, domain.ErrNotFound)
}

func (r *fakeDocRepo) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := []models.Document{}
	for _, doc := range r.docs {
		if doc.ProjectID == projectID {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func (r *fakeDocRepo) Update(ctx context.Context, doc *models.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[doc.ID]; !ok {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}
	r.docs[doc.ID] = *doc
	return nil
}

func (r *fakeDocRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	delete(r.docs, id)
	return nil
}

// stubProvider serves canned responses for any model
type stubProvider struct {
	chunks   []string
	complete string
	err      error
}

func (p *stubProvider) Name() string                { return "stub" }
func (p *stubProvider) SupportsModel(m string) bool { return true }

func (p *stubProvider) Complete(ctx context.Context, req *llm.Request) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.complete, nil
}

func (p *stubProvider) Stream(ctx context.Context, req *llm.Request) (<-chan llm.StreamEvent, error) {
	if p.err != nil {
		return nil, p.err
	}
	events := make(chan llm.StreamEvent, len(p.chunks)+1)
	for _, chunk := range p.chunks {
		events <- llm.StreamEvent{Text: chunk}
	}
	events <- llm.StreamEvent{Usage: &llm.Usage{Model: req.Model, OutputTokens: len(p.chunks), StopReason: "end_turn"}}
	close(events)
	return events, nil
}

func stubRegistry(p llm.Provider) *llm.Registry {
	return llm.NewRegistry(p.Name(), p)
}
