package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"inkwell/internal/config"
	"inkwell/internal/domain"
	"inkwell/internal/httputil"
	"inkwell/internal/inject"
	"inkwell/internal/llm"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/workflow"
)

// persistTimeout bounds the write that lands a finished generation.
// The request context may already be cancelled at that point (client
// abort keeps the done-so-far text), so persistence runs on its own
// context.
const persistTimeout = 30 * time.Second

// DocEvent is one item on a document generation stream. Text deltas
// arrive first; the final event carries the persisted document and,
// for follow-up edits, the opened review session.
type DocEvent struct {
	Text     string
	Usage    *llm.Usage
	Document *models.Document
	Session  *ReviewSession
	Err      error
}

// UpdateDocumentRequest is the payload for partial document updates.
// UserInput distinguishes absent from null: null clears the input.
type UpdateDocumentRequest struct {
	Name      *string                 `json:"name,omitempty"`
	UserInput httputil.OptionalString `json:"user_input,omitempty"`
}

// InjectResult is the outcome of pushing waiting-area records into a
// document. When nothing matched, Prompt carries the assisted-merge
// prompt the client can send to a model instead.
type InjectResult struct {
	Document           *models.Document `json:"document,omitempty"`
	Matched            int              `json:"matched"`
	NeedsAssistedMerge bool             `json:"needs_assisted_merge"`
	Prompt             string           `json:"prompt,omitempty"`
}

// DocumentService manages step documents: generation, follow-up edits,
// manual saves, version history and waiting-area injection.
type DocumentService struct {
	projectRepo repository.ProjectRepository
	docRepo     repository.DocumentRepository
	waitSvc     *WaitAreaService
	reviews     *ReviewService
	registry    *llm.Registry
	templates   *workflow.Store
	model       string
	logger      *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	projectRepo repository.ProjectRepository,
	docRepo repository.DocumentRepository,
	waitSvc *WaitAreaService,
	reviews *ReviewService,
	registry *llm.Registry,
	templates *workflow.Store,
	model string,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		projectRepo: projectRepo,
		docRepo:     docRepo,
		waitSvc:     waitSvc,
		reviews:     reviews,
		registry:    registry,
		templates:   templates,
		model:       model,
		logger:      logger,
	}
}

// GetDocument retrieves a document, checking project ownership
func (s *DocumentService) GetDocument(ctx context.Context, id, userID string) (*models.Document, error) {
	doc, err := s.docRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.projectRepo.GetByID(ctx, doc.ProjectID, userID); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments retrieves all documents of a project
func (s *DocumentService) ListDocuments(ctx context.Context, projectID, userID string) ([]models.Document, error) {
	if _, err := s.projectRepo.GetByID(ctx, projectID, userID); err != nil {
		return nil, err
	}
	return s.docRepo.ListByProject(ctx, projectID)
}

// UpdateDocument applies a partial metadata update
func (s *DocumentService) UpdateDocument(ctx context.Context, id, userID string, req *UpdateDocumentRequest) (*models.Document, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxDocumentNameLength),
		),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	doc, err := s.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		doc.Name = strings.TrimSpace(*req.Name)
	}
	if req.UserInput.Present {
		if req.UserInput.Value == nil {
			doc.UserInput = ""
		} else {
			if len(*req.UserInput.Value) > config.MaxUserInputLength {
				return nil, fmt.Errorf("%w: user_input exceeds %d characters", domain.ErrValidation, config.MaxUserInputLength)
			}
			doc.UserInput = *req.UserInput.Value
		}
	}
	doc.UpdatedAt = time.Now()

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Generate streams a fresh AI generation of the document. The returned
// channel yields text deltas and closes after the final event. If the
// caller cancels ctx mid-stream, the text received so far is kept and
// persisted.
func (s *DocumentService) Generate(ctx context.Context, id, userID, userInput, model string) (<-chan DocEvent, error) {
	doc, err := s.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if doc.Status == models.DocStatusGenerating {
		return nil, &domain.ConflictError{
			Message:      "document is already generating",
			ResourceType: "document",
			ResourceID:   doc.ID,
		}
	}

	project, err := s.projectRepo.GetByID(ctx, doc.ProjectID, userID)
	if err != nil {
		return nil, err
	}

	if userInput != "" {
		if len(userInput) > config.MaxUserInputLength {
			return nil, fmt.Errorf("%w: user_input exceeds %d characters", domain.ErrValidation, config.MaxUserInputLength)
		}
		doc.UserInput = userInput
	}

	prompt, err := s.buildGenerationPrompt(ctx, project, doc)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = s.model
	}
	provider, err := s.registry.ForModel(model)
	if err != nil {
		return nil, err
	}

	doc.Status = models.DocStatusGenerating
	doc.UpdatedAt = time.Now()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	events, err := provider.Stream(ctx, &llm.Request{Model: model, Prompt: prompt})
	if err != nil {
		s.markFailed(doc)
		return nil, err
	}

	out := make(chan DocEvent, 10)
	go func() {
		defer close(out)

		text, usage, streamErr := s.relay(ctx, events, out)
		if streamErr != nil && text == "" {
			s.markFailed(doc)
			out <- DocEvent{Err: streamErr}
			return
		}

		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		doc.Content = text
		doc.Status = models.DocStatusCompleted
		appendVersion(doc, text, models.VersionSourceAI)
		doc.UpdatedAt = time.Now()
		if err := s.docRepo.Update(pctx, doc); err != nil {
			out <- DocEvent{Err: err}
			return
		}

		s.logger.Info("document generated",
			"doc_id", doc.ID,
			"node_id", doc.NodeID,
			"chars", len(text),
			"model", model,
		)

		if s.nodeSyncsAutomatically(project.TemplateID, doc.NodeID) {
			if _, err := s.waitSvc.ExtractFromDocument(pctx, doc.ProjectID, doc.ID, text); err != nil {
				s.logger.Warn("extraction after generation failed", "doc_id", doc.ID, "error", err)
			}
		}

		out <- DocEvent{Usage: usage, Document: doc}
	}()

	return out, nil
}

// FollowUp streams a follow-up edit of the document and opens a review
// session comparing the current content with the candidate text. The
// document itself is not modified until the review is finalized.
func (s *DocumentService) FollowUp(ctx context.Context, id, userID, instruction, model string) (<-chan DocEvent, error) {
	if strings.TrimSpace(instruction) == "" {
		return nil, fmt.Errorf("%w: instruction is required", domain.ErrValidation)
	}

	doc, err := s.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if doc.Content == "" {
		return nil, fmt.Errorf("%w: document has no content to edit", domain.ErrValidation)
	}

	prompt := llm.BuildFollowUpPrompt(doc.Content, instruction)

	if model == "" {
		model = s.model
	}
	provider, err := s.registry.ForModel(model)
	if err != nil {
		return nil, err
	}

	events, err := provider.Stream(ctx, &llm.Request{Model: model, Prompt: prompt})
	if err != nil {
		return nil, err
	}

	out := make(chan DocEvent, 10)
	go func() {
		defer close(out)

		text, usage, streamErr := s.relay(ctx, events, out)
		if streamErr != nil && text == "" {
			out <- DocEvent{Err: streamErr}
			return
		}

		session := s.reviews.Open(doc.ID, userID, doc.Content, text)
		out <- DocEvent{Usage: usage, Document: doc, Session: session}
	}()

	return out, nil
}

// relay forwards provider events to out while accumulating the text.
// A cancellation mid-stream is not an error: the done-so-far text is
// returned for persistence.
func (s *DocumentService) relay(ctx context.Context, events <-chan llm.StreamEvent, out chan<- DocEvent) (string, *llm.Usage, error) {
	var b strings.Builder
	var usage *llm.Usage
	for ev := range events {
		if ev.Err != nil {
			if ctx.Err() != nil {
				return b.String(), usage, nil
			}
			return b.String(), usage, ev.Err
		}
		if ev.Usage != nil {
			usage = ev.Usage
			continue
		}
		b.WriteString(ev.Text)
		out <- DocEvent{Text: ev.Text}
	}
	return b.String(), usage, nil
}

// SaveManual persists user-edited content as a manual version
func (s *DocumentService) SaveManual(ctx context.Context, id, userID, content string) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	doc.Content = content
	if doc.Status == models.DocStatusPending {
		doc.Status = models.DocStatusCompleted
	}
	appendVersion(doc, content, models.VersionSourceManual)
	doc.UpdatedAt = time.Now()

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document saved", "doc_id", doc.ID, "versions", len(doc.Versions))
	return doc, nil
}

// SwitchVersion makes a historical snapshot the current content
func (s *DocumentService) SwitchVersion(ctx context.Context, id, userID, versionID string) (*models.Document, error) {
	doc, err := s.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range doc.Versions {
		if doc.Versions[i].ID == versionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("version %s: %w", versionID, domain.ErrNotFound)
	}

	doc.CurrentVersion = idx
	doc.Content = doc.Versions[idx].Content
	doc.UpdatedAt = time.Now()

	if err := s.docRepo.Update(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document version switched", "doc_id", doc.ID, "version_id", versionID)
	return doc, nil
}

// FinalizeReview writes a review session's reconstructed text back to
// its document as a manual version and discards the session.
func (s *DocumentService) FinalizeReview(ctx context.Context, sessionID, userID string) (*models.Document, error) {
	session, err := s.reviews.Get(sessionID, userID)
	if err != nil {
		return nil, err
	}

	doc, err := s.SaveManual(ctx, session.DocID, userID, session.Review.Result())
	if err != nil {
		return nil, err
	}

	s.reviews.Discard(sessionID)

	s.logger.Info("review finalized", "session_id", sessionID, "doc_id", doc.ID)
	return doc, nil
}

// Inject pushes the project's waiting-area records into the document.
// States rewrite in place first, then tables. When records exist but
// nothing matched, the result flags assisted merge and carries the
// prompt for it.
func (s *DocumentService) Inject(ctx context.Context, id, userID string) (*InjectResult, error) {
	doc, err := s.GetDocument(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	states, err := s.waitSvc.ListStates(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}
	tables, err := s.waitSvc.ListTables(ctx, doc.ProjectID)
	if err != nil {
		return nil, err
	}

	outcome := inject.Apply(doc.Content, states, tables)
	if outcome.NeedsAssistedMerge {
		return &InjectResult{
			NeedsAssistedMerge: true,
			Prompt:             inject.BuildAssistedMergePrompt(doc.Content, states, tables),
		}, nil
	}

	if len(outcome.Matched) == 0 {
		return &InjectResult{Document: doc}, nil
	}

	doc, err = s.SaveManual(ctx, id, userID, outcome.Content)
	if err != nil {
		return nil, err
	}

	s.logger.Info("waiting area injected", "doc_id", doc.ID, "matched", len(outcome.Matched))
	return &InjectResult{Document: doc, Matched: len(outcome.Matched)}, nil
}

// buildGenerationPrompt assembles the node prompt with project,
// previous-document and waiting-area context substituted in.
func (s *DocumentService) buildGenerationPrompt(ctx context.Context, project *models.Project, doc *models.Document) (string, error) {
	tmpl, ok := s.templates.Get(project.TemplateID)
	if !ok {
		return "", fmt.Errorf("template %s: %w", project.TemplateID, domain.ErrNotFound)
	}
	node := tmpl.NodeByID(doc.NodeID)
	if node == nil {
		return "", fmt.Errorf("node %s: %w", doc.NodeID, domain.ErrNotFound)
	}
	promptTmpl := tmpl.PromptByID(node.PromptID)
	if promptTmpl == nil {
		return "", fmt.Errorf("prompt %s: %w", node.PromptID, domain.ErrNotFound)
	}

	vars := llm.PromptVars{
		ProjectName:   project.Name,
		ProjectVision: project.Vision,
		UserInput:     doc.UserInput,
	}

	if node.IncludePrevDocs {
		prev, err := s.previousDocsText(ctx, project.ID, tmpl, node.Step)
		if err != nil {
			return "", err
		}
		vars.PrevDocs = prev
	}

	states, err := s.waitSvc.ListStates(ctx, project.ID)
	if err != nil {
		return "", err
	}
	tables, err := s.waitSvc.ListTables(ctx, project.ID)
	if err != nil {
		return "", err
	}
	vars.CurrentStates = renderStatesText(states)
	vars.CurrentTables = renderTablesText(tables)

	return llm.BuildPrompt(promptTmpl.Content, vars), nil
}

// previousDocsText concatenates the content of earlier steps'
// non-empty documents in step order.
func (s *DocumentService) previousDocsText(ctx context.Context, projectID string, tmpl *models.WorkflowTemplate, beforeStep int) (string, error) {
	docs, err := s.docRepo.ListByProject(ctx, projectID)
	if err != nil {
		return "", err
	}

	byNode := make(map[string]*models.Document, len(docs))
	for i := range docs {
		byNode[docs[i].NodeID] = &docs[i]
	}

	var parts []string
	for _, node := range tmpl.Nodes {
		if node.Step >= beforeStep {
			continue
		}
		if doc, ok := byNode[node.ID]; ok && doc.Content != "" {
			parts = append(parts, fmt.Sprintf("## %s\n\n%s", doc.Name, doc.Content))
		}
	}
	return strings.Join(parts, "\n\n"), nil
}

// nodeSyncsAutomatically reports whether any waiting area fed by the
// node has the auto sync rule.
func (s *DocumentService) nodeSyncsAutomatically(templateID, nodeID string) bool {
	tmpl, ok := s.templates.Get(templateID)
	if !ok {
		return false
	}
	node := tmpl.NodeByID(nodeID)
	if node == nil {
		return false
	}
	for _, areaID := range node.WaitAreaIDs {
		for i := range tmpl.WaitAreas {
			if tmpl.WaitAreas[i].ID == areaID && tmpl.WaitAreas[i].SyncRule == models.SyncAuto {
				return true
			}
		}
	}
	return false
}

func (s *DocumentService) markFailed(doc *models.Document) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	doc.Status = models.DocStatusNeedsUpdate
	doc.UpdatedAt = time.Now()
	if err := s.docRepo.Update(ctx, doc); err != nil {
		s.logger.Warn("mark document failed", "doc_id", doc.ID, "error", err)
	}
}

// appendVersion snapshots content onto the version history, dropping
// the oldest snapshots past the retention cap.
func appendVersion(doc *models.Document, content string, source models.VersionSource) {
	doc.Versions = append(doc.Versions, models.DocumentVersion{
		ID:        uuid.NewString(),
		Content:   content,
		CreatedAt: time.Now(),
		Source:    source,
	})
	if len(doc.Versions) > config.MaxDocumentVersions {
		doc.Versions = doc.Versions[len(doc.Versions)-config.MaxDocumentVersions:]
	}
	doc.CurrentVersion = len(doc.Versions) - 1
}

// renderStatesText renders waiting-area states as markdown bullets for
// prompt substitution.
func renderStatesText(states []models.StateRecord) string {
	if len(states) == 0 {
		return ""
	}
	var b strings.Builder
	for i := range states {
		state := &states[i]
		values := make([]string, 0, len(state.Values))
		if len(state.EnumPairs) > 0 {
			for _, pair := range state.EnumPairs {
				if pair.Value != "" {
					values = append(values, fmt.Sprintf("%s(%s)", pair.Key, pair.Value))
				} else {
					values = append(values, pair.Key)
				}
			}
		} else {
			values = append(values, state.Values...)
		}
		b.WriteString("- " + state.Name + "：" + strings.Join(values, "、"))
		if state.Description != "" {
			b.WriteString(" (" + state.Description + ")")
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// renderTablesText renders waiting-area tables as markdown field
// tables for prompt substitution.
func renderTablesText(tables []models.TableRecord) string {
	if len(tables) == 0 {
		return ""
	}
	var parts []string
	for i := range tables {
		table := &tables[i]
		var b strings.Builder
		b.WriteString("### " + table.Name + "\n")
		if table.Description != "" {
			b.WriteString(table.Description + "\n")
		}
		b.WriteString("| 字段名 | 类型 | 必填 | 描述 |\n|---|---|---|---|\n")
		for _, field := range table.Fields {
			required := "否"
			if field.Required {
				required = "是"
			}
			desc := field.Description
			if desc == "" {
				desc = "-"
			}
			b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n", field.Name, field.Type, required, desc))
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}
