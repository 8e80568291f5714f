package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"inkwell/internal/config"
	"inkwell/internal/domain"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/workflow"
)

// ProjectService manages project lifecycle. Creating a project
// instantiates one pending document per workflow node so the step
// sequence exists up front.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	docRepo     repository.DocumentRepository
	txManager   repository.TransactionManager
	templates   *workflow.Store
	logger      *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo repository.ProjectRepository,
	docRepo repository.DocumentRepository,
	txManager repository.TransactionManager,
	templates *workflow.Store,
	logger *slog.Logger,
) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		docRepo:     docRepo,
		txManager:   txManager,
		templates:   templates,
		logger:      logger,
	}
}

// CreateProject creates a project from a workflow template
func (s *ProjectService) CreateProject(ctx context.Context, userID string, req *models.CreateProjectRequest) (*models.Project, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	tmpl, ok := s.templates.Get(req.TemplateID)
	if !ok {
		return nil, fmt.Errorf("template %s: %w", req.TemplateID, domain.ErrNotFound)
	}

	project := &models.Project{
		UserID:     userID,
		Name:       strings.TrimSpace(req.Name),
		Vision:     strings.TrimSpace(req.Vision),
		TemplateID: tmpl.ID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		if err := s.projectRepo.Create(txCtx, project); err != nil {
			return err
		}
		for _, node := range tmpl.Nodes {
			doc := &models.Document{
				ProjectID: project.ID,
				NodeID:    node.ID,
				Name:      node.DocName,
				Status:    models.DocStatusPending,
				Versions:  []models.DocumentVersion{},
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			if err := s.docRepo.Create(txCtx, doc); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"name", project.Name,
		"template", tmpl.ID,
		"user_id", userID,
	)

	return project, nil
}

// GetProject retrieves a project by ID
func (s *ProjectService) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id, userID)
}

// ListProjects retrieves all projects for a user
func (s *ProjectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.projectRepo.List(ctx, userID)
}

// UpdateProject applies a partial update
func (s *ProjectService) UpdateProject(ctx context.Context, id, userID string, req *models.UpdateProjectRequest) (*models.Project, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	project, err := s.projectRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		project.Name = strings.TrimSpace(*req.Name)
	}
	if req.Vision != nil {
		project.Vision = strings.TrimSpace(*req.Vision)
	}
	if req.CurrentStep != nil {
		project.CurrentStep = *req.CurrentStep
	}
	project.UpdatedAt = time.Now()

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project updated", "id", project.ID, "user_id", userID)

	return project, nil
}

// DeleteProject deletes a project and everything under it
func (s *ProjectService) DeleteProject(ctx context.Context, id, userID string) error {
	if _, err := s.projectRepo.GetByID(ctx, id, userID); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, id, userID); err != nil {
		return err
	}

	s.logger.Info("project deleted", "id", id, "user_id", userID)
	return nil
}

func (s *ProjectService) validateCreateRequest(req *models.CreateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.Required,
			validation.Length(1, config.MaxProjectNameLength),
			validation.By(validateTrimmedNotEmpty),
		),
		validation.Field(&req.TemplateID, validation.Required),
	)
}

func (s *ProjectService) validateUpdateRequest(req *models.UpdateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Name,
			validation.NilOrNotEmpty,
			validation.Length(1, config.MaxProjectNameLength),
		),
		validation.Field(&req.CurrentStep, validation.Min(0)),
	)
}

func validateTrimmedNotEmpty(value interface{}) error {
	name, ok := value.(string)
	if !ok {
		return fmt.Errorf("must be a string")
	}
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("cannot be empty")
	}
	return nil
}
