package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"inkwell/internal/domain"
	"inkwell/internal/models"
)

func newProjectService(t *testing.T) (*ProjectService, *fakeProjectRepo, *fakeDocRepo) {
	t.Helper()
	projects := newFakeProjectRepo()
	docs := newFakeDocRepo()
	svc := NewProjectService(projects, docs, fakeTxManager{}, testTemplates(), testLogger())
	return svc, projects, docs
}

func TestCreateProjectInstantiatesDocuments(t *testing.T) {
	svc, _, docs := newProjectService(t)

	project, err := svc.CreateProject(context.Background(), "u1", &models.CreateProjectRequest{
		Name:       "商城",
		Vision:     "做一个电商平台",
		TemplateID: "preset-coding-standard",
	})
	if err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	if project.ID == "" {
		t.Fatal("project has no id")
	}

	list, err := docs.ListByProject(context.Background(), project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 5 {
		t.Fatalf("documents = %d, want 5", len(list))
	}
	for _, doc := range list {
		if doc.Status != models.DocStatusPending {
			t.Errorf("node %s status = %q, want pending", doc.NodeID, doc.Status)
		}
		if doc.Name == "" {
			t.Errorf("node %s has no doc name", doc.NodeID)
		}
	}
}

func TestCreateProjectValidation(t *testing.T) {
	svc, _, _ := newProjectService(t)

	tests := []struct {
		name string
		req  *models.CreateProjectRequest
	}{
		{"empty name", &models.CreateProjectRequest{TemplateID: "preset-coding-standard"}},
		{"blank name", &models.CreateProjectRequest{Name: "   ", TemplateID: "preset-coding-standard"}},
		{"missing template", &models.CreateProjectRequest{Name: "商城"}},
		{"name too long", &models.CreateProjectRequest{Name: strings.Repeat("名", 300), TemplateID: "preset-coding-standard"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateProject(context.Background(), "u1", tt.req); !errors.Is(err, domain.ErrValidation) {
				t.Errorf("err = %v, want validation error", err)
			}
		})
	}
}

func TestCreateProjectUnknownTemplate(t *testing.T) {
	svc, _, _ := newProjectService(t)

	_, err := svc.CreateProject(context.Background(), "u1", &models.CreateProjectRequest{
		Name:       "商城",
		TemplateID: "no-such-template",
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestProjectOwnershipScoping(t *testing.T) {
	svc, _, _ := newProjectService(t)

	project, err := svc.CreateProject(context.Background(), "u1", &models.CreateProjectRequest{
		Name:       "商城",
		TemplateID: "preset-coding-standard",
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.GetProject(context.Background(), project.ID, "u2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-user get: err = %v, want not found", err)
	}
	if err := svc.DeleteProject(context.Background(), project.ID, "u2"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("cross-user delete: err = %v, want not found", err)
	}
	if _, err := svc.GetProject(context.Background(), project.ID, "u1"); err != nil {
		t.Errorf("owner get: %v", err)
	}
}

func TestUpdateProjectPartial(t *testing.T) {
	svc, _, _ := newProjectService(t)

	project, err := svc.CreateProject(context.Background(), "u1", &models.CreateProjectRequest{
		Name:       "商城",
		Vision:     "初版愿景",
		TemplateID: "preset-coding-standard",
	})
	if err != nil {
		t.Fatal(err)
	}

	step := 3
	updated, err := svc.UpdateProject(context.Background(), project.ID, "u1", &models.UpdateProjectRequest{
		CurrentStep: &step,
	})
	if err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}
	if updated.CurrentStep != 3 {
		t.Errorf("current step = %d", updated.CurrentStep)
	}
	if updated.Name != "商城" || updated.Vision != "初版愿景" {
		t.Error("untouched fields changed")
	}
}
