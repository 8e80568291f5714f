package workflow

import (
	"os"
	"path/filepath"
	"testing"

	"inkwell/internal/models"
)

func TestLoadEmbeddedDefault(t *testing.T) {
	store, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tmpl, ok := store.Get("preset-coding-standard")
	if !ok {
		t.Fatal("default template not loaded")
	}
	if len(tmpl.Nodes) == 0 || len(tmpl.Prompts) == 0 {
		t.Fatalf("default template incomplete: %d nodes, %d prompts", len(tmpl.Nodes), len(tmpl.Prompts))
	}

	// Every node resolves its prompt.
	for _, node := range tmpl.Nodes {
		if tmpl.PromptByID(node.PromptID) == nil {
			t.Errorf("node %s: prompt %s missing", node.ID, node.PromptID)
		}
	}

	// The data-model step feeds both waiting areas.
	node := tmpl.NodeByID("node-datamodel")
	if node == nil {
		t.Fatal("node-datamodel missing")
	}
	if len(node.WaitAreaIDs) != 2 {
		t.Errorf("node-datamodel wait areas = %v", node.WaitAreaIDs)
	}
}

func TestLoadDirTemplates(t *testing.T) {
	dir := t.TempDir()
	custom := `
id: custom-min
name: Minimal
nodes:
  - id: n1
    step: 1
    doc_name: doc.md
    prompt_id: p1
prompts:
  - id: p1
    node_id: n1
    content: "{projectName}"
`
	if err := os.WriteFile(filepath.Join(dir, "custom.yaml"), []byte(custom), 0644); err != nil {
		t.Fatal(err)
	}

	store, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := store.Get("custom-min"); !ok {
		t.Error("custom template not loaded")
	}
	if _, ok := store.Get("preset-coding-standard"); !ok {
		t.Error("default template lost when loading a dir")
	}
	if len(store.List()) != 2 {
		t.Errorf("List() = %d templates, want 2", len(store.List()))
	}
}

func TestLoadRejectsDanglingPrompt(t *testing.T) {
	dir := t.TempDir()
	broken := `
id: broken
name: Broken
nodes:
  - id: n1
    step: 1
    doc_name: doc.md
    prompt_id: missing
`
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte(broken), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Error("expected error for dangling prompt reference")
	}
}

func TestValidateRejectsUnknownWaitAreaKind(t *testing.T) {
	tmpl := &models.WorkflowTemplate{
		ID:   "t",
		Name: "t",
		Nodes: []models.WorkflowNode{
			{ID: "n1", DocName: "d.md", PromptID: "p1"},
		},
		Prompts: []models.PromptTemplate{{ID: "p1"}},
		WaitAreas: []models.WaitAreaSpec{
			{ID: "w1", Kind: "other"},
		},
	}
	if err := validate(tmpl); err == nil {
		t.Error("expected error for unknown wait-area kind")
	}
}
