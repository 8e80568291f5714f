// Package workflow loads the static step/prompt templates projects are
// instantiated from. A built-in template ships embedded; deployments
// can add their own YAML files alongside it.
package workflow

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"inkwell/internal/models"
)

//go:embed default_template.yaml
var defaultTemplateYAML []byte

// Store holds the loaded templates, keyed by id.
type Store struct {
	templates map[string]*models.WorkflowTemplate
}

// Load parses the embedded default template plus every *.yaml file in
// dir (skipped when dir is empty). A template file that fails to parse
// or validate aborts the load; a broken template is a deployment
// error, not something to limp past.
func Load(dir string) (*Store, error) {
	store := &Store{templates: map[string]*models.WorkflowTemplate{}}

	if err := store.add(defaultTemplateYAML, "embedded default"); err != nil {
		return nil, err
	}

	if dir != "" {
		paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("scan template dir: %w", err)
		}
		sort.Strings(paths)
		for _, path := range paths {
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read template %s: %w", path, err)
			}
			if err := store.add(raw, path); err != nil {
				return nil, err
			}
		}
	}

	return store, nil
}

func (s *Store) add(raw []byte, source string) error {
	var tmpl models.WorkflowTemplate
	if err := yaml.Unmarshal(raw, &tmpl); err != nil {
		return fmt.Errorf("parse template %s: %w", source, err)
	}
	if err := validate(&tmpl); err != nil {
		return fmt.Errorf("invalid template %s: %w", source, err)
	}
	s.templates[tmpl.ID] = &tmpl
	return nil
}

// Get returns the template with the given id.
func (s *Store) Get(id string) (*models.WorkflowTemplate, bool) {
	tmpl, ok := s.templates[id]
	return tmpl, ok
}

// List returns all templates sorted by id.
func (s *Store) List() []*models.WorkflowTemplate {
	out := make([]*models.WorkflowTemplate, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// validate checks structural integrity: required identifiers plus
// resolvable prompt and wait-area references.
func validate(tmpl *models.WorkflowTemplate) error {
	err := validation.ValidateStruct(tmpl,
		validation.Field(&tmpl.ID, validation.Required),
		validation.Field(&tmpl.Name, validation.Required),
		validation.Field(&tmpl.Nodes, validation.Required),
	)
	if err != nil {
		return err
	}

	waitAreas := map[string]bool{}
	for _, wa := range tmpl.WaitAreas {
		if wa.Kind != models.WaitAreaStates && wa.Kind != models.WaitAreaTables {
			return fmt.Errorf("wait area %q: unknown kind %q", wa.ID, wa.Kind)
		}
		waitAreas[wa.ID] = true
	}

	for i := range tmpl.Nodes {
		node := &tmpl.Nodes[i]
		if node.ID == "" || node.DocName == "" {
			return fmt.Errorf("node %d: id and doc_name are required", i)
		}
		if tmpl.PromptByID(node.PromptID) == nil {
			return fmt.Errorf("node %q: prompt %q not found", node.ID, node.PromptID)
		}
		for _, waID := range node.WaitAreaIDs {
			if !waitAreas[waID] {
				return fmt.Errorf("node %q: wait area %q not found", node.ID, waID)
			}
		}
	}

	return nil
}
