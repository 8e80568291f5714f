package models

// WaitAreaKind distinguishes what a waiting area collects.
type WaitAreaKind string

const (
	WaitAreaStates WaitAreaKind = "states"
	WaitAreaTables WaitAreaKind = "tables"
)

// SyncRule controls whether extraction runs automatically after a
// step's document is generated or only on explicit request.
type SyncRule string

const (
	SyncAuto   SyncRule = "auto"
	SyncManual SyncRule = "manual"
)

// WaitAreaSpec declares one waiting area a template exposes and which
// steps feed it.
type WaitAreaSpec struct {
	ID             string       `yaml:"id" json:"id"`
	Name           string       `yaml:"name" json:"name"`
	Kind           WaitAreaKind `yaml:"kind" json:"kind"`
	SyncRule       SyncRule     `yaml:"sync_rule" json:"sync_rule"`
	RelatedNodeIDs []string     `yaml:"related_nodes" json:"related_node_ids"`
}

// WorkflowNode is one wizard step: the document it produces and the
// prompt that generates it.
type WorkflowNode struct {
	ID              string   `yaml:"id" json:"id"`
	Step            int      `yaml:"step" json:"step"`
	DocName         string   `yaml:"doc_name" json:"doc_name"`
	GuideText       string   `yaml:"guide_text" json:"guide_text"`
	PromptID        string   `yaml:"prompt_id" json:"prompt_id"`
	Required        bool     `yaml:"required" json:"required"`
	IncludePrevDocs bool     `yaml:"include_prev_docs" json:"include_prev_docs"`
	WaitAreaIDs     []string `yaml:"wait_areas" json:"wait_area_ids"`
}

// PromptTemplate is the prompt text for one node, with substitution
// variables like {projectName} and {prevDocs}.
type PromptTemplate struct {
	ID        string   `yaml:"id" json:"id"`
	Content   string   `yaml:"content" json:"content"`
	Variables []string `yaml:"variables" json:"variables"`
	NodeID    string   `yaml:"node_id" json:"node_id"`
}

// WorkflowTemplate is the static step/prompt configuration a project
// is instantiated from.
type WorkflowTemplate struct {
	ID          string           `yaml:"id" json:"id"`
	Name        string           `yaml:"name" json:"name"`
	Description string           `yaml:"description" json:"description"`
	Nodes       []WorkflowNode   `yaml:"nodes" json:"nodes"`
	Prompts     []PromptTemplate `yaml:"prompts" json:"prompts"`
	WaitAreas   []WaitAreaSpec   `yaml:"wait_areas" json:"wait_areas"`
}

// PromptByID returns the prompt for the given id, or nil.
func (t *WorkflowTemplate) PromptByID(id string) *PromptTemplate {
	for i := range t.Prompts {
		if t.Prompts[i].ID == id {
			return &t.Prompts[i]
		}
	}
	return nil
}

// NodeByID returns the node for the given id, or nil.
func (t *WorkflowTemplate) NodeByID(id string) *WorkflowNode {
	for i := range t.Nodes {
		if t.Nodes[i].ID == id {
			return &t.Nodes[i]
		}
	}
	return nil
}
