package models

// CandidateState is a state definition freshly pulled out of document
// text (by the regex heuristics or an LLM pass). Candidates carry no
// IDs; the merge engine decides whether they become new records or
// updates to existing ones.
type CandidateState struct {
	Name        string     `json:"name"`
	Values      []string   `json:"values"`
	EnumPairs   []EnumPair `json:"enum_pairs,omitempty"`
	Description string     `json:"description"`
}

// CandidateField is one extracted column of a CandidateTable. Type is
// the raw spelling seen in the document; consumers normalize it via
// NormalizeFieldType.
type CandidateField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// CandidateTable is a table definition freshly pulled out of document
// text.
type CandidateTable struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Fields      []CandidateField `json:"fields"`
}
