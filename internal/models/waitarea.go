package models

import (
	"strconv"
	"strings"
)

// FieldType is the canonical column type vocabulary used across the
// waiting area, the extractor and the DDL exporter.
type FieldType string

const (
	FieldTypeString   FieldType = "string"
	FieldTypeInt      FieldType = "int"
	FieldTypeBigint   FieldType = "bigint"
	FieldTypeText     FieldType = "text"
	FieldTypeBoolean  FieldType = "boolean"
	FieldTypeDatetime FieldType = "datetime"
	FieldTypeJSON     FieldType = "json"
	FieldTypeDecimal  FieldType = "decimal"
)

// fieldTypeSynonyms collapses vendor and alias spellings into the
// canonical vocabulary. Keys are upper-cased with size markers stripped.
var fieldTypeSynonyms = map[string]FieldType{
	"STRING": FieldTypeString, "VARCHAR": FieldTypeString, "VARCHAR2": FieldTypeString,
	"STR": FieldTypeString, "CHAR": FieldTypeString, "ENUM": FieldTypeString,
	"INT": FieldTypeInt, "INTEGER": FieldTypeInt, "SMALLINT": FieldTypeInt, "TINYINT": FieldTypeInt,
	"BIGINT": FieldTypeBigint, "LONG": FieldTypeBigint,
	"TEXT": FieldTypeText, "LONGTEXT": FieldTypeText, "MEDIUMTEXT": FieldTypeText, "CLOB": FieldTypeText,
	"BOOLEAN": FieldTypeBoolean, "BOOL": FieldTypeBoolean, "BIT": FieldTypeBoolean,
	"DATETIME": FieldTypeDatetime, "TIMESTAMP": FieldTypeDatetime, "DATE": FieldTypeDatetime, "TIME": FieldTypeDatetime,
	"JSON": FieldTypeJSON, "JSONB": FieldTypeJSON, "OBJECT": FieldTypeJSON,
	"DECIMAL": FieldTypeDecimal, "FLOAT": FieldTypeDecimal, "DOUBLE": FieldTypeDecimal,
	"NUMERIC": FieldTypeDecimal, "NUMBER": FieldTypeDecimal,
}

// NormalizeFieldType maps a raw type spelling (e.g. "VARCHAR(255)",
// "number", "bool") onto the canonical vocabulary. Unrecognized
// spellings default to string.
func NormalizeFieldType(raw string) FieldType {
	key := strings.ToUpper(strings.TrimSpace(raw))
	// Strip size/precision markers: VARCHAR(255), NUMBER(12,2), 全角括号
	key = strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return -1
		case r == '(' || r == ')' || r == '（' || r == '）' || r == ',' || r == ' ':
			return -1
		}
		return r
	}, key)
	if t, ok := fieldTypeSynonyms[key]; ok {
		return t
	}
	return FieldTypeString
}

// EnumPair binds a display token to an underlying code. When a state
// carries enum pairs they are authoritative; Values is derivable as
// the key list.
type EnumPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// StateRecord is a named enumerable business concept accumulated in
// the waiting area. Name is the de-duplication key; uniqueness is
// enforced by the merge engine, not by storage.
type StateRecord struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Values          []string   `json:"values"`
	EnumPairs       []EnumPair `json:"enum_pairs,omitempty"`
	Description     string     `json:"description"`
	RelatedDocIDs   []string   `json:"related_doc_ids"`
	RelatedTableIDs []string   `json:"related_table_ids"`
}

// FieldRecord is one column of a TableRecord.
type FieldRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Description string    `json:"description"`
	Required    bool      `json:"required"`
	PrimaryKey  bool      `json:"primary_key,omitempty"`
	StateRef    string    `json:"state_ref,omitempty"`
}

// TableRecord is a named database-table-like structure in the waiting
// area. Field order is preserved from extraction/authoring.
type TableRecord struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Description   string        `json:"description"`
	Fields        []FieldRecord `json:"fields"`
	RelatedDocIDs []string      `json:"related_doc_ids"`
}

// MergeActionType tags the mutation a MergeAction carries.
type MergeActionType string

const (
	ActionAddState    MergeActionType = "add_state"
	ActionUpdateState MergeActionType = "update_state"
	ActionAddTable    MergeActionType = "add_table"
	ActionUpdateTable MergeActionType = "update_table"
)

// MergeAction is one atomic waiting-area mutation produced by the
// merge engine. Exactly one of State or Table is set, matching Type.
type MergeAction struct {
	Type  MergeActionType `json:"type"`
	State *StateRecord    `json:"state,omitempty"`
	Table *TableRecord    `json:"table,omitempty"`
}

// MergeCounts tracks how many records an action batch adds or updates,
// split by kind. Used only for human-readable summaries.
type MergeCounts struct {
	States int `json:"states"`
	Tables int `json:"tables"`
}

// MergeResult is the outcome of one merge computation.
type MergeResult struct {
	Actions []MergeAction `json:"actions"`
	Added   MergeCounts   `json:"added"`
	Updated MergeCounts   `json:"updated"`
}

// Summary renders a short human-readable description of the result,
// or "" when nothing changed.
func (r *MergeResult) Summary() string {
	var parts []string
	if r.Added.States > 0 {
		parts = append(parts, plural(r.Added.States, "state added", "states added"))
	}
	if r.Updated.States > 0 {
		parts = append(parts, plural(r.Updated.States, "state updated", "states updated"))
	}
	if r.Added.Tables > 0 {
		parts = append(parts, plural(r.Added.Tables, "table added", "tables added"))
	}
	if r.Updated.Tables > 0 {
		parts = append(parts, plural(r.Updated.Tables, "table updated", "tables updated"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return "1 " + singular
	}
	return strconv.Itoa(n) + " " + pluralForm
}
