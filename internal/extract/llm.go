package extract

import (
	"strings"

	"github.com/tidwall/gjson"

	"inkwell/internal/models"
)

// extractionPromptTemplate asks the model for the same candidate shape
// the regex pass produces so the two passes can share one merge path.
const extractionPromptTemplate = `# Task
Read the document below and extract every state machine (an enumerable
status concept with its values) and every database table definition
(table name plus its columns) it describes.

# Document
---
%DOC%
---

# Output requirements
Return ONLY a JSON object, no commentary, with exactly this shape:

{
  "states": [
    {"name": "...", "values": ["...", "..."], "description": "..."}
  ],
  "tables": [
    {
      "name": "...",
      "description": "...",
      "fields": [
        {"name": "...", "type": "string|int|bigint|text|boolean|datetime|json|decimal", "description": "...", "required": true}
      ]
    }
  ]
}

Return {"states": [], "tables": []} when the document defines none.`

// BuildExtractionPrompt embeds document text into the fixed extraction
// instruction template.
func BuildExtractionPrompt(content string) string {
	return strings.Replace(extractionPromptTemplate, "%DOC%", content, 1)
}

// ParseExtractionResponse pulls candidate states and tables out of an
// LLM response. The JSON may arrive bare or wrapped in a fenced code
// block; anything that fails to parse as the expected shape yields
// empty slices, never an error. This pass is advisory: a garbage
// response must not disturb the regex pass's results.
func ParseExtractionResponse(raw string) ([]models.CandidateState, []models.CandidateTable) {
	body := unwrapJSON(raw)
	if body == "" || !gjson.Valid(body) {
		return nil, nil
	}
	root := gjson.Parse(body)

	var states []models.CandidateState
	for _, s := range root.Get("states").Array() {
		name := strings.TrimSpace(s.Get("name").String())
		if name == "" {
			continue
		}
		var values []string
		for _, v := range s.Get("values").Array() {
			if val := strings.TrimSpace(v.String()); val != "" {
				values = append(values, val)
			}
		}
		if len(values) == 0 {
			continue
		}
		states = append(states, models.CandidateState{
			Name:        name,
			Values:      values,
			Description: strings.TrimSpace(s.Get("description").String()),
		})
	}

	var tables []models.CandidateTable
	for _, t := range root.Get("tables").Array() {
		name := strings.TrimSpace(t.Get("name").String())
		if name == "" {
			continue
		}
		var fields []models.CandidateField
		for _, f := range t.Get("fields").Array() {
			fieldName := strings.TrimSpace(f.Get("name").String())
			if fieldName == "" {
				continue
			}
			fields = append(fields, models.CandidateField{
				Name:        fieldName,
				Type:        string(models.NormalizeFieldType(f.Get("type").String())),
				Description: strings.TrimSpace(f.Get("description").String()),
				Required:    f.Get("required").Bool(),
			})
		}
		if len(fields) == 0 {
			continue
		}
		tables = append(tables, models.CandidateTable{
			Name:        name,
			Description: strings.TrimSpace(t.Get("description").String()),
			Fields:      fields,
		})
	}

	return states, tables
}

// unwrapJSON strips a fenced code block wrapper if present, then
// clamps to the outermost object braces.
func unwrapJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}
