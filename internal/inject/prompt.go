package inject

import (
	"strings"

	"inkwell/internal/models"
)

// BuildAssistedMergePrompt builds the whole-document merge prompt used
// when textual injection located nothing. The model receives the full
// document plus a rendering of every current record and must return
// the complete updated document.
func BuildAssistedMergePrompt(content string, states []models.StateRecord, tables []models.TableRecord) string {
	var b strings.Builder

	b.WriteString("# Task\n")
	b.WriteString("Update the document below so its state definitions and table schemas match the latest data. ")
	b.WriteString("Only rewrite the paragraphs and tables that describe them; leave everything else untouched.\n\n")
	b.WriteString("# Current document\n---\n")
	b.WriteString(content)
	b.WriteString("\n---\n\n")

	if len(states) > 0 {
		b.WriteString("# Latest states\n")
		for i := range states {
			s := &states[i]
			b.WriteString("- " + s.Name + "：" + strings.Join(renderStateValues(s), "、"))
			if s.Description != "" {
				b.WriteString("（" + s.Description + "）")
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(tables) > 0 {
		b.WriteString("# Latest table schemas\n")
		for i := range tables {
			t := &tables[i]
			b.WriteString("### " + t.Name)
			if t.Description != "" {
				b.WriteString(" (" + t.Description + ")")
			}
			b.WriteString("\n")
			for _, line := range renderFieldTable(t) {
				b.WriteString(line + "\n")
			}
			b.WriteString("\n")
		}
	}

	b.WriteString("# Output requirements\n")
	b.WriteString("- Replace the matching state and table sections with the data above.\n")
	b.WriteString("- If the document has no matching section, insert one where it fits.\n")
	b.WriteString("- Return the complete updated document, not a fragment.\n")
	b.WriteString("- Do not add commentary.")

	return b.String()
}
