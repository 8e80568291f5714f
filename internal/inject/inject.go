// Package inject rewrites waiting-area records back into a document's
// markdown text. Matching is textual and exact on record names (fuzzy
// matching already happened at merge time); records the rewriter
// cannot locate are left for an assisted whole-document merge.
package inject

import (
	"regexp"
	"strings"

	"inkwell/internal/markdown"
	"inkwell/internal/models"
)

// Result is the outcome of one injection pass. Matched lists the
// record names that were located and rewritten, in record order.
type Result struct {
	Content string
	Matched []string
}

// Outcome is the combined states-then-tables pass. NeedsAssistedMerge
// is set when records were supplied but none could be located, which
// callers resolve with an LLM merge built by BuildAssistedMergePrompt.
type Outcome struct {
	Content            string
	Matched            []string
	NeedsAssistedMerge bool
}

// Apply runs States then Tables over the document and folds the two
// results together.
func Apply(content string, states []models.StateRecord, tables []models.TableRecord) Outcome {
	sres := States(content, states)
	tres := Tables(sres.Content, tables)

	matched := append(sres.Matched, tres.Matched...)
	return Outcome{
		Content:            tres.Content,
		Matched:            matched,
		NeedsAssistedMerge: len(matched) == 0 && len(states)+len(tables) > 0,
	}
}

// States rewrites state definitions in place. Two patterns per record:
// an inline "name：values" occurrence, whose value portion is replaced,
// and a heading or bold label containing the name followed by a bullet
// list, which is replaced with one bullet per current value. The
// rewritten separator is always the full-width colon.
func States(content string, states []models.StateRecord) Result {
	result := content
	var matched []string

	for i := range states {
		state := &states[i]
		name := regexp.QuoteMeta(state.Name)
		values := renderStateValues(state)
		found := false

		inline := regexp.MustCompile(`(` + name + `)[：: \t]*([^\n]+)`)
		result = inline.ReplaceAllStringFunc(result, func(m string) string {
			found = true
			sub := inline.FindStringSubmatch(m)
			return sub[1] + "：" + strings.Join(values, "、")
		})

		section := regexp.MustCompile(
			`(?m)((?:^#{1,4}[ \t]+[^\n]*` + name + `[^\n]*|\*\*[^\n]*` + name + `[^\n]*\*\*)[：:\s]*\n)((?:[ \t]*[-*][ \t]+[^\n]+\n?)*)`)
		result = section.ReplaceAllStringFunc(result, func(m string) string {
			found = true
			sub := section.FindStringSubmatch(m)
			items := make([]string, len(values))
			for j, v := range values {
				items[j] = "- " + v
			}
			return sub[1] + strings.Join(items, "\n") + "\n"
		})

		if found {
			matched = append(matched, state.Name)
		}
	}

	return Result{Content: result, Matched: matched}
}

// Tables locates markdown tables whose context label matches one of
// the record's name variants and replaces the whole block with a
// regenerated field table. Records with no fields are skipped.
func Tables(content string, tables []models.TableRecord) Result {
	lines := strings.Split(content, "\n")
	var matched []string

	for i := range tables {
		table := &tables[i]
		if len(table.Fields) == 0 {
			continue
		}

		variants := nameVariants(table.Name)
		replaced := false

		parsed := markdown.ParseTables(strings.Join(lines, "\n"))
		// Splice back-to-front so earlier block bounds stay valid.
		for j := len(parsed) - 1; j >= 0; j-- {
			if !labelMatches(parsed[j].Context, variants) {
				continue
			}
			block := renderFieldTable(table)
			rest := append([]string(nil), lines[parsed[j].EndLine:]...)
			lines = append(lines[:parsed[j].StartLine], append(block, rest...)...)
			replaced = true
		}

		if replaced {
			matched = append(matched, table.Name)
		}
	}

	return Result{Content: strings.Join(lines, "\n"), Matched: matched}
}

// renderStateValues renders the record's values for prose, preferring
// "key(code)" pairs when enum codes exist.
func renderStateValues(state *models.StateRecord) []string {
	if len(state.EnumPairs) > 0 {
		out := make([]string, len(state.EnumPairs))
		for i, p := range state.EnumPairs {
			if p.Value != "" {
				out[i] = p.Key + "(" + p.Value + ")"
			} else {
				out[i] = p.Key
			}
		}
		return out
	}
	return state.Values
}

var parenAlias = regexp.MustCompile(`(.+?)\s*[（(](.+?)[)）]`)

// nameVariants expands a table name into the labels it may appear
// under: the raw name, base and alias of a "base (alias)" name, any
// backtick-quoted alias, and the name with a trailing 表 suffix
// toggled.
func nameVariants(name string) []string {
	variants := []string{name}
	if m := parenAlias.FindStringSubmatch(name); m != nil {
		variants = append(variants, strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	}
	if tick := strings.Split(name, "`"); len(tick) >= 3 && strings.TrimSpace(tick[1]) != "" {
		variants = append(variants, strings.TrimSpace(tick[1]))
	}
	if trimmed := strings.TrimSuffix(name, "表"); trimmed != name && trimmed != "" {
		variants = append(variants, trimmed)
	} else {
		variants = append(variants, name+"表")
	}
	return variants
}

func labelMatches(label string, variants []string) bool {
	lower := strings.ToLower(label)
	for _, v := range variants {
		if v != "" && strings.Contains(lower, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

// renderFieldTable regenerates the markdown field table for a record.
func renderFieldTable(table *models.TableRecord) []string {
	lines := []string{
		"| 字段名 | 类型 | 必填 | 描述 |",
		"|--------|------|------|------|",
	}
	for _, f := range table.Fields {
		req := "否"
		if f.Required {
			req = "是"
		}
		desc := f.Description
		if desc == "" {
			desc = "-"
		}
		lines = append(lines, "| "+f.Name+" | "+string(f.Type)+" | "+req+" | "+desc+" |")
	}
	return lines
}
