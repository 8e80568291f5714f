// Package extract turns free-text Markdown into candidate state and
// table records via deterministic regex/line-scan heuristics, with an
// optional LLM-backed second pass (llm.go) layered on top.
//
// The heuristics are fuzzy by design: each pattern is an independent
// matcher producing partial candidate lists, concatenated and
// de-duplicated by name. Reconciling candidates against the waiting
// area is the merge engine's job, not this package's.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"inkwell/internal/markdown"
	"inkwell/internal/models"
)

const (
	// maxValueRunes: delimiter-split tokens at or above this length
	// are discarded as noise.
	maxValueRunes = 30
	// maxStateValues caps how many values one state keeps.
	maxStateValues = 20
)

var (
	valueDelimiter = regexp.MustCompile(`[、，,；;|／/][ \t]*`)
	headingLine    = regexp.MustCompile(`^#{1,4}\s+(.+)$`)
	boldLine       = regexp.MustCompile(`^\*{2}([^*\n]+)\*{2}[：:\s]*$`)
	listItemLine   = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)
	cjkStateName   = regexp.MustCompile(`([\x{4e00}-\x{9fff}A-Za-z0-9_]+状态)`)
	inlineState    = regexp.MustCompile(`([\x{4e00}-\x{9fff}A-Za-z0-9_]{2,24}(?:状态|Status|STATUS))[：:][ \t]*([^\n]+)`)
	enumPairToken  = regexp.MustCompile(`^(.+?)[（(]([^)）]+)[)）]$`)
	inlineColon    = regexp.MustCompile(`[：:][ \t]*(.+)`)
	leadingNumber  = regexp.MustCompile(`^[\d.]+\s*`)
	tablePrefix    = regexp.MustCompile(`^(?:表[结構构]?|(?i:table))[：:]\s*`)
	backtickAlias  = regexp.MustCompile("`([^`]+)`")
	parenAlias     = regexp.MustCompile(`[（(]([^)）]+)[)）]`)
	requiredText   = regexp.MustCompile(`(?i)是|yes|true|必填|required|not\s*null`)
)

// States runs the regex pass for state definitions: labelled sections
// with bullet or inline value runs, single-line "Name：a、b、c"
// definitions, and name/value tables. Candidates are returned in
// discovery order, de-duplicated by name.
func States(content string) []models.CandidateState {
	var out []models.CandidateState
	seen := map[string]bool{}

	add := func(c models.CandidateState) {
		if c.Name == "" || seen[c.Name] || len(c.Values) == 0 {
			return
		}
		seen[c.Name] = true
		out = append(out, c)
	}

	for _, c := range sectionStates(content) {
		add(c)
	}
	for _, c := range inlineStates(content) {
		add(c)
	}
	for _, c := range tableStates(content) {
		add(c)
	}
	return out
}

// sectionStates finds headings or bold labels naming a state, followed
// by a bullet list or an inline value run.
func sectionStates(content string) []models.CandidateState {
	var out []models.CandidateState
	lines := markdown.SplitLines(content)

	i := 0
	for i < len(lines) {
		label, ok := stateSectionLabel(lines[i])
		if !ok {
			i++
			continue
		}

		// Body: lines up to the next heading/bold label, a rule, or a
		// double blank gap.
		body := []string{}
		j := i + 1
		blanks := 0
		for j < len(lines) {
			l := lines[j]
			trimmed := strings.TrimSpace(l)
			if headingLine.MatchString(trimmed) || strings.HasPrefix(trimmed, "**") || strings.HasPrefix(trimmed, "---") {
				break
			}
			if trimmed == "" {
				blanks++
				if blanks >= 2 {
					break
				}
			} else {
				blanks = 0
			}
			body = append(body, l)
			j++
		}

		name := stateNameFromLabel(label)
		values, pairs := sectionValues(body)
		if name != "" && len(values) > 0 {
			out = append(out, models.CandidateState{Name: name, Values: values, EnumPairs: pairs})
		}
		i = j
	}
	return out
}

// stateSectionLabel reports whether the line is a heading or bold
// label mentioning the state keyword, returning its cleaned text.
func stateSectionLabel(line string) (string, bool) {
	trimmed := strings.TrimSpace(line)
	var text string
	if m := headingLine.FindStringSubmatch(trimmed); m != nil {
		text = m[1]
	} else if m := boldLine.FindStringSubmatch(trimmed); m != nil {
		text = m[1]
	} else {
		return "", false
	}
	lower := strings.ToLower(text)
	if !strings.Contains(text, "状态") && !strings.Contains(lower, "status") && !strings.Contains(lower, "state") {
		return "", false
	}
	text = strings.ReplaceAll(text, "*", "")
	return strings.TrimSpace(strings.TrimRight(text, "：: \t")), true
}

// stateNameFromLabel extracts the state name proper from a section
// label, preferring a "…状态" run over the whole label text.
func stateNameFromLabel(label string) string {
	if m := cjkStateName.FindStringSubmatch(label); m != nil {
		return m[1]
	}
	return strings.TrimSpace(strings.NewReplacer("：", "", ":", "").Replace(label))
}

// sectionValues pulls values out of a section body: bullet items
// first, falling back to an inline delimiter-separated run.
func sectionValues(body []string) ([]string, []models.EnumPair) {
	var raw []string
	for _, l := range body {
		if m := listItemLine.FindStringSubmatch(l); m != nil {
			raw = append(raw, strings.TrimSpace(m[1]))
		}
	}
	if len(raw) == 0 {
		joined := strings.Join(body, "\n")
		var valStr string
		if m := inlineColon.FindStringSubmatch(joined); m != nil {
			valStr = m[1]
		} else {
			for _, l := range body {
				if t := strings.TrimSpace(l); t != "" {
					valStr = t
					break
				}
			}
		}
		raw = valueDelimiter.Split(valStr, -1)
	}
	return cleanValues(raw)
}

// inlineStates matches single-line "Name：a、b、c" definitions.
func inlineStates(content string) []models.CandidateState {
	var out []models.CandidateState
	for _, m := range inlineState.FindAllStringSubmatch(content, -1) {
		values, pairs := cleanValues(valueDelimiter.Split(m[2], -1))
		if len(values) == 0 {
			continue
		}
		out = append(out, models.CandidateState{Name: strings.TrimSpace(m[1]), Values: values, EnumPairs: pairs})
	}
	return out
}

// tableStates treats any parsed table carrying both a state-name
// column and a value/enum column as a list of state definitions.
func tableStates(content string) []models.CandidateState {
	var out []models.CandidateState
	for _, tb := range markdown.ParseTables(content) {
		headers := lowerAll(tb.Headers)
		nameIdx := findHeader(headers, isStateNameHeader)
		valueIdx := findHeader(headers, isStateValueHeader)
		if nameIdx < 0 || valueIdx < 0 {
			continue
		}
		for _, row := range tb.Rows {
			name := strings.TrimSpace(cell(row, nameIdx))
			if name == "" {
				continue
			}
			values, pairs := cleanValues(valueDelimiter.Split(cell(row, valueIdx), -1))
			if len(values) == 0 {
				continue
			}
			out = append(out, models.CandidateState{Name: name, Values: values, EnumPairs: pairs})
		}
	}
	return out
}

// Tables runs the regex pass for table definitions: any parsed
// Markdown table whose headers include both a field-name column and a
// type column becomes a candidate, named after its context label.
func Tables(content string) []models.CandidateTable {
	var out []models.CandidateTable
	seen := map[string]bool{}

	count := 0
	for _, tb := range markdown.ParseTables(content) {
		headers := lowerAll(tb.Headers)
		fieldIdx := findHeader(headers, isFieldNameHeader)
		typeIdx := findHeader(headers, isTypeHeader)
		if fieldIdx < 0 || typeIdx < 0 {
			continue
		}
		descIdx := findHeader(headers, isDescriptionHeader)
		reqIdx := findHeader(headers, isRequiredHeader)

		count++
		name := CleanTableName(tb.Context)
		if name == "" {
			name = "table " + strconv.Itoa(count)
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		var fields []models.CandidateField
		for _, row := range tb.Rows {
			fieldName := strings.TrimSpace(strings.ReplaceAll(cell(row, fieldIdx), "`", ""))
			if fieldName == "" {
				continue
			}
			rawType := strings.TrimSpace(strings.ReplaceAll(cell(row, typeIdx), "`", ""))
			field := models.CandidateField{
				Name: fieldName,
				Type: string(models.NormalizeFieldType(rawType)),
			}
			if descIdx >= 0 {
				field.Description = strings.TrimSpace(cell(row, descIdx))
			}
			if reqIdx >= 0 {
				field.Required = requiredText.MatchString(strings.TrimSpace(cell(row, reqIdx)))
			}
			fields = append(fields, field)
		}
		if len(fields) > 0 {
			out = append(out, models.CandidateTable{Name: name, Fields: fields})
		}
	}
	return out
}

// CleanTableName strips Markdown markup, numbering and generic table
// prefixes from a context label, preferring a backtick-quoted alias
// and appending a short parenthesized alias when present.
func CleanTableName(raw string) string {
	if m := backtickAlias.FindStringSubmatch(raw); m != nil {
		return strings.TrimSpace(m[1])
	}

	name := strings.TrimLeft(raw, "# ")
	name = strings.ReplaceAll(name, "*", "")
	name = strings.ReplaceAll(name, "`", "")
	name = leadingNumber.ReplaceAllString(name, "")
	name = tablePrefix.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)

	if m := parenAlias.FindStringSubmatch(name); m != nil && len([]rune(m[1])) < maxValueRunes {
		base := strings.TrimSpace(parenAlias.ReplaceAllString(name, ""))
		name = base + " (" + strings.TrimSpace(m[1]) + ")"
	}
	if name == "" {
		return strings.TrimSpace(raw)
	}
	return name
}

// cleanValues trims tokens, drops noise (empties and over-long runs),
// splits "key(code)" tokens into enum pairs, and caps the result.
// Enum pairs are returned only when at least one token carried a code.
func cleanValues(tokens []string) ([]string, []models.EnumPair) {
	var values []string
	var pairs []models.EnumPair
	hasCode := false

	for _, tok := range tokens {
		tok = strings.Trim(tok, "。.*` \t")
		if tok == "" || len([]rune(tok)) >= maxValueRunes {
			continue
		}
		key, code := tok, ""
		if m := enumPairToken.FindStringSubmatch(tok); m != nil {
			key = strings.TrimSpace(m[1])
			code = strings.TrimSpace(m[2])
			hasCode = true
		}
		values = append(values, key)
		pairs = append(pairs, models.EnumPair{Key: key, Value: code})
		if len(values) >= maxStateValues {
			break
		}
	}
	if !hasCode {
		pairs = nil
	}
	return values, pairs
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func lowerAll(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToLower(s)
	}
	return out
}

func findHeader(headers []string, match func(string) bool) int {
	for i, h := range headers {
		if match(h) {
			return i
		}
	}
	return -1
}

func isStateNameHeader(h string) bool {
	if strings.Contains(h, "状态") && (strings.Contains(h, "名") || strings.Contains(h, "类型") || strings.Contains(h, "name")) {
		return true
	}
	return (strings.Contains(h, "state") || strings.Contains(h, "status")) && strings.Contains(h, "name")
}

func isStateValueHeader(h string) bool {
	return strings.Contains(h, "值") || strings.Contains(h, "枚举") ||
		strings.Contains(h, "value") || strings.Contains(h, "enum")
}

func isFieldNameHeader(h string) bool {
	return strings.Contains(h, "字段") || strings.Contains(h, "列名") ||
		strings.Contains(h, "field") || strings.Contains(h, "column")
}

func isTypeHeader(h string) bool {
	return strings.Contains(h, "类型") || strings.Contains(h, "type")
}

func isDescriptionHeader(h string) bool {
	return strings.Contains(h, "描述") || strings.Contains(h, "说明") || strings.Contains(h, "备注") ||
		strings.Contains(h, "description") || strings.Contains(h, "comment")
}

func isRequiredHeader(h string) bool {
	return strings.Contains(h, "必填") || strings.Contains(h, "约束") || strings.Contains(h, "是否为空") ||
		strings.Contains(h, "required") || strings.Contains(h, "nullable") || strings.Contains(h, "constraint")
}
