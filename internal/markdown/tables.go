// Package markdown locates pipe-delimited tables in raw Markdown text.
// It is a pure, single-pass line scanner with no dependencies; the
// extractor and the injector both build on it.
package markdown

import (
	"regexp"
	"strings"
)

// contextWindow is how many lines above a table are searched for a
// context label.
const contextWindow = 5

var separatorCell = regexp.MustCompile(`^[-:]+$`)

// Table is one parsed pipe table. StartLine/EndLine are indices into
// the source's line slice: the header line and the line one past the
// last row, so lines[StartLine:EndLine] is the whole block.
type Table struct {
	Headers   []string
	Rows      [][]string
	Context   string
	StartLine int
	EndLine   int
}

// ParseTables scans content for pipe tables. A table begins at a line
// starting with "|" whose next line is a separator row (cells of "-"
// and ":"); subsequent "|" lines are data rows until the first
// non-pipe line. Rows made entirely of separator-like cells are
// dropped. Tables are returned in document order; nesting is not
// supported and the first match wins.
func ParseTables(content string) []Table {
	return parseLines(SplitLines(content))
}

// SplitLines splits content on newlines without trailing-newline
// normalization tricks; callers that splice lines back together join
// with "\n".
func SplitLines(content string) []string {
	return strings.Split(content, "\n")
}

func parseLines(lines []string) []Table {
	var tables []Table

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !isTableStart(line, lines, i) {
			i++
			continue
		}

		headers := splitCells(line)
		context := contextLabel(lines, i)

		rows := [][]string{}
		k := i + 2
		for k < len(lines) {
			rowLine := strings.TrimSpace(lines[k])
			if !strings.HasPrefix(rowLine, "|") {
				break
			}
			cells := splitCells(rowLine)
			if len(cells) > 0 && !allSeparatorCells(cells) {
				rows = append(rows, cells)
			}
			k++
		}

		tables = append(tables, Table{
			Headers:   headers,
			Rows:      rows,
			Context:   context,
			StartLine: i,
			EndLine:   k,
		})
		i = k
	}

	return tables
}

// isTableStart reports whether lines[i] opens a table: a pipe line
// followed by a separator line.
func isTableStart(trimmed string, lines []string, i int) bool {
	if !strings.HasPrefix(trimmed, "|") || strings.Index(trimmed[1:], "|") < 0 {
		return false
	}
	if i+1 >= len(lines) {
		return false
	}
	next := strings.TrimSpace(lines[i+1])
	if !strings.HasPrefix(next, "|") {
		return false
	}
	cells := splitCells(next)
	return len(cells) > 0 && allSeparatorCells(cells)
}

// contextLabel finds the nearest non-table, non-blank line within the
// context window above the table, preferring nothing over table rows.
// Heading markers, emphasis and backticks are stripped.
func contextLabel(lines []string, tableStart int) string {
	low := tableStart - contextWindow
	if low < 0 {
		low = 0
	}
	for j := tableStart - 1; j >= low; j-- {
		prev := strings.TrimSpace(lines[j])
		if prev == "" || strings.HasPrefix(prev, "|") {
			continue
		}
		if strings.HasPrefix(prev, "#") {
			return strings.TrimSpace(strings.TrimLeft(prev, "# "))
		}
		if len([]rune(prev)) > 2 {
			prev = strings.ReplaceAll(prev, "*", "")
			prev = strings.ReplaceAll(prev, "`", "")
			return strings.TrimSpace(prev)
		}
	}
	return ""
}

// splitCells splits a pipe row into trimmed cell strings, dropping the
// empty leading/trailing fragments produced by the outer pipes.
func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	cells := make([]string, 0, len(parts))
	for idx, p := range parts {
		if idx == 0 || idx == len(parts)-1 {
			// Outside the outer pipes; keep only if non-empty
			// (handles rows without a trailing pipe).
			if strings.TrimSpace(p) == "" {
				continue
			}
		}
		cells = append(cells, strings.TrimSpace(p))
	}
	return cells
}

func allSeparatorCells(cells []string) bool {
	for _, c := range cells {
		if c == "" {
			continue
		}
		if !separatorCell.MatchString(c) {
			return false
		}
	}
	return true
}
