// Package diffreview splits a line-level diff between two document
// versions into independently reviewable hunks and reconstructs a
// final document from the per-hunk decisions.
package diffreview

import "strings"

// SpanKind tags a run of lines in the line diff.
type SpanKind int

const (
	SpanEqual SpanKind = iota
	SpanRemoved
	SpanAdded
)

// Span is a maximal run of same-kind lines. Lines keep their trailing
// newline so concatenating spans reproduces the source text exactly,
// including a missing final newline.
type Span struct {
	Kind  SpanKind
	Lines []string
}

// DiffLines computes a longest-common-subsequence line diff between
// two texts. Adjacent same-kind lines are coalesced; within a replace
// region removed lines precede added ones.
func DiffLines(oldText, newText string) []Span {
	oldLines := splitKeepNewlines(oldText)
	newLines := splitKeepNewlines(newText)

	n, m := len(oldLines), len(newLines)

	// lcs[i][j] = LCS length of oldLines[i:] and newLines[j:].
	lcs := make([][]int, n+1)
	for i := range lcs {
		lcs[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if oldLines[i] == newLines[j] {
				lcs[i][j] = lcs[i+1][j+1] + 1
			} else if lcs[i+1][j] >= lcs[i][j+1] {
				lcs[i][j] = lcs[i+1][j]
			} else {
				lcs[i][j] = lcs[i][j+1]
			}
		}
	}

	var spans []Span
	push := func(kind SpanKind, line string) {
		if len(spans) > 0 && spans[len(spans)-1].Kind == kind {
			last := &spans[len(spans)-1]
			last.Lines = append(last.Lines, line)
			return
		}
		spans = append(spans, Span{Kind: kind, Lines: []string{line}})
	}

	i, j := 0, 0
	for i < n && j < m {
		switch {
		case oldLines[i] == newLines[j]:
			push(SpanEqual, oldLines[i])
			i++
			j++
		case lcs[i+1][j] >= lcs[i][j+1]:
			push(SpanRemoved, oldLines[i])
			i++
		default:
			push(SpanAdded, newLines[j])
			j++
		}
	}
	for ; i < n; i++ {
		push(SpanRemoved, oldLines[i])
	}
	for ; j < m; j++ {
		push(SpanAdded, newLines[j])
	}

	return spans
}

// splitKeepNewlines splits text into lines that retain their trailing
// "\n". The final line is newline-less when the text is.
func splitKeepNewlines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
