package diffreview

import (
	"strconv"
	"strings"
)

// ContextLines is how many unchanged lines flank each hunk on both
// sides, clamped at document boundaries and at neighboring hunks.
const ContextLines = 3

// HunkStatus is the review state of one hunk. Pending hunks resolve as
// rejected at reconstruction time: an undecided change never silently
// rewrites the document.
type HunkStatus string

const (
	StatusPending  HunkStatus = "pending"
	StatusAccepted HunkStatus = "accepted"
	StatusRejected HunkStatus = "rejected"
)

// Hunk is one contiguous change region with its surrounding context.
// Display lines carry no trailing newline. spanStart/spanEnd bound the
// diff spans the hunk covers, inclusive.
type Hunk struct {
	ID            string     `json:"id"`
	ContextBefore []string   `json:"contextBefore"`
	Removed       []string   `json:"removed"`
	Added         []string   `json:"added"`
	ContextAfter  []string   `json:"contextAfter"`
	Status        HunkStatus `json:"status"`

	spanStart int
	spanEnd   int
}

// Review holds the diff between two versions of a document and the
// per-hunk decisions. Not safe for concurrent use.
type Review struct {
	spans []Span
	Hunks []Hunk
}

// NewReview diffs the two texts and slices the changes into hunks.
// Identical texts produce a review with no hunks.
func NewReview(oldText, newText string) *Review {
	spans := DiffLines(oldText, newText)
	return &Review{spans: spans, Hunks: buildHunks(spans)}
}

type taggedLine struct {
	text    string
	kind    SpanKind
	spanIdx int
}

func buildHunks(spans []Span) []Hunk {
	var lines []taggedLine
	for idx, span := range spans {
		for _, l := range span.Lines {
			lines = append(lines, taggedLine{
				text:    strings.TrimSuffix(l, "\n"),
				kind:    span.Kind,
				spanIdx: idx,
			})
		}
	}

	var hunks []Hunk
	i := 0
	for i < len(lines) {
		if lines[i].kind == SpanEqual {
			i++
			continue
		}

		blockStart := i
		for i < len(lines) && lines[i].kind != SpanEqual {
			i++
		}
		blockEnd := i

		ctxStart := blockStart - ContextLines
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := blockEnd + ContextLines
		if ctxEnd > len(lines) {
			ctxEnd = len(lines)
		}

		hunk := Hunk{
			ID:        "hunk-" + strconv.Itoa(len(hunks)),
			Status:    StatusPending,
			spanStart: lines[blockStart].spanIdx,
			spanEnd:   lines[blockEnd-1].spanIdx,
		}
		for _, l := range lines[ctxStart:blockStart] {
			hunk.ContextBefore = append(hunk.ContextBefore, l.text)
		}
		for _, l := range lines[blockStart:blockEnd] {
			switch l.kind {
			case SpanRemoved:
				hunk.Removed = append(hunk.Removed, l.text)
			case SpanAdded:
				hunk.Added = append(hunk.Added, l.text)
			}
		}
		for _, l := range lines[blockEnd:ctxEnd] {
			hunk.ContextAfter = append(hunk.ContextAfter, l.text)
		}
		hunks = append(hunks, hunk)
	}

	return hunks
}

// SetStatus updates one hunk's review state; any transition between
// the three states is allowed. Returns false for an unknown id.
func (r *Review) SetStatus(id string, status HunkStatus) bool {
	for i := range r.Hunks {
		if r.Hunks[i].ID == id {
			r.Hunks[i].Status = status
			return true
		}
	}
	return false
}

// AcceptAll marks every hunk accepted.
func (r *Review) AcceptAll() {
	for i := range r.Hunks {
		r.Hunks[i].Status = StatusAccepted
	}
}

// RejectAll marks every hunk rejected.
func (r *Review) RejectAll() {
	for i := range r.Hunks {
		r.Hunks[i].Status = StatusRejected
	}
}

// Progress reports how many hunks are decided and accepted.
func (r *Review) Progress() (decided, accepted, total int) {
	for _, h := range r.Hunks {
		if h.Status != StatusPending {
			decided++
		}
		if h.Status == StatusAccepted {
			accepted++
		}
	}
	return decided, accepted, len(r.Hunks)
}

// Result reconstructs the output document. Unchanged spans are always
// kept; each hunk is emitted once, taking the new lines when accepted
// and the original lines otherwise.
func (r *Review) Result() string {
	hunkBySpan := make(map[int]*Hunk)
	for i := range r.Hunks {
		h := &r.Hunks[i]
		for si := h.spanStart; si <= h.spanEnd; si++ {
			hunkBySpan[si] = h
		}
	}

	var b strings.Builder
	emitted := make(map[string]bool)

	for idx, span := range r.spans {
		if span.Kind == SpanEqual {
			for _, l := range span.Lines {
				b.WriteString(l)
			}
			continue
		}

		hunk := hunkBySpan[idx]
		if hunk == nil {
			if span.Kind == SpanRemoved {
				for _, l := range span.Lines {
					b.WriteString(l)
				}
			}
			continue
		}
		if emitted[hunk.ID] {
			continue
		}
		emitted[hunk.ID] = true

		accepted := hunk.Status == StatusAccepted
		for _, s := range r.spans[hunk.spanStart : hunk.spanEnd+1] {
			if accepted && s.Kind == SpanRemoved {
				continue
			}
			if !accepted && s.Kind == SpanAdded {
				continue
			}
			for _, l := range s.Lines {
				b.WriteString(l)
			}
		}
	}

	return b.String()
}
