package tabs

import (
	"strings"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Chunk is one changed run of text.
type Chunk struct {
	Type    string `json:"type"` // "added" or "removed"
	Content string `json:"content"`
}

// ResponseDiff compares a response body with the previous one.
type ResponseDiff struct {
	Changed bool    `json:"changed"`
	Added   int     `json:"added"`
	Removed int     `json:"removed"`
	Chunks  []Chunk `json:"chunks,omitempty"`
}

// maxChunks bounds the chunks kept per diff.
const maxChunks = 50

// DiffBodies computes a character diff between two response bodies.
// Added and Removed count runes.
func DiffBodies(previous, current string) *ResponseDiff {
	if previous == current {
		return &ResponseDiff{}
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(previous, current, true)
	diffs = dmp.DiffCleanupSemantic(diffs)

	out := &ResponseDiff{Changed: true}
	for _, d := range diffs {
		var kind string
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			kind = "added"
			out.Added += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffDelete:
			kind = "removed"
			out.Removed += utf8.RuneCountInString(d.Text)
		case diffmatchpatch.DiffEqual:
			continue
		}
		if strings.TrimSpace(d.Text) != "" && len(out.Chunks) < maxChunks {
			out.Chunks = append(out.Chunks, Chunk{Type: kind, Content: d.Text})
		}
	}
	return out
}
