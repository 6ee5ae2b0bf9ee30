// Package chunk segments extracted documents into retrievable chunks.
//
// Segmentation follows the document structure: chunks never cross section
// boundaries, long sections are split between paragraphs, and fenced code
// blocks are always kept whole.
package chunk

import (
	"strings"

	"github.com/fwojciec/docchat"
)

// Default segmentation limits, in bytes.
const (
	DefaultMaxSize       = 1000
	DefaultMergeProseMax = 300
)

// Chunker splits documents into chunk drafts. The zero value uses the
// default limits.
type Chunker struct {
	// MaxSize is the preferred upper bound of a prose chunk. A single
	// paragraph or code block larger than MaxSize is emitted whole.
	MaxSize int

	// MergeProseMax is the largest prose paragraph that is merged into a
	// following code chunk as context.
	MergeProseMax int
}

func (c *Chunker) maxSize() int {
	if c.MaxSize > 0 {
		return c.MaxSize
	}
	return DefaultMaxSize
}

func (c *Chunker) mergeProseMax() int {
	if c.MergeProseMax > 0 {
		return c.MergeProseMax
	}
	return DefaultMergeProseMax
}

// Segment splits doc into drafts with dense positions starting at 0.
// Segmenting the same document always yields the same drafts.
func (c *Chunker) Segment(doc *docchat.Document) []docchat.ChunkDraft {
	doc = closeUnterminated(doc)
	text := doc.Text

	var drafts []docchat.ChunkDraft
	emit := func(sec section, kind docchat.ChunkKind, lang, content string) {
		drafts = append(drafts, docchat.ChunkDraft{
			SectionPath: sec.path,
			Anchor:      sec.anchor,
			Position:    len(drafts),
			Kind:        kind,
			Language:    lang,
			Content:     content,
		})
	}

	spans := make(map[int]docchat.CodeSpan, len(doc.CodeSpans))
	for _, span := range doc.CodeSpans {
		spans[span.Start] = span
	}

	for _, sec := range sections(doc) {
		p := packer{
			chunker: c,
			header:  sec.title,
			emit: func(kind docchat.ChunkKind, lang, content string) {
				emit(sec, kind, lang, content)
			},
		}
		for _, b := range splitBlocks(text[sec.start:sec.end], sec.start, spans) {
			p.add(b)
		}
		p.flush()
	}

	return drafts
}

// section is a heading-delimited byte range of the document body, heading
// line excluded.
type section struct {
	title  string
	anchor string
	path   []string
	start  int
	end    int
}

// sections returns the preamble followed by one section per heading.
func sections(doc *docchat.Document) []section {
	var root []string
	if doc.Title != "" {
		root = []string{doc.Title}
	}

	end := len(doc.Text)
	if len(doc.Sections) > 0 {
		end = doc.Sections[0].Offset
	}
	out := []section{{path: root, start: 0, end: end}}

	type frame struct {
		level int
		title string
	}
	var stack []frame

	for i, s := range doc.Sections {
		for len(stack) > 0 && stack[len(stack)-1].level >= s.Level {
			stack = stack[:len(stack)-1]
		}
		stack = append(stack, frame{level: s.Level, title: s.Title})

		path := make([]string, 0, len(root)+len(stack))
		path = append(path, root...)
		for j, f := range stack {
			// Avoid repeating the document title when the first heading
			// restates it.
			if j == 0 && len(root) == 1 && f.title == root[0] {
				continue
			}
			path = append(path, f.title)
		}

		start := s.Offset
		if nl := strings.IndexByte(doc.Text[start:], '\n'); nl >= 0 {
			start += nl + 1
		} else {
			start = len(doc.Text)
		}
		end := len(doc.Text)
		if i+1 < len(doc.Sections) {
			end = doc.Sections[i+1].Offset
		}

		out = append(out, section{
			title:  s.Title,
			anchor: s.Anchor,
			path:   path,
			start:  start,
			end:    end,
		})
	}

	return out
}
