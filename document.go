package docchat

import (
	"strings"
)

// Document is extracted documentation ready for segmentation: normalized
// Markdown text plus a structural map of its headings and code blocks.
type Document struct {
	SourceURL string     `json:"sourceUrl"`
	Title     string     `json:"title"`
	Text      string     `json:"text"`
	Sections  []Section  `json:"sections,omitempty"`
	CodeSpans []CodeSpan `json:"codeSpans,omitempty"`
}

// CodeSpan is the byte range of a fenced code block within Document.Text,
// fences included.
type CodeSpan struct {
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Language string `json:"language,omitempty"`

	// Unterminated is set when the opening fence is never closed. End is then
	// the end of the text.
	Unterminated bool `json:"unterminated,omitempty"`
}

// Line is a line of text with its byte offsets. End excludes the newline.
type Line struct {
	Text  string
	Start int
	End   int
}

// SplitLines splits s into lines with their byte offsets.
func SplitLines(s string) []Line {
	if s == "" {
		return nil
	}
	var lines []Line
	start := 0
	for start <= len(s) {
		i := strings.IndexByte(s[start:], '\n')
		if i < 0 {
			if start < len(s) {
				lines = append(lines, Line{Text: s[start:], Start: start, End: len(s)})
			}
			break
		}
		lines = append(lines, Line{Text: s[start : start+i], Start: start, End: start + i})
		start += i + 1
	}
	return lines
}

// Fence describes a code fence line. Indent is the number of leading
// spaces; fences nested in list items are indented to the item's content.
type Fence struct {
	Marker byte
	Length int
	Info   string
	Indent int
}

// ParseFence reports whether line is a code fence (``` or ~~~) and returns
// its marker, length, info string and indentation.
func ParseFence(line string) (Fence, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(trimmed) < 3 {
		return Fence{}, false
	}
	marker := trimmed[0]
	if marker != '`' && marker != '~' {
		return Fence{}, false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == marker {
		n++
	}
	if n < 3 {
		return Fence{}, false
	}
	info := strings.TrimSpace(trimmed[n:])
	if marker == '`' && strings.ContainsRune(info, '`') {
		return Fence{}, false
	}
	return Fence{Marker: marker, Length: n, Info: info, Indent: len(line) - len(trimmed)}, true
}

// Closes reports whether f, read as a candidate closing fence, closes the
// opening fence open. A closing fence may not be indented deeper than the
// opening one, except by the three spaces allowed at top level.
func (f Fence) Closes(open Fence) bool {
	return f.Marker == open.Marker && f.Length >= open.Length && f.Info == "" &&
		f.Indent <= max(open.Indent, 3)
}

// Closing returns the closing fence line for f, at the same indentation.
func (f Fence) Closing() string {
	return strings.Repeat(" ", f.Indent) + strings.Repeat(string(f.Marker), f.Length)
}

// Language returns the first word of the info string.
func (f Fence) Language() string {
	if i := strings.IndexAny(f.Info, " \t{"); i >= 0 {
		return f.Info[:i]
	}
	return f.Info
}

// ParseDocument builds the structural map for a Markdown text. Headings
// inside code blocks are ignored. An opening fence that is never closed
// yields an Unterminated span rather than an error.
func ParseDocument(sourceURL, title, markdown string) *Document {
	doc := &Document{
		SourceURL: sourceURL,
		Title:     strings.TrimSpace(title),
		Text:      markdown,
	}

	anchors := make(anchorSet)
	var open *Fence
	var span CodeSpan

	for _, line := range SplitLines(markdown) {
		if open != nil {
			if f, ok := ParseFence(line.Text); ok && f.Closes(*open) {
				span.End = line.End
				if span.End < len(markdown) {
					span.End++ // include newline
				}
				doc.CodeSpans = append(doc.CodeSpans, span)
				open = nil
			}
			continue
		}

		if f, ok := ParseFence(line.Text); ok {
			open = &f
			span = CodeSpan{Start: line.Start, Language: f.Language()}
			continue
		}

		if level, text, ok := parseHeading(line.Text); ok {
			doc.Sections = append(doc.Sections, Section{
				Level:  level,
				Title:  text,
				Anchor: anchors.next(text),
				Offset: line.Start,
			})
		}
	}

	if open != nil {
		span.End = len(markdown)
		span.Unterminated = true
		doc.CodeSpans = append(doc.CodeSpans, span)
	}

	return doc
}
