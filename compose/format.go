package compose

import (
	"regexp"
	"strings"

	"github.com/fwojciec/docchat"
)

// trailingFenceRe matches a line that ends in a fence marker, optionally
// followed by a language, after other text.
var trailingFenceRe = regexp.MustCompile("^(.*\\S)[ \\t]*((?:```|~~~)[\\w+#.-]*)[ \\t]*$")

// DefaultLanguage is assigned to code blocks that declare none.
const DefaultLanguage = "text"

// FormatCode normalizes fenced code blocks in generated text: fence markers
// trailing other text are moved to their own line, opening fences without a
// language get DefaultLanguage, and a block left open is closed at the end.
// Code content is never removed.
func FormatCode(text string) string {
	if !strings.Contains(text, "```") && !strings.Contains(text, "~~~") {
		return text
	}

	var out []string
	var open *docchat.Fence

	for _, line := range strings.Split(text, "\n") {
		if open != nil && outdented(line, *open) {
			out = closeBeforeBlanks(out, *open)
			open = nil
		}
		for _, l := range splitTrailingFence(line, open != nil) {
			f, ok := docchat.ParseFence(l)
			switch {
			case !ok:
				out = append(out, l)
			case open == nil:
				if f.Info == "" {
					l = strings.TrimRight(l, " \t") + DefaultLanguage
				}
				open = &f
				out = append(out, l)
			case f.Closes(*open):
				open = nil
				out = append(out, l)
			default:
				out = append(out, l)
			}
		}
	}

	if open != nil {
		if len(out) > 0 && out[len(out)-1] == "" {
			out = out[:len(out)-1]
		}
		out = append(out, open.Closing())
	}

	return strings.Join(out, "\n")
}

// outdented reports whether line is text indented less than the fence open,
// which ends the list item holding the fence. A closing fence is not.
func outdented(line string, open docchat.Fence) bool {
	if f, ok := docchat.ParseFence(line); ok && f.Closes(open) {
		return false
	}
	trimmed := strings.TrimLeft(line, " ")
	return open.Indent > 0 && strings.TrimSpace(trimmed) != "" && len(line)-len(trimmed) < open.Indent
}

// closeBeforeBlanks appends the closing fence for open ahead of any trailing
// blank lines in out.
func closeBeforeBlanks(out []string, open docchat.Fence) []string {
	n := len(out)
	for n > 0 && strings.TrimSpace(out[n-1]) == "" {
		n--
	}
	blanks := append([]string(nil), out[n:]...)
	return append(append(out[:n], open.Closing()), blanks...)
}

// splitTrailingFence splits "text ```lang" into "text" and "```lang". Inside
// a code block only a bare closing marker is split off.
func splitTrailingFence(line string, inCode bool) []string {
	if _, ok := docchat.ParseFence(line); ok {
		return []string{line}
	}
	m := trailingFenceRe.FindStringSubmatch(line)
	if m == nil {
		return []string{line}
	}
	fence := m[2]
	if inCode && strings.Trim(fence, "`~") != "" {
		return []string{line}
	}
	// Ignore inline code spans such as "use `x`" that merely end in backticks.
	if strings.Count(m[1], string(fence[0])) > 0 {
		return []string{line}
	}
	return []string{m[1], fence}
}
