package docchat

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+?)\s*#*\s*$`)

// Section represents a heading in a markdown document.
type Section struct {
	Level  int    `json:"level"`
	Title  string `json:"title"`
	Anchor string `json:"anchor"`

	// Offset is the byte offset of the heading line in the document text.
	Offset int `json:"offset"`
}

// ExtractSections parses markdown and returns all headings (H1-H6) outside
// fenced code blocks. It generates URL-safe anchors and handles duplicates
// with numeric suffixes.
func ExtractSections(markdown string) []Section {
	if markdown == "" {
		return nil
	}
	return ParseDocument("", "", markdown).Sections
}

// anchorSet assigns unique anchors within one document.
type anchorSet map[string]int

func (a anchorSet) next(title string) string {
	base := generateAnchor(title)
	if count, exists := a[base]; exists {
		a[base]++
		return base + "-" + strconv.Itoa(count)
	}
	a[base] = 1
	return base
}

// parseHeading returns the level and title of an ATX heading line.
func parseHeading(line string) (int, string, bool) {
	m := headingRe.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	return len(m[1]), strings.TrimSpace(m[2]), true
}

// generateAnchor creates a URL-safe anchor from a title.
// Converts to lowercase, replaces spaces with hyphens, removes special chars.
func generateAnchor(title string) string {
	var sb strings.Builder
	prevHyphen := false

	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			sb.WriteRune(r)
			prevHyphen = false
		} else if unicode.IsSpace(r) || r == '-' {
			if !prevHyphen && sb.Len() > 0 {
				sb.WriteRune('-')
				prevHyphen = true
			}
		}
	}

	result := sb.String()
	// Trim trailing hyphen
	return strings.TrimSuffix(result, "-")
}
