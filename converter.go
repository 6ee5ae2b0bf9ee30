package docchat

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms clean HTML (e.g., from an Extractor) into Markdown.
	// Headings must become ATX headings and code blocks fenced blocks so
	// that ParseDocument can recover the document structure.
	Convert(html string) (string, error)
}
