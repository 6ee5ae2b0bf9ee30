// Package goquery implements HTML cleanup with PuerkitoBio/goquery.
package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docchat"
)

// UntitledTitle is reported for pages with neither a title nor an H1.
const UntitledTitle = "Untitled"

// boilerplate is removed from every page.
var boilerplate = []string{
	"script", "style", "noscript", "template", "iframe", "svg",
	"nav", "aside",
	"[role='banner']", "[role='contentinfo']", "[aria-hidden='true']",
}

var _ docchat.Cleaner = (*Cleaner)(nil)

// Cleaner strips scripts, styles and page chrome from documentation pages.
// Chrome specific to the detected documentation framework (sidebars, page
// tables of contents, edit links) is removed as well.
type Cleaner struct{}

// NewCleaner creates a new Cleaner.
func NewCleaner() *Cleaner {
	return &Cleaner{}
}

// Clean returns the cleaned HTML and the page title. The title comes from
// the title element, else the first H1, else UntitledTitle.
func (c *Cleaner) Clean(html string) (string, string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", "", docchat.Errorf(docchat.EINVALID, "failed to parse HTML: %v", err)
	}

	title := Title(doc)

	if chrome := chromeSelectors(Detect(doc)); len(chrome) > 0 {
		doc.Find(strings.Join(chrome, ", ")).Remove()
	}
	doc.Find(strings.Join(boilerplate, ", ")).Remove()

	// Page headers and footers are chrome; those of an article are content.
	doc.Find("header, footer").Each(func(_ int, s *goquery.Selection) {
		if s.Closest("article, main").Length() == 0 {
			s.Remove()
		}
	})

	out, err := doc.Html()
	if err != nil {
		return "", "", docchat.Errorf(docchat.EINTERNAL, "failed to render HTML: %v", err)
	}
	return out, title, nil
}

// Title returns the page title, falling back to the first H1 and then to
// UntitledTitle.
func Title(doc *goquery.Document) string {
	if t := collapse(doc.Find("head title").First().Text()); t != "" {
		return t
	}
	if t := collapse(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return UntitledTitle
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
