package goquery

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Framework identifies the documentation generator that produced a page.
type Framework string

// Known frameworks.
const (
	FrameworkUnknown    Framework = ""
	FrameworkDocusaurus Framework = "docusaurus"
	FrameworkMkDocs     Framework = "mkdocs"
	FrameworkSphinx     Framework = "sphinx"
	FrameworkVitePress  Framework = "vitepress"
	FrameworkVuePress   Framework = "vuepress"
	FrameworkGitBook    Framework = "gitbook"
	FrameworkNextra     Framework = "nextra"
)

// frameworkProfile holds the markers that identify a framework and the
// page chrome it renders around the documentation.
type frameworkProfile struct {
	framework Framework
	markers   []string
	chrome    []string
}

// profiles are checked in order. VitePress precedes VuePress since it
// reuses some VuePress markup.
var profiles = []frameworkProfile{
	{
		framework: FrameworkDocusaurus,
		markers:   []string{"#__docusaurus_skipToContent_fallback", ".theme-doc-sidebar-container"},
		chrome:    []string{".theme-doc-sidebar-container", ".table-of-contents", ".theme-doc-toc-mobile", ".theme-edit-this-page", ".pagination-nav", ".theme-doc-breadcrumbs"},
	},
	{
		framework: FrameworkMkDocs,
		markers:   []string{"[data-md-color-scheme]", "[data-md-component]", ".md-nav--primary"},
		chrome:    []string{".md-sidebar", ".md-header", ".md-tabs", ".md-footer", ".md-source", ".md-content__button"},
	},
	{
		framework: FrameworkSphinx,
		markers:   []string{".toctree-wrapper", ".wy-nav-side", ".wy-menu-vertical", ".sphinxsidebar"},
		chrome:    []string{".sphinxsidebar", ".wy-nav-side", ".rst-versions", ".related", ".headerlink", "[role='navigation']"},
	},
	{
		framework: FrameworkVitePress,
		markers:   []string{"#VPContent", ".VPDoc", ".VPDocAsideOutline"},
		chrome:    []string{".VPNav", ".VPSidebar", ".VPDocAside", ".VPDocFooter", ".VPLocalNav", ".header-anchor"},
	},
	{
		framework: FrameworkVuePress,
		markers:   []string{".theme-default-content", ".sidebar-links", ".vuepress-navbar"},
		chrome:    []string{".navbar", ".sidebar", ".page-edit", ".page-nav", ".header-anchor"},
	},
	{
		framework: FrameworkGitBook,
		markers:   []string{"[data-testid='space.sidebar']", "[data-testid='page.desktopTableOfContents']"},
		chrome:    []string{"[data-testid='space.sidebar']", "[data-testid='page.desktopTableOfContents']"},
	},
	{
		framework: FrameworkNextra,
		markers:   []string{".nextra-navbar", ".nextra-sidebar", ".nextra-toc"},
		chrome:    []string{".nextra-navbar", ".nextra-sidebar-container", ".nextra-sidebar", ".nextra-toc", ".nextra-breadcrumb"},
	},
}

// Detect returns the framework that generated doc. The meta generator tag
// wins over markup markers.
func Detect(doc *goquery.Document) Framework {
	if generator, ok := doc.Find("meta[name='generator']").Last().Attr("content"); ok {
		generator = strings.ToLower(generator)
		for _, f := range []Framework{FrameworkSphinx, FrameworkGitBook, FrameworkDocusaurus, FrameworkMkDocs, FrameworkVitePress, FrameworkVuePress, FrameworkNextra} {
			if strings.Contains(generator, string(f)) {
				return f
			}
		}
	}

	for _, p := range profiles {
		for _, m := range p.markers {
			if doc.Find(m).Length() > 0 {
				return p.framework
			}
		}
	}

	if hasGitBookClasses(doc) {
		return FrameworkGitBook
	}
	return FrameworkUnknown
}

// hasGitBookClasses reports whether the html element carries at least two
// of GitBook's theme classes.
func hasGitBookClasses(doc *goquery.Document) bool {
	class, _ := doc.Find("html").Attr("class")
	count := 0
	for _, c := range []string{"circular-corners", "theme-clean", "tint"} {
		if strings.Contains(class, c) {
			count++
		}
	}
	return count >= 2
}

func chromeSelectors(f Framework) []string {
	for _, p := range profiles {
		if p.framework == f {
			return p.chrome
		}
	}
	return nil
}
