package goquery_test

import (
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ docchat.Cleaner = (*goquery.Cleaner)(nil)

func TestCleaner_Clean(t *testing.T) {
	t.Parallel()

	t.Run("removes scripts, styles and page chrome", func(t *testing.T) {
		t.Parallel()

		html := `<!DOCTYPE html>
<html>
<head><title>Guide</title><style>body { color: red; }</style></head>
<body>
<header><a href="/">Home</a></header>
<nav><a href="/docs">Docs</a></nav>
<main>
	<h1>Install</h1>
	<p>Run the installer.</p>
	<script>track()</script>
</main>
<footer>Copyright</footer>
</body>
</html>`

		cleaned, title, err := goquery.NewCleaner().Clean(html)
		require.NoError(t, err)

		assert.Equal(t, "Guide", title)
		assert.Contains(t, cleaned, "Run the installer.")
		assert.Contains(t, cleaned, "<h1>Install</h1>")
		assert.NotContains(t, cleaned, "track()")
		assert.NotContains(t, cleaned, "color: red")
		assert.NotContains(t, cleaned, "Copyright")
		assert.NotContains(t, cleaned, `href="/docs"`)
		assert.NotContains(t, cleaned, `href="/"`)
	})

	t.Run("keeps article headers", func(t *testing.T) {
		t.Parallel()

		html := `<html><body><article><header><h1>Usage</h1></header><p>Call Run().</p></article></body></html>`

		cleaned, _, err := goquery.NewCleaner().Clean(html)
		require.NoError(t, err)

		assert.Contains(t, cleaned, "<h1>Usage</h1>")
	})

	t.Run("removes framework sidebars", func(t *testing.T) {
		t.Parallel()

		html := `<html><body>
<div class="theme-doc-sidebar-container"><ul><li>Sidebar entry</li></ul></div>
<article><h1>Intro</h1><div class="table-of-contents">On this page</div><p>Body text.</p></article>
</body></html>`

		cleaned, _, err := goquery.NewCleaner().Clean(html)
		require.NoError(t, err)

		assert.NotContains(t, cleaned, "Sidebar entry")
		assert.NotContains(t, cleaned, "On this page")
		assert.Contains(t, cleaned, "Body text.")
	})

	t.Run("falls back to the first H1 for the title", func(t *testing.T) {
		t.Parallel()

		_, title, err := goquery.NewCleaner().Clean(`<html><body><h1>  Getting
		Started </h1></body></html>`)
		require.NoError(t, err)

		assert.Equal(t, "Getting Started", title)
	})

	t.Run("reports Untitled without title or H1", func(t *testing.T) {
		t.Parallel()

		_, title, err := goquery.NewCleaner().Clean(`<html><body><p>text</p></body></html>`)
		require.NoError(t, err)

		assert.Equal(t, goquery.UntitledTitle, title)
	})
}
