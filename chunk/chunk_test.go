package chunk_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/chunk"
	"github.com/fwojciec/docchat/htmltomarkdown"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func segment(c *chunk.Chunker, title, markdown string) []docchat.ChunkDraft {
	return c.Segment(docchat.ParseDocument("https://example.com/doc", title, markdown))
}

func TestChunker_Segment(t *testing.T) {
	t.Parallel()

	t.Run("one chunk per section", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{}, "", "# Install\n\nRun the installer.\n\n# Usage\n\nCall it.\n")

		require.Len(t, drafts, 2)
		assert.Equal(t, []string{"Install"}, drafts[0].SectionPath)
		assert.Equal(t, "install", drafts[0].Anchor)
		assert.Equal(t, "Install\n\nRun the installer.", drafts[0].Content)
		assert.Equal(t, docchat.ChunkProse, drafts[0].Kind)
		assert.Equal(t, []string{"Usage"}, drafts[1].SectionPath)
		assert.Equal(t, 1, drafts[1].Position)
	})

	t.Run("splits long sections at paragraph boundaries", func(t *testing.T) {
		t.Parallel()

		a, b, c := strings.Repeat("a", 30), strings.Repeat("b", 30), strings.Repeat("c", 30)
		markdown := "# Guide\n\n" + a + "\n\n" + b + "\n\n" + c + "\n"

		drafts := segment(&chunk.Chunker{MaxSize: 60}, "", markdown)

		require.Len(t, drafts, 3)
		assert.Equal(t, "Guide\n\n"+a, drafts[0].Content)
		assert.Equal(t, "Guide (continued)\n\n"+b, drafts[1].Content)
		assert.Equal(t, "Guide (continued)\n\n"+c, drafts[2].Content)
		for i, d := range drafts {
			assert.Equal(t, []string{"Guide"}, d.SectionPath)
			assert.Equal(t, "guide", d.Anchor)
			assert.Equal(t, i, d.Position)
		}
	})

	t.Run("keeps an oversized paragraph whole", func(t *testing.T) {
		t.Parallel()

		para := strings.Repeat("word ", 20)

		drafts := segment(&chunk.Chunker{MaxSize: 20}, "", para)

		require.Len(t, drafts, 1)
		assert.Equal(t, strings.TrimSpace(para), drafts[0].Content)
	})

	t.Run("never splits a code block", func(t *testing.T) {
		t.Parallel()

		var code strings.Builder
		code.WriteString("```python\n")
		for i := 0; i < 50; i++ {
			fmt.Fprintf(&code, "print(%d)\n", i)
		}
		code.WriteString("```")
		markdown := "# Example\n\n" + code.String() + "\n"

		drafts := segment(&chunk.Chunker{MaxSize: 100}, "", markdown)

		require.Len(t, drafts, 1)
		assert.Equal(t, docchat.ChunkCode, drafts[0].Kind)
		assert.Equal(t, "python", drafts[0].Language)
		assert.Equal(t, code.String(), drafts[0].Content)
	})

	t.Run("keeps a code block nested in a list item whole", func(t *testing.T) {
		t.Parallel()

		markdown := "# Setup\n\n- Install:\n\n    ```bash\n    make deps\n\n    make install\n    ```\n\n- Done.\n"

		drafts := segment(&chunk.Chunker{MaxSize: 20, MergeProseMax: 1}, "", markdown)

		var code []docchat.ChunkDraft
		for _, d := range drafts {
			if d.Kind == docchat.ChunkCode {
				code = append(code, d)
			}
		}
		require.Len(t, code, 1)
		assert.Equal(t, "bash", code[0].Language)
		assert.Contains(t, code[0].Content, "make deps\n\n    make install")
	})

	t.Run("keeps converted nested list code whole", func(t *testing.T) {
		t.Parallel()

		var src strings.Builder
		for i := 0; i < 50; i++ {
			fmt.Fprintf(&src, "x%d := %d\n", i, i)
			if i%10 == 9 {
				src.WriteString("\n")
			}
		}
		html := `<h1>Setup</h1><ul><li>Setup<ul><li>Run this:<pre><code class="language-go">` +
			src.String() + `</code></pre></li></ul></li></ul>`
		markdown, err := htmltomarkdown.NewConverter().Convert(html)
		require.NoError(t, err)

		doc := docchat.ParseDocument("https://example.com/doc", "", markdown)
		require.Len(t, doc.CodeSpans, 1)
		assert.False(t, doc.CodeSpans[0].Unterminated)

		drafts := (&chunk.Chunker{MaxSize: 100}).Segment(doc)

		var holding []docchat.ChunkDraft
		for _, d := range drafts {
			if strings.Contains(d.Content, "x0 := 0") || strings.Contains(d.Content, "x48 := 48") {
				holding = append(holding, d)
			}
		}
		require.Len(t, holding, 1)
		assert.Equal(t, docchat.ChunkCode, holding[0].Kind)
		assert.Equal(t, "go", holding[0].Language)
		assert.Contains(t, holding[0].Content, "x0 := 0")
		assert.Contains(t, holding[0].Content, "x48 := 48")
	})

	t.Run("merges a short preceding paragraph into code", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{}, "", "# Install\n\nRun:\n\n```bash\ngo get x\n```\n")

		require.Len(t, drafts, 1)
		assert.Equal(t, docchat.ChunkCode, drafts[0].Kind)
		assert.Equal(t, "bash", drafts[0].Language)
		assert.Equal(t, "Run:\n\n```bash\ngo get x\n```", drafts[0].Content)
		assert.Equal(t, []string{"Install"}, drafts[0].SectionPath)
	})

	t.Run("keeps a long preceding paragraph as prose", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{MergeProseMax: 10}, "",
			"# Install\n\nThis paragraph is long.\n\n```\ncode\n```\n")

		require.Len(t, drafts, 2)
		assert.Equal(t, "Install\n\nThis paragraph is long.", drafts[0].Content)
		assert.Equal(t, docchat.ChunkCode, drafts[1].Kind)
		assert.Equal(t, "```\ncode\n```", drafts[1].Content)
		assert.Empty(t, drafts[1].Language)
	})

	t.Run("recovers from an unterminated fence", func(t *testing.T) {
		t.Parallel()

		markdown := "# A\n\n```go\nfunc f() {}\n\nAfter text\n\n## B\n\nbody\n"

		drafts := segment(&chunk.Chunker{}, "", markdown)

		require.Len(t, drafts, 3)
		assert.Equal(t, docchat.ChunkCode, drafts[0].Kind)
		assert.Equal(t, "```go\nfunc f() {}\n```", drafts[0].Content)
		assert.Equal(t, "A\n\nAfter text", drafts[1].Content)
		assert.Equal(t, docchat.ChunkProse, drafts[1].Kind)
		assert.Equal(t, []string{"A", "B"}, drafts[2].SectionPath)
	})

	t.Run("closes a fence left open at the end", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{}, "", "~~~~\nline one\nline two")

		require.Len(t, drafts, 1)
		assert.Equal(t, "~~~~\nline one\nline two\n~~~~", drafts[0].Content)
	})

	t.Run("document title roots the section path", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{}, "Docs", "intro text\n\n# Install\n\nx\n")

		require.Len(t, drafts, 2)
		assert.Equal(t, []string{"Docs"}, drafts[0].SectionPath)
		assert.Equal(t, "intro text", drafts[0].Content)
		assert.Empty(t, drafts[0].Anchor)
		assert.Equal(t, []string{"Docs", "Install"}, drafts[1].SectionPath)
	})

	t.Run("does not repeat a title restated by the first heading", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{}, "Manual", "# Manual\n\nintro\n\n## Setup\n\nsteps\n")

		require.Len(t, drafts, 2)
		assert.Equal(t, []string{"Manual"}, drafts[0].SectionPath)
		assert.Equal(t, []string{"Manual", "Setup"}, drafts[1].SectionPath)
	})

	t.Run("tracks nested headings", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{}, "", "# A\n## B\nb\n# C\nc")

		require.Len(t, drafts, 2)
		assert.Equal(t, []string{"A", "B"}, drafts[0].SectionPath)
		assert.Equal(t, []string{"C"}, drafts[1].SectionPath)
	})

	t.Run("skips empty sections", func(t *testing.T) {
		t.Parallel()

		drafts := segment(&chunk.Chunker{}, "", "# A\n\n## B\n\ntext\n\n## C\n")

		require.Len(t, drafts, 1)
		assert.Equal(t, []string{"A", "B"}, drafts[0].SectionPath)
		assert.Equal(t, 0, drafts[0].Position)
	})

	t.Run("returns nothing for empty document", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, segment(&chunk.Chunker{}, "", "  \n\n"))
	})

	t.Run("is deterministic", func(t *testing.T) {
		t.Parallel()

		markdown := "# A\n\none\n\n```\ncode\n```\n\n## B\n\ntwo\n"
		c := &chunk.Chunker{}

		assert.Equal(t, segment(c, "T", markdown), segment(c, "T", markdown))
	})
}
