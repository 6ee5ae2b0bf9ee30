package docchat_test

import (
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/stretchr/testify/assert"
)

func TestRetrievalResult_Citations(t *testing.T) {
	t.Parallel()

	t.Run("deduplicates in rank order", func(t *testing.T) {
		t.Parallel()

		result := &docchat.RetrievalResult{Matches: []docchat.ScoredChunk{
			{Chunk: &docchat.Chunk{SourceURL: "https://a.dev/doc", Anchor: "usage"}, Score: 0.9},
			{Chunk: &docchat.Chunk{SourceURL: "https://a.dev/doc", Anchor: "install"}, Score: 0.8},
			{Chunk: &docchat.Chunk{SourceURL: "https://a.dev/doc", Anchor: "usage"}, Score: 0.7},
		}}

		got := result.Citations()

		assert.Equal(t, []docchat.Citation{
			{URL: "https://a.dev/doc", Anchor: "usage"},
			{URL: "https://a.dev/doc", Anchor: "install"},
		}, got)
	})

	t.Run("nil result has no citations", func(t *testing.T) {
		t.Parallel()

		var result *docchat.RetrievalResult

		assert.Nil(t, result.Citations())
	})
}

func TestCitation_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://a.dev/doc#usage", docchat.Citation{URL: "https://a.dev/doc", Anchor: "usage"}.String())
	assert.Equal(t, "https://a.dev/doc", docchat.Citation{URL: "https://a.dev/doc"}.String())
}
