package compose_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/compose"
	"github.com/fwojciec/docchat/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult() *docchat.RetrievalResult {
	return &docchat.RetrievalResult{
		Query: "how do I install?",
		Matches: []docchat.ScoredChunk{
			{Chunk: &docchat.Chunk{
				SourceURL:   "https://a.dev/doc",
				Anchor:      "install",
				SectionPath: []string{"Guide", "Install"},
				Content:     "Run make install.",
			}, Score: 0.9},
			{Chunk: &docchat.Chunk{
				SourceURL: "https://a.dev/doc",
				Anchor:    "usage",
				Content:   "Call Run().",
			}, Score: 0.8},
		},
	}
}

func TestAnswerComposer_Compose(t *testing.T) {
	t.Parallel()

	t.Run("empty result yields insufficient information without generating", func(t *testing.T) {
		t.Parallel()

		gen := &mock.Generator{
			GenerateFn: func(context.Context, string, docchat.GenerateOptions) (string, error) {
				t.Fatal("Generate must not be called")
				return "", nil
			},
		}

		answer, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: &docchat.RetrievalResult{Empty: true},
		})
		require.NoError(t, err)

		assert.Equal(t, compose.InsufficientInfoText, answer.Text)
		assert.Empty(t, answer.Citations)
		assert.False(t, answer.Grounded)
	})

	t.Run("nil result yields insufficient information", func(t *testing.T) {
		t.Parallel()

		answer, err := compose.NewAnswerComposer(nil).Compose(context.Background(), compose.AnswerRequest{Query: "q"})
		require.NoError(t, err)

		assert.Equal(t, compose.InsufficientInfoText, answer.Text)
	})

	t.Run("cites referenced chunks in order", func(t *testing.T) {
		t.Parallel()

		gen := &mock.Generator{
			GenerateFn: func(context.Context, string, docchat.GenerateOptions) (string, error) {
				return "Call Run() [2] after installing [1] [2] [9].", nil
			},
		}

		answer, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: testResult(),
		})
		require.NoError(t, err)

		assert.True(t, answer.Grounded)
		assert.Equal(t, []docchat.Citation{
			{URL: "https://a.dev/doc", Anchor: "usage"},
			{URL: "https://a.dev/doc", Anchor: "install"},
		}, answer.Citations)
	})

	t.Run("cites every chunk when none is referenced", func(t *testing.T) {
		t.Parallel()

		gen := &mock.Generator{
			GenerateFn: func(context.Context, string, docchat.GenerateOptions) (string, error) {
				return "Run make install.", nil
			},
		}

		answer, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: testResult(),
		})
		require.NoError(t, err)

		assert.Len(t, answer.Citations, 2)
	})

	t.Run("builds the prompt from chunks and recent history", func(t *testing.T) {
		t.Parallel()

		var prompt string
		var opts docchat.GenerateOptions
		gen := &mock.Generator{
			GenerateFn: func(_ context.Context, p string, o docchat.GenerateOptions) (string, error) {
				prompt, opts = p, o
				return "ok", nil
			},
		}
		var history []*docchat.Turn
		for i := 1; i <= 7; i++ {
			history = append(history, &docchat.Turn{Role: docchat.RoleUser, Content: fmt.Sprintf("turn %d", i)})
		}

		_, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:   "how do I install?",
			Result:  testResult(),
			History: history,
		})
		require.NoError(t, err)

		assert.Contains(t, prompt, "<index>1</index>")
		assert.Contains(t, prompt, "<source>https://a.dev/doc#install</source>")
		assert.Contains(t, prompt, "<section>Guide > Install</section>")
		assert.Contains(t, prompt, "Question: how do I install?")
		assert.NotContains(t, prompt, "turn 2")
		assert.Contains(t, prompt, "turn 3")
		require.NotNil(t, opts.Temperature)
		assert.InDelta(t, 0.1, *opts.Temperature, 1e-6)
		assert.Contains(t, opts.System, "documentation")
	})

	t.Run("code mode uses code instructions", func(t *testing.T) {
		t.Parallel()

		var system string
		gen := &mock.Generator{
			GenerateFn: func(_ context.Context, _ string, o docchat.GenerateOptions) (string, error) {
				system = o.System
				return "ok", nil
			},
		}

		_, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: testResult(),
			Mode:   compose.ModeCode,
		})
		require.NoError(t, err)

		assert.Contains(t, system, "code analysis")
	})

	t.Run("trims history to the token budget", func(t *testing.T) {
		t.Parallel()

		var prompt string
		gen := &mock.Generator{
			GenerateFn: func(_ context.Context, p string, _ docchat.GenerateOptions) (string, error) {
				prompt = p
				return "ok", nil
			},
		}
		c := compose.NewAnswerComposer(gen)
		c.Tokens = &mock.TokenCounter{
			CountTokensFn: func(_ context.Context, text string) (int, error) {
				return len(strings.Fields(text)), nil
			},
		}
		c.TokenBudget = 4
		history := []*docchat.Turn{
			{Role: docchat.RoleUser, Content: "older question here"},
			{Role: docchat.RoleAssistant, Content: "newest reply"},
		}

		_, err := c.Compose(context.Background(), compose.AnswerRequest{Query: "q", Result: testResult(), History: history})
		require.NoError(t, err)

		assert.NotContains(t, prompt, "older question")
		assert.Contains(t, prompt, "newest reply")
	})

	t.Run("retries generation once", func(t *testing.T) {
		t.Parallel()

		calls := 0
		gen := &mock.Generator{
			GenerateFn: func(context.Context, string, docchat.GenerateOptions) (string, error) {
				calls++
				if calls == 1 {
					return "", docchat.Errorf(docchat.EGENERATE, "overloaded")
				}
				return "Run make install [1].", nil
			},
		}

		answer, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: testResult(),
		})
		require.NoError(t, err)

		assert.Equal(t, 2, calls)
		assert.True(t, answer.Grounded)
	})

	t.Run("degrades to an apology after repeated failures", func(t *testing.T) {
		t.Parallel()

		calls := 0
		gen := &mock.Generator{
			GenerateFn: func(context.Context, string, docchat.GenerateOptions) (string, error) {
				calls++
				return "", docchat.Errorf(docchat.EGENERATE, "overloaded")
			},
		}

		answer, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: testResult(),
		})
		require.NoError(t, err)

		assert.Equal(t, 2, calls)
		assert.Equal(t, compose.ApologyText, answer.Text)
		assert.Equal(t, docchat.EGENERATE, answer.ErrorCode)
		assert.False(t, answer.Grounded)
		assert.Empty(t, answer.Citations)
	})

	t.Run("returns context errors", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		gen := &mock.Generator{
			GenerateFn: func(ctx context.Context, _ string, _ docchat.GenerateOptions) (string, error) {
				cancel()
				return "", ctx.Err()
			},
		}

		_, err := compose.NewAnswerComposer(gen).Compose(ctx, compose.AnswerRequest{Query: "q", Result: testResult()})

		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("prepends the caveat", func(t *testing.T) {
		t.Parallel()

		gen := &mock.Generator{
			GenerateFn: func(context.Context, string, docchat.GenerateOptions) (string, error) {
				return "Best guess [1].", nil
			},
		}

		answer, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: testResult(),
			Caveat: true,
		})
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(answer.Text, compose.CaveatText))
		assert.Contains(t, answer.Text, "Best guess [1].")
	})

	t.Run("formats code in the answer", func(t *testing.T) {
		t.Parallel()

		gen := &mock.Generator{
			GenerateFn: func(context.Context, string, docchat.GenerateOptions) (string, error) {
				return "Example [1]:\n```\nmake install\n```", nil
			},
		}

		answer, err := compose.NewAnswerComposer(gen).Compose(context.Background(), compose.AnswerRequest{
			Query:  "q",
			Result: testResult(),
		})
		require.NoError(t, err)

		assert.Equal(t, "Example [1]:\n```text\nmake install\n```", answer.Text)
	})
}

func TestCite(t *testing.T) {
	t.Parallel()

	t.Run("falls back to the retrieved sources when no marker is present", func(t *testing.T) {
		t.Parallel()

		got := compose.Cite("That is not covered here, try the forum.", testResult())

		assert.Equal(t, []docchat.Citation{
			{URL: "https://a.dev/doc", Anchor: "install"},
			{URL: "https://a.dev/doc", Anchor: "usage"},
		}, got)
	})

	t.Run("falls back when every marker is out of range", func(t *testing.T) {
		t.Parallel()

		got := compose.Cite("See [0] and [7].", testResult())

		assert.Equal(t, testResult().Citations(), got)
	})

	t.Run("cites only referenced chunks", func(t *testing.T) {
		t.Parallel()

		got := compose.Cite("Install first [1].", testResult())

		assert.Equal(t, []docchat.Citation{{URL: "https://a.dev/doc", Anchor: "install"}}, got)
	})

	t.Run("returns nothing without a result", func(t *testing.T) {
		t.Parallel()

		assert.Nil(t, compose.Cite("text [1]", nil))
	})
}
