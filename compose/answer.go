// Package compose turns retrieval results and conversation state into
// assistant responses.
package compose

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/fwojciec/docchat"
)

// Mode selects the answer instructions.
type Mode string

// Answer modes.
const (
	ModeDocs Mode = "docs"
	ModeCode Mode = "code"
)

// Defaults.
const (
	DefaultHistoryTurns = 5
	DefaultTemperature  = 0.1
	DefaultMaxAttempts  = 2
)

// Fixed responses.
const (
	InsufficientInfoText = "I couldn't find relevant information in the documentation to answer your question. Could you rephrase it or ask about a different topic?"
	ApologyText          = "Sorry, I couldn't generate an answer right now. Please try again in a moment."
	CaveatText           = "Note: your question is still not entirely clear to me, so this answer is based on my best interpretation of it."
)

const docsInstruction = `You are a helpful assistant that answers questions about technical documentation.
Answer only from the documentation excerpts provided. Cite the excerpts you use with their index in square brackets, e.g. [1].
If the excerpts do not contain the answer, say so clearly.
Format code with fenced Markdown code blocks that name the language.`

const codeInstruction = `You are a technical assistant specializing in code analysis and explanation.
Using only the code and documentation excerpts provided, explain:
1. What the code does
2. How it works
3. Any important patterns or concepts
4. Examples if relevant
Cite the excerpts you use with their index in square brackets, e.g. [1].
Format code with fenced Markdown code blocks that name the language.`

var citationRe = regexp.MustCompile(`\[(\d+)\]`)

// AnswerRequest is the input to AnswerComposer.Compose.
type AnswerRequest struct {
	Query   string
	Result  *docchat.RetrievalResult
	History []*docchat.Turn

	// Caveat prepends CaveatText to the answer.
	Caveat bool

	Mode Mode
}

// Answer is a composed response.
type Answer struct {
	Text      string
	Citations []docchat.Citation

	// Grounded is set when the text was generated from retrieved chunks.
	Grounded bool

	// ErrorCode is set to EGENERATE when generation failed and Text is an
	// apology.
	ErrorCode string
}

// AnswerComposer generates grounded answers with citations.
type AnswerComposer struct {
	generator docchat.Generator

	// Tokens trims history to TokenBudget when both are set.
	Tokens      docchat.TokenCounter
	TokenBudget int

	HistoryTurns int
	Temperature  float32
	MaxAttempts  int

	Logger *slog.Logger
}

// NewAnswerComposer creates an AnswerComposer with default settings.
func NewAnswerComposer(generator docchat.Generator) *AnswerComposer {
	return &AnswerComposer{
		generator:    generator,
		HistoryTurns: DefaultHistoryTurns,
		Temperature:  DefaultTemperature,
		MaxAttempts:  DefaultMaxAttempts,
	}
}

func (c *AnswerComposer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Compose answers req. Generation failures produce a degraded Answer, so
// the only errors returned are context errors.
func (c *AnswerComposer) Compose(ctx context.Context, req AnswerRequest) (*Answer, error) {
	if req.Result == nil || req.Result.Empty || len(req.Result.Matches) == 0 {
		return &Answer{Text: withCaveat(InsufficientInfoText, req.Caveat)}, nil
	}

	history := c.trimHistory(ctx, docchat.LastTurns(req.History, c.HistoryTurns))
	prompt := BuildAnswerPrompt(req.Query, req.Result.Matches, history)

	system := docsInstruction
	if req.Mode == ModeCode {
		system = codeInstruction
	}

	var out string
	var err error
	for attempt := 0; attempt < max(c.MaxAttempts, 1); attempt++ {
		out, err = c.generator.Generate(ctx, prompt, docchat.GenerateOptions{
			System:      system,
			Temperature: docchat.Float32(c.Temperature),
		})
		if err == nil && strings.TrimSpace(out) != "" {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err == nil {
			err = docchat.Errorf(docchat.EGENERATE, "empty response")
		}
		c.logger().Warn("answer generation failed", "attempt", attempt+1, "err", err)
	}
	if err != nil {
		return &Answer{Text: ApologyText, ErrorCode: docchat.EGENERATE}, nil
	}

	text := FormatCode(strings.TrimSpace(out))
	return &Answer{
		Text:      withCaveat(text, req.Caveat),
		Citations: Cite(text, req.Result),
		Grounded:  true,
	}, nil
}

// trimHistory drops the oldest turns until the history fits TokenBudget.
func (c *AnswerComposer) trimHistory(ctx context.Context, turns []*docchat.Turn) []*docchat.Turn {
	if c.Tokens == nil || c.TokenBudget <= 0 {
		return turns
	}
	for len(turns) > 0 {
		n, err := c.Tokens.CountTokens(ctx, docchat.FormatTurns(turns))
		if err != nil {
			c.logger().Warn("token count failed", "err", err)
			return turns
		}
		if n <= c.TokenBudget {
			return turns
		}
		turns = turns[1:]
	}
	return turns
}

func withCaveat(text string, caveat bool) string {
	if !caveat {
		return text
	}
	return CaveatText + "\n\n" + text
}

// Cite maps [n] markers in text to the sources of the matching chunks, in
// first-reference order. Markers outside the supplied range are ignored.
// When text references no chunk, every supplied chunk's source is cited.
func Cite(text string, result *docchat.RetrievalResult) []docchat.Citation {
	if result == nil {
		return nil
	}
	seen := make(map[docchat.Citation]bool)
	var out []docchat.Citation
	for _, m := range citationRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(result.Matches) {
			continue
		}
		c := result.Matches[n-1].Chunk.Citation()
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return result.Citations()
	}
	return out
}

// BuildAnswerPrompt builds the user prompt with numbered excerpts, recent
// conversation and the question.
func BuildAnswerPrompt(query string, matches []docchat.ScoredChunk, history []*docchat.Turn) string {
	var sb strings.Builder
	sb.WriteString("<documents>\n")
	for i, m := range matches {
		sb.WriteString("<document>\n")
		fmt.Fprintf(&sb, "<index>%d</index>\n", i+1)
		fmt.Fprintf(&sb, "<source>%s</source>\n", m.Chunk.Citation())
		if s := m.Chunk.Section(); s != "" {
			fmt.Fprintf(&sb, "<section>%s</section>\n", s)
		}
		fmt.Fprintf(&sb, "<content>%s</content>\n", m.Chunk.Content)
		sb.WriteString("</document>\n")
	}
	sb.WriteString("</documents>\n\n")
	if len(history) > 0 {
		sb.WriteString("<conversation>\n")
		sb.WriteString(docchat.FormatTurns(history))
		sb.WriteString("\n</conversation>\n\n")
	}
	fmt.Fprintf(&sb, "Question: %s", query)
	return sb.String()
}
