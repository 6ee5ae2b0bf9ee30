package compose

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fwojciec/docchat"
)

const clarifyInstruction = `You help users of a documentation assistant ask answerable questions.
The user's message is unclear. Ask exactly one short, specific clarifying question that names the information you need (for example the feature, command, language or framework).
Do not answer the question. Do not repeat a clarifying question that was already asked; narrow down further instead.`

// ClarifyRequest is the input to ClarificationComposer.Compose.
type ClarifyRequest struct {
	Message string
	Intent  docchat.Intent

	// Round is the number of clarifying questions already asked.
	Round int

	// Previous holds the clarifying questions already asked, oldest first.
	Previous []string
}

// ClarificationComposer asks targeted clarifying questions.
type ClarificationComposer struct {
	generator docchat.Generator
	Logger    *slog.Logger
}

// NewClarificationComposer creates a ClarificationComposer.
func NewClarificationComposer(generator docchat.Generator) *ClarificationComposer {
	return &ClarificationComposer{generator: generator}
}

// Compose returns one clarifying question for req. When generation fails a
// template question is returned; only context errors are returned.
func (c *ClarificationComposer) Compose(ctx context.Context, req ClarifyRequest) (string, error) {
	out, err := c.generator.Generate(ctx, BuildClarifyPrompt(req), docchat.GenerateOptions{
		System:      clarifyInstruction,
		Temperature: docchat.Float32(0),
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if c.Logger != nil {
			c.Logger.Warn("clarification generation failed", "err", err)
		}
		return FallbackQuestion(req), nil
	}
	if q := strings.TrimSpace(out); q != "" {
		return q, nil
	}
	return FallbackQuestion(req), nil
}

// BuildClarifyPrompt builds the clarification prompt.
func BuildClarifyPrompt(req ClarifyRequest) string {
	var sb strings.Builder
	if len(req.Previous) > 0 {
		sb.WriteString("<asked>\n")
		for _, q := range req.Previous {
			sb.WriteString("- ")
			sb.WriteString(strings.TrimSpace(q))
			sb.WriteString("\n")
		}
		sb.WriteString("</asked>\n\n")
	}
	fmt.Fprintf(&sb, "Message: %s", strings.TrimSpace(req.Message))
	return sb.String()
}

// gap is the kind of information missing from a message.
type gap int

const (
	gapSubject gap = iota
	gapLanguage
	gapDetail
)

var languages = []string{
	"go", "golang", "python", "javascript", "typescript", "java", "rust", "ruby",
	"php", "c#", "c++", "kotlin", "swift", "node", "react", "vue", "django",
	"flask", "rails", "spring",
}

func detectGap(req ClarifyRequest) gap {
	m := strings.ToLower(req.Message)
	words := strings.Fields(m)
	if len(words) < 3 {
		return gapSubject
	}
	if req.Intent == docchat.IntentCodeAnalysis || strings.Contains(m, "code") || strings.Contains(m, "example") {
		for _, w := range words {
			for _, l := range languages {
				if strings.Trim(w, "?.,!") == l {
					return gapDetail
				}
			}
		}
		return gapLanguage
	}
	return gapDetail
}

// FallbackQuestion returns a template clarifying question. Questions quote
// the message, so distinct messages get distinct questions, and later rounds
// ask for more specific information.
func FallbackQuestion(req ClarifyRequest) string {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return "What would you like to know about the documentation? Please name the feature, command or page you are interested in."
	}
	if req.Round > 0 {
		return fmt.Sprintf("I'm still not sure what you're looking for with %q. Could you describe the task you're trying to accomplish, or name the exact function, command or setting involved?", msg)
	}
	switch detectGap(req) {
	case gapSubject:
		return fmt.Sprintf("Could you tell me which part of the documentation %q refers to? For example, a specific feature, command or section.", msg)
	case gapLanguage:
		return fmt.Sprintf("Which language or framework are you using for %q? That will help me find the right code examples.", msg)
	default:
		return fmt.Sprintf("Could you add more detail to %q? For example, what you have tried so far or what result you expect.", msg)
	}
}
