// Package intent classifies user messages with a language model, falling
// back to keyword heuristics when the model is unavailable.
package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docchat"
	"github.com/patrickmn/go-cache"
)

// Defaults.
const (
	DefaultThreshold = 0.5
	DefaultWindow    = 3
	DefaultSeed      = 7
	DefaultTTL       = time.Hour
)

const systemPrompt = `You classify messages sent to an assistant that answers questions about technical documentation.
Reply with a JSON object {"intent": "<label>", "confidence": <0..1>} and nothing else.
Labels:
- rag_query: a question answered by the documentation
- code_analysis: a question about specific code, an API call, an error, or how to implement something
- follow_up: a message that only makes sense given the previous conversation
- ambiguous: an unclear message where the subject is missing or could mean several things`

var _ docchat.IntentClassifier = (*Classifier)(nil)

// Classifier implements docchat.IntentClassifier. Results are memoized so
// identical inputs return identical classifications.
type Classifier struct {
	generator docchat.Generator
	cache     *cache.Cache

	// Threshold is the minimum confidence below which a message is treated
	// as ambiguous.
	Threshold float64

	// Window is the number of recent turns given to the model.
	Window int

	// Seed pins model sampling.
	Seed int32

	Logger *slog.Logger
}

// NewClassifier creates a Classifier with default settings.
func NewClassifier(generator docchat.Generator) *Classifier {
	return &Classifier{
		generator: generator,
		cache:     cache.New(DefaultTTL, 10*time.Minute),
		Threshold: DefaultThreshold,
		Window:    DefaultWindow,
		Seed:      DefaultSeed,
	}
}

func (c *Classifier) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.Logger
}

// Classify maps message and the recent history to an intent. Generation
// failures fall back to heuristics rather than returning an error.
func (c *Classifier) Classify(ctx context.Context, message string, history []*docchat.Turn) (docchat.Classification, error) {
	if strings.TrimSpace(message) == "" {
		return docchat.Classification{Intent: docchat.IntentAmbiguous, Confidence: 1}, nil
	}

	window := docchat.LastTurns(history, c.Window)
	prompt := BuildPrompt(message, window)
	key := cacheKey(prompt)
	if v, ok := c.cache.Get(key); ok {
		return v.(docchat.Classification), nil
	}

	result, err := c.classify(ctx, prompt)
	if err != nil {
		if ctx.Err() != nil {
			return docchat.Classification{}, ctx.Err()
		}
		c.logger().Warn("intent classification fell back to heuristics", "err", err)
		result = Heuristic(message, len(window) > 0)
	}

	if result.Confidence < c.Threshold {
		result.Intent = docchat.IntentAmbiguous
	}

	c.cache.Set(key, result, cache.DefaultExpiration)
	return result, nil
}

func (c *Classifier) classify(ctx context.Context, prompt string) (docchat.Classification, error) {
	out, err := c.generator.Generate(ctx, prompt, docchat.GenerateOptions{
		System:          systemPrompt,
		Temperature:     docchat.Float32(0),
		Seed:            docchat.Int32(c.Seed),
		MaxOutputTokens: 64,
		JSON:            true,
	})
	if err != nil {
		return docchat.Classification{}, err
	}
	return ParseResponse(out)
}

func cacheKey(prompt string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(prompt))
}

// BuildPrompt builds the classification prompt for message and its history
// window.
func BuildPrompt(message string, history []*docchat.Turn) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString("<conversation>\n")
		sb.WriteString(docchat.FormatTurns(history))
		sb.WriteString("\n</conversation>\n\n")
	}
	fmt.Fprintf(&sb, "Message: %s", strings.TrimSpace(message))
	return sb.String()
}

// ParseResponse parses the model output into a classification. Unknown
// labels map to rag_query; confidence is clamped to [0, 1] and rounded to
// two decimals.
func ParseResponse(out string) (docchat.Classification, error) {
	out = strings.TrimSpace(out)
	out = strings.TrimPrefix(out, "```json")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)

	var resp struct {
		Intent     string   `json:"intent"`
		Confidence *float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(out), &resp); err != nil {
		// Some models answer with the bare label.
		if intent, ok := parseLabel(out); ok {
			return docchat.Classification{Intent: intent, Confidence: 1}, nil
		}
		return docchat.Classification{}, docchat.Errorf(docchat.EGENERATE, "invalid classification response: %v", err)
	}

	confidence := 1.0
	if resp.Confidence != nil {
		confidence = *resp.Confidence
	}
	confidence = math.Round(min(max(confidence, 0), 1)*100) / 100

	intent, ok := parseLabel(resp.Intent)
	if !ok {
		intent = docchat.IntentRAGQuery
	}
	return docchat.Classification{Intent: intent, Confidence: confidence}, nil
}

func parseLabel(s string) (docchat.Intent, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rag_query", "general_question":
		return docchat.IntentRAGQuery, true
	case "code_analysis", "code_question":
		return docchat.IntentCodeAnalysis, true
	case "follow_up":
		return docchat.IntentFollowUp, true
	case "ambiguous", "clarification_needed":
		return docchat.IntentAmbiguous, true
	}
	return "", false
}
