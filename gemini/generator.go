// Package gemini implements generation, embedding and token counting with
// Google Gemini.
package gemini

import (
	"context"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
)

// DefaultModel is the generation model.
const DefaultModel = "gemini-2.5-flash"

var _ docchat.Generator = (*Generator)(nil)

// Generator implements docchat.Generator using Google Gemini.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a new Generator. An empty model selects DefaultModel.
func NewGenerator(client *genai.Client, model string) *Generator {
	if model == "" {
		model = DefaultModel
	}
	return &Generator{client: client, model: model}
}

// Generate returns the model's response to prompt.
func (g *Generator) Generate(ctx context.Context, prompt string, opts docchat.GenerateOptions) (string, error) {
	if prompt == "" {
		return "", docchat.Errorf(docchat.EINVALID, "prompt required")
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Parts: []*genai.Part{{Text: prompt}},
		}},
		BuildConfig(opts),
	)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", docchat.WrapError(docchat.EGENERATE, err, "gemini generation failed")
	}
	if result == nil {
		return "", docchat.Errorf(docchat.EGENERATE, "gemini returned nil result")
	}

	text := result.Text()
	if text == "" {
		return "", docchat.Errorf(docchat.EGENERATE, "gemini returned an empty response")
	}
	return text, nil
}

// BuildConfig maps generation options to a GenerateContentConfig.
func BuildConfig(opts docchat.GenerateOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: opts.Temperature,
		Seed:        opts.Seed,
	}
	if opts.System != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: opts.System}},
		}
	}
	if opts.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxOutputTokens)
	}
	if opts.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}
