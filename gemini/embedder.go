package gemini

import (
	"context"

	"github.com/fwojciec/docchat"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

// DefaultEmbeddingModel is the embedding model.
const DefaultEmbeddingModel = "gemini-embedding-001"

var _ docchat.Embedder = (*Embedder)(nil)

// Embedder implements docchat.Embedder using Google Gemini. Requests are
// rate limited across all callers.
type Embedder struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter

	// Dimensions truncates embeddings when positive.
	Dimensions int32
}

// NewEmbedder creates a new Embedder allowing rps requests per second with
// no bursting. A non-positive rps disables the limit.
func NewEmbedder(client *genai.Client, model string, rps float64) *Embedder {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &Embedder{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, docchat.Errorf(docchat.EINVALID, "text required")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docchat.WrapError(docchat.EEMBED, err, "embedding rate limit")
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model,
		[]*genai.Content{genai.NewContentFromText(text, "user")},
		BuildEmbedConfig(e.Dimensions),
	)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, docchat.WrapError(docchat.EEMBED, err, "gemini embedding failed")
	}
	if result == nil || len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, docchat.Errorf(docchat.EEMBED, "gemini returned no embedding")
	}
	return result.Embeddings[0].Values, nil
}

// BuildEmbedConfig returns the EmbedContentConfig for embedding calls.
func BuildEmbedConfig(dimensions int32) *genai.EmbedContentConfig {
	config := &genai.EmbedContentConfig{}
	if dimensions > 0 {
		config.OutputDimensionality = &dimensions
	}
	return config
}
