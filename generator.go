package docchat

import "context"

// GenerateOptions constrains a generation call.
type GenerateOptions struct {
	// System is the system instruction.
	System string

	// Temperature pins sampling when set.
	Temperature *float32

	// Seed makes sampling reproducible where the backend supports it.
	Seed *int32

	// MaxOutputTokens limits the response length when positive.
	MaxOutputTokens int

	// JSON requests a JSON response.
	JSON bool
}

// Generator produces text from a prompt using a language model.
type Generator interface {
	// Generate returns the model's response to prompt.
	// Returns EGENERATE on failure.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder produces vector embeddings for text.
type Embedder interface {
	// Embed returns the embedding of text.
	// Returns EEMBED on failure.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Float32 returns a pointer to v.
func Float32(v float32) *float32 { return &v }

// Int32 returns a pointer to v.
func Int32(v int32) *int32 { return &v }
