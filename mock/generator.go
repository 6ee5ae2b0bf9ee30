package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.Generator = (*Generator)(nil)
	_ docchat.Embedder  = (*Embedder)(nil)
)

// Generator is a mock implementation of docchat.Generator.
type Generator struct {
	GenerateFn func(ctx context.Context, prompt string, opts docchat.GenerateOptions) (string, error)
}

func (g *Generator) Generate(ctx context.Context, prompt string, opts docchat.GenerateOptions) (string, error) {
	return g.GenerateFn(ctx, prompt, opts)
}

// Embedder is a mock implementation of docchat.Embedder.
type Embedder struct {
	EmbedFn func(ctx context.Context, text string) ([]float32, error)
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.EmbedFn(ctx, text)
}
