package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.Generator = (*LoggingGenerator)(nil)
	_ docchat.Embedder  = (*LoggingEmbedder)(nil)
)

// LoggingGenerator wraps a Generator with debug logging.
type LoggingGenerator struct {
	next   docchat.Generator
	logger *slog.Logger
}

// NewLoggingGenerator creates a new LoggingGenerator.
func NewLoggingGenerator(next docchat.Generator, logger *slog.Logger) *LoggingGenerator {
	return &LoggingGenerator{next: next, logger: logger}
}

// Generate logs prompt and response sizes and delegates to the wrapped generator.
func (g *LoggingGenerator) Generate(ctx context.Context, prompt string, opts docchat.GenerateOptions) (out string, err error) {
	defer func(begin time.Time) {
		g.logger.Info("generate",
			"prompt_bytes", len(prompt),
			"response_bytes", len(out),
			"json", opts.JSON,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return g.next.Generate(ctx, prompt, opts)
}

// LoggingEmbedder wraps an Embedder with debug logging.
type LoggingEmbedder struct {
	next   docchat.Embedder
	logger *slog.Logger
}

// NewLoggingEmbedder creates a new LoggingEmbedder.
func NewLoggingEmbedder(next docchat.Embedder, logger *slog.Logger) *LoggingEmbedder {
	return &LoggingEmbedder{next: next, logger: logger}
}

// Embed logs the input size and vector dimensions.
func (e *LoggingEmbedder) Embed(ctx context.Context, text string) (vec []float32, err error) {
	defer func(begin time.Time) {
		e.logger.Debug("embed",
			"text_bytes", len(text),
			"dimensions", len(vec),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return e.next.Embed(ctx, text)
}
