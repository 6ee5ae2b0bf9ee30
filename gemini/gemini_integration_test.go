//go:build integration

package gemini_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newClient(t *testing.T, ctx context.Context) *genai.Client {
	t.Helper()

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	require.NoError(t, err)
	return client
}

func TestGenerator_Integration_ReturnsAnswer(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	gen := gemini.NewGenerator(newClient(t, ctx), "")

	answer, err := gen.Generate(ctx,
		"<documents><document><index>1</index><content>HTMX is a library that allows you to access modern browser features directly from HTML.</content></document></documents>\n\nQuestion: What is HTMX?",
		docchat.GenerateOptions{
			System:      "Answer only from the documents provided.",
			Temperature: docchat.Float32(0.1),
		})

	require.NoError(t, err)
	assert.Contains(t, answer, "HTMX")
}

func TestEmbedder_Integration_ReturnsVector(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	emb := gemini.NewEmbedder(newClient(t, ctx), "", 1)

	v, err := emb.Embed(ctx, "HTMX is a library.")

	require.NoError(t, err)
	assert.NotEmpty(t, v)
}
