package gemini

import (
	"context"

	"github.com/fwojciec/docchat"
	"google.golang.org/genai"
	"google.golang.org/genai/tokenizer"
)

// FallbackTokenizerModel is used when the local tokenizer does not know the
// generation model yet. Token counts only bound prompt history, so a close
// relative is accurate enough.
const FallbackTokenizerModel = "gemini-2.5-flash"

var _ docchat.TokenCounter = (*TokenCounter)(nil)

// TokenCounter counts tokens locally with the Gemini tokenizer.
type TokenCounter struct {
	tok   *tokenizer.LocalTokenizer
	model string
}

// NewTokenCounter creates a TokenCounter for model, falling back to
// FallbackTokenizerModel when the tokenizer does not support it.
// Returns EINVALID when neither model is supported.
func NewTokenCounter(model string) (*TokenCounter, error) {
	tok, err := tokenizer.NewLocalTokenizer(model)
	if err == nil {
		return &TokenCounter{tok: tok, model: model}, nil
	}
	if model == FallbackTokenizerModel {
		return nil, docchat.WrapError(docchat.EINVALID, err, "no tokenizer for model %q", model)
	}

	tok, ferr := tokenizer.NewLocalTokenizer(FallbackTokenizerModel)
	if ferr != nil {
		return nil, docchat.WrapError(docchat.EINVALID, err, "no tokenizer for model %q", model)
	}
	return &TokenCounter{tok: tok, model: FallbackTokenizerModel}, nil
}

// Model returns the model whose tokenizer is in use.
func (tc *TokenCounter) Model() string {
	return tc.model
}

// CountTokens returns the number of tokens in text.
func (tc *TokenCounter) CountTokens(ctx context.Context, text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	result, err := tc.tok.CountTokens([]*genai.Content{genai.NewContentFromText(text, "user")}, nil)
	if err != nil {
		return 0, docchat.WrapError(docchat.EINTERNAL, err, "failed to count tokens")
	}
	return int(result.TotalTokens), nil
}
