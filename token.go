package docchat

import "context"

// TokenCounter counts tokens in text for the generation model. It is used
// to keep prompt context within budget.
type TokenCounter interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
