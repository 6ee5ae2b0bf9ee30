package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.IntentClassifier = (*IntentClassifier)(nil)

// IntentClassifier is a mock implementation of docchat.IntentClassifier.
type IntentClassifier struct {
	ClassifyFn func(ctx context.Context, message string, history []*docchat.Turn) (docchat.Classification, error)
}

func (c *IntentClassifier) Classify(ctx context.Context, message string, history []*docchat.Turn) (docchat.Classification, error) {
	return c.ClassifyFn(ctx, message, history)
}
