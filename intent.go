package docchat

import "context"

// Intent is the classified purpose of a user message.
type Intent string

// Supported intents.
const (
	IntentRAGQuery     Intent = "rag_query"
	IntentCodeAnalysis Intent = "code_analysis"
	IntentFollowUp     Intent = "follow_up"
	IntentAmbiguous    Intent = "ambiguous"
)

// Valid reports whether i is one of the supported intents.
func (i Intent) Valid() bool {
	switch i {
	case IntentRAGQuery, IntentCodeAnalysis, IntentFollowUp, IntentAmbiguous:
		return true
	}
	return false
}

// Classification is the outcome of intent classification.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}

// IntentClassifier maps a message and recent history to an intent.
// Identical inputs must always yield identical output.
type IntentClassifier interface {
	Classify(ctx context.Context, message string, history []*Turn) (Classification, error)
}
