package intent

import (
	"strings"

	"github.com/fwojciec/docchat"
)

// heuristicConfidence is reported for keyword matches.
const heuristicConfidence = 0.6

var codeMarkers = []string{
	"```", "()", "code", "function", "method", "class ", "snippet", "example",
	"implement", "error", "exception", "stack trace", "compile", "syntax",
	"import ", "return ", "api call", "signature",
}

var followUpMarkers = []string{
	"what about", "how about", "and ", "also", "more detail", "tell me more",
	"you said", "you mentioned", "previous", "again", "that one", "the same",
	"why", "it ", "it?", "that", "this", "those", "them",
}

// Heuristic classifies message by keywords. hasHistory reports whether the
// session has earlier turns, which follow-ups require.
func Heuristic(message string, hasHistory bool) docchat.Classification {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return docchat.Classification{Intent: docchat.IntentAmbiguous, Confidence: 1}
	}

	words := strings.Fields(m)

	switch {
	case containsAny(m, codeMarkers):
		return docchat.Classification{Intent: docchat.IntentCodeAnalysis, Confidence: heuristicConfidence}
	case hasHistory && len(words) <= 6 && containsAny(m+" ", followUpMarkers):
		return docchat.Classification{Intent: docchat.IntentFollowUp, Confidence: heuristicConfidence}
	case len(words) < 3 && !strings.HasSuffix(m, "?"):
		return docchat.Classification{Intent: docchat.IntentAmbiguous, Confidence: heuristicConfidence}
	default:
		return docchat.Classification{Intent: docchat.IntentRAGQuery, Confidence: heuristicConfidence}
	}
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
