package docchat

// Step is the processing path chosen for a turn.
type Step string

// Processing steps.
const (
	StepRetrieveAnswer    Step = "retrieve_answer"
	StepCodeAnalysis      Step = "code_analysis"
	StepClarify           Step = "clarify"
	StepAnswerFromHistory Step = "answer_from_history"
)

// DefaultMaxClarificationRounds is the number of clarifying questions asked
// before an answer is forced.
const DefaultMaxClarificationRounds = 2

// RouteInput holds everything the router decides on.
type RouteInput struct {
	Intent              Intent
	HistoryLen          int
	ClarificationRounds int

	// LastRetrievalEmpty is set when the previous turn found no relevant
	// documentation.
	LastRetrievalEmpty bool

	// MaxRounds defaults to DefaultMaxClarificationRounds when zero.
	MaxRounds int
}

// Decision is the router's output.
type Decision struct {
	Step Step `json:"step"`

	// Caveat is set when an answer is forced after too many clarification
	// rounds; the response must say the question is still unclear.
	Caveat bool `json:"caveat"`
}

// Route picks the next step for a turn. It is the only place that branches
// on intent.
func Route(in RouteInput) Decision {
	maxRounds := in.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxClarificationRounds
	}

	switch {
	case in.ClarificationRounds >= maxRounds:
		return Decision{Step: StepRetrieveAnswer, Caveat: true}
	case in.Intent == IntentAmbiguous:
		return Decision{Step: StepClarify}
	case in.Intent == IntentCodeAnalysis:
		return Decision{Step: StepCodeAnalysis}
	case in.Intent == IntentFollowUp:
		if in.HistoryLen == 0 || in.LastRetrievalEmpty {
			return Decision{Step: StepClarify}
		}
		return Decision{Step: StepAnswerFromHistory}
	default:
		return Decision{Step: StepRetrieveAnswer}
	}
}
