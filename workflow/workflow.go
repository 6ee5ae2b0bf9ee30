// Package workflow drives conversation turns through intent classification,
// routing, answer composition and memory.
package workflow

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/compose"
)

// UnreadyPolicy decides how a turn is handled when the session has no
// completed ingestion.
type UnreadyPolicy string

// Unready policies.
const (
	// PolicyReject rejects the turn with ESTATE.
	PolicyReject UnreadyPolicy = "reject"

	// PolicyAnswer replies with the insufficient information message.
	PolicyAnswer UnreadyPolicy = "answer"
)

// Defaults.
const (
	DefaultDocsK        = 5
	DefaultCodeK        = 10
	DefaultHistoryLimit = 20
	DefaultTurnTimeout  = 60 * time.Second
)

// NotReadyText is the message carried by ENOTREADY errors.
const NotReadyText = "still processing documentation"

// RetrievalFailedText is returned when the documentation could not be
// searched.
const RetrievalFailedText = "Sorry, I couldn't search the documentation right now. Please try again in a moment."

// AnswerComposer composes grounded answers.
type AnswerComposer interface {
	Compose(ctx context.Context, req compose.AnswerRequest) (*compose.Answer, error)
}

// ClarificationComposer composes clarifying questions.
type ClarificationComposer interface {
	Compose(ctx context.Context, req compose.ClarifyRequest) (string, error)
}

// TurnResult is the response to a submitted turn.
type TurnResult struct {
	Answer    string             `json:"answer"`
	Citations []docchat.Citation `json:"citations"`
	Intent    docchat.Intent     `json:"intent"`
	Step      docchat.Step       `json:"step"`
	Caveat    bool               `json:"caveat"`

	// RetrievedCount is the number of chunks the answer was composed from.
	RetrievedCount int `json:"retrievedCount"`

	// ErrorCode is set when the response is degraded (EEMBED or EGENERATE).
	ErrorCode string `json:"errorCode,omitempty"`
}

// Orchestrator runs conversation turns. Turns for one session are strictly
// serialized; different sessions run in parallel.
type Orchestrator struct {
	Sessions   docchat.SessionService
	Jobs       docchat.JobService
	Classifier docchat.IntentClassifier
	Retriever  docchat.Retriever
	Answers    AnswerComposer
	Clarifier  ClarificationComposer

	Policy       UnreadyPolicy
	MaxRounds    int
	DocsK        int
	CodeK        int
	HistoryLimit int
	TurnTimeout  time.Duration
	Logger       *slog.Logger

	locks keyedMutex
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// SubmitTurn processes one user message and returns the response. The user
// turn, the response and the new workflow state are committed together at
// the end, so a turn that fails or is cancelled leaves the session as it
// was.
//
// Returns EINVALID for an empty message, ENOTFOUND for an unknown session,
// ENOTREADY while documentation is being ingested and ESTATE when no
// ingestion has completed under PolicyReject.
func (o *Orchestrator) SubmitTurn(ctx context.Context, sessionID, message string) (*TurnResult, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, docchat.Errorf(docchat.EINVALID, "message required")
	}

	ctx, cancel := context.WithTimeout(ctx, orDefault(o.TurnTimeout, DefaultTurnTimeout))
	defer cancel()

	unlock, err := o.locks.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := o.Sessions.FindSessionByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	ready, err := o.ready(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var t *turn
	if ready {
		t, err = o.run(ctx, session, message)
	} else {
		t, err = o.unready(session, message)
	}
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	user := &docchat.Turn{Role: docchat.RoleUser, Content: message}
	assistant := &docchat.Turn{Role: docchat.RoleAssistant, Content: t.result.Answer, Citations: t.result.Citations}
	if err := o.Sessions.CommitTurn(ctx, sessionID, t.state, user, assistant); err != nil {
		return nil, err
	}

	o.logger().Info("turn completed",
		"session", sessionID,
		"intent", t.result.Intent,
		"step", t.result.Step,
		"retrieved", t.result.RetrievedCount,
		"citations", len(t.result.Citations),
		"rounds", t.state.ClarificationRounds,
	)
	return t.result, nil
}

// turn is the uncommitted outcome of processing a message.
type turn struct {
	result *TurnResult
	state  docchat.WorkflowState
}

// ready reports whether the session has completed documentation. Returns
// ENOTREADY while a job is pending or processing.
func (o *Orchestrator) ready(ctx context.Context, sessionID string) (bool, error) {
	jobs, err := o.Jobs.FindJobs(ctx, docchat.JobFilter{SessionID: &sessionID})
	if err != nil {
		return false, err
	}
	completed := false
	for _, j := range jobs {
		switch j.Status {
		case docchat.JobPending, docchat.JobProcessing:
			return false, docchat.Errorf(docchat.ENOTREADY, "%s", NotReadyText)
		case docchat.JobCompleted:
			completed = true
		}
	}
	return completed, nil
}

func (o *Orchestrator) unready(session *docchat.Session, message string) (*turn, error) {
	if o.Policy != PolicyAnswer {
		return nil, docchat.Errorf(docchat.ESTATE, "session %s has no ingested documentation", session.ID)
	}
	state := session.State
	state.LastRetrievalEmpty = true
	return &turn{
		result: &TurnResult{Answer: compose.InsufficientInfoText, Step: docchat.StepRetrieveAnswer},
		state:  state,
	}, nil
}

func (o *Orchestrator) run(ctx context.Context, session *docchat.Session, message string) (*turn, error) {
	history, err := o.Sessions.History(ctx, session.ID, orDefault(o.HistoryLimit, DefaultHistoryLimit))
	if err != nil {
		return nil, err
	}

	cls, err := o.Classifier.Classify(ctx, message, history)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger().Warn("intent classification failed", "session", session.ID, "err", err)
		cls = docchat.Classification{Intent: docchat.IntentRAGQuery}
	}

	state := session.State
	decision := docchat.Route(docchat.RouteInput{
		Intent:              cls.Intent,
		HistoryLen:          len(history),
		ClarificationRounds: state.ClarificationRounds,
		LastRetrievalEmpty:  state.LastRetrievalEmpty,
		MaxRounds:           o.MaxRounds,
	})
	o.logger().Debug("turn routed",
		"session", session.ID,
		"intent", cls.Intent,
		"confidence", cls.Confidence,
		"step", decision.Step,
		"caveat", decision.Caveat,
	)

	result := &TurnResult{Intent: cls.Intent, Step: decision.Step, Caveat: decision.Caveat}
	state.LastIntent = cls.Intent

	if decision.Step == docchat.StepClarify {
		q, err := o.Clarifier.Compose(ctx, compose.ClarifyRequest{
			Message:  message,
			Intent:   cls.Intent,
			Round:    state.ClarificationRounds,
			Previous: askedQuestions(state, history),
		})
		if err != nil {
			return nil, err
		}
		result.Answer = q
		state.AwaitingClarification = true
		state.ClarificationRounds++
		return &turn{result: result, state: state}, nil
	}

	query := message
	mode := compose.ModeDocs
	k := orDefault(o.DocsK, DefaultDocsK)
	var kind *docchat.ChunkKind
	switch decision.Step {
	case docchat.StepCodeAnalysis:
		mode = compose.ModeCode
		k = orDefault(o.CodeK, DefaultCodeK)
		code := docchat.ChunkCode
		kind = &code
	case docchat.StepAnswerFromHistory:
		query = RewriteQuery(message, history, 2)
	}
	if state.AwaitingClarification {
		// The answer to a clarifying question only makes sense together
		// with the messages that prompted it.
		query = RewriteQuery(message, history, state.ClarificationRounds)
	}

	res, err := o.retrieve(ctx, session.ID, query, k, kind)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		o.logger().Warn("retrieval failed", "session", session.ID, "err", err)
		result.Answer = RetrievalFailedText
		result.ErrorCode = docchat.ErrorCode(err)
		return &turn{result: result, state: state}, nil
	}

	answer, err := o.Answers.Compose(ctx, compose.AnswerRequest{
		Query:   query,
		Result:  res,
		History: history,
		Caveat:  decision.Caveat,
		Mode:    mode,
	})
	if err != nil {
		return nil, err
	}

	result.Answer = answer.Text
	result.Citations = answer.Citations
	result.ErrorCode = answer.ErrorCode
	if answer.Grounded {
		result.RetrievedCount = len(res.Matches)
	}

	state.LastQuery = query
	state.LastRetrievalEmpty = res.Empty
	state.AwaitingClarification = false
	if answer.Grounded {
		state.ClarificationRounds = 0
	}
	return &turn{result: result, state: state}, nil
}

// retrieve queries the index. A code query that matches no code chunk is
// widened to all chunks.
func (o *Orchestrator) retrieve(ctx context.Context, sessionID, query string, k int, kind *docchat.ChunkKind) (*docchat.RetrievalResult, error) {
	q := docchat.RetrievalQuery{SessionID: sessionID, Text: query, K: k, Kind: kind}
	res, err := o.Retriever.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	if res.Empty && kind != nil {
		o.logger().Debug("no code matches, widening retrieval", "session", sessionID)
		q.Kind = nil
		return o.Retriever.Query(ctx, q)
	}
	return res, nil
}

// askedQuestions returns the clarifying questions asked since the last
// answer, oldest first.
func askedQuestions(state docchat.WorkflowState, history []*docchat.Turn) []string {
	if !state.AwaitingClarification || state.ClarificationRounds == 0 {
		return nil
	}
	var out []string
	for i := len(history) - 1; i >= 0 && len(out) < state.ClarificationRounds; i-- {
		if history[i].Role == docchat.RoleAssistant {
			out = append(out, history[i].Content)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// RewriteQuery expands message with the last n user messages from history so
// that a follow-up can be retrieved on its own.
func RewriteQuery(message string, history []*docchat.Turn, n int) string {
	var prior []string
	for i := len(history) - 1; i >= 0 && len(prior) < n; i-- {
		if history[i].Role == docchat.RoleUser {
			prior = append(prior, strings.TrimSpace(history[i].Content))
		}
	}
	if len(prior) == 0 {
		return message
	}
	parts := make([]string, 0, len(prior)+1)
	for i := len(prior) - 1; i >= 0; i-- {
		parts = append(parts, prior[i])
	}
	parts = append(parts, message)
	return strings.Join(parts, "\n")
}

// GetHistory returns the session's turns in append order.
// Returns ENOTFOUND if the session does not exist.
func (o *Orchestrator) GetHistory(ctx context.Context, sessionID string) ([]*docchat.Turn, error) {
	if _, err := o.Sessions.FindSessionByID(ctx, sessionID); err != nil {
		return nil, err
	}
	return o.Sessions.History(ctx, sessionID, 0)
}

// DeleteSession removes the session once any in-flight turn has finished.
func (o *Orchestrator) DeleteSession(ctx context.Context, sessionID string) error {
	unlock, err := o.locks.Lock(ctx, sessionID)
	if err != nil {
		return err
	}
	defer unlock()
	return o.Sessions.DeleteSession(ctx, sessionID)
}
