package docchat

import (
	"context"
	"strings"
	"time"
)

// Role identifies the author of a turn.
type Role string

// Turn roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Citation points at the documentation a response was grounded on.
type Citation struct {
	URL    string `json:"url"`
	Anchor string `json:"anchor,omitempty"`
}

// String returns the citation as a URL with an optional fragment.
func (c Citation) String() string {
	if c.Anchor == "" {
		return c.URL
	}
	return c.URL + "#" + c.Anchor
}

// Turn is a single message within a session. Turns are immutable once
// appended; Seq is assigned by the store on append.
type Turn struct {
	SessionID string     `json:"sessionId"`
	Seq       int        `json:"seq"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Validate returns an error if the turn contains invalid fields.
func (t *Turn) Validate() error {
	if t.Role != RoleUser && t.Role != RoleAssistant {
		return Errorf(EINVALID, "turn role must be %q or %q", RoleUser, RoleAssistant)
	}
	if strings.TrimSpace(t.Content) == "" {
		return Errorf(EINVALID, "turn content required")
	}
	return nil
}

// WorkflowState is the per-session routing memory carried between turns.
type WorkflowState struct {
	LastIntent Intent `json:"lastIntent,omitempty"`

	// LastQuery is the retrieval query of the previous turn, if any.
	LastQuery string `json:"lastQuery,omitempty"`

	// LastRetrievalEmpty is set when the previous retrieval found nothing
	// above the relevance threshold.
	LastRetrievalEmpty bool `json:"lastRetrievalEmpty"`

	// AwaitingClarification is set while a clarifying question is open.
	AwaitingClarification bool `json:"awaitingClarification"`

	// ClarificationRounds counts clarifying questions asked since the last
	// grounded answer.
	ClarificationRounds int `json:"clarificationRounds"`
}

// Session is a conversation bound to ingested documentation.
type Session struct {
	ID        string        `json:"id"`
	State     WorkflowState `json:"state"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

// Validate returns an error if the session contains invalid fields.
func (s *Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return Errorf(EINVALID, "session ID required")
	}
	return nil
}

// SessionService is the session memory store. Appending turns is the only
// way conversation history changes.
type SessionService interface {
	// CreateSession creates a new session.
	// Returns ECONFLICT if a session with the same ID exists.
	CreateSession(ctx context.Context, session *Session) error

	// FindSessionByID retrieves a session by ID.
	// Returns ENOTFOUND if the session does not exist.
	FindSessionByID(ctx context.Context, id string) (*Session, error)

	// AppendTurn appends a turn to the session and assigns its Seq.
	AppendTurn(ctx context.Context, sessionID string, turn *Turn) error

	// History returns the session's turns in append order. When limit is
	// positive only the most recent limit turns are returned.
	History(ctx context.Context, sessionID string, limit int) ([]*Turn, error)

	// UpdateState replaces the session's workflow state.
	UpdateState(ctx context.Context, sessionID string, state WorkflowState) error

	// CommitTurn atomically appends turns and replaces the workflow state.
	// Either everything is written or nothing is.
	CommitTurn(ctx context.Context, sessionID string, state WorkflowState, turns ...*Turn) error

	// DeleteSession removes a session with its turns, jobs and chunks.
	// Returns ENOTFOUND if the session does not exist.
	DeleteSession(ctx context.Context, id string) error
}
