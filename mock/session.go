package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.SessionService = (*SessionService)(nil)

// SessionService is a mock implementation of docchat.SessionService.
type SessionService struct {
	CreateSessionFn   func(ctx context.Context, session *docchat.Session) error
	FindSessionByIDFn func(ctx context.Context, id string) (*docchat.Session, error)
	AppendTurnFn      func(ctx context.Context, sessionID string, turn *docchat.Turn) error
	HistoryFn         func(ctx context.Context, sessionID string, limit int) ([]*docchat.Turn, error)
	UpdateStateFn     func(ctx context.Context, sessionID string, state docchat.WorkflowState) error
	CommitTurnFn      func(ctx context.Context, sessionID string, state docchat.WorkflowState, turns ...*docchat.Turn) error
	DeleteSessionFn   func(ctx context.Context, id string) error
}

func (s *SessionService) CreateSession(ctx context.Context, session *docchat.Session) error {
	return s.CreateSessionFn(ctx, session)
}

func (s *SessionService) FindSessionByID(ctx context.Context, id string) (*docchat.Session, error) {
	return s.FindSessionByIDFn(ctx, id)
}

func (s *SessionService) AppendTurn(ctx context.Context, sessionID string, turn *docchat.Turn) error {
	return s.AppendTurnFn(ctx, sessionID, turn)
}

func (s *SessionService) History(ctx context.Context, sessionID string, limit int) ([]*docchat.Turn, error) {
	return s.HistoryFn(ctx, sessionID, limit)
}

func (s *SessionService) UpdateState(ctx context.Context, sessionID string, state docchat.WorkflowState) error {
	return s.UpdateStateFn(ctx, sessionID, state)
}

func (s *SessionService) CommitTurn(ctx context.Context, sessionID string, state docchat.WorkflowState, turns ...*docchat.Turn) error {
	return s.CommitTurnFn(ctx, sessionID, state, turns...)
}

func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	return s.DeleteSessionFn(ctx, id)
}
