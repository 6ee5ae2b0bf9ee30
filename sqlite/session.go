package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/fwojciec/docchat"
)

// Compile-time interface verification.
var _ docchat.SessionService = (*SessionService)(nil)

// SessionService implements docchat.SessionService using SQLite.
type SessionService struct {
	db *DB
}

// NewSessionService creates a new SessionService.
func NewSessionService(db *DB) *SessionService {
	return &SessionService{db: db}
}

// CreateSession creates a new session.
func (s *SessionService) CreateSession(ctx context.Context, session *docchat.Session) error {
	if err := session.Validate(); err != nil {
		return err
	}

	state, err := json.Marshal(session.State)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, state, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, session.ID, string(state), formatTime(now), formatTime(now))
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return docchat.Errorf(docchat.ECONFLICT, "session %s already exists", session.ID)
	}

	session.CreatedAt = now
	session.UpdatedAt = now
	return nil
}

// FindSessionByID retrieves a session by ID.
func (s *SessionService) FindSessionByID(ctx context.Context, id string) (*docchat.Session, error) {
	return findSessionByID(ctx, s.db, id)
}

func findSessionByID(ctx context.Context, q queryer, id string) (*docchat.Session, error) {
	var session docchat.Session
	var state, createdAt, updatedAt string

	err := q.QueryRowContext(ctx, `
		SELECT id, state, created_at, updated_at
		FROM sessions
		WHERE id = ?
	`, id).Scan(&session.ID, &state, &createdAt, &updatedAt)

	if err == sql.ErrNoRows {
		return nil, docchat.Errorf(docchat.ENOTFOUND, "session not found")
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(state), &session.State); err != nil {
		return nil, fmt.Errorf("failed to decode state: %w", err)
	}
	if session.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if session.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}

	return &session, nil
}

// AppendTurn appends a turn to the session and assigns its Seq.
func (s *SessionService) AppendTurn(ctx context.Context, sessionID string, turn *docchat.Turn) error {
	if err := turn.Validate(); err != nil {
		return err
	}
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := findSessionByID(ctx, tx, sessionID); err != nil {
			return err
		}
		now := time.Now().UTC()
		if err := appendTurn(ctx, tx, sessionID, turn, now); err != nil {
			return err
		}
		return touchSession(ctx, tx, sessionID, now)
	})
}

// CommitTurn atomically appends turns and replaces the workflow state.
func (s *SessionService) CommitTurn(ctx context.Context, sessionID string, state docchat.WorkflowState, turns ...*docchat.Turn) error {
	for _, turn := range turns {
		if err := turn.Validate(); err != nil {
			return err
		}
	}
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := findSessionByID(ctx, tx, sessionID); err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, turn := range turns {
			if err := appendTurn(ctx, tx, sessionID, turn, now); err != nil {
				return err
			}
		}
		return writeState(ctx, tx, sessionID, state, now)
	})
}

func appendTurn(ctx context.Context, tx *sql.Tx, sessionID string, turn *docchat.Turn, now time.Time) error {
	var seq int
	if err := tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE session_id = ?", sessionID,
	).Scan(&seq); err != nil {
		return err
	}

	citations, err := json.Marshal(turn.Citations)
	if err != nil {
		return fmt.Errorf("failed to encode citations: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (session_id, seq, role, content, citations, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sessionID, seq, string(turn.Role), turn.Content, string(citations), formatTime(now)); err != nil {
		return err
	}

	turn.SessionID = sessionID
	turn.Seq = seq
	turn.CreatedAt = now
	return nil
}

func touchSession(ctx context.Context, tx *sql.Tx, sessionID string, now time.Time) error {
	_, err := tx.ExecContext(ctx, "UPDATE sessions SET updated_at = ? WHERE id = ?", formatTime(now), sessionID)
	return err
}

func writeState(ctx context.Context, tx *sql.Tx, sessionID string, state docchat.WorkflowState, now time.Time) error {
	buf, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	result, err := tx.ExecContext(ctx,
		"UPDATE sessions SET state = ?, updated_at = ? WHERE id = ?",
		string(buf), formatTime(now), sessionID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return docchat.Errorf(docchat.ENOTFOUND, "session not found")
	}
	return nil
}

// History returns the session's turns in append order.
func (s *SessionService) History(ctx context.Context, sessionID string, limit int) ([]*docchat.Turn, error) {
	var query strings.Builder
	args := []any{sessionID}

	query.WriteString(`
		SELECT session_id, seq, role, content, citations, created_at FROM (
			SELECT * FROM turns WHERE session_id = ? ORDER BY seq DESC`)
	appendPagination(&query, &args, limit, 0)
	query.WriteString(`
		) ORDER BY seq ASC`)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []*docchat.Turn
	for rows.Next() {
		var turn docchat.Turn
		var role, citations, createdAt string

		if err := rows.Scan(&turn.SessionID, &turn.Seq, &role, &turn.Content, &citations, &createdAt); err != nil {
			return nil, err
		}
		turn.Role = docchat.Role(role)
		if err := json.Unmarshal([]byte(citations), &turn.Citations); err != nil {
			return nil, fmt.Errorf("failed to decode citations: %w", err)
		}
		if turn.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
			return nil, err
		}

		turns = append(turns, &turn)
	}

	return turns, rows.Err()
}

// UpdateState replaces the session's workflow state.
func (s *SessionService) UpdateState(ctx context.Context, sessionID string, state docchat.WorkflowState) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		return writeState(ctx, tx, sessionID, state, time.Now().UTC())
	})
}

// DeleteSession permanently removes a session with its turns, jobs and chunks.
func (s *SessionService) DeleteSession(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rows == 0 {
		return docchat.Errorf(docchat.ENOTFOUND, "session not found")
	}

	return nil
}
