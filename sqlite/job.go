package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ docchat.JobService = (*JobService)(nil)

// JobService implements docchat.JobService using SQLite.
type JobService struct {
	db *DB
}

// NewJobService creates a new JobService.
func NewJobService(db *DB) *JobService {
	return &JobService{db: db}
}

const jobColumns = "id, session_id, source_url, status, progress, error, created_at, updated_at"

// CreateJob creates a new pending job.
func (s *JobService) CreateJob(ctx context.Context, job *docchat.Job) error {
	if err := job.Validate(); err != nil {
		return err
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := findSessionByID(ctx, tx, job.SessionID); err != nil {
			return err
		}

		var active int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM jobs
			WHERE session_id = ? AND status IN (?, ?)
		`, job.SessionID, string(docchat.JobPending), string(docchat.JobProcessing)).Scan(&active); err != nil {
			return err
		}
		if active > 0 {
			return docchat.Errorf(docchat.ECONFLICT, "session %s already has an ingestion in progress", job.SessionID)
		}

		if job.ID == "" {
			job.ID = uuid.New().String()
		}
		now := time.Now().UTC()
		job.Status = docchat.JobPending
		job.Progress = 0
		job.Error = ""
		job.CreatedAt = now
		job.UpdatedAt = now

		_, err := tx.ExecContext(ctx, `
			INSERT INTO jobs (id, session_id, source_url, status, progress, error, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, job.ID, job.SessionID, job.SourceURL, string(job.Status), job.Progress, job.Error,
			formatTime(job.CreatedAt), formatTime(job.UpdatedAt))
		return err
	})
}

// FindJobByID retrieves a job by ID.
func (s *JobService) FindJobByID(ctx context.Context, id string) (*docchat.Job, error) {
	return findJobByID(ctx, s.db, id)
}

func findJobByID(ctx context.Context, q queryer, id string) (*docchat.Job, error) {
	job, err := scanJob(q.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return nil, docchat.Errorf(docchat.ENOTFOUND, "job not found")
	}
	return job, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanJob(row scanner) (*docchat.Job, error) {
	var job docchat.Job
	var status, createdAt, updatedAt string

	if err := row.Scan(&job.ID, &job.SessionID, &job.SourceURL, &status, &job.Progress, &job.Error,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	job.Status = docchat.JobStatus(status)

	var err error
	if job.CreatedAt, err = parseRFC3339(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if job.UpdatedAt, err = parseRFC3339(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &job, nil
}

// FindJobs retrieves jobs matching the filter, newest first.
func (s *JobService) FindJobs(ctx context.Context, filter docchat.JobFilter) ([]*docchat.Job, error) {
	var query strings.Builder
	var args []any

	query.WriteString("SELECT " + jobColumns + " FROM jobs WHERE 1=1")

	if filter.ID != nil {
		query.WriteString(" AND id = ?")
		args = append(args, *filter.ID)
	}
	if filter.SessionID != nil {
		query.WriteString(" AND session_id = ?")
		args = append(args, *filter.SessionID)
	}
	if filter.SourceURL != nil {
		query.WriteString(" AND source_url = ?")
		args = append(args, *filter.SourceURL)
	}
	if filter.Status != nil {
		query.WriteString(" AND status = ?")
		args = append(args, string(*filter.Status))
	}

	query.WriteString(" ORDER BY seq DESC")
	appendPagination(&query, &args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*docchat.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// UpdateJob applies a forward-only update to a job.
func (s *JobService) UpdateJob(ctx context.Context, id string, upd docchat.JobUpdate) (*docchat.Job, error) {
	var job *docchat.Job
	err := s.db.withTx(ctx, func(tx *sql.Tx) error {
		var err error
		job, err = findJobByID(ctx, tx, id)
		if err != nil {
			return err
		}

		if err := job.Apply(upd); err != nil {
			return err
		}
		job.UpdatedAt = time.Now().UTC()

		_, err = tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = ?, progress = ?, error = ?, updated_at = ?
			WHERE id = ?
		`, string(job.Status), job.Progress, job.Error, formatTime(job.UpdatedAt), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}
