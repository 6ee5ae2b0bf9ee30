package docchat

import (
	"context"
	"net/url"
	"time"
)

// JobStatus is the lifecycle state of an ingestion job.
type JobStatus string

// Job statuses. Jobs move pending → processing → completed|failed and never
// backwards.
const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CanTransition reports whether a job in status s may move to next.
// Remaining in the same non-terminal status is allowed so that progress can
// be reported.
func (s JobStatus) CanTransition(next JobStatus) bool {
	switch s {
	case JobPending:
		return next == JobPending || next == JobProcessing
	case JobProcessing:
		return next == JobProcessing || next == JobCompleted || next == JobFailed
	default:
		return false
	}
}

// Job tracks the asynchronous ingestion of one documentation URL for a
// session.
type Job struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	SourceURL string    `json:"sourceUrl"`
	Status    JobStatus `json:"status"`
	Progress  int       `json:"progress"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate returns an error if the job contains invalid fields.
func (j *Job) Validate() error {
	if j.SessionID == "" {
		return Errorf(EINVALID, "job session ID required")
	}
	if err := ValidateSourceURL(j.SourceURL); err != nil {
		return err
	}
	if j.Progress < 0 || j.Progress > 100 {
		return Errorf(EINVALID, "job progress must be between 0 and 100")
	}
	return nil
}

// ValidateSourceURL returns EINVALID unless u is an absolute http(s) URL.
func ValidateSourceURL(u string) error {
	if u == "" {
		return Errorf(EINVALID, "source URL required")
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return Errorf(EINVALID, "invalid source URL: %v", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return Errorf(EINVALID, "source URL must use http or https")
	}
	if parsed.Host == "" {
		return Errorf(EINVALID, "source URL must include a host")
	}
	return nil
}

// JobUpdate represents fields that can be updated on a job.
type JobUpdate struct {
	Status   *JobStatus `json:"status"`
	Progress *int       `json:"progress"`
	Error    *string    `json:"error"`
}

// Apply validates upd against the job's current state and applies it.
// Returns ECONFLICT for backward or post-terminal transitions and EINVALID
// for decreasing or out-of-range progress.
func (j *Job) Apply(upd JobUpdate) error {
	next := j.Status
	if upd.Status != nil {
		next = *upd.Status
	}
	if !j.Status.CanTransition(next) {
		return Errorf(ECONFLICT, "job %s cannot transition from %s to %s", j.ID, j.Status, next)
	}
	progress := j.Progress
	if upd.Progress != nil {
		progress = *upd.Progress
	}
	if progress < j.Progress {
		return Errorf(EINVALID, "job progress cannot decrease from %d to %d", j.Progress, progress)
	}
	if progress > 100 {
		return Errorf(EINVALID, "job progress cannot exceed 100")
	}
	if next == JobCompleted && progress != 100 {
		return Errorf(EINVALID, "completed job must report progress 100")
	}
	if upd.Error != nil && next != JobFailed {
		return Errorf(EINVALID, "job error may only be set on failure")
	}

	j.Status = next
	j.Progress = progress
	if upd.Error != nil {
		j.Error = *upd.Error
	}
	return nil
}

// JobService represents a service for managing ingestion jobs.
type JobService interface {
	// CreateJob creates a new pending job.
	// Returns ECONFLICT if the session already has a pending or processing job.
	CreateJob(ctx context.Context, job *Job) error

	// FindJobByID retrieves a job by ID.
	// Returns ENOTFOUND if the job does not exist.
	FindJobByID(ctx context.Context, id string) (*Job, error)

	// FindJobs retrieves jobs matching the filter, newest first.
	FindJobs(ctx context.Context, filter JobFilter) ([]*Job, error)

	// UpdateJob applies a forward-only update to a job.
	// Returns ENOTFOUND if the job does not exist and ECONFLICT for an
	// invalid transition.
	UpdateJob(ctx context.Context, id string, upd JobUpdate) (*Job, error)
}

// JobFilter represents a filter for FindJobs.
type JobFilter struct {
	ID        *string    `json:"id"`
	SessionID *string    `json:"sessionId"`
	SourceURL *string    `json:"sourceUrl"`
	Status    *JobStatus `json:"status"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}
