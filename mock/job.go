package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var _ docchat.JobService = (*JobService)(nil)

// JobService is a mock implementation of docchat.JobService.
type JobService struct {
	CreateJobFn   func(ctx context.Context, job *docchat.Job) error
	FindJobByIDFn func(ctx context.Context, id string) (*docchat.Job, error)
	FindJobsFn    func(ctx context.Context, filter docchat.JobFilter) ([]*docchat.Job, error)
	UpdateJobFn   func(ctx context.Context, id string, upd docchat.JobUpdate) (*docchat.Job, error)
}

func (s *JobService) CreateJob(ctx context.Context, job *docchat.Job) error {
	return s.CreateJobFn(ctx, job)
}

func (s *JobService) FindJobByID(ctx context.Context, id string) (*docchat.Job, error) {
	return s.FindJobByIDFn(ctx, id)
}

func (s *JobService) FindJobs(ctx context.Context, filter docchat.JobFilter) ([]*docchat.Job, error) {
	return s.FindJobsFn(ctx, filter)
}

func (s *JobService) UpdateJob(ctx context.Context, id string, upd docchat.JobUpdate) (*docchat.Job, error) {
	return s.UpdateJobFn(ctx, id, upd)
}
