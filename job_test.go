package docchat_test

import (
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestJobStatus_CanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from, to docchat.JobStatus
		want     bool
	}{
		{docchat.JobPending, docchat.JobProcessing, true},
		{docchat.JobPending, docchat.JobCompleted, false},
		{docchat.JobProcessing, docchat.JobProcessing, true},
		{docchat.JobProcessing, docchat.JobCompleted, true},
		{docchat.JobProcessing, docchat.JobFailed, true},
		{docchat.JobProcessing, docchat.JobPending, false},
		{docchat.JobCompleted, docchat.JobProcessing, false},
		{docchat.JobCompleted, docchat.JobCompleted, false},
		{docchat.JobFailed, docchat.JobProcessing, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
		})
	}
}

func TestJob_Apply(t *testing.T) {
	t.Parallel()

	t.Run("advances progress", func(t *testing.T) {
		t.Parallel()

		job := &docchat.Job{ID: "j1", Status: docchat.JobPending}

		require.NoError(t, job.Apply(docchat.JobUpdate{Status: ptr(docchat.JobProcessing), Progress: ptr(10)}))
		require.NoError(t, job.Apply(docchat.JobUpdate{Progress: ptr(30)}))
		require.NoError(t, job.Apply(docchat.JobUpdate{Status: ptr(docchat.JobCompleted), Progress: ptr(100)}))

		assert.Equal(t, docchat.JobCompleted, job.Status)
		assert.Equal(t, 100, job.Progress)
	})

	t.Run("rejects decreasing progress", func(t *testing.T) {
		t.Parallel()

		job := &docchat.Job{ID: "j1", Status: docchat.JobProcessing, Progress: 50}

		err := job.Apply(docchat.JobUpdate{Progress: ptr(30)})

		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))
		assert.Equal(t, 50, job.Progress)
	})

	t.Run("rejects progress over 100", func(t *testing.T) {
		t.Parallel()

		job := &docchat.Job{ID: "j1", Status: docchat.JobProcessing}

		err := job.Apply(docchat.JobUpdate{Progress: ptr(101)})

		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))
	})

	t.Run("rejects completion below 100", func(t *testing.T) {
		t.Parallel()

		job := &docchat.Job{ID: "j1", Status: docchat.JobProcessing, Progress: 70}

		err := job.Apply(docchat.JobUpdate{Status: ptr(docchat.JobCompleted)})

		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))
	})

	t.Run("rejects transitions out of terminal states", func(t *testing.T) {
		t.Parallel()

		job := &docchat.Job{ID: "j1", Status: docchat.JobFailed, Progress: 30, Error: "boom"}

		err := job.Apply(docchat.JobUpdate{Status: ptr(docchat.JobProcessing)})

		assert.Equal(t, docchat.ECONFLICT, docchat.ErrorCode(err))
		assert.Equal(t, docchat.JobFailed, job.Status)
	})

	t.Run("records error on failure", func(t *testing.T) {
		t.Parallel()

		job := &docchat.Job{ID: "j1", Status: docchat.JobProcessing, Progress: 30}

		require.NoError(t, job.Apply(docchat.JobUpdate{Status: ptr(docchat.JobFailed), Error: ptr("fetch failed")}))

		assert.Equal(t, "fetch failed", job.Error)
		assert.Equal(t, 30, job.Progress)
	})

	t.Run("rejects error without failure", func(t *testing.T) {
		t.Parallel()

		job := &docchat.Job{ID: "j1", Status: docchat.JobProcessing}

		err := job.Apply(docchat.JobUpdate{Error: ptr("oops")})

		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))
	})
}

func TestValidateSourceURL(t *testing.T) {
	t.Parallel()

	assert.NoError(t, docchat.ValidateSourceURL("https://example.com/docs"))
	for _, u := range []string{"", "ftp://example.com", "example.com/docs", "http://"} {
		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(docchat.ValidateSourceURL(u)), u)
	}
}
