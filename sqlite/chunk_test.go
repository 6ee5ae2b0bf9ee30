package sqlite_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testChunks(job *docchat.Job, n int) []*docchat.Chunk {
	chunks := make([]*docchat.Chunk, n)
	for i := range chunks {
		kind := docchat.ChunkProse
		if i%2 == 1 {
			kind = docchat.ChunkCode
		}
		chunks[i] = &docchat.Chunk{
			JobID:       job.ID,
			SessionID:   job.SessionID,
			SourceURL:   job.SourceURL,
			SectionPath: []string{"Guide", fmt.Sprintf("Part %d", i)},
			Anchor:      fmt.Sprintf("part-%d", i),
			Position:    i,
			Kind:        kind,
			Content:     fmt.Sprintf("content %d of %s", i, job.ID),
			Embedding:   []float32{float32(i), 0.5, -1.25},
		}
	}
	return chunks
}

// createCompletedJob creates a job, indexes n chunks for it and completes it.
func createCompletedJob(t *testing.T, db *sqlite.DB, sessionID, sourceURL string, n int) *docchat.Job {
	t.Helper()
	ctx := context.Background()
	job := createTestJob(t, db, sessionID, sourceURL)
	svc := sqlite.NewJobService(db)
	_, err := svc.UpdateJob(ctx, job.ID, docchat.JobUpdate{Status: ptr(docchat.JobProcessing)})
	require.NoError(t, err)
	require.NoError(t, sqlite.NewChunkIndex(db).IndexChunks(ctx, job.ID, testChunks(job, n)))
	job, err = svc.UpdateJob(ctx, job.ID, docchat.JobUpdate{Status: ptr(docchat.JobCompleted), Progress: ptr(100)})
	require.NoError(t, err)
	return job
}

func TestChunkIndex_IndexChunks(t *testing.T) {
	t.Parallel()

	t.Run("round-trips chunk fields", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		job := createCompletedJob(t, db, "s1", "https://a.dev/doc", 2)

		chunks, err := sqlite.NewChunkIndex(db).FindChunks(context.Background(), docchat.ChunkFilter{SessionID: "s1"})
		require.NoError(t, err)
		require.Len(t, chunks, 2)

		want := testChunks(job, 2)
		assert.Equal(t, want[1].SectionPath, chunks[1].SectionPath)
		assert.Equal(t, want[1].Anchor, chunks[1].Anchor)
		assert.Equal(t, docchat.ChunkCode, chunks[1].Kind)
		assert.Equal(t, want[1].Embedding, chunks[1].Embedding)
		assert.NotEmpty(t, chunks[1].ContentHash)
	})

	t.Run("chunks are hidden until the job completes", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		job := createTestJob(t, db, "s1", "https://a.dev/doc")
		idx := sqlite.NewChunkIndex(db)
		ctx := context.Background()

		require.NoError(t, idx.IndexChunks(ctx, job.ID, testChunks(job, 3)))

		chunks, err := idx.FindChunks(ctx, docchat.ChunkFilter{SessionID: "s1"})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("rejects chunks without embeddings atomically", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		job := createTestJob(t, db, "s1", "https://a.dev/doc")
		idx := sqlite.NewChunkIndex(db)
		ctx := context.Background()

		chunks := testChunks(job, 3)
		chunks[2].Embedding = nil

		err := idx.IndexChunks(ctx, job.ID, chunks)
		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))

		var count int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("rejects chunks of another job", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		job := createTestJob(t, db, "s1", "https://a.dev/doc")

		chunks := testChunks(job, 1)
		chunks[0].JobID = "other"

		err := sqlite.NewChunkIndex(db).IndexChunks(context.Background(), job.ID, chunks)
		assert.Equal(t, docchat.EINVALID, docchat.ErrorCode(err))
	})

	t.Run("returns ENOTFOUND for unknown job", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		err := sqlite.NewChunkIndex(db).IndexChunks(context.Background(), "missing", nil)

		assert.Equal(t, docchat.ENOTFOUND, docchat.ErrorCode(err))
	})
}

func TestChunkIndex_FindChunks(t *testing.T) {
	t.Parallel()

	t.Run("filters by kind", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		createCompletedJob(t, db, "s1", "https://a.dev/doc", 4)

		chunks, err := sqlite.NewChunkIndex(db).FindChunks(context.Background(), docchat.ChunkFilter{
			SessionID: "s1",
			Kind:      ptr(docchat.ChunkCode),
		})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		for _, c := range chunks {
			assert.Equal(t, docchat.ChunkCode, c.Kind)
		}
	})

	t.Run("only the newest completed job per URL is visible", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		createCompletedJob(t, db, "s1", "https://a.dev/doc", 2)
		newer := createCompletedJob(t, db, "s1", "https://a.dev/doc", 1)
		other := createCompletedJob(t, db, "s1", "https://a.dev/other", 1)

		chunks, err := sqlite.NewChunkIndex(db).FindChunks(context.Background(), docchat.ChunkFilter{SessionID: "s1"})
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, newer.ID, chunks[0].JobID)
		assert.Equal(t, other.ID, chunks[1].JobID)
	})

	t.Run("isolates sessions", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		createTestSession(t, db, "s2")
		createCompletedJob(t, db, "s1", "https://a.dev/doc", 2)

		chunks, err := sqlite.NewChunkIndex(db).FindChunks(context.Background(), docchat.ChunkFilter{SessionID: "s2"})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestChunkIndex_Delete(t *testing.T) {
	t.Parallel()

	t.Run("deletes chunks by job", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		job := createCompletedJob(t, db, "s1", "https://a.dev/doc", 2)
		idx := sqlite.NewChunkIndex(db)
		ctx := context.Background()

		require.NoError(t, idx.DeleteChunksByJob(ctx, job.ID))

		chunks, err := idx.FindChunks(ctx, docchat.ChunkFilter{SessionID: "s1"})
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("deletes superseded chunks only", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		createTestSession(t, db, "s1")
		createCompletedJob(t, db, "s1", "https://a.dev/doc", 2)
		other := createCompletedJob(t, db, "s1", "https://a.dev/other", 1)
		newer := createCompletedJob(t, db, "s1", "https://a.dev/doc", 1)
		idx := sqlite.NewChunkIndex(db)
		ctx := context.Background()

		require.NoError(t, idx.DeleteSupersededChunks(ctx, newer.ID))

		var total int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&total))
		assert.Equal(t, 2, total)

		var otherCount int
		require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE job_id = ?", other.ID).Scan(&otherCount))
		assert.Equal(t, 1, otherCount)
	})
}
