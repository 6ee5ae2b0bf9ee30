package mock

import (
	"context"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.VectorIndex = (*VectorIndex)(nil)
	_ docchat.Retriever   = (*Retriever)(nil)
)

// VectorIndex is a mock implementation of docchat.VectorIndex.
type VectorIndex struct {
	IndexChunksFn            func(ctx context.Context, jobID string, chunks []*docchat.Chunk) error
	FindChunksFn             func(ctx context.Context, filter docchat.ChunkFilter) ([]*docchat.Chunk, error)
	DeleteChunksByJobFn      func(ctx context.Context, jobID string) error
	DeleteSupersededChunksFn func(ctx context.Context, keepJobID string) error
}

func (v *VectorIndex) IndexChunks(ctx context.Context, jobID string, chunks []*docchat.Chunk) error {
	return v.IndexChunksFn(ctx, jobID, chunks)
}

func (v *VectorIndex) FindChunks(ctx context.Context, filter docchat.ChunkFilter) ([]*docchat.Chunk, error) {
	return v.FindChunksFn(ctx, filter)
}

func (v *VectorIndex) DeleteChunksByJob(ctx context.Context, jobID string) error {
	return v.DeleteChunksByJobFn(ctx, jobID)
}

func (v *VectorIndex) DeleteSupersededChunks(ctx context.Context, keepJobID string) error {
	return v.DeleteSupersededChunksFn(ctx, keepJobID)
}

// Retriever is a mock implementation of docchat.Retriever.
type Retriever struct {
	IndexFn func(ctx context.Context, job *docchat.Job, drafts []docchat.ChunkDraft, progress docchat.IndexProgressFunc) error
	QueryFn func(ctx context.Context, q docchat.RetrievalQuery) (*docchat.RetrievalResult, error)
}

func (r *Retriever) Index(ctx context.Context, job *docchat.Job, drafts []docchat.ChunkDraft, progress docchat.IndexProgressFunc) error {
	return r.IndexFn(ctx, job, drafts, progress)
}

func (r *Retriever) Query(ctx context.Context, q docchat.RetrievalQuery) (*docchat.RetrievalResult, error) {
	return r.QueryFn(ctx, q)
}
