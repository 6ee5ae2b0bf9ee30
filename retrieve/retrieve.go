// Package retrieve implements docchat.Retriever on top of an Embedder and a
// VectorIndex using brute-force cosine similarity.
package retrieve

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fwojciec/docchat"
	"golang.org/x/sync/errgroup"
)

// Defaults.
const (
	DefaultMinScore    = 0.35
	DefaultConcurrency = 4
	DefaultMaxTries    = 3
	DefaultK           = 5
)

var _ docchat.Retriever = (*Retriever)(nil)

// Retriever embeds chunks and queries, and ranks stored chunks by cosine
// similarity to the query.
type Retriever struct {
	embedder docchat.Embedder
	index    docchat.VectorIndex

	// MinScore drops matches scoring below it.
	MinScore float32

	// Concurrency bounds concurrent embedding calls during Index.
	Concurrency int

	// MaxTries bounds embedding attempts per text.
	MaxTries uint

	// NewBackOff returns the retry schedule for one embedding call.
	NewBackOff func() backoff.BackOff

	Logger *slog.Logger
}

// NewRetriever creates a Retriever with default settings.
func NewRetriever(embedder docchat.Embedder, index docchat.VectorIndex) *Retriever {
	return &Retriever{
		embedder:    embedder,
		index:       index,
		MinScore:    DefaultMinScore,
		Concurrency: DefaultConcurrency,
		MaxTries:    DefaultMaxTries,
		NewBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		},
	}
}

func (r *Retriever) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}

// embed embeds text, retrying failures with backoff. Errors other than
// EEMBED are not retried.
func (r *Retriever) embed(ctx context.Context, text string) ([]float32, error) {
	opts := []backoff.RetryOption{
		backoff.WithMaxTries(max(r.MaxTries, 1)),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger().Debug("embedding retry", "err", err, "next", next)
		}),
	}
	if r.NewBackOff != nil {
		opts = append(opts, backoff.WithBackOff(r.NewBackOff()))
	}

	v, err := backoff.Retry(ctx, func() ([]float32, error) {
		v, err := r.embedder.Embed(ctx, text)
		if err != nil {
			if code := docchat.ErrorCode(err); code != docchat.EEMBED && code != docchat.EINTERNAL {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if len(v) == 0 {
			return nil, docchat.Errorf(docchat.EEMBED, "empty embedding")
		}
		return v, nil
	}, opts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var appErr *docchat.Error
		if errors.As(err, &appErr) && appErr.Code == docchat.EEMBED {
			return nil, err
		}
		return nil, docchat.WrapError(docchat.EEMBED, err, "embedding failed: %v", err)
	}
	return v, nil
}

// Index embeds drafts with bounded concurrency and stores them for job in a
// single write. Nothing is stored unless every draft was embedded. progress
// is called serially with an increasing done count.
func (r *Retriever) Index(ctx context.Context, job *docchat.Job, drafts []docchat.ChunkDraft, progress docchat.IndexProgressFunc) error {
	chunks := make([]*docchat.Chunk, len(drafts))
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Concurrency, 1))

	for i, d := range drafts {
		g.Go(func() error {
			v, err := r.embed(gctx, embedText(d))
			if err != nil {
				return err
			}
			chunks[i] = &docchat.Chunk{
				JobID:       job.ID,
				SessionID:   job.SessionID,
				SourceURL:   job.SourceURL,
				SectionPath: d.SectionPath,
				Anchor:      d.Anchor,
				Position:    d.Position,
				Kind:        d.Kind,
				Language:    d.Language,
				Content:     d.Content,
				Embedding:   v,
			}
			mu.Lock()
			defer mu.Unlock()
			done++
			if progress != nil {
				progress(done, len(drafts))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	return r.index.IndexChunks(ctx, job.ID, chunks)
}

// embedText prefixes a draft with its section path so that headings
// contribute to the embedding.
func embedText(d docchat.ChunkDraft) string {
	if s := d.Section(); s != "" {
		return s + "\n\n" + d.Content
	}
	return d.Content
}

// Query ranks the session's visible chunks against q.Text.
func (r *Retriever) Query(ctx context.Context, q docchat.RetrievalQuery) (*docchat.RetrievalResult, error) {
	k := q.K
	if k <= 0 {
		k = DefaultK
	}

	query, err := r.embed(ctx, q.Text)
	if err != nil {
		return nil, err
	}

	chunks, err := r.index.FindChunks(ctx, docchat.ChunkFilter{SessionID: q.SessionID, Kind: q.Kind})
	if err != nil {
		return nil, err
	}

	var matches []docchat.ScoredChunk
	for _, c := range chunks {
		score := CosineSimilarity(query, c.Embedding)
		if score < r.MinScore {
			continue
		}
		matches = append(matches, docchat.ScoredChunk{Chunk: c, Score: score})
	}

	// Stable sort keeps index order (job, then position) among equal scores.
	slices.SortStableFunc(matches, func(a, b docchat.ScoredChunk) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if len(matches) > k {
		matches = matches[:k]
	}

	r.logger().Debug("retrieval",
		"session", q.SessionID,
		"candidates", len(chunks),
		"matches", len(matches))

	return &docchat.RetrievalResult{
		Query:   q.Text,
		Matches: matches,
		Empty:   len(matches) == 0,
	}, nil
}

// CosineSimilarity returns the cosine similarity of a and b, or 0 when the
// vectors differ in length or either is zero.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
