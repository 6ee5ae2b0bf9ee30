package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/docchat"
)

var (
	_ docchat.Retriever        = (*LoggingRetriever)(nil)
	_ docchat.IntentClassifier = (*LoggingClassifier)(nil)
)

// LoggingRetriever wraps a Retriever with debug logging.
type LoggingRetriever struct {
	next   docchat.Retriever
	logger *slog.Logger
}

// NewLoggingRetriever creates a new LoggingRetriever.
func NewLoggingRetriever(next docchat.Retriever, logger *slog.Logger) *LoggingRetriever {
	return &LoggingRetriever{next: next, logger: logger}
}

// Index logs the job and number of drafts indexed.
func (r *LoggingRetriever) Index(ctx context.Context, job *docchat.Job, drafts []docchat.ChunkDraft, progress docchat.IndexProgressFunc) (err error) {
	defer func(begin time.Time) {
		r.logger.Info("index",
			"job", job.ID,
			"chunks", len(drafts),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Index(ctx, job, drafts, progress)
}

// Query logs the query scope and number of matches.
func (r *LoggingRetriever) Query(ctx context.Context, q docchat.RetrievalQuery) (res *docchat.RetrievalResult, err error) {
	defer func(begin time.Time) {
		kind := "any"
		if q.Kind != nil {
			kind = string(*q.Kind)
		}
		matches := 0
		if res != nil {
			matches = len(res.Matches)
		}
		r.logger.Info("retrieve",
			"session", q.SessionID,
			"k", q.K,
			"kind", kind,
			"matches", matches,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return r.next.Query(ctx, q)
}

// LoggingClassifier wraps an IntentClassifier with debug logging.
type LoggingClassifier struct {
	next   docchat.IntentClassifier
	logger *slog.Logger
}

// NewLoggingClassifier creates a new LoggingClassifier.
func NewLoggingClassifier(next docchat.IntentClassifier, logger *slog.Logger) *LoggingClassifier {
	return &LoggingClassifier{next: next, logger: logger}
}

// Classify logs the resulting intent and confidence.
func (c *LoggingClassifier) Classify(ctx context.Context, message string, history []*docchat.Turn) (cl docchat.Classification, err error) {
	defer func(begin time.Time) {
		c.logger.Info("classify",
			"intent", cl.Intent,
			"confidence", cl.Confidence,
			"history", len(history),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return c.next.Classify(ctx, message, history)
}
