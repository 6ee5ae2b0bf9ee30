// Package ingest turns documentation URLs into indexed chunks as background
// jobs.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docchat"
)

// DefaultTimeout bounds one ingestion job.
const DefaultTimeout = 5 * time.Minute

// Progress checkpoints.
const (
	ProgressStarted   = 0
	ProgressFetched   = 10
	ProgressExtracted = 20
	ProgressChunked   = 30
	ProgressEmbedded  = 90
	ProgressIndexed   = 95
	ProgressCompleted = 100
)

// Segmenter splits a document into chunk drafts.
type Segmenter interface {
	Segment(doc *docchat.Document) []docchat.ChunkDraft
}

// Pipeline runs ingestion jobs. Each job runs in its own goroutine and
// reports its state through the JobService.
type Pipeline struct {
	Sessions  docchat.SessionService
	Jobs      docchat.JobService
	Index     docchat.VectorIndex
	Fetcher   docchat.Fetcher
	Cleaner   docchat.Cleaner // optional
	Extractor docchat.Extractor
	Converter docchat.Converter
	Chunker   Segmenter
	Retriever docchat.Retriever
	Timeout   time.Duration
	Logger    *slog.Logger

	// RetryDelays are the waits between fetch attempts. Nil disables
	// retries.
	RetryDelays []time.Duration

	mu      sync.Mutex
	running map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.Logger
}

// StartIngestion creates a pending job for url and processes it in the
// background. The session is created when it does not exist yet.
//
// Returns EINVALID for a malformed URL and ECONFLICT while the session has
// another job in progress.
func (p *Pipeline) StartIngestion(ctx context.Context, sessionID, url string) (string, error) {
	if strings.TrimSpace(sessionID) == "" {
		return "", docchat.Errorf(docchat.EINVALID, "session ID required")
	}
	if err := docchat.ValidateSourceURL(url); err != nil {
		return "", err
	}

	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return "", docchat.Errorf(docchat.EINTERNAL, "ingestion pipeline is closed")
	}

	if err := p.ensureSession(ctx, sessionID); err != nil {
		return "", err
	}

	job := &docchat.Job{SessionID: sessionID, SourceURL: url}
	if err := p.Jobs.CreateJob(ctx, job); err != nil {
		return "", err
	}

	jobCtx, cancel := context.WithTimeout(context.Background(), p.timeout())

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		err := docchat.Errorf(docchat.EINTERNAL, "ingestion pipeline is closed")
		p.fail(ctx, job, err)
		return "", err
	}
	if p.running == nil {
		p.running = make(map[string]context.CancelFunc)
	}
	p.running[job.ID] = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go p.run(jobCtx, job)

	p.logger().Info("ingestion started", "job", job.ID, "session", sessionID, "url", url)
	return job.ID, nil
}

func (p *Pipeline) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

func (p *Pipeline) ensureSession(ctx context.Context, id string) error {
	_, err := p.Sessions.FindSessionByID(ctx, id)
	if docchat.ErrorCode(err) != docchat.ENOTFOUND {
		return err
	}
	err = p.Sessions.CreateSession(ctx, &docchat.Session{ID: id})
	if docchat.ErrorCode(err) == docchat.ECONFLICT {
		return nil
	}
	return err
}

// GetJobStatus returns the current state of a job.
// Returns ENOTFOUND if the job does not exist.
func (p *Pipeline) GetJobStatus(ctx context.Context, jobID string) (*docchat.Job, error) {
	return p.Jobs.FindJobByID(ctx, jobID)
}

// CancelJob cancels a running job. The job ends as failed.
// Returns ENOTFOUND if no job with that ID is running.
func (p *Pipeline) CancelJob(jobID string) error {
	p.mu.Lock()
	cancel, ok := p.running[jobID]
	p.mu.Unlock()
	if !ok {
		return docchat.Errorf(docchat.ENOTFOUND, "job %s is not running", jobID)
	}
	cancel()
	return nil
}

// Recover fails jobs left pending or processing by a process that stopped
// mid-ingestion and purges their chunks. Jobs run by this pipeline are left
// alone. It returns the number of jobs recovered.
func (p *Pipeline) Recover(ctx context.Context) (int, error) {
	var orphans []*docchat.Job
	for _, status := range []docchat.JobStatus{docchat.JobPending, docchat.JobProcessing} {
		jobs, err := p.Jobs.FindJobs(ctx, docchat.JobFilter{Status: &status})
		if err != nil {
			return 0, err
		}
		orphans = append(orphans, jobs...)
	}

	n := 0
	for _, job := range orphans {
		p.mu.Lock()
		_, running := p.running[job.ID]
		p.mu.Unlock()
		if running {
			continue
		}
		if err := p.Index.DeleteChunksByJob(ctx, job.ID); err != nil {
			return n, err
		}
		if err := p.markFailed(ctx, job, "ingestion interrupted"); err != nil {
			return n, err
		}
		p.logger().Warn("recovered interrupted job", "job", job.ID, "session", job.SessionID)
		n++
	}
	return n, nil
}

// Wait blocks until every started job has finished.
func (p *Pipeline) Wait() {
	p.wg.Wait()
}

// Close cancels running jobs, waits for them to finish and rejects new
// ones.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	p.closed = true
	for _, cancel := range p.running {
		cancel()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

func (p *Pipeline) run(ctx context.Context, job *docchat.Job) {
	defer p.wg.Done()
	defer func() {
		p.mu.Lock()
		cancel := p.running[job.ID]
		delete(p.running, job.ID)
		p.mu.Unlock()
		cancel()
	}()

	start := time.Now()
	log := p.logger().With("job", job.ID, "url", job.SourceURL)

	if err := p.process(ctx, job); err != nil {
		p.fail(ctx, job, err)
		log.Warn("ingestion failed", "duration", time.Since(start), "err", err)
		return
	}

	if err := p.Index.DeleteSupersededChunks(context.WithoutCancel(ctx), job.ID); err != nil {
		log.Warn("failed to purge superseded chunks", "err", err)
	}
	log.Info("ingestion completed", "duration", time.Since(start))
}

// process moves the job from pending to completed.
func (p *Pipeline) process(ctx context.Context, job *docchat.Job) error {
	status := docchat.JobProcessing
	if err := p.update(ctx, job, docchat.JobUpdate{Status: &status, Progress: intPtr(ProgressStarted)}); err != nil {
		return err
	}

	html, err := p.fetch(ctx, job)
	if err != nil {
		return stageError("fetch", docchat.EFETCH, err)
	}
	if err := p.progress(ctx, job, ProgressFetched); err != nil {
		return err
	}

	doc, err := p.extract(job.SourceURL, html)
	if err != nil {
		return err
	}
	if err := p.progress(ctx, job, ProgressExtracted); err != nil {
		return err
	}

	drafts := p.Chunker.Segment(doc)
	if len(drafts) == 0 {
		return docchat.Errorf(docchat.EFETCH, "no content found at %s", job.SourceURL)
	}
	if err := p.progress(ctx, job, ProgressChunked); err != nil {
		return err
	}

	last := ProgressChunked
	err = p.Retriever.Index(ctx, job, drafts, func(done, total int) {
		pct := ProgressChunked + (ProgressEmbedded-ProgressChunked)*done/total
		if pct <= last {
			return
		}
		last = pct
		if err := p.progress(ctx, job, pct); err != nil {
			p.logger().Debug("progress update failed", "job", job.ID, "err", err)
		}
	})
	if err != nil {
		return stageError("index", docchat.EEMBED, err)
	}
	if err := p.progress(ctx, job, ProgressIndexed); err != nil {
		return err
	}

	completed := docchat.JobCompleted
	return p.update(ctx, job, docchat.JobUpdate{Status: &completed, Progress: intPtr(ProgressCompleted)})
}

// extract cleans raw HTML, extracts the main content and maps it to a
// structured document.
func (p *Pipeline) extract(url, html string) (*docchat.Document, error) {
	var title string
	if p.Cleaner != nil {
		cleaned, t, err := p.Cleaner.Clean(html)
		if err != nil {
			return nil, stageError("clean", docchat.EFETCH, err)
		}
		html, title = cleaned, t
	}

	res, err := p.Extractor.Extract(html)
	if err != nil {
		return nil, stageError("extract", docchat.EFETCH, err)
	}
	if res.Title != "" {
		title = res.Title
	}

	md, err := p.Converter.Convert(res.ContentHTML)
	if err != nil {
		return nil, stageError("convert", docchat.EFETCH, err)
	}
	if strings.TrimSpace(md) == "" {
		return nil, docchat.Errorf(docchat.EFETCH, "no content found at %s", url)
	}

	return docchat.ParseDocument(url, title, md), nil
}

func (p *Pipeline) progress(ctx context.Context, job *docchat.Job, pct int) error {
	return p.update(ctx, job, docchat.JobUpdate{Progress: &pct})
}

func (p *Pipeline) update(ctx context.Context, job *docchat.Job, upd docchat.JobUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	updated, err := p.Jobs.UpdateJob(ctx, job.ID, upd)
	if err != nil {
		return err
	}
	*job = *updated
	return nil
}

// fail marks the job failed and purges whatever it indexed. It runs on a
// fresh context so that cancelled jobs are still recorded.
func (p *Pipeline) fail(ctx context.Context, job *docchat.Job, cause error) {
	bg, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := p.Index.DeleteChunksByJob(bg, job.ID); err != nil {
		p.logger().Warn("failed to purge chunks of failed job", "job", job.ID, "err", err)
	}

	if err := p.markFailed(bg, job, failureMessage(cause)); err != nil {
		p.logger().Error("failed to record job failure", "job", job.ID, "err", err)
	}
}

// markFailed moves job to failed with msg. A pending job passes through
// processing first.
func (p *Pipeline) markFailed(ctx context.Context, job *docchat.Job, msg string) error {
	if job.Status == docchat.JobPending {
		processing := docchat.JobProcessing
		if _, err := p.Jobs.UpdateJob(ctx, job.ID, docchat.JobUpdate{Status: &processing}); err != nil {
			return err
		}
	}
	status := docchat.JobFailed
	_, err := p.Jobs.UpdateJob(ctx, job.ID, docchat.JobUpdate{Status: &status, Error: &msg})
	return err
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "ingestion cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "ingestion timed out"
	}
	return docchat.ErrorMessage(err)
}

// stageError attributes err to a pipeline stage. Application errors keep
// their code; others get code. Context errors are returned unchanged.
func stageError(stage, code string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if c := docchat.ErrorCode(err); c != docchat.EINTERNAL {
		code = c
	}
	return docchat.WrapError(code, err, "%s: %s", stage, docchat.ErrorMessage(err))
}

func intPtr(v int) *int { return &v }

