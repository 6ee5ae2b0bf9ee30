package ingest

import (
	"context"
	"time"

	"github.com/fwojciec/docchat"
)

// DefaultRetryDelays returns the waits between fetch retries: 1s, 2s, 4s.
func DefaultRetryDelays() []time.Duration {
	return []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
}

// fetch retrieves the job's source, retrying transient failures once per
// entry in RetryDelays. Invalid input is never retried.
func (p *Pipeline) fetch(ctx context.Context, job *docchat.Job) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= len(p.RetryDelays); attempt++ {
		html, err := p.Fetcher.Fetch(ctx, job.SourceURL)
		if err == nil {
			return html, nil
		}
		lastErr = err

		if ctx.Err() != nil || docchat.ErrorCode(err) == docchat.EINVALID || attempt == len(p.RetryDelays) {
			break
		}

		p.logger().Debug("retrying fetch", "job", job.ID, "attempt", attempt+2, "err", err)

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(p.RetryDelays[attempt]):
		}
	}
	return "", lastErr
}
