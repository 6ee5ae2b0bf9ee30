package main

import (
	"fmt"
	"time"

	"github.com/fwojciec/docchat"
)

const defaultPollInterval = 500 * time.Millisecond

// Run executes the ingest command.
func (c *IngestCmd) Run(deps *Dependencies) error {
	id, err := deps.Ingester.StartIngestion(deps.Ctx, c.Session, c.URL)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Started job %s\n", id)
	if !c.Wait {
		return nil
	}
	return waitForJob(deps, id)
}

// waitForJob polls the job and prints each progress change until it
// reaches a terminal status.
func waitForJob(deps *Dependencies, id string) error {
	interval := deps.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := -1
	for {
		job, err := deps.Ingester.GetJobStatus(deps.Ctx, id)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
			return err
		}
		if job.Progress != last {
			last = job.Progress
			fmt.Fprintf(deps.Stdout, "  %3d%% %s\n", job.Progress, job.Status)
		}

		switch job.Status {
		case docchat.JobCompleted:
			fmt.Fprintf(deps.Stdout, "Job %s completed\n", id)
			return nil
		case docchat.JobFailed:
			fmt.Fprintf(deps.Stderr, "error: job %s failed: %s\n", id, job.Error)
			return docchat.Errorf(docchat.EINTERNAL, "job %s failed: %s", id, job.Error)
		}

		select {
		case <-deps.Ctx.Done():
			return deps.Ctx.Err()
		case <-ticker.C:
		}
	}
}

// Run executes the status command.
func (c *StatusCmd) Run(deps *Dependencies) error {
	job, err := deps.Ingester.GetJobStatus(deps.Ctx, c.Job)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docchat.ErrorMessage(err))
		return err
	}
	printJob(deps, job)
	return nil
}

func printJob(deps *Dependencies, job *docchat.Job) {
	fmt.Fprintf(deps.Stdout, "%s  %s  %d%%  %s\n", job.ID, job.Status, job.Progress, job.SourceURL)
	if job.Error != "" {
		fmt.Fprintf(deps.Stdout, "  error: %s\n", job.Error)
	}
}
