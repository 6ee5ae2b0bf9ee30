package main_test

import (
	"bytes"
	"context"
	"strings"

	"github.com/fwojciec/docchat"
	main "github.com/fwojciec/docchat/cmd/docchat"
	"github.com/fwojciec/docchat/workflow"
)

type ingester struct {
	StartIngestionFn func(ctx context.Context, sessionID, url string) (string, error)
	GetJobStatusFn   func(ctx context.Context, jobID string) (*docchat.Job, error)
}

func (i *ingester) StartIngestion(ctx context.Context, sessionID, url string) (string, error) {
	return i.StartIngestionFn(ctx, sessionID, url)
}

func (i *ingester) GetJobStatus(ctx context.Context, jobID string) (*docchat.Job, error) {
	return i.GetJobStatusFn(ctx, jobID)
}

type conversation struct {
	SubmitTurnFn    func(ctx context.Context, sessionID, message string) (*workflow.TurnResult, error)
	GetHistoryFn    func(ctx context.Context, sessionID string) ([]*docchat.Turn, error)
	DeleteSessionFn func(ctx context.Context, sessionID string) error
}

func (c *conversation) SubmitTurn(ctx context.Context, sessionID, message string) (*workflow.TurnResult, error) {
	return c.SubmitTurnFn(ctx, sessionID, message)
}

func (c *conversation) GetHistory(ctx context.Context, sessionID string) ([]*docchat.Turn, error) {
	return c.GetHistoryFn(ctx, sessionID)
}

func (c *conversation) DeleteSession(ctx context.Context, sessionID string) error {
	return c.DeleteSessionFn(ctx, sessionID)
}

func newDeps(stdin string) (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:    context.Background(),
		Stdin:  strings.NewReader(stdin),
		Stdout: stdout,
		Stderr: stderr,
	}, stdout, stderr
}
