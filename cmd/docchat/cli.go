package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/workflow"
)

// Ingester starts and reports ingestion jobs.
type Ingester interface {
	StartIngestion(ctx context.Context, sessionID, url string) (string, error)
	GetJobStatus(ctx context.Context, jobID string) (*docchat.Job, error)
}

// Conversation runs turns against a session.
type Conversation interface {
	SubmitTurn(ctx context.Context, sessionID, message string) (*workflow.TurnResult, error)
	GetHistory(ctx context.Context, sessionID string) ([]*docchat.Turn, error)
	DeleteSession(ctx context.Context, sessionID string) error
}

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx          context.Context
	Stdin        io.Reader
	Stdout       io.Writer
	Stderr       io.Writer
	Ingester     Ingester
	Conversation Conversation

	// PollInterval is how often job progress is checked while waiting.
	PollInterval time.Duration
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Config string `short:"c" help:"Config file path (default $DOCCHAT_CONFIG or ~/.docchat/config.yaml)"`
	Debug  bool   `help:"Log collaborator calls to stderr"`

	Ingest  IngestCmd  `cmd:"" help:"Ingest a documentation URL into a session"`
	Status  StatusCmd  `cmd:"" help:"Show the status of an ingestion job"`
	Ask     AskCmd     `cmd:"" help:"Ask one question in a session"`
	Chat    ChatCmd    `cmd:"" help:"Start an interactive chat in a session"`
	History HistoryCmd `cmd:"" help:"Show the conversation history of a session"`
	Delete  DeleteCmd  `cmd:"" help:"Delete a session with its jobs and chunks"`
}

// IngestCmd is the "ingest" subcommand.
type IngestCmd struct {
	Session string `arg:"" help:"Session ID"`
	URL     string `arg:"" help:"Documentation URL"`
	Wait    bool   `short:"w" help:"Print progress until the job finishes"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct {
	Job string `arg:"" help:"Job ID"`
}

// AskCmd is the "ask" subcommand.
type AskCmd struct {
	Session string `arg:"" help:"Session ID"`
	Message string `arg:"" help:"Question to ask about the documentation"`
}

// ChatCmd is the "chat" subcommand.
type ChatCmd struct {
	Session string `arg:"" help:"Session ID"`
}

// HistoryCmd is the "history" subcommand.
type HistoryCmd struct {
	Session string `arg:"" help:"Session ID"`
}

// DeleteCmd is the "delete" subcommand.
type DeleteCmd struct {
	Session string `arg:"" help:"Session ID"`
	Force   bool   `help:"Confirm deletion"`
}
