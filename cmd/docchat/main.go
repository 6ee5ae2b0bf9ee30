package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/chunk"
	"github.com/fwojciec/docchat/compose"
	"github.com/fwojciec/docchat/gemini"
	"github.com/fwojciec/docchat/goquery"
	"github.com/fwojciec/docchat/htmltomarkdown"
	docchathttp "github.com/fwojciec/docchat/http"
	"github.com/fwojciec/docchat/ingest"
	"github.com/fwojciec/docchat/intent"
	"github.com/fwojciec/docchat/readability"
	"github.com/fwojciec/docchat/retrieve"
	"github.com/fwojciec/docchat/rod"
	docslog "github.com/fwojciec/docchat/slog"
	"github.com/fwojciec/docchat/sqlite"
	"github.com/fwojciec/docchat/trafilatura"
	"github.com/fwojciec/docchat/workflow"
	"github.com/joho/godotenv"
	"google.golang.org/genai"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// A missing .env file is fine.
	_ = godotenv.Load()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Config and database paths. DBPath overrides the config when set.
	ConfigPath string
	DBPath     string

	// Stdin feeds the chat command.
	Stdin io.Reader

	// Collaborators built from the config when nil. Set for end-to-end
	// testing.
	Generator docchat.Generator
	Embedder  docchat.Embedder
	Fetcher   docchat.Fetcher
	Tokens    docchat.TokenCounter

	// SQLite database used by SQLite service implementations.
	DB *sqlite.DB

	Pipeline     *ingest.Pipeline
	Orchestrator *workflow.Orchestrator
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{
		ConfigPath: defaultConfigPath(),
		DBPath:     os.Getenv("DOCCHAT_DB"),
		Stdin:      os.Stdin,
	}
}

// Close cancels running jobs and closes resources.
func (m *Main) Close() error {
	if m.Pipeline != nil {
		_ = m.Pipeline.Close()
	}
	if m.Fetcher != nil {
		_ = m.Fetcher.Close()
	}
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	deps := &Dependencies{
		Ctx:    ctx,
		Stdin:  m.Stdin,
		Stdout: stdout,
		Stderr: stderr,
	}

	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("docchat"),
		kong.Description("Chat with documentation pages."),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
		kong.Bind(deps),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no command specified. Run 'docchat --help' to see available commands")
	}

	switch args[0] {
	case "help", "--help", "-h":
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	kongCtx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	cmd := strings.Fields(kongCtx.Command())[0]

	configPath := m.ConfigPath
	if cli.Config != "" {
		configPath = cli.Config
	}
	cfg, err := LoadConfig(configPath)
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Set DOCCHAT_CONFIG to use a different config file")
		return err
	}
	if m.DBPath != "" {
		cfg.Database = m.DBPath
	}

	logger := slog.New(slog.DiscardHandler)
	if cli.Debug {
		logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	m.DB = sqlite.NewDB(cfg.Database)
	if err := m.DB.Open(); err != nil {
		fmt.Fprintf(stderr, "Hint: Set DOCCHAT_DB to use a different database path\n")
		return fmt.Errorf("failed to open database at %q: %w", cfg.Database, err)
	}
	defer func() {
		// Let background jobs finish unless the user interrupted.
		if m.Pipeline != nil && ctx.Err() == nil {
			m.Pipeline.Wait()
		}
		m.Close()
	}()

	m.wireStorage(cfg, logger)
	if _, err := m.Pipeline.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover interrupted jobs: %w", err)
	}
	deps.Ingester = m.Pipeline
	deps.Conversation = m.Orchestrator

	switch cmd {
	case "ingest", "ask", "chat":
		if err := m.wireModels(ctx, cfg, logger, cli.Debug, stderr); err != nil {
			return err
		}
	}
	switch cmd {
	case "ingest", "chat":
		if err := m.wireIngestion(cfg, logger, cli.Debug, stderr); err != nil {
			return err
		}
	}

	return kongCtx.Run(deps)
}

// wireStorage builds the pipeline and orchestrator around the SQLite
// services. Status, history and delete need nothing more.
func (m *Main) wireStorage(cfg *Config, logger *slog.Logger) {
	sessions := sqlite.NewSessionService(m.DB)
	jobs := sqlite.NewJobService(m.DB)

	m.Pipeline = &ingest.Pipeline{
		Sessions:    sessions,
		Jobs:        jobs,
		Index:       sqlite.NewChunkIndex(m.DB),
		Cleaner:     goquery.NewCleaner(),
		Converter:   htmltomarkdown.NewConverter(),
		Chunker:     &chunk.Chunker{MaxSize: cfg.Chunking.MaxSize, MergeProseMax: cfg.Chunking.MergeProseMax},
		Timeout:     cfg.IngestTimeout(),
		RetryDelays: cfg.RetryDelays(),
		Logger:      logger,
	}
	m.Orchestrator = &workflow.Orchestrator{
		Sessions:     sessions,
		Jobs:         jobs,
		Policy:       workflow.UnreadyPolicy(cfg.Conversation.UnreadyPolicy),
		MaxRounds:    cfg.Conversation.MaxClarificationRounds,
		DocsK:        cfg.Retrieval.DocsK,
		CodeK:        cfg.Retrieval.CodeK,
		HistoryLimit: cfg.Conversation.HistoryLimit,
		TurnTimeout:  cfg.TurnTimeout(),
		Logger:       logger,
	}
}

// wireModels connects the model-backed collaborators.
func (m *Main) wireModels(ctx context.Context, cfg *Config, logger *slog.Logger, debug bool, stderr io.Writer) error {
	if m.Generator == nil || m.Embedder == nil {
		client, err := newGenAIClient(ctx, stderr)
		if err != nil {
			return err
		}
		if m.Generator == nil {
			m.Generator = gemini.NewGenerator(client, cfg.Models.Generation)
		}
		if m.Embedder == nil {
			embedder := gemini.NewEmbedder(client, cfg.Models.Embedding, cfg.Models.EmbedRPS)
			embedder.Dimensions = cfg.Models.EmbeddingDimensions
			m.Embedder = embedder
		}
	}
	if m.Tokens == nil && cfg.Conversation.TokenBudget > 0 {
		tokens, err := gemini.NewTokenCounter(cfg.Models.Generation)
		if err != nil {
			return fmt.Errorf("failed to create token counter: %w", err)
		}
		m.Tokens = tokens
	}

	var (
		generator docchat.Generator = m.Generator
		embedder  docchat.Embedder  = m.Embedder
	)
	if debug {
		generator = docslog.NewLoggingGenerator(generator, logger)
		embedder = docslog.NewLoggingEmbedder(embedder, logger)
	}

	r := retrieve.NewRetriever(embedder, m.Pipeline.Index)
	r.MinScore = cfg.Retrieval.MinScore
	r.Concurrency = cfg.Retrieval.Concurrency
	r.Logger = logger
	var retriever docchat.Retriever = r

	c := intent.NewClassifier(generator)
	c.Threshold = cfg.Conversation.ClassifierThreshold
	c.Logger = logger
	var classifier docchat.IntentClassifier = c

	if debug {
		retriever = docslog.NewLoggingRetriever(retriever, logger)
		classifier = docslog.NewLoggingClassifier(classifier, logger)
	}

	answers := compose.NewAnswerComposer(generator)
	answers.HistoryTurns = cfg.Conversation.HistoryTurns
	answers.Tokens = m.Tokens
	answers.TokenBudget = cfg.Conversation.TokenBudget
	answers.Logger = logger

	clarifier := compose.NewClarificationComposer(generator)
	clarifier.Logger = logger

	m.Pipeline.Retriever = retriever
	m.Orchestrator.Retriever = retriever
	m.Orchestrator.Classifier = classifier
	m.Orchestrator.Answers = answers
	m.Orchestrator.Clarifier = clarifier
	return nil
}

// wireIngestion selects the fetcher and extractor.
func (m *Main) wireIngestion(cfg *Config, logger *slog.Logger, debug bool, stderr io.Writer) error {
	if m.Fetcher == nil {
		switch cfg.Ingestion.Fetcher {
		case FetcherBrowser:
			f, err := rod.NewFetcher(rod.WithFetchTimeout(cfg.FetchTimeout()))
			if err != nil {
				fmt.Fprintln(stderr, "Hint: Chrome or Chromium must be installed")
				return fmt.Errorf("failed to start browser: %w", err)
			}
			m.Fetcher = f
		default:
			m.Fetcher = docchathttp.NewFetcher(docchathttp.WithTimeout(cfg.FetchTimeout()))
		}
	}

	var fetcher docchat.Fetcher = m.Fetcher
	if debug {
		fetcher = docslog.NewLoggingFetcher(fetcher, logger)
	}
	m.Pipeline.Fetcher = fetcher

	switch cfg.Ingestion.Extractor {
	case ExtractorReadability:
		m.Pipeline.Extractor = readability.NewExtractor()
	default:
		m.Pipeline.Extractor = trafilatura.NewExtractor()
	}
	return nil
}

func newGenAIClient(ctx context.Context, stderr io.Writer) (*genai.Client, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(stderr, "GEMINI_API_KEY environment variable not set. Get an API key at https://aistudio.google.com/apikey")
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		fmt.Fprintln(stderr, "Hint: Check your GEMINI_API_KEY is valid")
		return nil, fmt.Errorf("failed to connect to Gemini API: %w", err)
	}
	return client, nil
}
