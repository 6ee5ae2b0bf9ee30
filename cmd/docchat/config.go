package main

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/fwojciec/docchat"
	"github.com/fwojciec/docchat/chunk"
	"github.com/fwojciec/docchat/compose"
	"github.com/fwojciec/docchat/gemini"
	"github.com/fwojciec/docchat/ingest"
	"github.com/fwojciec/docchat/intent"
	"github.com/fwojciec/docchat/retrieve"
	"github.com/fwojciec/docchat/workflow"
	"gopkg.in/yaml.v3"
)

// Fetcher and extractor choices.
const (
	FetcherHTTP    = "http"
	FetcherBrowser = "browser"

	ExtractorTrafilatura = "trafilatura"
	ExtractorReadability = "readability"
)

// defaultTokenBudget bounds the history sent with an answer prompt. A
// negative budget disables trimming.
const defaultTokenBudget = 8000

// ModelsConfig selects the Gemini models.
type ModelsConfig struct {
	Generation          string  `yaml:"generation"`
	Embedding           string  `yaml:"embedding"`
	EmbeddingDimensions int32   `yaml:"embedding_dimensions"`
	EmbedRPS            float64 `yaml:"embed_rps"`
}

// ChunkingConfig configures document segmentation.
type ChunkingConfig struct {
	MaxSize       int `yaml:"max_size"`
	MergeProseMax int `yaml:"merge_prose_max"`
}

// RetrievalConfig configures ranking.
type RetrievalConfig struct {
	DocsK       int     `yaml:"docs_k"`
	CodeK       int     `yaml:"code_k"`
	MinScore    float32 `yaml:"min_score"`
	Concurrency int     `yaml:"concurrency"`
}

// ConversationConfig configures turn handling.
type ConversationConfig struct {
	ClassifierThreshold    float64 `yaml:"classifier_threshold"`
	MaxClarificationRounds int     `yaml:"max_clarification_rounds"`
	HistoryLimit           int     `yaml:"history_limit"`
	HistoryTurns           int     `yaml:"history_turns"`
	TokenBudget            int     `yaml:"token_budget"`
	UnreadyPolicy          string  `yaml:"unready_policy"`
	TurnTimeoutSecs        int     `yaml:"turn_timeout_secs"`
}

// IngestionConfig configures the ingestion pipeline.
type IngestionConfig struct {
	Fetcher          string `yaml:"fetcher"`
	Extractor        string `yaml:"extractor"`
	TimeoutSecs      int    `yaml:"timeout_secs"`
	FetchTimeoutSecs int    `yaml:"fetch_timeout_secs"`
	FetchRetries     int    `yaml:"fetch_retries"`
}

// Config is the root configuration.
type Config struct {
	Database     string             `yaml:"database"`
	Models       ModelsConfig       `yaml:"models"`
	Chunking     ChunkingConfig     `yaml:"chunking"`
	Retrieval    RetrievalConfig    `yaml:"retrieval"`
	Conversation ConversationConfig `yaml:"conversation"`
	Ingestion    IngestionConfig    `yaml:"ingestion"`
}

// LoadConfig reads the config at path. A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, docchat.WrapError(docchat.EINVALID, err, "failed to read config %q", path)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, docchat.WrapError(docchat.EINVALID, err, "failed to parse config %q", path)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// Validate reports unknown enum values.
func (c *Config) Validate() error {
	switch c.Ingestion.Fetcher {
	case FetcherHTTP, FetcherBrowser:
	default:
		return docchat.Errorf(docchat.EINVALID, "unknown fetcher %q", c.Ingestion.Fetcher)
	}
	switch c.Ingestion.Extractor {
	case ExtractorTrafilatura, ExtractorReadability:
	default:
		return docchat.Errorf(docchat.EINVALID, "unknown extractor %q", c.Ingestion.Extractor)
	}
	switch workflow.UnreadyPolicy(c.Conversation.UnreadyPolicy) {
	case workflow.PolicyReject, workflow.PolicyAnswer:
	default:
		return docchat.Errorf(docchat.EINVALID, "unknown unready policy %q", c.Conversation.UnreadyPolicy)
	}
	return nil
}

// TurnTimeout returns the per-turn deadline.
func (c *Config) TurnTimeout() time.Duration {
	return time.Duration(c.Conversation.TurnTimeoutSecs) * time.Second
}

// IngestTimeout returns the per-job deadline.
func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.Ingestion.TimeoutSecs) * time.Second
}

// FetchTimeout returns the per-request deadline.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Ingestion.FetchTimeoutSecs) * time.Second
}

// RetryDelays returns FetchRetries doubling delays starting at one second.
func (c *Config) RetryDelays() []time.Duration {
	delays := make([]time.Duration, 0, c.Ingestion.FetchRetries)
	d := time.Second
	for range c.Ingestion.FetchRetries {
		delays = append(delays, d)
		d *= 2
	}
	return delays
}

func applyDefaults(cfg *Config) {
	if cfg.Database == "" {
		cfg.Database = defaultDBPath()
	}

	if cfg.Models.Generation == "" {
		cfg.Models.Generation = gemini.DefaultModel
	}
	if cfg.Models.Embedding == "" {
		cfg.Models.Embedding = gemini.DefaultEmbeddingModel
	}
	if cfg.Models.EmbedRPS == 0 {
		cfg.Models.EmbedRPS = 10
	}

	if cfg.Chunking.MaxSize == 0 {
		cfg.Chunking.MaxSize = chunk.DefaultMaxSize
	}
	if cfg.Chunking.MergeProseMax == 0 {
		cfg.Chunking.MergeProseMax = chunk.DefaultMergeProseMax
	}

	if cfg.Retrieval.DocsK == 0 {
		cfg.Retrieval.DocsK = workflow.DefaultDocsK
	}
	if cfg.Retrieval.CodeK == 0 {
		cfg.Retrieval.CodeK = workflow.DefaultCodeK
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = retrieve.DefaultMinScore
	}
	if cfg.Retrieval.Concurrency == 0 {
		cfg.Retrieval.Concurrency = retrieve.DefaultConcurrency
	}

	if cfg.Conversation.ClassifierThreshold == 0 {
		cfg.Conversation.ClassifierThreshold = intent.DefaultThreshold
	}
	if cfg.Conversation.MaxClarificationRounds == 0 {
		cfg.Conversation.MaxClarificationRounds = docchat.DefaultMaxClarificationRounds
	}
	if cfg.Conversation.HistoryLimit == 0 {
		cfg.Conversation.HistoryLimit = workflow.DefaultHistoryLimit
	}
	if cfg.Conversation.HistoryTurns == 0 {
		cfg.Conversation.HistoryTurns = compose.DefaultHistoryTurns
	}
	if cfg.Conversation.TokenBudget == 0 {
		cfg.Conversation.TokenBudget = defaultTokenBudget
	}
	if cfg.Conversation.UnreadyPolicy == "" {
		cfg.Conversation.UnreadyPolicy = string(workflow.PolicyReject)
	}
	if cfg.Conversation.TurnTimeoutSecs == 0 {
		cfg.Conversation.TurnTimeoutSecs = int(workflow.DefaultTurnTimeout / time.Second)
	}

	if cfg.Ingestion.Fetcher == "" {
		cfg.Ingestion.Fetcher = FetcherHTTP
	}
	if cfg.Ingestion.Extractor == "" {
		cfg.Ingestion.Extractor = ExtractorTrafilatura
	}
	if cfg.Ingestion.TimeoutSecs == 0 {
		cfg.Ingestion.TimeoutSecs = int(ingest.DefaultTimeout / time.Second)
	}
	if cfg.Ingestion.FetchTimeoutSecs == 0 {
		cfg.Ingestion.FetchTimeoutSecs = 30
	}
}

// defaultConfigPath returns the config location, honoring DOCCHAT_CONFIG.
func defaultConfigPath() string {
	if path := os.Getenv("DOCCHAT_CONFIG"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "docchat.yaml"
	}
	return filepath.Join(home, ".docchat", "config.yaml")
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "docchat.db"
	}
	dir := filepath.Join(home, ".docchat")
	_ = os.MkdirAll(dir, 0o755)
	return filepath.Join(dir, "docchat.db")
}
