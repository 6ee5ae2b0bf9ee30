package docchat

import (
	"context"
	"strings"
)

// ChunkKind distinguishes prose chunks from code chunks.
type ChunkKind string

// Chunk kinds.
const (
	ChunkProse ChunkKind = "prose"
	ChunkCode  ChunkKind = "code"
)

// ChunkDraft is a chunk produced by segmentation, before it is embedded.
type ChunkDraft struct {
	// Section path from the document root to the enclosing heading
	// (e.g., ["Guide", "Install", "Linux"]).
	SectionPath []string `json:"sectionPath,omitempty"`

	// Anchor of the enclosing heading, used for citations.
	Anchor string `json:"anchor,omitempty"`

	// Position within the document, dense from 0.
	Position int `json:"position"`

	Kind     ChunkKind `json:"kind"`
	Language string    `json:"language,omitempty"`
	Content  string    `json:"content"`
}

// Section returns the section path joined for display.
func (d *ChunkDraft) Section() string {
	return strings.Join(d.SectionPath, " > ")
}

// Chunk is an embedded, indexed unit of documentation. Chunks are immutable
// and keyed by (JobID, Position).
type Chunk struct {
	JobID       string    `json:"jobId"`
	SessionID   string    `json:"sessionId"` // Denormalized for efficient filtering
	SourceURL   string    `json:"sourceUrl"`
	SectionPath []string  `json:"sectionPath,omitempty"`
	Anchor      string    `json:"anchor,omitempty"`
	Position    int       `json:"position"`
	Kind        ChunkKind `json:"kind"`
	Language    string    `json:"language,omitempty"`
	Content     string    `json:"content"`
	ContentHash string    `json:"contentHash"`
	Embedding   []float32 `json:"embedding,omitempty"`
}

// Validate returns an error if the chunk contains invalid fields.
func (c *Chunk) Validate() error {
	if c.JobID == "" {
		return Errorf(EINVALID, "chunk job ID required")
	}
	if c.SessionID == "" {
		return Errorf(EINVALID, "chunk session ID required")
	}
	if c.Content == "" {
		return Errorf(EINVALID, "chunk content required")
	}
	if len(c.Embedding) == 0 {
		return Errorf(EINVALID, "chunk embedding required")
	}
	return nil
}

// Citation returns the citation pointing at the chunk's source.
func (c *Chunk) Citation() Citation {
	return Citation{URL: c.SourceURL, Anchor: c.Anchor}
}

// Section returns the section path joined for display.
func (c *Chunk) Section() string {
	return strings.Join(c.SectionPath, " > ")
}

// VectorIndex stores embedded chunks. Writes are atomic per call and only
// chunks of completed jobs are returned by reads.
type VectorIndex interface {
	// IndexChunks stores all chunks for a job in a single atomic write.
	IndexChunks(ctx context.Context, jobID string, chunks []*Chunk) error

	// FindChunks returns the chunks visible for a session, ordered by
	// job creation then position. Only the newest completed job per source
	// URL contributes chunks.
	FindChunks(ctx context.Context, filter ChunkFilter) ([]*Chunk, error)

	// DeleteChunksByJob removes all chunks for a job.
	DeleteChunksByJob(ctx context.Context, jobID string) error

	// DeleteSupersededChunks removes chunks of jobs for the same session and
	// source URL that are older than keepJobID.
	DeleteSupersededChunks(ctx context.Context, keepJobID string) error
}

// ChunkFilter represents a filter for FindChunks.
type ChunkFilter struct {
	SessionID string     `json:"sessionId"`
	Kind      *ChunkKind `json:"kind"`
}

// ScoredChunk is a retrieval match.
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float32 `json:"score"`
}

// RetrievalQuery describes a retrieval request.
type RetrievalQuery struct {
	SessionID string
	Text      string
	K         int

	// Kind restricts matches to one chunk kind when set.
	Kind *ChunkKind
}

// RetrievalResult is the ranked outcome of a query. Empty is set when no
// chunk cleared the relevance threshold, which is distinct from a failure.
type RetrievalResult struct {
	Query   string        `json:"query"`
	Matches []ScoredChunk `json:"matches"`
	Empty   bool          `json:"empty"`
}

// Citations returns the distinct sources of the matches in rank order.
func (r *RetrievalResult) Citations() []Citation {
	if r == nil {
		return nil
	}
	seen := make(map[Citation]bool)
	var out []Citation
	for _, m := range r.Matches {
		c := m.Chunk.Citation()
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

// IndexProgressFunc is called as chunks are embedded.
type IndexProgressFunc func(done, total int)

// Retriever maps queries to ranked chunks and indexes new chunks.
type Retriever interface {
	// Index embeds drafts and stores them for the job atomically.
	// Returns EEMBED when embedding keeps failing.
	Index(ctx context.Context, job *Job, drafts []ChunkDraft, progress IndexProgressFunc) error

	// Query returns the top matches for the query.
	// Returns EEMBED when the query cannot be embedded.
	Query(ctx context.Context, q RetrievalQuery) (*RetrievalResult, error)
}
