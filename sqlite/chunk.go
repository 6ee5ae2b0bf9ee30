package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/docchat"
)

// Compile-time interface verification.
var _ docchat.VectorIndex = (*ChunkIndex)(nil)

// ChunkIndex implements docchat.VectorIndex using SQLite. Embeddings are
// stored as little-endian float32 blobs and scored by the caller.
type ChunkIndex struct {
	db *DB
}

// NewChunkIndex creates a new ChunkIndex.
func NewChunkIndex(db *DB) *ChunkIndex {
	return &ChunkIndex{db: db}
}

// hashContent computes xxHash of content and returns hex string.
func hashContent(content string) string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, xxhash.Sum64String(content))
	return hex.EncodeToString(b)
}

func encodeEmbedding(v []float32) []byte {
	b := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decodeEmbedding(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("invalid embedding length %d", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}

// IndexChunks stores all chunks for a job in a single transaction. Any
// chunks previously stored for the job are replaced.
func (s *ChunkIndex) IndexChunks(ctx context.Context, jobID string, chunks []*docchat.Chunk) error {
	for _, c := range chunks {
		if c.JobID != jobID {
			return docchat.Errorf(docchat.EINVALID, "chunk belongs to job %s, not %s", c.JobID, jobID)
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := findJobByID(ctx, tx, jobID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE job_id = ?", jobID); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO chunks (job_id, position, session_id, source_url, section_path, anchor,
				kind, language, content, content_hash, embedding)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, c := range chunks {
			if c.ContentHash == "" {
				c.ContentHash = hashContent(c.Content)
			}
			path, err := json.Marshal(c.SectionPath)
			if err != nil {
				return fmt.Errorf("failed to encode section path: %w", err)
			}
			if _, err := stmt.ExecContext(ctx, c.JobID, c.Position, c.SessionID, c.SourceURL,
				string(path), c.Anchor, string(c.Kind), c.Language, c.Content, c.ContentHash,
				encodeEmbedding(c.Embedding)); err != nil {
				return err
			}
		}
		return nil
	})
}

// FindChunks returns the chunks visible for a session: only chunks of the
// newest completed job per source URL, ordered by job then position.
func (s *ChunkIndex) FindChunks(ctx context.Context, filter docchat.ChunkFilter) ([]*docchat.Chunk, error) {
	var query strings.Builder
	args := []any{filter.SessionID, string(docchat.JobCompleted), string(docchat.JobCompleted)}

	query.WriteString(`
		SELECT c.job_id, c.position, c.session_id, c.source_url, c.section_path, c.anchor,
			c.kind, c.language, c.content, c.content_hash, c.embedding
		FROM chunks c
		JOIN jobs j ON j.id = c.job_id
		WHERE c.session_id = ?
			AND j.status = ?
			AND j.seq = (
				SELECT MAX(j2.seq) FROM jobs j2
				WHERE j2.session_id = j.session_id
					AND j2.source_url = j.source_url
					AND j2.status = ?
			)`)

	if filter.Kind != nil {
		query.WriteString(" AND c.kind = ?")
		args = append(args, string(*filter.Kind))
	}

	query.WriteString(" ORDER BY j.seq ASC, c.position ASC")

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []*docchat.Chunk
	for rows.Next() {
		var c docchat.Chunk
		var path, kind string
		var embedding []byte

		if err := rows.Scan(&c.JobID, &c.Position, &c.SessionID, &c.SourceURL, &path, &c.Anchor,
			&kind, &c.Language, &c.Content, &c.ContentHash, &embedding); err != nil {
			return nil, err
		}
		c.Kind = docchat.ChunkKind(kind)
		if err := json.Unmarshal([]byte(path), &c.SectionPath); err != nil {
			return nil, fmt.Errorf("failed to decode section path: %w", err)
		}
		if c.Embedding, err = decodeEmbedding(embedding); err != nil {
			return nil, err
		}

		chunks = append(chunks, &c)
	}

	return chunks, rows.Err()
}

// DeleteChunksByJob removes all chunks for a job.
func (s *ChunkIndex) DeleteChunksByJob(ctx context.Context, jobID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM chunks WHERE job_id = ?", jobID)
	return err
}

// DeleteSupersededChunks removes chunks of older jobs for the same session
// and source URL as keepJobID.
func (s *ChunkIndex) DeleteSupersededChunks(ctx context.Context, keepJobID string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM chunks WHERE job_id IN (
			SELECT j.id FROM jobs j
			JOIN jobs k ON k.session_id = j.session_id AND k.source_url = j.source_url
			WHERE k.id = ? AND j.seq < k.seq
		)
	`, keepJobID)
	return err
}
