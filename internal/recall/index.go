// Package recall maintains a similarity index over extracted memory facts.
// Facts are embedded when an embedder is available; otherwise search falls
// back to keyword overlap so the index stays useful offline.
package recall

// #region imports
import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/companionkit/controller/internal/completion"
)

// #endregion

// #region types

// Match is one search hit, highest score first.
type Match struct {
	MemoryID string
	Category string
	Content  string
	Score    float64
}

// Index stores memory vectors in its own table on the shared database.
type Index struct {
	db       *sql.DB
	embedder completion.Embedder // nil = keyword fallback only
}

// #endregion

// #region constructor

// NewIndex creates the memory_vectors table if needed and returns an index.
func NewIndex(db *sql.DB, embedder completion.Embedder) (*Index, error) {
	idx := &Index{db: db, embedder: embedder}
	if err := idx.init(); err != nil {
		return nil, err
	}
	return idx, nil
}

func (idx *Index) init() error {
	_, err := idx.db.Exec(`CREATE TABLE IF NOT EXISTS memory_vectors (
		memory_id    TEXT PRIMARY KEY,
		character_id TEXT NOT NULL,
		category     TEXT NOT NULL,
		content      TEXT NOT NULL,
		vector       BLOB NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("init memory_vectors: %w", err)
	}
	return nil
}

// #endregion

// #region add

// Add indexes one memory fact. Embedding failures are returned rather than
// swallowed; callers decide whether indexing is best-effort.
func (idx *Index) Add(ctx context.Context, memoryID, characterID, category, content string) error {
	var vec []float32
	if idx.embedder != nil {
		v, err := idx.embedder.Embed(ctx, content)
		if err != nil {
			return fmt.Errorf("embed memory %s: %w", memoryID, err)
		}
		vec = v
	}

	_, err := idx.db.Exec(
		`INSERT INTO memory_vectors (memory_id, character_id, category, content, vector)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(memory_id) DO UPDATE SET content = excluded.content, vector = excluded.vector`,
		memoryID, characterID, category, content, encodeVector(vec),
	)
	if err != nil {
		return fmt.Errorf("insert memory vector: %w", err)
	}
	return nil
}

// #endregion

// #region search

// Search returns the topK most relevant facts for a character. With an
// embedder it ranks by cosine similarity; without one it ranks by shared
// keyword count.
func (idx *Index) Search(ctx context.Context, characterID, query string, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	rows, err := idx.db.Query(
		`SELECT memory_id, category, content, vector FROM memory_vectors WHERE character_id = ?`,
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("search memories: %w", err)
	}
	defer rows.Close()

	var queryVec []float32
	if idx.embedder != nil {
		queryVec, err = idx.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
	}
	queryTokens := tokenize(query)

	var matches []Match
	for rows.Next() {
		var m Match
		var blob []byte
		if err := rows.Scan(&m.MemoryID, &m.Category, &m.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan memory vector: %w", err)
		}

		vec := decodeVector(blob)
		if len(queryVec) > 0 && len(vec) == len(queryVec) {
			m.Score = cosine(queryVec, vec)
		} else {
			m.Score = float64(sharedKeywords(queryTokens, tokenize(m.Content)))
		}
		if m.Score > 0 {
			matches = append(matches, m)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	matches = dedupe(matches)
	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// maxContentLen bounds the size of a surfaced fact. Longer content is
// extraction noise, not a fact.
const maxContentLen = 600

// dedupe drops empty or overlong hits and duplicate memory IDs, keeping the
// first occurrence.
func dedupe(matches []Match) []Match {
	seen := make(map[string]bool, len(matches))
	var valid []Match
	for _, m := range matches {
		if m.Content == "" || len(m.Content) > maxContentLen || seen[m.MemoryID] {
			continue
		}
		seen[m.MemoryID] = true
		valid = append(valid, m)
	}
	return valid
}

// #endregion
