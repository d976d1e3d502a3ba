package recall

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/companionkit/controller/internal/state"
)

// fixedEmbedder returns canned vectors by exact text match.
type fixedEmbedder struct {
	vectors map[string][]float32
}

func (f *fixedEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0, 1}, nil
}

func tempIndex(t *testing.T, embedder *fixedEmbedder) *Index {
	t.Helper()
	s, err := state.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	var idx *Index
	if embedder != nil {
		idx, err = NewIndex(s.DB(), embedder)
	} else {
		idx, err = NewIndex(s.DB(), nil)
	}
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func TestSearch_RanksByCosine(t *testing.T) {
	emb := &fixedEmbedder{vectors: map[string][]float32{
		"user likes coffee":     {1, 0, 0},
		"felt excited about it": {0, 1, 0},
		"coffee":                {0.9, 0.1, 0},
	}}
	idx := tempIndex(t, emb)
	ctx := context.Background()

	if err := idx.Add(ctx, "m1", "char-1", "facts", "user likes coffee"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, "m2", "char-1", "emotions", "felt excited about it"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	matches, err := idx.Search(ctx, "char-1", "coffee", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no matches")
	}
	if matches[0].MemoryID != "m1" {
		t.Errorf("top match = %s, want m1", matches[0].MemoryID)
	}
	if matches[0].Score <= 0.5 {
		t.Errorf("top score = %f, want > 0.5", matches[0].Score)
	}
}

func TestSearch_KeywordFallback(t *testing.T) {
	idx := tempIndex(t, nil)
	ctx := context.Background()

	if err := idx.Add(ctx, "m1", "char-1", "facts", "the user drinks coffee every morning"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, "m2", "char-1", "facts", "she plays violin on weekends"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	matches, err := idx.Search(ctx, "char-1", "morning coffee", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("got %d matches, want 1", len(matches))
	}
	if matches[0].MemoryID != "m1" {
		t.Errorf("match = %s, want m1", matches[0].MemoryID)
	}
}

func TestSearch_ScopedToCharacter(t *testing.T) {
	idx := tempIndex(t, nil)
	ctx := context.Background()

	if err := idx.Add(ctx, "m1", "char-1", "facts", "loves hiking trails"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, "m2", "char-2", "facts", "loves hiking trails"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	matches, err := idx.Search(ctx, "char-1", "hiking", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(matches) != 1 || matches[0].MemoryID != "m1" {
		t.Errorf("matches = %v", matches)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.5, -1.25, 3}
	got := decodeVector(encodeVector(v))
	if len(got) != len(v) {
		t.Fatalf("len = %d, want %d", len(got), len(v))
	}
	for i := range v {
		if got[i] != v[i] {
			t.Errorf("index %d: %f != %f", i, got[i], v[i])
		}
	}
	if decodeVector(encodeVector(nil)) != nil {
		t.Error("empty vector should decode to nil")
	}
}
