package knowledge

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"length mismatch", []float32{1, 2}, []float32{1, 2, 3}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("cosineSimilarity(%v, %v) = %v; want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRankRecords_BestFirstAndTruncated(t *testing.T) {
	t.Parallel()

	records := []Record{
		{ID: "far", Embedding: []float32{0, 1}},
		{ID: "near", Embedding: []float32{1, 0.1}},
		{ID: "exact", Embedding: []float32{2, 0}},
		{ID: "tie", Embedding: []float32{4, 0}},
	}
	got := rankRecords([]float32{1, 0}, records, 3)
	if len(got) != 3 {
		t.Fatalf("got %d matches; want 3", len(got))
	}
	if got[0].ID != "exact" || got[1].ID != "tie" || got[2].ID != "near" {
		t.Errorf("order = %s, %s, %s; want exact, tie, near", got[0].ID, got[1].ID, got[2].ID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("scores not descending at %d: %v > %v", i, got[i].Score, got[i-1].Score)
		}
	}
}

func TestResolveK(t *testing.T) {
	t.Parallel()

	for in, want := range map[int]int{-1: 4, 0: 4, 1: 1, 10: 10, 50: 50, 500: 50} {
		if got := resolveK(in); got != want {
			t.Errorf("resolveK(%d) = %d; want %d", in, got, want)
		}
	}
}

func TestDecodeEmbedding(t *testing.T) {
	t.Parallel()

	vec, err := decodeEmbedding("[0.5,-1,2]")
	if err != nil {
		t.Fatalf("decodeEmbedding error = %v", err)
	}
	if len(vec) != 3 || vec[1] != -1 {
		t.Errorf("decodeEmbedding = %v", vec)
	}
	if _, err := decodeEmbedding("not json"); err == nil {
		t.Error("expected error for malformed embedding")
	}
}
