package utils

import (
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{
			name: "identical vectors",
			a:    []float32{1, 2, 3},
			b:    []float32{1, 2, 3},
			want: 1.0,
		},
		{
			name: "orthogonal vectors",
			a:    []float32{1, 0},
			b:    []float32{0, 1},
			want: 0.0,
		},
		{
			name: "opposite vectors",
			a:    []float32{1, 0},
			b:    []float32{-1, 0},
			want: -1.0,
		},
		{
			name: "mismatched lengths",
			a:    []float32{1, 2},
			b:    []float32{1, 2, 3},
			want: 0.0,
		},
		{
			name: "zero vector",
			a:    []float32{0, 0},
			b:    []float32{1, 1},
			want: 0.0,
		},
		{
			name: "empty vectors",
			a:    []float32{},
			b:    []float32{},
			want: 0.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	v := Normalize([]float32{3, 4})
	if v == nil {
		t.Fatal("expected normalized vector, got nil")
	}
	if math.Abs(Magnitude(v)-1.0) > 1e-6 {
		t.Errorf("expected unit magnitude, got %f", Magnitude(v))
	}
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("unexpected components: %v", v)
	}
}

func TestNormalizeDegenerate(t *testing.T) {
	if v := Normalize(nil); v != nil {
		t.Errorf("expected nil for empty input, got %v", v)
	}
	if v := Normalize([]float32{0, 0, 0}); v != nil {
		t.Errorf("expected nil for zero vector, got %v", v)
	}
}

func TestDotProduct(t *testing.T) {
	got := DotProduct([]float32{1, 2, 3}, []float32{4, 5, 6})
	if got != 32 {
		t.Errorf("expected 32, got %f", got)
	}
	if got := DotProduct([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("expected 0 for mismatched lengths, got %f", got)
	}
}

func TestTopKByScore(t *testing.T) {
	items := []ScoredItem[string]{
		{Item: "a", Score: 0.1},
		{Item: "b", Score: 0.9},
		{Item: "c", Score: 0.5},
		{Item: "d", Score: 0.7},
	}

	top := TopKByScore(items, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 items, got %d", len(top))
	}
	if top[0].Item != "b" || top[1].Item != "d" {
		t.Errorf("expected [b d], got [%s %s]", top[0].Item, top[1].Item)
	}
}

func TestTopKByScoreKLargerThanInput(t *testing.T) {
	items := []ScoredItem[int]{
		{Item: 1, Score: 0.2},
		{Item: 2, Score: 0.8},
	}

	top := TopKByScore(items, 10)
	if len(top) != 2 {
		t.Fatalf("expected all items back, got %d", len(top))
	}
	if top[0].Item != 2 || top[1].Item != 1 {
		t.Errorf("expected descending order [2 1], got [%d %d]", top[0].Item, top[1].Item)
	}
}

func TestTopKByScoreEmpty(t *testing.T) {
	if got := TopKByScore[string](nil, 3); got != nil {
		t.Errorf("expected nil for empty input, got %v", got)
	}
	if got := TopKByScore([]ScoredItem[string]{{Item: "a", Score: 1}}, 0); got != nil {
		t.Errorf("expected nil for k=0, got %v", got)
	}
}

func TestTopKIndicesByScore(t *testing.T) {
	scores := []float64{0.3, 0.9, 0.1, 0.6}
	indices := TopKIndicesByScore(scores, 3)
	want := []int{1, 3, 0}
	if len(indices) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(indices))
	}
	for i := range want {
		if indices[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], indices[i])
		}
	}
}
