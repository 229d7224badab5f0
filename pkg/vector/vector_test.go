package vector

import (
	"math"
	"testing"
)

func almostEqual(a, b, epsilon float64) bool {
	return math.Abs(a-b) < epsilon
}

func TestCosineSimilarity_Identical(t *testing.T) {
	v := []float64{0.3, -0.5, 0.8}
	got := CosineSimilarity(v, v)
	if !almostEqual(got, 1.0, 1e-9) {
		t.Errorf("cosine(v, v) = %f, want 1.0", got)
	}
}

func TestCosineSimilarity_Orthogonal(t *testing.T) {
	a := []float64{1, 0}
	b := []float64{0, 1}
	got := CosineSimilarity(a, b)
	if !almostEqual(got, 0.0, 1e-9) {
		t.Errorf("cosine(orthogonal) = %f, want 0.0", got)
	}
}

func TestCosineSimilarity_Opposite(t *testing.T) {
	a := []float64{1, 2, 3}
	b := []float64{-1, -2, -3}
	got := CosineSimilarity(a, b)
	if !almostEqual(got, -1.0, 1e-9) {
		t.Errorf("cosine(opposite) = %f, want -1.0", got)
	}
}

func TestCosineSimilarity_ScaleInvariant(t *testing.T) {
	a := []float64{0.2, 0.7, -0.1}
	b := []float64{0.4, 1.4, -0.2} // a * 2
	got := CosineSimilarity(a, b)
	if !almostEqual(got, 1.0, 1e-9) {
		t.Errorf("cosine(a, 2a) = %f, want 1.0", got)
	}
}

func TestCosineSimilarity_Degenerate(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
	}{
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}},
		{"empty", nil, nil},
		{"zero vector", []float64{0, 0, 0}, []float64{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0 {
				t.Errorf("cosine = %f, want 0 for degenerate input", got)
			}
		})
	}
}

func TestMean(t *testing.T) {
	vectors := [][]float64{
		{1, 2, 3},
		{3, 4, 5},
	}
	got := Mean(vectors)
	want := []float64{2, 3, 4}
	for i := range want {
		if !almostEqual(got[i], want[i], 1e-9) {
			t.Errorf("Mean[%d] = %f, want %f", i, got[i], want[i])
		}
	}
}

func TestMean_Empty(t *testing.T) {
	if got := Mean(nil); got != nil {
		t.Errorf("Mean(nil) = %v, want nil", got)
	}
}

func TestUpdateMean_MatchesFullRecompute(t *testing.T) {
	members := [][]float64{
		{1, 0, 2},
		{3, 2, 0},
		{2, 4, 1},
	}

	// Build incrementally
	centroid := UpdateMean(nil, 0, members[0])
	centroid = UpdateMean(centroid, 1, members[1])
	centroid = UpdateMean(centroid, 2, members[2])

	want := Mean(members)
	for i := range want {
		if !almostEqual(centroid[i], want[i], 1e-9) {
			t.Errorf("incremental centroid[%d] = %f, want %f", i, centroid[i], want[i])
		}
	}
}

func TestRemoveFromMean_ReversesUpdate(t *testing.T) {
	base := []float64{1, 1}
	added := []float64{3, 5}

	centroid := UpdateMean(base, 1, added)
	back := RemoveFromMean(centroid, 2, added)

	for i := range base {
		if !almostEqual(back[i], base[i], 1e-9) {
			t.Errorf("RemoveFromMean[%d] = %f, want %f", i, back[i], base[i])
		}
	}
}

func TestRemoveFromMean_LastMember(t *testing.T) {
	if got := RemoveFromMean([]float64{1, 2}, 1, []float64{1, 2}); got != nil {
		t.Errorf("removing the last member should return nil, got %v", got)
	}
}
