package vector

import "math"

// CosineSimilarity returns the cosine similarity of two equal-length vectors,
// in [-1, 1]. Returns 0 for mismatched lengths or zero-magnitude vectors so
// callers can treat degenerate inputs as "no match".
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Mean returns the element-wise mean of the given vectors. All vectors must
// share the same length; a nil slice is returned for empty input.
func Mean(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := range v {
			sum[i] += v[i]
		}
	}

	n := float64(len(vectors))
	for i := range sum {
		sum[i] /= n
	}
	return sum
}

// UpdateMean folds one new vector into a running mean over count existing
// members, returning the new centroid. Used to keep cluster centroids as the
// incremental mean of member embeddings without re-reading all members.
func UpdateMean(mean []float64, count int, v []float64) []float64 {
	if count <= 0 || len(mean) != len(v) {
		out := make([]float64, len(v))
		copy(out, v)
		return out
	}

	n := float64(count)
	out := make([]float64, len(mean))
	for i := range mean {
		out[i] = (mean[i]*n + v[i]) / (n + 1)
	}
	return out
}

// RemoveFromMean reverses UpdateMean: it removes one vector from a running
// mean over count members (count includes v). Returns nil when the last
// member is removed.
func RemoveFromMean(mean []float64, count int, v []float64) []float64 {
	if count <= 1 || len(mean) != len(v) {
		return nil
	}

	n := float64(count)
	out := make([]float64, len(mean))
	for i := range mean {
		out[i] = (mean[i]*n - v[i]) / (n - 1)
	}
	return out
}
