package service

import (
	"testing"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
	"github.com/calebnewtonusc/CivicQ-sub006/internal/model"
)

var testClusterPolicy = config.ClusteringPolicy{
	MergeThreshold: 0.92,
	SoftThreshold:  0.85,
}

func TestDecide_Thresholds(t *testing.T) {
	tests := []struct {
		name       string
		similarity float64
		want       model.ClusterDecisionKind
	}{
		{"well above merge", 0.95, model.DecisionMergedInto},
		{"exactly merge threshold", 0.92, model.DecisionMergedInto},
		{"just below merge", 0.9199, model.DecisionFlagged},
		{"exactly soft threshold", 0.85, model.DecisionFlagged},
		{"just below soft", 0.8499, model.DecisionNewCluster},
		{"unrelated", 0.1, model.DecisionNewCluster},
		{"opposite", -0.7, model.DecisionNewCluster},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Decide(tt.similarity, testClusterPolicy); got != tt.want {
				t.Errorf("Decide(%v) = %v, want %v", tt.similarity, got, tt.want)
			}
		})
	}
}

func TestNearestCluster_PicksBestCentroid(t *testing.T) {
	clusters := []model.Cluster{
		{ID: 1, Centroid: []float64{1, 0, 0}},
		{ID: 2, Centroid: []float64{0, 1, 0}},
		{ID: 3, Centroid: []float64{0.7, 0.7, 0}},
	}

	best, sim := NearestCluster([]float64{0.9, 0.1, 0}, clusters)
	if best == nil || best.ID != 1 {
		t.Fatalf("nearest cluster = %+v, want id 1", best)
	}
	if sim <= 0.9 {
		t.Errorf("similarity = %v, want > 0.9", sim)
	}
}

func TestNearestCluster_EmptySet(t *testing.T) {
	best, sim := NearestCluster([]float64{1, 0}, nil)
	if best != nil {
		t.Errorf("nearest of empty set = %+v, want nil", best)
	}
	if sim != -1 {
		t.Errorf("similarity = %v, want -1 sentinel", sim)
	}
}

func TestClusterAssignment_Scenario(t *testing.T) {
	// Near-duplicate phrasing lands in the existing cluster; an unrelated
	// question seeds its own.
	clusters := []model.Cluster{
		{ID: 10, Centroid: []float64{0.6, 0.8, 0}},
	}

	// Almost identical direction to the centroid: cosine ≈ 0.9997.
	nearDuplicate := []float64{0.62, 0.79, 0.01}
	best, sim := NearestCluster(nearDuplicate, clusters)
	if best == nil || best.ID != 10 {
		t.Fatalf("near duplicate nearest = %+v, want cluster 10", best)
	}
	if got := Decide(sim, testClusterPolicy); got != model.DecisionMergedInto {
		t.Errorf("near duplicate (sim %v) decided %v, want %v", sim, got, model.DecisionMergedInto)
	}

	unrelated := []float64{0, 0, 1}
	_, sim = NearestCluster(unrelated, clusters)
	if got := Decide(sim, testClusterPolicy); got != model.DecisionNewCluster {
		t.Errorf("unrelated (sim %v) decided %v, want %v", sim, got, model.DecisionNewCluster)
	}
}
