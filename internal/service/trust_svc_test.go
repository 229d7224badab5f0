package service

import (
	"testing"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
)

func TestVoteWeight(t *testing.T) {
	svc := NewTrustService()
	policy := config.VotePolicy{MaxWeight: 1.0}

	tests := []struct {
		name string
		risk float64
		want float64
	}{
		{"fully trusted", 0.0, 1.0},
		{"moderate risk", 0.3, 0.7},
		{"high risk", 0.9, 0.1},
		{"certain bot", 1.0, 0.0},
		{"risk above 1 clamped", 5.0, 0.0},
		{"negative risk clamped", -0.5, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.VoteWeight(tt.risk, policy); !almostEqual(got, tt.want) {
				t.Errorf("VoteWeight(%v) = %v, want %v", tt.risk, got, tt.want)
			}
		})
	}
}

func TestVoteWeight_NeverNegative(t *testing.T) {
	svc := NewTrustService()
	// A ceiling below the max risk must floor at zero, not go negative.
	policy := config.VotePolicy{MaxWeight: 0.5}
	if got := svc.VoteWeight(0.9, policy); got != 0 {
		t.Errorf("VoteWeight = %v, want 0", got)
	}
}
