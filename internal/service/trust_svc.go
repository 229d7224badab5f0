package service

import (
	"math"

	"github.com/calebnewtonusc/CivicQ-sub006/internal/config"
)

// TrustService converts device risk signals into vote weights. The risk score
// is informational input to the weight and never reaches the rank scorer
// directly.
type TrustService struct{}

func NewTrustService() *TrustService {
	return &TrustService{}
}

// VoteWeight computes the trust weight applied to a vote before aggregation:
//
//	weight = max(0, max_weight - risk_score)
//
// with risk_score clamped to [0, 1]. A fully-trusted device (risk 0) votes at
// the policy ceiling; a certainly-automated device (risk 1) contributes
// nothing while still being recorded in the ledger.
func (s *TrustService) VoteWeight(riskScore float64, policy config.VotePolicy) float64 {
	risk := clamp01(riskScore)
	return math.Max(0, policy.MaxWeight-risk)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
