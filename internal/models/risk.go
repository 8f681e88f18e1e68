package models

import "time"

// RiskLevel is the backend's coarse risk bucket.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "LOW"
	RiskLevelMedium RiskLevel = "MEDIUM"
	RiskLevelHigh   RiskLevel = "HIGH"
)

// DealRisk is the optional risk annotation computed by the backend.
type DealRisk struct {
	DealIDOnChain int64      `json:"dealIdOnChain"`
	RiskScore     *float64   `json:"riskScore"`
	RiskLevel     *RiskLevel `json:"riskLevel"`
	RiskReasons   []string   `json:"riskReasons"`
	RiskUpdatedAt *time.Time `json:"riskUpdatedAt"`
}

// TopReasons returns at most n reasons.
func (r *DealRisk) TopReasons(n int) []string {
	if r == nil || len(r.RiskReasons) == 0 || n <= 0 {
		return nil
	}
	if len(r.RiskReasons) <= n {
		return r.RiskReasons
	}
	return r.RiskReasons[:n]
}
