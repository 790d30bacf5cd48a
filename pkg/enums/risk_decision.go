package enums

import "fmt"

// RiskDecision is the outcome of a risk gate evaluation.
type RiskDecision string

const (
	RiskDecisionApprove RiskDecision = "approve"
	RiskDecisionReview  RiskDecision = "review"
	RiskDecisionBlock   RiskDecision = "block"
)

// IsValid reports whether the value is a known RiskDecision.
func (d RiskDecision) IsValid() bool {
	switch d {
	case RiskDecisionApprove, RiskDecisionReview, RiskDecisionBlock:
		return true
	}
	return false
}

// ParseRiskDecision converts raw input into a RiskDecision.
func ParseRiskDecision(value string) (RiskDecision, error) {
	d := RiskDecision(value)
	if !d.IsValid() {
		return "", fmt.Errorf("invalid risk decision %q", value)
	}
	return d, nil
}
