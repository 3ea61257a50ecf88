// internal/workers/legal/assess-risk/models.go
package assessrisk

import (
	"legal-analyzer/internal/analysis/risk"
	"legal-analyzer/internal/models"
)

type Input struct {
	DocumentID string `json:"documentId"`
}

// Output flattens the headline figures so process gateways can branch on them.
type Output struct {
	DocumentID      string                      `json:"documentId"`
	OverallRisk     float64                     `json:"overallRisk"`
	RiskLevel       string                      `json:"riskLevel"`
	HighRiskCount   int                         `json:"highRiskCount"`
	Recommendations []string                    `json:"recommendations"`
	Assessment      models.RiskAssessmentResult `json:"assessment"`
	Summary         risk.Summary                `json:"summary"`
	Interactions    risk.Interactions           `json:"interactions"`
}
