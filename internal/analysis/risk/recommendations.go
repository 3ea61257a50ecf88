// internal/analysis/risk/recommendations.go
package risk

import (
	"fmt"
	"math"
	"strings"

	"legal-analyzer/internal/models"
)

const maxRecommendations = 8

// importantTypes are expected in any substantial contract, in reporting order.
var importantTypes = []models.ClauseType{
	models.ClauseTypeTermination,
	models.ClauseTypeDisputeResolution,
}

// highRiskAdvice is emitted once per type when any clause of that type scores high.
var highRiskAdvice = []struct {
	clauseType models.ClauseType
	message    string
}{
	{models.ClauseTypeLiability, "Review liability clauses carefully - they may expose you to significant financial risk."},
	{models.ClauseTypePaymentTerms, "Pay attention to payment terms - there may be hidden fees or penalties."},
	{models.ClauseTypeTermination, "Termination clauses may be unfavorable - understand exit conditions and penalties."},
	{models.ClauseTypeIndemnification, "Indemnification clauses may require you to cover legal costs - understand your potential exposure."},
}

// Recommendations returns at most eight risk-driven recommendations.
func Recommendations(clauses []models.LegalClause, overall float64) []string {
	recs := []string{overallAdvice(overall)}

	highTypes := map[models.ClauseType]bool{}
	present := map[models.ClauseType]bool{}
	for _, c := range clauses {
		present[c.ClauseType] = true
		if c.RiskScore >= models.HighRiskThreshold {
			highTypes[c.ClauseType] = true
		}
	}

	for _, a := range highRiskAdvice {
		if highTypes[a.clauseType] {
			recs = append(recs, a.message)
		}
	}

	if len(clauses) > 3 {
		var missing []string
		for _, t := range importantTypes {
			if !present[t] {
				missing = append(missing, t.Title())
			}
		}
		if len(missing) > 0 {
			recs = append(recs, fmt.Sprintf("Consider adding clauses for: %s.", strings.Join(missing, ", ")))
		}
	}

	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func overallAdvice(overall float64) string {
	switch {
	case overall >= 8:
		return "CRITICAL: This document poses significant risks. Professional legal review is strongly recommended before signing."
	case overall >= 6:
		return "HIGH RISK: Consider having a lawyer review this document, especially the high-risk clauses."
	case overall >= 4:
		return "MODERATE RISK: Review highlighted clauses carefully and consider seeking advice on unclear terms."
	default:
		return "LOW RISK: Document appears to have reasonable terms, but still review carefully."
	}
}

// Interaction describes clauses whose combined effect differs from their parts.
type Interaction struct {
	Description     string   `json:"description"`
	InvolvedClauses []string `json:"involvedClauses"`
}

type Interactions struct {
	RiskAmplification      []Interaction `json:"riskAmplification"`
	ConflictingTerms       []Interaction `json:"conflictingTerms"`
	ProtectiveCombinations []Interaction `json:"protectiveCombinations"`
}

// AnalyzeInteractions flags compounding liability/indemnification exposure and
// the presence of both severability and force majeure protection.
func AnalyzeInteractions(clauses []models.LegalClause) Interactions {
	out := Interactions{
		RiskAmplification:      []Interaction{},
		ConflictingTerms:       []Interaction{},
		ProtectiveCombinations: []Interaction{},
	}

	var highLiability, highIndemnity, severability, forceMajeure []string
	for _, c := range clauses {
		high := c.RiskScore >= models.HighRiskThreshold
		switch c.ClauseType {
		case models.ClauseTypeLiability:
			if high {
				highLiability = append(highLiability, c.ClauseID)
			}
		case models.ClauseTypeIndemnification:
			if high {
				highIndemnity = append(highIndemnity, c.ClauseID)
			}
		case models.ClauseTypeSeverability:
			severability = append(severability, c.ClauseID)
		case models.ClauseTypeForceMajeure:
			forceMajeure = append(forceMajeure, c.ClauseID)
		}
	}

	if len(highLiability) > 0 && len(highIndemnity) > 0 {
		out.RiskAmplification = append(out.RiskAmplification, Interaction{
			Description:     "High-risk liability and indemnification clauses may compound financial exposure",
			InvolvedClauses: append(highLiability, highIndemnity...),
		})
	}
	if len(severability) > 0 && len(forceMajeure) > 0 {
		out.ProtectiveCombinations = append(out.ProtectiveCombinations, Interaction{
			Description:     "Document includes protective clauses for unexpected situations",
			InvolvedClauses: append(severability, forceMajeure...),
		})
	}
	return out
}

type RiskPercentages struct {
	High   float64 `json:"high"`
	Medium float64 `json:"medium"`
	Low    float64 `json:"low"`
}

// Summary is a presentation view of an assessment.
type Summary struct {
	OverallRiskScore      float64         `json:"overallRiskScore"`
	RiskLevel             string          `json:"riskLevel"`
	TotalClausesAnalyzed  int             `json:"totalClausesAnalyzed"`
	HighRiskClauseCount   int             `json:"highRiskClauseCount"`
	MediumRiskClauseCount int             `json:"mediumRiskClauseCount"`
	LowRiskClauseCount    int             `json:"lowRiskClauseCount"`
	RiskPercentage        RiskPercentages `json:"riskPercentage"`
	TopRecommendations    []string        `json:"topRecommendations"`
}

func Summarize(result models.RiskAssessmentResult) Summary {
	high := len(result.HighRiskClauseIDs)
	medium := len(result.MediumRiskClauseIDs)
	low := len(result.LowRiskClauseIDs)
	total := high + medium + low

	s := Summary{
		OverallRiskScore:      result.OverallRisk,
		RiskLevel:             Level(result.OverallRisk),
		TotalClausesAnalyzed:  total,
		HighRiskClauseCount:   high,
		MediumRiskClauseCount: medium,
		LowRiskClauseCount:    low,
		TopRecommendations:    result.Recommendations,
	}
	if len(s.TopRecommendations) > 3 {
		s.TopRecommendations = s.TopRecommendations[:3]
	}
	if total > 0 {
		s.RiskPercentage = RiskPercentages{
			High:   percent(high, total),
			Medium: percent(medium, total),
			Low:    percent(low, total),
		}
	}
	return s
}

// Level names the band of an overall score.
func Level(overall float64) string {
	switch {
	case overall >= 8:
		return "Critical Risk"
	case overall >= 6:
		return "High Risk"
	case overall >= 4:
		return "Moderate Risk"
	default:
		return "Low Risk"
	}
}

func percent(n, total int) float64 {
	return math.Round(float64(n)/float64(total)*1000) / 10
}
