// internal/analysis/risk/aggregator.go
package risk

import (
	"math"
	"strconv"

	"legal-analyzer/internal/models"
)

const (
	NeutralRisk = 5.0
	MinOverall  = 1.0
	MaxOverall  = 10.0

	noClausesRecommendation = "No clauses found for risk assessment"
)

// typeWeights express how much a clause type contributes to document risk.
// Not the same table as the post-processing sort ranks.
var typeWeights = map[models.ClauseType]float64{
	models.ClauseTypeLiability:            1.5,
	models.ClauseTypeIndemnification:      1.4,
	models.ClauseTypePaymentTerms:         1.3,
	models.ClauseTypeTermination:          1.2,
	models.ClauseTypeIntellectualProperty: 1.1,
	models.ClauseTypeConfidentiality:      1.0,
	models.ClauseTypeDisputeResolution:    0.9,
	models.ClauseTypeGoverningLaw:         0.8,
	models.ClauseTypeAmendment:            0.7,
	models.ClauseTypeSeverability:         0.6,
	models.ClauseTypePrivacy:              1.0,
	models.ClauseTypeForceMajeure:         0.8,
	models.ClauseTypeOther:                0.5,
}

// TypeWeight returns the aggregation weight for t, 1.0 for unlisted types.
func TypeWeight(t models.ClauseType) float64 {
	if w, ok := typeWeights[t]; ok {
		return w
	}
	return 1.0
}

// clauseWeight compounds the type weight with a boost for risky clauses.
func clauseWeight(c models.LegalClause) float64 {
	w := TypeWeight(c.ClauseType)
	switch {
	case c.RiskScore >= 8:
		w *= 1.3
	case c.RiskScore >= 6:
		w *= 1.1
	}
	return w
}

// Assess aggregates clause scores into a document assessment. It never fails:
// an empty clause set yields the neutral score with a single explanatory
// recommendation.
func Assess(clauses []models.LegalClause) models.RiskAssessmentResult {
	result := models.RiskAssessmentResult{
		HighRiskClauseIDs:   []string{},
		MediumRiskClauseIDs: []string{},
		LowRiskClauseIDs:    []string{},
		RiskDistribution:    map[string]int{},
	}
	if len(clauses) == 0 {
		result.OverallRisk = NeutralRisk
		result.Recommendations = []string{noClausesRecommendation}
		return result
	}

	result.OverallRisk = OverallRisk(clauses)
	for _, c := range clauses {
		switch models.RiskTier(c.RiskScore) {
		case "high":
			result.HighRiskClauseIDs = append(result.HighRiskClauseIDs, c.ClauseID)
		case "medium":
			result.MediumRiskClauseIDs = append(result.MediumRiskClauseIDs, c.ClauseID)
		default:
			result.LowRiskClauseIDs = append(result.LowRiskClauseIDs, c.ClauseID)
		}
	}
	result.RiskDistribution = Distribution(clauses)
	result.Recommendations = Recommendations(clauses, result.OverallRisk)
	return result
}

// OverallRisk is the weighted average clause score plus document adjustments,
// clamped to [1,10].
func OverallRisk(clauses []models.LegalClause) float64 {
	if len(clauses) == 0 {
		return NeutralRisk
	}

	var weighted, total float64
	for _, c := range clauses {
		w := clauseWeight(c)
		weighted += float64(c.RiskScore) * w
		total += w
	}

	final := weighted/total + Adjustment(clauses)
	return math.Max(MinOverall, math.Min(MaxOverall, final))
}

// Adjustment adds document-level penalties: a tiered high-risk ratio bonus, a
// per-clause penalty for risky liability or indemnification clauses and a flat
// penalty when a substantial document has no protective clauses.
func Adjustment(clauses []models.LegalClause) float64 {
	if len(clauses) == 0 {
		return 0
	}

	adj := 0.0
	high := 0
	protective := false
	for _, c := range clauses {
		if c.RiskScore >= models.HighRiskThreshold {
			high++
		}
		switch c.ClauseType {
		case models.ClauseTypeLiability, models.ClauseTypeIndemnification:
			if c.RiskScore >= 8 {
				adj += 0.3
			} else if c.RiskScore >= 6 {
				adj += 0.1
			}
		case models.ClauseTypeSeverability, models.ClauseTypeForceMajeure:
			protective = true
		}
	}

	ratio := float64(high) / float64(len(clauses))
	switch {
	case ratio > 0.3:
		adj += 0.5
	case ratio > 0.15:
		adj += 0.2
	}

	if !protective && len(clauses) > 5 {
		adj += 0.2
	}
	return adj
}

// Distribution counts clauses per exact score plus tier totals.
func Distribution(clauses []models.LegalClause) map[string]int {
	d := map[string]int{
		"total_clauses":     len(clauses),
		"high_risk_count":   0,
		"medium_risk_count": 0,
		"low_risk_count":    0,
	}
	for _, c := range clauses {
		d[strconv.Itoa(c.RiskScore)]++
		switch models.RiskTier(c.RiskScore) {
		case "high":
			d["high_risk_count"]++
		case "medium":
			d["medium_risk_count"]++
		default:
			d["low_risk_count"]++
		}
	}
	return d
}
