// internal/analysis/postprocess/statistics.go
package postprocess

import (
	"fmt"
	"math"

	"legal-analyzer/internal/models"
)

type RiskBuckets struct {
	LowRisk    int `json:"lowRisk"`
	MediumRisk int `json:"mediumRisk"`
	HighRisk   int `json:"highRisk"`
}

// ClauseStatistics summarises a validated clause set.
type ClauseStatistics struct {
	TotalClauses      int                       `json:"totalClauses"`
	ClauseTypes       map[models.ClauseType]int `json:"clauseTypes"`
	RiskDistribution  RiskBuckets               `json:"riskDistribution"`
	AverageRiskScore  float64                   `json:"averageRiskScore"`
	HighestRiskClause string                    `json:"highestRiskClause,omitempty"`
	MostCommonType    models.ClauseType         `json:"mostCommonType,omitempty"`
}

func Statistics(clauses []models.LegalClause) ClauseStatistics {
	stats := ClauseStatistics{ClauseTypes: map[models.ClauseType]int{}}
	if len(clauses) == 0 {
		return stats
	}

	var order []models.ClauseType
	total := 0
	highest := clauses[0]
	for _, c := range clauses {
		if stats.ClauseTypes[c.ClauseType] == 0 {
			order = append(order, c.ClauseType)
		}
		stats.ClauseTypes[c.ClauseType]++
		total += c.RiskScore

		switch models.RiskTier(c.RiskScore) {
		case "high":
			stats.RiskDistribution.HighRisk++
		case "medium":
			stats.RiskDistribution.MediumRisk++
		default:
			stats.RiskDistribution.LowRisk++
		}

		if c.RiskScore > highest.RiskScore {
			highest = c
		}
	}

	stats.TotalClauses = len(clauses)
	stats.AverageRiskScore = math.Round(float64(total)/float64(len(clauses))*100) / 100
	stats.HighestRiskClause = highest.ClauseID

	// ties go to the type seen first
	for _, t := range order {
		if stats.ClauseTypes[t] > stats.ClauseTypes[stats.MostCommonType] {
			stats.MostCommonType = t
		}
	}
	return stats
}

// RelatedGroup lists clauses sharing a type.
type RelatedGroup struct {
	Type        models.ClauseType `json:"type"`
	ClauseIDs   []string          `json:"clauseIds"`
	Description string            `json:"description"`
}

// Relationships groups clause types that occur more than once, in order of
// first appearance.
func Relationships(clauses []models.LegalClause) []RelatedGroup {
	groups := map[models.ClauseType][]string{}
	var order []models.ClauseType
	for _, c := range clauses {
		if _, ok := groups[c.ClauseType]; !ok {
			order = append(order, c.ClauseType)
		}
		groups[c.ClauseType] = append(groups[c.ClauseType], c.ClauseID)
	}

	var out []RelatedGroup
	for _, t := range order {
		if ids := groups[t]; len(ids) > 1 {
			out = append(out, RelatedGroup{
				Type:        t,
				ClauseIDs:   ids,
				Description: fmt.Sprintf("Multiple %s clauses found", t.Words()),
			})
		}
	}
	return out
}
