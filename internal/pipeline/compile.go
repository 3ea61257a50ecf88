// internal/pipeline/compile.go
package pipeline

import (
	"fmt"
	"math"
	"strings"

	"legal-analyzer/internal/models"
)

const (
	MaxRecommendations = 10
	MaxRedFlags        = 5

	perClauseAdvice = 2
	redFlagExcerpt  = 100
)

var categoryDescriptions = map[models.ClauseType]string{
	models.ClauseTypePaymentTerms:         "Financial obligations and payment requirements",
	models.ClauseTypeTermination:          "Conditions and procedures for ending the agreement",
	models.ClauseTypeLiability:            "Responsibility and damage provisions",
	models.ClauseTypeConfidentiality:      "Information protection and non-disclosure requirements",
	models.ClauseTypeIntellectualProperty: "Rights and ownership of intellectual assets",
	models.ClauseTypeDisputeResolution:    "Methods for resolving conflicts and disagreements",
	models.ClauseTypeGoverningLaw:         "Legal jurisdiction and applicable laws",
	models.ClauseTypeAmendment:            "Procedures for modifying the agreement",
	models.ClauseTypeOther:                "Other legal provisions and general terms",
}

// redFlagPatterns are matched against lowercased clause text; each flag is
// reported once per document.
var redFlagPatterns = []struct {
	terms []string
	flag  string
}{
	{[]string{"unlimited liability", "unlimited damages", "no cap on liability"}, "Unlimited liability exposure detected"},
	{[]string{"terminate at will", "terminate without cause", "immediate termination"}, "One-sided termination rights detected"},
	{[]string{"non-refundable", "forfeiture", "penalty fee"}, "Non-refundable fees or penalties detected"},
}

// RiskCategories groups clauses by type, in order of first appearance.
func RiskCategories(clauses []models.LegalClause) []models.RiskCategory {
	type bucket struct {
		total, count, high int
	}
	var order []models.ClauseType
	buckets := map[models.ClauseType]*bucket{}

	for _, c := range clauses {
		b, ok := buckets[c.ClauseType]
		if !ok {
			b = &bucket{}
			buckets[c.ClauseType] = b
			order = append(order, c.ClauseType)
		}
		b.total += c.RiskScore
		b.count++
		if c.RiskScore >= models.HighRiskThreshold {
			b.high++
		}
	}

	categories := make([]models.RiskCategory, 0, len(order))
	for _, t := range order {
		b := buckets[t]
		categories = append(categories, models.RiskCategory{
			Category:     t.Title(),
			Score:        int(math.Round(float64(b.total) / float64(b.count))),
			Description:  categoryDescription(t, b.high, b.count),
			ClausesCount: b.count,
		})
	}
	return categories
}

func categoryDescription(t models.ClauseType, high, total int) string {
	base, ok := categoryDescriptions[t]
	if !ok {
		base = "Legal provisions"
	}
	switch {
	case high > 0:
		return fmt.Sprintf("%s. Contains %d high-risk provision(s).", base, high)
	case total > 0:
		return base + ". Generally standard terms."
	default:
		return base
	}
}

// DocumentRecommendations merges review advice, overall-risk advice and up to
// two recommendations per clause, without duplicates.
func DocumentRecommendations(clauses []models.LegalClause, overall float64) []string {
	var recs []string

	highTypes := map[models.ClauseType]bool{}
	high := 0
	for _, c := range clauses {
		if c.RiskScore >= models.HighRiskThreshold {
			high++
			highTypes[c.ClauseType] = true
		}
	}
	if high > 0 {
		recs = append(recs, fmt.Sprintf("Review %d high-risk clause(s) carefully before signing", high))
	}
	if highTypes[models.ClauseTypePaymentTerms] {
		recs = append(recs, "Carefully review payment terms for potential hidden fees or penalties")
	}
	if highTypes[models.ClauseTypeTermination] {
		recs = append(recs, "Pay special attention to termination conditions and penalties")
	}
	if highTypes[models.ClauseTypeLiability] {
		recs = append(recs, "Consider the extent of liability and potential financial exposure")
	}

	switch {
	case overall >= 7:
		recs = append(recs, "Overall high risk - strongly recommend legal review before signing")
	case overall >= 4:
		recs = append(recs, "Moderate risk - consider professional review of key terms")
	}

	for _, c := range clauses {
		advice := c.Recommendations
		if len(advice) > perClauseAdvice {
			advice = advice[:perClauseAdvice]
		}
		recs = append(recs, advice...)
	}

	return firstUnique(recs, MaxRecommendations)
}

// RedFlags reports critical clauses and dangerous wording, at most five.
func RedFlags(clauses []models.LegalClause) []string {
	var flags []string
	for _, c := range clauses {
		if c.RiskScore >= 9 {
			flags = append(flags, fmt.Sprintf("Critical risk in %s: %s...",
				c.ClauseType.Words(), runePrefix(c.RiskExplanation, redFlagExcerpt)))
		}
	}

	for _, c := range clauses {
		text := strings.ToLower(c.OriginalText)
		for _, p := range redFlagPatterns {
			for _, term := range p.terms {
				if strings.Contains(text, term) {
					flags = append(flags, p.flag)
					break
				}
			}
		}
	}

	return firstUnique(flags, MaxRedFlags)
}

func firstUnique(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, limit)
	for _, item := range items {
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if len(out) == limit {
			break
		}
	}
	return out
}

func runePrefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
