// internal/analysis/enrichment/clause.go
package enrichment

import (
	"regexp"
	"strings"

	"legal-analyzer/internal/models"
)

// sectionPatterns are tried in order against the first line of a clause.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(\d+\.\d*)`),
	regexp.MustCompile(`^(\d+)`),
	regexp.MustCompile(`^\((\d+)\)`),
	regexp.MustCompile(`(?i)^([A-Z])\.?\s`),
	regexp.MustCompile(`(?i)^\(([a-z])\)`),
	regexp.MustCompile(`(?i)section\s+(\d+)`),
	regexp.MustCompile(`(?i)article\s+(\d+)`),
}

// ExtractSectionNumber returns the section label of the clause's first line, or
// nil when none of the numbering patterns match.
func ExtractSectionNumber(text string) *string {
	firstLine := strings.TrimSpace(strings.SplitN(text, "\n", 2)[0])
	for _, p := range sectionPatterns {
		if m := p.FindStringSubmatch(firstLine); m != nil {
			label := m[1]
			return &label
		}
	}
	return nil
}

// BuildClause combines a candidate with its analysis into a LegalClause. A
// missing risk score is defaulted by the analyzer; here it is only clamped.
func BuildClause(candidate models.CandidateClauseSpan, analysis models.ClauseAnalysis, clauseID string) models.LegalClause {
	return models.LegalClause{
		ClauseID:        clauseID,
		ClauseType:      models.ParseClauseType(string(analysis.ClauseType)),
		OriginalText:    candidate.Text,
		SimplifiedText:  strings.TrimSpace(analysis.SimplifiedText),
		RiskScore:       models.ClampRiskScore(analysis.RiskScore),
		RiskExplanation: strings.TrimSpace(analysis.RiskExplanation),
		SectionNumber:   ExtractSectionNumber(candidate.Text),
		KeyTerms:        nonNil(analysis.KeyTerms),
		Recommendations: nonNil(analysis.Recommendations),
		Concerns:        nonNil(analysis.Concerns),
		Obligations:     nonNil(analysis.Obligations),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
