// internal/models/clause.go
package models

import "strings"

// ClauseType is the closed set of clause labels used before and after enrichment.
type ClauseType string

const (
	ClauseTypePaymentTerms         ClauseType = "payment_terms"
	ClauseTypeTermination          ClauseType = "termination"
	ClauseTypeLiability            ClauseType = "liability"
	ClauseTypePrivacy              ClauseType = "privacy"
	ClauseTypeIndemnification      ClauseType = "indemnification"
	ClauseTypeDisputeResolution    ClauseType = "dispute_resolution"
	ClauseTypeIntellectualProperty ClauseType = "intellectual_property"
	ClauseTypeConfidentiality      ClauseType = "confidentiality"
	ClauseTypeForceMajeure         ClauseType = "force_majeure"
	ClauseTypeGoverningLaw         ClauseType = "governing_law"
	ClauseTypeAmendment            ClauseType = "amendment"
	ClauseTypeSeverability         ClauseType = "severability"
	ClauseTypeOther                ClauseType = "other"
)

// AllClauseTypes lists every ClauseType in declaration order.
var AllClauseTypes = []ClauseType{
	ClauseTypePaymentTerms,
	ClauseTypeTermination,
	ClauseTypeLiability,
	ClauseTypePrivacy,
	ClauseTypeIndemnification,
	ClauseTypeDisputeResolution,
	ClauseTypeIntellectualProperty,
	ClauseTypeConfidentiality,
	ClauseTypeForceMajeure,
	ClauseTypeGoverningLaw,
	ClauseTypeAmendment,
	ClauseTypeSeverability,
	ClauseTypeOther,
}

// ParseClauseType coerces a free-form label into a ClauseType. Unknown labels map to other.
func ParseClauseType(s string) ClauseType {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer(" ", "_", "-", "_").Replace(normalized)
	for _, t := range AllClauseTypes {
		if string(t) == normalized {
			return t
		}
	}
	return ClauseTypeOther
}

// Title renders the type for people, e.g. "payment_terms" -> "Payment Terms".
func (t ClauseType) Title() string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Words renders the type with spaces, e.g. "payment terms".
func (t ClauseType) Words() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// SpanOrigin records which segmentation pass produced a candidate.
type SpanOrigin string

const (
	OriginParagraph SpanOrigin = "paragraph"
	OriginSentence  SpanOrigin = "sentence"
)

// CandidateClauseSpan is a text fragment proposed by the segmenter before enrichment.
type CandidateClauseSpan struct {
	Text              string     `json:"text"`
	Origin            SpanOrigin `json:"origin"`
	SourceIndex       int        `json:"sourceIndex"`
	MatchedIndicators []string   `json:"matchedIndicators"`
	InferredType      ClauseType `json:"inferredType"`
	ImportanceScore   float64    `json:"importanceScore"`
}

// LegalClause is an enriched, validated clause.
type LegalClause struct {
	ClauseID        string     `json:"clauseId"`
	ClauseType      ClauseType `json:"clauseType"`
	OriginalText    string     `json:"originalText"`
	SimplifiedText  string     `json:"simplifiedText"`
	RiskScore       int        `json:"riskScore"`
	RiskExplanation string     `json:"riskExplanation"`
	SectionNumber   *string    `json:"sectionNumber"`
	KeyTerms        []string   `json:"keyTerms"`
	Recommendations []string   `json:"recommendations"`
	Concerns        []string   `json:"concerns"`
	Obligations     []string   `json:"obligations"`
}

// Section returns the section label or "" when none was extracted.
func (c LegalClause) Section() string {
	if c.SectionNumber == nil {
		return ""
	}
	return *c.SectionNumber
}

// ClauseAnalysis is the sanitized response of the clause-analysis collaborator.
type ClauseAnalysis struct {
	ClauseType      ClauseType `json:"clause_type"`
	RiskScore       int        `json:"risk_score"`
	RiskExplanation string     `json:"risk_explanation"`
	SimplifiedText  string     `json:"simplified_text"`
	Concerns        []string   `json:"concerns"`
	KeyTerms        []string   `json:"key_terms"`
	Recommendations []string   `json:"recommendations"`
	Obligations     []string   `json:"obligations"`
}

// RiskReview is the sanitized response of the risk re-assessment collaborator.
type RiskReview struct {
	RiskScore       int      `json:"risk_score"`
	RiskExplanation string   `json:"risk_explanation"`
	RedFlags        []string `json:"red_flags"`
	Recommendations []string `json:"recommendations"`
}

// QueryAnswer is the sanitized response of the answer-generation collaborator.
type QueryAnswer struct {
	Answer      string   `json:"answer"`
	Confidence  float64  `json:"confidence"`
	SourcesUsed []string `json:"sources_used"`
}

// Risk score bounds and tiers.
const (
	MinRiskScore     = 1
	MaxRiskScore     = 10
	DefaultRiskScore = 5

	HighRiskThreshold   = 7
	MediumRiskThreshold = 4
)

// ClampRiskScore bounds score to [MinRiskScore, MaxRiskScore].
func ClampRiskScore(score int) int {
	if score < MinRiskScore {
		return MinRiskScore
	}
	if score > MaxRiskScore {
		return MaxRiskScore
	}
	return score
}

// RiskTier buckets a clause score into "high", "medium" or "low".
func RiskTier(score int) string {
	switch {
	case score >= HighRiskThreshold:
		return "high"
	case score >= MediumRiskThreshold:
		return "medium"
	default:
		return "low"
	}
}
