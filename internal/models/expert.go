package models

import "time"

// ExpertRole names one persona of the expert panel.
type ExpertRole string

const (
	ExpertLegalResearch      ExpertRole = "legal_research"
	ExpertConsumerProtection ExpertRole = "consumer_protection"
	ExpertCompliance         ExpertRole = "regulatory_compliance"
	ExpertNegotiation        ExpertRole = "negotiation"
	ExpertAlternatives       ExpertRole = "alternatives"
)

// ExpertRoles is the panel in consultation order.
var ExpertRoles = []ExpertRole{
	ExpertLegalResearch,
	ExpertConsumerProtection,
	ExpertCompliance,
	ExpertNegotiation,
	ExpertAlternatives,
}

var expertTitles = map[ExpertRole]string{
	ExpertLegalResearch:      "Senior Legal Research Specialist",
	ExpertConsumerProtection: "Consumer Protection Advocate",
	ExpertCompliance:         "Regulatory Compliance Expert",
	ExpertNegotiation:        "Contract Negotiation Strategy Advisor",
	ExpertAlternatives:       "Alternative Solutions Research Specialist",
}

var expertSections = map[ExpertRole]string{
	ExpertLegalResearch:      "legal_precedent_research",
	ExpertConsumerProtection: "consumer_rights_analysis",
	ExpertCompliance:         "compliance_assessment",
	ExpertNegotiation:        "negotiation_guidance",
	ExpertAlternatives:       "alternatives_research",
}

// Title is the persona's job title, used in prompts and status output.
func (r ExpertRole) Title() string {
	if t, ok := expertTitles[r]; ok {
		return t
	}
	return string(r)
}

// Section is the key under which the persona's report is merged.
func (r ExpertRole) Section() string {
	if s, ok := expertSections[r]; ok {
		return s
	}
	return string(r)
}

// ExpertOpinion is one persona's sanitized report.
type ExpertOpinion struct {
	Role            ExpertRole `json:"role"`
	Report          string     `json:"report"`
	Recommendations []string   `json:"recommendations"`
}

// ExpertReview is the merged output of the expert panel for one document.
type ExpertReview struct {
	Enhanced          bool              `json:"enhanced"`
	Sections          map[string]string `json:"sections"`
	ExpertsUsed       []ExpertRole      `json:"expertsUsed"`
	Recommendations   []string          `json:"recommendations"`
	EnhancementTimeMs int64             `json:"enhancementTimeMs"`
	EnhancedAt        time.Time         `json:"enhancedAt"`
	Error             string            `json:"error,omitempty"`
}
