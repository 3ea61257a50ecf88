// internal/analysis/segmenter/indicators.go
package segmenter

import (
	"strings"

	"legal-analyzer/internal/models"
)

// clauseIndicators is the vocabulary scanned in every candidate span. Matching is
// by lowercase substring, so stems such as "expir" and "indemnif" are intentional.
var clauseIndicators = []string{
	// payment and financial terms
	"payment", "fee", "cost", "charge", "amount", "price", "invoice", "billing", "refund", "penalty",
	"interest", "late fee", "deposit", "installment", "due date", "payable", "compensation",

	// termination and duration
	"termination", "terminate", "end", "expir", "cancel", "dissolution", "breach", "default",
	"notice period", "effective date", "term", "duration", "renewal", "extension",

	// liability
	"liability", "liable", "responsible", "damages", "loss", "injury", "harm", "negligence",
	"fault", "limitation", "exclusion", "cap", "consequential", "indirect",

	// indemnification
	"indemnif", "hold harmless", "defend", "reimburse", "compensate", "make whole",

	// confidentiality and privacy
	"confidential", "proprietary", "non-disclosure", "private", "secret", "privileged",
	"data protection", "privacy", "personal information", "trade secret",

	// intellectual property
	"intellectual property", "copyright", "trademark", "patent", "trade mark", "ip",
	"proprietary rights", "license", "ownership", "derivative work",

	// dispute resolution
	"dispute", "arbitration", "litigation", "court", "mediation", "resolution",
	"claim", "action", "proceeding", "lawsuit", "legal action",

	// governing law
	"governing law", "jurisdiction", "applicable law", "venue", "forum", "choice of law",

	// force majeure
	"force majeure", "act of god", "unforeseeable", "beyond control", "natural disaster",

	// amendments
	"amendment", "modification", "change", "alter", "revise", "update", "written consent",

	// severability
	"severability", "invalid", "unenforceable", "void", "separate", "remainder",

	// general contract vocabulary
	"agreement", "contract", "party", "parties", "obligation", "duty", "right", "warrant",
	"represent", "covenant", "undertake", "bind", "enforce", "comply", "violation", "remedy",
	"waiver", "consent", "approval", "notice", "delivery",

	// performance
	"performance", "deliver", "service", "work", "completion", "milestone", "deadline",
	"specification", "standard", "quality", "acceptance", "rejection",

	// employment
	"employment", "employee", "contractor", "service provider", "worker", "staff", "benefits",
	"vacation", "leave", "resignation", "dismissal", "non-compete",

	// technology and data
	"data", "software", "system", "technology", "database", "security", "backup",
	"maintenance", "support", "upgrade", "integration",
}

type typeGroup struct {
	clauseType models.ClauseType
	keywords   []string
}

// typePrecedence is checked in order; the first group with any keyword present wins.
var typePrecedence = []typeGroup{
	{models.ClauseTypePaymentTerms, []string{"payment", "fee", "cost", "charge", "amount"}},
	{models.ClauseTypeTermination, []string{"termination", "terminate", "end", "expir"}},
	{models.ClauseTypeLiability, []string{"liability", "liable", "responsible", "damages"}},
	{models.ClauseTypeConfidentiality, []string{"confidential", "proprietary", "non-disclosure"}},
	{models.ClauseTypeIntellectualProperty, []string{"intellectual property", "copyright", "trademark"}},
	{models.ClauseTypeDisputeResolution, []string{"dispute", "arbitration", "litigation", "court"}},
	{models.ClauseTypeGoverningLaw, []string{"governing law", "jurisdiction"}},
	{models.ClauseTypeAmendment, []string{"amendment", "modification", "change"}},
}

var obligationKeywords = []string{"shall", "must", "required", "obligation", "right", "liability", "agreement"}

// MatchIndicators returns every indicator found in text, in vocabulary order.
func MatchIndicators(text string) []string {
	lower := strings.ToLower(text)
	var matched []string
	for _, ind := range clauseIndicators {
		if strings.Contains(lower, ind) {
			matched = append(matched, ind)
		}
	}
	return matched
}

// InferType assigns a preliminary clause type by keyword-group precedence.
func InferType(text string) models.ClauseType {
	lower := strings.ToLower(text)
	for _, g := range typePrecedence {
		if containsAny(lower, g.keywords) {
			return g.clauseType
		}
	}
	return models.ClauseTypeOther
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
