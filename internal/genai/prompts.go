// internal/genai/prompts.go
package genai

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"legal-analyzer/internal/models"
)

const (
	classifyExcerpt    = 2000
	summaryExcerpt     = 3000
	explanationExcerpt = 4000
	answerContext      = 2000
	answerClauses      = 3
	explanationClauses = 10
)

// Per-persona brief sizes.
const (
	researchClauses    = 3
	complianceClauses  = 5
	negotiationClauses = 4
	alternativeTerms   = 5
)

const systemInstruction = "You are a careful legal analyst who explains contracts to non-lawyers. " +
	"Respond only with a single valid JSON object and no markdown."

func clausePrompt(clauseText string) string {
	return fmt.Sprintf(`Analyze this legal clause and provide a detailed assessment:

CLAUSE TEXT:
%s

INSTRUCTIONS:
1. Classify clause type from: %s
2. List key obligations for each party
3. Assess risk level (1-10 scale) with detailed explanation
4. Provide plain language explanation
5. Identify potential concerns or red flags
6. Extract key terms and definitions
7. Provide specific recommendations

Respond ONLY with valid JSON using this exact structure:
{
    "clause_type": "string",
    "obligations": ["string"],
    "risk_score": integer,
    "risk_explanation": "string",
    "simplified_text": "string",
    "concerns": ["string"],
    "key_terms": ["string"],
    "recommendations": ["string"]
}`, clauseText, clauseTypeList())
}

func riskPrompt(clauseText string) string {
	return fmt.Sprintf(`Assess the risk level of this legal clause on a scale of 1-10:
1-3: Low risk (standard, fair terms)
4-6: Medium risk (some concerns, review recommended)
7-10: High risk (unfavorable, potentially problematic)

Consider: favorability, clarity, potential costs, enforceability, one-sidedness

CLAUSE TEXT:
%s

Respond ONLY with valid JSON:
{
    "risk_score": integer,
    "risk_explanation": "string",
    "red_flags": ["string"],
    "recommendations": ["string"]
}`, clauseText)
}

func classifyPrompt(documentText string) string {
	return fmt.Sprintf(`Classify this legal document into one of these types:
- rental_agreement
- employment_contract
- loan_agreement
- terms_of_service
- privacy_policy
- purchase_agreement
- other

DOCUMENT EXCERPT:
%s

Respond ONLY with valid JSON:
{
    "document_type": "string",
    "confidence": 0.95,
    "reasoning": "string explaining classification"
}`, runePrefix(documentText, classifyExcerpt))
}

func summaryPrompt(documentText string) string {
	return fmt.Sprintf(`Extract key information from this legal document:

DOCUMENT CONTENT:
%s

EXTRACT:
1. All parties involved (person/company names)
2. Important dates mentioned (deadlines, effective dates, etc.)
3. Financial amounts and monetary terms
4. Contract duration or term length
5. Main purpose/subject of the document
6. Legal jurisdiction or governing law location

Respond ONLY with valid JSON:
{
    "parties": ["string"],
    "key_dates": ["string"],
    "key_amounts": ["string"],
    "duration": "string or null",
    "main_purpose": "string",
    "jurisdiction": "string or null"
}`, runePrefix(documentText, summaryExcerpt))
}

func answerPrompt(query, documentContext string, clauseSummaries []string) string {
	if len(clauseSummaries) > answerClauses {
		clauseSummaries = clauseSummaries[:answerClauses]
	}
	return fmt.Sprintf(`Answer this question about the legal document based on the provided context.

DOCUMENT CONTEXT:
%s

RELEVANT CLAUSES:
%s

USER QUESTION:
%s

INSTRUCTIONS:
- Provide a clear, accurate answer based only on the document content
- If information isn't available in the document, clearly state this
- Include confidence level in your answer
- Reference specific clauses/sections used

Respond ONLY with valid JSON:
{
    "answer": "string",
    "confidence": 0.95,
    "sources_used": ["string"]
}`, runePrefix(documentContext, answerContext), strings.Join(clauseSummaries, "\n\n"), query)
}

func explanationPrompt(documentText string, documentType models.DocumentType, clauses []models.LegalClause) string {
	if len(clauses) > explanationClauses {
		clauses = clauses[:explanationClauses]
	}
	lines := make([]string, 0, len(clauses))
	for _, c := range clauses {
		lines = append(lines, fmt.Sprintf("- %s: %s...", c.ClauseType, runePrefix(c.SimplifiedText, 100)))
	}

	return fmt.Sprintf(`Provide a comprehensive, easy-to-understand explanation of this legal document.

DOCUMENT TYPE: %s

DOCUMENT CONTENT:
%s

KEY CLAUSES IDENTIFIED:
%s

INSTRUCTIONS:
Provide a detailed explanation that includes:
1. Overall purpose and nature of this document
2. Key provisions and what they mean in plain language
3. Important legal implications for all parties
4. Practical impact and real-world consequences
5. Clause-by-clause summary of major sections

Write in clear, non-legal language. Focus on practical implications rather than legal jargon.

Respond ONLY with valid JSON using this exact structure:
{
    "document_explanation": "string",
    "key_provisions": ["string"],
    "legal_implications": ["string"],
    "practical_impact": "string",
    "clause_summaries": ["string"]
}`, documentType, runePrefix(documentText, explanationExcerpt), strings.Join(lines, "\n"))
}

// expertPrompt briefs one persona of the expert panel on a finished analysis.
func expertPrompt(role models.ExpertRole, analysis models.DocumentAnalysis) string {
	var high []models.LegalClause
	for _, c := range analysis.Clauses {
		if c.RiskScore >= models.HighRiskThreshold {
			high = append(high, c)
		}
	}

	var brief, focus string
	switch role {
	case models.ExpertLegalResearch:
		brief = "HIGH-RISK CLAUSES:\n" + clauseLines(high, researchClauses, func(c models.LegalClause) string {
			return fmt.Sprintf("- %s: %s...", c.ClauseType, runePrefix(c.OriginalText, 200))
		})
		focus = `1. Relevant case law and precedents for similar clauses
2. How courts typically interpret these clauses
3. Legal theories that could be used to contest unfair terms
4. Recent regulatory guidance and jurisdictional differences`
	case models.ExpertConsumerProtection:
		brief = fmt.Sprintf("DOCUMENT PURPOSE: %s\nPARTIES: %s\nOVERALL RISK SCORE: %.1f\nHIGH-RISK CLAUSES: %s",
			analysis.Summary.MainPurpose, strings.Join(analysis.Summary.Parties, ", "),
			analysis.OverallRiskScore, strings.Join(analysis.Assessment.HighRiskClauseIDs, ", "))
		focus = `1. Unfair or deceptive practices and unconscionable terms
2. Hidden fees, costs or penalties and buried language
3. Terms that waive important consumer rights
4. Severity of each issue and the remedies available`
	case models.ExpertCompliance:
		brief = "KEY CLAUSES IDENTIFIED:\n" + clauseLines(analysis.Clauses, complianceClauses, func(c models.LegalClause) string {
			return fmt.Sprintf("- %s: Risk Score %d", c.ClauseType, c.RiskScore)
		})
		focus = `1. Federal and state consumer protection requirements
2. Required disclosures that appear to be missing
3. Industry-specific rules for this document type
4. Risk level and corrective action for each potential violation`
	case models.ExpertNegotiation:
		brief = "PROBLEMATIC TERMS TO ADDRESS:\n" + clauseLines(high, negotiationClauses, func(c models.LegalClause) string {
			return fmt.Sprintf("- %s (Risk: %d): %s...", c.ClauseType, c.RiskScore, runePrefix(c.RiskExplanation, 150))
		})
		focus = `1. Which terms are usually negotiable
2. Specific alternative language proposals
3. Leverage points and deal-breakers
4. How to open and sequence the negotiation`
	case models.ExpertAlternatives:
		brief = fmt.Sprintf("OVERALL RISK SCORE: %.1f\nMAIN PROBLEMS IDENTIFIED:\n%s", analysis.OverallRiskScore,
			clauseLines(high, alternativeTerms, func(c models.LegalClause) string {
				return "- " + runePrefix(c.RiskExplanation, 100)
			}))
		focus = `1. Providers or contract structures with fairer terms
2. Shorter or more flexible arrangements
3. Trade-offs, costs and ease of switching for each option`
	}

	return fmt.Sprintf(`You are acting as a %s reviewing a %s.

%s

Cover:
%s

Write for a non-lawyer. Include concrete recommendations.

Respond ONLY with valid JSON using this exact structure:
{
    "report": "string",
    "recommendations": ["string"]
}`, role.Title(), analysis.DocumentType, brief, focus)
}

func clauseLines(clauses []models.LegalClause, limit int, format func(models.LegalClause) string) string {
	if len(clauses) == 0 {
		return "- none identified"
	}
	if len(clauses) > limit {
		clauses = clauses[:limit]
	}
	lines := make([]string, 0, len(clauses))
	for _, c := range clauses {
		lines = append(lines, format(c))
	}
	return strings.Join(lines, "\n")
}

func clauseTypeList() string {
	names := make([]string, 0, len(models.AllClauseTypes))
	for _, t := range models.AllClauseTypes {
		names = append(names, string(t))
	}
	return strings.Join(names, ", ")
}

func runePrefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
