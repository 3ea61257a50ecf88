// internal/genai/parse.go
package genai

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"legal-analyzer/internal/common/validation"
	"legal-analyzer/internal/models"
)

var ErrNoJSON = errors.New("no JSON object in model response")

// scalar accepts what models actually emit for numeric fields.
const scalar = `{"type": ["integer", "number", "string", "null"]}`

var (
	clauseSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "clause_type": {"type": ["string", "null"]},
    "risk_score": ` + scalar + `,
    "risk_explanation": {"type": ["string", "null"]},
    "simplified_text": {"type": ["string", "null"]}
  }
}`)

	riskSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "risk_score": ` + scalar + `,
    "risk_explanation": {"type": ["string", "null"]}
  }
}`)

	answerSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "answer": {"type": ["string", "null"]},
    "confidence": ` + scalar + `
  }
}`)

	expertSchema = validation.MustCompile(`{
  "type": "object",
  "properties": {
    "report": {"type": ["string", "null"]},
    "recommendations": {"type": ["array", "string", "null"]}
  }
}`)

	objectSchema = validation.MustCompile(`{"type": "object"}`)
)

// ExtractJSON returns the first JSON object in text, ignoring code fences and
// any prose around it.
func ExtractJSON(text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	if start < 0 {
		return nil, ErrNoJSON
	}
	dec := json.NewDecoder(strings.NewReader(text[start:]))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return raw, nil
}

// decodeObject extracts, schema-checks and decodes a response object.
func decodeObject(text string, schema *validation.Schema) (map[string]interface{}, error) {
	raw, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}
	if result := schema.ValidateJSON(raw); !result.Valid {
		return nil, fmt.Errorf("response failed schema validation: %s", result.Error())
	}

	var out map[string]interface{}
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoJSON
	}
	return out, nil
}

func sanitizeClauseAnalysis(m map[string]interface{}) *models.ClauseAnalysis {
	return &models.ClauseAnalysis{
		ClauseType:      models.ParseClauseType(toString(m["clause_type"], string(models.ClauseTypeOther))),
		RiskScore:       models.ClampRiskScore(toInt(m["risk_score"], models.DefaultRiskScore)),
		RiskExplanation: toString(m["risk_explanation"], "No explanation provided"),
		SimplifiedText:  toString(m["simplified_text"], ""),
		Concerns:        toStringList(m["concerns"]),
		KeyTerms:        toStringList(m["key_terms"]),
		Recommendations: toStringList(m["recommendations"]),
		Obligations:     toStringList(m["obligations"]),
	}
}

// fallbackClauseAnalysis stands in for a response that could not be parsed.
func fallbackClauseAnalysis(clauseText string) *models.ClauseAnalysis {
	return &models.ClauseAnalysis{
		ClauseType:      models.ClauseTypeOther,
		RiskScore:       models.DefaultRiskScore,
		RiskExplanation: "Unable to parse detailed analysis",
		SimplifiedText:  runePrefix(clauseText, 500),
		Concerns:        []string{},
		KeyTerms:        []string{},
		Recommendations: []string{},
		Obligations:     []string{},
	}
}

func sanitizeRiskReview(m map[string]interface{}) *models.RiskReview {
	return &models.RiskReview{
		RiskScore:       models.ClampRiskScore(toInt(m["risk_score"], models.DefaultRiskScore)),
		RiskExplanation: toString(m["risk_explanation"], "No explanation provided"),
		RedFlags:        toStringList(m["red_flags"]),
		Recommendations: toStringList(m["recommendations"]),
	}
}

func sanitizeQueryAnswer(m map[string]interface{}) *models.QueryAnswer {
	return &models.QueryAnswer{
		Answer:      toString(m["answer"], "No answer provided"),
		Confidence:  math.Max(0, math.Min(1, toFloat(m["confidence"], 0.5))),
		SourcesUsed: toStringList(m["sources_used"]),
	}
}

func sanitizeSummary(m map[string]interface{}) *models.DocumentSummary {
	return &models.DocumentSummary{
		Parties:      toStringList(m["parties"]),
		KeyDates:     toStringList(m["key_dates"]),
		KeyAmounts:   toStringList(m["key_amounts"]),
		Duration:     toOptionalString(m["duration"]),
		MainPurpose:  toString(m["main_purpose"], "Unable to determine"),
		Jurisdiction: toOptionalString(m["jurisdiction"]),
	}
}

func sanitizeExplanation(m map[string]interface{}) *models.DocumentExplanation {
	return &models.DocumentExplanation{
		DocumentExplanation: toString(m["document_explanation"], "Unable to generate explanation"),
		KeyProvisions:       toStringList(m["key_provisions"]),
		LegalImplications:   toStringList(m["legal_implications"]),
		PracticalImpact:     toString(m["practical_impact"], "Unable to determine practical impact"),
		ClauseSummaries:     toStringList(m["clause_summaries"]),
	}
}

func sanitizeExpertOpinion(role models.ExpertRole, m map[string]interface{}) *models.ExpertOpinion {
	recommendations := toStringList(m["recommendations"])
	if single, ok := m["recommendations"].(string); ok && strings.TrimSpace(single) != "" {
		recommendations = []string{single}
	}
	return &models.ExpertOpinion{
		Role:            role,
		Report:          strings.TrimSpace(toString(m["report"], "")),
		Recommendations: recommendations,
	}
}

func toString(v interface{}, def string) string {
	switch x := v.(type) {
	case nil:
		return def
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

func toOptionalString(v interface{}) *string {
	s := strings.TrimSpace(toString(v, ""))
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// toInt truncates like toFloat parses. Values outside the int32 range saturate
// so the caller's clamp still sees the right sign.
func toInt(v interface{}, def int) int {
	f := toFloat(v, math.NaN())
	if math.IsNaN(f) {
		return def
	}
	return int(math.Max(math.MinInt32, math.Min(math.MaxInt32, f)))
}

// toFloat never returns NaN or Inf unless def is one.
func toFloat(v interface{}, def float64) float64 {
	var f float64
	switch x := v.(type) {
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return def
		}
		f = parsed
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return def
		}
		f = parsed
	default:
		return def
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

func toStringList(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, toString(item, ""))
	}
	return out
}
