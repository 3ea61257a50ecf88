// internal/analysis/relevance/suggestions.go
package relevance

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"legal-analyzer/internal/models"
)

const (
	maxSuggestions = 8
	maxTopics      = 10
)

var typeQuestions = []struct {
	clauseType models.ClauseType
	questions  []string
}{
	{models.ClauseTypePaymentTerms, []string{
		"What are the payment terms and due dates?",
		"Are there any late fees or penalties?",
		"What payment methods are accepted?",
	}},
	{models.ClauseTypeTermination, []string{
		"How can this agreement be terminated?",
		"What happens if I need to end this early?",
		"Are there any termination penalties?",
	}},
	{models.ClauseTypeLiability, []string{
		"What am I liable for under this agreement?",
		"What are the limits on liability?",
		"What damages could I be responsible for?",
	}},
	{models.ClauseTypeConfidentiality, []string{
		"What information must be kept confidential?",
		"How long do confidentiality obligations last?",
	}},
	{models.ClauseTypeDisputeResolution, []string{
		"How are disputes resolved?",
		"Is arbitration required for disagreements?",
	}},
}

const highRiskQuestion = "What are the highest risk terms in this document?"

// SuggestQuestions proposes up to eight follow-up questions for the clause
// types present in a document.
func SuggestQuestions(clauses []models.LegalClause) []string {
	present := map[models.ClauseType]bool{}
	highRisk := false
	for _, c := range clauses {
		present[c.ClauseType] = true
		if c.RiskScore >= models.HighRiskThreshold {
			highRisk = true
		}
	}

	out := []string{}
	for _, tq := range typeQuestions {
		if present[tq.clauseType] {
			out = append(out, tq.questions...)
		}
	}
	if highRisk {
		out = append(out, highRiskQuestion)
	}
	if len(out) > maxSuggestions {
		out = out[:maxSuggestions]
	}
	return out
}

var queryStopwords = toSet(
	"what", "how", "when", "where", "why", "who", "can", "will", "would", "could", "should",
	"do", "does", "did", "is", "are", "was", "were", "the", "a", "an", "and", "or", "but",
)

// QueryStats summarises the questions asked about a document.
type QueryStats struct {
	TotalQueries          int      `json:"totalQueries"`
	AverageConfidence     float64  `json:"averageConfidence"`
	HighConfidenceQueries int      `json:"highConfidenceQueries"`
	LowConfidenceQueries  int      `json:"lowConfidenceQueries"`
	CommonTopics          []string `json:"commonTopics"`
}

// QueryStatistics aggregates a document's query history. Topics are words
// longer than three letters, most frequent first, formatted "word (count)".
func QueryStatistics(history []models.QueryResult) QueryStats {
	stats := QueryStats{CommonTopics: []string{}}
	if len(history) == 0 {
		return stats
	}

	counts := map[string]int{}
	var order []string
	total := 0.0
	for _, q := range history {
		total += q.Confidence
		switch {
		case q.Confidence >= 0.8:
			stats.HighConfidenceQueries++
		case q.Confidence < 0.5:
			stats.LowConfidenceQueries++
		}

		for _, w := range wordPattern.FindAllString(strings.ToLower(q.Query), -1) {
			if _, stop := queryStopwords[w]; stop || utf8.RuneCountInString(w) <= 3 {
				continue
			}
			if counts[w] == 0 {
				order = append(order, w)
			}
			counts[w]++
		}
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > maxTopics {
		order = order[:maxTopics]
	}
	for _, w := range order {
		stats.CommonTopics = append(stats.CommonTopics, fmt.Sprintf("%s (%d)", w, counts[w]))
	}

	stats.TotalQueries = len(history)
	stats.AverageConfidence = math.Round(total/float64(len(history))*100) / 100
	return stats
}
