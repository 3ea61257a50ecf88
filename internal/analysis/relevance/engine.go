// internal/analysis/relevance/engine.go
package relevance

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"
)

const (
	MaxRelevantClauses = 5
	MaxContextLength   = 3000
	MaxContextSentence = 3

	relevanceThreshold = 0.5
	minSentenceLength  = 20
	summaryLength      = 200
	sourceSnippet      = 150

	FallbackAnswer     = "I'm having trouble generating an answer right now. Please try rephrasing your question."
	FallbackConfidence = 0.1
	NoAnswer           = "I couldn't find a clear answer to your question."
	DefaultConfidence  = 0.5
)

var ErrEmptyQuery = errors.New("query must not be empty")

// QueryAnswerer generates an answer from assembled context and clause summaries.
type QueryAnswerer interface {
	Answer(ctx context.Context, query, documentContext string, clauseSummaries []string) (*models.QueryAnswer, error)
}

type topic struct {
	pattern *regexp.Regexp
	words   []string
	types   []models.ClauseType
}

// topics maps question vocabulary onto the clause types that usually answer it.
var topics = []topic{
	newTopic([]string{"payment", "pay", "fee", "cost", "money", "charge", "bill"}, models.ClauseTypePaymentTerms),
	newTopic([]string{"terminat", "end", "cancel", "break", "exit", "quit"}, models.ClauseTypeTermination),
	newTopic([]string{"liability", "liable", "responsible", "damage", "fault"}, models.ClauseTypeLiability),
	newTopic([]string{"confidential", "secret", "private", "disclosure"}, models.ClauseTypeConfidentiality),
	newTopic([]string{"intellectual property", "copyright", "trademark", "patent"}, models.ClauseTypeIntellectualProperty),
	newTopic([]string{"dispute", "conflict", "disagree", "arbitrat", "court", "legal"}, models.ClauseTypeDisputeResolution),
	newTopic([]string{"law", "jurisdiction", "govern", "legal"}, models.ClauseTypeGoverningLaw),
	newTopic([]string{"change", "modify", "amend", "alter"}, models.ClauseTypeAmendment),
	newTopic([]string{"indemnif", "hold harmless", "protect"}, models.ClauseTypeIndemnification),
}

func newTopic(alternatives []string, types ...models.ClauseType) topic {
	quoted := make([]string, len(alternatives))
	var words []string
	for i, a := range alternatives {
		quoted[i] = regexp.QuoteMeta(a)
		words = append(words, strings.Fields(a)...)
	}
	return topic{
		pattern: regexp.MustCompile("(" + strings.Join(quoted, "|") + ")"),
		words:   words,
		types:   types,
	}
}

var stopwords = toSet(
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by",
	"is", "are", "was", "were", "be", "been", "have", "has", "had", "do", "does", "did",
	"will", "would", "could", "should", "may", "might", "can", "must", "shall",
)

var definitiveTypes = map[models.ClauseType]bool{
	models.ClauseTypePaymentTerms: true,
	models.ClauseTypeTermination:  true,
	models.ClauseTypeGoverningLaw: true,
}

var (
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}_]+`)
	sentencePattern = regexp.MustCompile(`[.!?]+`)
)

// Engine answers free-text questions about an analysed document.
type Engine struct {
	answerer QueryAnswerer
	logger   logger.Logger
	now      func() time.Time
}

func NewEngine(answerer QueryAnswerer, log logger.Logger) *Engine {
	return &Engine{
		answerer: answerer,
		logger:   log.With(map[string]interface{}{"component": "relevance"}),
		now:      time.Now,
	}
}

// Answer selects relevant clauses, builds bounded context and asks the
// answerer. Answerer failures produce the fallback answer rather than an error.
func (e *Engine) Answer(ctx context.Context, documentID, query, documentText string, clauses []models.LegalClause) (models.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		return models.QueryResult{}, ErrEmptyQuery
	}

	relevant := FindRelevant(query, clauses)
	docContext := BuildContext(query, documentText, relevant)
	answer := e.generate(ctx, query, docContext, relevant)

	text := strings.TrimSpace(answer.Answer)
	if text == "" {
		text = NoAnswer
	}

	result := models.QueryResult{
		Query:             query,
		Answer:            text,
		Confidence:        Confidence(query, relevant, answer.Confidence),
		RelevantClauseIDs: make([]string, 0, len(relevant)),
		Sources:           Sources(relevant),
		DocumentID:        documentID,
		AskedAt:           e.now().UTC(),
	}
	for _, c := range relevant {
		result.RelevantClauseIDs = append(result.RelevantClauseIDs, c.ClauseID)
	}

	e.logger.Info("Query processed", map[string]interface{}{
		"documentId":      documentID,
		"relevantClauses": len(relevant),
		"confidence":      result.Confidence,
	})
	return result, nil
}

func (e *Engine) generate(ctx context.Context, query, docContext string, relevant []models.LegalClause) models.QueryAnswer {
	fallback := models.QueryAnswer{Answer: FallbackAnswer, Confidence: FallbackConfidence, SourcesUsed: []string{}}
	if e.answerer == nil {
		metrics.QueriesAnswered.WithLabelValues("fallback").Inc()
		return fallback
	}

	answer, err := e.answerer.Answer(ctx, query, docContext, ClauseSummaries(relevant))
	if err != nil || answer == nil {
		e.logger.WithError(err).Error("Answer generation failed", nil)
		metrics.QueriesAnswered.WithLabelValues("fallback").Inc()
		return fallback
	}
	metrics.QueriesAnswered.WithLabelValues("collaborator").Inc()
	return *answer
}

type scored struct {
	clause models.LegalClause
	score  float64
}

// FindRelevant returns up to five clauses scoring above 0.5. When none do, the
// best one or two clauses are returned so a non-empty clause set never yields
// an empty selection.
func FindRelevant(query string, clauses []models.LegalClause) []models.LegalClause {
	ranked := make([]scored, len(clauses))
	for i, c := range clauses {
		ranked[i] = scored{clause: c, score: Score(query, c)}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var out []models.LegalClause
	for _, r := range ranked {
		if r.score > relevanceThreshold {
			out = append(out, r.clause)
			if len(out) == MaxRelevantClauses {
				break
			}
		}
	}
	if len(out) == 0 {
		for i := 0; i < len(ranked) && i < 2; i++ {
			out = append(out, ranked[i].clause)
		}
	}
	return out
}

// Score sums the topic, keyword overlap, risk and simplified-text signals.
func Score(query string, c models.LegalClause) float64 {
	q := strings.ToLower(query)
	original := strings.ToLower(c.OriginalText)
	score := 0.0

	for _, t := range topics {
		if !t.pattern.MatchString(q) {
			continue
		}
		if hasType(t.types, c.ClauseType) {
			score += 3.0
		} else if containsAnyWord(original, t.words) {
			score += 1.0
		}
	}

	queryKeywords := without(Keywords(q), stopwords)
	if len(queryKeywords) > 0 {
		if clauseKeywords := without(Keywords(original), stopwords); len(clauseKeywords) > 0 {
			score += float64(overlap(queryKeywords, clauseKeywords)) / float64(len(queryKeywords)) * 2.0
		}
	}

	if c.RiskScore >= models.HighRiskThreshold {
		score += 0.5
	}

	if c.SimplifiedText != "" && len(queryKeywords) > 0 {
		if simplified := without(Keywords(strings.ToLower(c.SimplifiedText)), stopwords); len(simplified) > 0 {
			score += float64(overlap(queryKeywords, simplified)) / float64(len(queryKeywords)) * 1.5
		}
	}
	return score
}

// BuildContext joins the selected clause texts with up to three supporting
// document sentences, truncated to 3000 characters.
func BuildContext(query, documentText string, relevant []models.LegalClause) string {
	parts := make([]string, 0, len(relevant)+MaxContextSentence)
	lowered := make([]string, len(relevant))
	for i, c := range relevant {
		parts = append(parts, fmt.Sprintf("[%s] %s", c.ClauseType.Title(), c.OriginalText))
		lowered[i] = strings.ToLower(c.OriginalText)
	}

	queryKeywords := Keywords(strings.ToLower(query))
	added := 0
	for _, sentence := range sentencePattern.Split(documentText, -1) {
		if added == MaxContextSentence || len(queryKeywords) == 0 {
			break
		}
		sentence = strings.TrimSpace(sentence)
		if utf8.RuneCountInString(sentence) < minSentenceLength {
			continue
		}
		lower := strings.ToLower(sentence)
		if overlap(queryKeywords, Keywords(lower)) < 2 {
			continue
		}
		if containsSubstringOf(lowered, lower) {
			continue
		}
		parts = append(parts, sentence)
		added++
	}

	return truncate(strings.Join(parts, "\n\n"), MaxContextLength)
}

// ClauseSummaries renders the short per-clause lines handed to the answerer.
func ClauseSummaries(relevant []models.LegalClause) []string {
	out := make([]string, 0, len(relevant))
	for _, c := range relevant {
		s := fmt.Sprintf("- %s: %s", c.ClauseType.Title(), prefix(c.SimplifiedText, summaryLength))
		if c.RiskScore >= models.HighRiskThreshold {
			s += " [HIGH RISK]"
		}
		out = append(out, s)
	}
	return out
}

// Confidence adjusts the answerer's self-reported confidence by clause count,
// query length and clause type, clamped to [0,1].
func Confidence(query string, relevant []models.LegalClause, base float64) float64 {
	confidence := base

	switch {
	case len(relevant) >= 3:
		confidence += 0.1
	case len(relevant) == 0:
		confidence -= 0.3
	}

	switch words := len(strings.Fields(query)); {
	case words >= 8:
		confidence += 0.1
	case words <= 3:
		confidence -= 0.1
	}

	for _, c := range relevant {
		if definitiveTypes[c.ClauseType] {
			confidence += 0.1
			break
		}
	}

	// NaN fails every comparison; fold it into the low bound.
	if !(confidence >= 0) {
		return 0
	}
	if confidence > 1 {
		return 1
	}
	return confidence
}

// Sources formats one citation per selected clause.
func Sources(relevant []models.LegalClause) []string {
	out := make([]string, 0, len(relevant))
	for _, c := range relevant {
		source := c.ClauseType.Title()
		if section := c.Section(); section != "" {
			source += fmt.Sprintf(" (Section %s)", section)
		}
		source += ": " + truncate(c.OriginalText, sourceSnippet)
		out = append(out, source)
	}
	return out
}

// Keywords returns the set of lowercase word tokens in text.
func Keywords(text string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, w := range wordPattern.FindAllString(text, -1) {
		set[w] = struct{}{}
	}
	return set
}

func without(set, drop map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(set))
	for w := range set {
		if _, ok := drop[w]; !ok {
			out[w] = struct{}{}
		}
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func hasType(types []models.ClauseType, t models.ClauseType) bool {
	for _, candidate := range types {
		if candidate == t {
			return true
		}
	}
	return false
}

func containsAnyWord(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func containsSubstringOf(texts []string, s string) bool {
	for _, t := range texts {
		if strings.Contains(t, s) {
			return true
		}
	}
	return false
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// truncate cuts s to n runes and marks the cut with an ellipsis.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
