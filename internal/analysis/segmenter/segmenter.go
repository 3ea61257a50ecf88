// internal/analysis/segmenter/segmenter.go
package segmenter

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"legal-analyzer/internal/analysis/textproc"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/models"
)

const (
	MaxCandidates = 20

	minSpanLength     = 100
	minSentenceLength = 50
	maxSentenceScan   = 50
)

// sentenceBreak is a period followed by whitespace and an uppercase letter.
var sentenceBreak = regexp.MustCompile(`\.\s+[A-Z]`)

// Segmenter turns cleaned document text into ranked candidate clause spans.
type Segmenter struct {
	limit  int
	logger logger.Logger
}

// New returns a Segmenter capped at limit candidates. limit is clamped to
// (0, MaxCandidates].
func New(limit int, log logger.Logger) *Segmenter {
	if limit <= 0 || limit > MaxCandidates {
		limit = MaxCandidates
	}
	return &Segmenter{
		limit:  limit,
		logger: log.With(map[string]interface{}{"component": "segmenter"}),
	}
}

// Segment finds candidate spans in text, removes near-duplicates and returns the
// most important ones.
func (s *Segmenter) Segment(text string) []models.CandidateClauseSpan {
	found := FindCandidates(text)
	ranked := Rank(found, s.limit)

	s.logger.Debug("segmentation completed", map[string]interface{}{
		"candidates": len(found),
		"kept":       len(ranked),
	})
	return ranked
}

// FindCandidates scans paragraphs first, then the first sentences, and returns
// every span that mentions at least one clause indicator. Paragraph spans precede
// sentence spans.
func FindCandidates(text string) []models.CandidateClauseSpan {
	paragraphs := Paragraphs(text)

	var sentences []string
	for _, p := range paragraphs {
		for _, sentence := range SplitSentences(p) {
			if utf8.RuneCountInString(sentence) > minSentenceLength {
				sentences = append(sentences, sentence)
			}
		}
	}

	var out []models.CandidateClauseSpan
	for i, p := range paragraphs {
		if utf8.RuneCountInString(p) <= minSpanLength {
			continue
		}
		if span, ok := analyzeSpan(p, models.OriginParagraph, i); ok {
			out = append(out, span)
		}
	}

	if len(sentences) > maxSentenceScan {
		sentences = sentences[:maxSentenceScan]
	}
	for i, sentence := range sentences {
		if utf8.RuneCountInString(sentence) <= minSpanLength {
			continue
		}
		if span, ok := analyzeSpan(sentence, models.OriginSentence, i+len(paragraphs)); ok {
			out = append(out, span)
		}
	}
	return out
}

func analyzeSpan(text string, origin models.SpanOrigin, index int) (models.CandidateClauseSpan, bool) {
	indicators := MatchIndicators(text)
	if len(indicators) == 0 {
		return models.CandidateClauseSpan{}, false
	}
	return models.CandidateClauseSpan{
		Text:              text,
		Origin:            origin,
		SourceIndex:       index,
		MatchedIndicators: indicators,
		InferredType:      InferType(text),
		ImportanceScore:   ImportanceScore(text),
	}, true
}

// Paragraphs splits text on blank lines and drops empty pieces.
func Paragraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SplitSentences breaks a paragraph at periods followed by whitespace and an
// uppercase letter. The breaking period is dropped; pieces are trimmed.
func SplitSentences(paragraph string) []string {
	var out []string
	start := 0
	for _, m := range sentenceBreak.FindAllStringIndex(paragraph, -1) {
		out = append(out, strings.TrimSpace(paragraph[start:m[0]]))
		start = m[0] + 1
	}
	out = append(out, strings.TrimSpace(paragraph[start:]))
	return out
}

// ImportanceScore weighs span length, obligation vocabulary and a leading
// section number. The result is within [0,1].
func ImportanceScore(text string) float64 {
	lower := strings.ToLower(text)

	score := math.Min(float64(utf8.RuneCountInString(text))/1000, 1.0) * 0.3

	hits := 0
	for _, kw := range obligationKeywords {
		if strings.Contains(lower, kw) {
			hits++
		}
	}
	score += float64(hits) / float64(len(obligationKeywords)) * 0.4

	if textproc.StartsSection(text) {
		score += 0.3
	}
	return math.Min(score, 1.0)
}
