// internal/analysis/segmenter/ranker.go
package segmenter

import (
	"sort"
	"strings"

	"legal-analyzer/internal/models"
)

const signatureWords = 10

// Signature is the sorted set of the first ten lowercase words of text. Spans
// sharing a signature are treated as duplicates.
func Signature(text string) string {
	words := strings.Fields(strings.ToLower(text))
	if len(words) > signatureWords {
		words = words[:signatureWords]
	}
	sorted := append([]string(nil), words...)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// Dedup keeps the first span for every signature, preserving input order.
func Dedup(spans []models.CandidateClauseSpan) []models.CandidateClauseSpan {
	seen := make(map[string]bool, len(spans))
	out := make([]models.CandidateClauseSpan, 0, len(spans))
	for _, span := range spans {
		sig := Signature(span.Text)
		if seen[sig] {
			continue
		}
		seen[sig] = true
		out = append(out, span)
	}
	return out
}

// Rank deduplicates spans, orders them by importance (stable on ties) and
// truncates to limit.
func Rank(spans []models.CandidateClauseSpan, limit int) []models.CandidateClauseSpan {
	if limit <= 0 || limit > MaxCandidates {
		limit = MaxCandidates
	}

	unique := Dedup(spans)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].ImportanceScore > unique[j].ImportanceScore
	})

	if len(unique) > limit {
		unique = unique[:limit]
	}
	return unique
}
