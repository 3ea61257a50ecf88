// internal/analysis/postprocess/postprocess.go
package postprocess

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"legal-analyzer/internal/models"
)

const (
	minClauseLength     = 50
	minMeaningfulWords  = 5
	minMeaningfulLength = 3
	duplicateSimilarity = 0.9
)

// importanceRank breaks ties between clauses with equal risk scores. It is a
// sort key only and unrelated to the risk weights used for aggregation.
var importanceRank = map[models.ClauseType]int{
	models.ClauseTypeLiability:            10,
	models.ClauseTypePaymentTerms:         9,
	models.ClauseTypeTermination:          8,
	models.ClauseTypeIndemnification:      7,
	models.ClauseTypeIntellectualProperty: 6,
	models.ClauseTypeConfidentiality:      5,
	models.ClauseTypeDisputeResolution:    4,
	models.ClauseTypeGoverningLaw:         3,
	models.ClauseTypeAmendment:            2,
	models.ClauseTypeSeverability:         1,
	models.ClauseTypeOther:                0,
}

// ImportanceRank returns the tie-break rank of a clause type; unlisted types rank 0.
func ImportanceRank(t models.ClauseType) int {
	return importanceRank[t]
}

// ValidateAndRank drops clauses failing the quality filter, removes near
// duplicates and orders the rest by risk score, then type importance.
func ValidateAndRank(clauses []models.LegalClause) []models.LegalClause {
	valid := make([]models.LegalClause, 0, len(clauses))
	for _, c := range clauses {
		if IsValid(c) {
			valid = append(valid, c)
		}
	}

	unique := Dedup(valid)
	SortByRisk(unique)
	return unique
}

// IsValid reports whether a clause has enough substance to keep.
func IsValid(c models.LegalClause) bool {
	if utf8.RuneCountInString(strings.TrimSpace(c.OriginalText)) < minClauseLength {
		return false
	}
	if strings.TrimSpace(c.SimplifiedText) == "" {
		return false
	}
	if c.RiskScore < models.MinRiskScore || c.RiskScore > models.MaxRiskScore {
		return false
	}
	return meaningfulWords(c.OriginalText) >= minMeaningfulWords
}

// meaningfulWords counts purely alphabetic words longer than three letters.
func meaningfulWords(text string) int {
	n := 0
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if utf8.RuneCountInString(w) > minMeaningfulLength && isAlpha(w) {
			n++
		}
	}
	return n
}

func isAlpha(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return s != ""
}

// Dedup keeps the first clause of every group whose normalised texts are equal
// or share more than 90% of their word sets.
func Dedup(clauses []models.LegalClause) []models.LegalClause {
	out := make([]models.LegalClause, 0, len(clauses))
	var accepted []map[string]struct{}
	seen := make(map[string]bool, len(clauses))

	for _, c := range clauses {
		normalized := Normalize(c.OriginalText)
		if seen[normalized] {
			continue
		}

		words := wordSet(normalized)
		duplicate := false
		for _, other := range accepted {
			if Jaccard(words, other) > duplicateSimilarity {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}

		seen[normalized] = true
		accepted = append(accepted, words)
		out = append(out, c)
	}
	return out
}

// SortByRisk orders clauses by descending risk score, then descending type
// importance. Equal keys keep their relative order.
func SortByRisk(clauses []models.LegalClause) {
	sort.SliceStable(clauses, func(i, j int) bool {
		if clauses[i].RiskScore != clauses[j].RiskScore {
			return clauses[i].RiskScore > clauses[j].RiskScore
		}
		return ImportanceRank(clauses[i].ClauseType) > ImportanceRank(clauses[j].ClauseType)
	})
}

// Normalize lowercases text and collapses whitespace.
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func wordSet(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		set[w] = struct{}{}
	}
	return set
}

// Jaccard is |a∩b| / |a∪b|, or 0 when either set is empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
