package segmenter

import (
	"fmt"
	"strings"
	"testing"

	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const leaseText = `1. Payment. The Tenant shall pay a monthly rent of $1,500 on the first day of each month. A late fee of $75 will be charged for any payment received after the fifth day of the month.

2. Termination. Either party may terminate this agreement with sixty days written notice. The Landlord may terminate immediately if the Tenant fails to pay rent when due.

3. Liability. The Tenant shall be liable for all damages to the premises caused by the Tenant or guests, and must indemnify the Landlord against any resulting claims.

Short line.`

// ==========================
// Vocabulary
// ==========================

func TestMatchIndicators_RecordsAll(t *testing.T) {
	matched := MatchIndicators("The Tenant shall pay a late fee and is liable for damages.")
	assert.Contains(t, matched, "fee")
	assert.Contains(t, matched, "late fee")
	assert.Contains(t, matched, "liable")
	assert.Contains(t, matched, "damages")
	assert.Empty(t, MatchIndicators("xyz qqq"))
}

func TestInferType_Precedence(t *testing.T) {
	tests := []struct {
		text string
		want models.ClauseType
	}{
		{"Payment is due upon termination", models.ClauseTypePaymentTerms},
		{"Either party may terminate", models.ClauseTypeTermination},
		{"The supplier is liable for damages", models.ClauseTypeLiability},
		{"All confidential information", models.ClauseTypeConfidentiality},
		{"Copyright in the works", models.ClauseTypeIntellectualProperty},
		{"Disputes go to arbitration", models.ClauseTypeDisputeResolution},
		{"The governing law is Delaware", models.ClauseTypeGoverningLaw},
		{"Any modification must be in writing", models.ClauseTypeAmendment},
		{"Headings are for convenience", models.ClauseTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(tt.text))
		})
	}
}

func TestImportanceScore(t *testing.T) {
	plain := ImportanceScore("words")
	assert.InDelta(t, 0.3*5.0/1000, plain, 1e-9)

	numbered := ImportanceScore("1. The party shall comply with this agreement as required.")
	// 3 of 7 obligation keywords (shall, required, agreement) plus the section bonus
	length := float64(len("1. The party shall comply with this agreement as required.")) / 1000 * 0.3
	assert.InDelta(t, length+3.0/7.0*0.4+0.3, numbered, 1e-9)

	long := "1. " + strings.Repeat("shall must required obligation right liability agreement ", 40)
	assert.InDelta(t, 1.0, ImportanceScore(long), 1e-9)
}

// ==========================
// Splitting
// ==========================

func TestSplitSentences(t *testing.T) {
	got := SplitSentences("The fee is due. Payment by wire. e.g. not split here. Done")
	assert.Equal(t, []string{"The fee is due", "Payment by wire. e.g. not split here", "Done"}, got)
}

func TestParagraphs(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Paragraphs("  a \n\n\n\n b"))
	assert.Nil(t, Paragraphs(" \n\n "))
}

// ==========================
// Candidates and ranking
// ==========================

func TestFindCandidates_ParagraphsBeforeSentences(t *testing.T) {
	spans := FindCandidates(leaseText)
	require.NotEmpty(t, spans)

	seenSentence := false
	for _, s := range spans {
		assert.Greater(t, len(s.Text), 100)
		assert.NotEmpty(t, s.MatchedIndicators)
		if s.Origin == models.OriginSentence {
			seenSentence = true
			assert.GreaterOrEqual(t, s.SourceIndex, 4)
		} else {
			assert.False(t, seenSentence, "paragraph span after sentence span")
		}
	}

	assert.Equal(t, models.OriginParagraph, spans[0].Origin)
	assert.Equal(t, models.ClauseTypePaymentTerms, spans[0].InferredType)
	assert.Equal(t, 0, spans[0].SourceIndex)
}

func TestSegment_DeduplicatesAndRanks(t *testing.T) {
	s := New(20, logger.NewNoOpLogger())
	spans := s.Segment(leaseText)
	require.NotEmpty(t, spans)

	for i := 1; i < len(spans); i++ {
		assert.GreaterOrEqual(t, spans[i-1].ImportanceScore, spans[i].ImportanceScore)
	}

	sigs := map[string]bool{}
	for _, sp := range spans {
		sig := Signature(sp.Text)
		assert.False(t, sigs[sig], "duplicate signature %q", sig)
		sigs[sig] = true
	}
}

func TestSegment_CandidateCap(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 80; i++ {
		fmt.Fprintf(&b, "%d. Clause number %d provides that the supplier shall pay every invoice amount within thirty days of receipt and remains liable for item %d.\n\n", i+1, i, i)
	}

	spans := New(50, logger.NewNoOpLogger()).Segment(b.String())
	assert.Len(t, spans, MaxCandidates)

	spans = New(5, logger.NewNoOpLogger()).Segment(b.String())
	assert.Len(t, spans, 5)
}

func TestRank_FirstOccurrenceWinsAndIdempotent(t *testing.T) {
	text := "The supplier shall deliver the goods on time and in full to the buyer premises"
	spans := []models.CandidateClauseSpan{
		{Text: text, Origin: models.OriginParagraph, ImportanceScore: 0.4},
		{Text: text + " every week.", Origin: models.OriginSentence, ImportanceScore: 0.9},
		{Text: "Completely different words about confidential data handling", ImportanceScore: 0.5},
	}

	ranked := Rank(spans, 20)
	require.Len(t, ranked, 2)
	assert.Equal(t, 0.5, ranked[0].ImportanceScore)
	assert.Equal(t, models.OriginParagraph, ranked[1].Origin)

	assert.Equal(t, ranked, Rank(ranked, 20))
}

func TestSignature(t *testing.T) {
	assert.Equal(t, Signature("B a C"), Signature("c A b"))
	assert.Equal(t, "1 10 2 3 4 5 6 7 8 9", Signature("1 2 3 4 5 6 7 8 9 10 11 12"))
}
