package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseClauseType(t *testing.T) {
	tests := []struct {
		in   string
		want ClauseType
	}{
		{"liability", ClauseTypeLiability},
		{" Payment Terms ", ClauseTypePaymentTerms},
		{"force-majeure", ClauseTypeForceMajeure},
		{"GOVERNING_LAW", ClauseTypeGoverningLaw},
		{"warranty", ClauseTypeOther},
		{"", ClauseTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseClauseType(tt.in))
		})
	}
}

func TestClauseTypeRendering(t *testing.T) {
	assert.Equal(t, "Payment Terms", ClauseTypePaymentTerms.Title())
	assert.Equal(t, "Intellectual Property", ClauseTypeIntellectualProperty.Title())
	assert.Equal(t, "dispute resolution", ClauseTypeDisputeResolution.Words())
	assert.Equal(t, "Other", ClauseTypeOther.Title())
}

func TestClampRiskScore(t *testing.T) {
	assert.Equal(t, MinRiskScore, ClampRiskScore(-3))
	assert.Equal(t, MinRiskScore, ClampRiskScore(0))
	assert.Equal(t, 6, ClampRiskScore(6))
	assert.Equal(t, MaxRiskScore, ClampRiskScore(42))
}

func TestRiskTier(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{10, "high"},
		{7, "high"},
		{6, "medium"},
		{4, "medium"},
		{3, "low"},
		{1, "low"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskTier(tt.score), "score %d", tt.score)
	}
}

func TestSection(t *testing.T) {
	num := "4.2"
	assert.Equal(t, "4.2", LegalClause{SectionNumber: &num}.Section())
	assert.Equal(t, "", LegalClause{}.Section())
}

func TestParseDocumentType(t *testing.T) {
	assert.Equal(t, DocumentTypeLoanAgreement, ParseDocumentType("loan_agreement"))
	assert.Equal(t, DocumentTypeOther, ParseDocumentType("nda"))
	assert.Equal(t, DocumentTypeOther, ParseDocumentType("other"))
}
