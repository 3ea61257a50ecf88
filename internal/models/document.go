// internal/models/document.go
package models

import "time"

// DocumentType is the collaborator's classification of the whole document.
type DocumentType string

const (
	DocumentTypeRentalAgreement    DocumentType = "rental_agreement"
	DocumentTypeEmploymentContract DocumentType = "employment_contract"
	DocumentTypeLoanAgreement      DocumentType = "loan_agreement"
	DocumentTypeTermsOfService     DocumentType = "terms_of_service"
	DocumentTypePrivacyPolicy      DocumentType = "privacy_policy"
	DocumentTypePurchaseAgreement  DocumentType = "purchase_agreement"
	DocumentTypeOther              DocumentType = "other"
)

var documentTypes = []DocumentType{
	DocumentTypeRentalAgreement,
	DocumentTypeEmploymentContract,
	DocumentTypeLoanAgreement,
	DocumentTypeTermsOfService,
	DocumentTypePrivacyPolicy,
	DocumentTypePurchaseAgreement,
}

// ParseDocumentType maps a label onto DocumentType, defaulting to other.
func ParseDocumentType(s string) DocumentType {
	for _, t := range documentTypes {
		if string(t) == s {
			return t
		}
	}
	return DocumentTypeOther
}

// Processing states
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// ProcessingStatus tracks a document through the analysis pipeline.
type ProcessingStatus struct {
	DocumentID  string    `json:"documentId"`
	Status      string    `json:"status"`
	Progress    int       `json:"progress"`
	CurrentStep string    `json:"currentStep"`
	Error       string    `json:"error,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RawDocumentText is normalized document content plus counts.
type RawDocumentText struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	Text       string `json:"text"`
	WordCount  int    `json:"wordCount"`
	PageCount  int    `json:"pageCount"`
}

// RiskAssessmentResult is recomputed from the clause set on every call.
type RiskAssessmentResult struct {
	OverallRisk         float64        `json:"overallRisk"`
	HighRiskClauseIDs   []string       `json:"highRiskClauseIds"`
	MediumRiskClauseIDs []string       `json:"mediumRiskClauseIds"`
	LowRiskClauseIDs    []string       `json:"lowRiskClauseIds"`
	RiskDistribution    map[string]int `json:"riskDistribution"`
	Recommendations     []string       `json:"recommendations"`
}

// QueryResult answers one user question about one document.
type QueryResult struct {
	Query             string    `json:"query"`
	Answer            string    `json:"answer"`
	Confidence        float64   `json:"confidence"`
	RelevantClauseIDs []string  `json:"relevantClauseIds"`
	Sources           []string  `json:"sources"`
	DocumentID        string    `json:"documentId,omitempty"`
	AskedAt           time.Time `json:"askedAt"`
}

// DocumentSummary holds the summarizer collaborator's extraction.
type DocumentSummary struct {
	Parties      []string `json:"parties"`
	KeyDates     []string `json:"keyDates"`
	KeyAmounts   []string `json:"keyAmounts"`
	Duration     *string  `json:"duration"`
	MainPurpose  string   `json:"mainPurpose"`
	Jurisdiction *string  `json:"jurisdiction"`
}

// DocumentExplanation is a plain-language walkthrough of the whole document.
type DocumentExplanation struct {
	DocumentExplanation string   `json:"documentExplanation"`
	KeyProvisions       []string `json:"keyProvisions"`
	LegalImplications   []string `json:"legalImplications"`
	PracticalImpact     string   `json:"practicalImpact"`
	ClauseSummaries     []string `json:"clauseSummaries"`
}

// RiskCategory aggregates clauses of one type.
type RiskCategory struct {
	Category     string `json:"category"`
	Score        int    `json:"score"`
	Description  string `json:"description"`
	ClausesCount int    `json:"clausesCount"`
}

// DocumentAnalysis is the compiled result of the pipeline for one document.
type DocumentAnalysis struct {
	DocumentID       string               `json:"documentId"`
	Filename         string               `json:"filename"`
	DocumentType     DocumentType         `json:"documentType"`
	OverallRiskScore float64              `json:"overallRiskScore"`
	Summary          DocumentSummary      `json:"summary"`
	Explanation      DocumentExplanation  `json:"explanation"`
	Clauses          []LegalClause        `json:"clauses"`
	Assessment       RiskAssessmentResult `json:"assessment"`
	RiskCategories   []RiskCategory       `json:"riskCategories"`
	Recommendations  []string             `json:"recommendations"`
	RedFlags         []string             `json:"redFlags"`
	WordCount        int                  `json:"wordCount"`
	PageCount        int                  `json:"pageCount"`
	ProcessingTimeMs int64                `json:"processingTimeMs"`
	CompletedAt      time.Time            `json:"completedAt"`
	ExpertReview     *ExpertReview        `json:"expertReview,omitempty"`
}
