// internal/workers/legal/analyze-document/models.go
package analyzedocument

import "legal-analyzer/internal/models"

// Input carries either the text itself or the blob key of a plain-text upload.
type Input struct {
	DocumentID string `json:"documentId"`
	Filename   string `json:"filename"`
	Text       string `json:"text,omitempty"`
	StorageKey string `json:"storageKey,omitempty"`
}

type Output struct {
	DocumentID    string              `json:"documentId"`
	Status        string              `json:"status"`
	DocumentType  models.DocumentType `json:"documentType"`
	OverallRisk   float64             `json:"overallRisk"`
	ClauseCount   int                 `json:"clauseCount"`
	HighRiskCount int                 `json:"highRiskCount"`
	RedFlags      []string            `json:"redFlags"`
}
