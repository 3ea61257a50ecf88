// internal/workers/legal/answer-query/models.go
package answerquery

type Input struct {
	DocumentID string `json:"documentId"`
	Query      string `json:"query"`
}

type Output struct {
	DocumentID        string   `json:"documentId"`
	Query             string   `json:"query"`
	Answer            string   `json:"answer"`
	Confidence        float64  `json:"confidence"`
	RelevantClauseIDs []string `json:"relevantClauseIds"`
	Sources           []string `json:"sources"`
	LowConfidence     bool     `json:"lowConfidence"`
}

// Answers below this confidence are flagged for human review.
const lowConfidenceThreshold = 0.5
