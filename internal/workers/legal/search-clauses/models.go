// internal/workers/legal/search-clauses/models.go
package searchclauses

import "legal-analyzer/internal/storage"

type Input struct {
	Query      string `json:"query"`
	ClauseType string `json:"clauseType,omitempty"`
	DocumentID string `json:"documentId,omitempty"`
	MinRisk    int    `json:"minRisk,omitempty"`
	Size       int    `json:"size,omitempty"`
}

type Output struct {
	Hits        []storage.ClauseHit `json:"hits"`
	TotalHits   int                 `json:"totalHits"`
	Took        int                 `json:"took"`
	DocumentIDs []string            `json:"documentIds"`
}
