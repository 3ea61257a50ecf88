// internal/storage/index.go
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultClauseIndex = "legal-clauses"
	defaultSearchSize  = 20
	maxSearchSize      = 100
)

// ClauseIndexMapping is the index body used by EnsureIndex.
const ClauseIndexMapping = `{
  "mappings": {
    "properties": {
      "clause_id":        {"type": "keyword"},
      "document_id":      {"type": "keyword"},
      "clause_type":      {"type": "keyword"},
      "risk_score":       {"type": "integer"},
      "section_number":   {"type": "keyword"},
      "original_text":    {"type": "text"},
      "simplified_text":  {"type": "text"},
      "risk_explanation": {"type": "text"},
      "key_terms":        {"type": "keyword"}
    }
  }
}`

// IndexedClause is the document stored per clause.
type IndexedClause struct {
	ClauseID        string   `json:"clause_id"`
	DocumentID      string   `json:"document_id"`
	ClauseType      string   `json:"clause_type"`
	RiskScore       int      `json:"risk_score"`
	SectionNumber   string   `json:"section_number,omitempty"`
	OriginalText    string   `json:"original_text"`
	SimplifiedText  string   `json:"simplified_text"`
	RiskExplanation string   `json:"risk_explanation"`
	KeyTerms        []string `json:"key_terms"`
}

// SearchQuery filters clauses across every analyzed document.
type SearchQuery struct {
	Query      string            `json:"query"`
	ClauseType models.ClauseType `json:"clauseType,omitempty"`
	DocumentID string            `json:"documentId,omitempty"`
	MinRisk    int               `json:"minRisk,omitempty"`
	Size       int               `json:"size,omitempty"`
}

// ClauseHit is one search result.
type ClauseHit struct {
	IndexedClause
	Score float64 `json:"score"`
}

// SearchResult mirrors the useful part of an Elasticsearch search response.
type SearchResult struct {
	Hits      []ClauseHit `json:"hits"`
	TotalHits int         `json:"totalHits"`
	Took      int         `json:"took"`
}

// ClauseIndex writes analyzed clauses to Elasticsearch and searches them.
type ClauseIndex struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewClauseIndex(client *elasticsearch.Client, index string, log logger.Logger) *ClauseIndex {
	if index == "" {
		index = DefaultClauseIndex
	}
	return &ClauseIndex{
		client: client,
		index:  index,
		logger: log.With(map[string]interface{}{"component": "clause-index", "index": index}),
	}
}

func (c *ClauseIndex) Index() string {
	return c.index
}

// IndexClauses bulk-writes clauses keyed by clause ID, replacing earlier copies.
func (c *ClauseIndex) IndexClauses(ctx context.Context, documentID string, clauses []models.LegalClause) error {
	if len(clauses) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, cl := range clauses {
		meta := map[string]interface{}{
			"index": map[string]interface{}{"_index": c.index, "_id": cl.ClauseID},
		}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encode bulk meta: %w", err)
		}
		if err := enc.Encode(toIndexed(documentID, cl)); err != nil {
			return fmt.Errorf("encode clause %s: %w", cl.ClauseID, err)
		}
	}

	req := esapi.BulkRequest{
		Index:   c.index,
		Body:    &buf,
		Refresh: "false",
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("bulk index: %s", res.Status()))
	}

	var bulk struct {
		Errors bool `json:"errors"`
		Items  []map[string]struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
		} `json:"items"`
	}
	if err := json.NewDecoder(res.Body).Decode(&bulk); err != nil {
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("decode bulk response: %w", err))
	}
	if bulk.Errors {
		var failed []string
		for _, item := range bulk.Items {
			for _, r := range item {
				if r.Status >= 300 {
					failed = append(failed, r.ID)
				}
			}
		}
		return apperrors.NewSearchQueryFailedError(fmt.Errorf("bulk index rejected clauses: %s", strings.Join(failed, ",")))
	}

	c.logger.Debug("Clauses indexed", map[string]interface{}{
		"documentId": documentID,
		"count":      len(clauses),
	})
	return nil
}

// Search runs a full-text clause search with optional type, document and risk filters.
func (c *ClauseIndex) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	size := q.Size
	if size <= 0 {
		size = defaultSearchSize
	}
	if size > maxSearchSize {
		size = maxSearchSize
	}

	body, err := json.Marshal(buildClauseQuery(q))
	if err != nil {
		return nil, fmt.Errorf("encode search body: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{c.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}
	res, err := req.Do(ctx, c.client)
	if err != nil {
		return nil, apperrors.NewSearchQueryFailedError(err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("search: %s", res.Status()))
	}

	var raw struct {
		Took int `json:"took"`
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				Score  float64       `json:"_score"`
				Source IndexedClause `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&raw); err != nil {
		return nil, apperrors.NewSearchQueryFailedError(fmt.Errorf("decode search response: %w", err))
	}

	result := &SearchResult{
		Hits:      make([]ClauseHit, 0, len(raw.Hits.Hits)),
		TotalHits: raw.Hits.Total.Value,
		Took:      raw.Took,
	}
	for _, h := range raw.Hits.Hits {
		result.Hits = append(result.Hits, ClauseHit{IndexedClause: h.Source, Score: h.Score})
	}
	return result, nil
}

func buildClauseQuery(q SearchQuery) map[string]interface{} {
	must := []interface{}{}
	filter := []interface{}{}

	if text := strings.TrimSpace(q.Query); text != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  text,
				"fields": []string{"original_text^2", "simplified_text", "risk_explanation", "key_terms"},
				"type":   "best_fields",
			},
		})
	} else {
		must = append(must, map[string]interface{}{"match_all": map[string]interface{}{}})
	}

	if q.ClauseType != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"clause_type": string(q.ClauseType)},
		})
	}
	if q.DocumentID != "" {
		filter = append(filter, map[string]interface{}{
			"term": map[string]interface{}{"document_id": q.DocumentID},
		})
	}
	if q.MinRisk > 0 {
		filter = append(filter, map[string]interface{}{
			"range": map[string]interface{}{"risk_score": map[string]interface{}{"gte": q.MinRisk}},
		})
	}

	boolQuery := map[string]interface{}{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	return map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort": []interface{}{
			"_score",
			map[string]interface{}{"risk_score": "desc"},
		},
	}
}

func toIndexed(documentID string, cl models.LegalClause) IndexedClause {
	return IndexedClause{
		ClauseID:        cl.ClauseID,
		DocumentID:      documentID,
		ClauseType:      string(cl.ClauseType),
		RiskScore:       cl.RiskScore,
		SectionNumber:   cl.Section(),
		OriginalText:    cl.OriginalText,
		SimplifiedText:  cl.SimplifiedText,
		RiskExplanation: cl.RiskExplanation,
		KeyTerms:        cl.KeyTerms,
	}
}
