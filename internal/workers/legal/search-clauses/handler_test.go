package searchclauses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/storage"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

const searchResponse = `{
	"took": 5,
	"hits": {
		"total": {"value": 3},
		"hits": [
			{"_score": 3.1, "_source": {"clause_id": "doc-1_0_aaaaaaaa", "document_id": "doc-1", "clause_type": "liability", "risk_score": 9}},
			{"_score": 2.4, "_source": {"clause_id": "doc-2_3_bbbbbbbb", "document_id": "doc-2", "clause_type": "liability", "risk_score": 8}},
			{"_score": 1.2, "_source": {"clause_id": "doc-1_4_cccccccc", "document_id": "doc-1", "clause_type": "liability", "risk_score": 7}}
		]
	}
}`

func setupIndex(t *testing.T, status int, body string, captured *map[string]interface{}) *storage.ClauseIndex {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		if captured != nil {
			_ = json.NewDecoder(r.Body).Decode(captured)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return storage.NewClauseIndex(client, "legal-clauses", logger.NewTestLogger(t))
}

func createTestConfig() *Config {
	return &Config{Timeout: 5 * time.Second}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_Success(t *testing.T) {
	var body map[string]interface{}
	index := setupIndex(t, http.StatusOK, searchResponse, &body)
	handler := NewHandler(createTestConfig(), index, logger.NewTestLogger(t))

	output, err := handler.Execute(context.Background(), &Input{
		Query:      "liability cap",
		ClauseType: "liability",
		MinRisk:    7,
	})

	require.NoError(t, err)
	assert.Equal(t, 3, output.TotalHits)
	assert.Len(t, output.Hits, 3)
	assert.Equal(t, []string{"doc-1", "doc-2"}, output.DocumentIDs)

	filters := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["filter"].([]interface{})
	assert.Len(t, filters, 2)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_Errors(t *testing.T) {
	tests := []struct {
		name          string
		input         *Input
		status        int
		expectedCode  string
		expectedRetry int32
	}{
		{
			name:         "risk filter out of range",
			input:        &Input{Query: "x", MinRisk: 11},
			status:       http.StatusOK,
			expectedCode: "INVALID_RISK_FILTER",
		},
		{
			name:          "index failure",
			input:         &Input{Query: "x"},
			status:        http.StatusInternalServerError,
			expectedCode:  "SEARCH_QUERY_FAILED",
			expectedRetry: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := setupIndex(t, tt.status, `{"error":"unavailable"}`, nil)
			handler := NewHandler(createTestConfig(), index, logger.NewTestLogger(t))

			_, err := handler.Execute(context.Background(), tt.input)

			require.Error(t, err)
			assert.Equal(t, tt.expectedCode, handler.mapErrorToCode(err))
			assert.Equal(t, tt.expectedRetry, handler.getRetryCount(err))
		})
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	handler := NewHandler(createTestConfig(), nil, logger.NewNoOpLogger())

	assert.Equal(t, "SEARCH_TIMEOUT", handler.mapErrorToCode(ErrSearchTimeout))
	assert.Equal(t, int32(2), handler.getRetryCount(ErrSearchTimeout))
	assert.Equal(t, "UNKNOWN_ERROR", handler.mapErrorToCode(errors.New("boom")))
	assert.Equal(t, int32(0), handler.getRetryCount(errors.New("boom")))
}
