// test/e2e/e2e_test.go
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-analyzer/internal/api"
	"legal-analyzer/internal/common/config"
	"legal-analyzer/internal/common/database"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/genai"
	"legal-analyzer/internal/models"
	"legal-analyzer/internal/pipeline"
	"legal-analyzer/internal/storage"
)

const leaseText = `RESIDENTIAL LEASE AGREEMENT

1. Rent. The Tenant shall pay monthly rent of $1,500 on the first day of each month. Late payment of rent will incur a penalty fee of $100 per day until the full amount has been paid.

2. Liability. The Tenant shall be liable for all damages to the premises and shall indemnify the Landlord against any and all claims, without limitation, arising from the use of the property.

3. Termination. The Landlord may terminate this agreement at any time by providing seven days written notice to the Tenant, and the security deposit shall be forfeited upon such termination.

4. Governing Law. This agreement shall be governed by the laws of the State of California and any dispute shall be resolved exclusively in the courts of San Francisco County.`

// ==========================
// Fake collaborators
// ==========================

// llmGateway answers the generate endpoint by recognising which prompt it was sent.
func llmGateway(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode generate request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": respondTo(req.Prompt)})
	}))
	t.Cleanup(server.Close)
	return server
}

func respondTo(prompt string) string {
	switch {
	case strings.HasPrefix(prompt, "Analyze this legal clause"):
		return clauseResponse(section(prompt, "CLAUSE TEXT:", "INSTRUCTIONS:"))
	case strings.HasPrefix(prompt, "Assess the risk level"):
		clause := section(prompt, "CLAUSE TEXT:", "Respond ONLY")
		score := 5
		if strings.Contains(clause, "liable") {
			score = 9
		}
		return mustJSON(map[string]interface{}{
			"risk_score":       score,
			"risk_explanation": "Reviewed exposure for this provision.",
			"red_flags":        []string{},
			"recommendations":  []string{"Negotiate a liability cap"},
		})
	case strings.HasPrefix(prompt, "Classify this legal document"):
		return `{"document_type": "rental_agreement", "confidence": 0.93, "reasoning": "Residential lease"}`
	case strings.HasPrefix(prompt, "Extract key information"):
		return `{"parties": ["Landlord", "Tenant"], "key_dates": [], "key_amounts": ["$1,500"], "duration": null, "main_purpose": "Residential lease", "jurisdiction": "California"}`
	case strings.HasPrefix(prompt, "Provide a comprehensive"):
		return `{"document_explanation": "A residential lease.", "key_provisions": ["Monthly rent"], "legal_implications": [], "practical_impact": "Tenant carries most risk.", "clause_summaries": []}`
	case strings.HasPrefix(prompt, "Answer this question"):
		return `{"answer": "The Landlord may terminate with seven days notice.", "confidence": 0.85, "sources_used": ["Section 3"]}`
	}
	return `{}`
}

func clauseResponse(clause string) string {
	clauseType, score := "other", 3
	switch {
	case strings.Contains(clause, "liable"):
		clauseType, score = "liability", 8
	case strings.Contains(clause, "terminate"):
		clauseType, score = "termination", 7
	case strings.Contains(clause, "rent"):
		clauseType, score = "payment_terms", 5
	case strings.Contains(clause, "governed by"):
		clauseType, score = "governing_law", 2
	}
	return "```json\n" + mustJSON(map[string]interface{}{
		"clause_type":      clauseType,
		"obligations":      []string{"Tenant obligations apply"},
		"risk_score":       score,
		"risk_explanation": "Assessed " + clauseType + " exposure.",
		"simplified_text":  "Plain summary of the " + clauseType + " clause.",
		"concerns":         []string{},
		"key_terms":        []string{clauseType},
		"recommendations":  []string{"Review " + clauseType + " terms"},
	}) + "\n```"
}

func section(prompt, start, end string) string {
	i := strings.Index(prompt, start)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(start):]
	if j := strings.Index(rest, end); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

func mustJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// clauseIndexServer records bulk writes and serves a canned search response.
type clauseIndexServer struct {
	mu       sync.Mutex
	bulkDocs []map[string]interface{}
}

func (s *clauseIndexServer) indexed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bulkDocs)
}

func (s *clauseIndexServer) start(t *testing.T) *elasticsearch.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			body, _ := io.ReadAll(r.Body)
			lines := bytes.Split(bytes.TrimSpace(body), []byte("\n"))
			s.mu.Lock()
			for i := 1; i < len(lines); i += 2 {
				var doc map[string]interface{}
				if err := json.Unmarshal(lines[i], &doc); err == nil {
					s.bulkDocs = append(s.bulkDocs, doc)
				}
			}
			s.mu.Unlock()
			_, _ = w.Write([]byte(`{"took": 3, "errors": false, "items": []}`))
		case strings.HasSuffix(r.URL.Path, "/_search"):
			s.mu.Lock()
			hits := make([]map[string]interface{}, 0, len(s.bulkDocs))
			for _, doc := range s.bulkDocs {
				if doc["clause_type"] == "liability" {
					hits = append(hits, map[string]interface{}{"_score": 2.1, "_source": doc})
				}
			}
			s.mu.Unlock()
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"took": 2,
				"hits": map[string]interface{}{
					"total": map[string]interface{}{"value": len(hits)},
					"hits":  hits,
				},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{server.URL}})
	require.NoError(t, err)
	return client
}

// ==========================
// Harness
// ==========================

type harness struct {
	handler http.Handler
	index   *clauseIndexServer
	sqlMock sqlmock.Sqlmock
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewTestLogger(t)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	mock.ExpectExec("INSERT INTO document_analyses").WillReturnResult(sqlmock.NewResult(0, 1))

	idx := &clauseIndexServer{}
	clauseIndex := storage.NewClauseIndex(idx.start(t), "", log)

	gateway := llmGateway(t)
	provider, err := genai.NewProvider(context.Background(), config.GenAIConfig{
		Provider:   "gateway",
		BaseURL:    gateway.URL,
		Timeout:    5000,
		MaxRetries: 1,
	}, log)
	require.NoError(t, err)
	llm := genai.NewClient(provider, log)

	analyzer, err := pipeline.NewAnalyzer(
		pipeline.NewRedisStore(rdb, time.Hour),
		pipeline.Collaborators{
			ClauseAnalyzer: llm,
			RiskReviewer:   llm,
			QueryAnswerer:  llm,
			Summarizer:     llm,
			Classifier:     llm,
			Explainer:      llm,
		},
		pipeline.Options{
			BatchSize:          5,
			MaxCandidates:      20,
			EnhancementEnabled: true,
			Archive:            storage.NewArchive(db, log),
			Index:              clauseIndex,
		},
		log,
	)
	require.NoError(t, err)

	server := api.NewServer(api.Deps{
		Documents: analyzer,
		Search:    clauseIndex,
		Readiness: map[string]database.Pinger{
			"redis": database.PingerFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
	}, log)
	t.Cleanup(server.Close)

	return &harness{handler: server.Router(), index: idx, sqlMock: mock}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code string `json:"code"`
	} `json:"error"`
}

func (h *harness) call(t *testing.T, method, path string, body interface{}) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec.Code, env
}

// status polls without testing helpers; it runs inside Eventually's goroutine.
func (h *harness) status(base string) models.ProcessingStatus {
	req := httptest.NewRequest(http.MethodGet, base+"/status", nil)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	var env envelope
	var status models.ProcessingStatus
	if json.Unmarshal(rec.Body.Bytes(), &env) == nil && len(env.Data) > 0 {
		_ = json.Unmarshal(env.Data, &status)
	}
	return status
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

// ==========================
// Full flow
// ==========================

func TestDocumentLifecycle(t *testing.T) {
	h := newHarness(t)

	code, env := h.call(t, http.MethodPost, "/documents", api.UploadRequest{Filename: "lease.txt", Text: leaseText})
	require.Equal(t, http.StatusAccepted, code)
	var upload api.UploadResponse
	decode(t, env, &upload)
	require.NotEmpty(t, upload.DocumentID)
	base := "/documents/" + upload.DocumentID

	var status models.ProcessingStatus
	require.Eventually(t, func() bool {
		status = h.status(base)
		return status.Status == models.StatusCompleted || status.Status == models.StatusFailed
	}, 10*time.Second, 20*time.Millisecond)
	require.Equal(t, models.StatusCompleted, status.Status, status.Error)
	assert.Equal(t, 100, status.Progress)

	// analysis
	code, env = h.call(t, http.MethodGet, base+"/analysis", nil)
	require.Equal(t, http.StatusOK, code)
	var analysis models.DocumentAnalysis
	decode(t, env, &analysis)

	assert.Equal(t, models.DocumentTypeRentalAgreement, analysis.DocumentType)
	require.NotEmpty(t, analysis.Clauses)
	assert.Equal(t, models.ClauseTypeLiability, analysis.Clauses[0].ClauseType)
	for i := 1; i < len(analysis.Clauses); i++ {
		assert.GreaterOrEqual(t, analysis.Clauses[i-1].RiskScore, analysis.Clauses[i].RiskScore)
	}
	assert.GreaterOrEqual(t, analysis.OverallRiskScore, 1.0)
	assert.LessOrEqual(t, analysis.OverallRiskScore, 10.0)
	assert.NotEmpty(t, analysis.Assessment.HighRiskClauseIDs)
	assert.NotEmpty(t, analysis.Recommendations)
	assert.LessOrEqual(t, len(analysis.Recommendations), 10)
	assert.LessOrEqual(t, len(analysis.RedFlags), 5)
	for _, c := range analysis.Clauses {
		assert.True(t, strings.HasPrefix(c.ClauseID, upload.DocumentID+"_"), c.ClauseID)
	}

	// archive and index are written after completion
	require.Eventually(t, func() bool {
		return h.index.indexed() == len(analysis.Clauses) && h.sqlMock.ExpectationsWereMet() == nil
	}, 5*time.Second, 20*time.Millisecond)

	// query
	code, env = h.call(t, http.MethodPost, base+"/query", api.QueryRequest{Query: "Can the landlord terminate early?"})
	require.Equal(t, http.StatusOK, code)
	var answer models.QueryResult
	decode(t, env, &answer)
	assert.Equal(t, "The Landlord may terminate with seven days notice.", answer.Answer)
	assert.InDelta(t, 0.85, answer.Confidence, 0.001)
	assert.LessOrEqual(t, len(answer.RelevantClauseIDs), 5)

	code, env = h.call(t, http.MethodGet, base+"/queries", nil)
	require.Equal(t, http.StatusOK, code)
	var history []models.QueryResult
	decode(t, env, &history)
	require.Len(t, history, 1)

	// suggestions and reassessment
	code, env = h.call(t, http.MethodGet, base+"/suggestions", nil)
	require.Equal(t, http.StatusOK, code)
	var suggestions struct {
		Questions []string `json:"questions"`
	}
	decode(t, env, &suggestions)
	assert.NotEmpty(t, suggestions.Questions)

	code, env = h.call(t, http.MethodGet, base+"/risk", nil)
	require.Equal(t, http.StatusOK, code)
	var report pipeline.RiskReport
	decode(t, env, &report)
	assert.Equal(t, analysis.Assessment.OverallRisk, report.Assessment.OverallRisk)

	// cross-document search
	code, env = h.call(t, http.MethodGet, "/clauses/search?q=liable&type=liability", nil)
	require.Equal(t, http.StatusOK, code)
	var result storage.SearchResult
	decode(t, env, &result)
	require.NotEmpty(t, result.Hits)
	assert.Equal(t, upload.DocumentID, result.Hits[0].DocumentID)

	// delete
	code, _ = h.call(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, code)
	code, env = h.call(t, http.MethodGet, base+"/status", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", env.Error.Code)
}

func TestQueryBeforeAnalysis(t *testing.T) {
	h := newHarness(t)

	code, env := h.call(t, http.MethodPost, "/documents/unknown/query", api.QueryRequest{Query: "What is the rent?"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
}

func TestReadiness(t *testing.T) {
	h := newHarness(t)

	code, _ := h.call(t, http.MethodGet, "/ready", nil)
	assert.Equal(t, http.StatusOK, code)
}
