package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"legal-analyzer/internal/analysis/relevance"
	"legal-analyzer/internal/common/database"
	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/models"
	"legal-analyzer/internal/pipeline"
	"legal-analyzer/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeDocuments struct {
	mu        sync.Mutex
	submitted []string
	processed map[string]string
	enhanced  map[string]string
	experts   bool
	systemErr error
	statuses  map[string]models.ProcessingStatus
	analyses  map[string]models.DocumentAnalysis
	deleted   []string
	queryErr  error
}

func newFakeDocuments() *fakeDocuments {
	return &fakeDocuments{
		processed: map[string]string{},
		enhanced:  map[string]string{},
		statuses:  map[string]models.ProcessingStatus{},
		analyses:  map[string]models.DocumentAnalysis{},
	}
}

func (f *fakeDocuments) Submit(_ context.Context, id, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, id)
	f.statuses[id] = models.ProcessingStatus{DocumentID: id, Status: models.StatusQueued}
	return nil
}

func (f *fakeDocuments) Process(_ context.Context, id, _, text string) (*models.DocumentAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed[id] = text
	return &models.DocumentAnalysis{DocumentID: id}, nil
}

func (f *fakeDocuments) ProcessWithExperts(_ context.Context, id, _, text string) (*models.DocumentAnalysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enhanced[id] = text
	return &models.DocumentAnalysis{DocumentID: id}, nil
}

func (f *fakeDocuments) ExpertsAvailable() bool { return f.experts }

func (f *fakeDocuments) ExpertAnalysis(ctx context.Context, id string) (pipeline.EnhancedAnalysis, error) {
	a, err := f.Analysis(ctx, id)
	if err != nil {
		return pipeline.EnhancedAnalysis{}, err
	}
	out := pipeline.EnhancedAnalysis{DocumentAnalysis: a, SectionsAvailable: []string{}}
	if a.ExpertReview != nil {
		for section := range a.ExpertReview.Sections {
			out.SectionsAvailable = append(out.SectionsAvailable, section)
		}
		out.HasExpertReview = len(out.SectionsAvailable) > 0
	}
	return out, nil
}

func (f *fakeDocuments) SystemStatus(context.Context) (pipeline.SystemStatus, error) {
	if f.systemErr != nil {
		return pipeline.SystemStatus{}, f.systemErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return pipeline.SystemStatus{
		Core:             "operational",
		ExpertsEnabled:   f.experts,
		ExpertsAvailable: f.experts,
		Counts:           pipeline.StoreCounts{Documents: len(f.statuses), Analyses: len(f.analyses)},
	}, nil
}

func (f *fakeDocuments) Status(_ context.Context, id string) (models.ProcessingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.statuses[id]
	if !ok {
		return s, apperrors.NewDocumentNotFoundError(id)
	}
	return s, nil
}

func (f *fakeDocuments) Analysis(ctx context.Context, id string) (models.DocumentAnalysis, error) {
	if _, err := f.Status(ctx, id); err != nil {
		return models.DocumentAnalysis{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.analyses[id]
	if !ok {
		return a, apperrors.NewDocumentNotAnalyzedError(id)
	}
	return a, nil
}

func (f *fakeDocuments) Query(ctx context.Context, id, query string) (models.QueryResult, error) {
	if _, err := f.Analysis(ctx, id); err != nil {
		return models.QueryResult{}, err
	}
	if f.queryErr != nil {
		return models.QueryResult{}, f.queryErr
	}
	return models.QueryResult{DocumentID: id, Query: query, Answer: "Rent is due monthly.", Confidence: 0.8}, nil
}

func (f *fakeDocuments) QueryHistory(ctx context.Context, id string) ([]models.QueryResult, error) {
	if _, err := f.Status(ctx, id); err != nil {
		return nil, err
	}
	return []models.QueryResult{{Query: "When is rent due?", Confidence: 0.8}}, nil
}

func (f *fakeDocuments) QueryStats(ctx context.Context, id string) (relevance.QueryStats, error) {
	history, err := f.QueryHistory(ctx, id)
	if err != nil {
		return relevance.QueryStats{}, err
	}
	return relevance.QueryStatistics(history), nil
}

func (f *fakeDocuments) Suggestions(ctx context.Context, id string) ([]string, error) {
	a, err := f.Analysis(ctx, id)
	if err != nil {
		return nil, err
	}
	return relevance.SuggestQuestions(a.Clauses), nil
}

func (f *fakeDocuments) Reassess(ctx context.Context, id string) (*pipeline.RiskReport, error) {
	if _, err := f.Analysis(ctx, id); err != nil {
		return nil, err
	}
	return &pipeline.RiskReport{DocumentID: id}, nil
}

func (f *fakeDocuments) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.statuses, id)
	return nil
}

type fakeSearcher struct {
	got storage.SearchQuery
	err error
}

func (f *fakeSearcher) Search(_ context.Context, q storage.SearchQuery) (*storage.SearchResult, error) {
	f.got = q
	if f.err != nil {
		return nil, f.err
	}
	return &storage.SearchResult{TotalHits: 1, Hits: []storage.ClauseHit{{IndexedClause: storage.IndexedClause{ClauseID: "doc-1_0_aaaaaaaa"}}}}, nil
}

type fakeBlobs struct {
	keys map[string][]byte
	err  error
}

func (f *fakeBlobs) Put(_ context.Context, id, filename string, body []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := storage.Key(id, filename)
	f.keys[key] = body
	return key, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestServer(t *testing.T, deps Deps) (*Server, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	s := NewServer(deps, logger.NewTestLogger(t))
	s.newID = func() string { return "doc-1" }
	t.Cleanup(s.Close)
	return s, s.Router()
}

func do(t *testing.T, h http.Handler, method, path string, body []byte, contentType string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &env)
	}
	return rec, env
}

func multipartBody(t *testing.T, filename string, content []byte, fields map[string]string) ([]byte, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return buf.Bytes(), w.FormDataContentType()
}

// ==========================
// Upload
// ==========================

func TestUpload_JSON(t *testing.T) {
	docs := newFakeDocuments()
	blobs := &fakeBlobs{keys: map[string][]byte{}}
	s, h := newTestServer(t, Deps{Documents: docs, Blobs: blobs})

	body := []byte(`{"filename":"lease.pdf","text":"1. Rent. The tenant shall pay rent monthly."}`)
	rec, env := do(t, h, http.MethodPost, "/documents", body, "application/json")

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, env.Success)
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "doc-1", resp.DocumentID)
	assert.Equal(t, models.StatusQueued, resp.Status)
	assert.Equal(t, "documents/doc-1/lease.pdf", resp.StorageKey)

	s.Wait()
	assert.Equal(t, []string{"doc-1"}, docs.submitted)
	assert.Equal(t, "1. Rent. The tenant shall pay rent monthly.", docs.processed["doc-1"])
}

func TestUpload_MultipartText(t *testing.T) {
	docs := newFakeDocuments()
	s, h := newTestServer(t, Deps{Documents: docs})

	// Latin-1 encoded "Café rent"
	body, ct := multipartBody(t, "lease.txt", []byte{'C', 'a', 'f', 0xe9, ' ', 'r', 'e', 'n', 't'}, nil)
	rec, _ := do(t, h, http.MethodPost, "/documents", body, ct)

	require.Equal(t, http.StatusAccepted, rec.Code)
	s.Wait()
	assert.Equal(t, "Café rent", docs.processed["doc-1"])
}

func TestUpload_Rejections(t *testing.T) {
	pdfBody, pdfCT := multipartBody(t, "lease.pdf", []byte("%PDF-1.7"), nil)
	exeBody, exeCT := multipartBody(t, "setup.exe", []byte("MZ"), nil)

	tests := []struct {
		name        string
		body        []byte
		contentType string
		wantStatus  int
		wantCode    string
	}{
		{"binary without text", pdfBody, pdfCT, http.StatusBadRequest, "INVALID_REQUEST"},
		{"unsupported type", exeBody, exeCT, http.StatusUnsupportedMediaType, "UNSUPPORTED_FILE_TYPE"},
		{"missing filename", []byte(`{"text":"hello"}`), "application/json", http.StatusBadRequest, "INVALID_REQUEST"},
		{"blank text", []byte(`{"filename":"a.txt","text":"   "}`), "application/json", http.StatusBadRequest, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := newFakeDocuments()
			_, h := newTestServer(t, Deps{Documents: docs})

			rec, env := do(t, h, http.MethodPost, "/documents", tt.body, tt.contentType)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantCode, env.Error.Code)
			assert.Empty(t, docs.submitted)
		})
	}
}

func TestUpload_Enhanced(t *testing.T) {
	body := []byte(`{"filename":"lease.txt","text":"1. Rent. The tenant shall pay rent monthly."}`)

	tests := []struct {
		name         string
		path         string
		available    bool
		wantExperts  bool
		wantEnhanced bool
	}{
		{"experts by default", "/documents/enhanced", true, true, true},
		{"explicitly disabled", "/documents/enhanced?experts=false", true, false, false},
		{"panel unavailable", "/documents/enhanced", false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := newFakeDocuments()
			docs.experts = tt.available
			s, h := newTestServer(t, Deps{Documents: docs})

			rec, env := do(t, h, http.MethodPost, tt.path, body, "application/json")

			require.Equal(t, http.StatusAccepted, rec.Code)
			var resp UploadResponse
			require.NoError(t, json.Unmarshal(env.Data, &resp))
			assert.Equal(t, "doc-1", resp.DocumentID)
			assert.Equal(t, tt.wantExperts, resp.ExpertReview)

			s.Wait()
			assert.Equal(t, []string{"doc-1"}, docs.submitted)
			if tt.wantEnhanced {
				assert.Contains(t, docs.enhanced, "doc-1")
				assert.NotContains(t, docs.processed, "doc-1")
			} else {
				assert.Contains(t, docs.processed, "doc-1")
				assert.NotContains(t, docs.enhanced, "doc-1")
			}
		})
	}
}

func TestUpload_EnhancedRejectsBadFlag(t *testing.T) {
	docs := newFakeDocuments()
	_, h := newTestServer(t, Deps{Documents: docs})

	body := []byte(`{"filename":"lease.txt","text":"Rent is due monthly."}`)
	rec, env := do(t, h, http.MethodPost, "/documents/enhanced?experts=maybe", body, "application/json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)
	assert.Empty(t, docs.submitted)
}

func TestUpload_BlobFailure(t *testing.T) {
	docs := newFakeDocuments()
	blobs := &fakeBlobs{err: apperrors.NewBlobStorageFailedError("put", errors.New("AccessDenied"))}
	_, h := newTestServer(t, Deps{Documents: docs, Blobs: blobs})

	rec, env := do(t, h, http.MethodPost, "/documents", []byte(`{"filename":"a.txt","text":"hello"}`), "application/json")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "BLOB_STORAGE_FAILED", env.Error.Code)
	assert.Empty(t, docs.submitted)
}

// ==========================
// Document lookups
// ==========================

func TestDocumentEndpoints_Lifecycle(t *testing.T) {
	docs := newFakeDocuments()
	_, h := newTestServer(t, Deps{Documents: docs})

	rec, env := do(t, h, http.MethodGet, "/documents/missing/status", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "DOCUMENT_NOT_FOUND", env.Error.Code)

	docs.statuses["doc-1"] = models.ProcessingStatus{DocumentID: "doc-1", Status: models.StatusProcessing, Progress: 40}

	rec, env = do(t, h, http.MethodGet, "/documents/doc-1/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var status models.ProcessingStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.Equal(t, 40, status.Progress)

	rec, env = do(t, h, http.MethodGet, "/documents/doc-1/analysis", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DOCUMENT_NOT_ANALYZED", env.Error.Code)

	rec, _ = do(t, h, http.MethodPost, "/documents/doc-1/query", []byte(`{"query":"When is rent due?"}`), "application/json")
	assert.Equal(t, http.StatusConflict, rec.Code)

	docs.analyses["doc-1"] = models.DocumentAnalysis{
		DocumentID: "doc-1",
		Clauses:    []models.LegalClause{{ClauseID: "c1", ClauseType: models.ClauseTypePaymentTerms, RiskScore: 8}},
	}

	rec, _ = do(t, h, http.MethodGet, "/documents/doc-1/analysis", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodPost, "/documents/doc-1/query", []byte(`{"query":"When is rent due?"}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code)
	var result models.QueryResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, "Rent is due monthly.", result.Answer)

	rec, env = do(t, h, http.MethodGet, "/documents/doc-1/suggestions", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, string(env.Data), "questions")

	rec, _ = do(t, h, http.MethodGet, "/documents/doc-1/queries", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, h, http.MethodGet, "/documents/doc-1/queries/stats", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats relevance.QueryStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))

	rec, _ = do(t, h, http.MethodGet, "/documents/doc-1/risk", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/documents/doc-1", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []string{"doc-1"}, docs.deleted)

	rec, _ = do(t, h, http.MethodDelete, "/documents/doc-1", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// ==========================
// Expert review
// ==========================

func TestEnhancedAnalysis(t *testing.T) {
	docs := newFakeDocuments()
	docs.statuses["doc-1"] = models.ProcessingStatus{DocumentID: "doc-1", Status: models.StatusCompleted}
	docs.analyses["doc-1"] = models.DocumentAnalysis{
		DocumentID: "doc-1",
		ExpertReview: &models.ExpertReview{
			Enhanced: true,
			Sections: map[string]string{"negotiation_guidance": "Push back on the late fee."},
		},
	}
	docs.statuses["doc-2"] = models.ProcessingStatus{DocumentID: "doc-2", Status: models.StatusProcessing}
	_, h := newTestServer(t, Deps{Documents: docs})

	rec, env := do(t, h, http.MethodGet, "/documents/doc-1/analysis/enhanced", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got pipeline.EnhancedAnalysis
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.True(t, got.HasExpertReview)
	assert.Equal(t, []string{"negotiation_guidance"}, got.SectionsAvailable)
	require.NotNil(t, got.ExpertReview)
	assert.Equal(t, "Push back on the late fee.", got.ExpertReview.Sections["negotiation_guidance"])

	rec, env = do(t, h, http.MethodGet, "/documents/doc-2/analysis/enhanced", nil, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "DOCUMENT_NOT_ANALYZED", env.Error.Code)

	rec, _ = do(t, h, http.MethodGet, "/documents/nope/analysis/enhanced", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSystemStatus(t *testing.T) {
	docs := newFakeDocuments()
	docs.experts = true
	docs.statuses["doc-1"] = models.ProcessingStatus{DocumentID: "doc-1"}
	_, h := newTestServer(t, Deps{Documents: docs})

	rec, env := do(t, h, http.MethodGet, "/system/status", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	var got pipeline.SystemStatus
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "operational", got.Core)
	assert.True(t, got.ExpertsAvailable)
	assert.Equal(t, 1, got.Counts.Documents)
}

func TestSystemStatus_StoreDown(t *testing.T) {
	docs := newFakeDocuments()
	docs.systemErr = apperrors.NewStoreUnavailableError(errors.New("connection refused"))
	_, h := newTestServer(t, Deps{Documents: docs})

	rec, env := do(t, h, http.MethodGet, "/system/status", nil, "")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, env.Success)
}

func TestQuery_Validation(t *testing.T) {
	docs := newFakeDocuments()
	docs.statuses["doc-1"] = models.ProcessingStatus{DocumentID: "doc-1", Status: models.StatusCompleted}
	docs.analyses["doc-1"] = models.DocumentAnalysis{DocumentID: "doc-1", Clauses: []models.LegalClause{{ClauseID: "c1"}}}
	_, h := newTestServer(t, Deps{Documents: docs})

	rec, env := do(t, h, http.MethodPost, "/documents/doc-1/query", []byte(`{}`), "application/json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_REQUEST", env.Error.Code)

	docs.queryErr = errors.New("boom")
	rec, env = do(t, h, http.MethodPost, "/documents/doc-1/query", []byte(`{"query":"x"}`), "application/json")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", env.Error.Code)
}

// ==========================
// Clause search
// ==========================

func TestSearchClauses(t *testing.T) {
	searcher := &fakeSearcher{}
	_, h := newTestServer(t, Deps{Documents: newFakeDocuments(), Search: searcher})

	rec, env := do(t, h, http.MethodGet, "/clauses/search?q=late+fee&type=Payment+Terms&minRisk=7&size=5", nil, "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, storage.SearchQuery{
		Query:      "late fee",
		ClauseType: models.ClauseTypePaymentTerms,
		MinRisk:    7,
		Size:       5,
	}, searcher.got)
	var result storage.SearchResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, 1, result.TotalHits)
}

func TestSearchClauses_Errors(t *testing.T) {
	_, h := newTestServer(t, Deps{Documents: newFakeDocuments(), Search: &fakeSearcher{}})
	rec, _ := do(t, h, http.MethodGet, "/clauses/search?minRisk=high", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, h = newTestServer(t, Deps{Documents: newFakeDocuments()})
	rec, env := do(t, h, http.MethodGet, "/clauses/search?q=rent", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "SEARCH_QUERY_FAILED", env.Error.Code)
}

// ==========================
// Health and readiness
// ==========================

func TestHealthAndReady(t *testing.T) {
	_, h := newTestServer(t, Deps{
		Documents: newFakeDocuments(),
		Readiness: map[string]database.Pinger{
			"redis":    database.PingerFunc(func(context.Context) error { return nil }),
			"postgres": database.PingerFunc(func(context.Context) error { return errors.New("connection refused") }),
		},
	})

	rec, _ := do(t, h, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body struct {
		Status       string            `json:"status"`
		Dependencies map[string]string `json:"dependencies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_ready", body.Status)
	assert.Equal(t, "ok", body.Dependencies["redis"])
	assert.Equal(t, "connection refused", body.Dependencies["postgres"])

	rec, _ = do(t, h, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewDocumentNotFoundError("x"), http.StatusNotFound},
		{apperrors.NewDocumentNotAnalyzedError("x"), http.StatusConflict},
		{apperrors.NewFileTooLargeError(60, 50), http.StatusRequestEntityTooLarge},
		{apperrors.NewLLMTimeoutError("answer"), http.StatusGatewayTimeout},
		{apperrors.NewStoreUnavailableError(errors.New("down")), http.StatusServiceUnavailable},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}
