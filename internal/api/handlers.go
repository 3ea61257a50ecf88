// internal/api/handlers.go
package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"legal-analyzer/internal/analysis/textproc"
	"legal-analyzer/internal/common/database"
	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/models"
	"legal-analyzer/internal/storage"

	"github.com/gin-gonic/gin"
)

// UploadRequest is the JSON form of POST /documents. Text carries content that
// was extracted before upload.
type UploadRequest struct {
	Filename string `json:"filename" binding:"required"`
	Text     string `json:"text"`
}

// UploadResponse is returned with 202 Accepted.
type UploadResponse struct {
	DocumentID string   `json:"documentId"`
	Status     string   `json:"status"`
	StorageKey string   `json:"storageKey,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	// ExpertReview is set on /documents/enhanced uploads that will be
	// reviewed by the expert panel.
	ExpertReview bool `json:"expertReview,omitempty"`
}

// QueryRequest is the body of POST /documents/:id/query.
type QueryRequest struct {
	Query string `json:"query" binding:"required"`
}

type upload struct {
	filename string
	text     string
	raw      []byte
	warnings []string
}

// POST /documents
func (s *Server) uploadDocument(c *gin.Context) {
	s.acceptUpload(c, false)
}

// POST /documents/enhanced?experts=true
func (s *Server) uploadEnhanced(c *gin.Context) {
	experts := true
	if raw := c.Query("experts"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(c, apperrors.NewInvalidRequestError("experts must be a boolean"))
			return
		}
		experts = v
	}
	s.acceptUpload(c, experts)
}

func (s *Server) acceptUpload(c *gin.Context, experts bool) {
	var (
		in  *upload
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in, err = readMultipart(c)
	} else {
		in, err = readJSON(c)
	}
	if err != nil {
		s.writeError(c, err)
		return
	}

	ctx := c.Request.Context()
	documentID := s.newID()
	resp := UploadResponse{DocumentID: documentID, Status: models.StatusQueued, Warnings: in.warnings}

	if s.deps.Blobs != nil {
		key, err := s.deps.Blobs.Put(ctx, documentID, in.filename, in.raw)
		if err != nil {
			s.writeError(c, err)
			return
		}
		resp.StorageKey = key
	}

	if err := s.deps.Documents.Submit(ctx, documentID, in.filename); err != nil {
		s.writeError(c, err)
		return
	}
	resp.ExpertReview = experts && s.deps.Documents.ExpertsAvailable()
	s.processAsync(documentID, in.filename, in.text, experts)

	ok(c, http.StatusAccepted, resp)
}

func readJSON(c *gin.Context) (*upload, error) {
	var req UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}
	warnings, err := textproc.ValidateUpload(req.Filename, int64(len(req.Text)))
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, apperrors.NewInvalidRequestError("text is required")
	}
	return &upload{filename: req.Filename, text: req.Text, raw: []byte(req.Text), warnings: warnings}, nil
}

// readMultipart accepts a "file" part. Plain-text files are decoded here;
// other types need their extracted content in the "text" field.
func readMultipart(c *gin.Context) (*upload, error) {
	header, err := c.FormFile("file")
	if err != nil {
		return nil, apperrors.NewInvalidRequestError("file is required")
	}
	warnings, err := textproc.ValidateUpload(header.Filename, header.Size)
	if err != nil {
		return nil, err
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}
	defer f.Close()

	raw, err := io.ReadAll(io.LimitReader(f, textproc.MaxUploadBytes+1))
	if err != nil {
		return nil, apperrors.NewInvalidRequestError(err.Error())
	}

	text := c.PostForm("text")
	if strings.EqualFold(filepath.Ext(header.Filename), ".txt") {
		decoded, err := textproc.DecodeText(raw)
		if err != nil {
			return nil, apperrors.NewInvalidRequestError(err.Error())
		}
		text = decoded
	}
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewInvalidRequestError("extracted text is required for " + filepath.Ext(header.Filename) + " uploads")
	}
	return &upload{filename: header.Filename, text: text, raw: raw, warnings: warnings}, nil
}

// GET /documents/:id/status
func (s *Server) getStatus(c *gin.Context) {
	status, err := s.deps.Documents.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, status)
}

// GET /documents/:id/analysis
func (s *Server) getAnalysis(c *gin.Context) {
	analysis, err := s.deps.Documents.Analysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, analysis)
}

// GET /documents/:id/analysis/enhanced
func (s *Server) getEnhancedAnalysis(c *gin.Context) {
	analysis, err := s.deps.Documents.ExpertAnalysis(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, analysis)
}

// POST /documents/:id/query
func (s *Server) queryDocument(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.writeError(c, apperrors.NewInvalidRequestError(err.Error()))
		return
	}

	result, err := s.deps.Documents.Query(c.Request.Context(), c.Param("id"), req.Query)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// GET /documents/:id/queries
func (s *Server) getQueryHistory(c *gin.Context) {
	history, err := s.deps.Documents.QueryHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, history)
}

// GET /documents/:id/queries/stats
func (s *Server) getQueryStats(c *gin.Context) {
	stats, err := s.deps.Documents.QueryStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, stats)
}

// GET /documents/:id/suggestions
func (s *Server) getSuggestions(c *gin.Context) {
	questions, err := s.deps.Documents.Suggestions(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"questions": questions})
}

// GET /documents/:id/risk
func (s *Server) reassess(c *gin.Context) {
	report, err := s.deps.Documents.Reassess(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, report)
}

// DELETE /documents/:id
func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	if _, err := s.deps.Documents.Status(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	if err := s.deps.Documents.Delete(c.Request.Context(), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /clauses/search?q=&type=&documentId=&minRisk=&size=
func (s *Server) searchClauses(c *gin.Context) {
	if s.deps.Search == nil {
		s.writeError(c, apperrors.NewSearchQueryFailedError(errors.New("clause index is not configured")))
		return
	}

	q := storage.SearchQuery{
		Query:      c.Query("q"),
		DocumentID: c.Query("documentId"),
	}
	if t := c.Query("type"); t != "" {
		q.ClauseType = models.ParseClauseType(t)
	}
	var err error
	if q.MinRisk, err = intParam(c, "minRisk"); err != nil {
		s.writeError(c, err)
		return
	}
	if q.Size, err = intParam(c, "size"); err != nil {
		s.writeError(c, err)
		return
	}

	result, err := s.deps.Search.Search(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, result)
}

func intParam(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.NewInvalidRequestError(name + " must be a non-negative integer")
	}
	return n, nil
}

// GET /system/status
func (s *Server) systemStatus(c *gin.Context) {
	status, err := s.deps.Documents.SystemStatus(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	ok(c, http.StatusOK, status)
}

// GET /health
func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// GET /ready
func (s *Server) ready(c *gin.Context) {
	deps, ready := database.CheckAll(c.Request.Context(), readinessTimeout, s.deps.Readiness)
	status := http.StatusOK
	state := "ready"
	if !ready {
		status = http.StatusServiceUnavailable
		state = "not_ready"
	}
	c.JSON(status, gin.H{"status": state, "dependencies": deps})
}
