// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"legal-analyzer/internal/analysis/relevance"
	"legal-analyzer/internal/common/database"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/models"
	"legal-analyzer/internal/pipeline"
	"legal-analyzer/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readinessTimeout = 3 * time.Second
	shutdownTimeout  = 10 * time.Second
)

// DocumentService is the part of pipeline.Analyzer the HTTP surface uses.
type DocumentService interface {
	Submit(ctx context.Context, documentID, filename string) error
	Process(ctx context.Context, documentID, filename, text string) (*models.DocumentAnalysis, error)
	ProcessWithExperts(ctx context.Context, documentID, filename, text string) (*models.DocumentAnalysis, error)
	ExpertsAvailable() bool
	Status(ctx context.Context, documentID string) (models.ProcessingStatus, error)
	Analysis(ctx context.Context, documentID string) (models.DocumentAnalysis, error)
	ExpertAnalysis(ctx context.Context, documentID string) (pipeline.EnhancedAnalysis, error)
	Query(ctx context.Context, documentID, query string) (models.QueryResult, error)
	QueryHistory(ctx context.Context, documentID string) ([]models.QueryResult, error)
	QueryStats(ctx context.Context, documentID string) (relevance.QueryStats, error)
	Suggestions(ctx context.Context, documentID string) ([]string, error)
	Reassess(ctx context.Context, documentID string) (*pipeline.RiskReport, error)
	Delete(ctx context.Context, documentID string) error
	SystemStatus(ctx context.Context) (pipeline.SystemStatus, error)
}

type ClauseSearcher interface {
	Search(ctx context.Context, q storage.SearchQuery) (*storage.SearchResult, error)
}

type BlobPutter interface {
	Put(ctx context.Context, documentID, filename string, body []byte) (string, error)
}

// Deps wires the server. Search, Blobs and Readiness are optional.
type Deps struct {
	Documents DocumentService
	Search    ClauseSearcher
	Blobs     BlobPutter
	Readiness map[string]database.Pinger
}

// Server serves the document analysis API. Uploaded documents are processed
// in background goroutines bound to the server's lifetime.
type Server struct {
	deps   Deps
	logger logger.Logger
	newID  func() string

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewServer(deps Deps, log logger.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		deps:    deps,
		logger:  log.With(map[string]interface{}{"component": "api"}),
		newID:   func() string { return uuid.NewString() },
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/health", s.health)
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/system/status", s.systemStatus)

	docs := r.Group("/documents")
	{
		docs.POST("", s.uploadDocument)
		docs.POST("/enhanced", s.uploadEnhanced)
		docs.GET("/:id/status", s.getStatus)
		docs.GET("/:id/analysis", s.getAnalysis)
		docs.GET("/:id/analysis/enhanced", s.getEnhancedAnalysis)
		docs.POST("/:id/query", s.queryDocument)
		docs.GET("/:id/queries", s.getQueryHistory)
		docs.GET("/:id/queries/stats", s.getQueryStats)
		docs.GET("/:id/suggestions", s.getSuggestions)
		docs.GET("/:id/risk", s.reassess)
		docs.DELETE("/:id", s.deleteDocument)
	}

	r.GET("/clauses/search", s.searchClauses)
	return r
}

// Run listens on addr until ctx is cancelled, then drains in-flight requests
// and background processing.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP API listening", map[string]interface{}{"address": addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	return err
}

// Close cancels background processing and waits for it to stop.
func (s *Server) Close() {
	s.cancel()
	s.wg.Wait()
}

// Wait blocks until every background processing goroutine has returned.
func (s *Server) Wait() {
	s.wg.Wait()
}

func (s *Server) processAsync(documentID, filename, text string, experts bool) {
	process := s.deps.Documents.Process
	if experts {
		process = s.deps.Documents.ProcessWithExperts
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if _, err := process(s.baseCtx, documentID, filename, text); err != nil {
			s.logger.WithError(err).Warn("Background processing failed", map[string]interface{}{
				"documentId": documentID,
			})
		}
	}()
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request", map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"durationMs": time.Since(start).Milliseconds(),
		})
	}
}
