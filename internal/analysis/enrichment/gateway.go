// internal/analysis/enrichment/gateway.go
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"

	"github.com/google/uuid"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = time.Second
)

var ErrNoAnalyzer = errors.New("clause analyzer is required")

// ClauseAnalyzer classifies and risk-scores a single clause.
type ClauseAnalyzer interface {
	AnalyzeClause(ctx context.Context, clauseText string) (*models.ClauseAnalysis, error)
}

type Config struct {
	BatchSize  int
	BatchDelay time.Duration
}

// BatchResult is the outcome of enriching one candidate. Exactly one of Clause
// and Err is set.
type BatchResult struct {
	Ordinal   int
	Candidate models.CandidateClauseSpan
	Clause    *models.LegalClause
	Err       error
}

// Gateway sends candidates to the clause analyzer in throttled concurrent batches.
type Gateway struct {
	analyzer ClauseAnalyzer
	config   Config
	logger   logger.Logger
	suffix   func() string
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewGateway(analyzer ClauseAnalyzer, config Config, log logger.Logger) (*Gateway, error) {
	if analyzer == nil {
		return nil, ErrNoAnalyzer
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchSize
	}
	if config.BatchDelay < 0 {
		config.BatchDelay = 0
	}
	return &Gateway{
		analyzer: analyzer,
		config:   config,
		logger:   log.With(map[string]interface{}{"component": "enrichment"}),
		suffix:   randomSuffix,
		sleep:    sleepContext,
	}, nil
}

// Enrich processes candidates batch by batch. Items within a batch run
// concurrently; the next batch starts only after every item of the current one
// has resolved and the batch delay has elapsed. Per-item failures are returned
// in their BatchResult and never abort the run. The returned error is non-nil
// only when ctx ends before all batches were issued.
func (g *Gateway) Enrich(ctx context.Context, documentID string, candidates []models.CandidateClauseSpan) ([]BatchResult, error) {
	results := make([]BatchResult, 0, len(candidates))
	size := g.config.BatchSize

	for start := 0; start < len(candidates); start += size {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		end := start + size
		if end > len(candidates) {
			end = len(candidates)
		}
		results = append(results, g.runBatch(ctx, documentID, start, candidates[start:end])...)

		if end < len(candidates) && g.config.BatchDelay > 0 {
			if err := g.sleep(ctx, g.config.BatchDelay); err != nil {
				return results, err
			}
		}
	}

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	g.logger.Info("clause enrichment completed", map[string]interface{}{
		"documentId": documentID,
		"candidates": len(candidates),
		"enriched":   len(results) - failed,
		"failed":     failed,
	})
	return results, nil
}

func (g *Gateway) runBatch(ctx context.Context, documentID string, offset int, batch []models.CandidateClauseSpan) []BatchResult {
	out := make([]BatchResult, len(batch))

	var wg sync.WaitGroup
	for i := range batch {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out[i] = g.enrichOne(ctx, documentID, offset+i, batch[i])
		}(i)
	}
	wg.Wait()

	return out
}

func (g *Gateway) enrichOne(ctx context.Context, documentID string, ordinal int, candidate models.CandidateClauseSpan) BatchResult {
	result := BatchResult{Ordinal: ordinal, Candidate: candidate}

	analysis, err := g.analyzer.AnalyzeClause(ctx, candidate.Text)
	if err == nil && analysis == nil {
		err = errors.New("empty analysis")
	}
	if err != nil {
		result.Err = fmt.Errorf("clause %d: %w", ordinal, err)
		metrics.ClauseEnrichments.WithLabelValues("failed").Inc()
		g.logger.Warn("clause analysis failed", map[string]interface{}{
			"documentId": documentID,
			"ordinal":    ordinal,
			"error":      err.Error(),
		})
		return result
	}

	clause := BuildClause(candidate, *analysis, ClauseID(documentID, ordinal, g.suffix()))
	result.Clause = &clause
	metrics.ClauseEnrichments.WithLabelValues("success").Inc()
	return result
}

// Clauses returns the successfully enriched clauses in ordinal order.
func Clauses(results []BatchResult) []models.LegalClause {
	var out []models.LegalClause
	for _, r := range results {
		if r.Clause != nil {
			out = append(out, *r.Clause)
		}
	}
	return out
}

// ClauseID formats "{documentId}_{ordinal}_{suffix}".
func ClauseID(documentID string, ordinal int, suffix string) string {
	return fmt.Sprintf("%s_%d_%s", documentID, ordinal, suffix)
}

func randomSuffix() string {
	return uuid.NewString()[:8]
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
