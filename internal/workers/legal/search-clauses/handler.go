// internal/workers/legal/search-clauses/handler.go
package searchclauses

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"
	"legal-analyzer/internal/storage"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "search-clauses"
)

var (
	ErrInvalidRiskFilter = errors.New("INVALID_RISK_FILTER")
	ErrSearchTimeout     = errors.New("SEARCH_TIMEOUT")
)

type Searcher interface {
	Search(ctx context.Context, q storage.SearchQuery) (*storage.SearchResult, error)
}

type Handler struct {
	config   *Config
	searcher Searcher
	logger   logger.Logger
}

func NewHandler(config *Config, searcher Searcher, log logger.Logger) *Handler {
	return &Handler{
		config:   config,
		searcher: searcher,
		logger:   log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err), 0)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.failJob(client, job, h.mapErrorToCode(err), err.Error(), h.getRetryCount(err))
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil {
		return nil, errors.New("input cannot be nil")
	}
	if input.MinRisk < 0 || input.MinRisk > models.MaxRiskScore {
		return nil, fmt.Errorf("%w: minRisk must be between 0 and %d", ErrInvalidRiskFilter, models.MaxRiskScore)
	}

	q := storage.SearchQuery{
		Query:      input.Query,
		DocumentID: input.DocumentID,
		MinRisk:    input.MinRisk,
		Size:       input.Size,
	}
	if input.ClauseType != "" {
		q.ClauseType = models.ParseClauseType(input.ClauseType)
	}

	result, err := h.searcher.Search(ctx, q)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, ErrSearchTimeout
		}
		return nil, err
	}

	seen := map[string]bool{}
	docs := []string{}
	for _, hit := range result.Hits {
		if !seen[hit.DocumentID] {
			seen[hit.DocumentID] = true
			docs = append(docs, hit.DocumentID)
		}
	}

	h.logger.Info("clause search completed", map[string]interface{}{
		"query":     input.Query,
		"totalHits": result.TotalHits,
		"documents": len(docs),
	})

	return &Output{
		Hits:        result.Hits,
		TotalHits:   result.TotalHits,
		Took:        result.Took,
		DocumentIDs: docs,
	}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err = cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

// failJob hands retryable failures back to the engine and throws the rest as BPMN errors.
func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string, retries int32) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
		"retries":      retries,
	})

	if retries > 0 && job.Retries > 1 {
		_, err := client.NewFailJobCommand().
			JobKey(job.Key).
			Retries(apperrors.RemainingRetries(job.Retries, int(retries))).
			ErrorMessage(errorMessage).
			Send(context.Background())
		if err != nil {
			h.logger.Error("failed to fail job", map[string]interface{}{
				"error": err,
			})
		}
		return
	}

	_, err := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(errorCode).
		ErrorMessage(errorMessage).
		Send(context.Background())
	if err != nil {
		h.logger.Error("failed to throw error", map[string]interface{}{
			"error": err,
		})
	}
}

func (h *Handler) mapErrorToCode(err error) string {
	if errors.Is(err, ErrInvalidRiskFilter) {
		return "INVALID_RISK_FILTER"
	} else if errors.Is(err, ErrSearchTimeout) {
		return "SEARCH_TIMEOUT"
	} else if apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed) {
		return "SEARCH_QUERY_FAILED"
	}
	return "UNKNOWN_ERROR"
}

func (h *Handler) getRetryCount(err error) int32 {
	if apperrors.HasCode(err, apperrors.ErrCodeSearchQueryFailed) {
		return 3
	} else if errors.Is(err, ErrSearchTimeout) {
		return 2
	}
	return 0
}
