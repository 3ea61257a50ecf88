// internal/workers/legal/answer-query/handler.go
package answerquery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "answer-query"
)

var (
	ErrMissingDocumentID = errors.New("MISSING_DOCUMENT_ID")
	ErrMissingQuery      = errors.New("MISSING_QUERY")
)

type Answerer interface {
	Query(ctx context.Context, documentID, query string) (models.QueryResult, error)
}

type Handler struct {
	config     *Config
	answerer   Answerer
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, answerer Answerer, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		answerer:   answerer,
		errHandler: apperrors.NewErrorHandler(log),
		logger:     log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.failJob(client, job, "PARSE_ERROR", fmt.Sprintf("parse input: %v", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.Execute(ctx, &input)
	if err != nil {
		if code := h.mapErrorToCode(err); code != "" {
			h.failJob(client, job, code, err.Error())
			return
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(apperrors.AsStandardError(err).Code)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || strings.TrimSpace(input.DocumentID) == "" {
		return nil, ErrMissingDocumentID
	}
	if strings.TrimSpace(input.Query) == "" {
		return nil, ErrMissingQuery
	}
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	result, err := h.answerer.Query(ctx, input.DocumentID, input.Query)
	if err != nil {
		return nil, err
	}

	return &Output{
		DocumentID:        input.DocumentID,
		Query:             result.Query,
		Answer:            result.Answer,
		Confidence:        result.Confidence,
		RelevantClauseIDs: result.RelevantClauseIDs,
		Sources:           result.Sources,
		LowConfidence:     result.Confidence < lowConfidenceThreshold,
	}, nil
}

// mapErrorToCode returns "" for errors that go through the shared job error handler.
func (h *Handler) mapErrorToCode(err error) string {
	if errors.Is(err, ErrMissingDocumentID) {
		return "MISSING_DOCUMENT_ID"
	} else if errors.Is(err, ErrMissingQuery) {
		return "MISSING_QUERY"
	}
	return ""
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

func (h *Handler) failJob(client worker.JobClient, job entities.Job, errorCode, errorMessage string) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, errorCode).Inc()
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":       job.Key,
		"errorCode":    errorCode,
		"errorMessage": errorMessage,
	})

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
