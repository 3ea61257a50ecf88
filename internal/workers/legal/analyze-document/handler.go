// internal/workers/legal/analyze-document/handler.go
package analyzedocument

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"legal-analyzer/internal/analysis/textproc"
	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const (
	TaskType = "analyze-document"
)

var (
	ErrMissingFilename    = errors.New("MISSING_FILENAME")
	ErrMissingContent     = errors.New("MISSING_DOCUMENT_CONTENT")
	ErrUnsupportedContent = errors.New("UNSUPPORTED_STORED_CONTENT")
)

// Processor is the part of pipeline.Analyzer this worker drives.
type Processor interface {
	Submit(ctx context.Context, documentID, filename string) error
	Process(ctx context.Context, documentID, filename, text string) (*models.DocumentAnalysis, error)
}

// BlobReader loads stored uploads. It may be nil when the blob store is not configured.
type BlobReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

type Handler struct {
	config     *Config
	processor  Processor
	blobs      BlobReader
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, processor Processor, blobs BlobReader, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		processor:  processor,
		blobs:      blobs,
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
	if err := validate(&input); err != nil {
		h.failJob(client, job, h.mapErrorToCode(err), err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		if errors.Is(err, ErrMissingContent) || errors.Is(err, ErrUnsupportedContent) {
			h.failJob(client, job, h.mapErrorToCode(err), err.Error())
			return
		}
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, h.mapErrorToCode(err)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(client, job, output)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := validate(input); err != nil {
		return nil, err
	}
	return h.execute(ctx, input)
}

func validate(input *Input) error {
	if input == nil || strings.TrimSpace(input.Filename) == "" {
		return ErrMissingFilename
	}
	if input.Text == "" && input.StorageKey == "" {
		return ErrMissingContent
	}
	return nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	documentID := input.DocumentID
	if documentID == "" {
		documentID = uuid.NewString()
	}

	text, err := h.loadText(ctx, input)
	if err != nil {
		return nil, err
	}

	if err := h.processor.Submit(ctx, documentID, input.Filename); err != nil {
		return nil, err
	}
	analysis, err := h.processor.Process(ctx, documentID, input.Filename, text)
	if err != nil {
		return nil, err
	}

	high := 0
	for _, c := range analysis.Clauses {
		if c.RiskScore >= models.HighRiskThreshold {
			high++
		}
	}

	h.logger.Info("document analyzed", map[string]interface{}{
		"documentId":  documentID,
		"clauses":     len(analysis.Clauses),
		"overallRisk": analysis.OverallRiskScore,
	})

	return &Output{
		DocumentID:    documentID,
		Status:        models.StatusCompleted,
		DocumentType:  analysis.DocumentType,
		OverallRisk:   analysis.OverallRiskScore,
		ClauseCount:   len(analysis.Clauses),
		HighRiskCount: high,
		RedFlags:      analysis.RedFlags,
	}, nil
}

// loadText prefers inline text. Stored uploads are only readable when they are plain text.
func (h *Handler) loadText(ctx context.Context, input *Input) (string, error) {
	if input.Text != "" {
		return input.Text, nil
	}
	if h.blobs == nil {
		return "", fmt.Errorf("%w: blob storage is not configured", ErrMissingContent)
	}
	if !strings.EqualFold(filepath.Ext(input.StorageKey), ".txt") {
		return "", fmt.Errorf("%w: %s needs pre-extracted text", ErrUnsupportedContent, filepath.Ext(input.StorageKey))
	}

	raw, err := h.blobs.Get(ctx, input.StorageKey)
	if err != nil {
		return "", err
	}
	text, err := textproc.DecodeText(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedContent, err)
	}
	return text, nil
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
	_, err = cmd.Send(context.Background())
	if err != nil {
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

func (h *Handler) mapErrorToCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingFilename):
		return "MISSING_FILENAME"
	case errors.Is(err, ErrMissingContent):
		return "MISSING_DOCUMENT_CONTENT"
	case errors.Is(err, ErrUnsupportedContent):
		return "UNSUPPORTED_STORED_CONTENT"
	}
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return string(stdErr.Code)
	}
	return "UNKNOWN_ERROR"
}
