// internal/workers/legal/assess-risk/handler.go
package assessrisk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/pipeline"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "assess-risk"
)

var (
	ErrMissingDocumentID = errors.New("MISSING_DOCUMENT_ID")
)

// Assessor recomputes the risk report of an analyzed document.
type Assessor interface {
	Reassess(ctx context.Context, documentID string) (*pipeline.RiskReport, error)
}

type Handler struct {
	config     *Config
	assessor   Assessor
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, assessor Assessor, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		assessor:   assessor,
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
	if errors.Is(err, ErrMissingDocumentID) {
		h.failJob(client, job, "MISSING_DOCUMENT_ID", err.Error())
		return
	}
	if err != nil {
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
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	report, err := h.assessor.Reassess(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	h.logger.Info("risk assessed", map[string]interface{}{
		"documentId":  input.DocumentID,
		"overallRisk": report.Assessment.OverallRisk,
		"riskLevel":   report.Summary.RiskLevel,
	})

	return &Output{
		DocumentID:      input.DocumentID,
		OverallRisk:     report.Assessment.OverallRisk,
		RiskLevel:       report.Summary.RiskLevel,
		HighRiskCount:   len(report.Assessment.HighRiskClauseIDs),
		Recommendations: report.Assessment.Recommendations,
		Assessment:      report.Assessment,
		Summary:         report.Summary,
		Interactions:    report.Interactions,
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
