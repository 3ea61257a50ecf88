// internal/common/errors/handler.go
package errors

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/commands"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// reportTimeout bounds fail/throw delivery. The job's own deadline has often
// already passed when the error is reported.
const reportTimeout = 5 * time.Second

// ErrorHandler turns worker errors into fail-with-retries or BPMN throw commands.
type ErrorHandler struct {
	logger Logger
}

type Logger interface {
	Error(msg string, fields map[string]interface{})
}

func NewErrorHandler(logger Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger}
}

// HandleJobError fails the job with retries when the error is technical and retries remain,
// otherwise throws a BPMN error so the process model can branch on the code.
func (h *ErrorHandler) HandleJobError(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	stdErr := AsStandardError(err)
	bpmnErr := ConvertToBPMNError(stdErr)

	h.logError(job, stdErr, bpmnErr)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	if bpmnErr.Retries > 0 && job.Retries > 1 {
		h.failJob(ctx, client, job, bpmnErr, RemainingRetries(job.Retries, bpmnErr.Retries))
		return
	}
	h.throwBPMNError(ctx, client, job, bpmnErr)
}

// RemainingRetries never hands the engine more retries than the job still has, minus this attempt.
func RemainingRetries(jobRetries int32, codeRetries int) int32 {
	remaining := jobRetries - 1
	if int32(codeRetries) < remaining {
		remaining = int32(codeRetries)
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (h *ErrorHandler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError, retries int32) {
	cmd := client.NewFailJobCommand().
		JobKey(job.Key).
		Retries(retries).
		ErrorMessage(bpmnErr.Message)

	var err error
	if withVars, ok := withFailVariables(cmd, bpmnErr); ok {
		_, err = withVars.Send(ctx)
	} else {
		_, err = cmd.Send(ctx)
	}
	h.logDelivery(job, "fail", err)
}

func withFailVariables(cmd commands.FailJobCommandStep3, bpmnErr *BPMNError) (commands.DispatchFailJobCommand, bool) {
	varsJSON, ok := encodeVariables(bpmnErr)
	if !ok {
		return nil, false
	}
	withVars, err := cmd.VariablesFromString(varsJSON)
	return withVars, err == nil
}

func (h *ErrorHandler) throwBPMNError(ctx context.Context, client worker.JobClient, job entities.Job, bpmnErr *BPMNError) {
	cmd := client.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message)

	var err error
	if withVars, ok := withThrowVariables(cmd, bpmnErr); ok {
		_, err = withVars.Send(ctx)
	} else {
		_, err = cmd.Send(ctx)
	}
	h.logDelivery(job, "throw", err)
}

func withThrowVariables(cmd commands.DispatchThrowErrorCommand, bpmnErr *BPMNError) (commands.DispatchThrowErrorCommand, bool) {
	varsJSON, ok := encodeVariables(bpmnErr)
	if !ok {
		return nil, false
	}
	withVars, err := cmd.VariablesFromString(varsJSON)
	return withVars, err == nil
}

func (h *ErrorHandler) logDelivery(job entities.Job, command string, err error) {
	if err == nil {
		return
	}
	h.logger.Error("failed to report job error to broker", map[string]interface{}{
		"jobKey":  job.Key,
		"jobType": job.Type,
		"command": command,
		"error":   err.Error(),
	})
}

func encodeVariables(bpmnErr *BPMNError) (string, bool) {
	data, err := json.Marshal(bpmnErr.ToErrorVariables())
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (h *ErrorHandler) logError(job entities.Job, stdErr *StandardError, bpmnErr *BPMNError) {
	h.logger.Error("job failed", map[string]interface{}{
		"jobKey":             job.Key,
		"jobType":            job.Type,
		"errorCode":          string(stdErr.Code),
		"message":            bpmnErr.Message,
		"details":            stdErr.Details,
		"retryable":          stdErr.Retryable,
		"retries":            bpmnErr.Retries,
		"errorCategory":      GetErrorCategory(stdErr.Code),
		"processInstanceKey": job.ProcessInstanceKey,
	})
}
