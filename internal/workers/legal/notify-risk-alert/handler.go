// internal/workers/legal/notify-risk-alert/handler.go
package notifyriskalert

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"legal-analyzer/internal/common/aws"
	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/slack-go/slack"
)

const (
	TaskType = "notify-risk-alert"
)

var (
	ErrMissingDocumentID = errors.New("MISSING_DOCUMENT_ID")
)

// SlackPoster is satisfied by *slack.Client.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// Senders holds the alert channels. Nil members are skipped.
type Senders struct {
	SNS   aws.SNSAPI
	SES   aws.SESAPI
	Slack SlackPoster
}

type Handler struct {
	config     *Config
	senders    Senders
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, senders Senders, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		senders:    senders,
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

type delivery struct {
	channel string
	send    func(ctx context.Context, a alert) error
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	log := h.logger.With(map[string]interface{}{
		"documentId":  input.DocumentID,
		"overallRisk": input.OverallRisk,
	})

	if input.OverallRisk < h.config.RiskThreshold {
		log.Debug("risk below alert threshold", map[string]interface{}{"threshold": h.config.RiskThreshold})
		return &Output{Channels: []string{}, Skipped: SkippedBelowThreshold}, nil
	}

	deliveries := h.deliveries(input)
	if len(deliveries) == 0 {
		log.Warn("no alert channels configured", nil)
		return &Output{Channels: []string{}, Skipped: SkippedNoChannels}, nil
	}

	a := newAlert(input)
	out := &Output{Channels: []string{}}
	var lastErr error
	for _, d := range deliveries {
		if err := d.send(ctx, a); err != nil {
			log.WithError(err).Warn("alert delivery failed", map[string]interface{}{"channel": d.channel})
			out.Failed = append(out.Failed, d.channel)
			lastErr = err
			continue
		}
		out.Channels = append(out.Channels, d.channel)
	}

	if len(out.Channels) == 0 {
		return nil, apperrors.NewNotificationSendFailedError(strings.Join(out.Failed, ","), lastErr)
	}
	out.Notified = true

	log.Info("risk alert sent", map[string]interface{}{
		"channels": out.Channels,
		"failed":   out.Failed,
	})
	return out, nil
}

func (h *Handler) deliveries(input *Input) []delivery {
	var out []delivery
	if h.senders.SNS != nil && h.config.SNSTopicARN != "" {
		out = append(out, delivery{channel: ChannelSNS, send: h.publishSNS})
	}
	recipients := nonBlank(input.Recipients)
	if len(recipients) == 0 {
		recipients = nonBlank(h.config.SESTo)
	}
	if h.senders.SES != nil && h.config.SESFrom != "" && len(recipients) > 0 {
		out = append(out, delivery{channel: ChannelEmail, send: func(ctx context.Context, a alert) error {
			return h.sendEmail(ctx, a, recipients)
		}})
	}
	if h.senders.Slack != nil && h.config.SlackChannel != "" {
		out = append(out, delivery{channel: ChannelSlack, send: h.postSlack})
	}
	return out
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (h *Handler) publishSNS(ctx context.Context, a alert) error {
	_, err := h.senders.SNS.Publish(ctx, aws.NewTopicMessage(h.config.SNSTopicARN, a.subject, a.text, map[string]string{
		"documentId": a.documentID,
		"riskLevel":  a.level,
	}))
	return err
}

func (h *Handler) sendEmail(ctx context.Context, a alert, to []string) error {
	_, err := h.senders.SES.SendEmail(ctx, aws.NewEmailInput(h.config.SESFrom, to, a.subject, a.text, a.html()))
	return err
}

func (h *Handler) postSlack(ctx context.Context, a alert) error {
	_, _, err := h.senders.Slack.PostMessageContext(ctx, h.config.SlackChannel,
		slack.MsgOptionText(a.subject, false),
		slack.MsgOptionBlocks(a.slackBlocks()...),
	)
	return err
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
