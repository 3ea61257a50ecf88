// internal/genai/client.go
package genai

import (
	"context"
	"errors"
	"time"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/validation"
	"legal-analyzer/internal/models"
)

// Client adapts a Provider to the collaborator interfaces of the analysis
// pipeline: clause analysis, risk review, answers, summaries, classification,
// whole-document explanations and expert consultations.
type Client struct {
	provider Provider
	logger   logger.Logger
}

func NewClient(provider Provider, log logger.Logger) *Client {
	return &Client{
		provider: provider,
		logger:   log.With(map[string]interface{}{"component": "genai", "provider": provider.Name()}),
	}
}

// AnalyzeClause never fails on an unparsable response: it returns a neutral
// analysis instead. Transport failures are returned as errors.
func (c *Client) AnalyzeClause(ctx context.Context, clauseText string) (*models.ClauseAnalysis, error) {
	text, err := c.generate(ctx, "analyze_clause", clausePrompt(clauseText))
	if err != nil {
		return nil, err
	}

	m, err := decodeObject(text, clauseSchema)
	if err != nil {
		c.logger.Warn("Unparsable clause analysis, using fallback", map[string]interface{}{
			"error": err.Error(),
		})
		return fallbackClauseAnalysis(clauseText), nil
	}
	return sanitizeClauseAnalysis(m), nil
}

func (c *Client) ReviewRisk(ctx context.Context, clauseText string) (*models.RiskReview, error) {
	m, err := c.call(ctx, "review_risk", riskPrompt(clauseText), riskSchema)
	if err != nil {
		return nil, err
	}
	return sanitizeRiskReview(m), nil
}

func (c *Client) Answer(ctx context.Context, query, documentContext string, clauseSummaries []string) (*models.QueryAnswer, error) {
	m, err := c.call(ctx, "answer_query", answerPrompt(query, documentContext, clauseSummaries), answerSchema)
	if err != nil {
		return nil, err
	}
	return sanitizeQueryAnswer(m), nil
}

func (c *Client) Summarize(ctx context.Context, documentText string) (*models.DocumentSummary, error) {
	m, err := c.call(ctx, "summarize", summaryPrompt(documentText), objectSchema)
	if err != nil {
		return nil, err
	}
	return sanitizeSummary(m), nil
}

// Classify returns DocumentTypeOther for labels outside the known set.
func (c *Client) Classify(ctx context.Context, documentText string) (models.DocumentType, error) {
	m, err := c.call(ctx, "classify", classifyPrompt(documentText), objectSchema)
	if err != nil {
		return models.DocumentTypeOther, err
	}
	label := toString(m["document_type"], string(models.DocumentTypeOther))
	docType := models.ParseDocumentType(label)
	if docType == models.DocumentTypeOther && label != string(models.DocumentTypeOther) {
		c.logger.Warn("Unknown document type", map[string]interface{}{"documentType": label})
	}
	return docType, nil
}

func (c *Client) Explain(ctx context.Context, documentText string, documentType models.DocumentType, clauses []models.LegalClause) (*models.DocumentExplanation, error) {
	m, err := c.call(ctx, "explain", explanationPrompt(documentText, documentType, clauses), objectSchema)
	if err != nil {
		return nil, err
	}
	return sanitizeExplanation(m), nil
}

// Consult asks one persona of the expert panel for a report on a finished
// analysis. A response with an empty report is an invalid response.
func (c *Client) Consult(ctx context.Context, role models.ExpertRole, analysis models.DocumentAnalysis) (*models.ExpertOpinion, error) {
	operation := "expert_" + string(role)
	m, err := c.call(ctx, operation, expertPrompt(role, analysis), expertSchema)
	if err != nil {
		return nil, err
	}
	opinion := sanitizeExpertOpinion(role, m)
	if opinion.Report == "" {
		return nil, apperrors.NewLLMInvalidResponseError(operation, "empty report")
	}
	return opinion, nil
}

func (c *Client) call(ctx context.Context, operation, prompt string, schema *validation.Schema) (map[string]interface{}, error) {
	text, err := c.generate(ctx, operation, prompt)
	if err != nil {
		return nil, err
	}
	m, err := decodeObject(text, schema)
	if err != nil {
		c.logger.Warn("Invalid model response", map[string]interface{}{
			"operation": operation,
			"error":     err.Error(),
		})
		return nil, apperrors.NewLLMInvalidResponseError(operation, err.Error())
	}
	return m, nil
}

func (c *Client) generate(ctx context.Context, operation, prompt string) (string, error) {
	start := time.Now()
	text, err := c.provider.Generate(ctx, systemInstruction, prompt)
	fields := map[string]interface{}{
		"operation":  operation,
		"durationMs": time.Since(start).Milliseconds(),
	}

	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			c.logger.Error("Model request timed out", fields)
			return "", apperrors.NewLLMTimeoutError(operation)
		case IsRateLimit(err):
			c.logger.WithError(err).Warn("Model request rate limited", fields)
		default:
			c.logger.WithError(err).Error("Model request failed", fields)
		}
		return "", apperrors.NewLLMRequestFailedError(operation, err)
	}

	c.logger.Debug("Model request completed", fields)
	return text, nil
}
