// internal/analysis/risk/enhancer.go
package risk

import (
	"context"
	"strings"

	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"
)

const (
	enhanceMinScore  = 6
	maxRevisionDelta = 2
	maxAddedAdvice   = 2
)

// Outcome of a single re-assessment attempt.
type Outcome string

const (
	OutcomeAccepted     Outcome = "accepted"
	OutcomeDiscarded    Outcome = "discarded"
	OutcomeNotAttempted Outcome = "not_attempted"
	OutcomeFailed       Outcome = "failed"
)

var enhanceTypes = map[models.ClauseType]bool{
	models.ClauseTypeLiability:       true,
	models.ClauseTypeIndemnification: true,
	models.ClauseTypePaymentTerms:    true,
	models.ClauseTypeTermination:     true,
}

// RiskReviewer re-scores a single clause text.
type RiskReviewer interface {
	ReviewRisk(ctx context.Context, clauseText string) (*models.RiskReview, error)
}

type Enhancer struct {
	reviewer RiskReviewer
	logger   logger.Logger
}

func NewEnhancer(reviewer RiskReviewer, log logger.Logger) *Enhancer {
	return &Enhancer{
		reviewer: reviewer,
		logger:   log.WithFields(map[string]interface{}{"component": "risk-enhancer"}),
	}
}

// Eligible reports whether a clause qualifies for re-assessment.
func Eligible(c models.LegalClause) bool {
	return enhanceTypes[c.ClauseType] && c.RiskScore >= enhanceMinScore
}

// Enhance returns a revised copy of clauses along with one outcome per clause.
// Revisions further than two points from the original score are discarded.
func (e *Enhancer) Enhance(ctx context.Context, clauses []models.LegalClause) ([]models.LegalClause, []Outcome) {
	out := make([]models.LegalClause, len(clauses))
	outcomes := make([]Outcome, len(clauses))

	for i, c := range clauses {
		c.Recommendations = append([]string(nil), c.Recommendations...)
		out[i] = c

		if e.reviewer == nil || !Eligible(c) {
			outcomes[i] = OutcomeNotAttempted
			e.record(c, OutcomeNotAttempted, nil)
			continue
		}
		if ctx.Err() != nil {
			outcomes[i] = OutcomeNotAttempted
			e.record(c, OutcomeNotAttempted, nil)
			continue
		}

		review, err := e.reviewer.ReviewRisk(ctx, c.OriginalText)
		if err != nil || review == nil {
			outcomes[i] = OutcomeFailed
			e.logger.WithError(err).Warn("Risk re-assessment failed", map[string]interface{}{
				"clauseId": c.ClauseID,
			})
			metrics.RiskEnhancements.WithLabelValues(string(OutcomeFailed)).Inc()
			continue
		}

		revised := models.ClampRiskScore(review.RiskScore)
		delta := revised - c.RiskScore
		if delta < -maxRevisionDelta || delta > maxRevisionDelta {
			outcomes[i] = OutcomeDiscarded
			e.record(c, OutcomeDiscarded, map[string]interface{}{"revisedScore": revised})
			continue
		}

		out[i] = applyReview(c, revised, review)
		outcomes[i] = OutcomeAccepted
		e.record(c, OutcomeAccepted, map[string]interface{}{"revisedScore": revised})
	}
	return out, outcomes
}

func applyReview(c models.LegalClause, revised int, review *models.RiskReview) models.LegalClause {
	c.RiskScore = revised
	if explanation := strings.TrimSpace(review.RiskExplanation); explanation != "" {
		c.RiskExplanation = explanation
	}
	added := review.Recommendations
	if len(added) > maxAddedAdvice {
		added = added[:maxAddedAdvice]
	}
	c.Recommendations = append(c.Recommendations, added...)
	return c
}

func (e *Enhancer) record(c models.LegalClause, outcome Outcome, extra map[string]interface{}) {
	metrics.RiskEnhancements.WithLabelValues(string(outcome)).Inc()

	fields := map[string]interface{}{
		"clauseId":      c.ClauseID,
		"clauseType":    c.ClauseType,
		"originalScore": c.RiskScore,
		"outcome":       outcome,
	}
	for k, v := range extra {
		fields[k] = v
	}
	if outcome == OutcomeDiscarded {
		e.logger.Info("Risk revision discarded", fields)
		return
	}
	e.logger.Debug("Risk re-assessment", fields)
}
