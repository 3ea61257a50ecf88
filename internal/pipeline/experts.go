// internal/pipeline/experts.go
package pipeline

import (
	"context"
	"strings"
	"time"

	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"
)

const (
	maxExpertRecommendationsPerRole = 2
	maxExpertRecommendations        = 8
	minRecommendationLength         = 20
)

// ExpertConsultant produces one persona's report on a finished analysis.
type ExpertConsultant interface {
	Consult(ctx context.Context, role models.ExpertRole, analysis models.DocumentAnalysis) (*models.ExpertOpinion, error)
}

// ExpertPanel consults every persona in turn. A persona that fails is logged
// and left out of the review.
type ExpertPanel struct {
	consultant ExpertConsultant
	roles      []models.ExpertRole
	logger     logger.Logger
	now        func() time.Time
}

func NewExpertPanel(consultant ExpertConsultant, log logger.Logger) *ExpertPanel {
	return &ExpertPanel{
		consultant: consultant,
		roles:      models.ExpertRoles,
		logger:     log.With(map[string]interface{}{"component": "expert-panel"}),
		now:        time.Now,
	}
}

// Roles lists the personas the panel consults.
func (p *ExpertPanel) Roles() []models.ExpertRole {
	return append([]models.ExpertRole(nil), p.roles...)
}

// Review consults the panel. It only fails when ctx is done; a review in
// which every persona failed comes back with Enhanced false and Error set.
func (p *ExpertPanel) Review(ctx context.Context, analysis models.DocumentAnalysis) (models.ExpertReview, error) {
	start := p.now()
	opinions := make([]models.ExpertOpinion, 0, len(p.roles))
	var lastErr error

	for i, role := range p.roles {
		if err := ctx.Err(); err != nil {
			return models.ExpertReview{}, err
		}
		log := p.logger.With(map[string]interface{}{
			"documentId": analysis.DocumentID,
			"role":       string(role),
		})
		log.Info("Consulting expert", map[string]interface{}{"task": i + 1, "of": len(p.roles)})

		opinion, err := p.consultant.Consult(ctx, role, analysis)
		if err != nil {
			lastErr = err
			metrics.ExpertConsultations.WithLabelValues(string(role), "failed").Inc()
			log.WithError(err).Warn("Expert consultation failed, continuing without it", nil)
			continue
		}
		metrics.ExpertConsultations.WithLabelValues(string(role), "success").Inc()
		opinions = append(opinions, *opinion)
	}

	review := MergeOpinions(opinions)
	finished := p.now()
	review.EnhancementTimeMs = finished.Sub(start).Milliseconds()
	review.EnhancedAt = finished
	if !review.Enhanced && lastErr != nil {
		review.Error = lastErr.Error()
	}

	p.logger.Info("Expert review completed", map[string]interface{}{
		"documentId": analysis.DocumentID,
		"experts":    len(review.ExpertsUsed),
		"enhanced":   review.Enhanced,
	})
	return review, nil
}

// MergeOpinions turns persona reports into review sections keyed by each
// role's section name, plus the recommendations worth surfacing.
func MergeOpinions(opinions []models.ExpertOpinion) models.ExpertReview {
	review := models.ExpertReview{
		Sections:        map[string]string{},
		ExpertsUsed:     []models.ExpertRole{},
		Recommendations: []string{},
	}
	for _, o := range opinions {
		if o.Report == "" {
			continue
		}
		review.Sections[o.Role.Section()] = o.Report
		review.ExpertsUsed = append(review.ExpertsUsed, o.Role)
	}
	review.Enhanced = len(review.ExpertsUsed) > 0
	review.Recommendations = ExtractRecommendations(opinions)
	return review
}

// ExtractRecommendations takes at most two recommendations per persona and
// eight overall. Explicit recommendations win; otherwise sentences of the
// report that recommend something are used.
func ExtractRecommendations(opinions []models.ExpertOpinion) []string {
	var out []string
	seen := map[string]bool{}

	for _, o := range opinions {
		candidates := o.Recommendations
		if len(candidates) == 0 {
			candidates = recommendingSentences(o.Report)
		}

		taken := 0
		for _, c := range candidates {
			c = strings.TrimSpace(c)
			if len(c) <= minRecommendationLength || seen[strings.ToLower(c)] {
				continue
			}
			seen[strings.ToLower(c)] = true
			out = append(out, c)
			taken++
			if taken == maxExpertRecommendationsPerRole {
				break
			}
		}
	}

	if len(out) > maxExpertRecommendations {
		out = out[:maxExpertRecommendations]
	}
	if out == nil {
		return []string{}
	}
	return out
}

func recommendingSentences(report string) []string {
	var out []string
	for _, sentence := range strings.Split(report, ".") {
		sentence = strings.TrimSpace(sentence)
		if strings.Contains(strings.ToLower(sentence), "recommend") {
			out = append(out, sentence+".")
		}
	}
	return out
}

// applyExpertReview attaches review to analysis and appends its
// recommendations to the document's own, skipping duplicates.
func applyExpertReview(analysis *models.DocumentAnalysis, review models.ExpertReview) {
	analysis.ExpertReview = &review

	existing := make(map[string]bool, len(analysis.Recommendations))
	for _, r := range analysis.Recommendations {
		existing[strings.ToLower(r)] = true
	}
	for _, r := range review.Recommendations {
		if !existing[strings.ToLower(r)] {
			analysis.Recommendations = append(analysis.Recommendations, r)
			existing[strings.ToLower(r)] = true
		}
	}
}
