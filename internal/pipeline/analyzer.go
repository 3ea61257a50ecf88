// internal/pipeline/analyzer.go
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"legal-analyzer/internal/analysis/enrichment"
	"legal-analyzer/internal/analysis/postprocess"
	"legal-analyzer/internal/analysis/relevance"
	"legal-analyzer/internal/analysis/risk"
	"legal-analyzer/internal/analysis/segmenter"
	"legal-analyzer/internal/analysis/textproc"
	"legal-analyzer/internal/common/config"
	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/metrics"
	"legal-analyzer/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "legal-analyzer/pipeline"

type Summarizer interface {
	Summarize(ctx context.Context, documentText string) (*models.DocumentSummary, error)
}

type DocumentClassifier interface {
	Classify(ctx context.Context, documentText string) (models.DocumentType, error)
}

type Explainer interface {
	Explain(ctx context.Context, documentText string, documentType models.DocumentType, clauses []models.LegalClause) (*models.DocumentExplanation, error)
}

// Archiver keeps a durable copy of completed analyses.
type Archiver interface {
	Save(ctx context.Context, analysis models.DocumentAnalysis) error
}

// ClauseIndexer makes clauses searchable across documents.
type ClauseIndexer interface {
	IndexClauses(ctx context.Context, documentID string, clauses []models.LegalClause) error
}

// Collaborators are the LLM-backed services the pipeline calls. Only
// ClauseAnalyzer is required.
type Collaborators struct {
	ClauseAnalyzer enrichment.ClauseAnalyzer
	RiskReviewer   risk.RiskReviewer
	QueryAnswerer  relevance.QueryAnswerer
	Summarizer     Summarizer
	Classifier     DocumentClassifier
	Explainer      Explainer
	Experts        ExpertConsultant
}

type Options struct {
	BatchSize          int
	BatchDelay         time.Duration
	MaxCandidates      int
	EnhancementEnabled bool
	ExpertPanelEnabled bool
	Archive            Archiver
	Index              ClauseIndexer
}

// OptionsFromConfig maps the analysis section onto Options.
func OptionsFromConfig(cfg config.AnalysisConfig) Options {
	return Options{
		BatchSize:          cfg.BatchSize,
		BatchDelay:         cfg.BatchDelay(),
		MaxCandidates:      cfg.MaxCandidates,
		EnhancementEnabled: cfg.EnhancementEnabled,
		ExpertPanelEnabled: cfg.ExpertPanelEnabled,
	}
}

// RiskReport is a fresh risk view computed from a document's stored clauses.
type RiskReport struct {
	DocumentID    string                       `json:"documentId"`
	Assessment    models.RiskAssessmentResult  `json:"assessment"`
	Summary       risk.Summary                 `json:"summary"`
	Interactions  risk.Interactions            `json:"interactions"`
	Statistics    postprocess.ClauseStatistics `json:"statistics"`
	Relationships []postprocess.RelatedGroup   `json:"relationships"`
}

// Analyzer sequences the analysis stages for a document and owns its state in
// the Store.
type Analyzer struct {
	store     Store
	collab    Collaborators
	options   Options
	segmenter *segmenter.Segmenter
	gateway   *enrichment.Gateway
	enhancer  *risk.Enhancer
	engine    *relevance.Engine
	panel     *ExpertPanel
	tracer    trace.Tracer
	logger    logger.Logger
	now       func() time.Time
}

func NewAnalyzer(store Store, collab Collaborators, opts Options, log logger.Logger) (*Analyzer, error) {
	if store == nil {
		return nil, errors.New("document store is required")
	}
	log = log.With(map[string]interface{}{"component": "pipeline"})

	gateway, err := enrichment.NewGateway(collab.ClauseAnalyzer, enrichment.Config{
		BatchSize:  opts.BatchSize,
		BatchDelay: opts.BatchDelay,
	}, log)
	if err != nil {
		return nil, err
	}

	var panel *ExpertPanel
	if collab.Experts != nil {
		panel = NewExpertPanel(collab.Experts, log)
	}

	return &Analyzer{
		store:     store,
		collab:    collab,
		options:   opts,
		segmenter: segmenter.New(opts.MaxCandidates, log),
		gateway:   gateway,
		enhancer:  risk.NewEnhancer(collab.RiskReviewer, log),
		engine:    relevance.NewEngine(collab.QueryAnswerer, log),
		panel:     panel,
		tracer:    otel.Tracer(tracerName),
		logger:    log,
		now:       time.Now,
	}, nil
}

// Submit records a document as queued. Process must be called to analyze it.
func (a *Analyzer) Submit(ctx context.Context, documentID, filename string) error {
	a.logger.Info("Document queued", map[string]interface{}{
		"documentId": documentID,
		"filename":   filename,
	})
	return a.store.SaveStatus(ctx, models.ProcessingStatus{
		DocumentID:  documentID,
		Status:      models.StatusQueued,
		CurrentStep: "Queued for processing",
		UpdatedAt:   a.now(),
	})
}

// Process runs every stage for one document and stores the compiled analysis.
// On failure the document's status becomes failed with the error message.
func (a *Analyzer) Process(ctx context.Context, documentID, filename, text string) (*models.DocumentAnalysis, error) {
	return a.process(ctx, documentID, filename, text, false)
}

// ProcessWithExperts is Process followed by an expert panel review, when the
// panel is configured and enabled.
func (a *Analyzer) ProcessWithExperts(ctx context.Context, documentID, filename, text string) (*models.DocumentAnalysis, error) {
	return a.process(ctx, documentID, filename, text, true)
}

// ExpertsAvailable reports whether ProcessWithExperts will consult the panel.
func (a *Analyzer) ExpertsAvailable() bool {
	return a.panel != nil && a.options.ExpertPanelEnabled
}

func (a *Analyzer) process(ctx context.Context, documentID, filename, text string, experts bool) (*models.DocumentAnalysis, error) {
	ctx, span := a.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(
		attribute.String("document.id", documentID),
		attribute.String("document.filename", filename),
		attribute.Bool("document.experts", experts),
	))
	defer span.End()

	r := &run{
		analyzer:   a,
		documentID: documentID,
		filename:   filename,
		experts:    experts,
		started:    a.now(),
		logger:     a.logger.With(map[string]interface{}{"documentId": documentID}),
	}
	r.logger.Info("Starting document processing", nil)

	analysis, err := r.execute(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.DocumentsProcessed.WithLabelValues(models.StatusFailed).Inc()
		r.logger.WithError(err).Error("Document processing failed", map[string]interface{}{
			"step": r.step,
		})

		failed := models.ProcessingStatus{
			DocumentID:  documentID,
			Status:      models.StatusFailed,
			Progress:    r.progress,
			CurrentStep: r.step,
			Error:       err.Error(),
			UpdatedAt:   a.now(),
		}
		if serr := a.store.SaveStatus(context.WithoutCancel(ctx), failed); serr != nil {
			r.logger.WithError(serr).Warn("Failed to record failed status", nil)
		}
		return nil, err
	}

	metrics.DocumentsProcessed.WithLabelValues(models.StatusCompleted).Inc()
	metrics.DocumentRiskScore.Observe(analysis.OverallRiskScore)
	a.publish(ctx, r.logger, *analysis)

	r.logger.Info("Document processing completed", map[string]interface{}{
		"clauses":          len(analysis.Clauses),
		"overallRisk":      analysis.OverallRiskScore,
		"processingTimeMs": analysis.ProcessingTimeMs,
	})
	return analysis, nil
}

// publish hands a completed analysis to the archive and the clause index.
// Both are best effort.
func (a *Analyzer) publish(ctx context.Context, log logger.Logger, analysis models.DocumentAnalysis) {
	if a.options.Archive != nil {
		if err := a.options.Archive.Save(ctx, analysis); err != nil {
			log.WithError(err).Warn("Failed to archive analysis", nil)
		}
	}
	if a.options.Index != nil {
		if err := a.options.Index.IndexClauses(ctx, analysis.DocumentID, analysis.Clauses); err != nil {
			log.WithError(err).Warn("Failed to index clauses", nil)
		}
	}
}

// Status returns the document's processing status.
func (a *Analyzer) Status(ctx context.Context, documentID string) (models.ProcessingStatus, error) {
	status, err := a.store.Status(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		return status, apperrors.NewDocumentNotFoundError(documentID)
	}
	return status, err
}

// Analysis returns the compiled analysis. A known document that has not
// completed yields DOCUMENT_NOT_ANALYZED.
func (a *Analyzer) Analysis(ctx context.Context, documentID string) (models.DocumentAnalysis, error) {
	analysis, err := a.store.Analysis(ctx, documentID)
	if err == nil {
		return analysis, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return analysis, err
	}
	if _, serr := a.Status(ctx, documentID); serr != nil {
		return analysis, serr
	}
	return analysis, apperrors.NewDocumentNotAnalyzedError(documentID)
}

// Query answers a question about an analyzed document and records it in the
// document's history.
func (a *Analyzer) Query(ctx context.Context, documentID, query string) (models.QueryResult, error) {
	analysis, err := a.Analysis(ctx, documentID)
	if err != nil {
		return models.QueryResult{}, err
	}
	if len(analysis.Clauses) == 0 {
		return models.QueryResult{}, apperrors.NewDocumentNotAnalyzedError(documentID)
	}

	doc, err := a.store.Text(ctx, documentID)
	if errors.Is(err, ErrNotFound) {
		return models.QueryResult{}, apperrors.NewDocumentNotAnalyzedError(documentID)
	}
	if err != nil {
		return models.QueryResult{}, err
	}

	ctx, span := a.tracer.Start(ctx, "pipeline.query", trace.WithAttributes(attribute.String("document.id", documentID)))
	defer span.End()

	result, err := a.engine.Answer(ctx, documentID, query, doc.Text, analysis.Clauses)
	if errors.Is(err, relevance.ErrEmptyQuery) {
		return models.QueryResult{}, apperrors.NewInvalidRequestError(err.Error())
	}
	if err != nil {
		return models.QueryResult{}, err
	}

	if err := a.store.AppendQuery(ctx, result); err != nil {
		a.logger.WithError(err).Warn("Failed to record query history", map[string]interface{}{"documentId": documentID})
	}
	return result, nil
}

func (a *Analyzer) QueryHistory(ctx context.Context, documentID string) ([]models.QueryResult, error) {
	if _, err := a.Status(ctx, documentID); err != nil {
		return nil, err
	}
	return a.store.Queries(ctx, documentID)
}

func (a *Analyzer) QueryStats(ctx context.Context, documentID string) (relevance.QueryStats, error) {
	history, err := a.QueryHistory(ctx, documentID)
	if err != nil {
		return relevance.QueryStats{}, err
	}
	return relevance.QueryStatistics(history), nil
}

// Suggestions proposes questions for an analyzed document.
func (a *Analyzer) Suggestions(ctx context.Context, documentID string) ([]string, error) {
	analysis, err := a.Analysis(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return relevance.SuggestQuestions(analysis.Clauses), nil
}

// Reassess recomputes the risk view from the stored clauses without calling
// any collaborator.
func (a *Analyzer) Reassess(ctx context.Context, documentID string) (*RiskReport, error) {
	analysis, err := a.Analysis(ctx, documentID)
	if err != nil {
		return nil, err
	}
	result := risk.Assess(analysis.Clauses)
	return &RiskReport{
		DocumentID:    documentID,
		Assessment:    result,
		Summary:       risk.Summarize(result),
		Interactions:  risk.AnalyzeInteractions(analysis.Clauses),
		Statistics:    postprocess.Statistics(analysis.Clauses),
		Relationships: postprocess.Relationships(analysis.Clauses),
	}, nil
}

// EnhancedAnalysis is an analysis together with which expert sections it
// carries.
type EnhancedAnalysis struct {
	models.DocumentAnalysis
	HasExpertReview   bool     `json:"hasExpertReview"`
	SectionsAvailable []string `json:"sectionsAvailable"`
}

// ExpertAnalysis returns the stored analysis with its expert review summary.
func (a *Analyzer) ExpertAnalysis(ctx context.Context, documentID string) (EnhancedAnalysis, error) {
	analysis, err := a.Analysis(ctx, documentID)
	if err != nil {
		return EnhancedAnalysis{}, err
	}
	out := EnhancedAnalysis{DocumentAnalysis: analysis, SectionsAvailable: []string{}}
	if review := analysis.ExpertReview; review != nil {
		for _, role := range models.ExpertRoles {
			if _, ok := review.Sections[role.Section()]; ok {
				out.SectionsAvailable = append(out.SectionsAvailable, role.Section())
			}
		}
		out.HasExpertReview = len(out.SectionsAvailable) > 0
	}
	return out, nil
}

// SystemStatus describes the core pipeline and the expert panel.
type SystemStatus struct {
	Core             string      `json:"coreSystem"`
	ExpertsEnabled   bool        `json:"expertPanelEnabled"`
	ExpertsAvailable bool        `json:"expertPanelAvailable"`
	ExpertRoles      []string    `json:"expertRoles,omitempty"`
	Counts           StoreCounts `json:"counts"`
	Timestamp        time.Time   `json:"timestamp"`
}

// SystemStatus reports panel availability and how many documents the store
// currently holds.
func (a *Analyzer) SystemStatus(ctx context.Context) (SystemStatus, error) {
	counts, err := a.store.Counts(ctx)
	if err != nil {
		return SystemStatus{}, err
	}
	status := SystemStatus{
		Core:             "operational",
		ExpertsEnabled:   a.options.ExpertPanelEnabled,
		ExpertsAvailable: a.panel != nil,
		Counts:           counts,
		Timestamp:        a.now(),
	}
	if a.panel != nil {
		for _, role := range a.panel.Roles() {
			status.ExpertRoles = append(status.ExpertRoles, role.Title())
		}
	}
	return status, nil
}

// Delete drops all stored state for a document.
func (a *Analyzer) Delete(ctx context.Context, documentID string) error {
	a.logger.Info("Deleting document state", map[string]interface{}{"documentId": documentID})
	return a.store.Delete(ctx, documentID)
}

// run carries the state of one Process call.
type run struct {
	analyzer   *Analyzer
	documentID string
	filename   string
	experts    bool
	started    time.Time
	progress   int
	step       string
	logger     logger.Logger
}

func (r *run) execute(ctx context.Context, text string) (*models.DocumentAnalysis, error) {
	a := r.analyzer

	var doc models.RawDocumentText
	err := r.stage(ctx, "extract", 20, "Extracting text from document", func(ctx context.Context) error {
		cleaned := textproc.Clean(text)
		if strings.TrimSpace(cleaned) == "" {
			return apperrors.NewEmptyDocumentError(r.documentID)
		}
		stats := textproc.ComputeStats(cleaned)
		doc = models.RawDocumentText{
			DocumentID: r.documentID,
			Filename:   r.filename,
			Text:       cleaned,
			WordCount:  stats.WordCount,
			PageCount:  stats.EstimatedPages,
		}
		r.logger.Info("Text extraction completed", map[string]interface{}{"wordCount": doc.WordCount})
		return a.store.SaveText(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	var clauses []models.LegalClause
	err = r.stage(ctx, "clauses", 40, "Analyzing legal clauses", func(ctx context.Context) error {
		candidates := a.segmenter.Segment(doc.Text)
		results, err := a.gateway.Enrich(ctx, r.documentID, candidates)
		if err != nil {
			return err
		}
		enriched := enrichment.Clauses(results)
		clauses = postprocess.ValidateAndRank(enriched)
		r.logger.Info("Legal analysis completed", map[string]interface{}{
			"candidates": len(candidates),
			"enriched":   len(enriched),
			"clauses":    len(clauses),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	var assessment models.RiskAssessmentResult
	err = r.stage(ctx, "risk", 60, "Assessing risk levels", func(ctx context.Context) error {
		if a.options.EnhancementEnabled {
			clauses, _ = a.enhancer.Enhance(ctx, clauses)
			postprocess.SortByRisk(clauses)
		}
		assessment = risk.Assess(clauses)
		r.logger.Info("Risk assessment completed", map[string]interface{}{"overallRisk": assessment.OverallRisk})
		return nil
	})
	if err != nil {
		return nil, err
	}

	docType := models.DocumentTypeOther
	summary := defaultSummary()
	err = r.stage(ctx, "summary", 80, "Generating document summary", func(ctx context.Context) error {
		docType = r.classify(ctx, doc.Text)
		summary = r.summarize(ctx, doc.Text)
		return nil
	})
	if err != nil {
		return nil, err
	}

	explanation := defaultExplanation()
	err = r.stage(ctx, "explanation", 85, "Creating comprehensive explanation", func(ctx context.Context) error {
		explanation = r.explain(ctx, doc.Text, docType, clauses)
		return nil
	})
	if err != nil {
		return nil, err
	}

	var analysis models.DocumentAnalysis
	err = r.stage(ctx, "compile", 90, "Compiling analysis results", func(ctx context.Context) error {
		if clauses == nil {
			clauses = []models.LegalClause{}
		}
		completed := a.now()
		analysis = models.DocumentAnalysis{
			DocumentID:       r.documentID,
			Filename:         r.filename,
			DocumentType:     docType,
			OverallRiskScore: assessment.OverallRisk,
			Summary:          summary,
			Explanation:      explanation,
			Clauses:          clauses,
			Assessment:       assessment,
			RiskCategories:   RiskCategories(clauses),
			Recommendations:  DocumentRecommendations(clauses, assessment.OverallRisk),
			RedFlags:         RedFlags(clauses),
			WordCount:        doc.WordCount,
			PageCount:        doc.PageCount,
			ProcessingTimeMs: completed.Sub(r.started).Milliseconds(),
			CompletedAt:      completed,
		}
		return a.store.SaveAnalysis(ctx, analysis)
	})
	if err != nil {
		return nil, err
	}

	if r.experts {
		err = r.stage(ctx, "experts", 95, "Enhancing analysis with expert agents", func(ctx context.Context) error {
			if !a.ExpertsAvailable() {
				r.logger.Info("Expert review skipped", map[string]interface{}{"configured": a.panel != nil})
				return nil
			}
			review, err := a.panel.Review(ctx, analysis)
			if err != nil {
				return err
			}
			applyExpertReview(&analysis, review)
			return a.store.SaveAnalysis(ctx, analysis)
		})
		if err != nil {
			return nil, err
		}
	}

	r.progress, r.step = 100, "Analysis complete"
	err = a.store.SaveStatus(ctx, models.ProcessingStatus{
		DocumentID:  r.documentID,
		Status:      models.StatusCompleted,
		Progress:    r.progress,
		CurrentStep: r.step,
		UpdatedAt:   a.now(),
	})
	if err != nil {
		return nil, err
	}
	return &analysis, nil
}

// stage records progress, then runs fn inside a span and times it.
func (r *run) stage(ctx context.Context, name string, progress int, step string, fn func(ctx context.Context) error) error {
	a := r.analyzer
	r.progress, r.step = progress, step

	if err := ctx.Err(); err != nil {
		return err
	}
	err := a.store.SaveStatus(ctx, models.ProcessingStatus{
		DocumentID:  r.documentID,
		Status:      models.StatusProcessing,
		Progress:    progress,
		CurrentStep: step,
		UpdatedAt:   a.now(),
	})
	if err != nil {
		return err
	}

	ctx, span := a.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	start := time.Now()
	err = fn(ctx)
	metrics.PipelineStageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *run) classify(ctx context.Context, text string) models.DocumentType {
	c := r.analyzer.collab.Classifier
	if c == nil {
		return models.DocumentTypeOther
	}
	docType, err := c.Classify(ctx, text)
	if err != nil {
		r.logger.WithError(err).Warn("Document classification failed", nil)
		return models.DocumentTypeOther
	}
	return docType
}

func (r *run) summarize(ctx context.Context, text string) models.DocumentSummary {
	s := r.analyzer.collab.Summarizer
	if s == nil {
		return defaultSummary()
	}
	summary, err := s.Summarize(ctx, text)
	if err != nil || summary == nil {
		r.logger.WithError(err).Warn("Document summary failed", nil)
		return defaultSummary()
	}
	return *summary
}

func (r *run) explain(ctx context.Context, text string, docType models.DocumentType, clauses []models.LegalClause) models.DocumentExplanation {
	e := r.analyzer.collab.Explainer
	if e == nil {
		return defaultExplanation()
	}
	explanation, err := e.Explain(ctx, text, docType, clauses)
	if err != nil || explanation == nil {
		r.logger.WithError(err).Warn("Document explanation failed", nil)
		return defaultExplanation()
	}
	return *explanation
}

func defaultSummary() models.DocumentSummary {
	return models.DocumentSummary{
		Parties:     []string{},
		KeyDates:    []string{},
		KeyAmounts:  []string{},
		MainPurpose: "Unable to determine",
	}
}

func defaultExplanation() models.DocumentExplanation {
	return models.DocumentExplanation{
		DocumentExplanation: "Unable to generate explanation",
		KeyProvisions:       []string{},
		LegalImplications:   []string{},
		PracticalImpact:     "Unable to determine practical impact",
		ClauseSummaries:     []string{},
	}
}
