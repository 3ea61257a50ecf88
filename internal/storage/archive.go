// internal/storage/archive.go
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/models"

	"github.com/lib/pq"
)

// ArchiveSchema creates the archive table; every statement is idempotent.
var ArchiveSchema = []string{
	`CREATE TABLE IF NOT EXISTS document_analyses (
		document_id   TEXT PRIMARY KEY,
		filename      TEXT NOT NULL,
		document_type TEXT NOT NULL,
		overall_risk  DOUBLE PRECISION NOT NULL,
		clause_count  INTEGER NOT NULL,
		red_flags     TEXT[] NOT NULL DEFAULT '{}',
		analysis      JSONB NOT NULL,
		completed_at  TIMESTAMPTZ NOT NULL,
		archived_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_analyses_completed_at ON document_analyses (completed_at)`,
	`CREATE INDEX IF NOT EXISTS idx_document_analyses_overall_risk ON document_analyses (overall_risk)`,
}

const (
	upsertAnalysisQuery = `
		INSERT INTO document_analyses
			(document_id, filename, document_type, overall_risk, clause_count, red_flags, analysis, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (document_id) DO UPDATE SET
			filename = EXCLUDED.filename,
			document_type = EXCLUDED.document_type,
			overall_risk = EXCLUDED.overall_risk,
			clause_count = EXCLUDED.clause_count,
			red_flags = EXCLUDED.red_flags,
			analysis = EXCLUDED.analysis,
			completed_at = EXCLUDED.completed_at,
			archived_at = NOW()`

	getAnalysisQuery = `SELECT analysis FROM document_analyses WHERE document_id = $1`

	highRiskQuery = `
		SELECT document_id, filename, document_type, overall_risk, clause_count, red_flags, completed_at
		FROM document_analyses
		WHERE overall_risk >= $1
		ORDER BY overall_risk DESC, completed_at DESC
		LIMIT $2`

	purgeQuery = `DELETE FROM document_analyses WHERE completed_at < $1`
)

// ArchivedDocument is the listing row for an archived analysis.
type ArchivedDocument struct {
	DocumentID   string              `json:"documentId"`
	Filename     string              `json:"filename"`
	DocumentType models.DocumentType `json:"documentType"`
	OverallRisk  float64             `json:"overallRisk"`
	ClauseCount  int                 `json:"clauseCount"`
	RedFlags     []string            `json:"redFlags"`
	CompletedAt  time.Time           `json:"completedAt"`
}

// Archive stores completed analyses in postgres.
type Archive struct {
	db     *sql.DB
	logger logger.Logger
}

func NewArchive(db *sql.DB, log logger.Logger) *Archive {
	return &Archive{
		db:     db,
		logger: log.With(map[string]interface{}{"component": "archive"}),
	}
}

// Save inserts or replaces the archived copy of analysis.
func (a *Archive) Save(ctx context.Context, analysis models.DocumentAnalysis) error {
	payload, err := json.Marshal(analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	redFlags := analysis.RedFlags
	if redFlags == nil {
		redFlags = []string{}
	}

	_, err = a.db.ExecContext(ctx, upsertAnalysisQuery,
		analysis.DocumentID,
		analysis.Filename,
		string(analysis.DocumentType),
		analysis.OverallRiskScore,
		len(analysis.Clauses),
		pq.Array(redFlags),
		payload,
		analysis.CompletedAt,
	)
	if err != nil {
		return apperrors.NewArchiveFailedError(err)
	}

	a.logger.Debug("Analysis archived", map[string]interface{}{"documentId": analysis.DocumentID})
	return nil
}

// Get loads an archived analysis.
func (a *Archive) Get(ctx context.Context, documentID string) (models.DocumentAnalysis, error) {
	var analysis models.DocumentAnalysis
	var payload []byte

	err := a.db.QueryRowContext(ctx, getAnalysisQuery, documentID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return analysis, apperrors.NewDocumentNotFoundError(documentID)
	}
	if err != nil {
		return analysis, apperrors.NewArchiveFailedError(err)
	}
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return analysis, fmt.Errorf("decode archived analysis: %w", err)
	}
	return analysis, nil
}

// HighRisk lists archived documents scoring at least minRisk, riskiest first.
func (a *Archive) HighRisk(ctx context.Context, minRisk float64, limit int) ([]ArchivedDocument, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, highRiskQuery, minRisk, limit)
	if err != nil {
		return nil, apperrors.NewArchiveFailedError(err)
	}
	defer rows.Close()

	docs := []ArchivedDocument{}
	for rows.Next() {
		var d ArchivedDocument
		var docType string
		if err := rows.Scan(&d.DocumentID, &d.Filename, &docType, &d.OverallRisk, &d.ClauseCount,
			pq.Array(&d.RedFlags), &d.CompletedAt); err != nil {
			return nil, apperrors.NewArchiveFailedError(err)
		}
		d.DocumentType = models.ParseDocumentType(docType)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewArchiveFailedError(err)
	}
	return docs, nil
}

// PurgeOlderThan deletes analyses completed before cutoff and reports how many
// rows were removed.
func (a *Archive) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := a.db.ExecContext(ctx, purgeQuery, cutoff)
	if err != nil {
		return 0, apperrors.NewArchiveFailedError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperrors.NewArchiveFailedError(err)
	}
	return n, nil
}
