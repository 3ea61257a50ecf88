package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newMiniredisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, ttl), mr
}

// ==========================
// Round trips
// ==========================

func TestRedisStore_StatusRoundTrip(t *testing.T) {
	store, mr := newMiniredisStore(t, time.Hour)
	ctx := context.Background()

	status := models.ProcessingStatus{
		DocumentID:  "doc-1",
		Status:      models.StatusProcessing,
		Progress:    40,
		CurrentStep: "Analyzing legal clauses",
		UpdatedAt:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.SaveStatus(ctx, status))

	got, err := store.Status(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, status, got)
	assert.Equal(t, time.Hour, mr.TTL("legal:doc:doc-1:status"))
}

func TestRedisStore_TextAndAnalysis(t *testing.T) {
	store, _ := newMiniredisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SaveText(ctx, models.RawDocumentText{DocumentID: "doc-1", Text: "body", WordCount: 1}))
	require.NoError(t, store.SaveAnalysis(ctx, models.DocumentAnalysis{
		DocumentID:       "doc-1",
		OverallRiskScore: 6.5,
		Clauses:          []models.LegalClause{{ClauseID: "doc-1_0_abcdef12", RiskScore: 6}},
	}))

	doc, err := store.Text(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "body", doc.Text)

	analysis, err := store.Analysis(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 6.5, analysis.OverallRiskScore)
	require.Len(t, analysis.Clauses, 1)
	assert.Equal(t, "doc-1_0_abcdef12", analysis.Clauses[0].ClauseID)
}

func TestRedisStore_Expiry(t *testing.T) {
	store, mr := newMiniredisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.SaveStatus(ctx, models.ProcessingStatus{DocumentID: "doc-1", Status: models.StatusQueued}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Status(ctx, "doc-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Missing(t *testing.T) {
	store, _ := newMiniredisStore(t, time.Hour)

	_, err := store.Analysis(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	history, err := store.Queries(context.Background(), "nope")
	require.NoError(t, err)
	assert.Empty(t, history)
}

// ==========================
// Query history
// ==========================

func TestRedisStore_QueryHistoryIsTrimmed(t *testing.T) {
	store, mr := newMiniredisStore(t, time.Hour)
	ctx := context.Background()

	for i := 0; i < maxQueryHistory+5; i++ {
		require.NoError(t, store.AppendQuery(ctx, models.QueryResult{
			DocumentID: "doc-1",
			Query:      fmt.Sprintf("question %d", i),
		}))
	}

	history, err := store.Queries(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, history, maxQueryHistory)
	assert.Equal(t, "question 5", history[0].Query)
	assert.Equal(t, fmt.Sprintf("question %d", maxQueryHistory+4), history[len(history)-1].Query)
	assert.Equal(t, time.Hour, mr.TTL("legal:doc:doc-1:queries"))
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := newMiniredisStore(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.SaveStatus(ctx, models.ProcessingStatus{DocumentID: "doc-1"}))
	require.NoError(t, store.SaveText(ctx, models.RawDocumentText{DocumentID: "doc-1"}))
	require.NoError(t, store.AppendQuery(ctx, models.QueryResult{DocumentID: "doc-1"}))

	require.NoError(t, store.Delete(ctx, "doc-1"))

	assert.False(t, mr.Exists("legal:doc:doc-1:status"))
	assert.False(t, mr.Exists("legal:doc:doc-1:text"))
	assert.False(t, mr.Exists("legal:doc:doc-1:queries"))
}

func TestRedisStore_Counts(t *testing.T) {
	store, mr := newMiniredisStore(t, time.Hour)
	ctx := context.Background()

	for _, id := range []string{"doc-1", "doc-2", "doc-3"} {
		require.NoError(t, store.SaveStatus(ctx, models.ProcessingStatus{DocumentID: id}))
	}
	require.NoError(t, store.SaveAnalysis(ctx, models.DocumentAnalysis{DocumentID: "doc-2"}))
	require.NoError(t, mr.Set("unrelated:key", "x"))

	counts, err := store.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, StoreCounts{Documents: 3, Analyses: 1}, counts)
}

// ==========================
// Error paths
// ==========================

func TestRedisStore_BackendErrors(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewRedisStore(client, time.Hour)
	ctx := context.Background()

	mock.ExpectGet("legal:doc:doc-1:status").SetErr(errors.New("connection refused"))
	_, err := store.Status(ctx, "doc-1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))

	mock.ExpectLRange("legal:doc:doc-1:queries", 0, -1).SetErr(errors.New("connection refused"))
	_, err = store.Queries(ctx, "doc-1")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))

	mock.ExpectScan(0, "legal:doc:*:status", 100).SetErr(errors.New("connection refused"))
	_, err = store.Counts(ctx)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))

	mock.ExpectGet("legal:doc:doc-2:text").SetVal("{not json")
	_, err = store.Text(ctx, "doc-2")
	require.Error(t, err)
	assert.False(t, apperrors.HasCode(err, apperrors.ErrCodeStoreUnavailable))

	assert.NoError(t, mock.ExpectationsWereMet())
}
