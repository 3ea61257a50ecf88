// internal/pipeline/store.go
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "legal-analyzer/internal/common/errors"
	"legal-analyzer/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by a Store when the key does not exist or has expired.
var ErrNotFound = errors.New("DOCUMENT_STATE_NOT_FOUND")

const (
	keyPrefix       = "legal:doc:"
	maxQueryHistory = 100
)

// Store holds per-document pipeline state. Entries live until Delete or until
// the store's TTL elapses.
type Store interface {
	SaveStatus(ctx context.Context, status models.ProcessingStatus) error
	Status(ctx context.Context, documentID string) (models.ProcessingStatus, error)
	SaveText(ctx context.Context, doc models.RawDocumentText) error
	Text(ctx context.Context, documentID string) (models.RawDocumentText, error)
	SaveAnalysis(ctx context.Context, analysis models.DocumentAnalysis) error
	Analysis(ctx context.Context, documentID string) (models.DocumentAnalysis, error)
	AppendQuery(ctx context.Context, result models.QueryResult) error
	Queries(ctx context.Context, documentID string) ([]models.QueryResult, error)
	Delete(ctx context.Context, documentID string) error
	Counts(ctx context.Context) (StoreCounts, error)
}

// StoreCounts reports how many documents currently have state in the store.
type StoreCounts struct {
	Documents int `json:"activeDocuments"`
	Analyses  int `json:"completedAnalyses"`
}

// RedisStore keeps document state as JSON values under legal:doc:{id}:*.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func statusKey(id string) string   { return keyPrefix + id + ":status" }
func textKey(id string) string     { return keyPrefix + id + ":text" }
func analysisKey(id string) string { return keyPrefix + id + ":analysis" }
func queriesKey(id string) string  { return keyPrefix + id + ":queries" }

func (s *RedisStore) SaveStatus(ctx context.Context, status models.ProcessingStatus) error {
	return s.set(ctx, statusKey(status.DocumentID), status)
}

func (s *RedisStore) Status(ctx context.Context, documentID string) (models.ProcessingStatus, error) {
	var status models.ProcessingStatus
	err := s.get(ctx, statusKey(documentID), &status)
	return status, err
}

func (s *RedisStore) SaveText(ctx context.Context, doc models.RawDocumentText) error {
	return s.set(ctx, textKey(doc.DocumentID), doc)
}

func (s *RedisStore) Text(ctx context.Context, documentID string) (models.RawDocumentText, error) {
	var doc models.RawDocumentText
	err := s.get(ctx, textKey(documentID), &doc)
	return doc, err
}

func (s *RedisStore) SaveAnalysis(ctx context.Context, analysis models.DocumentAnalysis) error {
	return s.set(ctx, analysisKey(analysis.DocumentID), analysis)
}

func (s *RedisStore) Analysis(ctx context.Context, documentID string) (models.DocumentAnalysis, error) {
	var analysis models.DocumentAnalysis
	err := s.get(ctx, analysisKey(documentID), &analysis)
	return analysis, err
}

// AppendQuery pushes a result onto the document's history, keeping the most
// recent entries only.
func (s *RedisStore) AppendQuery(ctx context.Context, result models.QueryResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal query result: %w", err)
	}

	key := queriesKey(result.DocumentID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, -maxQueryHistory, -1)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}

// Queries returns the history oldest first. An unknown document has no history.
func (s *RedisStore) Queries(ctx context.Context, documentID string) ([]models.QueryResult, error) {
	values, err := s.client.LRange(ctx, queriesKey(documentID), 0, -1).Result()
	if err != nil {
		return nil, apperrors.NewStoreUnavailableError(err)
	}

	history := make([]models.QueryResult, 0, len(values))
	for _, v := range values {
		var r models.QueryResult
		if err := json.Unmarshal([]byte(v), &r); err != nil {
			return nil, fmt.Errorf("decode query history: %w", err)
		}
		history = append(history, r)
	}
	return history, nil
}

// Counts scans the keyspace, so it is meant for status pages, not hot paths.
func (s *RedisStore) Counts(ctx context.Context) (StoreCounts, error) {
	docs, err := s.countKeys(ctx, keyPrefix+"*:status")
	if err != nil {
		return StoreCounts{}, err
	}
	analyses, err := s.countKeys(ctx, keyPrefix+"*:analysis")
	if err != nil {
		return StoreCounts{}, err
	}
	return StoreCounts{Documents: docs, Analyses: analyses}, nil
}

func (s *RedisStore) countKeys(ctx context.Context, pattern string) (int, error) {
	n := 0
	iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		return 0, apperrors.NewStoreUnavailableError(err)
	}
	return n, nil
}

func (s *RedisStore) Delete(ctx context.Context, documentID string) error {
	err := s.client.Del(ctx,
		statusKey(documentID),
		textKey(documentID),
		analysisKey(documentID),
		queriesKey(documentID),
	).Err()
	if err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}

func (s *RedisStore) set(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, data, s.ttl).Err(); err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	return nil
}

func (s *RedisStore) get(ctx context.Context, key string, v interface{}) error {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return apperrors.NewStoreUnavailableError(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
