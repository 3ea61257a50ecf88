// cmd/worker-manager/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/slack-go/slack"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"legal-analyzer/internal/api"
	"legal-analyzer/internal/common/aws"
	"legal-analyzer/internal/common/camunda"
	"legal-analyzer/internal/common/config"
	"legal-analyzer/internal/common/database"
	"legal-analyzer/internal/common/logger"
	"legal-analyzer/internal/common/observability"
	"legal-analyzer/internal/genai"
	"legal-analyzer/internal/pipeline"
	"legal-analyzer/internal/storage"

	ad "legal-analyzer/internal/workers/legal/analyze-document"
	aq "legal-analyzer/internal/workers/legal/answer-query"
	ar "legal-analyzer/internal/workers/legal/assess-risk"
	nra "legal-analyzer/internal/workers/legal/notify-risk-alert"
	sc "legal-analyzer/internal/workers/legal/search-clauses"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	outputs := []string{}
	if cfg.Logging.Output != "" {
		outputs = append(outputs, cfg.Logging.Output)
	}
	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, outputs...)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting legal analyzer",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs, err := observability.New(cfg.App.Name, cfg.Observability)
	if err != nil {
		zapLog.Fatal("observability init failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Redis (document store) ---
	redis := database.NewRedis(cfg.Database.Redis)
	err = retryWithBackoff(func() error { return redis.Ping(ctx) }, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- PostgreSQL (analysis archive) ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Migrate(ctx, storage.ArchiveSchema...); err != nil {
		zapLog.Fatal("archive migration failed", zap.Error(err))
	}
	zapLog.Info("PostgreSQL connected successfully")

	// --- Elasticsearch (clause index) ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	clauseIndex := storage.NewClauseIndex(esClient.Client, cfg.Storage.ClauseIndex, log)
	if err := esClient.EnsureIndex(ctx, clauseIndex.Index(), storage.ClauseIndexMapping); err != nil {
		zapLog.Fatal("clause index setup failed", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- AWS (blobs, alerts) ---
	storageAWS, err := aws.LoadConfig(ctx, cfg.Storage.S3Region, aws.Credentials{
		AccessKey: cfg.Storage.S3AccessKey,
		SecretKey: cfg.Storage.S3SecretKey,
	})
	if err != nil {
		zapLog.Fatal("aws config load failed", zap.Error(err))
	}
	var blobs *storage.BlobStore
	if cfg.Storage.S3Bucket != "" {
		blobs = storage.NewBlobStore(aws.NewS3Client(storageAWS), cfg.Storage.S3Bucket)
	} else {
		zapLog.Warn("storage.s3_bucket not set, uploaded originals are not kept")
	}

	senders, err := notificationSenders(ctx, cfg.Notifications)
	if err != nil {
		zapLog.Fatal("notification clients failed", zap.Error(err))
	}

	// --- LLM collaborator ---
	provider, err := genai.NewProvider(ctx, cfg.APIs.GenAI, log)
	if err != nil {
		zapLog.Fatal("genai provider init failed", zap.Error(err))
	}
	if c, ok := provider.(io.Closer); ok {
		defer c.Close()
	}
	llm := genai.NewClient(provider, log)

	// --- Pipeline ---
	archive := storage.NewArchive(pg.DB, log)
	opts := pipeline.OptionsFromConfig(cfg.Analysis)
	opts.Archive = archive
	opts.Index = clauseIndex

	analyzer, err := pipeline.NewAnalyzer(
		pipeline.NewRedisStore(redis.Client, cfg.Analysis.DocumentTTL()),
		pipeline.Collaborators{
			ClauseAnalyzer: llm,
			RiskReviewer:   llm,
			QueryAnswerer:  llm,
			Summarizer:     llm,
			Classifier:     llm,
			Explainer:      llm,
			Experts:        llm,
		},
		opts,
		log,
	)
	if err != nil {
		zapLog.Fatal("analyzer init failed", zap.Error(err))
	}

	janitor, err := pipeline.NewJanitor(archive, cfg.Analysis.JanitorSchedule, cfg.Analysis.ArchiveRetention(), log)
	if err != nil {
		zapLog.Fatal("janitor init failed", zap.Error(err))
	}
	janitor.Start()

	// --- Zeebe ---
	var zeebe *camunda.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebe, err = camunda.NewClient(cfg.Camunda.BrokerAddress, config.GetDuration(cfg.Camunda.RequestTimeout))
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Workers ---
	var workers []*camunda.CamundaWorker
	register := func(taskType string, handler worker.JobHandler) {
		if !config.IsWorkerEnabled(cfg, taskType) {
			zapLog.Info("worker disabled", zap.String("taskType", taskType))
			return
		}
		workers = append(workers, camunda.NewWorker(
			zeebe.GetClient(), taskType, config.GetWorkerConfig(cfg, taskType), traced(obs, taskType, handler), log,
		))
	}

	var blobReader ad.BlobReader
	if blobs != nil {
		blobReader = blobs
	}
	analyzeHandler := ad.NewHandler(ad.LoadConfig(config.GetWorkerConfig(cfg, ad.TaskType)), analyzer, blobReader, log)
	register(ad.TaskType, analyzeHandler.Handle)

	assessHandler := ar.NewHandler(ar.LoadConfig(config.GetWorkerConfig(cfg, ar.TaskType)), analyzer, log)
	register(ar.TaskType, assessHandler.Handle)

	answerHandler := aq.NewHandler(aq.LoadConfig(config.GetWorkerConfig(cfg, aq.TaskType)), analyzer, log)
	register(aq.TaskType, answerHandler.Handle)

	searchHandler := sc.NewHandler(sc.LoadConfig(config.GetWorkerConfig(cfg, sc.TaskType)), clauseIndex, log)
	register(sc.TaskType, searchHandler.Handle)

	notifyHandler := nra.NewHandler(
		nra.LoadConfig(config.GetWorkerConfig(cfg, nra.TaskType), cfg.Notifications), senders, log,
	)
	register(nra.TaskType, notifyHandler.Handle)

	zapLog.Info("Workers registered", zap.Int("count", len(workers)))

	// --- HTTP API ---
	deps := api.Deps{
		Documents: analyzer,
		Search:    clauseIndex,
		Readiness: map[string]database.Pinger{
			"redis":         redis,
			"postgres":      pg,
			"elasticsearch": esClient,
			"zeebe":         database.PingerFunc(zeebe.HealthCheck),
		},
	}
	if blobs != nil {
		deps.Blobs = blobs
	}
	server := api.NewServer(deps, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Run(ctx, cfg.HTTP.Address)
	}()

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, stopping workers...")
		err = <-errCh
	case err = <-errCh:
		stop()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		zapLog.Error("HTTP API failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, w := range workers {
		w.Stop()
	}
	server.Close()
	janitor.Stop(shutdownCtx)

	if err := zeebe.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error flushing telemetry", zap.Error(err))
	}

	zapLog.Info("Legal analyzer stopped gracefully")
}

// notificationSenders builds the alert clients that are configured. Missing
// settings leave the corresponding sender nil.
func notificationSenders(ctx context.Context, ncfg config.NotificationConfig) (nra.Senders, error) {
	var senders nra.Senders
	if ncfg.SNSTopicARN != "" || ncfg.SESFrom != "" {
		awsCfg, err := aws.LoadConfig(ctx, ncfg.Region, aws.Credentials{})
		if err != nil {
			return senders, err
		}
		if ncfg.SNSTopicARN != "" {
			senders.SNS = aws.NewSNSClient(awsCfg)
		}
		if ncfg.SESFrom != "" {
			senders.SES = aws.NewSESClient(awsCfg)
		}
	}
	if ncfg.SlackToken != "" {
		senders.Slack = slack.New(ncfg.SlackToken)
	}
	return senders, nil
}

// traced wraps a job handler in a span and records the otel job counters.
func traced(obs *observability.Observability, taskType string, handler worker.JobHandler) worker.JobHandler {
	return func(client worker.JobClient, job entities.Job) {
		ctx, span := obs.StartSpan(context.Background(), "job "+taskType,
			attribute.String("task_type", taskType),
			attribute.Int64("job_key", job.Key),
			attribute.Int64("process_instance_key", job.ProcessInstanceKey),
		)
		defer span.End()

		start := time.Now()
		handler(client, job)
		obs.RecordJobDuration(ctx, taskType, time.Since(start))
		obs.RecordJobProcessed(ctx, taskType, "handled")
	}
}
