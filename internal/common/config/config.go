// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Analysis      AnalysisConfig          `mapstructure:"analysis"`
	Storage       StorageConfig           `mapstructure:"storage"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	HTTP          HTTPConfig              `mapstructure:"http"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	URL       string   `mapstructure:"url"`
}

// GetURL returns the URL field or the first address.
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Domain Configuration Sections ---

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	GenAI GenAIConfig `mapstructure:"genai"`
}

// GenAIConfig selects and tunes the LLM collaborator. Provider is one of gateway, gemini, anthropic.
type GenAIConfig struct {
	Provider    string  `mapstructure:"provider"`
	BaseURL     string  `mapstructure:"base_url"`
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
	MaxRetries  int     `mapstructure:"max_retries"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

// AnalysisConfig tunes the clause pipeline.
type AnalysisConfig struct {
	BatchSize            int    `mapstructure:"batch_size"`
	BatchDelayMs         int    `mapstructure:"batch_delay_ms"`
	MaxCandidates        int    `mapstructure:"max_candidates"`
	EnhancementEnabled   bool   `mapstructure:"enhancement_enabled"`
	ExpertPanelEnabled   bool   `mapstructure:"expert_panel_enabled"`
	DocumentTTLHours     int    `mapstructure:"document_ttl_hours"`
	ArchiveRetentionDays int    `mapstructure:"archive_retention_days"`
	JanitorSchedule      string `mapstructure:"janitor_schedule"`
}

// BatchDelay returns the pause between enrichment batches.
func (a AnalysisConfig) BatchDelay() time.Duration {
	return GetDuration(a.BatchDelayMs)
}

// DocumentTTL returns how long per-document state is kept in the store.
func (a AnalysisConfig) DocumentTTL() time.Duration {
	return time.Duration(a.DocumentTTLHours) * time.Hour
}

// ArchiveRetention returns the age after which archived analyses are purged.
func (a AnalysisConfig) ArchiveRetention() time.Duration {
	return time.Duration(a.ArchiveRetentionDays) * 24 * time.Hour
}

// StorageConfig holds blob and index settings.
type StorageConfig struct {
	S3Bucket    string `mapstructure:"s3_bucket"`
	S3Region    string `mapstructure:"s3_region"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	ClauseIndex string `mapstructure:"clause_index"`
}

// NotificationConfig holds settings for the notify-risk-alert worker.
type NotificationConfig struct {
	Region        string   `mapstructure:"region"`
	SNSTopicARN   string   `mapstructure:"sns_topic_arn"`
	SESFrom       string   `mapstructure:"ses_from"`
	SESTo         []string `mapstructure:"ses_to"`
	SlackToken    string   `mapstructure:"slack_token"`
	SlackChannel  string   `mapstructure:"slack_channel"`
	RiskThreshold float64  `mapstructure:"risk_threshold"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Address string `mapstructure:"address"`
}

// ObservabilityConfig configures tracing export. An empty endpoint disables the jaeger exporter.
type ObservabilityConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
