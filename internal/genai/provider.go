// internal/genai/provider.go
package genai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"legal-analyzer/internal/common/config"
	"legal-analyzer/internal/common/logger"
)

const (
	ProviderGateway   = "gateway"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	defaultTemperature = 0.1
	defaultMaxTokens   = 2048
	defaultTimeout     = 30 * time.Second
)

// Provider turns a system instruction and a user prompt into model text.
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, prompt string) (string, error)
}

// Settings are the provider-independent generation parameters.
type Settings struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

func settingsFrom(cfg config.GenAIConfig) Settings {
	s := Settings{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     config.GetDuration(cfg.Timeout),
		MaxRetries:  cfg.MaxRetries,
	}
	if s.Temperature <= 0 {
		s.Temperature = defaultTemperature
	}
	if s.MaxTokens <= 0 {
		s.MaxTokens = defaultMaxTokens
	}
	if s.Timeout <= 0 {
		s.Timeout = defaultTimeout
	}
	if s.MaxRetries <= 0 {
		s.MaxRetries = 3
	}
	return s
}

// NewProvider builds the provider named by cfg.Provider; an empty name selects
// the HTTP gateway.
func NewProvider(ctx context.Context, cfg config.GenAIConfig, log logger.Logger) (Provider, error) {
	settings := settingsFrom(cfg)
	log = log.With(map[string]interface{}{"component": "genai", "provider": cfg.Provider})

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGateway:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("genai gateway requires base_url")
		}
		return NewGatewayProvider(cfg.BaseURL, cfg.APIKey, settings), nil
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cfg.BaseURL, settings)
	case ProviderAnthropic:
		return NewAnthropicProvider(cfg.APIKey, cfg.BaseURL, settings), nil
	default:
		log.Error("Unknown genai provider", map[string]interface{}{"provider": cfg.Provider})
		return nil, fmt.Errorf("unknown genai provider %q", cfg.Provider)
	}
}

var rateLimitMarkers = []string{
	"rate limit", "quota exceeded", "429", "resource_exhausted",
	"too many requests", "rate_limit_exceeded",
}

// IsRateLimit reports whether err looks like provider throttling.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, m := range rateLimitMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
