// internal/genai/gateway.go
package genai

import (
	"context"
	"fmt"
	"strings"

	commonhttp "legal-analyzer/internal/common/http"
)

const generatePath = "/api/ai/generate"

type generateRequest struct {
	Prompt      string  `json:"prompt"`
	System      string  `json:"system,omitempty"`
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Text string `json:"text"`
}

// GatewayProvider calls an internal GenAI HTTP gateway.
type GatewayProvider struct {
	baseURL  string
	apiKey   string
	settings Settings
	client   *commonhttp.Client
}

func NewGatewayProvider(baseURL, apiKey string, settings Settings) *GatewayProvider {
	return &GatewayProvider{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		settings: settings,
		client:   commonhttp.NewClient(settings.Timeout, settings.MaxRetries),
	}
}

func (p *GatewayProvider) Name() string { return ProviderGateway }

func (p *GatewayProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	headers := map[string]string{}
	if p.apiKey != "" {
		headers["Authorization"] = "Bearer " + p.apiKey
	}

	var out generateResponse
	err := p.client.PostJSON(ctx, p.baseURL+generatePath, headers, generateRequest{
		Prompt:      prompt,
		System:      system,
		Model:       p.settings.Model,
		MaxTokens:   p.settings.MaxTokens,
		Temperature: p.settings.Temperature,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("gateway generate: %w", err)
	}
	return out.Text, nil
}
