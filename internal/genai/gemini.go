// internal/genai/gemini.go
package genai

import (
	"context"
	"fmt"
	"strings"

	gemini "github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider calls the Gemini API through the official SDK.
type GeminiProvider struct {
	client   *gemini.Client
	settings Settings
}

func NewGeminiProvider(ctx context.Context, apiKey, endpoint string, settings Settings) (*GeminiProvider, error) {
	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := gemini.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	if settings.Model == "" {
		settings.Model = defaultGeminiModel
	}
	return &GeminiProvider{client: client, settings: settings}, nil
}

func (p *GeminiProvider) Name() string { return ProviderGemini }

func (p *GeminiProvider) Generate(ctx context.Context, system, prompt string) (string, error) {
	model := p.client.GenerativeModel(p.settings.Model)
	model.SetTemperature(float32(p.settings.Temperature))
	model.SetMaxOutputTokens(int32(p.settings.MaxTokens))
	model.ResponseMIMEType = "application/json"
	if system != "" {
		model.SystemInstruction = &gemini.Content{Parts: []gemini.Part{gemini.Text(system)}}
	}

	resp, err := model.GenerateContent(ctx, gemini.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return geminiText(resp), nil
}

func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// geminiText concatenates the text parts of the first candidate that has any.
func geminiText(resp *gemini.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		var b strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(gemini.Text); ok {
				b.WriteString(string(text))
			}
		}
		if b.Len() > 0 {
			return strings.TrimSpace(b.String())
		}
	}
	return ""
}
