package providers

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/provider"
)

func init() {
	provider.RegisterFactory("genai", func() provider.Provider { return &GenAIProvider{} })
}

// GenAIProvider wraps google.golang.org/genai's GenerateContent API,
// grounded on internal/vectorizer's genai.NewClient/ClientConfig
// construction pattern from the example pack.
type GenAIProvider struct {
	name   string
	client *genai.Client
	model  string
	temp   float64
}

func (p *GenAIProvider) Name() string { return p.name }

func (p *GenAIProvider) Capabilities() []provider.CapabilityType {
	return []provider.CapabilityType{provider.Chat(), provider.Generate()}
}

func (p *GenAIProvider) Initialize(cfg config.ProviderConfig, secret config.ProviderSecret) error {
	if !secret.Configured() {
		return fmt.Errorf("genai provider %q: no api_key configured", cfg.Name)
	}
	p.name = cfg.Name
	p.model = cfg.CommonConfig.Model
	if p.model == "" {
		p.model = "gemini-2.0-flash"
	}
	p.temp = cfg.CommonConfig.Temperature

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  secret.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("create genai client: %w", err)
	}
	p.client = client
	return nil
}

func (p *GenAIProvider) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	contents, systemInstruction := toGenAIContents(req.Messages)
	genConfig := &genai.GenerateContentConfig{}
	if systemInstruction != "" {
		genConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{genai.NewPartFromText(systemInstruction)},
		}
	}
	if p.temp != 0 {
		temp := float32(p.temp)
		genConfig.Temperature = &temp
	}

	resp, err := p.client.Models.GenerateContent(ctx, model, contents, genConfig)
	if err != nil {
		return provider.Response{}, fmt.Errorf("genai request failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return provider.Response{}, fmt.Errorf("genai response had no candidates")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	var inputTokens, outputTokens int
	if resp.UsageMetadata != nil {
		inputTokens = int(resp.UsageMetadata.PromptTokenCount)
		outputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	return provider.Response{
		Model:        model,
		Message:      provider.Message{Role: "assistant", Content: text},
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
	}, nil
}

func (p *GenAIProvider) HealthCheck(ctx context.Context) error {
	contents := []*genai.Content{{
		Role:  genai.RoleUser,
		Parts: []*genai.Part{genai.NewPartFromText("ping")},
	}}
	_, err := p.client.Models.GenerateContent(ctx, p.model, contents, &genai.GenerateContentConfig{})
	if err != nil {
		return fmt.Errorf("genai health check failed: %w", err)
	}
	return nil
}

func (p *GenAIProvider) Shutdown(context.Context) error { return nil }

func toGenAIContents(messages []provider.Message) ([]*genai.Content, string) {
	var systemParts []string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == "system" {
			systemParts = append(systemParts, m.Content)
			continue
		}
		role := genai.RoleUser
		if m.Role == "assistant" {
			role = genai.RoleModel
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []*genai.Part{genai.NewPartFromText(m.Content)},
		})
	}
	system := ""
	for i, s := range systemParts {
		if i > 0 {
			system += "\n\n"
		}
		system += s
	}
	return contents, system
}
