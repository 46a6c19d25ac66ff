package providers

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/provider"
)

func init() {
	provider.RegisterFactory("openai", func() provider.Provider { return &OpenAIProvider{} })
}

// OpenAIProvider wraps github.com/openai/openai-go's chat completions
// API, grounded on internal/vectorizer's client-construction pattern
// from the example pack (option.WithAPIKey, functional initialization).
type OpenAIProvider struct {
	name   string
	client openai.Client
	model  string
	temp   float64
	maxTok int
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Capabilities() []provider.CapabilityType {
	return []provider.CapabilityType{provider.Chat()}
}

func (p *OpenAIProvider) Initialize(cfg config.ProviderConfig, secret config.ProviderSecret) error {
	if !secret.Configured() {
		return fmt.Errorf("openai provider %q: no api_key configured", cfg.Name)
	}
	p.name = cfg.Name
	p.model = cfg.CommonConfig.Model
	if p.model == "" {
		p.model = openai.ChatModelGPT4o
	}
	p.temp = cfg.CommonConfig.Temperature
	p.maxTok = cfg.CommonConfig.MaxTokens

	opts := []option.RequestOption{option.WithAPIKey(secret.APIKey)}
	if cfg.Endpoint.URL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint.URL))
	}
	p.client = openai.NewClient(opts...)
	return nil
}

func (p *OpenAIProvider) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    model,
		Messages: toOpenAIMessages(req.Messages),
	}
	if p.temp != 0 {
		params.Temperature = openai.Float(p.temp)
	}
	if p.maxTok != 0 {
		params.MaxTokens = openai.Int(int64(p.maxTok))
	}

	resp, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return provider.Response{}, fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return provider.Response{}, fmt.Errorf("openai response had no choices")
	}

	choice := resp.Choices[0]
	msg := provider.Message{Role: "assistant", Content: choice.Message.Content}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, provider.ToolCall{
			ID:   tc.ID,
			Name: tc.Function.Name,
		})
	}

	return provider.Response{
		Model:        resp.Model,
		Message:      msg,
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
	}, nil
}

func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("openai health check failed: %w", err)
	}
	return nil
}

func (p *OpenAIProvider) Shutdown(context.Context) error { return nil }

func toOpenAIMessages(messages []provider.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			result = append(result, openai.SystemMessage(m.Content))
		case "assistant":
			result = append(result, openai.AssistantMessage(m.Content))
		case "tool":
			result = append(result, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			result = append(result, openai.UserMessage(m.Content))
		}
	}
	return result
}
