package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/httpkit"
	"github.com/kairei-run/kairei/internal/provider"
)

func init() {
	provider.RegisterFactory("ollama", func() provider.Provider { return &OllamaProvider{} })
}

// OllamaProvider adapts internal/llm.OllamaClient's wire shapes to the
// Provider boundary.
type OllamaProvider struct {
	name       string
	baseURL    string
	model      string
	temp       float64
	httpClient *http.Client
}

func (p *OllamaProvider) Name() string { return p.name }

func (p *OllamaProvider) Capabilities() []provider.CapabilityType {
	return []provider.CapabilityType{provider.Chat(), provider.Generate()}
}

func (p *OllamaProvider) Initialize(cfg config.ProviderConfig, _ config.ProviderSecret) error {
	p.name = cfg.Name
	p.baseURL = cfg.Endpoint.URL
	if p.baseURL == "" {
		p.baseURL = "http://localhost:11434"
	}
	p.model = cfg.CommonConfig.Model
	p.temp = cfg.CommonConfig.Temperature

	// Large local models can take significant time before sending headers
	// (loading, thinking); override the default ResponseHeaderTimeout.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 5 * time.Minute
	p.httpClient = httpkit.NewClient(
		httpkit.WithTimeout(5*time.Minute),
		httpkit.WithTransport(t),
		httpkit.WithRetry(3, 2*time.Second),
	)
	return nil
}

type ollamaMessage struct {
	Role      string                  `json:"role"`
	Content   string                  `json:"content"`
	ToolCalls []ollamaWireToolCall    `json:"tool_calls,omitempty"`
}

type ollamaWireToolCall struct {
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

type ollamaRequest struct {
	Model    string           `json:"model"`
	Messages []ollamaMessage  `json:"messages"`
	Stream   bool             `json:"stream"`
	Tools    []map[string]any `json:"tools,omitempty"`
	Options  *ollamaOptions   `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaResponse struct {
	Model           string        `json:"model"`
	Message         ollamaMessage `json:"message"`
	Done            bool          `json:"done"`
	PromptEvalCount int           `json:"prompt_eval_count,omitempty"`
	EvalCount       int           `json:"eval_count,omitempty"`
}

func (p *OllamaProvider) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	body := ollamaRequest{
		Model:    model,
		Messages: toOllamaMessages(req.Messages),
		Stream:   false,
		Tools:    req.Tools,
	}
	if p.temp != 0 {
		body.Options = &ollamaOptions{Temperature: p.temp}
	}

	data, err := json.Marshal(body)
	if err != nil {
		return provider.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(data))
	if err != nil {
		return provider.Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return provider.Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		return provider.Response{}, fmt.Errorf("ollama API error %d: %s", resp.StatusCode, errBody)
	}

	var wire ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return provider.Response{}, fmt.Errorf("decode response: %w", err)
	}

	return provider.Response{
		Model:        wire.Model,
		Message:      fromOllamaMessage(wire.Message),
		InputTokens:  wire.PromptEvalCount,
		OutputTokens: wire.EvalCount,
	}, nil
}

func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status from Ollama: %d", resp.StatusCode)
	}
	return nil
}

func (p *OllamaProvider) Shutdown(context.Context) error { return nil }

func toOllamaMessages(messages []provider.Message) []ollamaMessage {
	result := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		om := ollamaMessage{Role: m.Role, Content: m.Content}
		for _, tc := range m.ToolCalls {
			var wire ollamaWireToolCall
			wire.Function.Name = tc.Name
			wire.Function.Arguments = tc.Arguments
			om.ToolCalls = append(om.ToolCalls, wire)
		}
		result = append(result, om)
	}
	return result
}

func fromOllamaMessage(m ollamaMessage) provider.Message {
	out := provider.Message{Role: m.Role, Content: m.Content}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, provider.ToolCall{
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return out
}
