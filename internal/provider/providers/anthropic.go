// Package providers holds concrete Provider implementations, each
// registering itself with internal/provider via RegisterFactory from
// an init().
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/httpkit"
	"github.com/kairei-run/kairei/internal/provider"
)

const (
	anthropicDefaultURL     = "https://api.anthropic.com/v1/messages"
	anthropicDefaultVersion = "2023-06-01"
)

func init() {
	provider.RegisterFactory("anthropic", func() provider.Provider { return &AnthropicProvider{} })
}

// AnthropicProvider adapts internal/llm.AnthropicClient's request/response
// shapes and httpkit usage to the Provider boundary. Streaming is
// dropped: Provider.Execute is single-shot, per spec.md §6.
type AnthropicProvider struct {
	name       string
	apiKey     string
	model      string
	maxTokens  int
	url        string
	apiVersion string
	httpClient *http.Client
}

func (p *AnthropicProvider) Name() string { return p.name }

func (p *AnthropicProvider) Capabilities() []provider.CapabilityType {
	return []provider.CapabilityType{provider.Chat()}
}

func (p *AnthropicProvider) Initialize(cfg config.ProviderConfig, secret config.ProviderSecret) error {
	if !secret.Configured() {
		return fmt.Errorf("anthropic provider %q: no api_key configured", cfg.Name)
	}
	p.name = cfg.Name
	p.apiKey = secret.APIKey
	p.model = cfg.CommonConfig.Model
	if p.model == "" {
		p.model = "claude-sonnet-4-20250514"
	}
	p.maxTokens = cfg.CommonConfig.MaxTokens
	if p.maxTokens == 0 {
		p.maxTokens = 4096
	}
	p.url = cfg.Endpoint.URL
	if p.url == "" {
		p.url = anthropicDefaultURL
	}
	p.apiVersion = cfg.Endpoint.APIVersion
	if p.apiVersion == "" {
		p.apiVersion = anthropicDefaultVersion
	}

	// LLM responses can take significant time before sending headers
	// (thinking, long prompts); use a generous response header timeout.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second
	p.httpClient = httpkit.NewClient(
		httpkit.WithTimeout(0),
		httpkit.WithTransport(t),
	)
	return nil
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	Messages  []anthropicMessage `json:"messages"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Tools     []anthropicTool    `json:"tools,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type anthropicContent struct {
	Type      string `json:"type"`
	Text      string `json:"text,omitempty"`
	ID        string `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Input     any    `json:"input,omitempty"`
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
}

type anthropicTool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"input_schema"`
}

type anthropicResponse struct {
	Role    string             `json:"role"`
	Content []anthropicContent `json:"content"`
	Model   string             `json:"model"`
	Usage   anthropicUsage     `json:"usage"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

func (p *AnthropicProvider) Execute(ctx context.Context, req provider.Request) (provider.Response, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	msgs, system := convertMessages(req.Messages)
	body := anthropicRequest{
		Model:     model,
		Messages:  msgs,
		System:    system,
		MaxTokens: p.maxTokens,
		Tools:     convertTools(req.Tools),
	}

	data, err := json.Marshal(body)
	if err != nil {
		return provider.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return provider.Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.apiVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return provider.Response{}, fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 4096)
		return provider.Response{}, fmt.Errorf("anthropic API error %d: %s", resp.StatusCode, body)
	}

	var wire anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return provider.Response{}, fmt.Errorf("decode response: %w", err)
	}

	return convertResponse(&wire), nil
}

func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	body := anthropicRequest{
		Model:     p.model,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
		MaxTokens: 1,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", p.apiVersion)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("invalid API key")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status from Anthropic API: %d", resp.StatusCode)
	}
	return nil
}

func (p *AnthropicProvider) Shutdown(context.Context) error { return nil }

func convertMessages(messages []provider.Message) ([]anthropicMessage, string) {
	var systemParts []string
	var result []anthropicMessage

	for _, msg := range messages {
		switch msg.Role {
		case "system":
			systemParts = append(systemParts, msg.Content)
		case "assistant":
			if len(msg.ToolCalls) > 0 {
				var blocks []anthropicContent
				if msg.Content != "" {
					blocks = append(blocks, anthropicContent{Type: "text", Text: msg.Content})
				}
				for i, tc := range msg.ToolCalls {
					id := tc.ID
					if id == "" {
						id = fmt.Sprintf("toolu_%s_%d", tc.Name, i)
					}
					args := tc.Arguments
					if args == nil {
						args = map[string]any{}
					}
					blocks = append(blocks, anthropicContent{Type: "tool_use", ID: id, Name: tc.Name, Input: args})
				}
				result = append(result, anthropicMessage{Role: "assistant", Content: blocks})
			} else {
				result = append(result, anthropicMessage{Role: "assistant", Content: msg.Content})
			}
		case "tool":
			result = append(result, anthropicMessage{
				Role: "user",
				Content: []anthropicContent{{
					Type:      "tool_result",
					ToolUseID: msg.ToolCallID,
					Content:   msg.Content,
				}},
			})
		default: // user
			result = append(result, anthropicMessage{Role: "user", Content: msg.Content})
		}
	}

	return result, strings.Join(systemParts, "\n\n")
}

func convertTools(tools []map[string]any) []anthropicTool {
	if len(tools) == 0 {
		return nil
	}
	var result []anthropicTool
	for _, tool := range tools {
		fn, ok := tool["function"].(map[string]any)
		if !ok {
			continue
		}
		name, _ := fn["name"].(string)
		desc, _ := fn["description"].(string)
		params := fn["parameters"]
		if params == nil {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		result = append(result, anthropicTool{Name: name, Description: desc, InputSchema: params})
	}
	return result
}

func convertResponse(resp *anthropicResponse) provider.Response {
	var content string
	var toolCalls []provider.ToolCall
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content += block.Text
		case "tool_use":
			args, _ := block.Input.(map[string]any)
			toolCalls = append(toolCalls, provider.ToolCall{ID: block.ID, Name: block.Name, Arguments: args})
		}
	}
	return provider.Response{
		Model:        resp.Model,
		Message:      provider.Message{Role: resp.Role, Content: content, ToolCalls: toolCalls},
		InputTokens:  resp.Usage.InputTokens,
		OutputTokens: resp.Usage.OutputTokens,
	}
}
