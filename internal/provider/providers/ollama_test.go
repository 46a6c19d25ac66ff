package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kairei-run/kairei/internal/config"
	"github.com/kairei-run/kairei/internal/provider"
)

func TestOllamaProviderExecute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		resp := ollamaResponse{
			Model:           "qwen3:4b",
			Message:         ollamaMessage{Role: "assistant", Content: "hi there"},
			Done:            true,
			PromptEvalCount: 5,
			EvalCount:       2,
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p := &OllamaProvider{}
	cfg := config.ProviderConfig{
		Name:     "ollama-test",
		Endpoint: config.EndpointConfig{URL: server.URL},
	}
	if err := p.Initialize(cfg, config.ProviderSecret{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	resp, err := p.Execute(context.Background(), provider.Request{
		Messages: []provider.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if resp.Message.Content != "hi there" {
		t.Errorf("content = %q, want %q", resp.Message.Content, "hi there")
	}
	if resp.InputTokens != 5 || resp.OutputTokens != 2 {
		t.Errorf("unexpected token counts: %+v", resp)
	}
}

func TestOllamaProviderDefaultsBaseURL(t *testing.T) {
	p := &OllamaProvider{}
	if err := p.Initialize(config.ProviderConfig{Name: "x"}, config.ProviderSecret{}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if p.baseURL != "http://localhost:11434" {
		t.Errorf("baseURL = %q, want default", p.baseURL)
	}
}

func TestOllamaProviderHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := &OllamaProvider{}
	p.Initialize(config.ProviderConfig{Name: "x", Endpoint: config.EndpointConfig{URL: server.URL}}, config.ProviderSecret{})
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck: %v", err)
	}
}
