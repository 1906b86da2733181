package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/apexcrm/apex/config"
)

func chatServer(t *testing.T, failures int32, reply string) (*httptest.Server, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		if n <= failures {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		var req struct {
			Model string `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": reply}},
			},
		})
	}))
	return srv, &calls
}

func testProviderConfig(url string) config.LLMProvider {
	return config.LLMProvider{
		Type:    "openai",
		APIKey:  "sk-test",
		BaseURL: url,
		Models: map[string]config.LLMModel{
			"planning": {Name: "gpt-4o-mini", MaxTokens: 256},
		},
	}
}

func TestGenerate(t *testing.T) {
	srv, _ := chatServer(t, 0, "All clear.")
	defer srv.Close()

	p := NewOpenAIProvider(testProviderConfig(srv.URL))
	out, err := p.Generate(context.Background(), "status?", "planning", nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "All clear." {
		t.Fatalf("out = %q", out)
	}
}

func TestGenerateRetriesOnce(t *testing.T) {
	srv, calls := chatServer(t, 1, "Recovered.")
	defer srv.Close()

	p := NewOpenAIProvider(testProviderConfig(srv.URL))
	out, err := p.Generate(context.Background(), "status?", "planning", nil)
	if err != nil {
		t.Fatalf("Generate after one failure: %v", err)
	}
	if out != "Recovered." {
		t.Fatalf("out = %q", out)
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestGenerateGivesUpAfterSecondFailure(t *testing.T) {
	srv, calls := chatServer(t, 10, "")
	defer srv.Close()

	p := NewOpenAIProvider(testProviderConfig(srv.URL))
	if _, err := p.Generate(context.Background(), "status?", "planning", nil); err == nil {
		t.Fatal("Generate succeeded against a failing endpoint")
	}
	if got := atomic.LoadInt32(calls); got != 2 {
		t.Fatalf("calls = %d, want exactly 2", got)
	}
}

func TestGenerateUnknownModel(t *testing.T) {
	p := NewOpenAIProvider(testProviderConfig("http://unused"))
	if _, err := p.Generate(context.Background(), "x", "nonexistent", nil); err == nil {
		t.Fatal("unknown model alias accepted")
	}
}

func TestNewProviderNotConfigured(t *testing.T) {
	cases := []config.LLMConfig{
		{},
		{Providers: map[string]config.LLMProvider{"openai": {Type: "openai"}}},
	}
	for _, cfg := range cases {
		if _, err := NewProvider(cfg); !errors.Is(err, ErrNotConfigured) {
			t.Fatalf("NewProvider(%+v) error = %v, want ErrNotConfigured", cfg, err)
		}
	}
}
