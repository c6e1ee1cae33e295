package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"kakeibot/internal/domain"
)

func TestClaude_Generate_SystemField(t *testing.T) {
	var got claudeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("x-api-key"); key != "ant-key" {
			t.Errorf("api key header = %q", key)
		}
		if v := r.Header.Get("anthropic-version"); v != claudeAPIVersion {
			t.Errorf("version header = %q", v)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]any{{"type": "text", "text": "優先順位を考えろ。"}},
			"stop_reason": "end_turn",
		})
	}))
	defer srv.Close()

	c := NewClaude(ClaudeConfig{APIKey: "ant-key", APIURL: srv.URL, Logger: testLogger()})
	res, err := c.Generate(context.Background(), domain.GenerateRequest{System: "厳格に。", UserText: "ゲームを買いたい"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "優先順位を考えろ。" {
		t.Errorf("text = %q", res.Text)
	}

	// The instruction rides in the top-level system field, not as a message.
	if got.System != "厳格に。" {
		t.Errorf("system = %q", got.System)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "ゲームを買いたい" {
		t.Errorf("messages = %+v", got.Messages)
	}
	if got.MaxTokens != claudeMaxTokens {
		t.Errorf("max_tokens = %d", got.MaxTokens)
	}
}

func TestClaude_Generate_SkipsNonTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]any{
				{"type": "thinking"},
				{"type": "text", "text": "だめだ。"},
			},
		})
	}))
	defer srv.Close()

	c := NewClaude(ClaudeConfig{APIKey: "k", APIURL: srv.URL, Logger: testLogger()})
	res, err := c.Generate(context.Background(), domain.GenerateRequest{System: "s", UserText: "u"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "だめだ。" {
		t.Errorf("text = %q", res.Text)
	}
}

func TestClaude_Generate_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"type":"error"}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClaude(ClaudeConfig{APIKey: "k", APIURL: srv.URL, Logger: testLogger()})
	_, err := c.Generate(context.Background(), domain.GenerateRequest{System: "s", UserText: "u"})
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T", err)
	}
	if pe.Status != http.StatusForbidden || pe.Provider != "claude" {
		t.Errorf("error = %+v", pe)
	}
}

func TestClaude_Healthy(t *testing.T) {
	if err := NewClaude(ClaudeConfig{}).Healthy(context.Background()); err == nil {
		t.Error("missing key should be unhealthy")
	}
	if err := NewClaude(ClaudeConfig{APIKey: "k"}).Healthy(context.Background()); err != nil {
		t.Errorf("unexpected: %v", err)
	}
}
