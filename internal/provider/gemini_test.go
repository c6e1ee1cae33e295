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

func TestGemini_Generate_SeedTurns(t *testing.T) {
	var got geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-1.5-flash:generateContent" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if key := r.Header.Get("x-goog-api-key"); key != "gem-key" {
			t.Errorf("api key header = %q", key)
		}
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{"content": map[string]any{"role": "model", "parts": []map[string]any{{"text": "本当に必要か?"}}}},
			},
		})
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "gem-key", APIBase: srv.URL, Ack: "了解した。", Logger: testLogger()})
	res, err := g.Generate(context.Background(), domain.GenerateRequest{System: "厳格に。", UserText: "新しい靴を買いたい"})
	if err != nil {
		t.Fatal(err)
	}
	if res.Text != "本当に必要か?" {
		t.Errorf("text = %q", res.Text)
	}

	// The instruction rides as a seeded two-turn exchange ahead of the
	// real user utterance, fresh on every call.
	if len(got.Contents) != 3 {
		t.Fatalf("contents = %d turns, want 3", len(got.Contents))
	}
	if got.Contents[0].Role != "user" || got.Contents[0].Parts[0].Text != "厳格に。" {
		t.Errorf("seed instruction turn = %+v", got.Contents[0])
	}
	if got.Contents[1].Role != "model" || got.Contents[1].Parts[0].Text != "了解した。" {
		t.Errorf("seed ack turn = %+v", got.Contents[1])
	}
	if got.Contents[2].Role != "user" || got.Contents[2].Parts[0].Text != "新しい靴を買いたい" {
		t.Errorf("user turn = %+v", got.Contents[2])
	}
}

func TestGemini_Generate_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"API key not valid"}}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "bad", APIBase: srv.URL, Logger: testLogger()})
	_, err := g.Generate(context.Background(), domain.GenerateRequest{System: "s", UserText: "u"})
	var pe *Error
	if !errors.As(err, &pe) {
		t.Fatalf("error type = %T", err)
	}
	if pe.Status != http.StatusBadRequest || pe.Provider != "gemini" {
		t.Errorf("error = %+v", pe)
	}
}

func TestGemini_Generate_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"candidates": []any{}})
	}))
	defer srv.Close()

	g := NewGemini(GeminiConfig{APIKey: "k", APIBase: srv.URL, Logger: testLogger()})
	if _, err := g.Generate(context.Background(), domain.GenerateRequest{System: "s", UserText: "u"}); err == nil {
		t.Fatal("empty candidates must be an error")
	}
}

func TestGemini_DefaultAck(t *testing.T) {
	g := NewGemini(GeminiConfig{APIKey: "k"})
	if g.ack != "了解しました。" {
		t.Errorf("default ack = %q", g.ack)
	}
}
