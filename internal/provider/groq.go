package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"kakeibot/internal/domain"
)

const (
	groqDefaultBase  = "https://api.groq.com/openai/v1"
	groqDefaultModel = "llama-3.1-8b-instant"
)

// Groq implements domain.Provider against an OpenAI-compatible
// chat-completions API: one request carrying a system message and a user
// message, one completion choice in the response. Any OpenAI-compatible
// endpoint works by overriding APIBase.
type Groq struct {
	apiKey      string
	apiBase     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

type GroqConfig struct {
	APIKey      string
	APIBase     string
	Model       string
	MaxTokens   int
	Temperature float64
	Client      *http.Client
	Logger      *slog.Logger
}

func NewGroq(cfg GroqConfig) *Groq {
	if cfg.APIBase == "" {
		cfg.APIBase = groqDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = groqDefaultModel
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Groq{
		apiKey:      cfg.APIKey,
		apiBase:     cfg.APIBase,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      cfg.Client,
		logger:      cfg.Logger,
	}
}

func (g *Groq) Name() string { return "groq" }

func (g *Groq) Healthy(ctx context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("groq: no API key configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("groq not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("groq: invalid API key")
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("groq returned %d", resp.StatusCode)
	}
	return nil
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqResponse struct {
	Choices []groqChoice `json:"choices"`
}

type groqChoice struct {
	Message      groqMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

func (g *Groq) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}

	body := groqRequest{
		Model: model,
		Messages: []groqMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.UserText},
		},
		MaxTokens: maxTokens,
	}
	temp := req.Temperature
	if temp == 0 {
		temp = g.temperature
	}
	if temp > 0 {
		body.Temperature = &temp
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	build := func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiBase+"/chat/completions", bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)
		return httpReq, nil
	}

	resp, err := doWithRetry(ctx, g.client, build, g.logger)
	if err != nil {
		return nil, asError(g.Name(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, newError(g.Name(), resp.StatusCode, respBody)
	}

	var groqResp groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&groqResp); err != nil {
		return nil, asError(g.Name(), fmt.Errorf("decode: %w", err))
	}
	if len(groqResp.Choices) == 0 {
		return nil, asError(g.Name(), fmt.Errorf("response carried no choices"))
	}

	return &domain.GenerateResult{Text: groqResp.Choices[0].Message.Content}, nil
}
