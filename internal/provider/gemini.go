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
	geminiDefaultBase  = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-1.5-flash"
)

// Gemini implements domain.Provider against the conversational-session API.
// There is no system role: every call seeds a fresh two-turn context — the
// instruction as a user turn, a fixed model acknowledgment — followed by the
// actual user utterance. Nothing is persisted across calls.
type Gemini struct {
	apiKey      string
	apiBase     string
	model       string
	ack         string
	maxTokens   int
	temperature float64
	client      *http.Client
	logger      *slog.Logger
}

type GeminiConfig struct {
	APIKey      string
	APIBase     string
	Model       string
	Ack         string // model acknowledgment seeded after the instruction turn
	MaxTokens   int
	Temperature float64
	Client      *http.Client
	Logger      *slog.Logger
}

func NewGemini(cfg GeminiConfig) *Gemini {
	if cfg.APIBase == "" {
		cfg.APIBase = geminiDefaultBase
	}
	if cfg.Model == "" {
		cfg.Model = geminiDefaultModel
	}
	if cfg.Ack == "" {
		cfg.Ack = "了解しました。"
	}
	if cfg.Client == nil {
		cfg.Client = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Gemini{
		apiKey:      cfg.APIKey,
		apiBase:     cfg.APIBase,
		model:       cfg.Model,
		ack:         cfg.Ack,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      cfg.Client,
		logger:      cfg.Logger,
	}
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Healthy(ctx context.Context) error {
	if g.apiKey == "" {
		return fmt.Errorf("gemini: no API key configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gemini not reachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gemini returned %d", resp.StatusCode)
	}
	return nil
}

type geminiRequest struct {
	Contents         []geminiContent  `json:"contents"`
	GenerationConfig *geminiGenConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role"` // user | model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float64 `json:"temperature,omitempty"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

func (g *Gemini) Generate(ctx context.Context, req domain.GenerateRequest) (*domain.GenerateResult, error) {
	model := req.Model
	if model == "" {
		model = g.model
	}

	body := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.System}}},
			{Role: "model", Parts: []geminiPart{{Text: g.ack}}},
			{Role: "user", Parts: []geminiPart{{Text: req.UserText}}},
		},
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = g.maxTokens
	}
	temp := req.Temperature
	if temp == 0 {
		temp = g.temperature
	}
	if maxTokens > 0 || temp > 0 {
		gc := &geminiGenConfig{MaxOutputTokens: maxTokens}
		if temp > 0 {
			gc.Temperature = &temp
		}
		body.GenerationConfig = gc
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.apiBase, model)
	build := func() (*http.Request, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
		if err != nil {
			return nil, err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-goog-api-key", g.apiKey)
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

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return nil, asError(g.Name(), fmt.Errorf("decode: %w", err))
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return nil, asError(g.Name(), fmt.Errorf("response carried no candidates"))
	}

	return &domain.GenerateResult{Text: geminiResp.Candidates[0].Content.Parts[0].Text}, nil
}
