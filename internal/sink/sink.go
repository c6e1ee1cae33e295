// Package sink forwards parsed expense records to the external
// record-keeping endpoint. Record-keeping is best-effort: every failure is
// reported through the result value and nothing escapes the adapter.
package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"kakeibot/internal/domain"
)

const defaultTimeout = 10 * time.Second

// HTTPSink posts records to a spreadsheet-backed endpoint as JSON and reads
// an explicit success flag from the response. An empty endpoint URL degrades
// the sink to a no-I/O skip.
type HTTPSink struct {
	endpoint string
	action   string
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

type Config struct {
	Endpoint string
	Action   string // optional action discriminator included in the body
	Timeout  time.Duration
	Logger   *slog.Logger
}

func New(cfg Config) *HTTPSink {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &HTTPSink{
		endpoint: cfg.Endpoint,
		action:   cfg.Action,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

type recordBody struct {
	Action      string `json:"action,omitempty"`
	Amount      int    `json:"amount"`
	Category    string `json:"category,omitempty"`
	Description string `json:"description"`
	Date        string `json:"date"`
}

type recordResponse struct {
	Success bool `json:"success"`
}

// Record posts one record. The outcome is always a SinkResult: Skipped when
// no endpoint is configured (zero network I/O), Stored when the endpoint
// acknowledged success, Failed for everything else.
func (s *HTTPSink) Record(ctx context.Context, rec domain.ParsedRecord) domain.SinkResult {
	if s.endpoint == "" {
		s.logger.Debug("record sink not configured, skipping")
		return domain.SinkResult{Status: domain.SinkSkipped}
	}

	body := recordBody{
		Action:      s.action,
		Amount:      rec.Amount,
		Category:    rec.Category,
		Description: rec.Description,
		Date:        s.now().UTC().Format(time.RFC3339),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return s.fail(fmt.Errorf("marshal record: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return s.fail(fmt.Errorf("new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return s.fail(fmt.Errorf("sink request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return s.fail(fmt.Errorf("sink returned %d: %s", resp.StatusCode, string(respBody)))
	}

	var result recordResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return s.fail(fmt.Errorf("decode sink response: %w", err))
	}
	if !result.Success {
		return s.fail(fmt.Errorf("sink reported failure"))
	}

	s.logger.Info("record stored", "amount", rec.Amount, "category", rec.Category)
	return domain.SinkResult{Status: domain.SinkStored}
}

func (s *HTTPSink) fail(err error) domain.SinkResult {
	s.logger.Warn("record sink failed", "err", err)
	return domain.SinkResult{Status: domain.SinkFailed, Err: err}
}

// Configured reports whether an endpoint is set, used by diagnostics.
func (s *HTTPSink) Configured() bool { return s.endpoint != "" }
