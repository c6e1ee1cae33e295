package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"kakeibot/internal/domain"
)

const lineReplyURL = "https://api.line.me/v2/bot/message/reply"

// LineWebhook is the inbound LINE webhook handler. It decodes the event
// batch, verifies the request signature when a channel secret is configured,
// and hands the events to the batch handler synchronously so the 200
// response means the batch was fully processed.
type LineWebhook struct {
	secret  string
	handler BatchHandler
	logger  *slog.Logger
}

type LineWebhookConfig struct {
	ChannelSecret string // empty disables signature verification
	Handler       BatchHandler
	Logger        *slog.Logger
}

func NewLineWebhook(cfg LineWebhookConfig) *LineWebhook {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LineWebhook{
		secret:  cfg.ChannelSecret,
		handler: cfg.Handler,
		logger:  cfg.Logger,
	}
}

// webhookBody is the LINE webhook request envelope.
type webhookBody struct {
	Events []domain.InboundEvent `json:"events"`
}

func (l *LineWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20)) // 1MB max
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer r.Body.Close()

	if l.secret != "" {
		sig := r.Header.Get("X-Line-Signature")
		if sig == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing signature"})
			return
		}
		if !verifySignature(body, l.secret, sig) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid signature"})
			return
		}
	}

	var payload webhookBody
	if err := json.Unmarshal(body, &payload); err != nil {
		l.logger.Error("malformed webhook body", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if len(payload.Events) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no events"})
		return
	}

	l.handler.HandleBatch(r.Context(), payload.Events)

	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// verifySignature checks the base64-encoded HMAC-SHA256 of the body against
// the X-Line-Signature header.
func verifySignature(body []byte, secret, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// LineTransport sends replies through the LINE reply API. Each reply token
// is consumed exactly once.
type LineTransport struct {
	token    string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

type LineTransportConfig struct {
	ChannelToken string
	Endpoint     string // override for tests; defaults to the LINE reply API
	Client       *http.Client
	Logger       *slog.Logger
}

func NewLineTransport(cfg LineTransportConfig) *LineTransport {
	if cfg.Endpoint == "" {
		cfg.Endpoint = lineReplyURL
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LineTransport{
		token:    cfg.ChannelToken,
		endpoint: cfg.Endpoint,
		client:   cfg.Client,
		logger:   cfg.Logger,
	}
}

type lineReplyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (t *LineTransport) Reply(ctx context.Context, reply domain.OutboundReply) error {
	body := lineReplyRequest{
		ReplyToken: reply.ReplyToken,
		Messages:   []lineMessage{{Type: "text", Text: reply.Text}},
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.token)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("line reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line reply %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
