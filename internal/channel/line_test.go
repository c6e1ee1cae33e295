package channel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"kakeibot/internal/domain"
)

func testChannelLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

type recordingHandler struct {
	batches [][]domain.InboundEvent
}

func (r *recordingHandler) HandleBatch(ctx context.Context, events []domain.InboundEvent) {
	r.batches = append(r.batches, events)
}

func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifySignature_Valid(t *testing.T) {
	secret := "test-secret"
	body := []byte(`{"events":[]}`)
	if !verifySignature(body, secret, signBody(body, secret)) {
		t.Error("valid signature should verify")
	}
}

func TestVerifySignature_Invalid(t *testing.T) {
	if verifySignature([]byte("body"), "secret", "invalid") {
		t.Error("invalid signature should not verify")
	}
}

func TestLineWebhook_MethodNotAllowed(t *testing.T) {
	h := NewLineWebhook(LineWebhookConfig{Handler: &recordingHandler{}, Logger: testChannelLogger()})
	req := httptest.NewRequest("GET", "/webhook", nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestLineWebhook_EmptyEvents(t *testing.T) {
	handler := &recordingHandler{}
	h := NewLineWebhook(LineWebhookConfig{Handler: handler, Logger: testChannelLogger()})

	for _, body := range []string{`{"events":[]}`, `{}`} {
		req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
		rr := httptest.NewRecorder()

		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Errorf("body %q: expected 200, got %d", body, rr.Code)
		}
	}
	if len(handler.batches) != 0 {
		t.Errorf("empty batches must not reach the handler, got %d", len(handler.batches))
	}
}

func TestLineWebhook_MalformedBody(t *testing.T) {
	h := NewLineWebhook(LineWebhookConfig{Handler: &recordingHandler{}, Logger: testChannelLogger()})
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString("not json"))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] == "" {
		t.Error("500 body should expose an error message")
	}
}

func TestLineWebhook_DispatchesBatch(t *testing.T) {
	handler := &recordingHandler{}
	h := NewLineWebhook(LineWebhookConfig{Handler: handler, Logger: testChannelLogger()})

	body := `{"events":[
		{"type":"message","replyToken":"tok1","message":{"type":"text","text":"こんにちは"}},
		{"type":"follow","replyToken":"tok2"},
		{"type":"message","replyToken":"tok3","message":{"type":"text","text":"記録:500円 コーヒー"}}
	]}`
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(handler.batches) != 1 || len(handler.batches[0]) != 3 {
		t.Fatalf("batches = %+v", handler.batches)
	}
	if handler.batches[0][0].Message.Text != "こんにちは" {
		t.Errorf("event 0 = %+v", handler.batches[0][0])
	}
	if handler.batches[0][1].IsTextMessage() {
		t.Error("follow event should not classify as text message")
	}
}

func TestLineWebhook_MissingSignature(t *testing.T) {
	h := NewLineWebhook(LineWebhookConfig{ChannelSecret: "my-secret", Handler: &recordingHandler{}, Logger: testChannelLogger()})
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(`{"events":[]}`))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestLineWebhook_InvalidSignature(t *testing.T) {
	h := NewLineWebhook(LineWebhookConfig{ChannelSecret: "my-secret", Handler: &recordingHandler{}, Logger: testChannelLogger()})
	req := httptest.NewRequest("POST", "/webhook", bytes.NewBufferString(`{"events":[]}`))
	req.Header.Set("X-Line-Signature", "invalid")
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rr.Code)
	}
}

func TestLineWebhook_ValidSignature(t *testing.T) {
	secret := "my-secret"
	handler := &recordingHandler{}
	h := NewLineWebhook(LineWebhookConfig{ChannelSecret: secret, Handler: handler, Logger: testChannelLogger()})

	body := []byte(`{"events":[{"type":"message","replyToken":"tok1","message":{"type":"text","text":"hi"}}]}`)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", signBody(body, secret))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if len(handler.batches) != 1 {
		t.Errorf("batches = %d", len(handler.batches))
	}
}

func TestLineTransport_Reply(t *testing.T) {
	var got lineReplyRequest
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	tr := NewLineTransport(LineTransportConfig{ChannelToken: "tok", Endpoint: srv.URL, Logger: testChannelLogger()})
	err := tr.Reply(context.Background(), domain.OutboundReply{ReplyToken: "rt-1", Text: "返信"})
	if err != nil {
		t.Fatal(err)
	}
	if auth != "Bearer tok" {
		t.Errorf("auth = %q", auth)
	}
	if got.ReplyToken != "rt-1" || len(got.Messages) != 1 || got.Messages[0].Text != "返信" || got.Messages[0].Type != "text" {
		t.Errorf("request = %+v", got)
	}
}

func TestLineTransport_Reply_NonSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	tr := NewLineTransport(LineTransportConfig{ChannelToken: "tok", Endpoint: srv.URL, Logger: testChannelLogger()})
	if err := tr.Reply(context.Background(), domain.OutboundReply{ReplyToken: "rt", Text: "x"}); err == nil {
		t.Fatal("expected error for non-2xx")
	}
}
