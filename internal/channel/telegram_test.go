package channel

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestUpdateToEvents_TextMessage(t *testing.T) {
	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			Text: "記録:500円 コーヒー",
			Chat: &tgbotapi.Chat{ID: 12345},
			From: &tgbotapi.User{ID: 678},
			Date: 1700000000,
		},
	}

	events := UpdateToEvents(update)
	if len(events) != 1 {
		t.Fatalf("events = %d", len(events))
	}
	ev := events[0]
	if !ev.IsTextMessage() {
		t.Error("should classify as text message")
	}
	if ev.ReplyToken != "12345" {
		t.Errorf("reply token = %q", ev.ReplyToken)
	}
	if ev.Message.Text != "記録:500円 コーヒー" {
		t.Errorf("text = %q", ev.Message.Text)
	}
	if ev.Source.UserID != "678" {
		t.Errorf("user = %q", ev.Source.UserID)
	}
}

func TestUpdateToEvents_NonText(t *testing.T) {
	if events := UpdateToEvents(tgbotapi.Update{}); events != nil {
		t.Errorf("update without message should yield nothing, got %+v", events)
	}

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: 1}}, // no text (e.g. photo)
	}
	if events := UpdateToEvents(update); events != nil {
		t.Errorf("non-text message should yield nothing, got %+v", events)
	}
}

func TestTelegramWebhook_DispatchesUpdate(t *testing.T) {
	handler := &recordingHandler{}
	h := NewTelegramWebhook(TelegramWebhookConfig{Handler: handler, Logger: testChannelLogger()})

	body := `{"update_id":1,"message":{"message_id":10,"date":1700000000,"text":"hello","chat":{"id":42,"type":"private"}}}`
	req := httptest.NewRequest("POST", "/webhook/telegram", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(handler.batches) != 1 || handler.batches[0][0].ReplyToken != "42" {
		t.Fatalf("batches = %+v", handler.batches)
	}
}

func TestTelegramWebhook_MalformedBody(t *testing.T) {
	h := NewTelegramWebhook(TelegramWebhookConfig{Handler: &recordingHandler{}, Logger: testChannelLogger()})
	req := httptest.NewRequest("POST", "/webhook/telegram", bytes.NewBufferString("nope"))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rr.Code)
	}
}

func TestTelegramWebhook_MethodNotAllowed(t *testing.T) {
	h := NewTelegramWebhook(TelegramWebhookConfig{Handler: &recordingHandler{}, Logger: testChannelLogger()})
	req := httptest.NewRequest("GET", "/webhook/telegram", nil)
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}
