package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"kakeibot/internal/domain"
)

// TelegramWebhook decodes Telegram webhook updates into domain events so the
// same dispatcher serves either platform. The chat ID doubles as the reply
// handle, since Telegram has no single-use reply tokens.
type TelegramWebhook struct {
	handler BatchHandler
	logger  *slog.Logger
}

type TelegramWebhookConfig struct {
	Handler BatchHandler
	Logger  *slog.Logger
}

func NewTelegramWebhook(cfg TelegramWebhookConfig) *TelegramWebhook {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &TelegramWebhook{handler: cfg.Handler, logger: cfg.Logger}
}

func (t *TelegramWebhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer r.Body.Close()

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		t.logger.Error("malformed telegram update", "err", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	events := UpdateToEvents(update)
	if len(events) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "no events"})
		return
	}

	t.handler.HandleBatch(r.Context(), events)
	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

// UpdateToEvents converts a Telegram update into domain events. Non-text
// updates yield nothing, matching the skip semantics of the dispatcher.
func UpdateToEvents(update tgbotapi.Update) []domain.InboundEvent {
	msg := update.Message
	if msg == nil || msg.Chat == nil || msg.Text == "" {
		return nil
	}
	ev := domain.InboundEvent{
		Type:       domain.EventTypeMessage,
		Message:    domain.EventMessage{Type: domain.MessageTypeText, Text: msg.Text},
		ReplyToken: strconv.FormatInt(msg.Chat.ID, 10),
		Timestamp:  int64(msg.Date),
	}
	if msg.From != nil {
		ev.Source = domain.EventSource{Type: "user", UserID: strconv.FormatInt(msg.From.ID, 10)}
	}
	return []domain.InboundEvent{ev}
}

// TelegramTransport sends replies through the Telegram bot API.
type TelegramTransport struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

// NewTelegramTransport connects to Telegram and validates the token.
func NewTelegramTransport(token string, logger *slog.Logger) (*TelegramTransport, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	logger.Info("telegram bot connected", "username", bot.Self.UserName, "id", bot.Self.ID)
	return &TelegramTransport{bot: bot, logger: logger}, nil
}

func (t *TelegramTransport) Reply(ctx context.Context, reply domain.OutboundReply) error {
	chatID, err := strconv.ParseInt(reply.ReplyToken, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", reply.ReplyToken, err)
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, reply.Text)); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}
