package notify

import (
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramSink posts messages to a single chat, matching
// original_source/helpers/telegram_bot.py's TelegramBot.send_text — ported
// to the ecosystem's go-telegram-bot-api client instead of a hand-rolled
// HTTP POST, since the library already handles the bot API's request/
// response shape.
type TelegramSink struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegramSink dials the Telegram Bot API (a single GetMe call to
// validate the token) and returns a sink for chatID.
func NewTelegramSink(token string, chatID int64, logger *slog.Logger) (*TelegramSink, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &TelegramSink{api: api, chatID: chatID, logger: logger.With("component", "notify_telegram")}, nil
}

func (t *TelegramSink) Send(msg Message) {
	out := tgbotapi.NewMessage(t.chatID, msg.Text)
	if _, err := t.api.Send(out); err != nil {
		t.logger.Error("telegram send failed", "error", err)
	}
}
