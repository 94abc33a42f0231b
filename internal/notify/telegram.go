package notify

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramNotifier posts session alerts to an ops chat. Used by the
// session monitor so a dashboard that silently lost its backend session
// gets noticed before users do.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier creates a notifier for the given bot token and chat.
func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot API: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramNotifier{
		api:    api,
		chatID: chatID,
		logger: logger.With("component", "notify"),
	}, nil
}

// NotifySessionExpired reports a terminal auth failure.
func (n *TelegramNotifier) NotifySessionExpired(ctx context.Context, reason string) error {
	text := fmt.Sprintf("⚠️ Callsight session expired and could not be refreshed.\nReason: %s\nUsers will be sent back to the login page.", reason)

	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	n.logger.Info("session-expired alert sent", "chat_id", n.chatID)
	return nil
}
