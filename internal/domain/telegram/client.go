package telegram

import (
	"context"

	"gopkg.in/telebot.v3"
)

// Client defines an interface for sending messages via a Telegram bot.
// This decouples the application logic from the specific bot library.
// Implementations must honour ctx cancellation so sweep deliveries stay
// bounded by a timeout.
type Client interface {
	SendMessage(ctx context.Context, recipientChatID int64, text string, options *telebot.SendOptions) error
}
