package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

// Notifier delivers fired alerts through the Bot API. The primary path posts
// in the chat the alert was created in; the fallback messages the owner
// directly, which works once the owner has started a private chat with the
// bot.
type Notifier struct {
	client client
}

func (n *Notifier) SendPrimary(ctx context.Context, destination int64, text string) error {
	return errors.Wrapf(n.send(ctx, destination, text), "could not notify chat %d", destination)
}

func (n *Notifier) SendFallback(ctx context.Context, owner int64, text string) error {
	return errors.Wrapf(n.send(ctx, owner, text), "could not notify user %d", owner)
}

func (n *Notifier) send(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	msg.DisableWebPagePreview = true
	_, err := n.client.Send(msg)
	return err
}
