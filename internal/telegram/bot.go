package telegram

import (
	"context"
	"crypto-alert-bot/internal/alert"
	"crypto-alert-bot/internal/commands"
	"crypto-alert-bot/internal/metrics"
	"crypto-alert-bot/lib/translation"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
)

// maxMessageLength is Telegram's limit for a single text message.
const maxMessageLength = 4096

const sourceLink = "https://github\\.com/coinpaprika/telegram\\-bot\\-v2"

// NewBot creates new telegram bot
func NewBot(c BotConfig, store *alert.Store, prices alert.PriceSource, m *metrics.Metrics) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	bot.Debug = c.Debug

	b := newBot(bot, store, prices, m)
	b.Bot = bot
	b.Config = c
	return b, nil
}

func newBot(c client, store *alert.Store, prices alert.PriceSource, m *metrics.Metrics) *Bot {
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Bot{
		client:  c,
		store:   store,
		prices:  prices,
		metrics: m,
	}
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() (tgbotapi.UpdatesChannel, error) {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.Bot.GetUpdatesChan(updatesConfig), nil
}

// StopReceivingUpdates closes the updates channel.
func (b *Bot) StopReceivingUpdates() {
	if b.Bot != nil {
		b.Bot.StopReceivingUpdates()
	}
}

// Notifier returns the alert delivery sink backed by this bot.
func (b *Bot) Notifier() *Notifier {
	return &Notifier{client: b.client}
}

// SendMessage sends a telegram message, split on line boundaries when it
// is longer than Telegram allows.
func (b *Bot) SendMessage(m Message) error {
	for i, chunk := range splitMessage(m.Text, maxMessageLength) {
		msg := tgbotapi.NewMessage(m.ChatID, chunk)
		if i == 0 {
			msg.ReplyToMessageID = m.MessageID
		}
		msg.DisableWebPagePreview = true
		msg.ParseMode = tgbotapi.ModeMarkdownV2
		if _, err := b.client.Send(msg); err != nil {
			return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
		}
	}
	return nil
}

// splitMessage cuts text into pieces of at most limit bytes, preferring
// newlines so MarkdownV2 entities are not broken apart.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if current.Len() > 0 {
				chunks = append(chunks, current.String())
				current.Reset()
			}
			chunks = append(chunks, line[:limit])
			line = line[limit:]
		}
		if current.Len()+len(line) > limit {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		current.WriteString(line)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// HandleUpdate processes Telegram updates and returns the reply text. An
// empty reply means nothing should be sent.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) string {
	text := translation.Translate("Command help message")
	log.Debugf("received command: %s", u.Message.Command())

	var err error

	switch u.Message.Command() {
	case "source":
		text = sourceLink
	case "p":
		if text, err = commands.CommandPrice(ctx, b.prices, u.Message.CommandArguments()); err != nil {
			text = commandError(err)
		}
	case "v":
		if text, err = commands.CommandVolume(ctx, b.prices, u.Message.CommandArguments()); err != nil {
			text = commandError(err)
		}
	case "convert":
		if text, err = commands.CommandConvert(ctx, b.prices, u.Message.CommandArguments()); err != nil {
			text = commandError(err)
		}
	case "alert":
		text = b.HandleAlertCommand(u.Message)
	}

	return text
}

func commandError(err error) string {
	if errors.Is(err, commands.ErrUsage) {
		return translation.Translate("Command help message")
	}
	log.Error(err)
	return translation.Translate("Coin not found")
}
