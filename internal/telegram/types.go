package telegram

import (
	"crypto-alert-bot/internal/alert"
	"crypto-alert-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
	// Operators may clear every alert in the store, from any chat.
	Operators []int64
}

// client is the part of the Bot API the handlers need.
type client interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetChatMember(config tgbotapi.GetChatMemberConfig) (tgbotapi.ChatMember, error)
}

// Bot telegram interaction client
type Bot struct {
	Bot     *tgbotapi.BotAPI
	Config  BotConfig
	client  client
	store   *alert.Store
	prices  alert.PriceSource
	metrics *metrics.Metrics
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
}
