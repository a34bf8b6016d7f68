package telegram

import (
	"crypto-alert-bot/internal/alert"
	"crypto-alert-bot/internal/types"
	"crypto-alert-bot/lib/helpers"
	"crypto-alert-bot/lib/translation"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

var (
	errAlertUsage = errors.New("usage: /alert set <asset> <currency> <operator> <price>")
	errBadPrice   = errors.New("price is not a number")
)

// alertRequest is a parsed "/alert set" command.
type alertRequest struct {
	asset     string
	currency  string
	operator  types.Operator
	threshold float64
}

func parseAlertSet(args []string) (alertRequest, error) {
	if len(args) != 4 {
		return alertRequest{}, errAlertUsage
	}
	op, ok := types.ParseOperator(args[2])
	if !ok {
		return alertRequest{}, errors.Wrapf(alert.ErrInvalidOperator, "got %q", args[2])
	}
	threshold, err := strconv.ParseFloat(strings.ReplaceAll(args[3], ",", ""), 64)
	if err != nil {
		return alertRequest{}, errors.Wrapf(errBadPrice, "got %q", args[3])
	}
	return alertRequest{
		asset:     args[0],
		currency:  args[1],
		operator:  op,
		threshold: threshold,
	}, nil
}

// chatScope is nil for a private chat and the chat id for groups.
func chatScope(chat *tgbotapi.Chat) *int64 {
	if chat == nil || chat.IsPrivate() {
		return nil
	}
	id := chat.ID
	return &id
}

// HandleAlertCommand handles the /alert command logic
func (b *Bot) HandleAlertCommand(m *tgbotapi.Message) string {
	if m.From == nil || m.Chat == nil {
		return escaped("Alerts can only be managed by users.")
	}

	args := strings.Fields(m.CommandArguments())
	if len(args) == 0 {
		return alertUsage()
	}

	switch strings.ToLower(args[0]) {
	case "set":
		return b.alertSet(m, args[1:])
	case "list":
		return b.alertList(m)
	case "remove":
		return b.alertRemove(m, args[1:])
	case "clear":
		return b.alertClear(m)
	}
	return alertUsage()
}

func (b *Bot) alertSet(m *tgbotapi.Message, args []string) string {
	req, err := parseAlertSet(args)
	if err == nil {
		var entry types.AlertEntry
		entry, err = b.store.Add(chatScope(m.Chat), m.Chat.ID, m.From.ID, req.asset, req.currency, req.operator, req.threshold)
		if err == nil {
			b.metrics.AlertsCreated.Inc()
			log.WithFields(log.Fields{"alert_id": entry.ID, "chat_id": m.Chat.ID, "owner": m.From.ID}).
				Infof("Alert created: %s %s %s", entry.Asset, entry.Operator.Symbol(), entry.Currency)
			return helpers.EscapeMarkdownV2(translation.Translate(
				"Alert created (id=%d): %s %s %s %s",
				entry.ID, entry.Asset, entry.Operator.Symbol(), formatThreshold(entry.Threshold), strings.ToUpper(entry.Currency),
			))
		}
	}

	switch {
	case errors.Is(err, alert.ErrInvalidOperator):
		return escaped("Operator must be '>' or '<'.")
	case errors.Is(err, errBadPrice), errors.Is(err, alert.ErrInvalidAlert):
		return escaped("Invalid argument. Make sure the price is a number (e.g. 60000.0).")
	}
	return alertUsage()
}

func (b *Bot) alertList(m *tgbotapi.Message) string {
	entries := alert.VisibleTo(b.store.List(), chatScope(m.Chat), m.From.ID)
	if len(entries) == 0 {
		return escaped("No alerts found for this context.")
	}

	var list strings.Builder
	list.WriteString("*" + escaped("Alerts:") + "*\n")
	for _, entry := range entries {
		list.WriteString(formatEntry(entry))
		list.WriteString("\n")
	}
	return list.String()
}

func formatEntry(entry types.AlertEntry) string {
	return fmt.Sprintf("\\[%d\\] %s %s `%s` %s \\(%s\\)",
		entry.ID,
		helpers.EscapeMarkdownV2(entry.Asset),
		helpers.EscapeMarkdownV2(entry.Operator.Symbol()),
		helpers.EscapeMarkdownV2(formatThreshold(entry.Threshold)),
		helpers.EscapeMarkdownV2(strings.ToUpper(entry.Currency)),
		helpers.EscapeMarkdownV2(helpers.FormatDate(entry.CreatedAt)),
	)
}

func formatThreshold(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (b *Bot) alertRemove(m *tgbotapi.Message, args []string) string {
	if len(args) != 1 {
		return escaped("Usage: /alert remove <id>")
	}
	id, err := strconv.ParseUint(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil {
		return escaped("Usage: /alert remove <id>")
	}

	removed, err := b.store.RemoveOwned(id, m.From.ID)
	switch {
	case errors.Is(err, alert.ErrNotOwner):
		return escaped("Alert %d belongs to another user.", id)
	case !removed:
		return escaped("No alert with id %d.", id)
	}

	b.metrics.AlertsRemoved.Inc()
	log.WithFields(log.Fields{"alert_id": id, "owner": m.From.ID}).Info("Alert removed")
	return escaped("Removed alert %d.", id)
}

func (b *Bot) alertClear(m *tgbotapi.Message) string {
	logger := log.WithFields(log.Fields{"chat_id": m.Chat.ID, "user": m.From.ID})

	if b.isOperator(m.From.ID) {
		n := b.store.Clear()
		b.metrics.AlertsRemoved.Add(float64(n))
		logger.Warnf("All %d alerts cleared by operator", n)
		return escaped("All alerts cleared.")
	}

	if m.Chat.IsPrivate() {
		return escaped("Clearing alerts is only available in groups.")
	}

	admin, err := b.isAdmin(m.Chat.ID, m.From.ID)
	if err != nil {
		log.Errorf("Failed to check admin rights in chat %d: %v", m.Chat.ID, err)
		return escaped("An unexpected error occurred. Try again later.")
	}
	if !admin {
		return escaped("You don't have permission to use this command.")
	}

	n := b.store.ClearScope(m.Chat.ID)
	b.metrics.AlertsRemoved.Add(float64(n))
	logger.Infof("%d group alerts cleared", n)
	return escaped("Cleared %d alerts in this group.", n)
}

func (b *Bot) isOperator(userID int64) bool {
	for _, id := range b.Config.Operators {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *Bot) isAdmin(chatID, userID int64) (bool, error) {
	member, err := b.client.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: chatID, UserID: userID},
	})
	if err != nil {
		return false, errors.Wrap(err, "could not get chat member")
	}
	return member.IsAdministrator() || member.IsCreator(), nil
}

func alertUsage() string {
	return escaped("Usage: /alert set <asset> <currency> <operator> <price> | /alert list | /alert remove <id> | /alert clear\nExample: /alert set bitcoin usd > 60000")
}

// escaped translates msgID and escapes it for MarkdownV2.
func escaped(msgID string, vars ...interface{}) string {
	return helpers.EscapeMarkdownV2(translation.Translate(msgID, vars...))
}
