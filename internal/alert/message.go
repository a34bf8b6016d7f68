package alert

import (
	"crypto-alert-bot/internal/types"
	"crypto-alert-bot/lib/helpers"
	"crypto-alert-bot/lib/translation"
	"fmt"
	"strings"
)

// Message renders the MarkdownV2 notification for a fired alert.
func Message(entry types.AlertEntry, quote types.Quote) string {
	name := entry.Asset
	if quote.Name != "" {
		name = fmt.Sprintf("%s (%s)", quote.Name, quote.Symbol)
	}
	currency := helpers.EscapeMarkdownV2(strings.ToUpper(entry.Currency))

	return fmt.Sprintf(
		"🔔 *%s*\n\n%s %s *%s %s*\n%s: *%s %s* \\(24h: %s%%\\)",
		helpers.EscapeMarkdownV2(translation.Translate("Alert #%d triggered", entry.ID)),
		helpers.EscapeMarkdownV2(name),
		helpers.EscapeMarkdownV2(entry.Operator.Symbol()),
		helpers.FormatPriceUS(entry.Threshold, true),
		currency,
		helpers.EscapeMarkdownV2(translation.Translate("Current price")),
		helpers.FormatPriceUS(quote.Price, true),
		currency,
		helpers.FormatPercentage(quote.PercentChange24h),
	)
}
