package commands

import (
	"context"
	"crypto-alert-bot/internal/alert"
	"crypto-alert-bot/lib/helpers"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func CommandPrice(ctx context.Context, prices alert.PriceSource, argument string) (string, error) {
	log.Debugf("processing command /p with argument :%s", argument)

	asset, currency, err := parseQuery(argument)
	if err != nil {
		return "", errors.Wrap(err, "command /p")
	}

	quote, err := prices.Get(ctx, asset, currency)
	if err != nil {
		return "", errors.Wrap(err, "command /p")
	}

	name := quote.Name
	if name == "" {
		name = quote.Asset
	}

	return fmt.Sprintf("*%s price:*\n\n▫️`%s` *%s*\n▫️24h: `%s%%`\n\n[See %s on CoinPaprika 🌶](%s)",
		helpers.EscapeMarkdownV2(name),
		helpers.FormatPriceUS(quote.Price, true),
		helpers.EscapeMarkdownV2(strings.ToUpper(quote.Currency)),
		helpers.FormatPercentage(quote.PercentChange24h),
		helpers.EscapeMarkdownV2(name),
		coinLink(quote),
	), nil
}
