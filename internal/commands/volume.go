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

func CommandVolume(ctx context.Context, prices alert.PriceSource, argument string) (string, error) {
	log.Debugf("processing command /v with argument :%s", argument)

	asset, currency, err := parseQuery(argument)
	if err != nil {
		return "", errors.Wrap(err, "command /v")
	}

	quote, err := prices.Get(ctx, asset, currency)
	if err != nil {
		return "", errors.Wrap(err, "command /v")
	}
	if quote.Volume24h == 0 {
		return "", errors.Wrap(errors.New("missing data"), "command /v")
	}

	name := quote.Name
	if name == "" {
		name = quote.Asset
	}
	unit := helpers.EscapeMarkdownV2(strings.ToUpper(quote.Currency))

	return fmt.Sprintf(
		"*%s 24h volume:*\n\n▫️`%s` *%s*\n▫️Market cap: `%s` *%s*\n\n[See %s on CoinPaprika 🌶](%s)",
		helpers.EscapeMarkdownV2(name),
		helpers.FormatPriceRoundedUS(quote.Volume24h), unit,
		helpers.FormatPriceRoundedUS(quote.MarketCap), unit,
		helpers.EscapeMarkdownV2(name),
		coinLink(quote),
	), nil
}
