package commands

import (
	"context"
	"crypto-alert-bot/internal/alert"
	"crypto-alert-bot/lib/helpers"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CommandConvert values an amount of a coin in a currency, e.g.
// "/convert 2 bitcoin eur".
func CommandConvert(ctx context.Context, prices alert.PriceSource, argument string) (string, error) {
	log.Debugf("processing command /convert with argument :%s", argument)

	amountArg, rest, _ := strings.Cut(strings.TrimSpace(argument), " ")
	amount, err := strconv.ParseFloat(amountArg, 64)
	if err != nil || amount <= 0 || math.IsInf(amount, 0) || math.IsNaN(amount) {
		return "", errors.Wrapf(ErrUsage, "command /convert: bad amount %q", amountArg)
	}

	asset, currency, err := parseQuery(rest)
	if err != nil {
		return "", errors.Wrap(err, "command /convert")
	}

	quote, err := prices.Get(ctx, asset, currency)
	if err != nil {
		return "", errors.Wrap(err, "command /convert")
	}

	name := quote.Name
	if name == "" {
		name = quote.Asset
	}
	symbol := quote.Symbol
	if symbol == "" {
		symbol = quote.Asset
	}
	unit := helpers.EscapeMarkdownV2(strings.ToUpper(quote.Currency))

	return fmt.Sprintf(
		"*%s conversion:*\n\n▫️`%s` %s \\= `%s` *%s*\n▫️Rate: `%s` *%s*\n\n[See %s on CoinPaprika 🌶](%s)",
		helpers.EscapeMarkdownV2(name),
		helpers.EscapeMarkdownV2(strconv.FormatFloat(amount, 'f', -1, 64)),
		helpers.EscapeMarkdownV2(strings.ToUpper(symbol)),
		helpers.FormatPriceUS(amount*quote.Price, true), unit,
		helpers.FormatPriceUS(quote.Price, true), unit,
		helpers.EscapeMarkdownV2(name),
		coinLink(quote),
	), nil
}
