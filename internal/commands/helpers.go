package commands

import (
	"crypto-alert-bot/internal/types"
	"strings"

	"github.com/pkg/errors"
)

const defaultCurrency = "usd"

// ErrUsage is returned when a command is missing its asset argument.
var ErrUsage = errors.New("missing asset")

// parseQuery splits "<asset> [currency]" into its parts.
func parseQuery(argument string) (string, string, error) {
	fields := strings.Fields(strings.ToLower(argument))
	switch len(fields) {
	case 0:
		return "", "", ErrUsage
	case 1:
		return fields[0], defaultCurrency, nil
	default:
		return fields[0], fields[1], nil
	}
}

func coinLink(quote types.Quote) string {
	id := quote.CoinID
	if id == "" {
		id = quote.Asset
	}
	return "https://coinpaprika.com/coin/" + id
}
