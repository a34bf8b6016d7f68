package alert

import (
	"crypto-alert-bot/internal/types"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessage(t *testing.T) {
	entry := types.AlertEntry{ID: 12, Asset: "bitcoin", Currency: "usd", Operator: types.GreaterThan, Threshold: 60000}
	quote := types.Quote{Name: "Bitcoin", Symbol: "BTC", Price: 61500.25, PercentChange24h: 3.2}

	assert.Equal(t,
		"🔔 *Alert \\#12 triggered*\n\nBitcoin \\(BTC\\) \\> *60,000 USD*\nCurrent price: *61,500 USD* \\(24h: \\+3\\.20%\\)",
		Message(entry, quote),
	)
}

func TestMessageWithoutQuoteName(t *testing.T) {
	entry := types.AlertEntry{ID: 3, Asset: "eth-ethereum", Currency: "eur", Operator: types.LessThan, Threshold: 1.5}
	quote := types.Quote{Price: 1.25, PercentChange24h: -0.5}

	msg := Message(entry, quote)
	assert.Contains(t, msg, "eth\\-ethereum < *1\\.50 EUR*")
	assert.Contains(t, msg, "*1\\.25 EUR*")
	assert.Contains(t, msg, "\\-0\\.50%")
}
