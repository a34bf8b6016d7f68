package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEscapeMarkdownV2(t *testing.T) {
	assert.Equal(t, `Alert \#3 \(btc\-bitcoin\)\!`, EscapeMarkdownV2("Alert #3 (btc-bitcoin)!"))
	assert.Equal(t, `a\\b`, EscapeMarkdownV2(`a\b`))
}

func TestFormatPriceUS(t *testing.T) {
	assert.Equal(t, "60,000", FormatPriceUS(60000, false))
	assert.Equal(t, "12.50", FormatPriceUS(12.5, false))
	assert.Equal(t, "0.500000", FormatPriceUS(0.5, false))
	assert.Equal(t, `12\.50`, FormatPriceUS(12.5, true))
}

func TestFormatPercentage(t *testing.T) {
	assert.Equal(t, `\+1\.25`, FormatPercentage(1.25))
	assert.Equal(t, `\-0\.50`, FormatPercentage(-0.5))
}

func TestFormatDate(t *testing.T) {
	ts := time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339)
	assert.Equal(t, "3 hours ago", FormatDate(ts))
	assert.Equal(t, "yesterday-ish", FormatDate("yesterday-ish"))
}
