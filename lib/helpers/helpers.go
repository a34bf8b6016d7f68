package helpers

import (
	"fmt"
	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"strings"
	"time"
)

func EscapeMarkdownV2(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")

	charactersToEscape := []string{".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

func FormatPriceUS(price float64, escapeMarkdown bool) string {
	decimals := 6

	if price >= 1000 {
		decimals = 0
	} else if price > 1.2 {
		decimals = 2
	} else if price < 0.00001 {
		decimals = 8
	}

	p := message.NewPrinter(language.English)
	formatted := p.Sprintf("%.*f", decimals, price)

	if escapeMarkdown {
		return EscapeMarkdownV2(formatted)
	}
	return formatted
}

func FormatPriceRoundedUS(price float64) string {
	roundedPrice := int64(price + 0.5)

	p := message.NewPrinter(language.English)
	return EscapeMarkdownV2(p.Sprintf("%d", roundedPrice))
}

// FormatPercentage renders a signed two-decimal percentage, escaped.
func FormatPercentage(percent float64) string {
	return EscapeMarkdownV2(fmt.Sprintf("%+.2f", percent))
}

// FormatDate renders an RFC3339 timestamp relative to now ("3 hours ago").
// Unparseable input is returned unchanged.
func FormatDate(ts string) string {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}
