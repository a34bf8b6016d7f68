package types

import "strings"

// Operator is the comparison an alert applies to the current price.
type Operator string

const (
	GreaterThan Operator = "greater_than"
	LessThan    Operator = "less_than"
)

// ParseOperator accepts the canonical names as well as ">" and "<".
func ParseOperator(s string) (Operator, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case ">", string(GreaterThan):
		return GreaterThan, true
	case "<", string(LessThan):
		return LessThan, true
	}
	return "", false
}

func (o Operator) Valid() bool {
	return o == GreaterThan || o == LessThan
}

// Symbol returns the short form shown to users.
func (o Operator) Symbol() string {
	switch o {
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	}
	return string(o)
}

// Matches reports whether price satisfies the operator against threshold.
// Both comparisons are strict.
func (o Operator) Matches(price, threshold float64) bool {
	switch o {
	case GreaterThan:
		return price > threshold
	case LessThan:
		return price < threshold
	}
	return false
}

// AlertEntry is one watch condition. Entries are immutable once created.
type AlertEntry struct {
	ID          uint64   `json:"id"`
	Scope       *int64   `json:"scope"` // nil for private alerts
	Destination int64    `json:"destination"`
	Owner       int64    `json:"owner"`
	Asset       string   `json:"asset"`
	Currency    string   `json:"currency"`
	Operator    Operator `json:"operator"`
	Threshold   float64  `json:"threshold"`
	CreatedAt   string   `json:"created_at"`
}

func (a AlertEntry) Matches(price float64) bool {
	return a.Operator.Matches(price, a.Threshold)
}

// Private reports whether the alert was created outside a group chat.
func (a AlertEntry) Private() bool {
	return a.Scope == nil
}

// Quote is the latest market data for an asset in one reference currency.
type Quote struct {
	Asset string `json:"asset"`
	// CoinID is the provider's id of the asset, e.g. btc-bitcoin.
	CoinID           string  `json:"coin_id"`
	Currency         string  `json:"currency"`
	Name             string  `json:"name"`
	Symbol           string  `json:"symbol"`
	Price            float64 `json:"price"`
	PercentChange24h float64 `json:"percent_change_24h"`
	MarketCap        float64 `json:"market_cap"`
	Volume24h        float64 `json:"volume_24h"`
}
