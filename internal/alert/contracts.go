package alert

import (
	"context"
	"crypto-alert-bot/internal/types"
)

// PriceSource returns the latest quote for an asset. Any error means the
// price is unavailable for now.
type PriceSource interface {
	Get(ctx context.Context, asset, currency string) (types.Quote, error)
}

// Notifier delivers a fired alert. SendFallback is only used when
// SendPrimary fails.
type Notifier interface {
	SendPrimary(ctx context.Context, destination int64, text string) error
	SendFallback(ctx context.Context, owner int64, text string) error
}
