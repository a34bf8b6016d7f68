package alert

import (
	"context"
	"crypto-alert-bot/internal/metrics"
	"crypto-alert-bot/internal/price"
	"crypto-alert-bot/internal/types"
	"fmt"
	"math"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultInterval        = 60 * time.Second
	DefaultStopTimeout     = 5 * time.Second
	DefaultDeliveryTimeout = 10 * time.Second
	DefaultConcurrency     = 4
)

type CheckerConfig struct {
	// Interval between ticks.
	Interval time.Duration
	// StopTimeout bounds how long Stop waits for a running tick.
	StopTimeout time.Duration
	// Concurrency caps the number of asset/currency groups checked at once.
	Concurrency int
	// DeliveryTimeout bounds the notification of one fired alert, fallback included.
	DeliveryTimeout time.Duration
	Metrics         *metrics.Metrics
}

// Checker periodically matches stored alerts against live prices, removes
// the ones that fired and notifies their owners.
type Checker struct {
	store    *Store
	prices   PriceSource
	notifier Notifier
	cfg      CheckerConfig
	metrics  *metrics.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type pair struct {
	asset    string
	currency string
}

func NewChecker(store *Store, prices PriceSource, notifier Notifier, cfg CheckerConfig) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = DefaultStopTimeout
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = DefaultDeliveryTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.New(prometheus.NewRegistry())
	}
	return &Checker{
		store:    store,
		prices:   prices,
		notifier: notifier,
		cfg:      cfg,
		metrics:  m,
	}
}

// Start launches the background loop. The first tick runs as soon as ready
// is closed, later ones every Interval. Calling Start twice is a no-op.
func (c *Checker) Start(ctx context.Context, ready <-chan struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.done != nil {
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})

	go c.run(ctx, ready, c.done)
	log.Infof("🚀 Alert checker started (interval %s).", c.cfg.Interval)
}

func (c *Checker) run(ctx context.Context, ready <-chan struct{}, done chan struct{}) {
	defer close(done)

	select {
	case <-ready:
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		c.Tick(ctx)

		select {
		case <-ctx.Done():
			log.Info("Alert checker cancelled.")
			return
		case <-ticker.C:
		}
	}
}

// Stop cancels the loop, waits at most StopTimeout for the current tick and
// then saves the store.
func (c *Checker) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(c.cfg.StopTimeout):
			log.Warnf("Alert checker did not stop within %s, abandoning current tick", c.cfg.StopTimeout)
		}
	}

	if err := c.store.Save(); err != nil {
		log.Errorf("Failed to save alerts during shutdown: %v", err)
	}
}

// Tick runs one check over all active alerts. It never panics and never
// returns an error: failures are logged and retried on the next tick.
func (c *Checker) Tick(ctx context.Context) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("🔥 Panic recovered in alert checker: %v\n%s", r, debug.Stack())
		}
		c.metrics.CheckerTicks.Inc()
		c.metrics.TickDuration.Observe(time.Since(start).Seconds())
	}()

	entries := c.store.List()
	c.metrics.ActiveAlerts.Set(float64(len(entries)))
	if len(entries) == 0 {
		return
	}

	groups := make(map[pair]int)
	for _, entry := range entries {
		groups[pair{entry.Asset, entry.Currency}]++
	}
	log.Debugf("🔄 Checking %d alerts in %d groups...", len(entries), len(groups))

	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for key, size := range groups {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					log.Errorf("🔥 Panic recovered checking %s/%s: %v\n%s", key.asset, key.currency, r, debug.Stack())
				}
			}()
			c.checkGroup(ctx, key, size)
			return nil
		})
	}
	_ = g.Wait()

	c.metrics.ActiveAlerts.Set(float64(c.store.Len()))
}

func (c *Checker) checkGroup(ctx context.Context, key pair, size int) {
	logger := log.WithFields(log.Fields{"asset": key.asset, "currency": key.currency})

	quote, err := c.prices.Get(ctx, key.asset, key.currency)
	if err == nil && (math.IsNaN(quote.Price) || math.IsInf(quote.Price, 0)) {
		err = errors.Wrapf(price.ErrUnavailable, "invalid price %v", quote.Price)
	}
	if err != nil {
		reason := "unavailable"
		var rl *price.RateLimitError
		if errors.As(err, &rl) {
			reason = "rate_limited"
		}
		c.metrics.PriceUnavailable.WithLabelValues(reason).Inc()
		logger.Warnf("⚠️ No price, leaving %d alerts for next tick: %v", size, err)
		return
	}

	// Nothing is popped once shutdown has begun, so no alert is removed
	// without a delivery attempt.
	if ctx.Err() != nil {
		return
	}

	matched := c.store.PopMatching(key.asset, key.currency, func(entry types.AlertEntry) bool {
		return entry.Matches(quote.Price)
	})
	if len(matched) == 0 {
		return
	}
	c.metrics.AlertsTriggered.Add(float64(len(matched)))

	for _, entry := range matched {
		c.deliverWithTimeout(ctx, entry, quote)
	}
}

// deliverWithTimeout gives each popped alert its own delivery budget,
// detached from cancellation of the checker.
func (c *Checker) deliverWithTimeout(ctx context.Context, entry types.AlertEntry, quote types.Quote) string {
	deliverCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.DeliveryTimeout)
	defer cancel()
	return c.deliver(deliverCtx, entry, quote)
}

// deliver tries the alert's destination chat, then the owner directly. A
// failure on both paths drops the notification; the alert stays removed.
func (c *Checker) deliver(ctx context.Context, entry types.AlertEntry, quote types.Quote) string {
	logger := log.WithFields(log.Fields{
		"alert_id":    entry.ID,
		"destination": entry.Destination,
		"owner":       entry.Owner,
	})
	text := Message(entry, quote)

	outcome := metrics.OutcomePrimary
	err := safeSend(func() error { return c.notifier.SendPrimary(ctx, entry.Destination, text) })
	if err != nil {
		logger.Warnf("❌ Failed to send alert to destination, falling back to owner: %v", err)
		outcome = metrics.OutcomeFallback
		if err := safeSend(func() error { return c.notifier.SendFallback(ctx, entry.Owner, text) }); err != nil {
			logger.Errorf("❌ Failed to send alert to owner, dropping notification: %v", err)
			outcome = metrics.OutcomeFailed
		}
	}

	c.metrics.Deliveries.WithLabelValues(outcome).Inc()
	logger.Infof("✅ Dispatched alert (outcome=%s)", outcome)
	return outcome
}

func safeSend(send func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while sending: %v", r)
		}
	}()
	return send()
}
