package price

import (
	"context"
	"crypto-alert-bot/internal/types"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coinpaprika/coinpaprika-api-go-client/v2/coinpaprika"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// ErrUnavailable means the provider had no usable price for the pair.
var ErrUnavailable = errors.New("price unavailable")

// RateLimitError is returned while the provider is throttling us.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("API rate limit exceeded, retry after %s", e.RetryAfter)
	}
	return "API rate limit exceeded"
}

type Config struct {
	APIKey string
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration
	// Retries after the first attempt, with doubling Backoff in between.
	Retries int
	Backoff time.Duration
	// Concurrency caps outbound requests across all callers.
	Concurrency int
	// CacheTTL of quotes; zero disables the cache.
	CacheTTL time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// PaprikaSource serves quotes from the CoinPaprika API.
type PaprikaSource struct {
	client *coinpaprika.Client
	cfg    Config
	sem    *semaphore.Weighted
	quotes *expirable.LRU[string, types.Quote]
	ids    *expirable.LRU[string, string]

	mu           sync.Mutex
	limitedUntil time.Time
	now          func() time.Time
}

func NewPaprikaSource(cfg Config) *PaprikaSource {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 6
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 500 * time.Millisecond
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	s := &PaprikaSource{
		cfg: cfg,
		sem: semaphore.NewWeighted(int64(cfg.Concurrency)),
		ids: expirable.NewLRU[string, string](1024, nil, 24*time.Hour),
		now: time.Now,
	}
	if cfg.CacheTTL > 0 {
		s.quotes = expirable.NewLRU[string, types.Quote](1024, nil, cfg.CacheTTL)
	}

	next := cfg.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: &rateLimitTransport{next: next, onLimit: s.markLimited},
	}

	if cfg.APIKey != "" {
		s.client = coinpaprika.NewClient(httpClient, coinpaprika.WithAPIKey(cfg.APIKey))
	} else {
		s.client = coinpaprika.NewClient(httpClient)
	}
	return s
}

// Get returns the latest quote of asset in currency. asset is either a
// CoinPaprika id ("btc-bitcoin") or a name or symbol resolved via search.
func (s *PaprikaSource) Get(ctx context.Context, asset, currency string) (types.Quote, error) {
	asset = strings.ToLower(strings.TrimSpace(asset))
	currency = strings.ToLower(strings.TrimSpace(currency))
	if asset == "" || currency == "" {
		return types.Quote{}, errors.Wrap(ErrUnavailable, "asset and currency are required")
	}

	key := asset + "::" + currency
	if s.quotes != nil {
		if q, ok := s.quotes.Get(key); ok {
			return q, nil
		}
	}

	coinID, err := s.resolve(ctx, asset)
	if err != nil {
		return types.Quote{}, err
	}

	quoteKey := strings.ToUpper(currency)
	var ticker *coinpaprika.Ticker
	err = s.retry(ctx, func() error {
		t, err := call(ctx, func() (*coinpaprika.Ticker, error) {
			return s.client.Tickers.GetByID(coinID, &coinpaprika.TickersOptions{Quotes: quoteKey})
		})
		if err != nil {
			return err
		}
		ticker = t
		return nil
	})
	if err != nil {
		return types.Quote{}, errors.Wrapf(err, "could not fetch ticker %s", coinID)
	}
	if ticker == nil || ticker.Quotes == nil {
		return types.Quote{}, errors.Wrapf(ErrUnavailable, "no quotes for %s", coinID)
	}
	quote, ok := ticker.Quotes[quoteKey]
	if !ok || quote.Price == nil {
		return types.Quote{}, errors.Wrapf(ErrUnavailable, "no %s price for %s", quoteKey, coinID)
	}

	q := types.Quote{
		Asset:            asset,
		CoinID:           coinID,
		Currency:         currency,
		Name:             deref(ticker.Name),
		Symbol:           deref(ticker.Symbol),
		Price:            *quote.Price,
		PercentChange24h: derefFloat(quote.PercentChange24h),
		MarketCap:        derefFloat(quote.MarketCap),
		Volume24h:        derefFloat(quote.Volume24h),
	}
	if s.quotes != nil {
		s.quotes.Add(key, q)
	}
	return q, nil
}

// resolve maps a user supplied asset to a CoinPaprika coin id.
func (s *PaprikaSource) resolve(ctx context.Context, asset string) (string, error) {
	if strings.Contains(asset, "-") {
		return asset, nil
	}
	if id, ok := s.ids.Get(asset); ok {
		return id, nil
	}

	var coin *coinpaprika.Coin
	err := s.retry(ctx, func() error {
		c, err := call(ctx, func() (*coinpaprika.Coin, error) { return s.searchCoin(asset) })
		if err != nil {
			return err
		}
		coin = c
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "could not resolve %s", asset)
	}
	if coin == nil || coin.ID == nil {
		return "", errors.Wrapf(ErrUnavailable, "unknown asset %s", asset)
	}

	id := strings.ToLower(*coin.ID)
	log.Debugf("Best match for asset '%s' is: %s", asset, id)
	s.ids.Add(asset, id)
	return id, nil
}

// searchCoin tries a symbol search first and falls back to a name search.
// A nil coin with a nil error means nothing matched.
func (s *PaprikaSource) searchCoin(query string) (*coinpaprika.Coin, error) {
	var lastErr error
	for _, modifier := range []string{"symbol_search", ""} {
		result, err := s.client.Search.Search(&coinpaprika.SearchOptions{
			Query:      query,
			Categories: "currencies",
			Modifier:   modifier,
		})
		if err != nil {
			lastErr = err
			if s.limited() {
				break
			}
			continue
		}
		if result != nil && len(result.Currencies) > 0 {
			return bestMatch(query, result.Currencies), nil
		}
	}
	return nil, lastErr
}

// bestMatch prefers an exact name or symbol match, then an id ending in the
// query, then the provider's first result.
func bestMatch(query string, coins []*coinpaprika.Coin) *coinpaprika.Coin {
	for _, c := range coins {
		if c != nil && c.ID != nil && (strings.EqualFold(deref(c.Name), query) || strings.EqualFold(deref(c.Symbol), query)) {
			return c
		}
	}
	for _, c := range coins {
		if c != nil && c.ID != nil && strings.HasSuffix(strings.ToLower(*c.ID), "-"+query) {
			return c
		}
	}
	return coins[0]
}

// retry runs op with bounded retries and exponential backoff. Rate limiting
// stops retries at once.
func (s *PaprikaSource) retry(ctx context.Context, op func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.cfg.Backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.cfg.Retries)), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if err := s.checkLimited(); err != nil {
			return backoff.Permanent(err)
		}
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return backoff.Permanent(err)
		}
		defer s.sem.Release(1)

		err := op()
		if err == nil {
			return nil
		}
		var rl *RateLimitError
		if errors.As(err, &rl) {
			return backoff.Permanent(rl)
		}
		if lerr := s.checkLimited(); lerr != nil {
			return backoff.Permanent(lerr)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		log.Debugf("price request failed (attempt %d): %v", attempt, err)
		return err
	}, policy)
}

func (s *PaprikaSource) markLimited(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = s.cfg.Backoff
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	until := s.now().Add(retryAfter)
	if until.After(s.limitedUntil) {
		s.limitedUntil = until
	}
	log.Warnf("CoinPaprika rate limit hit, backing off for %s", retryAfter)
}

func (s *PaprikaSource) limited() bool {
	return s.checkLimited() != nil
}

func (s *PaprikaSource) checkLimited() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now := s.now(); now.Before(s.limitedUntil) {
		return &RateLimitError{RetryAfter: s.limitedUntil.Sub(now)}
	}
	return nil
}

// call runs fn but returns as soon as ctx is done. The client has no
// context support, so an abandoned request finishes in the background.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		v, err := fn()
		ch <- result{v, err}
	}()

	select {
	case r := <-ch:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefFloat(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
