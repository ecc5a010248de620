package marketCache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KotFed0t/networth_tracker_bot/data/cache"
	"github.com/KotFed0t/networth_tracker_bot/internal/errClassifier"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/model/quoteModel"
	"github.com/KotFed0t/networth_tracker_bot/utils"
	"github.com/shopspring/decimal"
)

const (
	kindPrice = "price"
	kindFx    = "fx"

	dateLayout        = "2006-01-02"
	staleFallbackDays = 7
)

type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	DeleteByPrefix(ctx context.Context, prefix string) error
}

type QuoteApi interface {
	GetQuote(ctx context.Context, symbol string) (quoteModel.Quote, error)
	GetFxRate(ctx context.Context, from, to string) (decimal.Decimal, error)
}

// MarketCache wraps the quote source with date-keyed at-most-once-per-day
// fetch semantics and a stale-fallback scan over the trailing week. The
// store is last-write-wins and unlocked: concurrent misses for one key may
// both hit the network, the duplicate write is idempotent.
type MarketCache struct {
	store    Store
	quoteApi QuoteApi
	now      func() time.Time
}

func New(store Store, quoteApi QuoteApi) *MarketCache {
	return &MarketCache{store: store, quoteApi: quoteApi, now: time.Now}
}

func entryKey(kind, key string, day time.Time) string {
	return fmt.Sprintf("%s:%s:%s", kind, key, day.Format(dateLayout))
}

func fxPairKey(from, to string) string {
	return from + "-" + to
}

// GetPrice returns today's cached quote, fetching it once per calendar day.
// When the fetch fails it falls back to the most recent entry within the
// previous 7 days; callers can tell how stale that is from FetchedAt.
func (c *MarketCache) GetPrice(ctx context.Context, symbol string) (model.CachedPrice, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketCache.GetPrice"

	today := c.now()

	if price, ok := c.readPrice(ctx, symbol, today); ok {
		return price, nil
	}

	quote, err := c.quoteApi.GetQuote(ctx, symbol)
	if err == nil {
		price := model.CachedPrice{
			Symbol:        quote.Symbol,
			Price:         quote.Price,
			Currency:      quote.Currency,
			Name:          quote.Name,
			Change:        quote.Change,
			ChangePercent: quote.ChangePercent,
			FetchedAt:     c.now(),
		}
		c.writeEntry(ctx, entryKey(kindPrice, symbol, today), price)
		return price, nil
	}

	slog.Warn("quote fetch failed, scanning stale entries", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))

	for i := 1; i <= staleFallbackDays; i++ {
		if price, ok := c.readPrice(ctx, symbol, today.AddDate(0, 0, -i)); ok {
			return price, nil
		}
	}

	return model.CachedPrice{}, fmt.Errorf("fetch price for %s: %w", symbol, err)
}

// GetPriceSync is a cache-only read of today's entry, it never fetches.
func (c *MarketCache) GetPriceSync(ctx context.Context, symbol string) (model.CachedPrice, bool) {
	return c.readPrice(ctx, symbol, c.now())
}

// GetPricesSync is the cache-only batch read: whatever of today's entries
// exist come back, the rest are simply absent. No network, no stale scan.
func (c *MarketCache) GetPricesSync(ctx context.Context, symbols []string) map[string]model.CachedPrice {
	prices := make(map[string]model.CachedPrice, len(symbols))
	for _, symbol := range utils.Dedup(symbols) {
		if price, ok := c.GetPriceSync(ctx, symbol); ok {
			prices[symbol] = price
		}
	}
	return prices
}

// GetFxRatesSync is the cache-only counterpart of GetFxRates. The base
// currency still resolves to exactly 1.0; anything uncached is absent.
func (c *MarketCache) GetFxRatesSync(ctx context.Context, currencies []string, base string) map[string]model.CachedFxRate {
	rates := make(map[string]model.CachedFxRate, len(currencies))
	today := c.now()

	for _, currency := range utils.Dedup(currencies) {
		if currency == base {
			rates[currency] = model.CachedFxRate{From: currency, To: base, Rate: decimal.NewFromInt(1), FetchedAt: today}
			continue
		}
		if rate, ok := c.readFxRate(ctx, fxPairKey(currency, base), today); ok {
			rates[currency] = rate
		}
	}

	return rates
}

// GetFxRate resolves a conversion rate with the same fetch-then-stale-fallback
// algorithm as prices. A currency against itself is always exactly 1.0 and
// never touches the cache or the network.
func (c *MarketCache) GetFxRate(ctx context.Context, from, to string) (model.CachedFxRate, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketCache.GetFxRate"

	if from == to {
		return model.CachedFxRate{From: from, To: to, Rate: decimal.NewFromInt(1), FetchedAt: c.now()}, nil
	}

	today := c.now()
	pair := fxPairKey(from, to)

	if rate, ok := c.readFxRate(ctx, pair, today); ok {
		return rate, nil
	}

	rawRate, err := c.quoteApi.GetFxRate(ctx, from, to)
	if err == nil {
		rate := model.CachedFxRate{From: from, To: to, Rate: rawRate, FetchedAt: c.now()}
		c.writeEntry(ctx, entryKey(kindFx, pair, today), rate)
		return rate, nil
	}

	slog.Warn("fx fetch failed, scanning stale entries", slog.String("rqID", rqID), slog.String("op", op), slog.String("pair", pair), slog.String("err", err.Error()))

	for i := 1; i <= staleFallbackDays; i++ {
		if rate, ok := c.readFxRate(ctx, pair, today.AddDate(0, 0, -i)); ok {
			return rate, nil
		}
	}

	return model.CachedFxRate{}, fmt.Errorf("fetch fx rate %s: %w", pair, err)
}

// GetPrices resolves a batch of symbols: already cached entries are read
// synchronously, the rest are fetched concurrently. One symbol failing never
// blocks the others, failures come back as classified portfolio errors.
func (c *MarketCache) GetPrices(ctx context.Context, symbols []string) (map[string]model.CachedPrice, []model.PortfolioError) {
	prices := make(map[string]model.CachedPrice, len(symbols))
	uncached := make([]string, 0, len(symbols))

	for _, symbol := range utils.Dedup(symbols) {
		if price, ok := c.GetPriceSync(ctx, symbol); ok {
			prices[symbol] = price
			continue
		}
		uncached = append(uncached, symbol)
	}

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failures []model.PortfolioError
	)

	for _, symbol := range uncached {
		wg.Add(1)
		go func(symbol string) {
			defer wg.Done()

			price, err := c.GetPrice(ctx, symbol)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, errClassifier.NewPortfolioError(err, symbol))
				return
			}
			prices[symbol] = price
		}(symbol)
	}

	wg.Wait()

	return prices, failures
}

// GetFxRates resolves every currency against the base concurrently. This
// batch never fails outward: a failed fetch is logged and substituted with
// rate 1.0 so a single missing rate cannot abort a whole valuation, at the
// cost of understating that currency's positions.
func (c *MarketCache) GetFxRates(ctx context.Context, currencies []string, base string) map[string]model.CachedFxRate {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "MarketCache.GetFxRates"

	rates := make(map[string]model.CachedFxRate, len(currencies))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, currency := range utils.Dedup(currencies) {
		wg.Add(1)
		go func(currency string) {
			defer wg.Done()

			rate, err := c.GetFxRate(ctx, currency, base)
			if err != nil {
				slog.Error("fx rate unavailable, substituting 1.0", slog.String("rqID", rqID), slog.String("op", op), slog.String("currency", currency), slog.String("err", err.Error()))
				rate = model.CachedFxRate{From: currency, To: base, Rate: decimal.NewFromInt(1), FetchedAt: c.now()}
			}

			mu.Lock()
			rates[currency] = rate
			mu.Unlock()
		}(currency)
	}

	wg.Wait()

	return rates
}

// ClearCache wipes every cached price and fx entry. Used by the explicit
// refresh action.
func (c *MarketCache) ClearCache(ctx context.Context) error {
	if err := c.store.DeleteByPrefix(ctx, kindPrice+":"); err != nil {
		return err
	}
	return c.store.DeleteByPrefix(ctx, kindFx+":")
}

func (c *MarketCache) readPrice(ctx context.Context, symbol string, day time.Time) (model.CachedPrice, bool) {
	price := model.CachedPrice{}
	if !c.readEntry(ctx, entryKey(kindPrice, symbol, day), &price) {
		return model.CachedPrice{}, false
	}
	return price, true
}

func (c *MarketCache) readFxRate(ctx context.Context, pair string, day time.Time) (model.CachedFxRate, bool) {
	rate := model.CachedFxRate{}
	if !c.readEntry(ctx, entryKey(kindFx, pair, day), &rate) {
		return model.CachedFxRate{}, false
	}
	return rate, true
}

func (c *MarketCache) readEntry(ctx context.Context, key string, dest any) bool {
	rqID := utils.GetRequestIDFromCtx(ctx)

	res, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrNotFound) {
			slog.Error("failed on store.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		}
		return false
	}

	if err := json.Unmarshal([]byte(res), dest); err != nil {
		slog.Error("can't unmarshall cache entry", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return false
	}

	return true
}

func (c *MarketCache) writeEntry(ctx context.Context, key string, value any) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	entryJson, err := json.Marshal(value)
	if err != nil {
		slog.Error("can't marshall cache entry", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
		return
	}

	if err := c.store.Set(ctx, key, string(entryJson)); err != nil {
		slog.Error("failed on store.Set", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("key", key))
	}
}
