package marketCache

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/networth_tracker_bot/data/cache"
	"github.com/KotFed0t/networth_tracker_bot/internal/errClassifier"
	"github.com/KotFed0t/networth_tracker_bot/internal/model"
	"github.com/KotFed0t/networth_tracker_bot/internal/model/quoteModel"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeQuoteApi struct {
	mu         sync.Mutex
	quoteCalls int
	fxCalls    int
	quoteErr   error
	fxErr      error
	price      decimal.Decimal
	rate       decimal.Decimal
}

func (f *fakeQuoteApi) GetQuote(_ context.Context, symbol string) (quoteModel.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quoteCalls++
	if f.quoteErr != nil {
		return quoteModel.Quote{}, f.quoteErr
	}
	return quoteModel.Quote{Symbol: symbol, Price: f.price, Currency: "USD"}, nil
}

func (f *fakeQuoteApi) GetFxRate(_ context.Context, from, to string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fxCalls++
	if f.fxErr != nil {
		return decimal.Decimal{}, f.fxErr
	}
	return f.rate, nil
}

func (f *fakeQuoteApi) calls() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.quoteCalls, f.fxCalls
}

func newTestCache(api *fakeQuoteApi, day time.Time) *MarketCache {
	c := New(cache.NewMemoryCache(100), api)
	c.now = func() time.Time { return day }
	return c
}

func TestGetPrice_FetchesAtMostOncePerDay(t *testing.T) {
	api := &fakeQuoteApi{price: decimal.NewFromFloat(187.5)}
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := newTestCache(api, day)

	first, err := c.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	second, err := c.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	quoteCalls, _ := api.calls()
	assert.Equal(t, 1, quoteCalls)
	assert.True(t, first.Price.Equal(second.Price))

	// a new calendar day refetches
	c.now = func() time.Time { return day.AddDate(0, 0, 1) }
	_, err = c.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	quoteCalls, _ = api.calls()
	assert.Equal(t, 2, quoteCalls)
}

func TestGetFxRate_SameCurrencyNeverFetches(t *testing.T) {
	api := &fakeQuoteApi{fxErr: errors.New("should not be called")}
	c := newTestCache(api, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))

	rate, err := c.GetFxRate(context.Background(), "GBP", "GBP")
	require.NoError(t, err)
	assert.True(t, rate.Rate.Equal(decimal.NewFromInt(1)))

	_, fxCalls := api.calls()
	assert.Equal(t, 0, fxCalls)
}

func TestGetPrice_StaleFallbackWithinWeek(t *testing.T) {
	api := &fakeQuoteApi{price: decimal.NewFromFloat(42.0)}
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := newTestCache(api, day)

	_, err := c.GetPrice(context.Background(), "MSFT")
	require.NoError(t, err)

	// three days later the fetch fails, the day-20 entry still serves
	api.quoteErr = errors.New("connection refused")
	c.now = func() time.Time { return day.AddDate(0, 0, 3) }

	price, err := c.GetPrice(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.True(t, price.Price.Equal(decimal.NewFromFloat(42.0)))
	assert.Equal(t, day.Format("2006-01-02"), price.FetchedAt.Format("2006-01-02"))
}

func TestGetPrice_StaleFallbackExpiresAfterSevenDays(t *testing.T) {
	api := &fakeQuoteApi{price: decimal.NewFromFloat(42.0)}
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := newTestCache(api, day)

	_, err := c.GetPrice(context.Background(), "MSFT")
	require.NoError(t, err)

	api.quoteErr = errors.New("connection refused")
	c.now = func() time.Time { return day.AddDate(0, 0, 8) }

	_, err = c.GetPrice(context.Background(), "MSFT")
	require.Error(t, err)
}

func TestGetPrice_ErrorKeepsClassification(t *testing.T) {
	rawErr := &net.DNSError{Err: "no such host", Name: "quotes.example.com"}
	api := &fakeQuoteApi{quoteErr: rawErr}
	c := newTestCache(api, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))

	_, err := c.GetPrice(context.Background(), "MSFT")
	require.Error(t, err)
	assert.Equal(t, errClassifier.Classify(rawErr), errClassifier.Classify(err))
	assert.Equal(t, model.ErrCategoryOffline, errClassifier.Classify(err))
}

func TestGetPrices_PartitionsCachedAndFailed(t *testing.T) {
	api := &fakeQuoteApi{price: decimal.NewFromFloat(10)}
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := newTestCache(api, day)

	_, err := c.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	api.quoteErr = errors.New("connection refused")

	prices, failures := c.GetPrices(context.Background(), []string{"AAPL", "AAPL", "VOO"})

	assert.Len(t, prices, 1)
	assert.Contains(t, prices, "AAPL")
	require.Len(t, failures, 1)
	assert.Equal(t, "VOO", failures[0].Symbol)
	assert.Equal(t, model.ErrCategoryOffline, failures[0].Category)

	// duplicate symbols collapse to one fetch attempt
	quoteCalls, _ := api.calls()
	assert.Equal(t, 2, quoteCalls)
}

func TestGetPricesSync_NeverFetches(t *testing.T) {
	api := &fakeQuoteApi{price: decimal.NewFromFloat(42.0)}
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := newTestCache(api, day)

	_, err := c.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)

	prices := c.GetPricesSync(context.Background(), []string{"AAPL", "VOO"})

	assert.Len(t, prices, 1)
	assert.Contains(t, prices, "AAPL")

	// the miss on VOO must not have hit the network
	quoteCalls, _ := api.calls()
	assert.Equal(t, 1, quoteCalls)
}

func TestGetFxRatesSync_BaseIsOneMissesAreAbsent(t *testing.T) {
	api := &fakeQuoteApi{rate: decimal.NewFromFloat(0.79)}
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := newTestCache(api, day)

	_, err := c.GetFxRate(context.Background(), "USD", "GBP")
	require.NoError(t, err)

	rates := c.GetFxRatesSync(context.Background(), []string{"USD", "EUR", "GBP"}, "GBP")

	require.Len(t, rates, 2)
	assert.True(t, rates["USD"].Rate.Equal(decimal.NewFromFloat(0.79)))
	assert.True(t, rates["GBP"].Rate.Equal(decimal.NewFromInt(1)))
	assert.NotContains(t, rates, "EUR")

	_, fxCalls := api.calls()
	assert.Equal(t, 1, fxCalls)
}

func TestGetFxRates_NeverFailsOutward(t *testing.T) {
	api := &fakeQuoteApi{fxErr: errors.New("connection refused")}
	c := newTestCache(api, time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC))

	rates := c.GetFxRates(context.Background(), []string{"USD", "EUR", "GBP"}, "GBP")

	require.Len(t, rates, 3)
	assert.True(t, rates["USD"].Rate.Equal(decimal.NewFromInt(1)))
	assert.True(t, rates["EUR"].Rate.Equal(decimal.NewFromInt(1)))
	assert.True(t, rates["GBP"].Rate.Equal(decimal.NewFromInt(1)))
}

func TestClearCache_ForcesRefetch(t *testing.T) {
	api := &fakeQuoteApi{price: decimal.NewFromFloat(10), rate: decimal.NewFromFloat(0.79)}
	day := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	c := newTestCache(api, day)

	_, err := c.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = c.GetFxRate(context.Background(), "USD", "GBP")
	require.NoError(t, err)

	require.NoError(t, c.ClearCache(context.Background()))

	_, err = c.GetPrice(context.Background(), "AAPL")
	require.NoError(t, err)
	_, err = c.GetFxRate(context.Background(), "USD", "GBP")
	require.NoError(t, err)

	quoteCalls, fxCalls := api.calls()
	assert.Equal(t, 2, quoteCalls)
	assert.Equal(t, 2, fxCalls)
}
