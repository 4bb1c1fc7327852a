// Package currency converts amounts between a currency's minor unit and
// USD cents, the platform's single unit of account. Rates are fetched from
// an external USD-pivoted source, validated, and cached in memory for a
// configurable duration. All monetary arithmetic is decimal; floats appear
// only in results, for display.
package currency

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/HAVN-Associates/havn-sdk/pkg/cache"
	"github.com/HAVN-Associates/havn-sdk/pkg/logger"
	"github.com/HAVN-Associates/havn-sdk/pkg/metric"

	"github.com/shopspring/decimal"
)

const (
	// BaseCurrency is the pivot for every fetched rate: 1 USD = rate units
	// of the target currency.
	BaseCurrency = "USD"

	_defaultRateSourceURL = "https://api.exchangerate-api.com/v4/latest/USD"
	_defaultCacheTTL      = 24 * time.Hour
	_defaultFetchTimeout  = 5 * time.Second
	_rateCacheCapacity    = 256
	_rateCacheKind        = "exchange_rate"
)

// maxSaneRate rejects absurd fetched values before they poison the cache.
var maxSaneRate = decimal.NewFromInt(1_000_000_000)

// Conversion is the result of a conversion in either direction. Amount and
// OriginalAmount are minor units of their respective currencies; the
// decimal and formatted fields are for display only.
type Conversion struct {
	Amount           int64   `json:"amount"`
	AmountDecimal    float64 `json:"amount_decimal"`
	AmountFormatted  string  `json:"amount_formatted"`
	Currency         string  `json:"currency"`
	ExchangeRate     float64 `json:"exchange_rate"`
	OriginalAmount   int64   `json:"original_amount"`
	OriginalCurrency string  `json:"original_currency"`
}

// ConversionError reports that no exchange rate was available for a pair.
type ConversionError struct {
	From string
	To   string
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf(
		"exchange rate not available for %s to %s: ensure the currency is supported and the rate source is reachable, or skip conversion if the amount is already in %s minor units",
		e.From, e.To, e.To,
	)
}

type Converter struct {
	rateSourceURL string
	cacheTTL      time.Duration
	fetchTimeout  time.Duration
	httpClient    *http.Client
	rates         *cache.LRUCache[string, decimal.Decimal]
	log           logger.Logger
	metrics       metric.Cache
	now           func() time.Time
}

type Option func(*Converter)

func WithRateSourceURL(rawURL string) Option {
	return func(c *Converter) {
		c.rateSourceURL = rawURL
	}
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Converter) {
		c.cacheTTL = ttl
	}
}

func WithFetchTimeout(timeout time.Duration) Option {
	return func(c *Converter) {
		c.fetchTimeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Converter) {
		c.httpClient = httpClient
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Converter) {
		c.log = log
	}
}

// WithClock overrides the wall clock used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// WithMetrics instruments the rate cache.
func WithMetrics(metrics metric.Cache) Option {
	return func(c *Converter) {
		c.metrics = metrics
	}
}

func New(opts ...Option) *Converter {
	c := &Converter{
		rateSourceURL: _defaultRateSourceURL,
		cacheTTL:      _defaultCacheTTL,
		fetchTimeout:  _defaultFetchTimeout,
		log:           logger.Nop(),
		metrics:       metric.NewNoop().Cache(),
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	// The cache is built after the options so it sees the injected clock
	// and metrics.
	rates, _ := cache.NewLRUCache[string, decimal.Decimal](
		_rateCacheCapacity, _rateCacheKind,
		cache.WithClock[string, decimal.Decimal](c.now),
		cache.WithMetrics[string, decimal.Decimal](c.metrics),
	)
	c.rates = rates

	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.fetchTimeout}
	}

	return c
}

var (
	defaultConverter     *Converter
	defaultConverterOnce sync.Once
)

// Default returns a process-lifetime shared converter. It is a convenience
// for callers that do not want to wire their own instance; anything
// needing custom configuration should construct one with New and pass it
// around explicitly.
func Default() *Converter {
	defaultConverterOnce.Do(func() {
		defaultConverter = New()
	})
	return defaultConverter
}

// ExchangeRate returns the rate meaning "1 from = rate to". The boolean is
// false when a required rate is unavailable; the error is reserved for
// malformed currency codes.
func (c *Converter) ExchangeRate(toCurrency, fromCurrency string) (decimal.Decimal, bool, error) {
	to := strings.ToUpper(strings.TrimSpace(toCurrency))
	from := strings.ToUpper(strings.TrimSpace(fromCurrency))

	if !isCurrencyShape(to) {
		return decimal.Zero, false, fmt.Errorf("invalid currency code: %s", toCurrency)
	}
	if !isCurrencyShape(from) {
		return decimal.Zero, false, fmt.Errorf("invalid currency code: %s", fromCurrency)
	}

	if from == to {
		return decimal.NewFromInt(1), true, nil
	}

	if from == BaseCurrency {
		rate, ok := c.rateFromUSD(to)
		return rate, ok, nil
	}

	if to == BaseCurrency {
		rate, ok := c.rateFromUSD(from)
		if !ok {
			return decimal.Zero, false, nil
		}
		return decimal.NewFromInt(1).Div(rate), true, nil
	}

	// Cross rate through the USD pivot: from -> USD -> to.
	fromRate, ok := c.rateFromUSD(from)
	if !ok {
		return decimal.Zero, false, nil
	}
	toRate, ok := c.rateFromUSD(to)
	if !ok {
		return decimal.Zero, false, nil
	}

	return toRate.Div(fromRate), true, nil
}

// ConvertToUSDCents converts an amount given in fromCurrency's minor unit
// to USD cents with half-up rounding.
func (c *Converter) ConvertToUSDCents(amount int64, fromCurrency string) (*Conversion, error) {
	from := strings.ToUpper(strings.TrimSpace(fromCurrency))

	rate, ok, err := c.ExchangeRate(BaseCurrency, from)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConversionError{From: from, To: BaseCurrency}
	}

	major := decimal.NewFromInt(amount).Div(minorUnitFactor(from))
	usd := major.Mul(rate)
	cents := usd.Shift(2).Round(0).IntPart()

	return &Conversion{
		Amount:           cents,
		AmountDecimal:    usd.InexactFloat64(),
		AmountFormatted:  Format(usd.InexactFloat64(), BaseCurrency),
		Currency:         BaseCurrency,
		ExchangeRate:     rate.InexactFloat64(),
		OriginalAmount:   amount,
		OriginalCurrency: from,
	}, nil
}

// ConvertFromUSDCents converts USD cents to toCurrency's minor unit with
// half-up rounding scaled by the target currency's exponent.
func (c *Converter) ConvertFromUSDCents(amountCents int64, toCurrency string) (*Conversion, error) {
	to := strings.ToUpper(strings.TrimSpace(toCurrency))

	rate, ok, err := c.ExchangeRate(to, BaseCurrency)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &ConversionError{From: BaseCurrency, To: to}
	}

	usd := decimal.NewFromInt(amountCents).Shift(-2)
	target := usd.Mul(rate)
	minor := target.Mul(minorUnitFactor(to)).Round(0).IntPart()

	return &Conversion{
		Amount:           minor,
		AmountDecimal:    target.InexactFloat64(),
		AmountFormatted:  Format(target.InexactFloat64(), to),
		Currency:         to,
		ExchangeRate:     rate.InexactFloat64(),
		OriginalAmount:   amountCents,
		OriginalCurrency: BaseCurrency,
	}, nil
}

// rateFromUSD returns the cached USD->currency rate, fetching and caching
// it when missing or expired. Invalid cached entries are evicted and
// refetched.
func (c *Converter) rateFromUSD(code string) (decimal.Decimal, bool) {
	if rate, ok := c.rates.Get(code); ok {
		if isSaneRate(rate) {
			return rate, true
		}
		c.rates.Remove(code)
	}

	rate, ok := c.fetchRate(code)
	if !ok {
		return decimal.Zero, false
	}

	if !isSaneRate(rate) {
		c.log.Warnw("rate source returned an invalid rate",
			"currency", code,
			"rate", rate.String(),
		)
		return decimal.Zero, false
	}

	c.rates.Put(code, rate, c.cacheTTL)

	return rate, true
}

// fetchRate performs one GET against the rate source. Any failure is
// logged and reported as unavailable; this method never errors so callers
// can degrade gracefully.
func (c *Converter) fetchRate(code string) (decimal.Decimal, bool) {
	resp, err := c.httpClient.Get(c.rateSourceURL)
	if err != nil {
		c.log.Warnw("failed to fetch exchange rate",
			"currency", code,
			"error", err,
		)
		return decimal.Zero, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Warnw("rate source returned non-200 status",
			"currency", code,
			"status", resp.StatusCode,
		)
		return decimal.Zero, false
	}

	// The source returns either {"rates": {...}} or {"data": {"rates": {...}}}.
	var body struct {
		Rates map[string]json.Number `json:"rates"`
		Data  struct {
			Rates map[string]json.Number `json:"rates"`
		} `json:"data"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.log.Warnw("failed to decode rate source response",
			"currency", code,
			"error", err,
		)
		return decimal.Zero, false
	}

	rates := body.Rates
	if len(rates) == 0 {
		rates = body.Data.Rates
	}

	raw, ok := rates[code]
	if !ok {
		c.log.Warnw("rate source has no rate for currency", "currency", code)
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(raw.String())
	if err != nil {
		c.log.Warnw("rate source returned a non-numeric rate",
			"currency", code,
			"value", raw.String(),
			"error", err,
		)
		return decimal.Zero, false
	}

	return rate, true
}

func isSaneRate(rate decimal.Decimal) bool {
	return rate.IsPositive() && rate.LessThanOrEqual(maxSaneRate)
}

func isCurrencyShape(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
