// Package havn is a client SDK for the HAVN commission and referral
// tracking platform. It sends signed webhooks for transactions, voucher
// validation and listing, user sync, and cross-service login, and carries
// a currency converter for amounts not already in USD cents.
package havn

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/HAVN-Associates/havn-sdk/internal/config"
	"github.com/HAVN-Associates/havn-sdk/internal/transport"
	"github.com/HAVN-Associates/havn-sdk/pkg/currency"
	"github.com/HAVN-Associates/havn-sdk/pkg/logger"
	"github.com/HAVN-Associates/havn-sdk/pkg/metric"
)

const (
	_endpointTransaction     = "/api/v1/webhook/transaction"
	_endpointVoucherValidate = "/api/v1/webhook/voucher/validate"
	_endpointVoucherList     = "/api/v1/webhook/vouchers"
	_endpointUserSync        = "/api/v1/webhook/user-sync"
	_endpointLogin           = "/api/v1/webhook/login"

	_headerRateLimitReset     = "X-RateLimit-Reset"
	_headerRateLimitLimit     = "X-RateLimit-Limit"
	_headerRateLimitRemaining = "X-RateLimit-Remaining"

	_defaultAuthFailedMessage = "Authentication failed"
	_defaultRateLimitMessage  = "Rate limit exceeded. Please try again later."
)

type Client struct {
	apiKey        string
	webhookSecret string
	transport     *transport.Client
	converter     *currency.Converter
	log           logger.Logger

	Transactions *TransactionService
	Vouchers     *VoucherService
	Users        *UserSyncService
	Auth         *AuthService
}

type clientOptions struct {
	apiKey        string
	webhookSecret string
	baseURL       string
	timeout       time.Duration
	maxRetries    int
	backoff       time.Duration
	testMode      bool
	httpClient    *http.Client
	log           logger.Logger
	metrics       metric.Factory
	converter     *currency.Converter
}

type Option func(*clientOptions)

func WithAPIKey(apiKey string) Option {
	return func(o *clientOptions) { o.apiKey = apiKey }
}

func WithWebhookSecret(secret string) Option {
	return func(o *clientOptions) { o.webhookSecret = secret }
}

func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) { o.baseURL = baseURL }
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) { o.timeout = timeout }
}

func WithMaxRetries(maxRetries int) Option {
	return func(o *clientOptions) { o.maxRetries = maxRetries }
}

func WithBackoffFactor(backoff time.Duration) Option {
	return func(o *clientOptions) { o.backoff = backoff }
}

// WithTestMode marks every request as a dry run: the platform validates
// and responds but saves nothing.
func WithTestMode(testMode bool) Option {
	return func(o *clientOptions) { o.testMode = testMode }
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = httpClient }
}

func WithLogger(log logger.Logger) Option {
	return func(o *clientOptions) { o.log = log }
}

func WithMetrics(metrics metric.Factory) Option {
	return func(o *clientOptions) { o.metrics = metrics }
}

// WithConverter shares an explicitly constructed currency converter with
// the client instead of the package default.
func WithConverter(converter *currency.Converter) Option {
	return func(o *clientOptions) { o.converter = converter }
}

// New builds a client. Every setting falls back from explicit option to
// HAVN_* environment variable to documented default; the API key and
// webhook secret have no default and must come from one of the first two.
func New(opts ...Option) (*Client, error) {
	const op = "havn.New"

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	o := &clientOptions{
		apiKey:        cfg.APIKey,
		webhookSecret: cfg.WebhookSecret,
		baseURL:       cfg.BaseURL,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		backoff:       cfg.BackoffFactor,
		testMode:      cfg.TestMode,
		log:           logger.Nop(),
		metrics:       metric.NewNoop(),
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.apiKey == "" {
		return nil, newValidationError(
			"API key is required: provide WithAPIKey or set HAVN_API_KEY")
	}
	if o.webhookSecret == "" {
		return nil, newValidationError(
			"webhook secret is required: provide WithWebhookSecret or set HAVN_WEBHOOK_SECRET")
	}

	transportOpts := []transport.Option{
		transport.WithRetries(o.maxRetries, o.backoff),
		transport.WithTestMode(o.testMode),
		transport.WithLogger(o.log),
		transport.WithMetrics(o.metrics.Webhook()),
	}
	if o.httpClient != nil {
		transportOpts = append(transportOpts, transport.WithHTTPClient(o.httpClient))
	}
	transportOpts = append(transportOpts, transport.WithTimeout(o.timeout))

	converter := o.converter
	if converter == nil {
		converter = currency.New(
			currency.WithRateSourceURL(cfg.ExchangeRateAPIURL),
			currency.WithCacheTTL(time.Duration(cfg.ExchangeRateCacheHours)*time.Hour),
			currency.WithFetchTimeout(cfg.CurrencyAPITimeout),
			currency.WithLogger(o.log),
			currency.WithMetrics(o.metrics.Cache()),
		)
	}

	c := &Client{
		apiKey:        o.apiKey,
		webhookSecret: o.webhookSecret,
		transport:     transport.New(o.baseURL, transportOpts...),
		converter:     converter,
		log:           o.log,
	}

	c.Transactions = &TransactionService{client: c}
	c.Vouchers = &VoucherService{client: c}
	c.Users = &UserSyncService{client: c}
	c.Auth = &AuthService{client: c}

	return c, nil
}

// Currency exposes the client's converter for callers that convert
// amounts to USD cents before sending.
func (c *Client) Currency() *currency.Converter {
	return c.converter
}

// call signs and sends one webhook request and classifies the response.
// GET requests carry their parameters in the query string but sign
// against the empty object, matching the remote verifier.
func (c *Client) call(
	ctx context.Context,
	method, endpoint string,
	payload map[string]any,
	query url.Values,
) (map[string]any, error) {
	headers, err := BuildAuthHeaders(payload, c.apiKey, c.webhookSecret)
	if err != nil {
		return nil, newValidationError("payload is not serializable: %v", err)
	}

	var body []byte
	if payload != nil {
		body, err = canonicalJSON(payload)
		if err != nil {
			return nil, newValidationError("payload is not serializable: %v", err)
		}
	}

	resp, err := c.transport.Do(ctx, transport.Request{
		Method:   method,
		Endpoint: endpoint,
		Body:     body,
		Query:    query,
		Headers:  headers,
	})
	if err != nil {
		return nil, &NetworkError{Message: err.Error(), Err: err}
	}

	return classifyResponse(resp)
}

// classifyResponse maps status codes into the error taxonomy. The mapping
// is strictly by status; message text is never inspected.
func classifyResponse(resp *transport.Response) (map[string]any, error) {
	var parsed map[string]any
	if len(resp.Body) > 0 {
		// A non-JSON body is treated the same as an empty one.
		_ = json.Unmarshal(resp.Body, &parsed)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		message := _defaultAuthFailedMessage
		if m := getString(parsed, "message"); m != "" {
			message = m
		}
		return nil, &AuthError{Message: message}

	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		if parsed == nil {
			return map[string]any{"success": true}, nil
		}
		return parsed, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{
			Message:    _defaultRateLimitMessage,
			RetryAfter: headerInt(resp.Header.Get(_headerRateLimitReset)),
			Limit:      headerInt(resp.Header.Get(_headerRateLimitLimit)),
			Remaining:  headerInt(resp.Header.Get(_headerRateLimitRemaining)),
		}

	default:
		message := fmt.Sprintf("API error: %d", resp.StatusCode)
		if m := getString(parsed, "message"); m != "" {
			message = m
		}
		errorType := "APIError"
		if e := getString(parsed, "error"); e != "" {
			errorType = e
		}
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			ErrorType:  errorType,
			Message:    message,
			Response:   parsed,
		}
	}
}

func headerInt(value string) int {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return n
}
