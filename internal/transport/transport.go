// Package transport performs the signed HTTP calls to the platform. It
// owns connection tuning, retry with exponential backoff, and request
// logging; classifying response status codes into the caller-facing error
// taxonomy is the client's job, not the transport's.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/HAVN-Associates/havn-sdk/pkg/logger"
	"github.com/HAVN-Associates/havn-sdk/pkg/metric"

	"github.com/google/uuid"
)

const (
	_headerTestMode  = "X-Test-Mode"
	_headerRequestID = "X-Request-ID"
)

// Statuses the transport retries, matching the platform's guidance for
// idempotent webhooks.
var retryableStatuses = map[int]struct{}{
	http.StatusTooManyRequests:     {},
	http.StatusInternalServerError: {},
	http.StatusBadGateway:          {},
	http.StatusServiceUnavailable:  {},
	http.StatusGatewayTimeout:      {},
}

type (
	Request struct {
		Method   string
		Endpoint string
		Body     []byte
		Query    url.Values
		Headers  map[string]string
	}

	Response struct {
		StatusCode int
		Body       []byte
		Header     http.Header
	}

	Client struct {
		baseURL    string
		httpClient *http.Client
		maxRetries int
		backoff    time.Duration
		testMode   bool
		log        logger.Logger
		metrics    metric.Webhook
	}
)

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

func WithTestMode(testMode bool) Option {
	return func(c *Client) {
		c.testMode = testMode
	}
}

func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

func WithMetrics(metrics metric.Webhook) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxRetries: 3,
		backoff:    500 * time.Millisecond,
		log:        logger.Nop(),
		metrics:    metric.NewNoop().Webhook(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Do sends the request, retrying 429/5xx responses and transient network
// failures with exponential backoff. The last response is returned
// unclassified; a non-nil error means the request never produced one.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	const op = "transport.Do"

	requestID := uuid.New().String()
	log := c.log.With("request_id", requestID, "method", req.Method, "endpoint", req.Endpoint)

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.metrics.Retry(req.Endpoint)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		resp, err := c.send(ctx, req, requestID)
		if err != nil {
			lastErr = err
			log.Warnw("request attempt failed",
				"attempt", attempt,
				"error", err,
			)
			if !isRetryable(err) {
				break
			}
			continue
		}

		if _, retry := retryableStatuses[resp.StatusCode]; retry && attempt < c.maxRetries {
			log.Warnw("retryable status received",
				"attempt", attempt,
				"status", resp.StatusCode,
			)
			continue
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%s: %w", op, c.describe(lastErr))
}

func (c *Client) send(ctx context.Context, req Request, requestID string) (*Response, error) {
	u := c.baseURL + req.Endpoint
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set(_headerRequestID, requestID)
	if c.testMode {
		httpReq.Header.Set(_headerTestMode, "true")
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	duration := time.Since(start)
	c.metrics.Request(req.Endpoint, httpResp.StatusCode, duration)
	c.log.Debugw("request completed",
		"request_id", requestID,
		"method", req.Method,
		"endpoint", req.Endpoint,
		"status", httpResp.StatusCode,
		"duration", duration,
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       respBody,
		Header:     httpResp.Header,
	}, nil
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	delay := c.backoff * (1 << (attempt - 1))

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// describe rewraps the final network failure with a message the caller can
// surface as-is.
func (c *Client) describe(err error) error {
	if err == nil {
		return errors.New("request failed with no response")
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("request timeout after %s: %w", c.httpClient.Timeout, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("connection error: %w", err)
	}

	return fmt.Errorf("request failed: %w", err)
}

func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
