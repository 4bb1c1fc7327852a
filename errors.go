package havn

import "fmt"

// ValidationError reports malformed or out-of-range input caught before
// any network call. Fixing the input and retrying always resolves it.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("validation error: %s (fields: %v)", e.Message, e.Fields)
	}
	return "validation error: " + e.Message
}

func newValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// AuthError means the platform rejected the API key or signature (HTTP 401).
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return "authentication error: " + e.Message
}

// RateLimitError carries the platform's rate-limit headers when it returns
// HTTP 429. RetryAfter is seconds until the window resets; zero values mean
// the server did not supply the header.
type RateLimitError struct {
	Message    string
	RetryAfter int
	Limit      int
	Remaining  int
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limit error: %s (retry after %ds)", e.Message, e.RetryAfter)
	}
	return "rate limit error: " + e.Message
}

// APIError is any other non-2xx response, with the server's parsed message
// and error type when present.
type APIError struct {
	StatusCode int
	ErrorType  string
	Message    string
	Response   map[string]any
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("api error (status %d): [%s] %s", e.StatusCode, e.ErrorType, e.Message)
	}
	return fmt.Sprintf("api error: [%s] %s", e.ErrorType, e.Message)
}

// NetworkError wraps a transport-level failure: timeout, connection error,
// or any other condition that prevented a response.
type NetworkError struct {
	Message string
	Err     error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Message
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
