// Package metric instruments the SDK's outbound webhook calls and the
// exchange-rate cache. The prometheus implementation is opt-in; clients
// built without WithMetrics use the noop factory.
package metric

import (
	"net/http"
	"time"
)

type (
	Factory interface {
		Webhook() Webhook
		Cache() Cache
		Handler() http.Handler
	}

	Webhook interface {
		Request(endpoint string, status int, duration time.Duration)
		Retry(endpoint string)
	}

	Cache interface {
		Hit(kind string)
		Miss(kind string)
		Eviction(kind, reason string)
	}
)

type (
	noopFactory struct{}
	noopWebhook struct{}
	noopCache   struct{}
)

func NewNoop() Factory {
	return noopFactory{}
}

func (noopFactory) Webhook() Webhook { return noopWebhook{} }
func (noopFactory) Cache() Cache     { return noopCache{} }
func (noopFactory) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
}

func (noopWebhook) Request(string, int, time.Duration) {}
func (noopWebhook) Retry(string)                       {}

func (noopCache) Hit(string)              {}
func (noopCache) Miss(string)             {}
func (noopCache) Eviction(string, string) {}
