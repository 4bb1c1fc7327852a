package cache

import (
	"time"
)

type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Put(key K, value V, ttl time.Duration)
	Remove(key K) bool
	Has(key K) bool
	Len() int
	Capacity() int
	Purge()
	SetOnEvicted(onEvicted func(key K, value V))
}
