package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша, метка cache — имя кэша.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t2_cache_hits_total",
		Help: "Общее количество попаданий в LRU-кэш.",
	}, []string{"cache"})
	cacheMissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "t2_cache_misses_total",
		Help: "Общее количество промахов LRU-кэша.",
	}, []string{"cache"})
)

// Cache — LRU-кэш с автоматическим TTL.
// Каждый экземпляр Tier2 API имеет собственный in-memory кэш.
type Cache[V any] struct {
	name   string
	cache  *expirable.LRU[string, V]
	hits   prometheus.Counter
	misses prometheus.Counter
}

// NewCache создаёт LRU-кэш с указанным максимальным размером и TTL.
func NewCache[V any](name string, maxSize int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{
		name:   name,
		cache:  expirable.NewLRU[string, V](maxSize, nil, ttl),
		hits:   cacheHitsTotal.WithLabelValues(name),
		misses: cacheMissesTotal.WithLabelValues(name),
	}
}

// Get возвращает значение по ключу и обновляет метрики hit/miss.
func (c *Cache[V]) Get(key string) (V, bool) {
	val, ok := c.cache.Get(key)
	if ok {
		c.hits.Inc()
		return val, true
	}
	c.misses.Inc()
	return val, false
}

// Set добавляет или обновляет запись.
func (c *Cache[V]) Set(key string, val V) {
	c.cache.Add(key, val)
}

// Delete удаляет запись.
func (c *Cache[V]) Delete(key string) {
	c.cache.Remove(key)
}

// Len возвращает число записей.
func (c *Cache[V]) Len() int {
	return c.cache.Len()
}
