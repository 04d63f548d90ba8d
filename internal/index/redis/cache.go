// Package redis provides a read-through Redis cache in front of a record index.
//
// Only exact-version lookups are cached: a StateRef always names the same
// immutable record, so entries never need invalidation. Identity lookups and
// unconsumed-only lookups depend on consumption state and always go to the
// underlying index.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"claimledger/internal/index"
	"claimledger/internal/ledger"
	"claimledger/internal/ledger/codec"
	"claimledger/internal/pointer"
)

const (
	defaultKeyPrefix = "claimledger:record:"
	defaultTTL       = 10 * time.Minute
)

// Metrics counts cache lookups.
type Metrics struct {
	Lookups *prometheus.CounterVec
}

// NewMetrics registers cache metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Lookups: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "claimledger_record_cache_lookups_total",
			Help: "Record cache lookups by result",
		}, []string{"result"}), // hit, miss, bypass, error
	}
}

func (m *Metrics) observe(result string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(result).Inc()
}

// Cache wraps an index.Store. Writes pass straight through.
type Cache struct {
	client   *redis.Client
	next     index.Store
	registry *codec.Registry
	ttl      time.Duration
	prefix   string
	logger   *slog.Logger
	metrics  *Metrics
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long cached records live.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces cache keys.
func WithKeyPrefix(prefix string) Option {
	return func(c *Cache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New builds a cache over next.
func New(client *redis.Client, next index.Store, registry *codec.Registry, opts ...Option) *Cache {
	c := &Cache{
		client:   client,
		next:     next,
		registry: registry,
		ttl:      defaultTTL,
		prefix:   defaultKeyPrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Cache) Apply(ctx context.Context, tx ledger.Transaction) error {
	return c.next.Apply(ctx, tx)
}

func (c *Cache) Put(ctx context.Context, record ledger.AnyStateAndRef) error {
	return c.next.Put(ctx, record)
}

func (c *Cache) Find(ctx context.Context, criteria pointer.Criteria) ([]ledger.AnyStateAndRef, error) {
	if !cacheable(criteria) {
		c.metrics.observe("bypass")
		return c.next.Find(ctx, criteria)
	}

	key := c.key(*criteria.Ref)
	if record, ok := c.get(ctx, key); ok {
		c.metrics.observe("hit")
		return []ledger.AnyStateAndRef{record}, nil
	}
	c.metrics.observe("miss")

	records, err := c.next.Find(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if len(records) == 1 {
		c.set(ctx, key, records[0])
	}
	return records, nil
}

func cacheable(criteria pointer.Criteria) bool {
	return criteria.Ref != nil && criteria.LinearID == nil && !criteria.UnconsumedOnly
}

func (c *Cache) key(ref ledger.StateRef) string {
	return c.prefix + ref.TxHash + ":" + strconv.Itoa(ref.Index)
}

// get treats every Redis or decode failure as a miss.
func (c *Cache) get(ctx context.Context, key string) (ledger.AnyStateAndRef, bool) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.AnyStateAndRef{}, false
	}
	if err != nil {
		c.metrics.observe("error")
		c.warn(ctx, "record cache read failed", key, err)
		return ledger.AnyStateAndRef{}, false
	}
	var env codec.RecordEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.warn(ctx, "record cache entry unreadable", key, err)
		return ledger.AnyStateAndRef{}, false
	}
	record, err := c.registry.DecodeRecord(env)
	if err != nil {
		c.warn(ctx, "record cache entry unreadable", key, err)
		return ledger.AnyStateAndRef{}, false
	}
	return record, true
}

func (c *Cache) set(ctx context.Context, key string, record ledger.AnyStateAndRef) {
	env, err := c.registry.EncodeRecord(record)
	if err != nil {
		c.warn(ctx, "record cache encode failed", key, err)
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		c.warn(ctx, "record cache encode failed", key, err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.metrics.observe("error")
		c.warn(ctx, "record cache write failed", key, err)
	}
}

func (c *Cache) warn(ctx context.Context, msg, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.WarnContext(ctx, msg, "key", key, "error", err)
}
