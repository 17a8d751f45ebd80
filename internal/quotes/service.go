package quotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/promo-engine/internal/allocation"
	"github.com/angelmondragon/promo-engine/pkg/logger"
	"github.com/angelmondragon/promo-engine/pkg/metrics"
	pkgredis "github.com/angelmondragon/promo-engine/pkg/redis"
)

const defaultCacheTTL = 15 * time.Minute

// Cache is the slice of the redis wrapper the quote service uses.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	QuoteKey(parts ...string) string
}

// Service quotes discount allocations, short-circuiting recomputation when
// an identical snapshot/discount pair was already allocated.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*QuoteOutput, error)
}

// QuoteInput is one allocation request: an immutable cart snapshot, a
// resolved discount descriptor and the quoting currency.
type QuoteInput struct {
	Items    []allocation.LineItem
	Discount allocation.Discount
	Currency string
}

// QuoteOutput carries the allocation result plus the snapshot signature
// the caller can hold on to, and whether the result came from cache.
type QuoteOutput struct {
	Result    *allocation.AllocationResult
	Signature allocation.Signature
	CacheHit  bool
}

type service struct {
	engine  *allocation.Engine
	cache   Cache
	ttl     time.Duration
	metrics *metrics.AllocationMetrics
	logg    *logger.Logger
}

// NewService builds a quote service. Cache, metrics and logger are
// optional; a nil cache disables the signature shortcut entirely.
func NewService(engine *allocation.Engine, cache Cache, ttl time.Duration, m *metrics.AllocationMetrics, logg *logger.Logger) (Service, error) {
	if engine == nil {
		return nil, fmt.Errorf("allocation engine required")
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &service{
		engine:  engine,
		cache:   cache,
		ttl:     ttl,
		metrics: m,
		logg:    logg,
	}, nil
}

func (s *service) Quote(ctx context.Context, input QuoteInput) (*QuoteOutput, error) {
	signature := allocation.ComputeSignature(input.Items)

	var key string
	if s.cache != nil {
		key = s.cache.QuoteKey(string(signature), discountFingerprint(input.Discount), input.Currency)
		if cached, ok := s.lookup(ctx, key); ok {
			s.metrics.IncCacheHit()
			return &QuoteOutput{Result: cached, Signature: signature, CacheHit: true}, nil
		}
		s.metrics.IncCacheMiss()
	}

	start := time.Now()
	result, err := s.engine.Allocate(input.Items, input.Discount, input.Currency)
	kind := string(input.Discount.Kind)
	if err != nil {
		s.metrics.IncOutcome(kind, outcomeFor(err))
		return nil, err
	}
	s.metrics.ObserveAllocation(kind, len(input.Items), time.Since(start))
	s.metrics.IncOutcome(kind, "ok")

	if s.cache != nil {
		s.store(ctx, key, result)
	}

	return &QuoteOutput{Result: result, Signature: signature}, nil
}

func (s *service) lookup(ctx context.Context, key string) (*allocation.AllocationResult, bool) {
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, pkgredis.ErrNotFound) && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "quote cache lookup failed")
		}
		return nil, false
	}
	var result allocation.AllocationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		// A malformed entry is dropped by recomputation; it will be
		// overwritten below.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "quote cache entry malformed")
		}
		return nil, false
	}
	return &result, true
}

func (s *service) store(ctx context.Context, key string, result *allocation.AllocationResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "marshal quote cache entry", err)
		}
		return
	}
	// Cache faults degrade to recomputation on the next call, never to a
	// failed quote.
	if err := s.cache.Set(ctx, key, string(payload), s.ttl); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "cache_key", key), "quote cache store failed")
	}
}

func discountFingerprint(d allocation.Discount) string {
	switch d.Kind {
	case allocation.DiscountPercentage:
		return fmt.Sprintf("%s:%s", d.Kind, d.Rate)
	case allocation.DiscountFixed:
		return fmt.Sprintf("%s:%s", d.Kind, d.Amount)
	default:
		return string(d.Kind)
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, allocation.ErrInvalidDiscount):
		return "invalid_discount"
	case errors.Is(err, allocation.ErrInvalidItem):
		return "invalid_item"
	case errors.Is(err, allocation.ErrDegenerateCart):
		return "degenerate_cart"
	case errors.Is(err, allocation.ErrUnknownCurrency):
		return "unknown_currency"
	default:
		return "error"
	}
}
