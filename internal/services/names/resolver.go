package names

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"ringchat/internal/domain"
	"ringchat/internal/metrics"
)

var (
	// ErrNotFound is returned by a NameService when no record exists.
	ErrNotFound = errors.New("name not found")
	// ErrNotVerified is returned when the forward lookup disagrees with the reverse one.
	ErrNotVerified = errors.New("name does not resolve back to address")
)

const (
	defaultCacheSize = 1024
	defaultTTL       = 30 * time.Minute
	defaultTimeout   = 10 * time.Second
)

// UpdateFunc receives each newly verified name.
type UpdateFunc func(addr domain.Address, name string)

// Resolver resolves and caches verified external names. Negative results are
// cached too so unknown addresses are not looked up on every render.
type Resolver struct {
	svc      domain.NameService
	cache    *expirable.LRU[domain.Address, string]
	group    singleflight.Group
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Recorder
	onUpdate []UpdateFunc

	wg sync.WaitGroup
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(r *Resolver) { r.log = l } }

// WithMetrics sets the metrics recorder.
func WithMetrics(m *metrics.Recorder) Option { return func(r *Resolver) { r.metrics = m } }

// WithTimeout bounds each background lookup.
func WithTimeout(d time.Duration) Option { return func(r *Resolver) { r.timeout = d } }

// WithCache sets cache size and entry lifetime.
func WithCache(size int, ttl time.Duration) Option {
	return func(r *Resolver) { r.cache = expirable.NewLRU[domain.Address, string](size, nil, ttl) }
}

// NewResolver returns a resolver over svc.
func NewResolver(svc domain.NameService, opts ...Option) *Resolver {
	r := &Resolver{
		svc:     svc,
		timeout: defaultTimeout,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = expirable.NewLRU[domain.Address, string](defaultCacheSize, nil, defaultTTL)
	}
	return r
}

// OnUpdate registers fn for verified names. Register before the first lookup.
func (r *Resolver) OnUpdate(fn UpdateFunc) { r.onUpdate = append(r.onUpdate, fn) }

// Cached returns the cached name for addr. ok is false when addr has not been
// looked up; an empty name with ok true means it has no verified name.
func (r *Resolver) Cached(addr domain.Address) (name string, ok bool) {
	return r.cache.Get(domain.NormalizeAddress(string(addr)))
}

// Resolve returns the verified name of addr, looking it up when not cached.
// Concurrent calls for one address share a lookup.
func (r *Resolver) Resolve(ctx context.Context, addr domain.Address) (string, error) {
	addr = domain.NormalizeAddress(string(addr))
	if name, ok := r.cache.Get(addr); ok {
		r.metrics.ObserveNameLookup("cached")
		if name == "" {
			return "", ErrNotFound
		}
		return name, nil
	}

	v, err, _ := r.group.Do(string(addr), func() (any, error) {
		name, err := r.lookup(ctx, addr)
		switch {
		case err == nil:
			r.cache.Add(addr, name)
			r.metrics.ObserveNameLookup("verified")
			for _, fn := range r.onUpdate {
				fn(addr, name)
			}
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrNotVerified):
			r.cache.Add(addr, "")
			r.metrics.ObserveNameLookup("none")
		default:
			r.metrics.ObserveNameLookup("error")
		}
		return name, err
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (r *Resolver) lookup(ctx context.Context, addr domain.Address) (string, error) {
	name, err := r.svc.LookupAddress(ctx, addr)
	if err != nil {
		return "", fmt.Errorf("reverse lookup %s: %w", addr, err)
	}
	if name == "" {
		return "", ErrNotFound
	}
	back, err := r.svc.ResolveName(ctx, name)
	if err != nil {
		return "", fmt.Errorf("forward lookup %s: %w", name, err)
	}
	if !strings.EqualFold(string(back), string(addr)) {
		return "", fmt.Errorf("%s -> %s -> %s: %w", addr, name, back, ErrNotVerified)
	}
	return name, nil
}

// ResolveAsync starts a background lookup for each uncached address.
func (r *Resolver) ResolveAsync(addrs ...domain.Address) {
	for _, addr := range addrs {
		if addr == "" {
			continue
		}
		if _, ok := r.Cached(addr); ok {
			continue
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
			defer cancel()
			if _, err := r.Resolve(ctx, addr); err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotVerified) {
				r.log.Debug("name lookup failed", zap.String("address", addr.String()), zap.Error(err))
			}
		}()
	}
}

// Wait blocks until background lookups finish.
func (r *Resolver) Wait() { r.wg.Wait() }
