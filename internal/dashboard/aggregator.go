package dashboard

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/vyrodovalexey/dashgw/internal/backend"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

const (
	dashboardTracerName = "dashgw/dashboard"

	// DefaultServeProbability is the chance a cached composite is served.
	DefaultServeProbability = 0.8

	// cacheWriteTimeout bounds an asynchronous cache write.
	cacheWriteTimeout = 5 * time.Second
)

// Fetcher calls one backend service.
type Fetcher interface {
	Name() string
	Fetch(ctx context.Context, p backend.Params) backend.Outcome
}

// RandomSource yields values in [0, 1).
type RandomSource interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 {
	//nolint:gosec // G404: cache-skip decision does not need cryptographic randomness
	return rand.Float64()
}

// lockedSource serializes access to a source that is not safe for
// concurrent use, such as *rand.Rand.
type lockedSource struct {
	mu  sync.Mutex
	src RandomSource
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

// Aggregator builds dashboards from the three services and the response cache.
type Aggregator struct {
	fetchers [3]Fetcher
	cache    *ResponseCache
	rnd      RandomSource
	logger   observability.Logger

	probability atomic.Uint64

	coalesce bool
	group    singleflight.Group

	pending sync.WaitGroup
}

// Option is a functional option for configuring the aggregator.
type Option func(*Aggregator)

// WithRandomSource sets the source used for the cache-serve decision.
func WithRandomSource(src RandomSource) Option {
	return func(a *Aggregator) {
		a.rnd = &lockedSource{src: src}
	}
}

// WithServeProbability sets the initial cache-serve probability.
func WithServeProbability(p float64) Option {
	return func(a *Aggregator) {
		a.SetServeProbability(p)
	}
}

// WithCoalescing collapses concurrent fan-outs for the same key into one.
func WithCoalescing(enabled bool) Option {
	return func(a *Aggregator) {
		a.coalesce = enabled
	}
}

// WithLogger sets the logger for the aggregator.
func WithLogger(logger observability.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// NewAggregator creates an aggregator over the identity, attendance and
// leave history fetchers.
func NewAggregator(identity, attendance, leaves Fetcher, rc *ResponseCache, opts ...Option) *Aggregator {
	a := &Aggregator{
		fetchers: [3]Fetcher{identity, attendance, leaves},
		cache:    rc,
		rnd:      globalSource{},
		logger:   observability.NopLogger(),
	}
	a.SetServeProbability(DefaultServeProbability)

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// SetServeProbability changes the cache-serve probability. Values are
// clamped to [0, 1]. Safe to call while requests are in flight.
func (a *Aggregator) SetServeProbability(p float64) {
	if math.IsNaN(p) || p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	a.probability.Store(math.Float64bits(p))
}

// ServeProbability returns the current cache-serve probability.
func (a *Aggregator) ServeProbability() float64 {
	return math.Float64frombits(a.probability.Load())
}

// Aggregate returns the dashboard for key, from the cache or from a fresh
// fan-out. A failed fan-out returns an *AggregationError.
func (a *Aggregator) Aggregate(ctx context.Context, key Key) (Composite, error) {
	ctx, span := otel.Tracer(dashboardTracerName).Start(ctx, "dashboard.Aggregate",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("dashboard.key", key.String())),
	)
	defer span.End()

	m := GetDashboardMetrics()

	if cached, ok := a.cache.Get(ctx, key); ok {
		if a.rnd.Float64() < a.ServeProbability() {
			m.cacheLookups.WithLabelValues("served").Inc()
			span.SetAttributes(attribute.String("dashboard.source", "cache"))
			return cached, nil
		}
		m.cacheLookups.WithLabelValues("bypassed").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
	span.SetAttributes(attribute.String("dashboard.source", "backends"))

	var (
		composite Composite
		err       error
	)
	if a.coalesce {
		composite, err = a.refreshShared(ctx, key)
	} else {
		composite, err = a.refresh(ctx, key)
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
		return Composite{}, err
	}
	return composite, nil
}

func (a *Aggregator) refreshShared(ctx context.Context, key Key) (Composite, error) {
	v, err, shared := a.group.Do(key.String(), func() (interface{}, error) {
		return a.refresh(context.WithoutCancel(ctx), key)
	})
	if shared {
		GetDashboardMetrics().coalescedTotal.Inc()
	}
	if err != nil {
		return Composite{}, err
	}
	return v.(Composite), nil
}

// refresh fans out to all three services, waits for every call to settle
// and caches the composite on full success.
func (a *Aggregator) refresh(ctx context.Context, key Key) (Composite, error) {
	m := GetDashboardMetrics()
	start := time.Now()

	outcomes := a.fanOut(ctx, key.Params())
	elapsed := time.Since(start)
	m.fanOutDuration.Observe(elapsed.Seconds())

	var failed []backend.Outcome
	for _, o := range outcomes {
		if !o.OK() {
			failed = append(failed, o)
		}
	}

	log := a.logger.WithContext(ctx)

	if len(failed) > 0 {
		aggErr := &AggregationError{Key: key, Failures: failed}
		m.fanOuts.WithLabelValues("failure").Inc()
		log.Warn("dashboard aggregation failed",
			observability.String("key", key.String()),
			observability.Strings("failedServices", aggErr.Services()),
			observability.Duration("duration", elapsed),
			observability.Error(aggErr),
		)
		return Composite{}, aggErr
	}

	composite := Composite{
		User:       outcomes[0].Payload,
		Attendance: outcomes[1].Payload,
		Leaves:     outcomes[2].Payload,
	}
	m.fanOuts.WithLabelValues("success").Inc()
	log.Info("dashboard aggregated",
		observability.String("key", key.String()),
		observability.Duration("duration", elapsed),
	)

	a.storeAsync(ctx, key, composite)
	return composite, nil
}

// fanOut calls every fetcher concurrently. No call is cancelled when
// another fails.
func (a *Aggregator) fanOut(ctx context.Context, p backend.Params) [3]backend.Outcome {
	var (
		g        errgroup.Group
		outcomes [3]backend.Outcome
	)
	for i, f := range a.fetchers {
		g.Go(func() error {
			outcomes[i] = f.Fetch(ctx, p)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// storeAsync writes the composite to the cache without delaying the
// response. The write outlives the request context.
func (a *Aggregator) storeAsync(ctx context.Context, key Key, c Composite) {
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheWriteTimeout)
		defer cancel()
		a.cache.Put(wctx, key, c, 0)
	}()
}

// Wait blocks until all pending cache writes have finished.
func (a *Aggregator) Wait() {
	a.pending.Wait()
}
