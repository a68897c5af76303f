package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

const (
	backendTracerName = "dashgw/backend"

	// maxBodySize bounds the payload accepted from a backend.
	maxBodySize = 10 << 20

	headerRequestID = "X-Request-ID"
)

var (
	errInvalidJSON  = errors.New("response body is not valid JSON")
	errBodyTooLarge = errors.New("response body too large")
)

// Params are the request parameters substituted into a path template.
type Params struct {
	SubjectID string
	Period    string
}

// Outcome is the result of one backend call. The call succeeded iff Err is nil.
type Outcome struct {
	Service string
	Payload json.RawMessage
	Err     error
}

// OK reports whether the call succeeded.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Client calls one backend service.
type Client struct {
	name       string
	baseURL    string
	path       string
	timeout    time.Duration
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
}

// ClientOption is a functional option for configuring a client.
type ClientOption func(*Client)

// WithLogger sets the logger for the client.
func WithLogger(logger observability.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used for calls.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the named service.
func NewClient(name string, cfg config.BackendConfig, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("backend %s: invalid url: %w", name, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend %s: url must be absolute, got %q", name, cfg.URL)
	}

	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = config.DefaultBackendTimeout
	}

	c := &Client{
		name:    name,
		baseURL: strings.TrimRight(cfg.URL, "/"),
		path:    cfg.Path,
		timeout: timeout,
		logger:  observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(DefaultPoolConfig())
	}

	if cfg.CircuitBreaker.Enabled {
		c.breaker = newBreaker(name, cfg.CircuitBreaker, c.logger)
	}

	return c, nil
}

// Name returns the service name.
func (c *Client) Name() string {
	return c.name
}

// URL returns the request URL for the given parameters.
func (c *Client) URL(p Params) string {
	r := strings.NewReplacer(
		"{subject_id}", url.PathEscape(p.SubjectID),
		"{period}", url.PathEscape(p.Period),
	)
	return c.baseURL + r.Replace(c.path)
}

// BreakerState returns the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State().String()
}

// Fetch performs the GET and returns its outcome. Failures are reported
// in Outcome.Err as a *ServiceError.
func (c *Client) Fetch(ctx context.Context, p Params) Outcome {
	ctx, span := otel.Tracer(backendTracerName).Start(ctx, "backend.Fetch",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("backend.service", c.name),
			attribute.String("backend.subject_id", p.SubjectID),
		),
	)
	defer span.End()

	start := time.Now()
	payload, err := c.execute(ctx, p)
	elapsed := time.Since(start)

	m := GetBackendMetrics()
	m.requestDuration.WithLabelValues(c.name).Observe(elapsed.Seconds())

	if err != nil {
		var se *ServiceError
		if !errors.As(err, &se) {
			se = unavailable(c.name, err)
		}
		m.requestsTotal.WithLabelValues(c.name, se.Kind.String()).Inc()
		span.SetStatus(codes.Error, se.Error())
		span.RecordError(se)
		c.logger.WithContext(ctx).Warn("backend call failed",
			observability.String("service", c.name),
			observability.String("kind", se.Kind.String()),
			observability.Int("status", se.StatusCode),
			observability.Duration("duration", elapsed),
			observability.Error(se),
		)
		return Outcome{Service: c.name, Err: se}
	}

	m.requestsTotal.WithLabelValues(c.name, "success").Inc()
	span.SetAttributes(attribute.Int("backend.payload_size", len(payload)))
	c.logger.WithContext(ctx).Debug("backend call succeeded",
		observability.String("service", c.name),
		observability.Duration("duration", elapsed),
	)
	return Outcome{Service: c.name, Payload: payload}
}

func (c *Client) execute(ctx context.Context, p Params) (json.RawMessage, error) {
	if c.breaker == nil {
		return c.do(ctx, p)
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, p)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, unavailable(c.name, err)
		}
		return nil, err
	}
	return res.(json.RawMessage), nil
}

func (c *Client) do(ctx context.Context, p Params) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(p), http.NoBody)
	if err != nil {
		return nil, unavailable(c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if id := observability.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(headerRequestID, id)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, unavailable(c.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, unavailable(c.name, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, badResponse(c.name, resp.StatusCode, nil)
	}
	if len(body) > maxBodySize {
		return nil, badResponse(c.name, 0, errBodyTooLarge)
	}
	if !json.Valid(body) {
		return nil, badResponse(c.name, 0, errInvalidJSON)
	}

	return json.RawMessage(body), nil
}

func newBreaker(name string, cfg config.CircuitBreakerConfig, logger observability.Logger) *gobreaker.CircuitBreaker {
	threshold := safeIntToUint32(cfg.Threshold)
	ratio := cfg.FailureRatio
	if ratio <= 0 {
		ratio = 0.5
	}
	timeout := cfg.Timeout.Duration()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	GetBackendMetrics().breakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < threshold {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= ratio
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				observability.String("service", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			m := GetBackendMetrics()
			m.breakerState.WithLabelValues(name).Set(float64(to))
			m.breakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

// safeIntToUint32 converts n, clamping to the uint32 range.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
