package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/apiredirector/gateway/internal/observability"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultMaxBodyBytes = 10 << 20
)

// Dispatcher forwards prepared requests to upstream providers. Each
// service gets its own circuit breaker so one failing provider cannot
// trip the others.
type Dispatcher struct {
	client       *http.Client
	logger       observability.Logger
	metrics      *observability.Metrics
	maxBodyBytes int64

	breakerEnabled   bool
	breakerThreshold uint32
	breakerTimeout   time.Duration
	breakerMu        sync.Mutex
	breakers         map[string]*gobreaker.CircuitBreaker
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithHTTPClient overrides the upstream HTTP client.
func WithHTTPClient(client *http.Client) DispatcherOption {
	return func(d *Dispatcher) { d.client = client }
}

// WithTimeout bounds each upstream call.
func WithTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.client.Timeout = timeout }
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(logger observability.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// WithDispatcherMetrics enables upstream error metrics.
func WithDispatcherMetrics(m *observability.Metrics) DispatcherOption {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithCircuitBreaker enables a per-service circuit breaker. The
// breaker opens once threshold requests have been seen and at least
// half of them failed; it probes again after timeout.
func WithCircuitBreaker(threshold int, timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		d.breakerEnabled = true
		if threshold > 0 {
			d.breakerThreshold = uint32(threshold)
		}
		if timeout > 0 {
			d.breakerTimeout = timeout
		}
	}
}

// WithMaxBodyBytes caps how much of an upstream response body is read.
func WithMaxBodyBytes(n int64) DispatcherOption {
	return func(d *Dispatcher) { d.maxBodyBytes = n }
}

// NewDispatcher creates a dispatcher with sane upstream defaults.
func NewDispatcher(opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		client:           &http.Client{Timeout: defaultTimeout},
		logger:           observability.NopLogger(),
		maxBodyBytes:     defaultMaxBodyBytes,
		breakerThreshold: 5,
		breakerTimeout:   30 * time.Second,
		breakers:         make(map[string]*gobreaker.CircuitBreaker),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch sends the request to targetURL and reads the response. Any
// transport failure is reported as a DispatchError; upstream HTTP
// error statuses are returned as regular responses for the caller to
// relay.
func (d *Dispatcher) Dispatch(ctx context.Context, service, targetURL string, req *Request) (*Response, error) {
	if !d.breakerEnabled {
		return d.dispatch(ctx, service, targetURL, req)
	}

	breaker := d.breakerFor(service)
	result, err := breaker.Execute(func() (interface{}, error) {
		return d.dispatch(ctx, service, targetURL, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			if d.metrics != nil {
				d.metrics.IncUpstreamError(service)
			}
			return nil, NewDispatchError(service, "circuit breaker open", ErrUpstreamUnavailable)
		}
		return nil, err
	}
	return result.(*Response), nil
}

func (d *Dispatcher) dispatch(ctx context.Context, service, targetURL string, req *Request) (*Response, error) {
	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, targetURL, body)
	if err != nil {
		return nil, NewDispatchError(service, "building request", err)
	}
	for name, value := range req.Headers {
		httpReq.Header.Set(name, value)
	}

	start := time.Now()
	httpResp, err := d.client.Do(httpReq)
	if err != nil {
		d.logger.Error("upstream request failed",
			observability.String("service", service),
			observability.Duration("elapsed", time.Since(start)),
			observability.Error(err),
		)
		if d.metrics != nil {
			d.metrics.IncUpstreamError(service)
		}
		return nil, NewDispatchError(service, "upstream request failed", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, d.maxBodyBytes))
	if err != nil {
		if d.metrics != nil {
			d.metrics.IncUpstreamError(service)
		}
		return nil, NewDispatchError(service, "reading upstream response", err)
	}

	headers := make(map[string]string, len(httpResp.Header))
	for name := range httpResp.Header {
		headers[name] = httpResp.Header.Get(name)
	}

	d.logger.Debug("upstream request completed",
		observability.String("service", service),
		observability.Int("status", httpResp.StatusCode),
		observability.Duration("elapsed", time.Since(start)),
	)

	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    headers,
		Body:       respBody,
	}, nil
}

func (d *Dispatcher) breakerFor(service string) *gobreaker.CircuitBreaker {
	d.breakerMu.Lock()
	defer d.breakerMu.Unlock()

	if breaker, ok := d.breakers[service]; ok {
		return breaker
	}

	threshold := d.breakerThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        service,
		MaxRequests: 1,
		Timeout:     d.breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			d.logger.Warn("circuit breaker state change",
				observability.String("service", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	})
	d.breakers[service] = breaker
	return breaker
}

// Invoke runs the full proxy sequence for one request: the service's
// request transform, URL assembly, upstream dispatch, then the
// response transform. The order is fixed; a failing step aborts the
// rest.
func (d *Dispatcher) Invoke(ctx context.Context, service Service, req *Request) (*Response, error) {
	if err := service.TransformRequest(ctx, req); err != nil {
		return nil, err
	}

	targetURL, err := BuildURL(service.BaseURL(), req.Path, req.Params)
	if err != nil {
		return nil, err
	}

	resp, err := d.Dispatch(ctx, service.Name(), targetURL, req)
	if err != nil {
		return nil, err
	}

	if err := service.TransformResponse(ctx, resp); err != nil {
		return nil, err
	}
	return resp, nil
}
