// Package gateway wires authentication, rate limiting, and the proxy
// dispatch sequence into the HTTP surface.
package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/apiredirector/gateway/internal/audit"
	"github.com/apiredirector/gateway/internal/auth"
	"github.com/apiredirector/gateway/internal/gateway/response"
	"github.com/apiredirector/gateway/internal/observability"
	"github.com/apiredirector/gateway/internal/proxy"
	"github.com/apiredirector/gateway/internal/ratelimit"
	"github.com/apiredirector/gateway/internal/util"
)

// Pipeline runs the fixed per-request sequence: authenticate, resolve
// the upstream service, enforce the credential quota, build and
// dispatch the proxy request, then relay the upstream response.
type Pipeline struct {
	authenticator *auth.Authenticator
	limiter       ratelimit.Limiter
	services      *proxy.Registry
	dispatcher    *proxy.Dispatcher
	recorder      audit.Recorder
	logger        observability.Logger
	metrics       *observability.Metrics
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithAuditRecorder enables audit events for proxied requests and
// quota denials.
func WithAuditRecorder(rec audit.Recorder) PipelineOption {
	return func(p *Pipeline) { p.recorder = rec }
}

// WithLogger sets the pipeline logger.
func WithLogger(logger observability.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics enables pipeline metrics.
func WithMetrics(m *observability.Metrics) PipelineOption {
	return func(p *Pipeline) { p.metrics = m }
}

// NewPipeline creates a pipeline over the given components.
func NewPipeline(
	authenticator *auth.Authenticator,
	limiter ratelimit.Limiter,
	services *proxy.Registry,
	dispatcher *proxy.Dispatcher,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		authenticator: authenticator,
		limiter:       limiter,
		services:      services,
		dispatcher:    dispatcher,
		recorder:      audit.NopRecorder{},
		logger:        observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// buildFunc assembles the outbound proxy request once the service is
// resolved and the quota consumed. Returning an error aborts with a
// 400 envelope carrying the error message.
type buildFunc func(svc proxy.Service) (*proxy.Request, error)

// executeOptions holds per-call relay settings.
type executeOptions struct {
	defaultContentType string
}

// ExecuteOption configures a single Execute call.
type ExecuteOption func(*executeOptions)

// WithDefaultContentType sets the content type relayed when the
// upstream response carries none. Routes with a fixed response format
// use this so the fallback matches what the client asked for.
func WithDefaultContentType(contentType string) ExecuteOption {
	return func(o *executeOptions) { o.defaultContentType = contentType }
}

// Execute runs the pipeline for one request. Each stage is terminal
// on failure; later stages never run after an envelope was written.
func (p *Pipeline) Execute(c *gin.Context, serviceName, endpoint string, build buildFunc, opts ...ExecuteOption) {
	execOpts := executeOptions{defaultContentType: "application/json"}
	for _, opt := range opts {
		opt(&execOpts)
	}

	// Stage 1: authenticate.
	authResult := p.authenticator.Authenticate(c.Request)
	if !authResult.OK {
		if p.metrics != nil {
			p.metrics.IncAuthFailure("invalid_key")
		}
		response.Unauthorized(c, authResult.Message)
		return
	}
	cred := authResult.Credential
	c.Request = c.Request.WithContext(
		util.ContextWithCredentialName(c.Request.Context(), cred.Name))

	// Stage 2: resolve the upstream service.
	svc, err := p.services.Lookup(serviceName)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// Stage 3: enforce the credential quota. The counter key scopes
	// the quota per credential and endpoint.
	limitResult, err := p.limiter.Allow(c.Request.Context(), cred.Key+"|"+endpoint, ratelimit.Limit{
		Requests: cred.RateLimit.MaxRequests,
		Window:   cred.RateLimit.Window,
	})
	if err != nil {
		p.logger.Error("rate limit check failed", observability.Error(err))
		response.InternalError(c, "internal server error")
		return
	}
	if !limitResult.Allowed {
		if p.metrics != nil {
			p.metrics.IncRateLimitHit("credential")
		}
		p.recorder.Record(audit.SecurityEvent(audit.ActionRateLimitExceeded, audit.OutcomeDenied, p.subject(c, cred)).
			WithRequest(c.Request.Method, c.FullPath(), http.StatusTooManyRequests).
			WithMetadata("endpoint", endpoint))
		response.TooManyRequests(c, "rate limit exceeded", gin.H{
			"limit":   limitResult.Limit,
			"resetAt": limitResult.ResetAt.UTC().Format(time.RFC3339),
		})
		return
	}

	// Stage 4: build the outbound request.
	req, err := build(svc)
	if err != nil {
		var valErr *util.ValidationError
		if errors.As(err, &valErr) {
			response.BadRequest(c, valErr.Message)
		} else {
			response.BadRequest(c, err.Error())
		}
		return
	}

	// Stage 5: dispatch and relay.
	resp, err := p.dispatcher.Invoke(c.Request.Context(), svc, req)
	if err != nil {
		status := http.StatusInternalServerError
		if proxy.IsDispatchError(err) {
			status = http.StatusBadGateway
		}
		p.logger.Error("proxy request failed",
			observability.String("service", serviceName),
			observability.String("endpoint", endpoint),
			observability.Error(err),
		)
		p.record(c, cred, endpoint, status)
		response.Error(c, status, response.CodeInternalError, "proxy request failed")
		return
	}

	p.relay(c, resp, execOpts.defaultContentType)
	p.record(c, cred, endpoint, resp.StatusCode)
}

// relay writes the upstream response through verbatim: its status, its
// sanitized headers, and its body untouched. Content-Length is never
// copied; the dispatcher may have capped the body, so the length is
// recomputed from what is actually written.
func (p *Pipeline) relay(c *gin.Context, resp *proxy.Response, defaultContentType string) {
	contentType := ""
	for name, value := range resp.Headers {
		if util.HeaderEqualFold(name, "Content-Type") {
			contentType = value
			continue
		}
		if util.HeaderEqualFold(name, "Content-Length") {
			continue
		}
		c.Writer.Header().Set(name, value)
	}
	if contentType == "" {
		contentType = defaultContentType
	}
	c.Data(resp.StatusCode, contentType, resp.Body)
}

func (p *Pipeline) subject(c *gin.Context, cred *auth.Credential) *audit.Subject {
	return &audit.Subject{
		KeyPrefix: auth.KeyPrefix(cred.Key),
		Name:      cred.Name,
		ClientIP:  c.ClientIP(),
	}
}

func (p *Pipeline) record(c *gin.Context, cred *auth.Credential, endpoint string, status int) {
	event := audit.RequestEvent(p.subject(c, cred), c.Request.Method, c.Request.URL.Path, status).
		WithMetadata("endpoint", endpoint)
	p.recorder.Record(event)
}
