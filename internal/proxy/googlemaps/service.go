// Package googlemaps implements the Google Maps upstream service for
// the proxy pipeline.
package googlemaps

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/apiredirector/gateway/internal/proxy"
)

const (
	// ServiceName identifies this service in routes and provenance
	// headers.
	ServiceName = "google-maps"

	defaultBaseURL = "https://maps.googleapis.com/maps/api"
	userAgent      = "API-Redirector/1.0"
)

// Format selects the Google Maps response encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatXML  Format = "xml"
)

// ContentType reports the media type matching the format. Used as the
// relay fallback when the upstream response omits Content-Type.
func (f Format) ContentType() string {
	if f == FormatXML {
		return "application/xml"
	}
	return "application/json"
}

// strippedHeaders are upstream headers that must not leak to clients.
var strippedHeaders = []string{
	"Server",
	"X-Content-Type-Options",
	"X-Frame-Options",
	"X-XSS-Protection",
}

// AllowedGeocodeParams are the optional query parameters forwarded to
// the geocoding API. Anything else a client sends is dropped.
var AllowedGeocodeParams = []string{
	"language",
	"region",
	"components",
	"bounds",
	"result_type",
	"location_type",
}

// Service proxies requests to the Google Maps Platform APIs. The
// provider API key is injected on the way out and never appears in
// relayed responses or logs.
type Service struct {
	baseURL string
	apiKey  string
	now     func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithBaseURL overrides the upstream base URL. Intended for tests.
func WithBaseURL(baseURL string) Option {
	return func(s *Service) { s.baseURL = baseURL }
}

// WithClock overrides the timestamp source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a Google Maps service using the given provider API key.
func New(apiKey string, opts ...Option) *Service {
	s := &Service{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements proxy.Service.
func (s *Service) Name() string { return ServiceName }

// BaseURL implements proxy.Service.
func (s *Service) BaseURL() string { return s.baseURL }

// TransformRequest injects the provider API key and the gateway
// User-Agent.
func (s *Service) TransformRequest(_ context.Context, req *proxy.Request) error {
	if req.Params == nil {
		req.Params = make(map[string]string)
	}
	req.Params["key"] = s.apiKey
	req.SetHeader("User-Agent", userAgent)
	return nil
}

// TransformResponse strips provider infrastructure headers and stamps
// the relay provenance headers.
func (s *Service) TransformResponse(_ context.Context, resp *proxy.Response) error {
	for _, name := range strippedHeaders {
		resp.DeleteHeader(name)
	}
	resp.SetHeader("X-Proxy-Service", ServiceName)
	resp.SetHeader("X-Proxy-Timestamp", s.now().UTC().Format(time.RFC3339))
	return nil
}

// GeocodeRequest builds a forward-geocoding request for the given
// address. extra holds pre-filtered optional parameters.
func (s *Service) GeocodeRequest(address string, format Format, extra map[string]string) *proxy.Request {
	params := map[string]string{"address": address}
	for k, v := range extra {
		params[k] = v
	}
	return &proxy.Request{
		Method: http.MethodGet,
		Path:   "geocode/" + string(format),
		Params: params,
	}
}

// ReverseGeocodeRequest builds a reverse-geocoding request for the
// given coordinates.
func (s *Service) ReverseGeocodeRequest(lat, lng float64, format Format, extra map[string]string) *proxy.Request {
	params := map[string]string{"latlng": fmt.Sprintf("%v,%v", lat, lng)}
	for k, v := range extra {
		params[k] = v
	}
	return &proxy.Request{
		Method: http.MethodGet,
		Path:   "geocode/" + string(format),
		Params: params,
	}
}
