// Package proxy defines the upstream service abstraction and the
// dispatch pipeline that forwards gateway requests to provider APIs.
package proxy

import (
	"context"
	"net/url"
	"strings"
)

// Request is an outbound upstream request under construction. Path is
// relative to the service base URL; Params become the query string.
type Request struct {
	Method  string
	Path    string
	Params  map[string]string
	Headers map[string]string
	Body    []byte
}

// Header returns the named request header, if set.
func (r *Request) Header(name string) (string, bool) {
	v, ok := r.Headers[name]
	return v, ok
}

// SetHeader sets a request header, allocating the map on first use.
func (r *Request) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
}

// Response is the upstream response relayed back to the client.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
}

// SetHeader sets a response header, allocating the map on first use.
func (r *Response) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[name] = value
}

// DeleteHeader removes all response headers matching name
// case-insensitively.
func (r *Response) DeleteHeader(name string) {
	for k := range r.Headers {
		if strings.EqualFold(k, name) {
			delete(r.Headers, k)
		}
	}
}

// Service adapts the generic proxy pipeline to one upstream provider.
// Invoke calls the hooks in a fixed order: TransformRequest before the
// request leaves the gateway, TransformResponse before the response is
// relayed.
type Service interface {
	// Name identifies the service in routes, logs, and provenance
	// headers.
	Name() string

	// BaseURL is the upstream root all request paths are resolved
	// against.
	BaseURL() string

	// TransformRequest prepares the outbound request, typically
	// injecting provider credentials and standing headers.
	TransformRequest(ctx context.Context, req *Request) error

	// TransformResponse sanitizes the upstream response before it is
	// relayed to the client.
	TransformResponse(ctx context.Context, resp *Response) error
}

// BuildURL assembles the upstream URL from a base, a relative path,
// and query parameters. Parameters with empty values are skipped;
// everything is URL-encoded.
func BuildURL(base, path string, params map[string]string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", ErrInvalidTargetURL
	}
	if u.Scheme == "" || u.Host == "" {
		return "", ErrInvalidTargetURL
	}

	if path != "" {
		u.Path = strings.TrimSuffix(u.Path, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	query := u.Query()
	for key, value := range params {
		if value == "" {
			continue
		}
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
