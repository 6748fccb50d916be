package auth

import (
	"net/http"
	"strings"
)

// Extractor pulls an API key from an incoming request.
type Extractor interface {
	// Extract returns the key and true when the request carries one
	// via this mechanism.
	Extract(r *http.Request) (string, bool)
}

// BearerExtractor reads the key from the Authorization header using
// the Bearer scheme. The scheme comparison is case-insensitive.
type BearerExtractor struct{}

func (BearerExtractor) Extract(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// QueryExtractor reads the key from a named query parameter.
type QueryExtractor struct {
	Param string
}

func (e QueryExtractor) Extract(r *http.Request) (string, bool) {
	token := r.URL.Query().Get(e.Param)
	if token == "" {
		return "", false
	}
	return token, true
}

// CompositeExtractor tries each extractor in order and returns the
// first key found.
type CompositeExtractor struct {
	extractors []Extractor
}

func NewCompositeExtractor(extractors ...Extractor) *CompositeExtractor {
	return &CompositeExtractor{extractors: extractors}
}

func (e *CompositeExtractor) Extract(r *http.Request) (string, bool) {
	for _, ex := range e.extractors {
		if token, ok := ex.Extract(r); ok {
			return token, true
		}
	}
	return "", false
}

// DefaultExtractor returns the standard extraction chain: the
// Authorization header wins over the auth_token query parameter,
// which wins over api_key.
func DefaultExtractor() *CompositeExtractor {
	return NewCompositeExtractor(
		BearerExtractor{},
		QueryExtractor{Param: "auth_token"},
		QueryExtractor{Param: "api_key"},
	)
}
