package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiredirector/gateway/internal/audit"
	"github.com/apiredirector/gateway/internal/auth"
	"github.com/apiredirector/gateway/internal/gateway/response"
	"github.com/apiredirector/gateway/internal/health"
	"github.com/apiredirector/gateway/internal/proxy"
	"github.com/apiredirector/gateway/internal/proxy/googlemaps"
	"github.com/apiredirector/gateway/internal/ratelimit"
)

const (
	testClientKey   = "client-key-0000000001"
	testProviderKey = "provider-secret-key"
)

type captureRecorder struct {
	events []*audit.Event
}

func (c *captureRecorder) Record(e *audit.Event) {
	c.events = append(c.events, e)
}

type fixture struct {
	engine   *gin.Engine
	upstream *httptest.Server
	recorder *captureRecorder
}

type fixtureOptions struct {
	quota    auth.Quota
	upstream http.HandlerFunc
}

func newFixture(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstreamHandler := opts.upstream
	if upstreamHandler == nil {
		upstreamHandler = func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Server", "mafe")
			_, _ = w.Write([]byte(`{"status":"OK","results":[]}`))
		}
	}
	upstream := httptest.NewServer(upstreamHandler)
	t.Cleanup(upstream.Close)

	quota := opts.quota
	if quota.MaxRequests == 0 {
		quota = auth.Quota{MaxRequests: 100, Window: time.Hour}
	}

	registry := auth.NewRegistry([]*auth.Credential{{
		Key:         testClientKey,
		Name:        "test-client",
		Permissions: []string{"geocode"},
		RateLimit:   quota,
	}})

	recorder := &captureRecorder{}
	authenticator := auth.NewAuthenticator(registry, auth.WithAuditRecorder(recorder))

	maps := googlemaps.New(testProviderKey, googlemaps.WithBaseURL(upstream.URL))
	services := proxy.NewRegistry(maps)
	dispatcher := proxy.NewDispatcher()
	limiter := ratelimit.NewFixedWindowLimiter()

	pipeline := NewPipeline(authenticator, limiter, services, dispatcher,
		WithAuditRecorder(recorder))
	handlers := NewHandlers(pipeline, maps, health.NewChecker("1.0.0", services))

	engine := gin.New()
	RegisterRoutes(engine, handlers)

	return &fixture{engine: engine, upstream: upstream, recorder: recorder}
}

func (f *fixture) do(t *testing.T, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var env response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func authed() map[string]string {
	return map[string]string{"Authorization": "Bearer " + testClientKey}
}

func TestHealth_NoAuthRequired(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	env := decodeEnvelope(t, w)
	assert.True(t, env.Success)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, "1.0.0", data["version"])
	services, ok := data["services"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "available", services["google-maps"])
}

func TestGeocode_Success(t *testing.T) {
	var upstreamQuery map[string][]string
	f := newFixture(t, fixtureOptions{
		upstream: func(w http.ResponseWriter, r *http.Request) {
			upstreamQuery = r.URL.Query()
			assert.Equal(t, "/geocode/json", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Server", "mafe")
			_, _ = w.Write([]byte(`{"status":"OK"}`))
		},
	})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin&language=de&unknown=drop", "", authed())

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())

	assert.Equal(t, "Berlin", upstreamQuery["address"][0])
	assert.Equal(t, "de", upstreamQuery["language"][0])
	assert.Equal(t, testProviderKey, upstreamQuery["key"][0])
	assert.NotContains(t, upstreamQuery, "unknown", "non-allow-listed params must be dropped")

	assert.Empty(t, w.Header().Get("Server"))
	assert.Equal(t, "google-maps", w.Header().Get("X-Proxy-Service"))
	assert.NotEmpty(t, w.Header().Get("X-Proxy-Timestamp"))
}

func TestGeocode_XMLFormat(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		upstream: func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/geocode/xml", r.URL.Path)
			w.Header().Set("Content-Type", "application/xml")
			_, _ = w.Write([]byte(`<GeocodeResponse><status>OK</status></GeocodeResponse>`))
		},
	})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode/xml?address=Berlin", "", authed())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml")
	assert.Contains(t, w.Body.String(), "<status>OK</status>")
}

func TestGeocode_XMLDefaultContentTypeWhenUpstreamOmitsIt(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		upstream: func(w http.ResponseWriter, r *http.Request) {
			// Suppress the implicit Content-Type so the relay fallback
			// is what the client sees.
			w.Header()["Content-Type"] = nil
			_, _ = w.Write([]byte(`<GeocodeResponse><status>OK</status></GeocodeResponse>`))
		},
	})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode/xml?address=Berlin", "", authed())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/xml",
		"fallback must follow the requested format, not JSON")
}

func TestPipelineRelay_DropsUpstreamContentLength(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	// A capped body can make the upstream Content-Length stale, so the
	// relay must never copy it.
	p := &Pipeline{}
	p.relay(c, &proxy.Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			"Content-Length": "9999",
			"X-Custom":       "kept",
		},
		Body: []byte(`{"status":"OK"}`),
	}, "application/json")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"OK"}`, w.Body.String())
	assert.Equal(t, "kept", w.Header().Get("X-Custom"))
	assert.NotEqual(t, "9999", w.Header().Get("Content-Length"))
}

func TestGeocode_ReverseByLatLng(t *testing.T) {
	var gotLatLng string
	f := newFixture(t, fixtureOptions{
		upstream: func(w http.ResponseWriter, r *http.Request) {
			gotLatLng = r.URL.Query().Get("latlng")
			_, _ = w.Write([]byte(`{"status":"OK"}`))
		},
	})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?latlng=52.52,13.405", "", authed())

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "52.52,13.405", gotLatLng)
}

func TestGeocode_MissingAddressAndLatLng(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode", "", authed())

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeBadRequest, env.Error.Code)
	assert.Contains(t, env.Error.Message, "address or latlng")
}

func TestGeocode_MalformedLatLng(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?latlng=not-coords", "", authed())

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeBadRequest, env.Error.Code)
}

func TestAuth_MissingKey(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", nil)

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeUnauthorized, env.Error.Code)
	assert.Contains(t, env.Error.Message, "Authorization header")
}

func TestAuth_InvalidKey(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", map[string]string{
		"Authorization": "Bearer not-a-real-key-123",
	})

	require.Equal(t, http.StatusUnauthorized, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "invalid API key", env.Error.Message)
	assert.NotContains(t, w.Body.String(), "not-a-real-key-123")

	require.NotEmpty(t, f.recorder.events)
	assert.Equal(t, audit.ActionInvalidKey, f.recorder.events[0].Action)
}

func TestAuth_KeyViaQueryParams(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	for _, param := range []string{"auth_token", "api_key"} {
		w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin&"+param+"="+testClientKey, "", nil)
		assert.Equal(t, http.StatusOK, w.Code, "key via %s should authenticate", param)
	}
}

func TestRateLimit_ExceededThenReset(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		quota: auth.Quota{MaxRequests: 2, Window: time.Hour},
	})

	for i := 0; i < 2; i++ {
		w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", authed())
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", authed())
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeTooManyRequests, env.Error.Code)

	details, ok := env.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), details["limit"])
	resetAt, err := time.Parse(time.RFC3339, details["resetAt"].(string))
	require.NoError(t, err)
	assert.True(t, resetAt.After(time.Now()))

	var denied bool
	for _, e := range f.recorder.events {
		if e.Action == audit.ActionRateLimitExceeded {
			denied = true
		}
	}
	assert.True(t, denied, "quota denial should produce a security event")
}

func TestRateLimit_DeniedRequestNotDispatched(t *testing.T) {
	calls := 0
	f := newFixture(t, fixtureOptions{
		quota: auth.Quota{MaxRequests: 1, Window: time.Hour},
		upstream: func(w http.ResponseWriter, r *http.Request) {
			calls++
			_, _ = w.Write([]byte(`{}`))
		},
	})

	for i := 0; i < 5; i++ {
		f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", authed())
	}

	assert.Equal(t, 1, calls, "denied requests must never reach the upstream")
}

func TestUpstreamErrorStatusRelayed(t *testing.T) {
	f := newFixture(t, fixtureOptions{
		upstream: func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"status":"REQUEST_DENIED"}`))
		},
	})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", authed())

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"status":"REQUEST_DENIED"}`, w.Body.String())
}

func TestUpstreamTransportFailure(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.upstream.Close() // connection refused from here on

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", authed())

	require.Equal(t, http.StatusBadGateway, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeInternalError, env.Error.Code)
	assert.Equal(t, "proxy request failed", env.Error.Message)
	assert.NotContains(t, w.Body.String(), "127.0.0.1", "transport detail stays out of responses")
}

func TestGeneric_GET(t *testing.T) {
	var upstreamQuery map[string][]string
	var upstreamPath string
	f := newFixture(t, fixtureOptions{
		upstream: func(w http.ResponseWriter, r *http.Request) {
			upstreamQuery = r.URL.Query()
			upstreamPath = r.URL.Path
			_, _ = w.Write([]byte(`{"ok":true}`))
		},
	})

	w := f.do(t, http.MethodGet,
		"/proxy?service=google-maps&endpoint=geocode/json&address=Berlin&api_key="+testClientKey, "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "/geocode/json", upstreamPath)
	assert.Equal(t, "Berlin", upstreamQuery["address"][0])
	assert.NotContains(t, upstreamQuery, "service")
	assert.NotContains(t, upstreamQuery, "endpoint")
	assert.NotContains(t, upstreamQuery, "api_key", "client credential must not reach the upstream")
	assert.Equal(t, testProviderKey, upstreamQuery["key"][0])
}

func TestGeneric_POST(t *testing.T) {
	var upstreamMethod, upstreamBody string
	f := newFixture(t, fixtureOptions{
		upstream: func(w http.ResponseWriter, r *http.Request) {
			upstreamMethod = r.Method
			body, _ := io.ReadAll(r.Body)
			upstreamBody = string(body)
			_, _ = w.Write([]byte(`{"ok":true}`))
		},
	})

	body := `{"service":"google-maps","endpoint":"geocode/json","method":"POST","params":{"address":"Berlin"},"body":"payload"}`
	w := f.do(t, http.MethodPost, "/proxy", body, map[string]string{
		"Authorization": "Bearer " + testClientKey,
		"Content-Type":  "application/json",
	})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.MethodPost, upstreamMethod)
	assert.Equal(t, "payload", upstreamBody)
}

func TestGeneric_MissingServiceOrEndpoint(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/proxy?service=google-maps", "", authed())
	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Contains(t, env.Error.Message, "service and endpoint are required")
}

func TestGeneric_UnknownService(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/proxy?service=bing-maps&endpoint=geocode", "", authed())

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeBadRequest, env.Error.Code)
	assert.Equal(t, "unsupported service: bing-maps", env.Error.Message)
}

func TestGeneric_InvalidJSONBody(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodPost, "/proxy", "{not json", map[string]string{
		"Authorization": "Bearer " + testClientKey,
	})

	require.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w)
	assert.Equal(t, "invalid JSON in request body", env.Error.Message)
}

func TestAudit_RequestEventRecorded(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/proxy/maps/geocode?address=Berlin", "", authed())
	require.Equal(t, http.StatusOK, w.Code)

	var found *audit.Event
	for _, e := range f.recorder.events {
		if e.Type == audit.EventTypeRequest {
			found = e
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, http.StatusOK, found.Status)
	require.NotNil(t, found.Subject)
	assert.Equal(t, "test-client", found.Subject.Name)
	assert.NotContains(t, found.Subject.KeyPrefix, testClientKey)
}

func TestUnknownRoute(t *testing.T) {
	f := newFixture(t, fixtureOptions{})

	w := f.do(t, http.MethodGet, "/nope", "", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decodeEnvelope(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, response.CodeNotFound, env.Error.Code)
}
