package auth

import (
	"net/http"

	"github.com/apiredirector/gateway/internal/audit"
	"github.com/apiredirector/gateway/internal/observability"
	"github.com/apiredirector/gateway/internal/util"
)

// Result is the outcome of authenticating a request.
type Result struct {
	OK         bool
	Credential *Credential
	// Message is a client-safe description of the failure. It never
	// contains the presented key.
	Message string
}

const (
	msgMissingKey = "missing API key: provide it via the Authorization header (Bearer), the auth_token query parameter, or the api_key query parameter"
	msgInvalidKey = "invalid API key"
)

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithExtractor overrides the default extraction chain.
func WithExtractor(e Extractor) AuthenticatorOption {
	return func(a *Authenticator) { a.extractor = e }
}

// WithAuditRecorder enables security audit events for failed lookups.
func WithAuditRecorder(rec audit.Recorder) AuthenticatorOption {
	return func(a *Authenticator) { a.recorder = rec }
}

// WithLogger sets the authenticator logger.
func WithLogger(logger observability.Logger) AuthenticatorOption {
	return func(a *Authenticator) { a.logger = logger }
}

// Authenticator validates API keys against a credential registry.
type Authenticator struct {
	registry  *Registry
	extractor Extractor
	recorder  audit.Recorder
	logger    observability.Logger
}

func NewAuthenticator(registry *Registry, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{
		registry:  registry,
		extractor: DefaultExtractor(),
		recorder:  audit.NopRecorder{},
		logger:    observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate extracts and validates the API key carried by the
// request. Unknown keys are reported with a generic message; the key
// itself is never logged or echoed, only a truncated prefix appears
// in audit events.
func (a *Authenticator) Authenticate(r *http.Request) Result {
	token, ok := a.extractor.Extract(r)
	if !ok {
		return Result{OK: false, Message: msgMissingKey}
	}

	cred, found := a.registry.FindByKey(token)
	if !found {
		prefix := KeyPrefix(token)
		a.logger.Warn("authentication failed",
			observability.String("key_prefix", prefix),
			observability.String("reason", "unknown_key"),
		)
		subject := &audit.Subject{
			KeyPrefix: prefix,
			ClientIP:  util.ClientIP(r),
		}
		event := audit.SecurityEvent(audit.ActionInvalidKey, audit.OutcomeDenied, subject).
			WithRequest(r.Method, r.URL.Path, http.StatusUnauthorized)
		a.recorder.Record(event)
		return Result{OK: false, Message: msgInvalidKey}
	}

	return Result{OK: true, Credential: cred}
}
