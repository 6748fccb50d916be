// Package audit provides security audit event logging for the gateway.
//
// Audit events never carry full credentials: the subject of an event
// holds a truncated, non-reversible key prefix for correlation only.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of audit event.
type EventType string

// Event types.
const (
	EventTypeAuthentication EventType = "authentication"
	EventTypeRequest        EventType = "request"
	EventTypeSecurity       EventType = "security"
)

// Action represents the action being audited.
type Action string

// Common actions.
const (
	ActionAuthenticate      Action = "authenticate"
	ActionProxyRequest      Action = "proxy_request"
	ActionInvalidKey        Action = "invalid_key"
	ActionRateLimitExceeded Action = "rate_limit_exceeded"
)

// Outcome represents the outcome of an audited action.
type Outcome string

// Outcomes.
const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeDenied  Outcome = "denied"
)

// Event represents an audit event.
type Event struct {
	// ID is a unique identifier for the event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the type of event.
	Type EventType `json:"type"`

	// Action is the action being audited.
	Action Action `json:"action"`

	// Outcome is the outcome of the action.
	Outcome Outcome `json:"outcome"`

	// Subject identifies who performed the action.
	Subject *Subject `json:"subject,omitempty"`

	// Method is the inbound HTTP method.
	Method string `json:"method,omitempty"`

	// Endpoint is the target endpoint of the request.
	Endpoint string `json:"endpoint,omitempty"`

	// Status is the final HTTP status returned to the caller.
	Status int `json:"status,omitempty"`

	// Metadata contains additional event details.
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Subject identifies the caller of an audited action. It carries only
// a truncated key prefix, never the full secret.
type Subject struct {
	// KeyPrefix is the truncated credential prefix.
	KeyPrefix string `json:"key_prefix,omitempty"`

	// Name is the credential's display name, when resolved.
	Name string `json:"name,omitempty"`

	// ClientIP is the caller's network address.
	ClientIP string `json:"client_ip,omitempty"`
}

// NewEvent creates a new audit event with default values.
func NewEvent(eventType EventType, action Action, outcome Outcome) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Action:    action,
		Outcome:   outcome,
	}
}

// WithSubject sets the subject.
func (e *Event) WithSubject(subject *Subject) *Event {
	e.Subject = subject
	return e
}

// WithRequest sets the request details.
func (e *Event) WithRequest(method, endpoint string, status int) *Event {
	e.Method = method
	e.Endpoint = endpoint
	e.Status = status
	return e
}

// WithMetadata adds metadata to the event.
func (e *Event) WithMetadata(key string, value interface{}) *Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// SecurityEvent creates a security audit event.
func SecurityEvent(action Action, outcome Outcome, subject *Subject) *Event {
	return NewEvent(EventTypeSecurity, action, outcome).WithSubject(subject)
}

// RequestEvent creates a request audit event.
func RequestEvent(subject *Subject, method, endpoint string, status int) *Event {
	outcome := OutcomeSuccess
	if status >= 400 {
		outcome = OutcomeFailure
	}
	return NewEvent(EventTypeRequest, ActionProxyRequest, outcome).
		WithSubject(subject).
		WithRequest(method, endpoint, status)
}
