package audit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	event := NewEvent(EventTypeSecurity, ActionInvalidKey, OutcomeFailure)
	require.NotNil(t, event)
	assert.NotEmpty(t, event.ID)
	assert.False(t, event.Timestamp.IsZero())
	assert.Equal(t, EventTypeSecurity, event.Type)
	assert.Equal(t, ActionInvalidKey, event.Action)
	assert.Equal(t, OutcomeFailure, event.Outcome)
}

func TestEvent_Builders(t *testing.T) {
	subject := &Subject{KeyPrefix: "abc12345...", Name: "test-client"}
	event := NewEvent(EventTypeRequest, ActionProxyRequest, OutcomeSuccess).
		WithSubject(subject).
		WithRequest("GET", "/proxy/maps/geocode", 200).
		WithMetadata("service", "google-maps")

	assert.Equal(t, subject, event.Subject)
	assert.Equal(t, "GET", event.Method)
	assert.Equal(t, "/proxy/maps/geocode", event.Endpoint)
	assert.Equal(t, 200, event.Status)
	assert.Equal(t, "google-maps", event.Metadata["service"])
}

func TestSecurityEvent(t *testing.T) {
	event := SecurityEvent(ActionInvalidKey, OutcomeDenied, &Subject{KeyPrefix: "deadbeef..."})
	assert.Equal(t, EventTypeSecurity, event.Type)
	assert.Equal(t, OutcomeDenied, event.Outcome)
	assert.Equal(t, "deadbeef...", event.Subject.KeyPrefix)
}

func TestRequestEvent_Outcome(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		outcome Outcome
	}{
		{name: "success", status: 200, outcome: OutcomeSuccess},
		{name: "client error", status: 429, outcome: OutcomeFailure},
		{name: "server error", status: 502, outcome: OutcomeFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := RequestEvent(nil, "GET", "/proxy", tt.status)
			assert.Equal(t, tt.outcome, event.Outcome)
		})
	}
}
