package auth

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiredirector/gateway/internal/audit"
)

type captureRecorder struct {
	events []*audit.Event
}

func (c *captureRecorder) Record(e *audit.Event) {
	c.events = append(c.events, e)
}

func testRegistry() *Registry {
	return NewRegistry([]*Credential{
		{
			Key:         "valid-key-123456",
			Name:        "mobile-app",
			Permissions: []string{"geocode"},
			RateLimit:   Quota{MaxRequests: 100, Window: time.Hour},
		},
	})
}

func TestAuthenticator_ValidKey(t *testing.T) {
	a := NewAuthenticator(testRegistry())

	r := newRequest(t, "/proxy", map[string]string{"Authorization": "Bearer valid-key-123456"})
	result := a.Authenticate(r)

	require.True(t, result.OK)
	require.NotNil(t, result.Credential)
	assert.Equal(t, "mobile-app", result.Credential.Name)
	assert.Empty(t, result.Message)
}

func TestAuthenticator_MissingKey(t *testing.T) {
	rec := &captureRecorder{}
	a := NewAuthenticator(testRegistry(), WithAuditRecorder(rec))

	result := a.Authenticate(newRequest(t, "/proxy", nil))

	require.False(t, result.OK)
	assert.Nil(t, result.Credential)
	assert.Contains(t, result.Message, "Authorization header")
	assert.Contains(t, result.Message, "auth_token")
	assert.Contains(t, result.Message, "api_key")
	assert.Empty(t, rec.events, "missing key should not produce a security event")
}

func TestAuthenticator_UnknownKey(t *testing.T) {
	rec := &captureRecorder{}
	a := NewAuthenticator(testRegistry(), WithAuditRecorder(rec))

	r := newRequest(t, "/proxy", map[string]string{"Authorization": "Bearer wrong-key-987654"})
	result := a.Authenticate(r)

	require.False(t, result.OK)
	assert.Equal(t, "invalid API key", result.Message)

	require.Len(t, rec.events, 1)
	event := rec.events[0]
	assert.Equal(t, audit.ActionInvalidKey, event.Action)
	assert.Equal(t, audit.OutcomeDenied, event.Outcome)
	require.NotNil(t, event.Subject)
	assert.Equal(t, "wrong-ke...", event.Subject.KeyPrefix)
	assert.Equal(t, http.StatusUnauthorized, event.Status)
}

func TestAuthenticator_NeverEchoesKey(t *testing.T) {
	rec := &captureRecorder{}
	a := NewAuthenticator(testRegistry(), WithAuditRecorder(rec))

	const secret = "super-secret-key-value-0001"
	r := newRequest(t, "/proxy?api_key="+secret, nil)
	result := a.Authenticate(r)

	require.False(t, result.OK)
	assert.NotContains(t, result.Message, secret)
	require.Len(t, rec.events, 1)
	assert.NotContains(t, rec.events[0].Subject.KeyPrefix, secret)
}

func TestRegistry_ReplaceIsAtomic(t *testing.T) {
	reg := testRegistry()
	assert.Equal(t, 1, reg.Count())

	reg.Replace([]*Credential{
		{Key: "new-key-a", Name: "a"},
		{Key: "new-key-b", Name: "b"},
	})

	assert.Equal(t, 2, reg.Count())
	_, ok := reg.FindByKey("valid-key-123456")
	assert.False(t, ok)
	cred, ok := reg.FindByKey("new-key-a")
	require.True(t, ok)
	assert.Equal(t, "a", cred.Name)
}

func TestRegistry_DuplicateKeysLastWins(t *testing.T) {
	reg := NewRegistry([]*Credential{
		{Key: "dup", Name: "first"},
		{Key: "dup", Name: "second"},
	})

	assert.Equal(t, 1, reg.Count())
	cred, ok := reg.FindByKey("dup")
	require.True(t, ok)
	assert.Equal(t, "second", cred.Name)
}
