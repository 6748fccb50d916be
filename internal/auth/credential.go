// Package auth provides API key authentication for the gateway.
//
// Credentials are static shared secrets loaded from a delimiter-based
// spec string. The registry built from them is immutable between
// atomic swaps, so concurrent reads need no synchronization.
package auth

import (
	"strings"
	"time"
)

// Quota is the per-credential rate limit budget.
type Quota struct {
	// MaxRequests is the number of requests allowed per window.
	MaxRequests int

	// Window is the fixed window length.
	Window time.Duration
}

// Credential is a single API key record. Immutable once loaded.
type Credential struct {
	// Key is the shared secret identifying the caller.
	Key string

	// Name is the credential's display name, safe for logs.
	Name string

	// Permissions lists the operations the credential may perform.
	Permissions []string

	// RateLimit is the credential's fixed window budget.
	RateLimit Quota
}

// HasPermission reports whether the credential carries the given
// permission.
func (c *Credential) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// ParseCredentialSpec parses a credential spec of the form
// "key1:name1:perm1,perm2;key2:name2:perm1" into credential records.
//
// Entries are independent: a malformed entry yields a record with
// empty permissions rather than aborting the whole load. Entries with
// an empty key are skipped. Every record receives the supplied default
// quota.
func ParseCredentialSpec(spec string, defaults Quota) []*Credential {
	if strings.TrimSpace(spec) == "" {
		return nil
	}

	entries := strings.Split(spec, ";")
	creds := make([]*Credential, 0, len(entries))

	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		parts := strings.Split(entry, ":")
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}

		cred := &Credential{
			Key:         key,
			Permissions: []string{},
			RateLimit:   defaults,
		}

		if len(parts) > 1 {
			cred.Name = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 && parts[2] != "" {
			cred.Permissions = strings.Split(parts[2], ",")
		}

		creds = append(creds, cred)
	}

	return creds
}

// KeyPrefix returns a short, non-reversible prefix of a credential for
// audit correlation. The full key never appears in logs or responses.
func KeyPrefix(key string) string {
	const prefixLen = 8
	if len(key) <= prefixLen {
		return key + "..."
	}
	return key[:prefixLen] + "..."
}
