package auth

import "sync/atomic"

// Registry is an immutable index of credentials keyed by secret value.
// Lookups are lock-free; Replace swaps the whole index atomically so
// readers never observe a partially loaded registry.
type Registry struct {
	index atomic.Pointer[map[string]*Credential]
}

// NewRegistry creates a registry from the given credentials. Later
// duplicates of the same key win, matching last-entry-wins semantics
// of the credential spec.
func NewRegistry(creds []*Credential) *Registry {
	r := &Registry{}
	r.Replace(creds)
	return r
}

// Replace atomically swaps the registry contents.
func (r *Registry) Replace(creds []*Credential) {
	index := make(map[string]*Credential, len(creds))
	for _, cred := range creds {
		index[cred.Key] = cred
	}
	r.index.Store(&index)
}

// FindByKey returns the credential for the given key, if any.
func (r *Registry) FindByKey(key string) (*Credential, bool) {
	index := r.index.Load()
	if index == nil {
		return nil, false
	}
	cred, ok := (*index)[key]
	return cred, ok
}

// Count returns the number of registered credentials.
func (r *Registry) Count() int {
	index := r.index.Load()
	if index == nil {
		return 0
	}
	return len(*index)
}
