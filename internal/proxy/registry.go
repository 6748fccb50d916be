package proxy

import (
	"sort"

	"github.com/apiredirector/gateway/internal/util"
)

// Registry maps service names to their implementations. It is
// populated once at startup and read-only afterwards.
type Registry struct {
	services map[string]Service
}

// NewRegistry creates a registry with the given services.
func NewRegistry(services ...Service) *Registry {
	r := &Registry{services: make(map[string]Service, len(services))}
	for _, svc := range services {
		r.services[svc.Name()] = svc
	}
	return r
}

// Lookup returns the service registered under name.
func (r *Registry) Lookup(name string) (Service, error) {
	svc, ok := r.services[name]
	if !ok {
		return nil, util.NewUnknownServiceError(name)
	}
	return svc, nil
}

// Names returns the registered service names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
