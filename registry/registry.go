package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrToolNotFound is returned by Describe for unknown tool names.
var ErrToolNotFound = errors.New("tool not found")

// Logger is an optional interface for discovery observability.
type Logger interface {
	Logf(format string, args ...any)
}

// Registry holds the discovered tool descriptors. It is populated once by
// Discover and read-only afterwards; reads are safe from any number of
// concurrent tasks.
type Registry struct {
	mu          sync.RWMutex
	services    []Service
	descriptors map[string]*Descriptor
	logger      Logger
}

// New creates a registry over the given services. Discovery does not run
// until Discover is called.
func New(services ...Service) *Registry {
	return &Registry{
		services:    services,
		descriptors: make(map[string]*Descriptor),
	}
}

// SetLogger attaches an optional logger. Must be called before Discover.
func (r *Registry) SetLogger(l Logger) { r.logger = l }

// Discover starts every configured service and lists its capabilities.
// A service that cannot be reached is logged and omitted; this is not an
// error, and an empty registry is valid.
func (r *Registry) Discover(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, svc := range r.services {
		if err := svc.Start(ctx); err != nil {
			r.logf("tool service %s unreachable, omitting: %v", svc.Name(), err)
			continue
		}
		tools, err := svc.ListTools(ctx)
		if err != nil {
			r.logf("tool service %s failed capability listing, omitting: %v", svc.Name(), err)
			_ = svc.Stop()
			continue
		}
		for _, tool := range tools {
			d, err := descriptorFromTool(svc, tool)
			if err != nil {
				r.logf("skipping tool %s from %s: %v", tool.Name, svc.Name(), err)
				continue
			}
			if _, exists := r.descriptors[d.Name]; exists {
				r.logf("duplicate tool name %s from %s, keeping first", d.Name, svc.Name())
				continue
			}
			r.descriptors[d.Name] = d
		}
		r.logf("tool service %s discovered with %d tools", svc.Name(), len(tools))
	}
	return nil
}

// Describe retrieves a descriptor by tool name.
func (r *Registry) Describe(name string) (*Descriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.descriptors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return d, nil
}

// All returns every descriptor, sorted by name for deterministic output.
func (r *Registry) All() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Descriptor, 0, len(r.descriptors))
	for _, d := range r.descriptors {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns the discovered tool names, sorted.
func (r *Registry) Names() []string {
	all := r.All()
	out := make([]string, 0, len(all))
	for _, d := range all {
		out = append(out, d.Name)
	}
	return out
}

// Len returns the number of discovered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.descriptors)
}

// Close stops all services. The registry must not be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var firstErr error
	for _, svc := range r.services {
		if err := svc.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Registry) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Logf(format, args...)
	}
}
