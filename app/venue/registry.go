package venue

import (
	"fmt"
	"slices"
)

// Registry maps vendor names to their sources.
type Registry struct {
	sources map[string]Source
}

func NewRegistry(sources ...Source) *Registry {
	r := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		r.sources[s.Vendor()] = s
	}
	return r
}

func (r *Registry) Get(vendor string) (Source, error) {
	s, ok := r.sources[vendor]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVendor, vendor)
	}
	return s, nil
}

func (r *Registry) Vendors() []string {
	vendors := make([]string, 0, len(r.sources))
	for v := range r.sources {
		vendors = append(vendors, v)
	}
	slices.Sort(vendors)
	return vendors
}
