package publish

import (
	"fmt"
	"sort"

	"ChannelBanner/internal/domain"
	"ChannelBanner/internal/ports"
)

// Registry keeps a mapping from destinations to their publishers.
type Registry struct {
	publishers map[domain.Destination]ports.Publisher
}

// NewRegistry builds a registry pre-filled with the given publishers.
func NewRegistry(publishers ...ports.Publisher) *Registry {
	r := &Registry{publishers: map[domain.Destination]ports.Publisher{}}
	for _, p := range publishers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a publisher implementation.
func (r *Registry) Register(p ports.Publisher) {
	if p == nil {
		return
	}
	if r.publishers == nil {
		r.publishers = map[domain.Destination]ports.Publisher{}
	}
	r.publishers[p.Destination()] = p
}

// Resolve returns the publisher for dest or ErrConfigMissing if it is absent.
func (r *Registry) Resolve(dest domain.Destination) (ports.Publisher, error) {
	if p, ok := r.publishers[dest]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: destination %q is not registered (known: %v)", domain.ErrConfigMissing, dest, r.Destinations())
}

// Destinations lists registered destinations in sorted order.
func (r *Registry) Destinations() []domain.Destination {
	out := make([]domain.Destination, 0, len(r.publishers))
	for dest := range r.publishers {
		out = append(out, dest)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
