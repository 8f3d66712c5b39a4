package payment

import (
	"fmt"
	"net/http"

	"github.com/cryptolotto/lottery-backend/internal/apperrors"
)

// Registry holds the configured payment adapters keyed by provider name. It
// is constructed once at startup and passed by reference to the reconciler
// and checkout service; there is no process-wide singleton.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry creates a registry with the given adapters
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters[a.Name()] = a
	}
	return r
}

// ByName returns the adapter registered under the provider key
func (r *Registry) ByName(name string) (Adapter, error) {
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: payment adapter not found for provider %q", apperrors.ErrNotFound, name)
	}
	return a, nil
}

// ByHeader identifies the adapter whose signature header is present in the
// request and returns it with the signature value. Returns false when no
// configured provider's header is present.
func (r *Registry) ByHeader(header http.Header) (Adapter, string, bool) {
	for _, a := range r.adapters {
		if sig := header.Get(a.SignatureHeader()); sig != "" {
			return a, sig, true
		}
	}
	return nil, "", false
}

// Names returns the configured provider keys
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for name := range r.adapters {
		names = append(names, name)
	}
	return names
}
