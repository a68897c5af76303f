package backend

import (
	"fmt"
	"sort"

	"github.com/vyrodovalexey/dashgw/internal/config"
	"github.com/vyrodovalexey/dashgw/internal/observability"
)

// Registry holds the clients for the identity, attendance and leave
// history services.
type Registry struct {
	clients map[string]*Client
	logger  observability.Logger
}

// NewRegistry creates one client per configured backend. All clients
// share one pooled HTTP client unless an option overrides it.
func NewRegistry(cfg config.BackendsConfig, logger observability.Logger, opts ...ClientOption) (*Registry, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	shared := NewHTTPClient(DefaultPoolConfig())
	base := []ClientOption{WithHTTPClient(shared), WithLogger(logger)}

	r := &Registry{
		clients: make(map[string]*Client, 3),
		logger:  logger,
	}

	for name, bc := range cfg.Named() {
		client, err := NewClient(name, bc, append(base, opts...)...)
		if err != nil {
			return nil, err
		}
		r.clients[name] = client
		logger.Info("registered backend",
			observability.String("service", name),
			observability.String("url", bc.URL),
			observability.String("path", bc.Path),
			observability.Bool("circuitBreaker", bc.CircuitBreaker.Enabled),
		)
	}

	return r, nil
}

// Get returns a client by service name.
func (r *Registry) Get(name string) (*Client, bool) {
	c, ok := r.clients[name]
	return c, ok
}

// MustGet returns a client by service name and panics if it is missing.
func (r *Registry) MustGet(name string) *Client {
	c, ok := r.clients[name]
	if !ok {
		panic(fmt.Sprintf("backend %q not registered", name))
	}
	return c
}

// Names returns the registered service names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
