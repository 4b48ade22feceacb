package binding

import (
	"context"
	"sync"

	flux "github.com/pumped-fn/pumped-flux"
)

type contextKey int

const (
	stateKey contextKey = iota
	providerKey
	cleanupKey
)

// WithState returns a copy of ctx carrying snapshot. Provider does this for
// every render; it is exported for rendering components in tests.
func WithState(ctx context.Context, snapshot flux.State) context.Context {
	return context.WithValue(ctx, stateKey, snapshot)
}

// StateFrom returns the snapshot the enclosing provider rendered with
func StateFrom(ctx context.Context) (flux.State, bool) {
	s, ok := ctx.Value(stateKey).(flux.State)
	return s, ok
}

// Select reads one typed entry from the snapshot in ctx
func Select[T any](ctx context.Context, key flux.Key[T]) (T, bool) {
	s, ok := StateFrom(ctx)
	if !ok {
		var zero T
		return zero, false
	}
	return key.Get(s)
}

// ProviderFrom returns the provider rendering ctx
func ProviderFrom(ctx context.Context) (*Provider, bool) {
	p, ok := ctx.Value(providerKey).(*Provider)
	return p, ok
}

// cleanups collects the cleanup functions registered during one render pass
type cleanups struct {
	mu      sync.Mutex
	entries []func() error
}

func (c *cleanups) take() []func() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries := c.entries
	c.entries = nil
	return entries
}

func (c *cleanups) add(fn func() error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, fn)
}

// OnCleanup registers fn to run before the next render or when the
// provider is disposed, whichever comes first. Cleanups run in reverse
// registration order. It reports false when ctx is not a render context.
func OnCleanup(ctx context.Context, fn func() error) bool {
	c, ok := ctx.Value(cleanupKey).(*cleanups)
	if !ok || fn == nil {
		return false
	}
	c.add(fn)
	return true
}
