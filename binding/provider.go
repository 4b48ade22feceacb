package binding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/m1gwings/treedrawer/tree"

	flux "github.com/pumped-fn/pumped-flux"
)

const defaultMaxDepth = 1000

var (
	ErrNilStore = errors.New("binding: store is nil")
	ErrNilRoot  = errors.New("binding: root component is nil")
	ErrMaxDepth = errors.New("binding: component tree exceeds maximum depth")
	ErrDisposed = errors.New("binding: provider is disposed")
)

// Option is a modifier for providers
type Option func(*Provider)

// WithLogger sets the logger used for render diagnostics
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithContext sets the parent context of every render
func WithContext(ctx context.Context) Option {
	return func(p *Provider) {
		if ctx != nil {
			p.base = ctx
		}
	}
}

// WithMaxDepth bounds how deep the component tree may nest
func WithMaxDepth(depth int) Option {
	return func(p *Provider) {
		if depth > 0 {
			p.maxDepth = depth
		}
	}
}

// Provider binds a store to a component tree. It initializes the store,
// registers itself as the store's subscriber and re-renders the whole tree
// with the new snapshot every time the store notifies.
//
// Renders run on the goroutine that called Update, one at a time. A
// notification that arrives while another goroutine is rendering is queued
// and rendered by that goroutine before it finishes. Snapshots older than
// the newest one already accepted are dropped.
type Provider struct {
	id          string
	store       *flux.Store
	root        Component
	logger      *slog.Logger
	base        context.Context
	maxDepth    int
	unsubscribe func() bool

	mu        sync.Mutex
	snapshot  flux.State
	version   uint64
	queued    flux.State
	hasQueued bool
	rendering bool
	renders   int
	lastErr   error
	drawn     *tree.Tree
	pending   *cleanups
	disposed  bool
}

// NewProvider initializes store with initial, renders root once and then
// subscribes to the store. A nil initial renders with an empty state.
func NewProvider(store *flux.Store, initial flux.State, root Component, opts ...Option) (*Provider, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if root == nil {
		return nil, ErrNilRoot
	}

	p := &Provider{
		id:       uuid.NewString(),
		store:    store,
		root:     root,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		base:     context.Background(),
		maxDepth: defaultMaxDepth,
	}

	for _, opt := range opts {
		opt(p)
	}

	if err := store.Initialize(initial); err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}

	snapshot, version, err := store.ReadVersion()
	if err != nil {
		return nil, fmt.Errorf("reading initial state: %w", err)
	}
	p.version = version

	if err := p.render(snapshot); err != nil {
		if cerr := runCleanups(p.pending.take()); cerr != nil {
			err = errors.Join(err, cerr)
		}
		return nil, fmt.Errorf("initial render: %w", err)
	}

	p.unsubscribe = store.Subscribe(p.receive)
	p.logger.Debug("provider subscribed", "provider", p.id, "keys", len(snapshot))

	// updates that landed between the initial read and the subscription
	if latest, v, err := store.ReadVersion(); err == nil {
		p.receive(latest, v)
	}

	return p, nil
}

// receive is the store subscriber. Version 0 comes from a direct call
// through Store.Current and is always rendered.
func (p *Provider) receive(snapshot flux.State, version uint64) {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return
	}
	if version != 0 {
		if version <= p.version {
			stale := version < p.version
			p.mu.Unlock()
			if stale {
				p.logger.Debug("stale snapshot dropped", "provider", p.id, "version", version)
			}
			return
		}
		p.version = version
	}
	p.queued, p.hasQueued = snapshot, true
	p.mu.Unlock()

	p.drain()
}

// Refresh re-renders the tree with the newest snapshot the provider holds.
// When another goroutine is rendering, the refresh is left to it and
// Refresh returns nil.
func (p *Provider) Refresh() error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	if !p.hasQueued {
		p.queued, p.hasQueued = p.snapshot, true
	}
	p.mu.Unlock()

	if !p.drain() {
		return nil
	}
	return p.LastError()
}

// drain renders queued snapshots until none is left and reports whether
// this goroutine did the rendering. An update made from inside a render
// is queued and rendered afterwards instead of recursing.
func (p *Provider) drain() bool {
	p.mu.Lock()
	if p.rendering {
		p.mu.Unlock()
		return false
	}
	p.rendering = true
	p.mu.Unlock()

	done := false
	defer func() {
		if !done {
			p.mu.Lock()
			p.rendering = false
			p.mu.Unlock()
		}
	}()

	for {
		p.mu.Lock()
		if !p.hasQueued || p.disposed {
			p.queued, p.hasQueued = nil, false
			p.rendering = false
			done = true
			p.mu.Unlock()
			return true
		}
		snapshot := p.queued
		p.queued, p.hasQueued = nil, false
		p.mu.Unlock()

		if err := p.render(snapshot); err != nil && !errors.Is(err, ErrDisposed) {
			p.logger.Error("render failed", "provider", p.id, "error", err)
		}
	}
}

// render must not run concurrently with itself: NewProvider calls it before
// subscribing and drain serializes the rest.
func (p *Provider) render(snapshot flux.State) error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return ErrDisposed
	}
	previous := p.pending
	p.pending = nil
	p.snapshot = snapshot
	p.mu.Unlock()

	if previous != nil {
		if err := runCleanups(previous.take()); err != nil {
			p.logger.Warn("cleanup failed", "provider", p.id, "error", err)
		}
	}

	collected := &cleanups{}
	ctx := WithState(p.base, snapshot)
	ctx = context.WithValue(ctx, providerKey, p)
	ctx = context.WithValue(ctx, cleanupKey, collected)

	drawn := tree.NewTree(tree.NodeString(nameOf(p.root)))
	nodes, err := p.renderNode(ctx, p.root, drawn, 1)

	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		if cerr := runCleanups(collected.take()); cerr != nil {
			p.logger.Warn("cleanup failed", "provider", p.id, "error", cerr)
		}
		return ErrDisposed
	}
	p.renders++
	p.lastErr = err
	p.pending = collected
	if err == nil {
		p.drawn = drawn
	}
	renders := p.renders
	p.mu.Unlock()

	if err != nil {
		return err
	}

	p.logger.Debug("rendered", "provider", p.id, "render", renders, "components", nodes)
	return nil
}

func (p *Provider) renderNode(ctx context.Context, c Component, drawn *tree.Tree, depth int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if depth > p.maxDepth {
		return 0, fmt.Errorf("%w (%d)", ErrMaxDepth, p.maxDepth)
	}

	children, err := c.Render(ctx)
	if err != nil {
		return 0, fmt.Errorf("rendering %s: %w", nameOf(c), err)
	}

	count := 1
	for _, child := range children {
		if child == nil {
			continue
		}
		n, err := p.renderNode(ctx, child, drawn.AddChild(tree.NodeString(nameOf(child))), depth+1)
		if err != nil {
			return 0, err
		}
		count += n
	}
	return count, nil
}

// ID returns the provider's unique identifier
func (p *Provider) ID() string {
	return p.id
}

// Snapshot returns a copy of the state the tree was last rendered with
func (p *Provider) Snapshot() flux.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot.Clone()
}

// Renders returns how many render passes have run, including failed ones
func (p *Provider) Renders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

// LastError returns the error of the most recent render pass, if any
func (p *Provider) LastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastErr
}

// Tree draws the component tree of the last successful render
func (p *Provider) Tree() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn == nil {
		return ""
	}
	return p.drawn.String()
}

// Dispose unsubscribes from the store, if the provider is still its
// subscriber, and runs the cleanups registered during the last render.
// It is safe to call more than once.
func (p *Provider) Dispose() error {
	p.mu.Lock()
	if p.disposed {
		p.mu.Unlock()
		return nil
	}
	p.disposed = true
	pending := p.pending
	p.pending = nil
	p.mu.Unlock()

	if !p.unsubscribe() {
		p.logger.Debug("store subscriber already replaced", "provider", p.id)
	}
	p.logger.Debug("provider disposed", "provider", p.id)

	if pending == nil {
		return nil
	}
	return runCleanups(pending.take())
}

// runCleanups runs fns in reverse order and joins their errors
func runCleanups(fns []func() error) error {
	var errs []error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := fns[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
