package binding

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	flux "github.com/pumped-fn/pumped-flux"
)

var countKey = flux.NewKey[int]("count")

// recorder renders as a leaf and remembers every count it saw
type recorder struct {
	seen []int
}

func (r *recorder) Name() string { return "recorder" }

func (r *recorder) Render(ctx context.Context) ([]Component, error) {
	n, _ := Select(ctx, countKey)
	r.seen = append(r.seen, n)
	return nil, nil
}

func TestNewProvider_InitializesAndRenders(t *testing.T) {
	store := flux.NewStore()
	rec := &recorder{}

	p, err := NewProvider(store, flux.State{"count": 0}, Group("app", rec))
	require.NoError(t, err)
	defer p.Dispose()

	assert.True(t, store.Initialized())
	assert.Equal(t, 1, p.Renders())
	assert.Equal(t, []int{0}, rec.seen)
	assert.Equal(t, flux.State{"count": 0}, p.Snapshot())
	assert.NotEmpty(t, p.ID())

	_, ok := store.Current()
	assert.True(t, ok, "provider should be registered as subscriber")
}

func TestNewProvider_NilInitial(t *testing.T) {
	store := flux.NewStore()

	p, err := NewProvider(store, nil, Group("app"))
	require.NoError(t, err)

	assert.Equal(t, flux.State{}, p.Snapshot())
}

func TestNewProvider_InvalidArguments(t *testing.T) {
	_, err := NewProvider(nil, nil, Group("app"))
	assert.ErrorIs(t, err, ErrNilStore)

	_, err = NewProvider(flux.NewStore(), nil, nil)
	assert.ErrorIs(t, err, ErrNilRoot)
}

func TestProvider_RerendersOnUpdate(t *testing.T) {
	store := flux.NewStore()
	rec := &recorder{}

	p, err := NewProvider(store, flux.State{"count": 0}, Group("app", rec))
	require.NoError(t, err)

	require.NoError(t, store.Update(countKey.Changes(1)))
	require.NoError(t, store.Update(flux.State{"name": "x"}))

	assert.Equal(t, []int{0, 1, 1}, rec.seen)
	assert.Equal(t, 3, p.Renders())
	assert.Equal(t, flux.State{"count": 1, "name": "x"}, p.Snapshot())
}

func TestProvider_ConsumersReadContext(t *testing.T) {
	store := flux.NewStore()

	var fromCtx flux.State
	var provider *Provider
	consumer := Leaf("consumer", func(ctx context.Context) error {
		fromCtx, _ = StateFrom(ctx)
		provider, _ = ProviderFrom(ctx)
		return nil
	})

	p, err := NewProvider(store, flux.State{"a": 1}, Group("root", Group("mid", consumer)))
	require.NoError(t, err)

	require.NoError(t, store.Update(flux.State{"b": 2}))

	assert.Equal(t, flux.State{"a": 1, "b": 2}, fromCtx)
	assert.Same(t, p, provider)
}

func TestProvider_ReplacedSubscriberStopsRendering(t *testing.T) {
	store := flux.NewStore()

	p, err := NewProvider(store, flux.State{}, Group("app"))
	require.NoError(t, err)

	store.Register(func(flux.State) {})
	require.NoError(t, store.Update(flux.State{"a": 1}))

	assert.Equal(t, 1, p.Renders())
}

func TestProvider_RenderError(t *testing.T) {
	boom := errors.New("boom")
	store := flux.NewStore()

	failing := Leaf("failing", func(ctx context.Context) error {
		if n, _ := Select(ctx, countKey); n > 0 {
			return boom
		}
		return nil
	})

	p, err := NewProvider(store, flux.State{"count": 0}, failing)
	require.NoError(t, err)
	before := p.Tree()

	// render errors stay inside the provider
	require.NoError(t, store.Update(countKey.Changes(1)))

	assert.ErrorIs(t, p.LastError(), boom)
	assert.Equal(t, 2, p.Renders())
	assert.Equal(t, before, p.Tree(), "tree keeps the last successful render")

	require.NoError(t, store.Update(countKey.Changes(0)))
	assert.NoError(t, p.LastError())
}

func TestNewProvider_InitialRenderError(t *testing.T) {
	boom := errors.New("boom")
	store := flux.NewStore()

	cleaned := false
	root := Leaf("root", func(ctx context.Context) error {
		OnCleanup(ctx, func() error {
			cleaned = true
			return nil
		})
		return boom
	})

	_, err := NewProvider(store, nil, root)
	require.ErrorIs(t, err, boom)

	assert.True(t, cleaned, "cleanups from a failed initial render run")
	_, ok := store.Current()
	assert.False(t, ok, "failed provider must not subscribe")
}

func TestProvider_Cleanups(t *testing.T) {
	store := flux.NewStore()

	var order []string
	resource := Leaf("resource", func(ctx context.Context) error {
		n, _ := Select(ctx, countKey)
		OnCleanup(ctx, func() error {
			order = append(order, "first")
			return nil
		})
		OnCleanup(ctx, func() error {
			order = append(order, "second")
			if n == 1 {
				return errors.New("close failed")
			}
			return nil
		})
		return nil
	})

	p, err := NewProvider(store, flux.State{"count": 0}, resource)
	require.NoError(t, err)
	assert.Empty(t, order)

	require.NoError(t, store.Update(countKey.Changes(1)))
	assert.Equal(t, []string{"second", "first"}, order)

	order = nil
	err = p.Dispose()
	assert.EqualError(t, err, "close failed")
	assert.Equal(t, []string{"second", "first"}, order)

	assert.NoError(t, p.Dispose())
}

func TestProvider_Dispose(t *testing.T) {
	store := flux.NewStore()
	rec := &recorder{}

	p, err := NewProvider(store, flux.State{"count": 0}, rec)
	require.NoError(t, err)

	require.NoError(t, p.Dispose())

	_, ok := store.Current()
	assert.False(t, ok)

	require.NoError(t, store.Update(countKey.Changes(5)))
	assert.Equal(t, []int{0}, rec.seen)
	assert.ErrorIs(t, p.Refresh(), ErrDisposed)
}

func TestProvider_DisposeKeepsNewerSubscriber(t *testing.T) {
	store := flux.NewStore()

	p, err := NewProvider(store, nil, Group("app"))
	require.NoError(t, err)

	calls := 0
	store.Register(func(flux.State) { calls++ })

	require.NoError(t, p.Dispose())

	_, ok := store.Current()
	require.True(t, ok, "dispose must not clear a subscriber registered after the provider")

	require.NoError(t, store.Update(flux.State{"a": 1}))
	assert.Equal(t, 1, calls)
}

func TestProvider_OverlappingUpdates(t *testing.T) {
	store := flux.NewStore()

	entered := make(chan struct{})
	release := make(chan struct{})
	var seen []int
	cleaned := 0

	view := Leaf("view", func(ctx context.Context) error {
		n, _ := Select(ctx, countKey)
		seen = append(seen, n)
		OnCleanup(ctx, func() error {
			cleaned++
			return nil
		})
		if n == 1 {
			close(entered)
			<-release
		}
		return nil
	})

	p, err := NewProvider(store, flux.State{"count": 0}, view)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, store.Update(countKey.Changes(1)))
	}()

	<-entered
	require.NoError(t, store.Update(countKey.Changes(2)))
	close(release)
	wg.Wait()

	assert.Equal(t, []int{0, 1, 2}, seen)
	assert.Equal(t, flux.State{"count": 2}, p.Snapshot())
	assert.Equal(t, 3, p.Renders())

	require.NoError(t, p.Dispose())
	assert.Equal(t, 3, cleaned, "every render's cleanups run exactly once")
}

func TestProvider_StaleSnapshotDropped(t *testing.T) {
	store := flux.NewStore()
	rec := &recorder{}

	p, err := NewProvider(store, flux.State{"count": 0}, rec)
	require.NoError(t, err)

	require.NoError(t, store.Update(countKey.Changes(2)))
	_, version, err := store.ReadVersion()
	require.NoError(t, err)

	p.receive(flux.State{"count": 1}, version-1)

	assert.Equal(t, []int{0, 2}, rec.seen)
	assert.Equal(t, flux.State{"count": 2}, p.Snapshot())
}

func TestProvider_UpdateDuringRender(t *testing.T) {
	store := flux.NewStore()
	rec := &recorder{}

	bump := Leaf("bump", func(ctx context.Context) error {
		if n, _ := Select(ctx, countKey); n == 1 {
			return store.Update(countKey.Changes(2))
		}
		return nil
	})

	p, err := NewProvider(store, flux.State{"count": 0}, Group("app", bump, rec))
	require.NoError(t, err)

	require.NoError(t, store.Update(countKey.Changes(1)))

	assert.Equal(t, []int{0, 1, 2}, rec.seen)
	assert.Equal(t, 3, p.Renders())
	assert.NoError(t, p.LastError())
}

func TestProvider_MaxDepth(t *testing.T) {
	var loop Component
	loop = ComponentFunc(func(ctx context.Context) ([]Component, error) {
		return []Component{loop}, nil
	})

	_, err := NewProvider(flux.NewStore(), nil, loop, WithMaxDepth(8))
	assert.ErrorIs(t, err, ErrMaxDepth)
}

func TestProvider_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := flux.NewStore()

	p, err := NewProvider(store, nil, Group("app"), WithContext(ctx))
	require.NoError(t, err)

	cancel()
	require.NoError(t, store.Update(flux.State{"a": 1}))

	assert.ErrorIs(t, p.LastError(), context.Canceled)
}

func TestProvider_Tree(t *testing.T) {
	store := flux.NewStore()

	p, err := NewProvider(store, nil, Group("app",
		Group("header", Leaf("title", func(context.Context) error { return nil })),
		Leaf("body", func(context.Context) error { return nil }),
	))
	require.NoError(t, err)

	drawn := p.Tree()
	for _, name := range []string{"app", "header", "title", "body"} {
		assert.Contains(t, drawn, name)
	}
}

func TestOnCleanup_OutsideRender(t *testing.T) {
	assert.False(t, OnCleanup(context.Background(), func() error { return nil }))
}
