// Package binding connects a flux.Store to a tree of components.
//
// A Provider initializes the store, registers itself as the store's only
// subscriber and re-renders its component tree with every snapshot the
// store hands it. Descendants read the snapshot from the render context
// instead of holding a reference to the store:
//
//	countKey := flux.NewKey[int]("count")
//
//	label := binding.Leaf("label", func(ctx context.Context) error {
//	    n, _ := binding.Select(ctx, countKey)
//	    fmt.Println("count:", n)
//	    return nil
//	})
//
//	store := flux.NewStore()
//	p, err := binding.NewProvider(store, flux.State{"count": 0}, binding.Group("app", label))
//	defer p.Dispose()
//
//	store.Update(countKey.Changes(1)) // label renders again with count 1
//
// Components that hold resources register them with OnCleanup; they are
// released before the next render and on Dispose.
package binding
