// Package flux provides a single-store, unidirectional state update utility for Go.
//
// # Overview
//
// Flux keeps data moving one way:
//
//  1. Store: owns one flat State map and one subscriber slot
//  2. Update: merges a change set into the State, one top-level key at a time
//  3. Subscriber: receives a snapshot of the full State after every Update
//
// The binding subpackage connects a Store to a tree of components and
// re-renders the tree whenever the subscriber fires.
//
// # Basic Usage
//
//	store := flux.NewStore()
//	store.Initialize(flux.State{"count": 0})
//
//	store.Register(func(snapshot flux.State) {
//	    fmt.Println("count is now", snapshot["count"])
//	})
//
//	store.Update(flux.State{"count": 1})   // prints "count is now 1"
//	store.Update(flux.State{"name": "x"})  // count stays 1, name is added
//
// # Merge Semantics
//
// Update is shallow and per-key. Keys absent from the change set keep their
// values; a nested map in the change set replaces the old value wholesale:
//
//	store.Initialize(flux.State{"user": map[string]any{"name": "a", "age": 3}})
//	store.Update(flux.State{"user": map[string]any{"name": "b"}})
//	// user is now {"name": "b"}; age is gone
//
// Initialize replaces the whole State, it never merges with the previous one.
//
// # Subscribers
//
// A store holds exactly one subscriber. Registering another silently
// replaces it, and registering nil clears it. Update without a subscriber
// still applies the merge and returns nil.
//
// Subscribers receive a copy of the State, so mutating the snapshot does not
// change the store.
//
// # Typed Keys
//
// Keys give a typed view of single entries:
//
//	countKey := flux.NewKey[int]("count")
//
//	count := flux.Accessor(store, countKey)
//	n, err := count.Get()
//	count.UpdateFunc(func(n int) int { return n + 1 })
//
// # Extensions
//
// Extensions observe initialize, update and error events:
//
//	store := flux.NewStore(
//	    flux.WithExtension(extensions.NewLoggingExtension(logger)),
//	)
//
// They run after the operation completes and cannot alter it.
//
// # Errors
//
// Reading or merging before Initialize fails with ErrUninitializedState,
// wrapped in an *OperationError naming the operation and key:
//
//	if errors.Is(err, flux.ErrUninitializedState) { ... }
//
// # Thread Safety
//
// A single mutex covers the State and the subscriber slot. The subscriber
// runs after the lock is released, so it may read the store. Calling
// Update from inside a subscriber recurses and is the caller's problem.
//
// Read-modify-write sequences go through UpdateWith (or a controller's
// UpdateFunc), which computes and merges under one lock:
//
//	store.UpdateWith(func(s flux.State) (flux.State, error) {
//	    n, _ := countKey.Get(s)
//	    return countKey.Changes(n + 1), nil
//	})
//
// Notifications from concurrent updates may reach the subscriber out of
// order. Subscribe passes the state version alongside each snapshot so a
// subscriber can drop stale ones.
package flux
