package flux

import (
	"fmt"
	"sort"
	"sync"
)

// Store owns one state container and one subscriber slot.
//
// A single mutex covers both, so initialize, merge, register and current
// are atomic per call even when the store is shared between goroutines.
// The subscriber is always invoked with the lock released.
type Store struct {
	mu         sync.Mutex
	container  Container
	channel    Channel
	extensions []Extension
	disposed   bool

	// version counts state changes: every Initialize and every Update
	version uint64

	initial    State
	hasInitial bool
}

// StoreOption is a modifier for stores
type StoreOption func(*Store)

// WithInitialState returns an option that initializes the store at construction.
// It is applied after every other option, so extensions see OnInitialize.
func WithInitialState(initial State) StoreOption {
	return func(s *Store) {
		s.initial = initial
		s.hasInitial = true
	}
}

// WithExtension returns an option that registers an extension to a store
func WithExtension(ext Extension) StoreOption {
	return func(s *Store) {
		if err := s.UseExtension(ext); err != nil {
			panic(err)
		}
	}
}

// NewStore creates a new store with optional configuration
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		extensions: []Extension{},
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.hasInitial {
		_ = s.Initialize(s.initial)
		s.initial = nil
	}

	return s
}

// Initialize replaces the entire state with a shallow copy of initial.
// A nil initial yields an empty state.
func (s *Store) Initialize(initial State) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return s.fail(OpInitialize, "", ErrStoreDisposed)
	}
	s.container.Initialize(initial)
	s.version++
	exts := s.snapshotExtensions()
	var state State
	if len(exts) > 0 {
		state = s.container.state.Clone()
	}
	s.mu.Unlock()

	for _, ext := range exts {
		ext.OnInitialize(state)
	}
	return nil
}

// Initialized reports whether the state has been initialized
func (s *Store) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.container.Initialized()
}

// Read returns a shallow copy of the current state
func (s *Store) Read() (State, error) {
	s.mu.Lock()
	state, err := s.container.Read()
	if err != nil {
		s.mu.Unlock()
		return nil, s.fail(OpRead, "", err)
	}
	snapshot := state.Clone()
	s.mu.Unlock()
	return snapshot, nil
}

// ReadVersion is Read that also returns the version of the copy. The
// version grows by one on every Initialize and every Update.
func (s *Store) ReadVersion() (State, uint64, error) {
	s.mu.Lock()
	state, err := s.container.Read()
	if err != nil {
		s.mu.Unlock()
		return nil, 0, s.fail(OpRead, "", err)
	}
	snapshot, version := state.Clone(), s.version
	s.mu.Unlock()
	return snapshot, version, nil
}

// Peek returns a copy of the state without reporting errors. ok is false
// when the store has not been initialized.
func (s *Store) Peek() (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := s.container.Read()
	if err != nil {
		return nil, false
	}
	return state.Clone(), true
}

// MergeOne writes a single key without notifying the subscriber.
// Application code should go through Update instead.
func (s *Store) MergeOne(key string, value any) error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return s.fail(OpMerge, key, ErrStoreDisposed)
	}
	err := s.container.MergeOne(key, value)
	s.mu.Unlock()
	if err != nil {
		return s.fail(OpMerge, key, err)
	}
	return nil
}

// Register sets the single subscriber, replacing any previous one.
// Registering nil leaves the store without a subscriber. Register on a
// disposed store does nothing.
func (s *Store) Register(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed {
		return
	}
	s.channel.Register(sub)
}

// Subscribe fills the subscriber slot like Register, but fn also receives
// the version of each snapshot. Notifications delivered on different
// goroutines can arrive out of order; the version tells them apart.
//
// The returned function empties the slot only while fn is still the
// registered subscriber and reports whether it did.
func (s *Store) Subscribe(fn func(snapshot State, version uint64)) (unsubscribe func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disposed || fn == nil {
		return func() bool { return false }
	}
	token := s.channel.registerVersioned(fn)

	return func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.channel.owns(token) {
			return false
		}
		s.channel.Register(nil)
		return true
	}
}

// Current returns the registered subscriber, if any
func (s *Store) Current() (Subscriber, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channel.Current()
}

// UseExtension registers an extension to the store
func (s *Store) UseExtension(ext Extension) error {
	s.mu.Lock()
	s.extensions = append(s.extensions, ext)
	sort.SliceStable(s.extensions, func(i, j int) bool {
		return s.extensions[i].Order() < s.extensions[j].Order()
	})
	s.mu.Unlock()

	return ext.Init(s)
}

// Dispose clears the subscriber and disposes all extensions. Every later
// mutation fails with ErrStoreDisposed; Read keeps working.
func (s *Store) Dispose() error {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return nil
	}
	s.disposed = true
	s.channel.Register(nil)
	exts := s.snapshotExtensions()
	s.mu.Unlock()

	for _, ext := range exts {
		if err := ext.Dispose(s); err != nil {
			return fmt.Errorf("disposing extension %s: %w", ext.Name(), err)
		}
	}

	return nil
}

// snapshotExtensions must be called with s.mu held
func (s *Store) snapshotExtensions() []Extension {
	if len(s.extensions) == 0 {
		return nil
	}
	exts := make([]Extension, len(s.extensions))
	copy(exts, s.extensions)
	return exts
}

// fail wraps err and reports it to extensions. s.mu must not be held.
func (s *Store) fail(kind OperationKind, key string, err error) error {
	opErr := &OperationError{Op: kind, Key: key, Err: err}

	s.mu.Lock()
	exts := s.snapshotExtensions()
	s.mu.Unlock()

	op := &Operation{Kind: kind, Key: key, Store: s}
	for _, ext := range exts {
		ext.OnError(opErr, op, s)
	}
	return opErr
}
