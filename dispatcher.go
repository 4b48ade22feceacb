package flux

// Update merges changes into the state one top-level key at a time and then
// hands the current subscriber a snapshot of the full state.
//
// Keys not named in changes are left untouched. Values are assigned as-is,
// so a nested map replaces the previous value instead of being merged into
// it. Each call notifies at most once, synchronously, after every key has
// been applied; an empty change set still notifies. Without a subscriber
// the merge still applies and Update returns nil.
//
// A subscriber that calls Update again before returning recurses without
// bound; the store does not guard against it.
func (s *Store) Update(changes State) error {
	s.mu.Lock()
	if err := s.writable(); err != nil {
		s.mu.Unlock()
		return s.fail(OpUpdate, "", err)
	}
	return s.commit(changes)
}

// UpdateWith computes changes from a copy of the current state and merges
// them without releasing the lock in between, so concurrent
// read-modify-write callers never lose each other's writes. It then
// notifies exactly like Update.
//
// fn runs with the store locked: it must not call back into the store.
// An error from fn is returned unchanged and nothing is merged.
func (s *Store) UpdateWith(fn func(current State) (State, error)) error {
	s.mu.Lock()
	if err := s.writable(); err != nil {
		s.mu.Unlock()
		return s.fail(OpUpdate, "", err)
	}

	changes, err := fn(s.container.state.Clone())
	if err != nil {
		s.mu.Unlock()
		return err
	}
	return s.commit(changes)
}

// writable must be called with s.mu held
func (s *Store) writable() error {
	if s.disposed {
		return ErrStoreDisposed
	}
	if !s.container.Initialized() {
		return ErrUninitializedState
	}
	return nil
}

// commit merges changes and notifies. It must be called with s.mu held and
// always releases it.
func (s *Store) commit(changes State) error {
	for key, value := range changes {
		if err := s.container.MergeOne(key, value); err != nil {
			s.mu.Unlock()
			return s.fail(OpUpdate, key, err)
		}
	}
	s.version++
	version := s.version

	notifyFn, notify := s.channel.notifier()
	var snapshot State
	if notify {
		snapshot = s.container.state.Clone()
	}
	exts := s.snapshotExtensions()
	var observed, changed State
	if len(exts) > 0 {
		observed = s.container.state.Clone()
		changed = changes.Clone()
	}
	s.mu.Unlock()

	if notify {
		notifyFn(snapshot, version)
	}

	for _, ext := range exts {
		ext.OnUpdate(changed, observed, notify)
	}
	return nil
}
