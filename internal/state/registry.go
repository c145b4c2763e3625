package state

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Registry owns the open snapshots of an application, keyed by display name.
// It is safe for concurrent use; each snapshot does its own locking.
type Registry struct {
	snapshots map[string]*Snapshot
	opts      []Option
	mu        sync.RWMutex
	openMu    sync.Mutex // serializes OpenOnce
}

// NewRegistry returns an empty registry. opts are applied to every snapshot
// it opens.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		snapshots: make(map[string]*Snapshot),
		opts:      opts,
	}
}

// Open snapshots the repository at path and registers it. It returns the key
// the snapshot was stored under.
func (r *Registry) Open(path string) (string, *Snapshot, error) {
	snap, err := Open(path, r.opts...)
	if err != nil {
		return "", nil, err
	}
	return r.Add(snap.Name(), snap), snap, nil
}

// OpenOnce is Open unless a snapshot of the same working tree is already
// registered, in which case it returns that one with created false.
// Concurrent calls for one path register a single snapshot.
func (r *Registry) OpenOnce(path string) (key string, snap *Snapshot, created bool, err error) {
	r.openMu.Lock()
	defer r.openMu.Unlock()

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, false, err
	}
	if key, snap, ok := r.lookupPath(abs); ok {
		return key, snap, false, nil
	}

	snap, err = Open(abs, r.opts...)
	if err != nil {
		return "", nil, false, err
	}
	// path may have been a subdirectory of an open working tree
	if key, existing, ok := r.lookupPath(snap.Path()); ok {
		snap.Close()
		return key, existing, false, nil
	}
	return r.Add(snap.Name(), snap), snap, true, nil
}

func (r *Registry) lookupPath(path string) (string, *Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for key, s := range r.snapshots {
		if s.Path() == path {
			return key, s, true
		}
	}
	return "", nil, false
}

// Add registers snap under name, appending "-2", "-3", ... if name is taken
// (two repositories with the same directory name). An already registered
// snapshot keeps its key.
func (r *Registry) Add(name string, snap *Snapshot) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, s := range r.snapshots {
		if s == snap {
			return key
		}
	}
	if name == "" {
		name = "repo"
	}
	key := name
	for i := 2; ; i++ {
		if _, taken := r.snapshots[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s-%d", name, i)
	}
	r.snapshots[key] = snap
	return key
}

func (r *Registry) Get(name string) (*Snapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.snapshots[name]
	return s, ok
}

// FindPath returns the key of the snapshot opened from path, if any.
func (r *Registry) FindPath(path string) (string, bool) {
	key, _, ok := r.lookupPath(path)
	return key, ok
}

// List returns the registered keys in order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.snapshots))
	for name := range r.snapshots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close unregisters and releases one snapshot.
func (r *Registry) Close(name string) error {
	r.mu.Lock()
	s, ok := r.snapshots[name]
	delete(r.snapshots, name)
	r.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrNotOpen, name)
	}
	s.Close()
	return nil
}

// CloseAll releases every snapshot.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	snaps := r.snapshots
	r.snapshots = make(map[string]*Snapshot)
	r.mu.Unlock()

	for _, s := range snaps {
		s.Close()
	}
}
