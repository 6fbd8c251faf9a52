package checkpoint

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/speckit/harness/internal/paths"
	"github.com/speckit/harness/internal/store"
)

// FileStore binds the pure Log operations to a durable checkpoint_log file
// under a SpecRun directory (§4.1's layout). It serializes writers with an
// in-process mutex: §4.2 specifies the checkpoint log is single-writer per
// SpecRun in spirit (one running session writes create/complete, one UI
// writer at a time writes resolve); this mutex makes that true within one
// daemon process, and every write re-validates against the freshly loaded
// log so a second writer's stale view is rejected rather than silently
// clobbering the first (the "optimistic check on status" from §4.2).
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a FileStore bound to the checkpoint log of the given
// workspace Store.
func NewFileStore(ws *store.Store) *FileStore {
	return &FileStore{path: paths.CheckpointLogFile(ws.Dir())}
}

func (f *FileStore) load() (*Log, error) {
	var l Log
	err := store.ReadJSON(f.path, &l)
	if err == store.ErrNotFound {
		return NewLog(), nil
	}
	if err != nil {
		return nil, err
	}
	if l.Scopes == nil {
		l.Scopes = make(map[string][]Checkpoint)
	}
	return &l, nil
}

func (f *FileStore) save(l *Log) error {
	return store.AtomicWriteJSON(f.path, l)
}

// Create appends a new pending checkpoint and persists the log.
func (f *FileStore) Create(kind Kind, scope string, context any) (*Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.load()
	if err != nil {
		return nil, err
	}

	raw, err := marshalContext(context)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	cp, err := l.Create(id, kind, scope, raw, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := f.save(l); err != nil {
		return nil, err
	}
	result := *cp
	return &result, nil
}

// LoadPending returns the newest pending, uncompleted checkpoint (globally,
// or restricted to scope if non-nil). When the workspace's auto_accept is
// true, the returned checkpoint (if any) has already been auto-resolved
// and persisted (§4.2 auto-accept mode).
func (f *FileStore) LoadPending(scope *string, autoAccept bool) (*Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.load()
	if err != nil {
		return nil, err
	}

	cp := l.LoadPending(scope)
	if cp == nil {
		return nil, nil
	}
	if !autoAccept {
		result := *cp
		return &result, nil
	}

	resolved, err := AutoResolve(l, cp.CheckpointID)
	if err != nil {
		return nil, fmt.Errorf("auto-accept: %w", err)
	}
	if err := f.save(l); err != nil {
		return nil, err
	}
	result := *resolved
	return &result, nil
}

// LatestOfKind returns the most recent checkpoint of kind, across all scopes.
func (f *FileStore) LatestOfKind(kind Kind) (*Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.load()
	if err != nil {
		return nil, err
	}
	cp := l.LatestOfKind(kind)
	if cp == nil {
		return nil, nil
	}
	result := *cp
	return &result, nil
}

// Get returns the current state of the checkpoint with the given id,
// without mutating it. Used by callers (e.g. the daemon's diff-audit step)
// that need a checkpoint's original Context before calling Resolve.
func (f *FileStore) Get(id string) (*Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.load()
	if err != nil {
		return nil, err
	}
	scope, idx, ok := l.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}
	result := l.Scopes[scope][idx]
	return &result, nil
}

// Resolve applies a human verdict to a pending checkpoint and persists it.
func (f *FileStore) Resolve(id string, verdict Status, modifications any, humanNotes string) (*Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.load()
	if err != nil {
		return nil, err
	}

	raw, err := marshalContext(modifications)
	if err != nil {
		return nil, err
	}

	cp, err := l.Resolve(id, verdict, raw, humanNotes)
	if err != nil {
		return nil, err
	}
	if err := f.save(l); err != nil {
		return nil, err
	}
	result := *cp
	return &result, nil
}

// Complete marks a resolved checkpoint as acted-upon and persists it.
func (f *FileStore) Complete(id string) (*Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.load()
	if err != nil {
		return nil, err
	}
	cp, err := l.Complete(id, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	if err := f.save(l); err != nil {
		return nil, err
	}
	result := *cp
	return &result, nil
}

// All returns every checkpoint currently in the log, for audit/debug use.
func (f *FileStore) All() ([]Checkpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	l, err := f.load()
	if err != nil {
		return nil, err
	}
	return l.All(), nil
}
