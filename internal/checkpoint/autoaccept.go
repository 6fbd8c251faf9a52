package checkpoint

import (
	"fmt"
)

// AutoResolve applies a kind's registered auto-verdict to a pending
// checkpoint and immediately resolves it, per §4.2's auto-accept mode:
// "Auto-resolution must still be persisted to the log (so completion
// follows normally and audit is preserved)."
func AutoResolve(l *Log, checkpointID string) (*Checkpoint, error) {
	scope, idx, ok := l.find(checkpointID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, checkpointID)
	}
	cp := &l.Scopes[scope][idx]

	spec, ok := Lookup(cp.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, cp.Kind)
	}

	verdict, modifications, err := spec.AutoVerdict(cp.Context)
	if err != nil {
		return nil, fmt.Errorf("auto-verdict for %s: %w", cp.Kind, err)
	}

	return l.Resolve(checkpointID, verdict, modifications, "auto-accepted")
}
