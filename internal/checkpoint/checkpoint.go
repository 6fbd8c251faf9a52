// Package checkpoint implements C2, the durable typed decision-gate log
// described in SPEC_FULL.md §4.2. It is the only mechanism an agent has to
// seek human judgment, and it is a hard synchronization barrier: a pending
// Checkpoint blocks the orchestrator from proceeding past Step 0 of a
// session (see internal/orchestrator).
package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Kind identifies one of the eight checkpoint kinds in the catalogue
// (§4.2). New kinds are added by registering a new variant, never by
// modifying the switch over an existing one (§9).
type Kind string

const (
	KindProjectVerification Kind = "project_verification"
	KindSpecToIssues        Kind = "spec_to_issues"
	KindIssueEnrichment     Kind = "issue_enrichment"
	KindIssueSelection      Kind = "issue_selection"
	KindIssueClosure        Kind = "issue_closure"
	KindRegressionApproval  Kind = "regression_approval"
	KindMRPhaseTransition   Kind = "mr_phase_transition"
	KindMRReview            Kind = "mr_review"
)

// ScopeGlobal is the literal scope string used by global-scoped kinds.
const ScopeGlobal = "global"

// IssueScope formats an issue iid as a CheckpointLog scope key.
func IssueScope(iid int) string {
	return fmt.Sprintf("%d", iid)
}

// Status is a Checkpoint's position in the I2 transition diagram.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusModified Status = "modified"
	StatusRejected Status = "rejected"
)

// Checkpoint is a durable record of a pending or resolved decision gate
// (§3). Context and Modifications are kind-specific JSON payloads; decode
// them with json.Unmarshal into the Context or Modifications struct of
// Kind (e.g. IssueSelectionContext) to interpret them.
type Checkpoint struct {
	CheckpointID string          `json:"checkpoint_id"`
	Kind         Kind            `json:"kind"`
	Scope        string          `json:"scope"`
	Context      json.RawMessage `json:"context"`
	CreatedAt    time.Time       `json:"created_at"`

	Status        Status          `json:"status"`
	Modifications json.RawMessage `json:"modifications,omitempty"`
	HumanNotes    string          `json:"human_notes,omitempty"`

	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// IsPendingOpen reports whether this checkpoint is the kind of "pending and
// not yet completed" record I1 limits to one-per-scope.
func (c *Checkpoint) IsPendingOpen() bool {
	return c.Status == StatusPending && !c.Completed
}

// Log is a mapping from scope to an ordered, append-only list of
// Checkpoints (§3's CheckpointLog). The log is the single source of truth
// for gate state; JSON-encoded as the on-disk representation.
type Log struct {
	Scopes map[string][]Checkpoint `json:"scopes"`
}

// NewLog returns an empty CheckpointLog.
func NewLog() *Log {
	return &Log{Scopes: make(map[string][]Checkpoint)}
}

// Errors returned by Log operations, matching §4.2's "Fails when" column.
var (
	// ErrPendingExists is returned by Create when scope already has an
	// open pending checkpoint (I1).
	ErrPendingExists = errors.New("a pending checkpoint already exists in this scope")

	// ErrCheckpointNotFound is returned by Resolve/Complete for an unknown id.
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrNotPending is returned by Resolve when the checkpoint's current
	// status is not pending.
	ErrNotPending = errors.New("checkpoint is not pending")

	// ErrAlreadyCompleted is returned by Complete for an already-completed checkpoint.
	ErrAlreadyCompleted = errors.New("checkpoint already completed")

	// ErrStillPending is returned by Complete when status is still pending
	// (a checkpoint must be resolved before it can be completed, I2).
	ErrStillPending = errors.New("checkpoint is still pending; resolve before completing")

	// ErrModificationsWithoutModifiedVerdict is returned by Resolve when
	// modifications are supplied but verdict != modified.
	ErrModificationsWithoutModifiedVerdict = errors.New("modifications supplied but verdict is not \"modified\"")

	// ErrUnknownKind is returned when an operation references a Kind with
	// no registered handler (§9's exhaustive handler registry).
	ErrUnknownKind = errors.New("unknown checkpoint kind")
)

// openPendingInScope returns the open pending checkpoint in scope, if any (I1).
func (l *Log) openPendingInScope(scope string) *Checkpoint {
	entries := l.Scopes[scope]
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].IsPendingOpen() {
			return &entries[i]
		}
	}
	return nil
}

// Create appends a new pending Checkpoint under scope and returns its id.
// Fails with ErrPendingExists if scope already has an open pending
// checkpoint of any kind (I1).
func (l *Log) Create(id string, kind Kind, scope string, context json.RawMessage, now time.Time) (*Checkpoint, error) {
	if _, ok := Lookup(kind); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownKind, kind)
	}
	if existing := l.openPendingInScope(scope); existing != nil {
		return nil, fmt.Errorf("%w: scope %s already has pending checkpoint %s", ErrPendingExists, scope, existing.CheckpointID)
	}

	cp := Checkpoint{
		CheckpointID: id,
		Kind:         kind,
		Scope:        scope,
		Context:      context,
		CreatedAt:    now,
		Status:       StatusPending,
	}
	if l.Scopes == nil {
		l.Scopes = make(map[string][]Checkpoint)
	}
	l.Scopes[scope] = append(l.Scopes[scope], cp)
	return &l.Scopes[scope][len(l.Scopes[scope])-1], nil
}

// LoadPending returns the newest pending, uncompleted Checkpoint, either
// globally (scope == nil) or restricted to *scope.
func (l *Log) LoadPending(scope *string) *Checkpoint {
	var best *Checkpoint
	for key, entries := range l.Scopes {
		if scope != nil && key != *scope {
			continue
		}
		for i := len(entries) - 1; i >= 0; i-- {
			if entries[i].IsPendingOpen() {
				cand := &entries[i]
				if best == nil || cand.CreatedAt.After(best.CreatedAt) {
					best = cand
				}
				break // newest per-scope only; older entries in this scope can't also be open per I1
			}
		}
	}
	return best
}

// LatestOfKind returns the most recently created Checkpoint matching kind,
// regardless of status, across all scopes.
func (l *Log) LatestOfKind(kind Kind) *Checkpoint {
	var best *Checkpoint
	for key := range l.Scopes {
		entries := l.Scopes[key]
		for i := range entries {
			if entries[i].Kind != kind {
				continue
			}
			cand := &entries[i]
			if best == nil || cand.CreatedAt.After(best.CreatedAt) {
				best = cand
			}
		}
	}
	return best
}

// find locates a checkpoint by id, returning its scope key and index.
func (l *Log) find(id string) (scope string, idx int, ok bool) {
	for key, entries := range l.Scopes {
		for i := range entries {
			if entries[i].CheckpointID == id {
				return key, i, true
			}
		}
	}
	return "", 0, false
}

// Resolve mutates the checkpoint's status/modifications/human_notes per
// I2's pending->{approved,modified,rejected} transition. verdict must be
// one of StatusApproved/StatusModified/StatusRejected.
func (l *Log) Resolve(id string, verdict Status, modifications json.RawMessage, humanNotes string) (*Checkpoint, error) {
	if verdict != StatusApproved && verdict != StatusModified && verdict != StatusRejected {
		return nil, fmt.Errorf("invalid verdict %q", verdict)
	}
	if modifications != nil && verdict != StatusModified {
		return nil, ErrModificationsWithoutModifiedVerdict
	}

	scope, idx, ok := l.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}
	cp := &l.Scopes[scope][idx]
	if cp.Status != StatusPending {
		return nil, fmt.Errorf("%w: checkpoint %s has status %s", ErrNotPending, id, cp.Status)
	}

	spec, ok := Lookup(cp.Kind)
	if ok && modifications != nil {
		if err := spec.ValidateModifications(modifications); err != nil {
			return nil, fmt.Errorf("invalid modifications for kind %s: %w", cp.Kind, err)
		}
	}
	if ok && verdict == StatusApproved {
		if validator, ok := spec.(ApprovalValidator); ok {
			if err := validator.ValidateApproval(modifications); err != nil {
				return nil, fmt.Errorf("invalid approval for kind %s: %w", cp.Kind, err)
			}
		}
	}

	cp.Status = verdict
	cp.Modifications = modifications
	cp.HumanNotes = humanNotes
	return cp, nil
}

// Complete marks a resolved checkpoint as acted-upon (I3): completed=true,
// completed_at stamped. Fails if the checkpoint is still pending or already
// completed.
func (l *Log) Complete(id string, now time.Time) (*Checkpoint, error) {
	scope, idx, ok := l.find(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, id)
	}
	cp := &l.Scopes[scope][idx]
	if cp.Status == StatusPending {
		return nil, ErrStillPending
	}
	if cp.Completed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyCompleted, id)
	}
	cp.Completed = true
	completedAt := now
	cp.CompletedAt = &completedAt
	return cp, nil
}

// All returns every checkpoint in the log across all scopes, for auditing
// and tests. Order across scopes is unspecified; order within a scope is
// append order.
func (l *Log) All() []Checkpoint {
	var all []Checkpoint
	for _, entries := range l.Scopes {
		all = append(all, entries...)
	}
	return all
}
