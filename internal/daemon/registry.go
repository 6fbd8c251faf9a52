// Package daemon implements C4: a registry of AgentRecords, one goroutine
// per running agent, and a local socket accepting client commands
// (SPEC_FULL.md §4.4). It owns the only mutable, process-wide state in the
// harness; everything else is per-SpecRun durable state owned by C1.
package daemon

import (
	"fmt"
	"sync"
	"syscall"
	"time"

	"github.com/speckit/harness/internal/orchestrator"
	"github.com/speckit/harness/internal/store"
)

// Status is an AgentRecord's position in its lifecycle (§3).
type Status string

const (
	StatusIdle              Status = "idle"
	StatusRunning           Status = "running"
	StatusWaitingCheckpoint Status = "waiting_checkpoint"
	StatusStopped           Status = "stopped"
	StatusFailed            Status = "failed"
)

// ModeFlags bundles the WorkspaceInfo-level feature toggles an AgentRecord
// was started with, so the registry can report them back without a client
// re-reading the workspace (§3's `mode_flags`).
type ModeFlags struct {
	FileOnlyMode          bool `json:"file_only_mode"`
	SkipMRCreation        bool `json:"skip_mr_creation"`
	SkipPuppeteer         bool `json:"skip_puppeteer"`
	SkipTestSuite         bool `json:"skip_test_suite"`
	SkipRegressionTesting bool `json:"skip_regression_testing"`
	PTYMode               bool `json:"pty_mode"`
}

// AgentRecord is the daemon-owned record of one agent (§3).
type AgentRecord struct {
	AgentID       int64              `json:"agent_id"`
	SpecSlug      string             `json:"spec_slug"`
	SpecHash      string             `json:"spec_hash"`
	ProjectDir    string             `json:"project_dir"`
	FeatureBranch string             `json:"feature_branch"`
	TargetBranch  string             `json:"target_branch"`
	AutoAccept    bool               `json:"auto_accept"`
	ModeFlags     ModeFlags          `json:"mode_flags"`
	LogPath       string             `json:"log_path,omitempty"`
	PID           int                `json:"pid,omitempty"`
	Status        Status             `json:"status"`
	Phase         orchestrator.Phase `json:"phase"`
	LastEventAt   time.Time          `json:"last_event_at"`
	LastError     string             `json:"last_error,omitempty"`
}

// Running reports whether this record is running or parked at
// waiting_checkpoint; the `remove` command's "refuses if the agent is
// running" rule (§4.4) treats both as running.
func (a *AgentRecord) Running() bool {
	return a.Status == StatusRunning || a.Status == StatusWaitingCheckpoint
}

// registryFile is the on-disk shape of the whole registry (§4.4's
// "atomically write the whole registry to a daemon-scoped store").
type registryFile struct {
	NextID  int64                   `json:"next_id"`
	Records map[int64]*AgentRecord `json:"records"`
}

// Registry is the daemon's in-memory, disk-backed table of AgentRecords.
// Every mutation holds mu only for the duration of one record's
// read-modify-write (§5's shared-resource policy), then releases it before
// any blocking I/O beyond the registry file write itself.
type Registry struct {
	mu   sync.Mutex
	path string
	data registryFile
}

// OpenRegistry loads the registry at path, creating an empty one if absent,
// and performs startup reconciliation: any running agent whose pid is 0 or
// no longer live is marked stopped. Records in any other status, including
// waiting_checkpoint, are left as they are.
func OpenRegistry(path string) (*Registry, error) {
	r := &Registry{path: path, data: registryFile{Records: make(map[int64]*AgentRecord)}}

	if err := store.ReadJSON(path, &r.data); err != nil {
		if err != store.ErrNotFound {
			return nil, fmt.Errorf("load registry %s: %w", path, err)
		}
		r.data = registryFile{Records: make(map[int64]*AgentRecord)}
	}
	if r.data.Records == nil {
		r.data.Records = make(map[int64]*AgentRecord)
	}

	changed := false
	for _, rec := range r.data.Records {
		// Only StatusRunning implies a live subprocess; waiting_checkpoint
		// is a stable resting state with no subprocess (pid already
		// cleared) and must survive a daemon restart untouched.
		if rec.Status != StatusRunning {
			continue
		}
		if rec.PID == 0 || !pidLive(rec.PID) {
			rec.Status = StatusStopped
			rec.PID = 0
			changed = true
		}
	}
	if changed {
		if err := r.save(); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) save() error {
	return store.AtomicWriteJSON(r.path, &r.data)
}

// Create assigns a new monotonic agent_id, stores rec under it, persists
// the registry, and returns the stored copy.
func (r *Registry) Create(rec AgentRecord) (AgentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.data.NextID++
	rec.AgentID = r.data.NextID
	r.data.Records[rec.AgentID] = &rec
	if err := r.save(); err != nil {
		return AgentRecord{}, err
	}
	return rec, nil
}

// Get returns a copy of the record for agentID, if present.
func (r *Registry) Get(agentID int64) (AgentRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.data.Records[agentID]
	if !ok {
		return AgentRecord{}, false
	}
	return *rec, true
}

// List returns a copy of every AgentRecord currently known.
func (r *Registry) List() []AgentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]AgentRecord, 0, len(r.data.Records))
	for _, rec := range r.data.Records {
		out = append(out, *rec)
	}
	return out
}

// Update applies mutate to agentID's record and persists the result. The
// mutation runs while mu is held, matching §5's "registry mutex only for
// the duration of a single record mutation."
func (r *Registry) Update(agentID int64, mutate func(*AgentRecord)) (AgentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.data.Records[agentID]
	if !ok {
		return AgentRecord{}, fmt.Errorf("%w: %d", ErrAgentNotFound, agentID)
	}
	mutate(rec)
	if err := r.save(); err != nil {
		return AgentRecord{}, err
	}
	return *rec, nil
}

// Delete removes agentID's record, refusing if it is currently running
// (§4.4's `remove` semantics).
func (r *Registry) Delete(agentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.data.Records[agentID]
	if !ok {
		return fmt.Errorf("%w: %d", ErrAgentNotFound, agentID)
	}
	if rec.Running() {
		return fmt.Errorf("%w: %d", ErrAgentRunning, agentID)
	}
	delete(r.data.Records, agentID)
	return r.save()
}

// pidLive reports whether pid refers to a live process, using the
// conventional unix zero-signal probe.
func pidLive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil
}
