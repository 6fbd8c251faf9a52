package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/speckit/harness/internal/checkpoint"
	"github.com/speckit/harness/internal/integration/diffaudit"
	"github.com/speckit/harness/internal/logging"
	"github.com/speckit/harness/internal/orchestrator"
	"github.com/speckit/harness/internal/protocol"
	"github.com/speckit/harness/internal/store"
)

// Daemon is the process-wide C4 coordinator: one Registry, one
// PromptRenderer shared across every agent, one event bus, and one
// supervisor goroutine per currently-running agent.
type Daemon struct {
	Registry   *Registry
	Renderer   orchestrator.PromptRenderer
	GraceDelay time.Duration

	bus *eventBus

	mu     sync.Mutex
	agents map[int64]*agentHandle
}

type agentHandle struct {
	cancel context.CancelFunc
}

// NewDaemon returns a Daemon bound to reg, rendering sessions with
// renderer. Agents already marked running in reg (e.g. a freshly-opened
// registry, pre-reconciliation) are not auto-resumed; startup reconciles
// their status to stopped in OpenRegistry, and a client must
// explicitly `start` again.
func NewDaemon(reg *Registry, renderer orchestrator.PromptRenderer, graceDelay time.Duration) *Daemon {
	return &Daemon{
		Registry:   reg,
		Renderer:   renderer,
		GraceDelay: graceDelay,
		bus:        newEventBus(),
		agents:     make(map[int64]*agentHandle),
	}
}

// minAppSpecBytes is the smallest app_spec the initializer will act on
// (§8 boundary behavior).
const minAppSpecBytes = 50

// Start creates a new SpecRun workspace from args, registers an
// AgentRecord for it, and launches its supervisor goroutine (§4.4 `start`).
func (d *Daemon) Start(args protocol.StartArgs) (AgentRecord, error) {
	if args.ProjectDir == "" || args.SpecSlug == "" || args.SpecHash == "" {
		return AgentRecord{}, fmt.Errorf("project_dir, spec_slug, and spec_hash are required")
	}
	absRoot, err := filepath.Abs(args.ProjectDir)
	if err != nil {
		return AgentRecord{}, fmt.Errorf("resolve project dir: %w", err)
	}
	if info, err := os.Stat(absRoot); err != nil || !info.IsDir() {
		return AgentRecord{}, fmt.Errorf("project_dir %s is not a directory", absRoot)
	}
	if args.AppSpec != "" && len(args.AppSpec) < minAppSpecBytes {
		return AgentRecord{}, fmt.Errorf("%w: got %d bytes, want at least %d", ErrSpecTooSmall, len(args.AppSpec), minAppSpecBytes)
	}

	for _, existing := range d.Registry.List() {
		if existing.Running() && existing.ProjectDir == absRoot &&
			existing.SpecSlug == args.SpecSlug && existing.SpecHash == args.SpecHash {
			return AgentRecord{}, fmt.Errorf("%w: agent %d", ErrConflictingAgent, existing.AgentID)
		}
	}

	ws, err := store.Open(absRoot, args.SpecSlug, args.SpecHash)
	if err != nil {
		return AgentRecord{}, err
	}

	info := &store.WorkspaceInfo{
		SpecSlug:              args.SpecSlug,
		SpecHash:              args.SpecHash,
		FeatureBranch:         args.FeatureBranch,
		TargetBranch:          args.TargetBranch,
		AutoAccept:            args.AutoAccept,
		FileOnlyMode:          args.FileOnlyMode,
		SkipMRCreation:        args.SkipMRCreation,
		SkipPuppeteer:         args.SkipPuppeteer,
		SkipTestSuite:         args.SkipTestSuite,
		SkipRegressionTesting: args.SkipRegressionTesting,
		PTYMode:               args.PTYMode,
		CreatedAt:             time.Now().UTC(),
	}
	if err := ws.WriteWorkspaceInfo(info); err != nil {
		return AgentRecord{}, fmt.Errorf("write workspace info: %w", err)
	}
	if args.AppSpec != "" {
		if err := ws.WriteAppSpec([]byte(args.AppSpec)); err != nil {
			return AgentRecord{}, fmt.Errorf("write app spec: %w", err)
		}
	}

	rec := AgentRecord{
		SpecSlug:      args.SpecSlug,
		SpecHash:      args.SpecHash,
		ProjectDir:    absRoot,
		FeatureBranch: args.FeatureBranch,
		TargetBranch:  args.TargetBranch,
		AutoAccept:    args.AutoAccept,
		ModeFlags: ModeFlags{
			FileOnlyMode:          args.FileOnlyMode,
			SkipMRCreation:        args.SkipMRCreation,
			SkipPuppeteer:         args.SkipPuppeteer,
			SkipTestSuite:         args.SkipTestSuite,
			SkipRegressionTesting: args.SkipRegressionTesting,
			PTYMode:               args.PTYMode,
		},
		Status:      StatusRunning,
		Phase:       orchestrator.PhaseInitializer,
		LastEventAt: time.Now().UTC(),
	}
	rec, err = d.Registry.Create(rec)
	if err != nil {
		return AgentRecord{}, err
	}
	d.launch(rec.AgentID)
	return rec, nil
}

// Stop cancels agentID's running subprocess, if any (§4.4 `stop`). It is
// not an error to stop an agent that has nothing currently running; the
// supervisor, if any, observes the canceled context on its next check.
func (d *Daemon) Stop(agentID int64) error {
	d.mu.Lock()
	h, ok := d.agents[agentID]
	d.mu.Unlock()
	if !ok {
		if _, exists := d.Registry.Get(agentID); !exists {
			return fmt.Errorf("%w: %d", ErrAgentNotFound, agentID)
		}
		return nil
	}
	h.cancel()
	return nil
}

// Status returns agentID's current AgentRecord.
func (d *Daemon) Status(agentID int64) (AgentRecord, error) {
	rec, ok := d.Registry.Get(agentID)
	if !ok {
		return AgentRecord{}, fmt.Errorf("%w: %d", ErrAgentNotFound, agentID)
	}
	return rec, nil
}

// List returns every known AgentRecord.
func (d *Daemon) List() []AgentRecord {
	return d.Registry.List()
}

// Remove deletes agentID's record, refusing if it is currently running
// (§4.4 `remove`).
func (d *Daemon) Remove(agentID int64) error {
	return d.Registry.Delete(agentID)
}

// ResolveCheckpoint applies a human verdict to a pending checkpoint and, if
// the agent was parked at waiting_checkpoint, relaunches its supervisor so
// the next session picks up the resolution via Step 0 (§4.4
// `resolve_checkpoint`).
func (d *Daemon) ResolveCheckpoint(args protocol.ResolveCheckpointArgs) (*checkpoint.Checkpoint, error) {
	rec, ok := d.Registry.Get(args.AgentID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrAgentNotFound, args.AgentID)
	}
	ws, err := store.Open(rec.ProjectDir, rec.SpecSlug, rec.SpecHash)
	if err != nil {
		return nil, err
	}
	checkpoints := checkpoint.NewFileStore(ws)
	humanNotes := args.HumanNotes
	if checkpoint.Status(args.Verdict) == checkpoint.StatusModified && args.Modifications != nil {
		if original, getErr := checkpoints.Get(args.CheckpointID); getErr == nil {
			if modRaw, marshalErr := json.Marshal(args.Modifications); marshalErr == nil {
				if diffText, diffErr := diffaudit.Render(original.Context, modRaw); diffErr == nil {
					humanNotes = appendDiff(humanNotes, diffText)
				}
			}
		}
	}
	cp, err := checkpoints.Resolve(args.CheckpointID, checkpoint.Status(args.Verdict), args.Modifications, humanNotes)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	_, running := d.agents[args.AgentID]
	d.mu.Unlock()
	if !running && rec.Status == StatusWaitingCheckpoint {
		d.launch(args.AgentID)
	}
	return cp, nil
}

// Subscribe returns a channel of EventFrames for every agent's status
// transitions, and an unsubscribe func the caller must call when done
// (§4.4 `subscribe`).
func (d *Daemon) Subscribe() (<-chan protocol.EventFrame, func()) {
	return d.bus.Subscribe()
}

// appendDiff adds a rendered diff block to notes, keeping any human-typed
// notes first.
func appendDiff(notes, diffText string) string {
	if diffText == "" {
		return notes
	}
	if notes == "" {
		return "diff:\n" + diffText
	}
	return notes + "\n\ndiff:\n" + diffText
}

func (d *Daemon) launch(agentID int64) {
	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.agents[agentID] = &agentHandle{cancel: cancel}
	d.mu.Unlock()
	go d.superviseAgent(ctx, agentID)
}

func (d *Daemon) forgetAgent(agentID int64) {
	d.mu.Lock()
	delete(d.agents, agentID)
	d.mu.Unlock()
}

// updateAndPublish mutates agentID's record, persists it, and broadcasts
// the result as an EventFrame. Registry update failures are logged rather
// than propagated: the supervisor loop that calls this has no request to
// fail back to.
func (d *Daemon) updateAndPublish(agentID int64, event string, mutate func(*AgentRecord)) {
	rec, err := d.Registry.Update(agentID, func(a *AgentRecord) {
		mutate(a)
		a.LastEventAt = time.Now().UTC()
	})
	if err != nil {
		logging.Warn(context.Background(), "update agent record failed",
			"agent_id", agentID, "error", err.Error())
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		logging.Warn(context.Background(), "marshal agent event payload failed",
			"agent_id", agentID, "error", err.Error())
		return
	}
	d.bus.Publish(protocol.EventFrame{Event: event, AgentID: agentID, Payload: payload})
}
