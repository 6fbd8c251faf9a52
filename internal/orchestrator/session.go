package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/speckit/harness/internal/checkpoint"
	"github.com/speckit/harness/internal/logging"
	"github.com/speckit/harness/internal/store"
)

// ErrUnknownPhase is returned when a Phase value outside the four
// recognized phases reaches Next().
var ErrUnknownPhase = errors.New("unknown phase")

// ErrMilestoneRequired is returned when the mr phase is entered against a
// Milestone with zero issues (§8 boundary behavior: "Milestone with zero
// issues: MR phase refuses to run").
var ErrMilestoneRequired = errors.New("milestone has no issues; mr phase refuses to run")

// Outcome is the result of running exactly one session (one subprocess).
// The caller (a daemon supervisor) decides, from Outcome, whether to spawn
// another session, report the agent idle/failed, or leave it waiting.
type Outcome string

const (
	OutcomeWaitingCheckpoint Outcome = "waiting_checkpoint"
	OutcomePhaseAdvanced     Outcome = "phase_advanced"
	OutcomeDone              Outcome = "done"
	OutcomeFailed            Outcome = "failed"
	OutcomeStopped           Outcome = "stopped"
	OutcomeContinue          Outcome = "continue" // more sessions needed in the same phase
)

// SessionResult reports what one RunSession call observed.
type SessionResult struct {
	Outcome  Outcome
	Phase    Phase // the phase the agent is in after this session
	Err      error // set when Outcome == OutcomeFailed
	LogTail  string
	Events   []Event
}

// ResumptionHint carries the most recent un-completed Checkpoint's
// resolution, if any, so the rendered prompt can instruct the AI
// subprocess to skip directly to the kind's continuation step (§4.3 Step
// 0). Nil when there is no such checkpoint — the session starts the phase
// fresh.
type ResumptionHint struct {
	CheckpointID  string
	Kind          checkpoint.Kind
	Status        checkpoint.Status
	Context       json.RawMessage
	Modifications json.RawMessage
	HumanNotes    string
}

// PromptRenderer turns orchestrator state into a concrete subprocess
// invocation. The core never renders a prompt itself (Non-goal: "does not
// render terminal UI" extends to not owning prompt templates, §6);
// implementations live outside this package and are supplied by the
// caller.
type PromptRenderer interface {
	Render(phase Phase, ws *store.WorkspaceInfo, m *store.Milestone, hint *ResumptionHint) (SessionCommand, error)
}

// Session binds the dependencies one RunSession call needs: the workspace
// store, the checkpoint log, a prompt renderer, and the agent's id (used
// only for the session log filename).
type Session struct {
	AgentID     int64
	Store       *store.Store
	Checkpoints *checkpoint.FileStore
	Renderer    PromptRenderer
	GraceDelay  time.Duration // default 30s per config.StopGraceSeconds

	// OnSubprocessStart, if set, is called with the subprocess pid as soon
	// as it is known, so a daemon supervisor can record a live pid on the
	// AgentRecord before the session has anything else to report.
	OnSubprocessStart func(pid int)
}

// RunSession executes Step 0 (the resumption gate) and, unless it finds a
// pending checkpoint, the session body: render a prompt, spawn one fresh
// subprocess, stream its output into the session log, and interpret its
// exit per §4.3's exit conditions.
func (s *Session) RunSession(ctx context.Context, phase Phase) (SessionResult, error) {
	ctx = logging.WithComponent(ctx, "orchestrator")

	ws, err := s.Store.ReadWorkspaceInfo()
	if err != nil {
		return SessionResult{}, fmt.Errorf("read workspace info: %w", err)
	}

	// Step 0: the resumption gate (§4.3).
	pending, err := s.Checkpoints.LoadPending(nil, ws.AutoAccept)
	if err != nil {
		return SessionResult{}, fmt.Errorf("load pending checkpoint: %w", err)
	}

	var hint *ResumptionHint
	if pending != nil {
		if pending.Status == checkpoint.StatusPending {
			logging.Info(ctx, "session exits at step 0, checkpoint pending",
				"checkpoint_id", pending.CheckpointID, "kind", string(pending.Kind))
			return SessionResult{Outcome: OutcomeWaitingCheckpoint, Phase: phase}, nil
		}
		hint = &ResumptionHint{
			CheckpointID:  pending.CheckpointID,
			Kind:          pending.Kind,
			Status:        pending.Status,
			Context:       pending.Context,
			Modifications: pending.Modifications,
			HumanNotes:    pending.HumanNotes,
		}
		if pending.Status == checkpoint.StatusRejected {
			logging.Info(ctx, "resuming after rejected checkpoint",
				"checkpoint_id", pending.CheckpointID, "kind", string(pending.Kind))
		}
	}

	m, err := s.Store.ReadMilestone()
	if err != nil && err != store.ErrNotFound {
		return SessionResult{}, fmt.Errorf("read milestone: %w", err)
	}
	if phase == PhaseMR && (m == nil || len(m.Issues) == 0) {
		return SessionResult{}, ErrMilestoneRequired
	}

	if err := resetVerificationState(s.Store); err != nil {
		return SessionResult{}, fmt.Errorf("reset verification state: %w", err)
	}

	sc, err := s.Renderer.Render(phase, ws, m, hint)
	if err != nil {
		return SessionResult{}, fmt.Errorf("render session prompt: %w", err)
	}
	sc.PTYMode = sc.PTYMode || ws.PTYMode

	grace := s.GraceDelay
	if grace <= 0 {
		grace = 30 * time.Second
	}
	logPath := s.Store.LogPath(s.AgentID, time.Now().UTC())

	result := runSubprocess(ctx, sc, s.Store, logPath, grace, s.OnSubprocessStart)
	for _, ev := range result.Events {
		if err := recordVerificationEvent(s.Store, ev); err != nil {
			logging.Warn(ctx, "record verification event failed", "error", err.Error())
		}
	}

	if ctx.Err() != nil {
		logging.Info(ctx, "session stopped by request")
		return SessionResult{Outcome: OutcomeStopped, Phase: phase, Events: result.Events}, nil
	}
	if result.Err != nil {
		tail, _ := store.Read(logPath)
		logging.Error(ctx, "session failed", "error", result.Err.Error(), "exit_code", result.ExitCode)
		return SessionResult{
			Outcome: OutcomeFailed,
			Phase:   phase,
			Err:     result.Err,
			LogTail: tailOf(tail, 4096),
			Events:  result.Events,
		}, nil
	}

	return s.interpretExit(ctx, phase, ws, m, result.Events)
}

// interpretExit applies the remaining exit conditions from §4.3 to a
// cleanly-exited subprocess: did it create a pending checkpoint, finish
// the phase's work, or simply make progress within the phase.
func (s *Session) interpretExit(ctx context.Context, phase Phase, ws *store.WorkspaceInfo, m *store.Milestone, events []Event) (SessionResult, error) {
	for _, ev := range events {
		if ev.Kind == EventCheckpointCreated {
			cp, err := s.Checkpoints.Get(ev.CheckpointID)
			if err != nil {
				return SessionResult{}, fmt.Errorf("load created checkpoint %s: %w", ev.CheckpointID, err)
			}
			if err := CheckVerificationGate(s.Store, cp.Kind, ws.SkipPuppeteer); err != nil {
				logging.Error(ctx, "checkpoint created without passing required verification",
					"checkpoint_id", ev.CheckpointID, "kind", string(cp.Kind), "error", err.Error())
				return SessionResult{Outcome: OutcomeFailed, Phase: phase, Err: err, Events: events}, nil
			}
			logging.Info(ctx, "session created checkpoint and exited",
				"checkpoint_id", ev.CheckpointID)
			return SessionResult{Outcome: OutcomeWaitingCheckpoint, Phase: phase, Events: events}, nil
		}
	}

	for _, ev := range events {
		if ev.Kind != EventPhaseDone {
			continue
		}
		next, ok, err := s.canAdvance(phase, ws, m)
		if err != nil {
			return SessionResult{}, err
		}
		if !ok {
			logging.Warn(ctx, "subprocess reported phase_done but transition condition unmet",
				"phase", string(phase))
			return SessionResult{Outcome: OutcomeContinue, Phase: phase, Events: events}, nil
		}
		logging.Info(ctx, "phase advanced", "from", string(phase), "to", string(next))
		if next == PhaseDone {
			return SessionResult{Outcome: OutcomeDone, Phase: next, Events: events}, nil
		}
		return SessionResult{Outcome: OutcomePhaseAdvanced, Phase: next, Events: events}, nil
	}

	return SessionResult{Outcome: OutcomeContinue, Phase: phase, Events: events}, nil
}

// canAdvance checks the transition condition named in §4.3 for leaving
// phase, independent of whatever the subprocess itself believes.
func (s *Session) canAdvance(phase Phase, ws *store.WorkspaceInfo, m *store.Milestone) (Phase, bool, error) {
	next, err := phase.Next()
	if err != nil {
		return "", false, err
	}

	switch phase {
	case PhaseInitializer:
		if m == nil || m.Title == "" && m.MilestoneID == "" {
			return "", false, nil
		}
		return next, true, nil

	case PhaseCoding:
		if m == nil || !m.AllIssuesClosed {
			return "", false, nil
		}
		cp, err := s.Checkpoints.LatestOfKind(checkpoint.KindMRPhaseTransition)
		if err != nil {
			return "", false, err
		}
		if cp == nil || cp.Status != checkpoint.StatusApproved || !cp.Completed {
			return "", false, nil
		}
		return next, true, nil

	case PhaseMR:
		if ws.SkipMRCreation {
			return next, true, nil
		}
		if m == nil || (m.MergeRequestIID == "" && m.MergeRequestURL == "") {
			return "", false, nil
		}
		return next, true, nil

	case PhaseDone:
		return PhaseDone, true, nil
	}
	return "", false, fmt.Errorf("%w: %s", ErrUnknownPhase, phase)
}

func tailOf(data []byte, n int) string {
	if len(data) <= n {
		return string(data)
	}
	return string(data[len(data)-n:])
}
