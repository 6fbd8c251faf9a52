package daemon

import (
	"context"

	"github.com/speckit/harness/internal/checkpoint"
	"github.com/speckit/harness/internal/orchestrator"
	"github.com/speckit/harness/internal/store"
)

// superviseAgent loops Session.RunSession for agentID, one subprocess per
// call, until a terminal Outcome (waiting_checkpoint, done, failed, or
// stopped) is reached. Each step's observed Outcome is folded back into
// the Registry and broadcast on the event bus, so a client's `status`/
// `subscribe` view reflects the actual phase-transition authority in
// Session.interpretExit rather than the subprocess's self-report.
func (d *Daemon) superviseAgent(ctx context.Context, agentID int64) {
	defer d.forgetAgent(agentID)

	rec, ok := d.Registry.Get(agentID)
	if !ok {
		return
	}

	ws, err := store.Open(rec.ProjectDir, rec.SpecSlug, rec.SpecHash)
	if err != nil {
		d.failAgent(agentID, err)
		return
	}

	sess := &orchestrator.Session{
		AgentID:     agentID,
		Store:       ws,
		Checkpoints: checkpoint.NewFileStore(ws),
		Renderer:    d.Renderer,
		GraceDelay:  d.GraceDelay,
		OnSubprocessStart: func(pid int) {
			d.updateAndPublish(agentID, "pid_known", func(a *AgentRecord) {
				a.PID = pid
				a.Status = StatusRunning
			})
		},
	}

	phase := rec.Phase
	if phase == "" {
		phase = orchestrator.PhaseInitializer
	}

	for {
		if ctx.Err() != nil {
			d.updateAndPublish(agentID, "agent_stopped", func(a *AgentRecord) {
				a.Status = StatusStopped
				a.PID = 0
			})
			return
		}

		result, err := sess.RunSession(ctx, phase)
		if err != nil {
			d.failAgent(agentID, err)
			return
		}

		switch result.Outcome {
		case orchestrator.OutcomeWaitingCheckpoint:
			d.updateAndPublish(agentID, "waiting_checkpoint", func(a *AgentRecord) {
				a.Status = StatusWaitingCheckpoint
				a.Phase = result.Phase
				a.PID = 0
			})
			return

		case orchestrator.OutcomeStopped:
			d.updateAndPublish(agentID, "agent_stopped", func(a *AgentRecord) {
				a.Status = StatusStopped
				a.Phase = result.Phase
				a.PID = 0
			})
			return

		case orchestrator.OutcomeFailed:
			msg := ""
			if result.Err != nil {
				msg = result.Err.Error()
			}
			d.updateAndPublish(agentID, "agent_failed", func(a *AgentRecord) {
				a.Status = StatusFailed
				a.Phase = result.Phase
				a.LastError = msg
				a.PID = 0
			})
			return

		case orchestrator.OutcomeDone:
			d.updateAndPublish(agentID, "agent_done", func(a *AgentRecord) {
				a.Status = StatusIdle
				a.Phase = result.Phase
				a.PID = 0
			})
			return

		case orchestrator.OutcomePhaseAdvanced:
			phase = result.Phase
			d.updateAndPublish(agentID, "phase_advanced", func(a *AgentRecord) {
				a.Status = StatusRunning
				a.Phase = phase
				a.PID = 0
			})

		case orchestrator.OutcomeContinue:
			d.updateAndPublish(agentID, "session_continue", func(a *AgentRecord) {
				a.Status = StatusRunning
				a.Phase = phase
				a.PID = 0
			})
		}
	}
}

func (d *Daemon) failAgent(agentID int64, err error) {
	d.updateAndPublish(agentID, "agent_failed", func(a *AgentRecord) {
		a.Status = StatusFailed
		a.LastError = err.Error()
		a.PID = 0
	})
}
