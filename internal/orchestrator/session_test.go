package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speckit/harness/internal/checkpoint"
	"github.com/speckit/harness/internal/store"
)

// scriptRenderer renders a fixed shell script as the session subprocess,
// standing in for the external prompt templates §6 assigns to a real AI
// subprocess driver.
type scriptRenderer struct {
	script string
	called bool
}

func (r *scriptRenderer) Render(phase Phase, ws *store.WorkspaceInfo, m *store.Milestone, hint *ResumptionHint) (SessionCommand, error) {
	r.called = true
	return SessionCommand{Binary: "/bin/sh", Args: []string{"-c", r.script}}, nil
}

func newTestSession(t *testing.T, renderer PromptRenderer) (*Session, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	ws, err := store.Open(dir, "demo", "ab12")
	require.NoError(t, err)
	require.NoError(t, ws.WriteWorkspaceInfo(&store.WorkspaceInfo{
		SpecSlug: "demo", SpecHash: "ab12",
		FeatureBranch: "feature/demo", TargetBranch: "main",
	}))

	return &Session{
		AgentID:     1,
		Store:       ws,
		Checkpoints: checkpoint.NewFileStore(ws),
		Renderer:    renderer,
		GraceDelay:  2 * time.Second,
	}, ws
}

func TestRunSession_StepZero_PendingCheckpointSkipsSubprocess(t *testing.T) {
	renderer := &scriptRenderer{script: "exit 0"}
	sess, _ := newTestSession(t, renderer)

	_, err := sess.Checkpoints.Create(checkpoint.KindProjectVerification, checkpoint.ScopeGlobal,
		checkpoint.ProjectVerificationContext{ProposedMilestoneTitle: "M1"})
	require.NoError(t, err)

	result, err := sess.RunSession(context.Background(), PhaseInitializer)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWaitingCheckpoint, result.Outcome)
	assert.False(t, renderer.called, "subprocess must not run when step 0 finds a pending checkpoint")
}

// interpretExit is exercised directly here (rather than through the full
// RunSession, which would trip its own step-0 pending-checkpoint gate on
// the very checkpoint these tests create) to isolate the exit-condition
// wiring these tests target.
func TestInterpretExit_CheckpointCreatedEventExitsWaiting(t *testing.T) {
	renderer := &scriptRenderer{script: "exit 0"}
	sess, ws := newTestSession(t, renderer)

	// Use a non-gated kind: the checkpoint_created exit condition must not
	// depend on verification state for kinds CheckVerificationGate ignores.
	cp, err := sess.Checkpoints.Create(checkpoint.KindProjectVerification, checkpoint.ScopeGlobal,
		checkpoint.ProjectVerificationContext{ProposedMilestoneTitle: "M1"})
	require.NoError(t, err)

	info, err := ws.ReadWorkspaceInfo()
	require.NoError(t, err)
	events := []Event{{Kind: EventCheckpointCreated, CheckpointID: cp.CheckpointID}}

	result, err := sess.interpretExit(context.Background(), PhaseInitializer, info, nil, events)
	require.NoError(t, err)
	assert.Equal(t, OutcomeWaitingCheckpoint, result.Outcome)
}

func TestInterpretExit_CheckpointCreatedGatedKindWithoutVerificationFails(t *testing.T) {
	renderer := &scriptRenderer{script: "exit 0"}
	sess, ws := newTestSession(t, renderer)

	cp, err := sess.Checkpoints.Create(checkpoint.KindIssueClosure, checkpoint.ScopeGlobal,
		checkpoint.IssueClosureContext{IssueIID: 1})
	require.NoError(t, err)

	info, err := ws.ReadWorkspaceInfo()
	require.NoError(t, err)
	events := []Event{{Kind: EventCheckpointCreated, CheckpointID: cp.CheckpointID}}

	result, err := sess.interpretExit(context.Background(), PhaseInitializer, info, nil, events)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.ErrorIs(t, result.Err, ErrVerificationMissing)
}

func TestRunSession_PhaseDoneAdvancesWhenConditionMet(t *testing.T) {
	renderer := &scriptRenderer{script: `echo '@@HARNESS-EVENT@@ {"kind":"phase_done","phase":"initializer"}'`}
	sess, ws := newTestSession(t, renderer)

	require.NoError(t, ws.WriteMilestone(&store.Milestone{Title: "M1", Issues: []store.Issue{{IID: 1}}}))

	result, err := sess.RunSession(context.Background(), PhaseInitializer)
	require.NoError(t, err)
	assert.Equal(t, OutcomePhaseAdvanced, result.Outcome)
	assert.Equal(t, PhaseCoding, result.Phase)
}

func TestRunSession_PhaseDoneIgnoredWhenConditionUnmet(t *testing.T) {
	renderer := &scriptRenderer{script: `echo '@@HARNESS-EVENT@@ {"kind":"phase_done","phase":"initializer"}'`}
	sess, _ := newTestSession(t, renderer) // no milestone written

	result, err := sess.RunSession(context.Background(), PhaseInitializer)
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, result.Outcome)
	assert.Equal(t, PhaseInitializer, result.Phase)
}

func TestRunSession_NonZeroExitIsFailed(t *testing.T) {
	renderer := &scriptRenderer{script: "exit 7"}
	sess, _ := newTestSession(t, renderer)

	result, err := sess.RunSession(context.Background(), PhaseInitializer)
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, result.Outcome)
	require.Error(t, result.Err)
}

func TestRunSession_CleanExitNoEventsContinuesPhase(t *testing.T) {
	renderer := &scriptRenderer{script: "echo plain log line; exit 0"}
	sess, _ := newTestSession(t, renderer)

	result, err := sess.RunSession(context.Background(), PhaseInitializer)
	require.NoError(t, err)
	assert.Equal(t, OutcomeContinue, result.Outcome)
}

func TestRunSession_MRPhaseRequiresNonEmptyMilestone(t *testing.T) {
	renderer := &scriptRenderer{script: "exit 0"}
	sess, ws := newTestSession(t, renderer)
	require.NoError(t, ws.WriteMilestone(&store.Milestone{Title: "M1"})) // zero issues

	_, err := sess.RunSession(context.Background(), PhaseMR)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMilestoneRequired)
}
