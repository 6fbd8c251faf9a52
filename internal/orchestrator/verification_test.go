package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speckit/harness/internal/checkpoint"
	"github.com/speckit/harness/internal/store"
)

func newGateStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	ws, err := store.Open(dir, "demo", "ab12")
	require.NoError(t, err)
	return ws
}

func TestCheckVerificationGate_NonGatedKindAlwaysPasses(t *testing.T) {
	ws := newGateStore(t)
	err := CheckVerificationGate(ws, checkpoint.KindMRPhaseTransition, false)
	assert.NoError(t, err)
}

func TestCheckVerificationGate_MissingStateFails(t *testing.T) {
	ws := newGateStore(t)
	err := CheckVerificationGate(ws, checkpoint.KindIssueClosure, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationMissing)
}

func TestCheckVerificationGate_PassesOnceRequiredChecksRecorded(t *testing.T) {
	ws := newGateStore(t)
	require.NoError(t, resetVerificationState(ws))
	require.NoError(t, recordVerificationEvent(ws, Event{Kind: EventVerificationResult, Check: CheckLint, Passed: true}))
	require.NoError(t, recordVerificationEvent(ws, Event{Kind: EventVerificationResult, Check: CheckTests, Passed: true}))

	// Browser not skipped: still missing.
	err := CheckVerificationGate(ws, checkpoint.KindIssueClosure, false)
	require.Error(t, err)

	// Browser skipped: lint+tests suffice.
	err = CheckVerificationGate(ws, checkpoint.KindIssueClosure, true)
	assert.NoError(t, err)
}

func TestCheckVerificationGate_FailedCheckDoesNotCountAsPassed(t *testing.T) {
	ws := newGateStore(t)
	require.NoError(t, resetVerificationState(ws))
	require.NoError(t, recordVerificationEvent(ws, Event{Kind: EventVerificationResult, Check: CheckLint, Passed: true}))
	require.NoError(t, recordVerificationEvent(ws, Event{Kind: EventVerificationResult, Check: CheckTests, Passed: false}))

	err := CheckVerificationGate(ws, checkpoint.KindMRReview, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrVerificationMissing)
}

func TestCheckVerificationGate_LatestEventWins(t *testing.T) {
	ws := newGateStore(t)
	require.NoError(t, resetVerificationState(ws))
	require.NoError(t, recordVerificationEvent(ws, Event{Kind: EventVerificationResult, Check: CheckLint, Passed: false}))
	require.NoError(t, recordVerificationEvent(ws, Event{Kind: EventVerificationResult, Check: CheckLint, Passed: true}))
	require.NoError(t, recordVerificationEvent(ws, Event{Kind: EventVerificationResult, Check: CheckTests, Passed: true}))

	err := CheckVerificationGate(ws, checkpoint.KindIssueClosure, true)
	assert.NoError(t, err)
}
