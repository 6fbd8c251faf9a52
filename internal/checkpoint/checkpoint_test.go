package checkpoint

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate_RejectsSecondPendingInScope(t *testing.T) {
	l := NewLog()
	_, err := l.Create("cp1", KindProjectVerification, ScopeGlobal, mustJSON(t, ProjectVerificationContext{}), time.Now())
	require.NoError(t, err)

	_, err = l.Create("cp2", KindSpecToIssues, ScopeGlobal, mustJSON(t, SpecToIssuesContext{}), time.Now())
	require.ErrorIs(t, err, ErrPendingExists)
}

func TestCreate_AllowedAfterPriorCompleted(t *testing.T) {
	l := NewLog()
	now := time.Now()
	cp, err := l.Create("cp1", KindIssueClosure, IssueScope(7), mustJSON(t, IssueClosureContext{IssueIID: 7}), now)
	require.NoError(t, err)

	_, err = l.Resolve(cp.CheckpointID, StatusRejected, nil, "needs tests")
	require.NoError(t, err)
	_, err = l.Complete(cp.CheckpointID, now.Add(time.Second))
	require.NoError(t, err)

	// A new pending checkpoint for the same scope is now legal (scenario 2).
	_, err = l.Create("cp2", KindIssueClosure, IssueScope(7), mustJSON(t, IssueClosureContext{IssueIID: 7}), now.Add(2*time.Second))
	require.NoError(t, err)
}

func TestResolve_RejectsModificationsWithoutModifiedVerdict(t *testing.T) {
	l := NewLog()
	cp, err := l.Create("cp1", KindSpecToIssues, ScopeGlobal, mustJSON(t, SpecToIssuesContext{}), time.Now())
	require.NoError(t, err)

	_, err = l.Resolve(cp.CheckpointID, StatusApproved, mustJSON(t, SpecToIssuesModifications{}), "")
	require.ErrorIs(t, err, ErrModificationsWithoutModifiedVerdict)
}

func TestResolve_RejectsNonPending(t *testing.T) {
	l := NewLog()
	cp, err := l.Create("cp1", KindMRPhaseTransition, ScopeGlobal, mustJSON(t, MRPhaseTransitionContext{}), time.Now())
	require.NoError(t, err)

	_, err = l.Resolve(cp.CheckpointID, StatusApproved, nil, "")
	require.NoError(t, err)

	_, err = l.Resolve(cp.CheckpointID, StatusRejected, nil, "")
	require.ErrorIs(t, err, ErrNotPending)
}

func TestComplete_RejectsStillPending(t *testing.T) {
	l := NewLog()
	cp, err := l.Create("cp1", KindMRPhaseTransition, ScopeGlobal, mustJSON(t, MRPhaseTransitionContext{}), time.Now())
	require.NoError(t, err)

	_, err = l.Complete(cp.CheckpointID, time.Now())
	require.ErrorIs(t, err, ErrStillPending)
}

func TestComplete_RejectsDouble(t *testing.T) {
	l := NewLog()
	cp, err := l.Create("cp1", KindMRPhaseTransition, ScopeGlobal, mustJSON(t, MRPhaseTransitionContext{}), time.Now())
	require.NoError(t, err)
	_, err = l.Resolve(cp.CheckpointID, StatusApproved, nil, "")
	require.NoError(t, err)
	_, err = l.Complete(cp.CheckpointID, time.Now())
	require.NoError(t, err)
	_, err = l.Complete(cp.CheckpointID, time.Now())
	require.ErrorIs(t, err, ErrAlreadyCompleted)
}

func TestLoadPending_NewestAcrossScopes(t *testing.T) {
	l := NewLog()
	t0 := time.Now()
	_, err := l.Create("cp1", KindIssueClosure, IssueScope(1), mustJSON(t, IssueClosureContext{IssueIID: 1}), t0)
	require.NoError(t, err)
	_, err = l.Create("cp2", KindIssueClosure, IssueScope(2), mustJSON(t, IssueClosureContext{IssueIID: 2}), t0.Add(time.Minute))
	require.NoError(t, err)

	pending := l.LoadPending(nil)
	require.NotNil(t, pending)
	assert.Equal(t, "cp2", pending.CheckpointID)

	scope1 := IssueScope(1)
	pending = l.LoadPending(&scope1)
	require.NotNil(t, pending)
	assert.Equal(t, "cp1", pending.CheckpointID)
}

func TestLatestOfKind(t *testing.T) {
	l := NewLog()
	t0 := time.Now()
	_, err := l.Create("cp1", KindIssueSelection, ScopeGlobal, mustJSON(t, IssueSelectionContext{}), t0)
	require.NoError(t, err)
	_, err = l.Resolve("cp1", StatusApproved, nil, "")
	require.NoError(t, err)
	_, err = l.Complete("cp1", t0)
	require.NoError(t, err)

	_, err = l.Create("cp2", KindIssueSelection, ScopeGlobal, mustJSON(t, IssueSelectionContext{}), t0.Add(time.Minute))
	require.NoError(t, err)

	latest := l.LatestOfKind(KindIssueSelection)
	require.NotNil(t, latest)
	assert.Equal(t, "cp2", latest.CheckpointID)
}

func TestAutoResolve_IssueEnrichmentUsesRecommendedOrder(t *testing.T) {
	l := NewLog()
	ctx := IssueEnrichmentContext{RecommendedEnrichmentOrder: []int{3, 1, 2}}
	_, err := l.Create("cp1", KindIssueEnrichment, ScopeGlobal, mustJSON(t, ctx), time.Now())
	require.NoError(t, err)

	cp, err := AutoResolve(l, "cp1")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, cp.Status)

	var mods IssueEnrichmentModifications
	require.NoError(t, json.Unmarshal(cp.Modifications, &mods))
	assert.Equal(t, []int{3, 1, 2}, mods.EnrichmentOrder)
}

func TestAutoResolve_RegressionApprovalDefaultsFixNow(t *testing.T) {
	l := NewLog()
	_, err := l.Create("cp1", KindRegressionApproval, ScopeGlobal, mustJSON(t, RegressionApprovalContext{RegressedIssueIID: 7}), time.Now())
	require.NoError(t, err)

	cp, err := AutoResolve(l, "cp1")
	require.NoError(t, err)
	// Auto-accept carries its decision via modified, not a bare approved:
	// Resolve only permits modifications alongside a modified verdict, and
	// regression_approval always carries a human_decision (§4.2).
	assert.Equal(t, StatusModified, cp.Status)

	var mods RegressionApprovalModifications
	require.NoError(t, json.Unmarshal(cp.Modifications, &mods))
	assert.Equal(t, DecisionFixNow, mods.HumanDecision)
}

func TestRegressionApproval_RejectsInvalidHumanDecision(t *testing.T) {
	spec, ok := Lookup(KindRegressionApproval)
	require.True(t, ok)
	err := spec.ValidateModifications(mustJSON(t, RegressionApprovalModifications{HumanDecision: "not-a-real-decision"}))
	assert.Error(t, err)
}

func TestRegressionApproval_BareApprovalWithoutDecisionIsInvalid(t *testing.T) {
	l := NewLog()
	_, err := l.Create("cp1", KindRegressionApproval, ScopeGlobal, mustJSON(t, RegressionApprovalContext{RegressedIssueIID: 7}), time.Now())
	require.NoError(t, err)

	_, err = l.Resolve("cp1", StatusApproved, nil, "looks fine")
	assert.Error(t, err)
}

func TestRegressionApproval_ModifiedWithHumanDecisionSucceeds(t *testing.T) {
	l := NewLog()
	_, err := l.Create("cp1", KindRegressionApproval, ScopeGlobal, mustJSON(t, RegressionApprovalContext{RegressedIssueIID: 7}), time.Now())
	require.NoError(t, err)

	cp, err := l.Resolve("cp1", StatusModified, mustJSON(t, RegressionApprovalModifications{HumanDecision: DecisionRollback}), "")
	require.NoError(t, err)
	assert.Equal(t, StatusModified, cp.Status)
}

func TestSelectedIssue_PrefersModificationsOverRecommended(t *testing.T) {
	ctx := IssueSelectionContext{RecommendedIssueOrder: []int{1, 2, 3}}
	mods := mustJSON(t, IssueSelectionModifications{IssueOrder: []int{5, 6}})

	iid, err := SelectedIssue(ctx, mods)
	require.NoError(t, err)
	assert.Equal(t, 5, iid)

	iid, err = SelectedIssue(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, iid)
}

func TestRegisteredKinds_AllEightPresent(t *testing.T) {
	kinds := RegisteredKinds()
	assert.Len(t, kinds, 8)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
