package orchestrator

import (
	"errors"

	"github.com/speckit/harness/internal/checkpoint"
	"github.com/speckit/harness/internal/paths"
	"github.com/speckit/harness/internal/store"
)

// ErrVerificationMissing is returned when a session attempts to create a
// terminal checkpoint (issue_closure, mr_review) without having observed
// passing verification_result events for every required check (§4.3: "the
// gate is enforced by the orchestrator, not trusted from the subprocess").
var ErrVerificationMissing = errors.New("required verification checks missing or failed")

// requiredChecks returns the VerificationChecks a session must have passed
// before it may create a terminal checkpoint, given whether browser
// verification is enabled for this workspace (WorkspaceInfo.SkipPuppeteer).
func requiredChecks(skipBrowser bool) []VerificationCheck {
	checks := []VerificationCheck{CheckLint, CheckTests}
	if !skipBrowser {
		checks = append(checks, CheckBrowser)
	}
	return checks
}

// gatedKinds are the terminal checkpoint kinds the verification loop
// applies to (§4.3: "issue_closure, mr_review").
var gatedKinds = map[checkpoint.Kind]bool{
	checkpoint.KindIssueClosure: true,
	checkpoint.KindMRReview:     true,
}

// verificationState is the on-disk snapshot of checks observed so far in
// the current session, written by the orchestrator as verification_result
// events stream in and read by CheckVerificationGate.
type verificationState struct {
	Passed map[VerificationCheck]bool `json:"passed"`
}

// recordVerificationEvent folds one verification_result event into the
// session's on-disk gate state. Non-result events are ignored.
func recordVerificationEvent(ws *store.Store, ev Event) error {
	if ev.Kind != EventVerificationResult {
		return nil
	}
	path := statePath(ws)
	var state verificationState
	if err := store.ReadJSON(path, &state); err != nil && err != store.ErrNotFound {
		return err
	}
	if state.Passed == nil {
		state.Passed = make(map[VerificationCheck]bool)
	}
	state.Passed[ev.Check] = ev.Passed
	return store.AtomicWriteJSON(path, &state)
}

// resetVerificationState clears the gate state at the start of a new
// session, matching I5's "reset at the start of every session" discipline
// applied here to verification evidence rather than SessionFiles.
func resetVerificationState(ws *store.Store) error {
	return store.AtomicWriteJSON(statePath(ws), &verificationState{Passed: map[VerificationCheck]bool{}})
}

// CheckVerificationGate is called by Session.interpretExit for a
// checkpoint_created event, after the subprocess has already written that
// checkpoint. Kinds outside gatedKinds always pass; for issue_closure and
// mr_review it requires every check from requiredChecks to have last
// reported Passed=true in the current session. A refusal fails the session;
// the checkpoint is not removed and stays in the log.
func CheckVerificationGate(ws *store.Store, kind checkpoint.Kind, skipBrowser bool) error {
	if !gatedKinds[kind] {
		return nil
	}
	var state verificationState
	if err := store.ReadJSON(statePath(ws), &state); err != nil {
		if err == store.ErrNotFound {
			return &verificationError{check: requiredChecks(skipBrowser)[0]}
		}
		return err
	}
	for _, check := range requiredChecks(skipBrowser) {
		if !state.Passed[check] {
			return &verificationError{check: check}
		}
	}
	return nil
}

func statePath(ws *store.Store) string {
	return paths.VerificationStateFile(ws.Dir())
}

type verificationError struct {
	check VerificationCheck
}

func (e *verificationError) Error() string {
	return "missing or failed verification check: " + string(e.check)
}

func (e *verificationError) Unwrap() error {
	return ErrVerificationMissing
}
