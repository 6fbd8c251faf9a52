package checkpoint

import "encoding/json"

// ProjectVerificationContext is the context payload for
// KindProjectVerification (§4.2, expanded per SPEC_FULL.md §6 with
// dirty_worktree and detected_remote pre-flight detail).
type ProjectVerificationContext struct {
	ProposedMilestoneTitle string   `json:"proposed_milestone_title"`
	FeatureBranch          string   `json:"feature_branch"`
	TargetBranch           string   `json:"target_branch"`
	ExistingMilestones     []string `json:"existing_milestones"`

	DirtyWorktree   bool   `json:"dirty_worktree"`
	DetectedRemote  string `json:"detected_remote,omitempty"`
}

// projectVerificationSpec has no modifications shape: approval creates the
// milestone as proposed, rejection halts (§4.2).
type projectVerificationSpec struct{}

func (projectVerificationSpec) Kind() Kind { return KindProjectVerification }

func (projectVerificationSpec) ValidateModifications(modifications json.RawMessage) error {
	return errNoModificationsSupported(KindProjectVerification, modifications)
}

func (projectVerificationSpec) AutoVerdict(json.RawMessage) (Status, json.RawMessage, error) {
	// "all others -> approved" (§4.2 auto-accept table).
	return StatusApproved, nil, nil
}

func init() { Register(projectVerificationSpec{}) }
