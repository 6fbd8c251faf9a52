package checkpoint

import "encoding/json"

// MRPhaseTransitionContext is the gate between coding-loop termination and
// MR-creation phase (§4.2). It carries a summary of the completed
// milestone for the approver's benefit.
type MRPhaseTransitionContext struct {
	MilestoneTitle  string `json:"milestone_title"`
	ClosedIssueIIDs []int  `json:"closed_issue_iids"`
}

type mrPhaseTransitionSpec struct{}

func (mrPhaseTransitionSpec) Kind() Kind { return KindMRPhaseTransition }

func (mrPhaseTransitionSpec) ValidateModifications(modifications json.RawMessage) error {
	return errNoModificationsSupported(KindMRPhaseTransition, modifications)
}

func (mrPhaseTransitionSpec) AutoVerdict(json.RawMessage) (Status, json.RawMessage, error) {
	return StatusApproved, nil, nil
}

func init() { Register(mrPhaseTransitionSpec{}) }
