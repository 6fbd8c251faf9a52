package checkpoint

import (
	"encoding/json"
	"fmt"
)

// CandidateIssue is one ranked candidate in an issue_selection proposal.
type CandidateIssue struct {
	IssueIID int    `json:"issue_iid"`
	Title    string `json:"title"`
	Rank     int    `json:"rank"`
}

// IssueSelectionContext carries a ranked candidate list plus a recommended
// order (§4.2). The first id in the final (possibly modified) order is the
// issue the session claims on resolution.
type IssueSelectionContext struct {
	Candidates             []CandidateIssue `json:"candidates"`
	RecommendedIssueOrder  []int            `json:"recommended_issue_order"`
}

// IssueSelectionModifications lets the approver replace the order (§4.2).
type IssueSelectionModifications struct {
	IssueOrder []int `json:"issue_order"`
}

type issueSelectionSpec struct{}

func (issueSelectionSpec) Kind() Kind { return KindIssueSelection }

func (issueSelectionSpec) ValidateModifications(modifications json.RawMessage) error {
	var mods IssueSelectionModifications
	if err := unmarshalOrError(KindIssueSelection, modifications, &mods); err != nil {
		return err
	}
	if len(modifications) > 0 && len(mods.IssueOrder) == 0 {
		return fmt.Errorf("kind %s: modifications.issue_order must not be empty", KindIssueSelection)
	}
	return nil
}

// AutoVerdict: "issue_selection -> approved with recommended order" (§4.2).
func (issueSelectionSpec) AutoVerdict(context json.RawMessage) (Status, json.RawMessage, error) {
	var ctx IssueSelectionContext
	if err := json.Unmarshal(context, &ctx); err != nil {
		return "", nil, fmt.Errorf("issue_selection: invalid context: %w", err)
	}
	mods := IssueSelectionModifications{IssueOrder: ctx.RecommendedIssueOrder}
	data, err := json.Marshal(mods)
	if err != nil {
		return "", nil, fmt.Errorf("issue_selection: marshal auto-verdict modifications: %w", err)
	}
	return StatusApproved, data, nil
}

// SelectedIssue returns the first issue id in the effective order: the
// modified order if present, otherwise the recommended order from context.
func SelectedIssue(ctx IssueSelectionContext, modifications json.RawMessage) (int, error) {
	order := ctx.RecommendedIssueOrder
	if len(modifications) > 0 {
		var mods IssueSelectionModifications
		if err := json.Unmarshal(modifications, &mods); err != nil {
			return 0, fmt.Errorf("issue_selection: invalid modifications: %w", err)
		}
		order = mods.IssueOrder
	}
	if len(order) == 0 {
		return 0, fmt.Errorf("issue_selection: no issue order available")
	}
	return order[0], nil
}

func init() { Register(issueSelectionSpec{}) }
