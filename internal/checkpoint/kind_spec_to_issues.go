package checkpoint

import "encoding/json"

// ProposedIssue is one entry in a spec_to_issues proposal.
type ProposedIssue struct {
	Title       string   `json:"title"`
	Labels      []string `json:"labels"`
	Priority    string   `json:"priority"`
	Description string   `json:"description"`
}

// SpecToIssuesContext carries the full proposed issue list (§4.2). Per §8's
// boundary behavior, more than IssueCountBudget proposed issues is allowed
// but must be flagged for the approver.
type SpecToIssuesContext struct {
	ProposedIssues []ProposedIssue `json:"proposed_issues"`
	OverBudget     bool            `json:"over_budget"`
	BudgetNote     string          `json:"budget_note,omitempty"`
}

// IssueCountBudget is the default cap referenced in §8: "More than N
// (default: a reasonable small cap, e.g. 12) proposed issues: allowed but
// flagged."
const IssueCountBudget = 12

// SpecToIssuesModifications lets the approver replace the proposed list
// wholesale (§4.2: "Modifications may replace the list").
type SpecToIssuesModifications struct {
	Issues []ProposedIssue `json:"issues"`
}

type specToIssuesSpec struct{}

func (specToIssuesSpec) Kind() Kind { return KindSpecToIssues }

func (specToIssuesSpec) ValidateModifications(modifications json.RawMessage) error {
	var mods SpecToIssuesModifications
	return unmarshalOrError(KindSpecToIssues, modifications, &mods)
}

func (specToIssuesSpec) AutoVerdict(json.RawMessage) (Status, json.RawMessage, error) {
	return StatusApproved, nil, nil
}

func init() { Register(specToIssuesSpec{}) }
