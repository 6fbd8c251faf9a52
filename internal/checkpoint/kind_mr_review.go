package checkpoint

import "encoding/json"

// MRReviewContext carries the full MR title, description, and the list of
// issues that will be closed (§4.2).
type MRReviewContext struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	ClosingIssueIIDs []int  `json:"closing_issue_iids"`
	SourceBranch     string `json:"source_branch"`
	TargetBranch     string `json:"target_branch"`
}

// MRReviewModifications lets the approver override title/description (§4.2).
type MRReviewModifications struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

type mrReviewSpec struct{}

func (mrReviewSpec) Kind() Kind { return KindMRReview }

func (mrReviewSpec) ValidateModifications(modifications json.RawMessage) error {
	var mods MRReviewModifications
	return unmarshalOrError(KindMRReview, modifications, &mods)
}

func (mrReviewSpec) AutoVerdict(json.RawMessage) (Status, json.RawMessage, error) {
	return StatusApproved, nil, nil
}

func init() { Register(mrReviewSpec{}) }
