package checkpoint

import (
	"encoding/json"
	"fmt"
)

// HumanDecision is the approver's disposition of a detected regression (§4.2).
type HumanDecision string

const (
	DecisionFixNow        HumanDecision = "fix_now"
	DecisionDefer         HumanDecision = "defer"
	DecisionRollback      HumanDecision = "rollback"
	DecisionFalsePositive HumanDecision = "false_positive"
)

// RegressionApprovalContext names the regressed issue (§4.2).
type RegressionApprovalContext struct {
	RegressedIssueIID int    `json:"regressed_issue_iid"`
	Description       string `json:"description"`
}

// RegressionApprovalModifications must carry a human_decision (§4.2:
// "Approval without a decision is invalid").
type RegressionApprovalModifications struct {
	HumanDecision HumanDecision `json:"human_decision"`
}

type regressionApprovalSpec struct{}

func (regressionApprovalSpec) Kind() Kind { return KindRegressionApproval }

func (regressionApprovalSpec) ValidateModifications(modifications json.RawMessage) error {
	var mods RegressionApprovalModifications
	if err := unmarshalOrError(KindRegressionApproval, modifications, &mods); err != nil {
		return err
	}
	if len(modifications) > 0 {
		switch mods.HumanDecision {
		case DecisionFixNow, DecisionDefer, DecisionRollback, DecisionFalsePositive:
		default:
			return fmt.Errorf("kind %s: invalid human_decision %q", KindRegressionApproval, mods.HumanDecision)
		}
	}
	return nil
}

// ValidateApproval rejects a bare approved verdict outright: Resolve only
// lets modifications ride along with a modified verdict, and §4.2 requires
// regression_approval's human_decision to be carried every time, including
// on approval, so "approved" with no decision attached is always invalid
// here — resolve as modified with human_decision instead.
func (regressionApprovalSpec) ValidateApproval(json.RawMessage) error {
	return fmt.Errorf("kind %s: approval requires a human_decision; resolve as modified instead", KindRegressionApproval)
}

// AutoVerdict: "regression_approval -> approved with human_decision=fix_now"
// (§4.2). Resolve only allows non-nil modifications alongside a modified
// verdict, so the decision rides in as modified rather than a bare
// approved — the kind's "always carries a decision" requirement expressed
// through the verdict Resolve actually accepts.
func (regressionApprovalSpec) AutoVerdict(json.RawMessage) (Status, json.RawMessage, error) {
	mods := RegressionApprovalModifications{HumanDecision: DecisionFixNow}
	data, err := json.Marshal(mods)
	if err != nil {
		return "", nil, fmt.Errorf("regression_approval: marshal auto-verdict modifications: %w", err)
	}
	return StatusModified, data, nil
}

func init() { Register(regressionApprovalSpec{}) }
