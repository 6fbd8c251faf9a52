package checkpoint

import (
	"encoding/json"
	"fmt"
)

// IssueJudgment is the per-issue LLM judgment carried by
// issue_enrichment's context (§4.2).
type IssueJudgment struct {
	IssueIID                 int      `json:"issue_iid"`
	Decision                 string   `json:"decision"` // "needs_enrichment" | "sufficient"
	Confidence               float64  `json:"confidence"`
	Reasoning                string   `json:"reasoning"`
	QuestionAnswers          []string `json:"question_answers"` // 5 criteria
	RecommendedResearchTypes []string `json:"recommended_research_types"`
	EstimatedComplexity      string   `json:"estimated_complexity"`
	PreliminaryResearch      string   `json:"preliminary_research,omitempty"`
}

// IssueEnrichmentContext carries, for every issue, the LLM judgment plus a
// recommended enrichment order (§4.2).
type IssueEnrichmentContext struct {
	Judgments                []IssueJudgment `json:"judgments"`
	RecommendedEnrichmentOrder []int          `json:"recommended_enrichment_order"`
}

// IssueEnrichmentModifications lets the approver replace the enrichment
// order (§4.2: "Modifications may replace the order").
type IssueEnrichmentModifications struct {
	EnrichmentOrder []int `json:"enrichment_order"`
}

type issueEnrichmentSpec struct{}

func (issueEnrichmentSpec) Kind() Kind { return KindIssueEnrichment }

func (issueEnrichmentSpec) ValidateModifications(modifications json.RawMessage) error {
	var mods IssueEnrichmentModifications
	return unmarshalOrError(KindIssueEnrichment, modifications, &mods)
}

// AutoVerdict: "issue_enrichment -> approved with LLM-recommended order" (§4.2).
func (issueEnrichmentSpec) AutoVerdict(context json.RawMessage) (Status, json.RawMessage, error) {
	var ctx IssueEnrichmentContext
	if err := json.Unmarshal(context, &ctx); err != nil {
		return "", nil, fmt.Errorf("issue_enrichment: invalid context: %w", err)
	}
	mods := IssueEnrichmentModifications{EnrichmentOrder: ctx.RecommendedEnrichmentOrder}
	data, err := json.Marshal(mods)
	if err != nil {
		return "", nil, fmt.Errorf("issue_enrichment: marshal auto-verdict modifications: %w", err)
	}
	return StatusApproved, data, nil
}

func init() { Register(issueEnrichmentSpec{}) }
