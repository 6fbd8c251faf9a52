package store

import "time"

// IssueState is the lifecycle tag of an Issue (§3).
type IssueState string

const (
	IssueOpen       IssueState = "open"
	IssueInProgress IssueState = "in_progress"
	IssueClosed     IssueState = "closed"
)

// Issue is a unit of implementation work tracked by the harness. The core
// does not own Issue contents beyond the reference and state transitions
// it observes (§3); Description/Enrichment are opaque payloads supplied by
// the initializer and the issue host.
type Issue struct {
	IID         int        `json:"iid"`
	State       IssueState `json:"state"`
	Description string     `json:"description"`

	// Enrichment is the optional payload attached by the initializer's
	// issue_enrichment flow. Left nil when enrichment was rejected or the
	// issue did not need it.
	Enrichment *IssueEnrichment `json:"enrichment,omitempty"`

	// ExternalID is the issue host's own identifier for this issue (e.g. a
	// GitHub issue number), when the host assigns one distinct from IID.
	ExternalID string `json:"external_id,omitempty"`

	Labels   []string `json:"labels,omitempty"`
	Priority string   `json:"priority,omitempty"`
	Title    string   `json:"title,omitempty"`
}

// IssueEnrichment is the LLM judgment recorded for one issue by the
// issue_enrichment checkpoint kind (§4.2).
type IssueEnrichment struct {
	Decision                 string   `json:"decision"` // "needs_enrichment" | "sufficient"
	Confidence               float64  `json:"confidence"`
	Reasoning                string   `json:"reasoning"`
	QuestionAnswers          []string `json:"question_answers"`
	RecommendedResearchTypes []string `json:"recommended_research_types"`
	EstimatedComplexity      string   `json:"estimated_complexity"`
	PreliminaryResearch      string   `json:"preliminary_research,omitempty"`
}

// SessionFiles is the per-session whitelist of files the current agent
// subprocess has modified. Reset at the start of every session (I5). Only
// files listed here may be pushed to the external code host (I4).
type SessionFiles struct {
	Tracked        []string  `json:"tracked"`
	SessionStarted time.Time `json:"session_started"`
	LastUpdated    time.Time `json:"last_updated"`
}

// NewSessionFiles returns an empty SessionFiles record stamped with the
// current time, as required at the start of every session (I5).
func NewSessionFiles() SessionFiles {
	now := time.Now().UTC()
	return SessionFiles{Tracked: []string{}, SessionStarted: now, LastUpdated: now}
}

// Track records path as modified by the current session.
func (sf *SessionFiles) Track(path string) {
	for _, p := range sf.Tracked {
		if p == path {
			sf.LastUpdated = time.Now().UTC()
			return
		}
	}
	sf.Tracked = append(sf.Tracked, path)
	sf.LastUpdated = time.Now().UTC()
}

// Contains reports whether path is in the tracked set (I4's check).
func (sf *SessionFiles) Contains(path string) bool {
	for _, p := range sf.Tracked {
		if p == path {
			return true
		}
	}
	return false
}

// SessionFilesRecord is the session_files field embedded in a Milestone,
// recording the most recent session's file whitelist (§3).
type SessionFilesRecord = SessionFiles

// Milestone is the unit of grouped work for one SpecRun (§3). Created once
// by the Initializer phase, mutated by subsequent phases.
type Milestone struct {
	ProjectID   string  `json:"project_id,omitempty"`
	MilestoneID string  `json:"milestone_id,omitempty"`
	Title       string  `json:"title"`

	Issues            []Issue `json:"issues"`
	AllIssuesClosed   bool    `json:"all_issues_closed"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`

	MergeRequestIID string `json:"merge_request_iid,omitempty"`
	MergeRequestURL string `json:"merge_request_url,omitempty"`

	SessionFiles SessionFilesRecord `json:"session_files"`
}

// Validate checks the required-field rule from §4.1: Milestone must have
// the milestone identity and all_issues_closed (the latter is a bool, so
// "required" means the field must be present in the decoded JSON — callers
// construct Milestone via ReadMilestone which always has a zero value, so
// this validates identity only).
func (m *Milestone) Validate(path string) error {
	if m.Title == "" && m.MilestoneID == "" {
		return &SchemaError{Path: path, Field: "title_or_milestone_id"}
	}
	return nil
}

// ReadMilestone loads and validates a Milestone from path.
func ReadMilestone(path string) (*Milestone, error) {
	var m Milestone
	if err := ReadJSON(path, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(path); err != nil {
		return nil, err
	}
	return &m, nil
}

// WriteMilestone atomically persists m to path.
func WriteMilestone(path string, m *Milestone) error {
	if err := m.Validate(path); err != nil {
		return err
	}
	return AtomicWriteJSON(path, m)
}

// IssueByIID returns a pointer to the issue with the given iid, or nil.
func (m *Milestone) IssueByIID(iid int) *Issue {
	for i := range m.Issues {
		if m.Issues[i].IID == iid {
			return &m.Issues[i]
		}
	}
	return nil
}

// RecomputeAllIssuesClosed updates AllIssuesClosed from the current issue
// states. A milestone with zero issues is never considered closed (§8
// boundary behavior: "Milestone with zero issues: MR phase refuses to
// run").
func (m *Milestone) RecomputeAllIssuesClosed() {
	if len(m.Issues) == 0 {
		m.AllIssuesClosed = false
		return
	}
	for _, iss := range m.Issues {
		if iss.State != IssueClosed {
			m.AllIssuesClosed = false
			return
		}
	}
	m.AllIssuesClosed = true
}
