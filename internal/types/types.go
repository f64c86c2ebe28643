package types

import (
	"fmt"
	"time"
)

// IssueKey uniquely identifies an issue within the system.
// Repository is the full "owner/name" form.
type IssueKey struct {
	Repository string
	Number     int
}

// String returns the canonical "owner/name#number" form used in event
// payloads and recommendation evidence lists.
func (k IssueKey) String() string {
	return fmt.Sprintf("%s#%d", k.Repository, k.Number)
}

// IssueState represents the lifecycle state of an issue
type IssueState string

const (
	StateOpen   IssueState = "open"
	StateClosed IssueState = "closed"
)

// IsValid checks if the state value is valid
func (s IssueState) IsValid() bool {
	switch s {
	case StateOpen, StateClosed:
		return true
	}
	return false
}

// IssueRecord is the full snapshot of one repository issue as carried by
// an inbound issue event. Records are replaced wholesale on re-delivery
// of the same key; there is no field-level merging.
type IssueRecord struct {
	Repository  string     `json:"repository"`
	Number      int        `json:"number"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	State       IssueState `json:"state"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Labels      []string   `json:"labels,omitempty"`
}

// Key returns the identity key for this record
func (r *IssueRecord) Key() IssueKey {
	return IssueKey{Repository: r.Repository, Number: r.Number}
}

// Validate checks if the record carries the fields required for
// processing. Records failing validation are dropped by the agent
// without any state mutation.
func (r *IssueRecord) Validate() error {
	if r.Repository == "" {
		return fmt.Errorf("repository is required")
	}
	if r.Number <= 0 {
		return fmt.Errorf("issue number must be positive (got %d)", r.Number)
	}
	if !r.State.IsValid() {
		return fmt.Errorf("invalid issue state: %q", r.State)
	}
	return nil
}

// Priority represents the urgency of a recommendation
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rank returns the sort rank for a priority (lower sorts first)
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// TagStat is one entry of a report's tag frequency table
type TagStat struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Recommendation is a prioritized suggestion derived from tag frequency
// across a repository's issues. SupportingIssues is never empty: a
// recommendation without evidence is not emitted.
type Recommendation struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Priority         Priority `json:"priority"`
	SupportingIssues []string `json:"supporting_issues"`
}

// SummaryReport is a derived snapshot of one repository's accumulated
// analysis state. Reports are immutable once generated; a newer report
// supersedes, never mutates, an older one.
type SummaryReport struct {
	Repository      string           `json:"repository"`
	GeneratedAt     time.Time        `json:"generated_at"`
	TotalIssues     int              `json:"total_issues"`
	OpenIssues      int              `json:"open_issues"`
	ClosedIssues    int              `json:"closed_issues"`
	OldestIssueDate time.Time        `json:"oldest_issue_date"`
	NewestIssueDate time.Time        `json:"newest_issue_date"`
	TopTags         []TagStat        `json:"top_tags"`
	Recommendations []Recommendation `json:"recommendations"`
}
