package events

import (
	"time"

	"github.com/repolens/repolens/internal/types"
)

// EventType represents the type of event flowing through the transport.
type EventType string

const (
	// EventTypeIssue indicates an inbound issue snapshot for analysis
	EventTypeIssue EventType = "issue"
	// EventTypeTagsExtracted indicates tags were extracted for one issue
	EventTypeTagsExtracted EventType = "tags_extracted"
	// EventTypeSummaryReport indicates a summary report was generated
	EventTypeSummaryReport EventType = "summary_report"
)

// EventSeverity represents the severity level of an event.
type EventSeverity string

const (
	// SeverityInfo indicates informational events
	SeverityInfo EventSeverity = "info"
	// SeverityWarning indicates potentially problematic events
	SeverityWarning EventSeverity = "warning"
	// SeverityError indicates error events
	SeverityError EventSeverity = "error"
)

// Event is the envelope for all messages on the bus. Payloads live in
// Data as JSON-serializable maps; use the typed Set/Get helpers rather
// than touching Data directly.
type Event struct {
	// ID is the unique identifier for this event
	ID string `json:"id"`
	// Type is the type of event
	Type EventType `json:"type"`
	// Timestamp is when the event was created by its publisher
	Timestamp time.Time `json:"timestamp"`
	// Repository is the "owner/name" the event concerns
	Repository string `json:"repository"`
	// Severity is the severity level of this event
	Severity EventSeverity `json:"severity"`
	// Message is a human-readable description of the event
	Message string `json:"message"`
	// Data contains structured, type-specific data (must be JSON-serializable)
	Data map[string]interface{} `json:"data"`
}

// IssueData contains the payload of an inbound issue event. It mirrors
// the IssueRecord fields; repository identity travels on the envelope.
type IssueData struct {
	// Number is the issue number within the repository
	Number int `json:"issue_number"`
	// Title is the issue title
	Title string `json:"title"`
	// Description is the issue body text
	Description string `json:"description"`
	// State is the lifecycle state: "open" or "closed"
	State string `json:"state"`
	// CreatedAt is when the issue was created at the source
	CreatedAt time.Time `json:"created_at"`
	// UpdatedAt is when the issue was last updated at the source
	UpdatedAt time.Time `json:"updated_at"`
	// Labels are the labels already attached at the source
	Labels []string `json:"labels,omitempty"`
}

// TagsExtractedData contains the payload of a tags-extracted event.
type TagsExtractedData struct {
	// IssueID is the canonical "owner/name#number" issue identifier
	IssueID string `json:"issue_id"`
	// Title is the issue title, carried for display convenience
	Title string `json:"title"`
	// ExtractedTags are the normalized topic tags, in extraction order
	ExtractedTags []string `json:"extracted_tags"`
	// Source records which extractor produced the tags: "ai" or "fallback"
	Source string `json:"source"`
}

// Extraction source values for TagsExtractedData.Source.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
)

// SummaryReportData contains the payload of a summary-report event.
type SummaryReportData struct {
	GeneratedAt     time.Time              `json:"generated_at"`
	TotalIssues     int                    `json:"total_issues"`
	OpenIssues      int                    `json:"open_issues"`
	ClosedIssues    int                    `json:"closed_issues"`
	TopTags         []types.TagStat        `json:"top_tags"`
	Recommendations []types.Recommendation `json:"recommendations"`
}
