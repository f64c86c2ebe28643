package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/repolens/repolens/internal/types"
)

// NewIssueEvent creates an inbound issue event from an issue record.
func NewIssueEvent(record *types.IssueRecord) (*Event, error) {
	event := &Event{
		ID:         uuid.New().String(),
		Type:       EventTypeIssue,
		Timestamp:  time.Now(),
		Repository: record.Repository,
		Severity:   SeverityInfo,
		Message:    record.Title,
	}
	data := IssueData{
		Number:      record.Number,
		Title:       record.Title,
		Description: record.Description,
		State:       string(record.State),
		CreatedAt:   record.CreatedAt,
		UpdatedAt:   record.UpdatedAt,
		Labels:      record.Labels,
	}
	if err := event.SetIssueData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewTagsExtractedEvent creates an event announcing the tags extracted
// for a single issue.
func NewTagsExtractedEvent(repository string, data TagsExtractedData) (*Event, error) {
	event := &Event{
		ID:         uuid.New().String(),
		Type:       EventTypeTagsExtracted,
		Timestamp:  time.Now(),
		Repository: repository,
		Severity:   SeverityInfo,
		Message:    data.Title,
	}
	if err := event.SetTagsExtractedData(data); err != nil {
		return nil, err
	}
	return event, nil
}

// NewSummaryReportEvent creates an event carrying a freshly generated
// summary report.
func NewSummaryReportEvent(report *types.SummaryReport) (*Event, error) {
	event := &Event{
		ID:         uuid.New().String(),
		Type:       EventTypeSummaryReport,
		Timestamp:  time.Now(),
		Repository: report.Repository,
		Severity:   SeverityInfo,
		Message:    "summary report generated",
	}
	data := SummaryReportData{
		GeneratedAt:     report.GeneratedAt,
		TotalIssues:     report.TotalIssues,
		OpenIssues:      report.OpenIssues,
		ClosedIssues:    report.ClosedIssues,
		TopTags:         report.TopTags,
		Recommendations: report.Recommendations,
	}
	if err := event.SetSummaryReportData(data); err != nil {
		return nil, err
	}
	return event, nil
}
