package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/repolens/repolens/internal/events"
)

// displayJournalEvent formats and prints a single event with a
// consistent two-line format.
func displayJournalEvent(event *events.Event) {
	emoji := eventEmoji(event)
	timestamp := event.Timestamp.Format("15:04:05")

	repoColor := color.New(color.FgGreen)
	typeColor := color.New(color.FgMagenta)

	fmt.Printf("%s [%s] %s %s: %s\n",
		emoji,
		timestamp,
		repoColor.Sprint(event.Repository),
		typeColor.Sprint(event.Type),
		severityColor(event.Severity).Sprint(truncateString(event.Message, 60)),
	)

	metadata := eventMetadata(event)
	if metadata != "" {
		gray := color.New(color.FgHiBlack)
		fmt.Printf("  %s\n", gray.Sprint(metadata))
	} else {
		fmt.Println()
	}
}

func eventEmoji(event *events.Event) string {
	switch event.Type {
	case events.EventTypeIssue:
		return "📥"
	case events.EventTypeTagsExtracted:
		return "🏷️"
	case events.EventTypeSummaryReport:
		return "📊"
	}

	switch event.Severity {
	case events.SeverityWarning:
		return "⚠️"
	case events.SeverityError:
		return "❌"
	default:
		return "•"
	}
}

func severityColor(severity events.EventSeverity) *color.Color {
	switch severity {
	case events.SeverityWarning:
		return color.New(color.FgYellow)
	case events.SeverityError:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// eventMetadata builds the second display line from the typed payload.
// Unparsable payloads yield an empty string rather than an error: tail
// output degrades, it does not fail.
func eventMetadata(event *events.Event) string {
	switch event.Type {
	case events.EventTypeIssue:
		data, err := event.GetIssueData()
		if err != nil {
			return ""
		}
		parts := []string{fmt.Sprintf("#%d", data.Number), data.State}
		if len(data.Labels) > 0 {
			parts = append(parts, strings.Join(data.Labels, ","))
		}
		return strings.Join(parts, " | ")

	case events.EventTypeTagsExtracted:
		data, err := event.GetTagsExtractedData()
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%s | %d tags | source=%s",
			data.IssueID, len(data.ExtractedTags), data.Source)

	case events.EventTypeSummaryReport:
		data, err := event.GetSummaryReportData()
		if err != nil {
			return ""
		}
		return fmt.Sprintf("%d issues (%d open) | %d recommendations",
			data.TotalIssues, data.OpenIssues, len(data.Recommendations))
	}
	return ""
}

// truncateString shortens s to maxLen runes, appending "..." when cut.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
