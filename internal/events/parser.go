package events

import (
	"errors"
	"fmt"

	"github.com/repolens/repolens/internal/types"
)

// MalformedEventError indicates an inbound issue event is missing the
// identity fields required for processing. The event is dropped without
// any state mutation; this is a diagnostic, not a process fault.
type MalformedEventError struct {
	EventID string
	Reason  string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed issue event %s: %s", e.EventID, e.Reason)
}

// IsMalformed reports whether err is a MalformedEventError.
func IsMalformed(err error) bool {
	var malformed *MalformedEventError
	return errors.As(err, &malformed)
}

// ParseIssueEvent validates an inbound issue event and converts it into
// an issue record. Identity comes from the envelope's Repository plus
// the payload's issue number; both are required.
func ParseIssueEvent(event *Event) (*types.IssueRecord, error) {
	if event.Type != EventTypeIssue {
		return nil, &MalformedEventError{
			EventID: event.ID,
			Reason:  fmt.Sprintf("unexpected event type %q", event.Type),
		}
	}
	if event.Repository == "" {
		return nil, &MalformedEventError{
			EventID: event.ID,
			Reason:  "repository is required",
		}
	}

	data, err := event.GetIssueData()
	if err != nil {
		return nil, &MalformedEventError{
			EventID: event.ID,
			Reason:  fmt.Sprintf("invalid payload: %v", err),
		}
	}
	if data.Number <= 0 {
		return nil, &MalformedEventError{
			EventID: event.ID,
			Reason:  fmt.Sprintf("issue number must be positive (got %d)", data.Number),
		}
	}

	state := types.IssueState(data.State)
	if !state.IsValid() {
		// Tolerate unknown states from foreign trackers by treating
		// anything non-closed as open. Identity fields stay strict.
		state = types.StateOpen
	}

	return &types.IssueRecord{
		Repository:  event.Repository,
		Number:      data.Number,
		Title:       data.Title,
		Description: data.Description,
		State:       state,
		CreatedAt:   data.CreatedAt,
		UpdatedAt:   data.UpdatedAt,
		Labels:      data.Labels,
	}, nil
}
