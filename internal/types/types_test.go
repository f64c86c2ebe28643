package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIssueKeyString(t *testing.T) {
	key := IssueKey{Repository: "acme/widgets", Number: 42}
	assert.Equal(t, "acme/widgets#42", key.String())
}

func TestIssueRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		record  IssueRecord
		wantErr bool
		errMsg  string
	}{
		{
			name: "valid open issue",
			record: IssueRecord{
				Repository: "acme/widgets",
				Number:     1,
				Title:      "Crash on startup",
				State:      StateOpen,
			},
			wantErr: false,
		},
		{
			name: "valid closed issue",
			record: IssueRecord{
				Repository: "acme/widgets",
				Number:     2,
				State:      StateClosed,
			},
			wantErr: false,
		},
		{
			name: "missing repository",
			record: IssueRecord{
				Number: 1,
				State:  StateOpen,
			},
			wantErr: true,
			errMsg:  "repository is required",
		},
		{
			name: "zero issue number",
			record: IssueRecord{
				Repository: "acme/widgets",
				Number:     0,
				State:      StateOpen,
			},
			wantErr: true,
			errMsg:  "issue number must be positive",
		},
		{
			name: "negative issue number",
			record: IssueRecord{
				Repository: "acme/widgets",
				Number:     -3,
				State:      StateOpen,
			},
			wantErr: true,
			errMsg:  "issue number must be positive",
		},
		{
			name: "invalid state",
			record: IssueRecord{
				Repository: "acme/widgets",
				Number:     1,
				State:      IssueState("reopened"),
			},
			wantErr: true,
			errMsg:  "invalid issue state",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.record.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestIssueStateIsValid(t *testing.T) {
	assert.True(t, StateOpen.IsValid())
	assert.True(t, StateClosed.IsValid())
	assert.False(t, IssueState("in_progress").IsValid())
	assert.False(t, IssueState("").IsValid())
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Less(t, PriorityLow.Rank(), Priority("unknown").Rank())
}

func TestIssueRecordKey(t *testing.T) {
	record := IssueRecord{
		Repository: "acme/widgets",
		Number:     7,
		Title:      "Add dark mode",
		State:      StateOpen,
		CreatedAt:  time.Now(),
	}
	assert.Equal(t, IssueKey{Repository: "acme/widgets", Number: 7}, record.Key())
}
