package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/types"
)

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	generator, err := NewGenerator(DefaultPolicy())
	require.NoError(t, err)
	return generator
}

func issueAt(repo string, number int, state types.IssueState, created time.Time) *types.IssueRecord {
	return &types.IssueRecord{
		Repository: repo,
		Number:     number,
		Title:      "issue",
		State:      state,
		CreatedAt:  created,
	}
}

func TestGenerateEmptyRepository(t *testing.T) {
	generator := newTestGenerator(t)
	_, err := generator.Generate("acme/widgets", nil, nil)
	assert.ErrorIs(t, err, ErrNoIssues)
}

func TestGenerateCounts(t *testing.T) {
	generator := newTestGenerator(t)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	issues := []*types.IssueRecord{
		issueAt("acme/widgets", 1, types.StateOpen, base.AddDate(0, 1, 0)),
		issueAt("acme/widgets", 2, types.StateClosed, base),
		issueAt("acme/widgets", 3, types.StateOpen, base.AddDate(0, 2, 0)),
	}

	summary, err := generator.Generate("acme/widgets", issues, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalIssues)
	assert.Equal(t, 2, summary.OpenIssues)
	assert.Equal(t, 1, summary.ClosedIssues)
	assert.Equal(t, base, summary.OldestIssueDate)
	assert.Equal(t, base.AddDate(0, 2, 0), summary.NewestIssueDate)
	assert.Empty(t, summary.TopTags)
	assert.Empty(t, summary.Recommendations, "no tags means no recommendations, which is valid")
}

// TestDuplicateTagsWithinIssueCountOnce pins counting to distinct
// issues: a tag repeated inside one issue's tag set must not inflate
// its frequency or push a priority fraction past 1.
func TestDuplicateTagsWithinIssueCountOnce(t *testing.T) {
	generator := newTestGenerator(t)
	now := time.Now()

	issues := []*types.IssueRecord{
		issueAt("o/r", 1, types.StateOpen, now),
		issueAt("o/r", 2, types.StateOpen, now),
	}
	tagSets := map[types.IssueKey][]string{
		{Repository: "o/r", Number: 1}: {"refactor", "Refactor", "refactor"},
		{Repository: "o/r", Number: 2}: {"ui"},
	}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)

	assert.Contains(t, summary.TopTags, types.TagStat{Tag: "refactor", Count: 1})

	for _, rec := range summary.Recommendations {
		require.Len(t, rec.SupportingIssues, 1)
	}
	// 1 of 2 distinct issues carries "refactor": a 50% fraction, High
	// by threshold. The 3 raw occurrences must play no part.
	require.NotEmpty(t, summary.Recommendations)
	assert.Equal(t, types.PriorityHigh, summary.Recommendations[0].Priority)
	assert.Equal(t, []string{"o/r#1"}, summary.Recommendations[0].SupportingIssues)
}

func TestGenerateTagFrequency(t *testing.T) {
	generator := newTestGenerator(t)
	now := time.Now()

	issues := []*types.IssueRecord{
		issueAt("o/r", 1, types.StateOpen, now),
		issueAt("o/r", 2, types.StateOpen, now),
		issueAt("o/r", 3, types.StateOpen, now),
	}
	tagSets := map[types.IssueKey][]string{
		{Repository: "o/r", Number: 1}: {"Bug", "ui"},
		{Repository: "o/r", Number: 2}: {"bug", "backend"},
		{Repository: "o/r", Number: 3}: {"BUG", "ui"},
	}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)

	require.NotEmpty(t, summary.TopTags)
	// Case-insensitive counting, first-seen casing preserved.
	assert.Equal(t, types.TagStat{Tag: "Bug", Count: 3}, summary.TopTags[0])
	assert.Equal(t, types.TagStat{Tag: "ui", Count: 2}, summary.TopTags[1])
	assert.Equal(t, types.TagStat{Tag: "backend", Count: 1}, summary.TopTags[2])
}

func TestGenerateTagTieBreakFirstSeen(t *testing.T) {
	generator := newTestGenerator(t)
	now := time.Now()

	issues := []*types.IssueRecord{
		issueAt("o/r", 1, types.StateOpen, now),
	}
	tagSets := map[types.IssueKey][]string{
		{Repository: "o/r", Number: 1}: {"zebra", "alpha", "middle"},
	}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)

	// All counts equal: order must follow first-seen insertion order,
	// not lexical order.
	require.Len(t, summary.TopTags, 3)
	assert.Equal(t, "zebra", summary.TopTags[0].Tag)
	assert.Equal(t, "alpha", summary.TopTags[1].Tag)
	assert.Equal(t, "middle", summary.TopTags[2].Tag)
}

func TestGenerateTopTagsTruncation(t *testing.T) {
	policy := DefaultPolicy()
	policy.TopTags = 2
	generator, err := NewGenerator(policy)
	require.NoError(t, err)

	issues := []*types.IssueRecord{issueAt("o/r", 1, types.StateOpen, time.Now())}
	tagSets := map[types.IssueKey][]string{
		{Repository: "o/r", Number: 1}: {"a", "b", "c", "d"},
	}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)
	assert.Len(t, summary.TopTags, 2)
}

func TestRecommendationPriorities(t *testing.T) {
	generator := newTestGenerator(t)
	now := time.Now()

	// 10 issues: "crash" on 2 (20% → urgency keyword forces High),
	// "refactor" on 5 (50% → High by frequency), "cleanup" on 3
	// (30% → Medium), "docs" on 2 (20% → Low... 20% is Medium cutoff).
	var issues []*types.IssueRecord
	tagSets := make(map[types.IssueKey][]string)
	for i := 1; i <= 10; i++ {
		issues = append(issues, issueAt("o/r", i, types.StateOpen, now))
		key := types.IssueKey{Repository: "o/r", Number: i}
		var set []string
		if i <= 2 {
			set = append(set, "crash")
		}
		if i <= 5 {
			set = append(set, "refactor")
		}
		if i <= 3 {
			set = append(set, "cleanup")
		}
		if i == 9 || i == 10 {
			set = append(set, "docs")
		}
		tagSets[key] = set
	}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)

	byTitle := make(map[string]types.Recommendation)
	for _, rec := range summary.Recommendations {
		byTitle[rec.Title] = rec
		assert.NotEmpty(t, rec.SupportingIssues, "every recommendation needs evidence")
	}

	crash := byTitle[`Address recurring "crash" theme`]
	assert.Equal(t, types.PriorityHigh, crash.Priority, "urgency keyword forces High")

	refactor := byTitle[`Address recurring "refactor" theme`]
	assert.Equal(t, types.PriorityHigh, refactor.Priority, "50%% frequency is High")

	cleanup := byTitle[`Address recurring "cleanup" theme`]
	assert.Equal(t, types.PriorityMedium, cleanup.Priority)

	docs := byTitle[`Address recurring "docs" theme`]
	assert.Equal(t, types.PriorityMedium, docs.Priority, "20%% sits exactly on the Medium cutoff")

	// Ordering: High bucket first, then by true supporting count desc.
	require.GreaterOrEqual(t, len(summary.Recommendations), 4)
	assert.Equal(t, `Address recurring "refactor" theme`, summary.Recommendations[0].Title)
	assert.Equal(t, `Address recurring "crash" theme`, summary.Recommendations[1].Title)
}

func TestRecommendationDisplayTruncationKeepsTrueOrdering(t *testing.T) {
	policy := DefaultPolicy()
	policy.MaxSupportingDisplay = 2
	generator, err := NewGenerator(policy)
	require.NoError(t, err)

	now := time.Now()
	var issues []*types.IssueRecord
	tagSets := make(map[types.IssueKey][]string)
	for i := 1; i <= 8; i++ {
		issues = append(issues, issueAt("o/r", i, types.StateOpen, now))
		key := types.IssueKey{Repository: "o/r", Number: i}
		// "everywhere" on all 8 issues, "common" on 3.
		tagSets[key] = []string{"everywhere"}
		if i <= 3 {
			tagSets[key] = append(tagSets[key], "common")
		}
	}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)
	require.Len(t, summary.Recommendations, 2)

	// "everywhere" (8 supporters) outranks "common" (3) even though
	// both display only 2 ids.
	assert.Contains(t, summary.Recommendations[0].Title, "everywhere")
	assert.Len(t, summary.Recommendations[0].SupportingIssues, 2)
	assert.Contains(t, summary.Recommendations[0].Description, "8 of 8")
}

func TestSupportThresholdSmallRepository(t *testing.T) {
	generator := newTestGenerator(t)
	now := time.Now()

	// 2 issues: ceil(0.2*2)=1, smaller than the absolute floor of 3,
	// so a single occurrence qualifies.
	issues := []*types.IssueRecord{
		issueAt("o/r", 1, types.StateOpen, now),
		issueAt("o/r", 2, types.StateOpen, now),
	}
	tagSets := map[types.IssueKey][]string{
		{Repository: "o/r", Number: 1}: {"lonely"},
	}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)
	require.Len(t, summary.Recommendations, 1)
	assert.Equal(t, []string{"o/r#1"}, summary.Recommendations[0].SupportingIssues)
}

func TestSupportThresholdLargeRepository(t *testing.T) {
	generator := newTestGenerator(t)
	now := time.Now()

	// 100 issues: threshold = min(3, ceil(20)) = 3. A tag on two
	// issues must not produce a recommendation.
	var issues []*types.IssueRecord
	tagSets := make(map[types.IssueKey][]string)
	for i := 1; i <= 100; i++ {
		issues = append(issues, issueAt("o/r", i, types.StateOpen, now))
	}
	tagSets[types.IssueKey{Repository: "o/r", Number: 1}] = []string{"rare"}
	tagSets[types.IssueKey{Repository: "o/r", Number: 2}] = []string{"rare"}

	summary, err := generator.Generate("o/r", issues, tagSets)
	require.NoError(t, err)
	assert.Empty(t, summary.Recommendations)
}

func TestPolicyValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Policy)
		wantErr string
	}{
		{"default is valid", func(p *Policy) {}, ""},
		{"zero top tags", func(p *Policy) { p.TopTags = 0 }, "top_tags"},
		{"negative support", func(p *Policy) { p.MinSupportCount = -1 }, "min_support_count"},
		{"fraction above one", func(p *Policy) { p.MinSupportFraction = 1.5 }, "min_support_fraction"},
		{"medium above high", func(p *Policy) { p.MediumFraction = 0.9 }, "medium_fraction"},
		{"display cap zero", func(p *Policy) { p.MaxSupportingDisplay = 0 }, "max_supporting_display"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			policy := DefaultPolicy()
			tt.mutate(&policy)
			err := policy.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
