package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/events"
	"github.com/repolens/repolens/internal/report"
	"github.com/repolens/repolens/internal/transport"
	"github.com/repolens/repolens/internal/types"
)

// fakeExtractor is a scriptable primary extractor.
type fakeExtractor struct {
	tags  []string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeExtractor) ExtractTags(_ context.Context, _ *types.IssueRecord) ([]string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.tags, nil
}

func (f *fakeExtractor) Name() string { return "fake" }

func newTestAgent(t *testing.T, primary *fakeExtractor) (*Agent, *transport.MemoryBus) {
	t.Helper()
	bus := transport.NewMemoryBus()
	t.Cleanup(func() { _ = bus.Close() })

	cfg := &Config{Bus: bus}
	if primary != nil {
		cfg.Extractor = primary
	}
	a, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, bus
}

func issueEvent(t *testing.T, record *types.IssueRecord) *events.Event {
	t.Helper()
	event, err := events.NewIssueEvent(record)
	require.NoError(t, err)
	return event
}

func collect(t *testing.T, sub *transport.Subscription, n int) []*events.Event {
	t.Helper()
	var got []*events.Event
	for i := 0; i < n; i++ {
		select {
		case event := <-sub.Events():
			got = append(got, event)
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for event %d of %d", i+1, n)
		}
	}
	return got
}

func TestHandleIssueEventEmitsTags(t *testing.T) {
	primary := &fakeExtractor{tags: []string{"auth", "login", "bug"}}
	a, bus := newTestAgent(t, primary)

	sub, err := bus.Subscribe(transport.TopicTagsExtracted)
	require.NoError(t, err)

	record := &types.IssueRecord{
		Repository:  "acme/widgets",
		Number:      1,
		Title:       "Login broken",
		Description: "Cannot log in",
		State:       types.StateOpen,
		CreatedAt:   time.Now(),
	}
	require.NoError(t, a.HandleIssueEvent(context.Background(), issueEvent(t, record)))

	got := collect(t, sub, 1)
	data, err := got[0].GetTagsExtractedData()
	require.NoError(t, err)
	assert.Equal(t, "acme/widgets#1", data.IssueID)
	assert.Equal(t, []string{"auth", "login", "bug"}, data.ExtractedTags)
	assert.Equal(t, events.SourceAI, data.Source)
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestFallbackOnExtractionFailure(t *testing.T) {
	primary := &fakeExtractor{err: fmt.Errorf("simulated timeout")}
	a, bus := newTestAgent(t, primary)

	sub, err := bus.Subscribe(transport.TopicTagsExtracted)
	require.NoError(t, err)

	record := &types.IssueRecord{
		Repository:  "acme/widgets",
		Number:      7,
		Title:       "App crashes on start",
		Description: "bug crash",
		State:       types.StateOpen,
	}

	// Extraction failure must not fail event handling.
	require.NoError(t, a.HandleIssueEvent(context.Background(), issueEvent(t, record)))

	got := collect(t, sub, 1)
	data, err := got[0].GetTagsExtractedData()
	require.NoError(t, err)
	assert.Equal(t, events.SourceFallback, data.Source)
	assert.NotEmpty(t, data.ExtractedTags)
	assert.Contains(t, data.ExtractedTags, "bug")
	assert.Contains(t, data.ExtractedTags, "open")
}

func TestFallbackAppliesPerIssueOnly(t *testing.T) {
	primary := &fakeExtractor{tags: []string{"ai-tag"}}
	a, bus := newTestAgent(t, primary)

	sub, err := bus.Subscribe(transport.TopicTagsExtracted)
	require.NoError(t, err)
	ctx := context.Background()

	// First issue fails, second succeeds: no agent-wide breaker.
	primary.err = fmt.Errorf("transient failure")
	require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 1, Title: "first", State: types.StateOpen,
	})))
	primary.err = nil
	require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 2, Title: "second", State: types.StateOpen,
	})))

	got := collect(t, sub, 2)
	first, err := got[0].GetTagsExtractedData()
	require.NoError(t, err)
	second, err := got[1].GetTagsExtractedData()
	require.NoError(t, err)
	assert.Equal(t, events.SourceFallback, first.Source)
	assert.Equal(t, events.SourceAI, second.Source)
	assert.Equal(t, int32(2), primary.calls.Load(), "the AI path is attempted again after a failure")
}

func TestIdempotentKeyReplace(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	ctx := context.Background()

	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 1, 0)

	first := &types.IssueRecord{
		Repository: "o/r", Number: 1, Title: "original title",
		State: types.StateOpen, CreatedAt: older, UpdatedAt: newer,
	}
	// Same key, OLDER embedded timestamp: arrival order still wins.
	second := &types.IssueRecord{
		Repository: "o/r", Number: 1, Title: "replacement title",
		State: types.StateClosed, CreatedAt: older, UpdatedAt: older,
	}

	require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, first)))
	require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, second)))

	w := a.workers["o/r"]
	require.NotNil(t, w)
	require.Len(t, w.state.issues, 1, "duplicate keys collapse to one record")

	stored := w.state.issues[types.IssueKey{Repository: "o/r", Number: 1}]
	assert.Equal(t, "replacement title", stored.Title)
	assert.Equal(t, types.StateClosed, stored.State)
	assert.Equal(t, older, stored.UpdatedAt, "last write by ARRIVAL order, not embedded timestamp")
	assert.Equal(t, uint64(2), w.state.watermark)
}

func TestTagSetConsistencyInvariant(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	ctx := context.Background()

	for i := 1; i <= 10; i++ {
		require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
			Repository: "o/r", Number: i,
			Title: fmt.Sprintf("issue %d", i), State: types.StateOpen,
		})))
	}
	// Reprocess a few duplicates.
	for i := 1; i <= 3; i++ {
		require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
			Repository: "o/r", Number: i,
			Title: fmt.Sprintf("issue %d again", i), State: types.StateClosed,
		})))
	}

	w := a.workers["o/r"]
	require.NotNil(t, w)
	for key := range w.state.tags {
		_, present := w.state.issues[key]
		assert.True(t, present, "tag set key %s must exist in the issue map", key)
	}
	assert.Len(t, w.state.issues, 10)
	assert.Len(t, w.state.tags, 10)
}

func TestMalformedEventDropped(t *testing.T) {
	a, _ := newTestAgent(t, nil)

	event := issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 1, State: types.StateOpen,
	})
	event.Repository = ""

	err := a.HandleIssueEvent(context.Background(), event)
	require.Error(t, err)
	assert.True(t, events.IsMalformed(err))
	assert.Empty(t, a.workers, "no state may be created for a malformed event")
}

func TestGenerateSummaryReportNoData(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	_, err := a.GenerateSummaryReport(context.Background(), "never/seen")
	assert.ErrorIs(t, err, report.ErrNoIssues)
}

func TestGenerateSummaryReportPublishes(t *testing.T) {
	a, bus := newTestAgent(t, nil)
	ctx := context.Background()

	reportsSub, err := bus.Subscribe(transport.TopicReports)
	require.NoError(t, err)

	require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 1, Title: "a bug", Description: "fix it",
		State: types.StateOpen, CreatedAt: time.Now(),
	})))

	summary, err := a.GenerateSummaryReport(ctx, "o/r")
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalIssues)

	got := collect(t, reportsSub, 1)
	assert.Equal(t, events.EventTypeSummaryReport, got[0].Type)
	data, err := got[0].GetSummaryReportData()
	require.NoError(t, err)
	assert.Equal(t, 1, data.TotalIssues)

	// The latest report is retained on the repository state.
	assert.Same(t, summary, a.workers["o/r"].state.lastReport)
}

// TestScenarioCrashAndDarkMode pins the end-to-end fallback scenario:
// two issues, fallback extraction, then a report.
func TestScenarioCrashAndDarkMode(t *testing.T) {
	a, bus := newTestAgent(t, nil)
	ctx := context.Background()

	tagsSub, err := bus.Subscribe(transport.TopicTagsExtracted)
	require.NoError(t, err)

	require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 1, Title: "App crashes on start",
		Description: "bug crash", State: types.StateOpen,
	})))
	require.NoError(t, a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 2, Title: "Add dark mode",
		Description: "feature request", State: types.StateOpen,
		Labels: []string{"enhancement"},
	})))

	got := collect(t, tagsSub, 2)
	first, err := got[0].GetTagsExtractedData()
	require.NoError(t, err)
	assert.Contains(t, first.ExtractedTags, "bug")
	assert.Contains(t, first.ExtractedTags, "open")

	second, err := got[1].GetTagsExtractedData()
	require.NoError(t, err)
	assert.Contains(t, second.ExtractedTags, "feature")
	assert.Contains(t, second.ExtractedTags, "enhancement")
	assert.Contains(t, second.ExtractedTags, "open")

	summary, err := a.GenerateSummaryReport(ctx, "o/r")
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalIssues)
	assert.Equal(t, 2, summary.OpenIssues)
	assert.Equal(t, 0, summary.ClosedIssues)
	assert.Contains(t, summary.TopTags, types.TagStat{Tag: "open", Count: 2})

	for _, rec := range summary.Recommendations {
		assert.NotEmpty(t, rec.SupportingIssues)
	}
}

func TestRepositoriesProcessIndependently(t *testing.T) {
	a, _ := newTestAgent(t, nil)
	ctx := context.Background()

	repos := []string{"acme/a", "acme/b", "acme/c"}
	done := make(chan error, len(repos)*20)
	for _, repo := range repos {
		go func(repo string) {
			for i := 1; i <= 20; i++ {
				done <- a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
					Repository: repo, Number: i,
					Title: fmt.Sprintf("issue %d", i), State: types.StateOpen,
				}))
			}
		}(repo)
	}
	for i := 0; i < len(repos)*20; i++ {
		require.NoError(t, <-done)
	}

	for _, repo := range repos {
		summary, err := a.GenerateSummaryReport(ctx, repo)
		require.NoError(t, err)
		assert.Equal(t, 20, summary.TotalIssues, "repository %s", repo)
	}
}

func TestRunConsumesIssueTopic(t *testing.T) {
	bus := transport.NewMemoryBus()

	a, err := New(&Config{Bus: bus})
	require.NoError(t, err)
	defer a.Close()

	issuesSub, err := bus.Subscribe(transport.TopicIssues)
	require.NoError(t, err)
	tagsSub, err := bus.Subscribe(transport.TopicTagsExtracted)
	require.NoError(t, err)

	runDone := make(chan error, 1)
	go func() { runDone <- a.Run(context.Background(), issuesSub) }()

	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		event := issueEvent(t, &types.IssueRecord{
			Repository: "o/r", Number: i,
			Title: fmt.Sprintf("issue %d", i), State: types.StateOpen,
		})
		require.NoError(t, bus.Publish(ctx, transport.TopicIssues, event))
	}

	got := collect(t, tagsSub, 5)
	assert.Len(t, got, 5)

	// Closing the bus ends the stream; Run returns cleanly.
	require.NoError(t, bus.Close())
	select {
	case err := <-runDone:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after stream close")
	}
}

func TestCloseRejectsNewWork(t *testing.T) {
	bus := transport.NewMemoryBus()
	defer func() { _ = bus.Close() }()

	a, err := New(&Config{Bus: bus})
	require.NoError(t, err)

	require.NoError(t, a.HandleIssueEvent(context.Background(), issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 1, State: types.StateOpen, Title: "x",
	})))
	a.Close()

	err = a.HandleIssueEvent(context.Background(), issueEvent(t, &types.IssueRecord{
		Repository: "o/r", Number: 2, State: types.StateOpen, Title: "y",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent is closed")
}

// TestCloseDuringBlockedSubmissions closes the agent while submitters
// are backed up behind a tiny mailbox and a slow extractor. Every
// submission must either complete fully or fail with "agent is
// closed"; the process must not panic on a closed mailbox.
func TestCloseDuringBlockedSubmissions(t *testing.T) {
	bus := transport.NewMemoryBus()
	defer func() { _ = bus.Close() }()

	a, err := New(&Config{
		Bus:         bus,
		Extractor:   &fakeExtractor{tags: []string{"x"}, delay: 5 * time.Millisecond},
		MailboxSize: 1,
	})
	require.NoError(t, err)

	ctx := context.Background()
	const submitters = 4
	results := make(chan error, submitters*5)
	var wg sync.WaitGroup
	for g := 0; g < submitters; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 1; i <= 5; i++ {
				results <- a.HandleIssueEvent(ctx, issueEvent(t, &types.IssueRecord{
					Repository: "o/r", Number: g*100 + i,
					Title: "queued", State: types.StateOpen,
				}))
			}
		}(g)
	}

	time.Sleep(10 * time.Millisecond)
	a.Close()
	wg.Wait()
	close(results)

	completed := 0
	for err := range results {
		if err == nil {
			completed++
			continue
		}
		assert.Contains(t, err.Error(), "agent is closed")
	}
	assert.Greater(t, completed, 0, "submissions in flight before Close still complete")
}

func TestNewRequiresBus(t *testing.T) {
	_, err := New(&Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bus is required")
}
