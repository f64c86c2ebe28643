package agent

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/repolens/repolens/internal/events"
	"github.com/repolens/repolens/internal/report"
	"github.com/repolens/repolens/internal/tags"
	"github.com/repolens/repolens/internal/transport"
	"github.com/repolens/repolens/internal/types"
)

// task is one unit of work on a repository's mailbox: either an issue
// upsert or a report request, never both.
type task struct {
	ctx    context.Context
	record *types.IssueRecord
	report chan reportResult
	done   chan error
}

type reportResult struct {
	summary *types.SummaryReport
	err     error
}

// worker owns one repository's state. All mutations happen on the run
// loop, which serializes issue handling and report generation for the
// repository (the explicit-mailbox rendering of an actor).
type worker struct {
	agent   *Agent
	state   *repositoryState
	mailbox chan *task

	// mu guards the mailbox against shutdown. Senders hold the read
	// lock across the send, so shutdown cannot close the channel while
	// a send is in flight; every accepted task is drained by the run
	// loop before it exits.
	mu     sync.RWMutex
	closed bool
}

// send enqueues a task unless the worker has shut down.
func (w *worker) send(ctx context.Context, t *task) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return fmt.Errorf("agent is closed")
	}
	select {
	case w.mailbox <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shutdown closes the mailbox once all in-flight sends have finished.
// Tasks accepted before shutdown are still processed by the run loop.
func (w *worker) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.mailbox)
}

// submitIssue enqueues an issue and waits for it to be fully absorbed.
func (w *worker) submitIssue(ctx context.Context, record *types.IssueRecord) error {
	done := make(chan error, 1)
	if err := w.send(ctx, &task{ctx: ctx, record: record, done: done}); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// enqueueIssue enqueues an issue without waiting for completion.
func (w *worker) enqueueIssue(ctx context.Context, record *types.IssueRecord) error {
	return w.send(ctx, &task{ctx: ctx, record: record})
}

// submitReport enqueues a report request and waits for the result.
func (w *worker) submitReport(ctx context.Context) (*types.SummaryReport, error) {
	reply := make(chan reportResult, 1)
	if err := w.send(ctx, &task{ctx: ctx, report: reply}); err != nil {
		return nil, err
	}
	select {
	case result := <-reply:
		return result.summary, result.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// run drains the mailbox until the agent closes it.
func (w *worker) run() {
	defer w.agent.wg.Done()
	for t := range w.mailbox {
		switch {
		case t.record != nil:
			err := w.processIssue(t.ctx, t.record)
			if t.done != nil {
				t.done <- err
			} else if err != nil {
				fmt.Fprintf(os.Stderr, "issue event processing failed for %s: %v\n", t.record.Key(), err)
			}
		case t.report != nil:
			summary, err := w.produceReport(t.ctx)
			t.report <- reportResult{summary: summary, err: err}
		}
	}
}

// processIssue is the core event-handling path: upsert the record
// (full replace, last write wins by arrival order), extract tags with
// fallback-on-failure, store the tag set, and publish exactly one
// tags-extracted event.
func (w *worker) processIssue(ctx context.Context, record *types.IssueRecord) error {
	w.state.upsert(record)

	extracted, source := w.extract(ctx, record)
	key := record.Key()
	w.state.setTags(key, extracted)

	event, err := events.NewTagsExtractedEvent(record.Repository, events.TagsExtractedData{
		IssueID:       key.String(),
		Title:         record.Title,
		ExtractedTags: extracted,
		Source:        source,
	})
	if err != nil {
		return fmt.Errorf("failed to build tags-extracted event: %w", err)
	}
	return w.agent.emit(ctx, transport.TopicTagsExtracted, event)
}

// extract runs the primary extractor when configured, falling back to
// the deterministic keyword extractor on any failure. The fallback
// applies per issue only: one failed call does not disable the AI path
// for subsequent issues.
func (w *worker) extract(ctx context.Context, record *types.IssueRecord) ([]string, string) {
	if w.agent.primary != nil {
		extracted, err := w.agent.primary.ExtractTags(ctx, record)
		if err == nil {
			return extracted, events.SourceAI
		}
		if tags.IsExtractionError(err) {
			fmt.Fprintf(os.Stderr, "AI tag extraction failed for %s, using fallback: %v\n", record.Key(), err)
		} else {
			fmt.Fprintf(os.Stderr, "unexpected extractor error for %s, using fallback: %v\n", record.Key(), err)
		}
	}

	extracted, _ := w.agent.fallback.ExtractTags(ctx, record)
	return extracted, events.SourceFallback
}

// produceReport generates a report from the current state snapshot,
// stores it as the repository's latest, and publishes it.
func (w *worker) produceReport(ctx context.Context) (*types.SummaryReport, error) {
	ordered := w.state.orderedIssues()
	if len(ordered) == 0 {
		return nil, report.ErrNoIssues
	}

	summary, err := w.agent.generator.Generate(w.state.repository, ordered, w.state.tagSnapshot())
	if err != nil {
		return nil, err
	}
	w.state.lastReport = summary

	event, err := events.NewSummaryReportEvent(summary)
	if err != nil {
		return nil, fmt.Errorf("failed to build summary-report event: %w", err)
	}
	if err := w.agent.emit(ctx, transport.TopicReports, event); err != nil {
		return nil, err
	}

	fmt.Printf("summary report for %s: %d issues (%d open, %d closed), %d top tags, %d recommendations\n",
		summary.Repository, summary.TotalIssues, summary.OpenIssues, summary.ClosedIssues,
		len(summary.TopTags), len(summary.Recommendations))

	return summary, nil
}
