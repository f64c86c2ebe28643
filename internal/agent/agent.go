// Package agent implements the analysis agent: a stateful,
// single-writer-per-repository event processor that consumes issue
// events, drives tag extraction with a deterministic fallback, and
// produces summary reports on demand.
package agent

import (
	"context"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/repolens/repolens/internal/events"
	"github.com/repolens/repolens/internal/report"
	"github.com/repolens/repolens/internal/tags"
	"github.com/repolens/repolens/internal/transport"
	"github.com/repolens/repolens/internal/types"
)

// Recorder persists published events for later inspection. Recording
// is observability only; a Recorder failure never fails event handling.
type Recorder interface {
	Record(ctx context.Context, event *events.Event) error
}

// Config holds agent configuration.
type Config struct {
	Bus transport.Bus // Required: outbound event transport

	// Extractor is the primary (AI-backed) tag extractor. Optional:
	// when nil the agent runs on the fallback alone.
	Extractor tags.Extractor

	// Generator computes summary reports (defaults to the default policy)
	Generator *report.Generator

	// Recorder journals published events. Optional.
	Recorder Recorder

	// MailboxSize is the per-repository mailbox buffer (default: 64)
	MailboxSize int
}

// Agent consumes issue events and owns all per-repository analysis
// state. One worker goroutine per repository serializes issue handling
// and report generation for that repository; distinct repositories
// process fully in parallel with no shared mutable state.
type Agent struct {
	bus       transport.Bus
	primary   tags.Extractor
	fallback  tags.Extractor
	generator *report.Generator
	recorder  Recorder
	mailbox   int

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
	wg      sync.WaitGroup
}

// New creates an analysis agent.
func New(cfg *Config) (*Agent, error) {
	if cfg.Bus == nil {
		return nil, fmt.Errorf("transport bus is required")
	}

	generator := cfg.Generator
	if generator == nil {
		var err error
		generator, err = report.NewGenerator(report.DefaultPolicy())
		if err != nil {
			return nil, err
		}
	}

	mailbox := cfg.MailboxSize
	if mailbox <= 0 {
		mailbox = 64
	}

	return &Agent{
		bus:       cfg.Bus,
		primary:   cfg.Extractor,
		fallback:  tags.NewFallbackExtractor(),
		generator: generator,
		recorder:  cfg.Recorder,
		mailbox:   mailbox,
		workers:   make(map[string]*worker),
	}, nil
}

// HandleIssueEvent processes one inbound issue event to completion:
// the record is upserted, tags are extracted (falling back on any
// extraction error), and exactly one tags-extracted event is
// published. A malformed event is dropped with a diagnostic and no
// state mutation. Extraction failure is never surfaced: it degrades
// tag quality, not availability.
//
// Calls for the same repository are serialized on that repository's
// worker; calls for different repositories may run concurrently.
func (a *Agent) HandleIssueEvent(ctx context.Context, event *events.Event) error {
	record, err := events.ParseIssueEvent(event)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dropping malformed issue event: %v\n", err)
		return err
	}

	w, err := a.workerFor(record.Repository)
	if err != nil {
		return err
	}
	return w.submitIssue(ctx, record)
}

// GenerateSummaryReport computes, stores, and publishes a summary
// report for the repository. Returns report.ErrNoIssues when the
// repository has no known issues: a report with zero issues is never
// emitted. Generation runs on the repository's worker, so it can never
// interleave with issue handling for the same repository.
func (a *Agent) GenerateSummaryReport(ctx context.Context, repository string) (*types.SummaryReport, error) {
	a.mu.Lock()
	w, known := a.workers[repository]
	a.mu.Unlock()
	if !known {
		return nil, report.ErrNoIssues
	}
	return w.submitReport(ctx)
}

// Run consumes the issues topic until the subscription's stream closes
// or ctx is canceled. Events are dispatched to per-repository workers
// without waiting for completion, so repositories progress in
// parallel; within one repository mailbox order preserves delivery
// order.
func (a *Agent) Run(ctx context.Context, sub *transport.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-sub.Events():
			if !ok {
				return nil
			}
			record, err := events.ParseIssueEvent(event)
			if err != nil {
				fmt.Fprintf(os.Stderr, "dropping malformed issue event: %v\n", err)
				continue
			}
			w, err := a.workerFor(record.Repository)
			if err != nil {
				return err
			}
			if err := w.enqueueIssue(ctx, record); err != nil {
				return err
			}
		}
	}
}

// Close shuts down all workers. Queued work is drained first: an
// in-flight issue event either completes fully (record, tags,
// published event) or was never accepted. Concurrent submissions
// racing with Close either land before the mailbox closes and are
// processed, or fail with "agent is closed"; they never panic.
func (a *Agent) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	workers := make([]*worker, 0, len(a.workers))
	for _, w := range a.workers {
		workers = append(workers, w)
	}
	a.mu.Unlock()

	// Shutdown happens outside the agent lock: a sender blocked on a
	// full mailbox holds the worker's read lock until the run loop
	// makes room, and must not also be able to block agent-level state.
	for _, w := range workers {
		w.shutdown()
	}
	a.wg.Wait()
}

// Repositories returns the repositories the agent has seen issues for,
// sorted.
func (a *Agent) Repositories() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	repos := make([]string, 0, len(a.workers))
	for repository := range a.workers {
		repos = append(repos, repository)
	}
	sort.Strings(repos)
	return repos
}

// workerFor returns the repository's worker, spawning it on first use.
func (a *Agent) workerFor(repository string) (*worker, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, fmt.Errorf("agent is closed")
	}
	if w, known := a.workers[repository]; known {
		return w, nil
	}

	w := &worker{
		agent:   a,
		state:   newRepositoryState(repository),
		mailbox: make(chan *task, a.mailbox),
	}
	a.workers[repository] = w
	a.wg.Add(1)
	go w.run()
	return w, nil
}

// emit publishes an event and journals it. Journal failures are logged
// and swallowed: recording is best-effort observability.
func (a *Agent) emit(ctx context.Context, topic string, event *events.Event) error {
	if err := a.bus.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.Type, err)
	}
	if a.recorder != nil {
		if err := a.recorder.Record(ctx, event); err != nil {
			fmt.Fprintf(os.Stderr, "failed to journal %s event: %v\n", event.Type, err)
		}
	}
	return nil
}
