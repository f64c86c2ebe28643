package agent

import (
	"github.com/repolens/repolens/internal/types"
)

// repositoryState is one repository's accumulated analysis state. It
// is owned exclusively by that repository's worker goroutine: all
// reads and writes happen on the worker loop, which is what enforces
// the single-writer invariant. Nothing outside the agent can reach it.
type repositoryState struct {
	repository string

	// issues maps key -> current record. Records are replaced
	// wholesale on re-delivery (last write wins by arrival order).
	issues map[types.IssueKey]*types.IssueRecord

	// order tracks first-arrival order of keys. Report generation and
	// tag first-seen tie-breaks follow this order.
	order []types.IssueKey

	// tags maps key -> extracted tag set. Every key here is also
	// present in issues; tags are written only after the record.
	tags map[types.IssueKey][]string

	// lastReport is the most recently generated summary report, if any.
	// Reports are derived snapshots; generating one never mutates the
	// issue or tag maps.
	lastReport *types.SummaryReport

	// watermark counts absorbed issue events. Monotonically
	// non-decreasing; arrival order, not wall-clock time.
	watermark uint64
}

func newRepositoryState(repository string) *repositoryState {
	return &repositoryState{
		repository: repository,
		issues:     make(map[types.IssueKey]*types.IssueRecord),
		tags:       make(map[types.IssueKey][]string),
	}
}

// upsert replaces the record for its key, tracking first-arrival order
// for new keys, and advances the watermark.
func (s *repositoryState) upsert(record *types.IssueRecord) {
	key := record.Key()
	if _, known := s.issues[key]; !known {
		s.order = append(s.order, key)
	}
	s.issues[key] = record
	s.watermark++
}

// setTags stores the extracted tag set for a key. Overwrites any
// previous set on reprocessing.
func (s *repositoryState) setTags(key types.IssueKey, extracted []string) {
	s.tags[key] = extracted
}

// orderedIssues returns the current records in first-arrival order.
func (s *repositoryState) orderedIssues() []*types.IssueRecord {
	ordered := make([]*types.IssueRecord, 0, len(s.order))
	for _, key := range s.order {
		ordered = append(ordered, s.issues[key])
	}
	return ordered
}

// tagSnapshot returns a copy of the tags map so report generation
// never shares mutable state with the worker.
func (s *repositoryState) tagSnapshot() map[types.IssueKey][]string {
	snapshot := make(map[types.IssueKey][]string, len(s.tags))
	for key, set := range s.tags {
		copied := make([]string, len(set))
		copy(copied, set)
		snapshot[key] = copied
	}
	return snapshot
}
