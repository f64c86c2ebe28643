// Package report turns accumulated per-repository analysis state into
// ranked tag statistics and prioritized, evidence-backed
// recommendations. Generation is a pure function of its inputs: no
// clock reads beyond the generation timestamp, no randomness, no
// mutation of the input maps.
package report

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/repolens/repolens/internal/types"
)

// ErrNoIssues is returned when report generation is requested for a
// repository with no known issues. No report is produced; a report
// with zero issues is never emitted.
var ErrNoIssues = errors.New("report: no issues known for repository")

// Generator computes summary reports under a fixed policy.
type Generator struct {
	policy Policy
}

// NewGenerator creates a report generator. A zero TopTags selects the
// default policy.
func NewGenerator(policy Policy) (*Generator, error) {
	if policy.TopTags == 0 {
		policy = DefaultPolicy()
	}
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report policy: %w", err)
	}
	return &Generator{policy: policy}, nil
}

// tagEntry tracks one tag's aggregate during counting.
type tagEntry struct {
	display    string   // first-seen casing, for display
	count      int      // occurrences across all tag sets
	firstSeen  int      // insertion rank, for stable tie-breaks
	supporting []string // issue ids whose tag set contains the tag
}

// Generate computes a summary report. The issues slice must be ordered
// by first arrival (the agent's watermark order); that order is the
// tie-break for equal tag counts. tagSets may cover a subset of issues
// (extraction can lag) but never a superset.
func (g *Generator) Generate(repository string, issues []*types.IssueRecord, tagSets map[types.IssueKey][]string) (*types.SummaryReport, error) {
	if len(issues) == 0 {
		return nil, ErrNoIssues
	}

	summary := &types.SummaryReport{
		Repository:  repository,
		GeneratedAt: time.Now(),
		TotalIssues: len(issues),
	}

	for i, issue := range issues {
		switch issue.State {
		case types.StateClosed:
			summary.ClosedIssues++
		default:
			summary.OpenIssues++
		}
		if i == 0 || issue.CreatedAt.Before(summary.OldestIssueDate) {
			summary.OldestIssueDate = issue.CreatedAt
		}
		if i == 0 || issue.CreatedAt.After(summary.NewestIssueDate) {
			summary.NewestIssueDate = issue.CreatedAt
		}
	}

	entries := countTags(issues, tagSets)
	summary.TopTags = topTags(entries, g.policy.TopTags)
	summary.Recommendations = g.recommend(entries, len(issues))

	return summary, nil
}

// countTags flattens all tag sets into per-tag aggregates. Counting is
// case-insensitive; the first-seen casing is kept for display. A tag
// counts at most once per issue, so count always equals the number of
// distinct supporting issues and frequency fractions never exceed 1.
// Iteration follows issue arrival order, then tag order within an
// issue, so insertion ranks are deterministic.
func countTags(issues []*types.IssueRecord, tagSets map[types.IssueKey][]string) []*tagEntry {
	byKey := make(map[string]*tagEntry)
	var ordered []*tagEntry

	for _, issue := range issues {
		issueID := issue.Key().String()
		counted := make(map[string]bool)
		for _, tag := range tagSets[issue.Key()] {
			lower := strings.ToLower(strings.TrimSpace(tag))
			if lower == "" {
				continue
			}
			entry, ok := byKey[lower]
			if !ok {
				entry = &tagEntry{
					display:   strings.TrimSpace(tag),
					firstSeen: len(ordered),
				}
				byKey[lower] = entry
				ordered = append(ordered, entry)
			}
			if counted[lower] {
				continue
			}
			counted[lower] = true
			entry.count++
			entry.supporting = append(entry.supporting, issueID)
		}
	}

	return ordered
}

// topTags ranks entries by descending count, ties broken by first-seen
// order, truncated to limit.
func topTags(entries []*tagEntry, limit int) []types.TagStat {
	ranked := make([]*tagEntry, len(entries))
	copy(ranked, entries)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].firstSeen < ranked[j].firstSeen
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	stats := make([]types.TagStat, 0, len(ranked))
	for _, entry := range ranked {
		stats = append(stats, types.TagStat{Tag: entry.display, Count: entry.count})
	}
	return stats
}

// recommend synthesizes one recommendation per tag that clears the
// support threshold. Deterministic and rule-based: no hidden
// randomness. A repository with zero qualifying tags yields an empty
// list, which is a valid outcome.
func (g *Generator) recommend(entries []*tagEntry, totalIssues int) []types.Recommendation {
	// The effective support threshold is the SMALLER of the absolute
	// count and the fractional cutoff, so small repositories still get
	// recommendations.
	fractional := int(math.Ceil(g.policy.MinSupportFraction * float64(totalIssues)))
	threshold := g.policy.MinSupportCount
	if fractional < threshold {
		threshold = fractional
	}
	if threshold < 1 {
		threshold = 1
	}

	urgent := make(map[string]bool, len(g.policy.UrgencyTags))
	for _, tag := range g.policy.UrgencyTags {
		urgent[strings.ToLower(tag)] = true
	}

	// Ranking uses the TRUE supporting count; the ids listed on the
	// recommendation are truncated for display only.
	type candidate struct {
		rec     types.Recommendation
		support int
	}

	var candidates []candidate
	for _, entry := range entries {
		support := len(entry.supporting)
		if support < threshold {
			continue
		}

		fraction := float64(support) / float64(totalIssues)
		priority := types.PriorityLow
		switch {
		case fraction >= g.policy.HighFraction || urgent[strings.ToLower(entry.display)]:
			priority = types.PriorityHigh
		case fraction >= g.policy.MediumFraction:
			priority = types.PriorityMedium
		}

		display := entry.supporting
		if len(display) > g.policy.MaxSupportingDisplay {
			display = display[:g.policy.MaxSupportingDisplay]
		}

		candidates = append(candidates, candidate{
			support: support,
			rec: types.Recommendation{
				Title: fmt.Sprintf("Address recurring %q theme", entry.display),
				Description: fmt.Sprintf("%d of %d issues are tagged %q; consider a focused effort on this area.",
					support, totalIssues, entry.display),
				Priority:         priority,
				SupportingIssues: display,
			},
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].rec.Priority != candidates[j].rec.Priority {
			return candidates[i].rec.Priority.Rank() < candidates[j].rec.Priority.Rank()
		}
		return candidates[i].support > candidates[j].support
	})

	recommendations := make([]types.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		recommendations = append(recommendations, c.rec)
	}
	return recommendations
}
