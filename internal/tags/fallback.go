package tags

import (
	"context"
	"strings"

	"github.com/repolens/repolens/internal/types"
)

// keywordFamily maps a tag to the substrings that imply it. Families
// are scanned in declaration order so output is stable for identical
// input.
type keywordFamily struct {
	tag      string
	keywords []string
}

var keywordFamilies = []keywordFamily{
	{tag: "bug", keywords: []string{"bug", "fix", "issue"}},
	{tag: "feature", keywords: []string{"feature", "enhancement"}},
	{tag: "documentation", keywords: []string{"documentation", "docs"}},
	{tag: "performance", keywords: []string{"performance", "slow"}},
}

// FallbackExtractor derives tags deterministically without any network
// dependency. It never fails: it is the degradation path when the
// AI-backed extractor is unavailable or errors.
type FallbackExtractor struct{}

// NewFallbackExtractor creates the deterministic keyword extractor.
func NewFallbackExtractor() *FallbackExtractor {
	return &FallbackExtractor{}
}

// Name implements Extractor.
func (e *FallbackExtractor) Name() string {
	return "fallback"
}

// ExtractTags implements Extractor. Order is stable for identical
// input: existing labels first (in label order), then the lifecycle
// state, then matched keyword families (in family order). Tags are
// de-duplicated case-insensitively, first casing wins.
func (e *FallbackExtractor) ExtractTags(_ context.Context, issue *types.IssueRecord) ([]string, error) {
	var extracted []string
	seen := make(map[string]bool)

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return
		}
		lower := strings.ToLower(tag)
		if seen[lower] {
			return
		}
		seen[lower] = true
		extracted = append(extracted, tag)
	}

	for _, label := range issue.Labels {
		add(label)
	}

	add(strings.ToLower(string(issue.State)))

	text := strings.ToLower(issue.Title + " " + issue.Description)
	for _, family := range keywordFamilies {
		for _, keyword := range family.keywords {
			if strings.Contains(text, keyword) {
				add(family.tag)
				break
			}
		}
	}

	return extracted, nil
}
