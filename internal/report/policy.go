package report

import "fmt"

// Policy holds the thresholds driving tag statistics and
// recommendation synthesis. The support and priority cutoffs are
// policy, not constants: callers tune them per deployment.
type Policy struct {
	// TopTags is the maximum number of entries in the report's tag
	// frequency table
	// Default: 10, Range: 1-100
	TopTags int

	// MinSupportCount is the absolute occurrence floor for a tag to
	// produce a recommendation. The effective threshold is the smaller
	// of this and MinSupportFraction of the repository's issue count.
	// Default: 3, Range: 1-100
	MinSupportCount int

	// MinSupportFraction is the relative occurrence floor for a tag to
	// produce a recommendation (fraction of total issues)
	// Default: 0.20, Range: (0, 1]
	MinSupportFraction float64

	// HighFraction is the frequency fraction at or above which a
	// recommendation is High priority
	// Default: 0.40, Range: (0, 1]
	HighFraction float64

	// MediumFraction is the frequency fraction at or above which a
	// recommendation is Medium priority
	// Default: 0.20, Range: (0, 1]
	MediumFraction float64

	// MaxSupportingDisplay caps the supporting-issue ids listed on a
	// recommendation. The TRUE count still drives prioritization.
	// Default: 5, Range: 1-50
	MaxSupportingDisplay int

	// UrgencyTags force High priority regardless of frequency
	// Default: bug, crash, security
	UrgencyTags []string
}

// DefaultPolicy returns the default report policy.
func DefaultPolicy() Policy {
	return Policy{
		TopTags:              10,
		MinSupportCount:      3,
		MinSupportFraction:   0.20,
		HighFraction:         0.40,
		MediumFraction:       0.20,
		MaxSupportingDisplay: 5,
		UrgencyTags:          []string{"bug", "crash", "security"},
	}
}

// Validate checks if the policy has valid values.
func (p Policy) Validate() error {
	if p.TopTags < 1 || p.TopTags > 100 {
		return fmt.Errorf("top_tags must be between 1 and 100 (got %d)", p.TopTags)
	}
	if p.MinSupportCount < 1 || p.MinSupportCount > 100 {
		return fmt.Errorf("min_support_count must be between 1 and 100 (got %d)", p.MinSupportCount)
	}
	if p.MinSupportFraction <= 0 || p.MinSupportFraction > 1 {
		return fmt.Errorf("min_support_fraction must be in (0, 1] (got %g)", p.MinSupportFraction)
	}
	if p.HighFraction <= 0 || p.HighFraction > 1 {
		return fmt.Errorf("high_fraction must be in (0, 1] (got %g)", p.HighFraction)
	}
	if p.MediumFraction <= 0 || p.MediumFraction > p.HighFraction {
		return fmt.Errorf("medium_fraction must be in (0, high_fraction] (got %g)", p.MediumFraction)
	}
	if p.MaxSupportingDisplay < 1 || p.MaxSupportingDisplay > 50 {
		return fmt.Errorf("max_supporting_display must be between 1 and 50 (got %d)", p.MaxSupportingDisplay)
	}
	return nil
}
