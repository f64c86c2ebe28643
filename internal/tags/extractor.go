// Package tags converts issue text into normalized topic tags. Two
// interchangeable extractors are provided: an Anthropic-backed one that
// can fail, and a deterministic keyword fallback that never does.
package tags

import (
	"context"
	"errors"
	"fmt"

	"github.com/repolens/repolens/internal/types"
)

// Extractor converts one issue into an ordered list of topic tags.
type Extractor interface {
	// ExtractTags returns 5-8 short tags for the issue. Implementations
	// must honor ctx cancellation on any blocking work.
	ExtractTags(ctx context.Context, issue *types.IssueRecord) ([]string, error)

	// Name identifies the extractor in events and logs ("ai", "fallback").
	Name() string
}

// ExtractionError wraps any failure of the AI-backed extractor:
// transport errors, non-success responses, timeouts, or unparsable
// response bodies. The agent recovers locally by falling back to the
// keyword extractor; an ExtractionError never fails event handling.
type ExtractionError struct {
	Op  string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("tag extraction failed (%s): %v", e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// IsExtractionError reports whether err is an ExtractionError.
func IsExtractionError(err error) bool {
	var extraction *ExtractionError
	return errors.As(err, &extraction)
}
