// Package source provides the issue source boundary: paginated
// retrieval of issue records from an external tracker. A source
// failure halts the analysis run for that repository only; it never
// touches state already accumulated for other repositories.
package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/repolens/repolens/internal/types"
)

// FetchError wraps any failure of an issue source: network, auth, or
// rate limiting. Propagated to the caller as-is.
type FetchError struct {
	Repository string
	Err        error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch issues for %s: %v", e.Repository, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsFetchError reports whether err is a FetchError.
func IsFetchError(err error) bool {
	var fetch *FetchError
	return errors.As(err, &fetch)
}

// Source retrieves issue records for a repository.
type Source interface {
	// FetchIssues returns up to max issues for owner/repo, newest
	// first, in the tracker's delivery order. Fails with FetchError.
	FetchIssues(ctx context.Context, owner, repo string, max int) ([]*types.IssueRecord, error)
}
