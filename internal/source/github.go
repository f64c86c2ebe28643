package source

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
	"golang.org/x/time/rate"

	"github.com/repolens/repolens/internal/types"
)

// defaultPerPage is the GitHub API maximum page size.
const defaultPerPage = 100

// IssuesService is the slice of the GitHub issues API the source
// needs; satisfied by *github.IssuesService and by test fakes.
type IssuesService interface {
	ListByRepo(ctx context.Context, owner, repo string, opts *github.IssueListByRepoOptions) ([]*github.Issue, *github.Response, error)
}

// GitHubSource fetches issues from the GitHub REST API with
// client-side rate limiting.
type GitHubSource struct {
	issues  IssuesService
	limiter *rate.Limiter
}

// NewGitHubSource creates a GitHub-backed issue source. token may be
// empty for anonymous access (lower rate limits apply).
func NewGitHubSource(token string) *GitHubSource {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	return newGitHubSource(client.Issues)
}

// newGitHubSource wires an explicit issues service; used by tests.
func newGitHubSource(issues IssuesService) *GitHubSource {
	return &GitHubSource{
		issues: issues,
		// Stay well under GitHub's secondary rate limits.
		limiter: rate.NewLimiter(rate.Limit(2), 5),
	}
}

// FetchIssues implements Source. Pull requests are excluded: the
// GitHub issues API returns them interleaved, but they are not issues
// for analysis purposes.
func (s *GitHubSource) FetchIssues(ctx context.Context, owner, repo string, max int) ([]*types.IssueRecord, error) {
	repository := fmt.Sprintf("%s/%s", owner, repo)
	if max <= 0 {
		max = defaultPerPage
	}

	opts := &github.IssueListByRepoOptions{
		State:     "all",
		Sort:      "created",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: defaultPerPage,
		},
	}

	var records []*types.IssueRecord
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, &FetchError{Repository: repository, Err: err}
		}

		issues, resp, err := s.issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, &FetchError{Repository: repository, Err: err}
		}

		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
			records = append(records, recordFromIssue(repository, issue))
			if len(records) >= max {
				return records, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			return records, nil
		}
		opts.Page = resp.NextPage
	}
}

// recordFromIssue converts a GitHub API issue into an issue record.
func recordFromIssue(repository string, issue *github.Issue) *types.IssueRecord {
	record := &types.IssueRecord{
		Repository:  repository,
		Number:      issue.GetNumber(),
		Title:       issue.GetTitle(),
		Description: issue.GetBody(),
		State:       types.IssueState(issue.GetState()),
		CreatedAt:   issue.GetCreatedAt().Time,
		UpdatedAt:   issue.GetUpdatedAt().Time,
	}
	for _, label := range issue.Labels {
		record.Labels = append(record.Labels, label.GetName())
	}
	return record
}
