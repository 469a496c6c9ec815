// Package gateway provides a gateway to the GitHub API,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/org-activity/internal/domain"
)

// DefaultAPIURL is the REST endpoint of github.com.
const DefaultAPIURL = "https://api.github.com"

// defaultRateLimitRemaining is reported when the server has rate limiting disabled.
const defaultRateLimitRemaining = 5000

// Fetcher defines the behavior of a gateway for fetching information from GitHub.
// Every list method returns the complete, already paginated result.
type Fetcher interface {
	FetchOrgMembers(ctx context.Context, org string) ([]string, error)
	FetchRepositories(ctx context.Context, org string) ([]domain.Repository, error)
	FetchBranches(ctx context.Context, repoID string) ([]domain.Branch, error)
	// FetchDefaultBranch returns nil for a repository without commits.
	FetchDefaultBranch(ctx context.Context, repoID string) (*domain.Branch, error)
	FetchCommits(ctx context.Context, branchID string, since, until time.Time) ([]domain.Commit, error)
	// FetchIssues returns issues with any activity at or after since.
	FetchIssues(ctx context.Context, repoID string, since time.Time) ([]domain.Issue, error)
	FetchIssueComments(ctx context.Context, issueID string) ([]domain.Comment, error)
	FetchPullRequests(ctx context.Context, repoID string) ([]domain.PullRequest, error)
	FetchPullRequestComments(ctx context.Context, prID string) ([]domain.Comment, error)
	FetchDiscussions(ctx context.Context, repoID string) ([]domain.Discussion, error)
	FetchDiscussionComments(ctx context.Context, discussionID string) ([]domain.Comment, error)
	FetchRateLimitRemaining(ctx context.Context) (int, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	logger        *log.Logger
	// enterprise is set when talking to GitHub Enterprise Server.
	enterprise bool
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// An empty apiURL selects github.com; anything else is treated as a
// GitHub Enterprise Server REST endpoint such as https://ghe.example.com/api/v3.
func NewGitHubGateway(token, apiURL string, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}

	apiURL = strings.TrimSuffix(apiURL, "/")
	if apiURL == "" || apiURL == DefaultAPIURL {
		return &GitHubGateway{
			restClient:    github.NewClient(httpClient),
			graphqlClient: githubv4.NewClient(httpClient),
			logger:        logger,
		}, nil
	}

	restClient, err := github.NewClient(httpClient).WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure enterprise URL %q: %w", apiURL, err)
	}
	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: githubv4.NewEnterpriseClient(EnterpriseGraphQLURL(apiURL), httpClient),
		logger:        logger,
		enterprise:    true,
	}, nil
}

// EnterpriseGraphQLURL derives the GraphQL endpoint from a GitHub Enterprise Server REST URL.
func EnterpriseGraphQLURL(apiURL string) string {
	base := strings.TrimSuffix(strings.TrimSuffix(apiURL, "/"), "/v3")
	return base + "/graphql"
}

// FetchRateLimitRemaining returns the GraphQL points left in the current window.
func (g *GitHubGateway) FetchRateLimitRemaining(ctx context.Context) (int, error) {
	var q rateLimitQuery
	if err := g.graphqlClient.Query(ctx, &q, nil); err != nil {
		return 0, fmt.Errorf("failed to query rate limit: %w", err)
	}
	if q.RateLimit == nil {
		return defaultRateLimitRemaining, nil
	}
	return q.RateLimit.Remaining, nil
}

// FetchOrgMembers lists member logins through the REST API.
func (g *GitHubGateway) FetchOrgMembers(ctx context.Context, org string) ([]string, error) {
	g.logger.Debug("Fetching organization members", "org", org)
	opts := &github.ListMembersOptions{ListOptions: github.ListOptions{PerPage: pageSize}}
	var logins []string
	for {
		members, resp, err := g.restClient.Organizations.ListMembers(ctx, org, opts)
		if err != nil {
			return nil, fmt.Errorf("failed to list members of %s: %w", org, err)
		}
		for _, m := range members {
			logins = append(logins, m.GetLogin())
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
		g.logger.Debug("  Fetching next page of members...")
	}
	return logins, nil
}

// FetchRepositories lists every repository of org with its issue and discussion flags.
func (g *GitHubGateway) FetchRepositories(ctx context.Context, org string) ([]domain.Repository, error) {
	g.logger.Debug("Fetching repositories", "org", org)
	if g.enterprise {
		return g.fetchEnterpriseRepositories(ctx, org)
	}
	variables := map[string]interface{}{
		"organization": githubv4.String(org),
		"cursor":       (*githubv4.String)(nil),
	}
	var repos []domain.Repository
	for {
		var q repositoriesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query repositories of %s: %w", org, err)
		}
		conn := q.Organization.Repositories
		for _, n := range conn.Nodes {
			repos = append(repos, domain.Repository{
				ID:                    n.ID,
				Name:                  n.Name,
				HasIssuesEnabled:      n.HasIssuesEnabled,
				HasDiscussionsEnabled: n.HasDiscussionsEnabled,
			})
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
	}
	return repos, nil
}

func (g *GitHubGateway) fetchEnterpriseRepositories(ctx context.Context, org string) ([]domain.Repository, error) {
	variables := map[string]interface{}{
		"organization": githubv4.String(org),
		"cursor":       (*githubv4.String)(nil),
	}
	var repos []domain.Repository
	for {
		var q enterpriseRepositoriesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query repositories of %s: %w", org, err)
		}
		conn := q.Organization.Repositories
		for _, n := range conn.Nodes {
			repos = append(repos, domain.Repository{
				ID:               n.ID,
				Name:             n.Name,
				HasIssuesEnabled: n.HasIssuesEnabled,
			})
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
	}
	return repos, nil
}

// FetchBranches lists the refs/heads branches of a repository.
func (g *GitHubGateway) FetchBranches(ctx context.Context, repoID string) ([]domain.Branch, error) {
	g.logger.Debug("Fetching branches", "repo", repoID)
	variables := map[string]interface{}{
		"repoId": ID(repoID),
		"cursor": (*githubv4.String)(nil),
	}
	var branches []domain.Branch
	for {
		var q branchesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query branches: %w", err)
		}
		conn := q.Node.Repository.Refs
		for _, n := range conn.Nodes {
			branches = append(branches, domain.Branch{ID: n.ID, Name: n.Name})
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
	}
	return branches, nil
}

// FetchDefaultBranch returns the default branch, or nil for an empty repository.
func (g *GitHubGateway) FetchDefaultBranch(ctx context.Context, repoID string) (*domain.Branch, error) {
	g.logger.Debug("Fetching default branch", "repo", repoID)
	var q defaultBranchQuery
	variables := map[string]interface{}{"repoId": ID(repoID)}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to query default branch: %w", err)
	}
	ref := q.Node.Repository.DefaultBranchRef
	if ref == nil {
		return nil, nil
	}
	return &domain.Branch{ID: ref.ID, Name: ref.Name}, nil
}

// FetchCommits returns the history of a branch between since and until.
// GitHub applies both bounds inclusively.
func (g *GitHubGateway) FetchCommits(ctx context.Context, branchID string, since, until time.Time) ([]domain.Commit, error) {
	g.logger.Debug("Fetching commits", "branch", branchID, "since", since, "until", until)
	variables := map[string]interface{}{
		"branchId": ID(branchID),
		"since":    githubv4.GitTimestamp{Time: since},
		"until":    githubv4.GitTimestamp{Time: until},
		"cursor":   (*githubv4.String)(nil),
	}
	var commits []domain.Commit
	for {
		var q commitsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query commits: %w", err)
		}
		conn := q.Node.Ref.Target.Commit.History
		for _, n := range conn.Nodes {
			commits = append(commits, domain.Commit{
				OID:           n.OID,
				Author:        n.Author.User.Login,
				CommittedDate: n.CommittedDate.Time,
			})
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
		g.logger.Debug("  Fetching next page of commits...")
	}
	return commits, nil
}

// FetchIssues lists the issues of a repository updated at or after since.
func (g *GitHubGateway) FetchIssues(ctx context.Context, repoID string, since time.Time) ([]domain.Issue, error) {
	g.logger.Debug("Fetching issues", "repo", repoID, "since", since)
	variables := map[string]interface{}{
		"repoId": ID(repoID),
		"since":  githubv4.DateTime{Time: since},
		"cursor": (*githubv4.String)(nil),
	}
	var issues []domain.Issue
	for {
		var q issuesQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query issues: %w", err)
		}
		conn := q.Node.Repository.Issues
		for _, n := range conn.Nodes {
			issues = append(issues, domain.Issue{
				ID:        n.ID,
				Number:    n.Number,
				Author:    n.Author.Login,
				CreatedAt: n.CreatedAt.Time,
			})
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
		g.logger.Debug("  Fetching next page of issues...")
	}
	return issues, nil
}

// FetchPullRequests lists every pull request of a repository.
func (g *GitHubGateway) FetchPullRequests(ctx context.Context, repoID string) ([]domain.PullRequest, error) {
	g.logger.Debug("Fetching pull requests", "repo", repoID)
	variables := map[string]interface{}{
		"repoId": ID(repoID),
		"cursor": (*githubv4.String)(nil),
	}
	var prs []domain.PullRequest
	for {
		var q pullRequestsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query pull requests: %w", err)
		}
		conn := q.Node.Repository.PullRequests
		for _, n := range conn.Nodes {
			pr := domain.PullRequest{
				ID:        n.ID,
				Number:    n.Number,
				Author:    n.Author.Login,
				CreatedAt: n.CreatedAt.Time,
				UpdatedAt: n.UpdatedAt.Time,
				MergedBy:  n.MergedBy.Login,
			}
			if n.MergedAt != nil {
				mergedAt := n.MergedAt.Time
				pr.MergedAt = &mergedAt
			}
			prs = append(prs, pr)
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
		g.logger.Debug("  Fetching next page of pull requests...")
	}
	return prs, nil
}

// FetchDiscussions lists every discussion of a repository.
func (g *GitHubGateway) FetchDiscussions(ctx context.Context, repoID string) ([]domain.Discussion, error) {
	g.logger.Debug("Fetching discussions", "repo", repoID)
	variables := map[string]interface{}{
		"repoId": ID(repoID),
		"cursor": (*githubv4.String)(nil),
	}
	var discussions []domain.Discussion
	for {
		var q discussionsQuery
		if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
			return nil, fmt.Errorf("failed to query discussions: %w", err)
		}
		conn := q.Node.Repository.Discussions
		for _, n := range conn.Nodes {
			discussions = append(discussions, domain.Discussion{
				ID:        n.ID,
				Number:    n.Number,
				Author:    n.Author.Login,
				CreatedAt: n.CreatedAt.Time,
				UpdatedAt: n.UpdatedAt.Time,
			})
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
		g.logger.Debug("  Fetching next page of discussions...")
	}
	return discussions, nil
}

// FetchIssueComments lists the comments of one issue.
func (g *GitHubGateway) FetchIssueComments(ctx context.Context, issueID string) ([]domain.Comment, error) {
	return g.fetchComments(ctx, "issueId", issueID, func(ctx context.Context, variables map[string]interface{}) (commentConnection, error) {
		var q issueCommentsQuery
		err := g.graphqlClient.Query(ctx, &q, variables)
		return q.Node.Issue.Comments, err
	})
}

// FetchPullRequestComments lists the comments of one pull request.
func (g *GitHubGateway) FetchPullRequestComments(ctx context.Context, prID string) ([]domain.Comment, error) {
	return g.fetchComments(ctx, "prId", prID, func(ctx context.Context, variables map[string]interface{}) (commentConnection, error) {
		var q pullRequestCommentsQuery
		err := g.graphqlClient.Query(ctx, &q, variables)
		return q.Node.PullRequest.Comments, err
	})
}

// FetchDiscussionComments lists the comments of one discussion.
func (g *GitHubGateway) FetchDiscussionComments(ctx context.Context, discussionID string) ([]domain.Comment, error) {
	return g.fetchComments(ctx, "discussionId", discussionID, func(ctx context.Context, variables map[string]interface{}) (commentConnection, error) {
		var q discussionCommentsQuery
		err := g.graphqlClient.Query(ctx, &q, variables)
		return q.Node.Discussion.Comments, err
	})
}

// fetchComments pages through the comments of one issue, pull request or discussion.
// The three comment connections share a shape, so only the query type differs.
func (g *GitHubGateway) fetchComments(ctx context.Context, idVar, id string,
	query func(ctx context.Context, variables map[string]interface{}) (commentConnection, error),
) ([]domain.Comment, error) {
	g.logger.Debug("Fetching comments", idVar, id)
	variables := map[string]interface{}{
		idVar:    ID(id),
		"cursor": (*githubv4.String)(nil),
	}
	var comments []domain.Comment
	for {
		conn, err := query(ctx, variables)
		if err != nil {
			return nil, fmt.Errorf("failed to query comments of %s: %w", id, err)
		}
		for _, n := range conn.Nodes {
			comments = append(comments, domain.Comment{Author: n.Author.Login, CreatedAt: n.CreatedAt.Time})
		}
		if !conn.PageInfo.HasNextPage {
			break
		}
		variables["cursor"] = githubv4.NewString(conn.PageInfo.EndCursor)
	}
	return comments, nil
}
