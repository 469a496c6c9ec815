package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-github/v62/github"
	"github.com/naka-gawa/org-activity/internal/domain"
	"github.com/shurcooL/githubv4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestGateway creates a GitHubGateway that communicates with a mock HTTP server.
func setupTestGateway(t *testing.T, handler http.Handler) (*GitHubGateway, *httptest.Server) {
	server := httptest.NewServer(handler)

	// Setup REST client to point to the mock server.
	restClient := github.NewClient(server.Client())
	baseURL, err := url.Parse(server.URL + "/")
	require.NoError(t, err)
	restClient.BaseURL = baseURL

	// Use NewEnterpriseClient to point the GraphQL client to our mock server's URL.
	graphqlClient := githubv4.NewEnterpriseClient(server.URL, server.Client())

	gateway := &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		logger:        log.New(io.Discard),
	}

	return gateway, server
}

// graphqlHandler answers every GraphQL request with body after checking the query text.
func graphqlHandler(t *testing.T, queryContains, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(raw), queryContains)
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, body)
	}
}

func mustTime(t *testing.T, value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func TestGitHubGateway_FetchOrgMembers(t *testing.T) {
	testCases := []struct {
		name           string
		handlerFunc    func(w http.ResponseWriter, r *http.Request)
		expected       []string
		expectError    bool
		expectedErrMsg string
	}{
		{
			name: "happy path - lists member logins",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/orgs/any-org/members", r.URL.Path)
				w.WriteHeader(http.StatusOK)
				fmt.Fprint(w, `[{"login": "alice"}, {"login": "bob"}]`)
			},
			expected: []string{"alice", "bob"},
		},
		{
			name: "error case - GitHub API returns an error",
			handlerFunc: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, `{"message": "Internal Server Error"}`)
			},
			expectError:    true,
			expectedErrMsg: "failed to list members of any-org",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, http.HandlerFunc(tc.handlerFunc))
			defer server.Close()
			logins, err := gateway.FetchOrgMembers(context.Background(), "any-org")
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErrMsg)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expected, logins)
			}
		})
	}
}

func TestGitHubGateway_FetchRepositories(t *testing.T) {
	body := `{"data":{"organization":{"repositories":{"nodes":[
		{"id":"R_1","name":"api","hasIssuesEnabled":true,"hasDiscussionsEnabled":false},
		{"id":"R_2","name":"docs","hasIssuesEnabled":false,"hasDiscussionsEnabled":true}
	],"pageInfo":{"hasNextPage":false,"endCursor":"c1"}}}}}`
	gateway, server := setupTestGateway(t, graphqlHandler(t, "hasDiscussionsEnabled", body))
	defer server.Close()

	repos, err := gateway.FetchRepositories(context.Background(), "any-org")

	require.NoError(t, err)
	assert.Equal(t, []domain.Repository{
		{ID: "R_1", Name: "api", HasIssuesEnabled: true},
		{ID: "R_2", Name: "docs", HasDiscussionsEnabled: true},
	}, repos)
}

func TestGitHubGateway_FetchRepositoriesEnterprise(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(raw), "hasDiscussionsEnabled")
		fmt.Fprint(w, `{"data":{"organization":{"repositories":{"nodes":[{"id":"R_1","name":"api","hasIssuesEnabled":true}],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()
	gateway.enterprise = true

	repos, err := gateway.FetchRepositories(context.Background(), "any-org")

	require.NoError(t, err)
	assert.Equal(t, []domain.Repository{{ID: "R_1", Name: "api", HasIssuesEnabled: true}}, repos)
}

// TestGitHubGateway_Pagination checks that the cursor of one page is sent with the next request.
func TestGitHubGateway_Pagination(t *testing.T) {
	requests := 0
	handler := func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		requests++
		if strings.Contains(string(raw), "cursor-1") {
			fmt.Fprint(w, `{"data":{"node":{"refs":{"nodes":[{"id":"B_2","name":"dev"}],"pageInfo":{"hasNextPage":false,"endCursor":"cursor-2"}}}}}`)
			return
		}
		fmt.Fprint(w, `{"data":{"node":{"refs":{"nodes":[{"id":"B_1","name":"main"}],"pageInfo":{"hasNextPage":true,"endCursor":"cursor-1"}}}}}`)
	}
	gateway, server := setupTestGateway(t, http.HandlerFunc(handler))
	defer server.Close()

	branches, err := gateway.FetchBranches(context.Background(), "R_1")

	require.NoError(t, err)
	assert.Equal(t, 2, requests)
	assert.Equal(t, []domain.Branch{{ID: "B_1", Name: "main"}, {ID: "B_2", Name: "dev"}}, branches)
}

func TestGitHubGateway_FetchDefaultBranch(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected *domain.Branch
	}{
		{
			name:     "repository with commits",
			body:     `{"data":{"node":{"defaultBranchRef":{"id":"B_1","name":"main"}}}}`,
			expected: &domain.Branch{ID: "B_1", Name: "main"},
		},
		{
			name:     "empty repository",
			body:     `{"data":{"node":{"defaultBranchRef":null}}}`,
			expected: nil,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, graphqlHandler(t, "defaultBranchRef", tc.body))
			defer server.Close()

			branch, err := gateway.FetchDefaultBranch(context.Background(), "R_1")

			require.NoError(t, err)
			assert.Equal(t, tc.expected, branch)
		})
	}
}

func TestGitHubGateway_FetchCommits(t *testing.T) {
	body := `{"data":{"node":{"target":{"history":{"nodes":[
		{"oid":"aaa","committedDate":"2024-01-10T09:00:00Z","author":{"user":{"login":"alice"}}},
		{"oid":"bbb","committedDate":"2024-01-11T09:00:00Z","author":{"user":null}}
	],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}}}`
	gateway, server := setupTestGateway(t, graphqlHandler(t, "history(first: 100, since: $since, until: $until", body))
	defer server.Close()

	since := mustTime(t, "2024-01-01T00:00:00Z")
	commits, err := gateway.FetchCommits(context.Background(), "B_1", since, since.AddDate(0, 1, 0))

	require.NoError(t, err)
	assert.Equal(t, []domain.Commit{
		{OID: "aaa", Author: "alice", CommittedDate: mustTime(t, "2024-01-10T09:00:00Z")},
		{OID: "bbb", CommittedDate: mustTime(t, "2024-01-11T09:00:00Z")},
	}, commits)
}

func TestGitHubGateway_FetchIssues(t *testing.T) {
	body := `{"data":{"node":{"issues":{"nodes":[
		{"id":"I_1","number":7,"author":{"login":"carol"},"createdAt":"2024-01-05T10:00:00Z"},
		{"id":"I_2","number":8,"author":null,"createdAt":"2024-01-06T10:00:00Z"}
	],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}}`
	gateway, server := setupTestGateway(t, graphqlHandler(t, "filterBy: {since: $since}", body))
	defer server.Close()

	issues, err := gateway.FetchIssues(context.Background(), "R_1", mustTime(t, "2024-01-01T00:00:00Z"))

	require.NoError(t, err)
	assert.Equal(t, []domain.Issue{
		{ID: "I_1", Number: 7, Author: "carol", CreatedAt: mustTime(t, "2024-01-05T10:00:00Z")},
		{ID: "I_2", Number: 8, CreatedAt: mustTime(t, "2024-01-06T10:00:00Z")},
	}, issues)
}

func TestGitHubGateway_FetchPullRequests(t *testing.T) {
	body := `{"data":{"node":{"pullRequests":{"nodes":[
		{"id":"PR_1","number":1,"author":{"login":"erin"},"createdAt":"2024-01-02T00:00:00Z","updatedAt":"2024-01-03T00:00:00Z","mergedAt":"2024-01-03T00:00:00Z","mergedBy":{"login":"frank"}},
		{"id":"PR_2","number":2,"author":{"login":"erin"},"createdAt":"2024-01-04T00:00:00Z","updatedAt":"2024-01-04T00:00:00Z","mergedAt":null,"mergedBy":null}
	],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}}`
	gateway, server := setupTestGateway(t, graphqlHandler(t, "pullRequests(first: 100", body))
	defer server.Close()

	prs, err := gateway.FetchPullRequests(context.Background(), "R_1")

	require.NoError(t, err)
	require.Len(t, prs, 2)
	require.NotNil(t, prs[0].MergedAt)
	assert.Equal(t, mustTime(t, "2024-01-03T00:00:00Z"), *prs[0].MergedAt)
	assert.Equal(t, "frank", prs[0].MergedBy)
	assert.Nil(t, prs[1].MergedAt)
	assert.Empty(t, prs[1].MergedBy)
}

func TestGitHubGateway_FetchComments(t *testing.T) {
	body := `{"data":{"node":{"comments":{"nodes":[
		{"author":{"login":"dave"},"createdAt":"2024-01-05T00:00:00Z"},
		{"author":null,"createdAt":"2024-01-06T00:00:00Z"}
	],"pageInfo":{"hasNextPage":false,"endCursor":""}}}}}`
	expected := []domain.Comment{
		{Author: "dave", CreatedAt: mustTime(t, "2024-01-05T00:00:00Z")},
		{CreatedAt: mustTime(t, "2024-01-06T00:00:00Z")},
	}

	testCases := []struct {
		name          string
		queryContains string
		methodToTest  func(gateway *GitHubGateway) ([]domain.Comment, error)
	}{
		{
			name:          "issue comments",
			queryContains: "... on Issue",
			methodToTest: func(gateway *GitHubGateway) ([]domain.Comment, error) {
				return gateway.FetchIssueComments(context.Background(), "I_1")
			},
		},
		{
			name:          "pull request comments",
			queryContains: "... on PullRequest",
			methodToTest: func(gateway *GitHubGateway) ([]domain.Comment, error) {
				return gateway.FetchPullRequestComments(context.Background(), "PR_1")
			},
		},
		{
			name:          "discussion comments",
			queryContains: "... on Discussion",
			methodToTest: func(gateway *GitHubGateway) ([]domain.Comment, error) {
				return gateway.FetchDiscussionComments(context.Background(), "D_1")
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, graphqlHandler(t, tc.queryContains, body))
			defer server.Close()

			comments, err := tc.methodToTest(gateway)

			require.NoError(t, err)
			assert.Equal(t, expected, comments)
		})
	}
}

func TestGitHubGateway_FetchRateLimitRemaining(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		expected int
	}{
		{"github.com", `{"data":{"rateLimit":{"remaining":4321}}}`, 4321},
		{"rate limiting disabled", `{"data":{"rateLimit":null}}`, defaultRateLimitRemaining},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gateway, server := setupTestGateway(t, graphqlHandler(t, "rateLimit", tc.body))
			defer server.Close()

			remaining, err := gateway.FetchRateLimitRemaining(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tc.expected, remaining)
		})
	}
}

func TestGitHubGateway_GraphQLError(t *testing.T) {
	gateway, server := setupTestGateway(t, graphqlHandler(t, "discussions(first: 100", `{"errors":[{"message":"Something went wrong"}]}`))
	defer server.Close()

	discussions, err := gateway.FetchDiscussions(context.Background(), "R_1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query discussions")
	assert.Nil(t, discussions)
}

func TestEnterpriseGraphQLURL(t *testing.T) {
	assert.Equal(t, "https://ghe.example.com/api/graphql", EnterpriseGraphQLURL("https://ghe.example.com/api/v3"))
	assert.Equal(t, "https://ghe.example.com/api/graphql", EnterpriseGraphQLURL("https://ghe.example.com/api/v3/"))
}
