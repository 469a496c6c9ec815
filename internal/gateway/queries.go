package gateway

import "github.com/shurcooL/githubv4"

// pageSize is the largest page GitHub's GraphQL connections accept.
const pageSize = 100

// ID is a node ID passed as a query variable. The GraphQL variable type is
// derived from the Go type name, so this declares variables as ID!.
type ID string

type pageInfo struct {
	HasNextPage bool
	EndCursor   githubv4.String
}

type actor struct {
	Login string
}

type commentNode struct {
	Author    actor
	CreatedAt githubv4.DateTime
}

type commentConnection struct {
	Nodes    []commentNode
	PageInfo pageInfo
}

type rateLimitQuery struct {
	// rateLimit can be disabled on GitHub Enterprise Server, in which case it is null.
	RateLimit *struct {
		Remaining int
	}
}

type repositoriesQuery struct {
	Organization struct {
		Repositories struct {
			Nodes []struct {
				ID                    string
				Name                  string
				HasIssuesEnabled      bool
				HasDiscussionsEnabled bool
			}
			PageInfo pageInfo
		} `graphql:"repositories(first: 100, after: $cursor)"`
	} `graphql:"organization(login: $organization)"`
}

// enterpriseRepositoriesQuery omits hasDiscussionsEnabled, which older
// GitHub Enterprise Server releases do not expose.
type enterpriseRepositoriesQuery struct {
	Organization struct {
		Repositories struct {
			Nodes []struct {
				ID               string
				Name             string
				HasIssuesEnabled bool
			}
			PageInfo pageInfo
		} `graphql:"repositories(first: 100, after: $cursor)"`
	} `graphql:"organization(login: $organization)"`
}

type branchesQuery struct {
	Node struct {
		Repository struct {
			Refs struct {
				Nodes []struct {
					ID   string
					Name string
				}
				PageInfo pageInfo
			} `graphql:"refs(refPrefix: \"refs/heads/\", first: 100, after: $cursor)"`
		} `graphql:"... on Repository"`
	} `graphql:"node(id: $repoId)"`
}

type defaultBranchQuery struct {
	Node struct {
		Repository struct {
			DefaultBranchRef *struct {
				ID   string
				Name string
			}
		} `graphql:"... on Repository"`
	} `graphql:"node(id: $repoId)"`
}

type commitsQuery struct {
	Node struct {
		Ref struct {
			Target struct {
				Commit struct {
					History struct {
						Nodes []struct {
							OID           string `graphql:"oid"`
							CommittedDate githubv4.GitTimestamp
							Author        struct {
								User actor
							}
						}
						PageInfo pageInfo
					} `graphql:"history(first: 100, since: $since, until: $until, after: $cursor)"`
				} `graphql:"... on Commit"`
			}
		} `graphql:"... on Ref"`
	} `graphql:"node(id: $branchId)"`
}

// issuesQuery filters by the issue's last activity: creation, edits,
// (re)assignment and comments all move it into range.
type issuesQuery struct {
	Node struct {
		Repository struct {
			Issues struct {
				Nodes []struct {
					ID        string
					Number    int
					Author    actor
					CreatedAt githubv4.DateTime
				}
				PageInfo pageInfo
			} `graphql:"issues(first: 100, filterBy: {since: $since}, after: $cursor)"`
		} `graphql:"... on Repository"`
	} `graphql:"node(id: $repoId)"`
}

type issueCommentsQuery struct {
	Node struct {
		Issue struct {
			Comments commentConnection `graphql:"comments(first: 100, after: $cursor)"`
		} `graphql:"... on Issue"`
	} `graphql:"node(id: $issueId)"`
}

type pullRequestsQuery struct {
	Node struct {
		Repository struct {
			PullRequests struct {
				Nodes []struct {
					ID        string
					Number    int
					Author    actor
					CreatedAt githubv4.DateTime
					UpdatedAt githubv4.DateTime
					MergedAt  *githubv4.DateTime
					MergedBy  actor
				}
				PageInfo pageInfo
			} `graphql:"pullRequests(first: 100, after: $cursor)"`
		} `graphql:"... on Repository"`
	} `graphql:"node(id: $repoId)"`
}

type pullRequestCommentsQuery struct {
	Node struct {
		PullRequest struct {
			Comments commentConnection `graphql:"comments(first: 100, after: $cursor)"`
		} `graphql:"... on PullRequest"`
	} `graphql:"node(id: $prId)"`
}

type discussionsQuery struct {
	Node struct {
		Repository struct {
			Discussions struct {
				Nodes []struct {
					ID        string
					Number    int
					Author    actor
					CreatedAt githubv4.DateTime
					UpdatedAt githubv4.DateTime
				}
				PageInfo pageInfo
			} `graphql:"discussions(first: 100, after: $cursor)"`
		} `graphql:"... on Repository"`
	} `graphql:"node(id: $repoId)"`
}

type discussionCommentsQuery struct {
	Node struct {
		Discussion struct {
			Comments commentConnection `graphql:"comments(first: 100, after: $cursor)"`
		} `graphql:"... on Discussion"`
	} `graphql:"node(id: $discussionId)"`
}
