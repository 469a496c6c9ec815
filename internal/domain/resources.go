package domain

import "time"

// The records below are what the data source hands to the reporter.
// An empty Author (or MergedBy) means GitHub could not resolve the actor to a user,
// e.g. a deleted account or a commit e-mail that is not linked to any login.

// Repository is a repository of the analyzed organization.
type Repository struct {
	ID                    string
	Name                  string
	HasIssuesEnabled      bool
	HasDiscussionsEnabled bool
}

// Branch is a git ref under refs/heads/.
type Branch struct {
	ID   string
	Name string
}

// Commit is a single commit reachable from a branch. OID is the git hash.
type Commit struct {
	OID           string
	Author        string
	CommittedDate time.Time
}

// Issue is a repository issue.
type Issue struct {
	ID        string
	Number    int
	Author    string
	CreatedAt time.Time
}

// PullRequest is a repository pull request. MergedAt is nil while unmerged.
type PullRequest struct {
	ID        string
	Number    int
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
	MergedAt  *time.Time
	MergedBy  string
}

// Discussion is a repository discussion.
type Discussion struct {
	ID        string
	Number    int
	Author    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Comment is a comment on an issue, pull request or discussion.
type Comment struct {
	Author    string
	CreatedAt time.Time
}
