// Package domain contains the core data structures and domain logic for the application.
package domain

import "time"

// AnalyzeOptions selects which activity a report collects.
// A comments toggle only has an effect when its parent toggle is also set;
// callers are expected to apply Normalize before handing options to the engine.
type AnalyzeOptions struct {
	Commits              bool `json:"commits" yaml:"commits"`
	CommitsOnAllBranches bool `json:"commitsOnAllBranches" yaml:"commits_on_all_branches"`
	Issues               bool `json:"issues" yaml:"issues"`
	IssueComments        bool `json:"issueComments" yaml:"issue_comments"`
	PullRequests         bool `json:"pullRequests" yaml:"pull_requests"`
	PullRequestComments  bool `json:"pullRequestComments" yaml:"pull_request_comments"`
	Discussions          bool `json:"discussions" yaml:"discussions"`
	DiscussionComments   bool `json:"discussionComments" yaml:"discussion_comments"`
}

// Normalize returns a copy of o in which every comments toggle is cleared
// unless the resource it belongs to is analyzed as well.
func (o AnalyzeOptions) Normalize() AnalyzeOptions {
	o.IssueComments = o.Issues && o.IssueComments
	o.PullRequestComments = o.PullRequests && o.PullRequestComments
	o.DiscussionComments = o.Discussions && o.DiscussionComments
	return o
}

// Window is the half-open time range [Since, Until) a report covers.
type Window struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t lies inside the window. Since is inclusive, Until is not.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Since) && t.Before(w.Until)
}
