// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/naka-gawa/org-activity/internal/domain"
	"github.com/naka-gawa/org-activity/internal/gateway"
)

// Reporter is the use case for building an organization activity report.
// It walks members and repositories one request at a time and feeds every
// qualifying event into a domain.ReportData.
type Reporter struct {
	fetcher gateway.Fetcher
	logger  *log.Logger
}

// NewReporter creates a new Reporter instance.
func NewReporter(fetcher gateway.Fetcher, logger *log.Logger) *Reporter {
	return &Reporter{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Run builds the report of org for window. Options are used as given; comment
// toggles should already be normalized by the caller.
// Any data source error aborts the run and no report is returned.
func (r *Reporter) Run(ctx context.Context, org string, window domain.Window, options domain.AnalyzeOptions) (*domain.ReportData, error) {
	r.logger.Info("Usecase: Starting report", "org", org, "since", window.Since, "until", window.Until)
	quotaStart, quotaErr := r.fetcher.FetchRateLimitRemaining(ctx)
	if quotaErr != nil {
		r.logger.Warn("Could not read rate limit", "err", quotaErr)
	}

	report := domain.NewReportData(org, options)

	members, err := r.fetcher.FetchOrgMembers(ctx, org)
	if err != nil {
		return nil, err
	}
	for _, login := range members {
		report.SetOrgMember(login)
	}

	repos, err := r.fetcher.FetchRepositories(ctx, org)
	if err != nil {
		return nil, err
	}
	for i, repo := range repos {
		r.logger.Info("Analyzing repository", "repo", repo.Name, "progress", fmt.Sprintf("%d/%d", i+1, len(repos)))
		if err := r.analyzeRepository(ctx, report, repo, window); err != nil {
			return nil, fmt.Errorf("repository %s: %w", repo.Name, err)
		}
	}

	quotaEnd, err := r.fetcher.FetchRateLimitRemaining(ctx)
	switch {
	case err != nil:
		r.logger.Warn("Could not read rate limit", "err", err)
	case quotaErr == nil:
		r.logger.Info("GraphQL rate limit cost", "points", quotaStart-quotaEnd, "remaining", quotaEnd)
	}

	r.logger.Info("Usecase: Report complete.", "users", len(report.Users()))
	return report, nil
}

func (r *Reporter) analyzeRepository(ctx context.Context, report *domain.ReportData, repo domain.Repository, window domain.Window) error {
	options := report.Options
	if options.Commits {
		if err := r.countCommits(ctx, report, repo, window); err != nil {
			return err
		}
	}
	if options.Issues && repo.HasIssuesEnabled {
		if err := r.countIssues(ctx, report, repo, window); err != nil {
			return err
		}
	}
	if options.PullRequests {
		if err := r.countPullRequests(ctx, report, repo, window); err != nil {
			return err
		}
	}
	if options.Discussions && repo.HasDiscussionsEnabled {
		if err := r.countDiscussions(ctx, report, repo, window); err != nil {
			return err
		}
	}
	return nil
}

// countCommits credits each distinct commit of the scanned branches to its author once.
func (r *Reporter) countCommits(ctx context.Context, report *domain.ReportData, repo domain.Repository, window domain.Window) error {
	var branches []domain.Branch
	if report.Options.CommitsOnAllBranches {
		all, err := r.fetcher.FetchBranches(ctx, repo.ID)
		if err != nil {
			return err
		}
		branches = all
	} else {
		branch, err := r.fetcher.FetchDefaultBranch(ctx, repo.ID)
		if err != nil {
			return err
		}
		if branch == nil {
			r.logger.Debug("Repository has no default branch", "repo", repo.Name)
			return nil
		}
		branches = []domain.Branch{*branch}
	}

	// A commit reachable from several branches shows up once per branch.
	unique := make(map[string]domain.Commit)
	var order []string
	for _, branch := range branches {
		commits, err := r.fetcher.FetchCommits(ctx, branch.ID, window.Since, window.Until)
		if err != nil {
			return err
		}
		for _, c := range commits {
			// history(until:) is inclusive; until itself is outside the window.
			if !c.CommittedDate.Before(window.Until) {
				continue
			}
			if _, seen := unique[c.OID]; !seen {
				order = append(order, c.OID)
			}
			unique[c.OID] = c
		}
	}

	for _, oid := range order {
		if author := unique[oid].Author; author != "" {
			report.AddCommit(author)
		}
	}
	return nil
}

// countIssues credits issue creation to the author and, when enabled, every
// in-window comment to the issue author as well.
func (r *Reporter) countIssues(ctx context.Context, report *domain.ReportData, repo domain.Repository, window domain.Window) error {
	issues, err := r.fetcher.FetchIssues(ctx, repo.ID, window.Since)
	if err != nil {
		return err
	}
	for _, issue := range issues {
		if issue.Author != "" && window.Contains(issue.CreatedAt) {
			report.AddCreatedIssue(issue.Author)
		}
		if !report.Options.IssueComments {
			continue
		}
		comments, err := r.fetcher.FetchIssueComments(ctx, issue.ID)
		if err != nil {
			return err
		}
		for _, c := range comments {
			// Comments count as engagement received by the issue author.
			if c.Author != "" && issue.Author != "" && window.Contains(c.CreatedAt) {
				report.AddIssueComment(issue.Author)
			}
		}
	}
	return nil
}

func (r *Reporter) countPullRequests(ctx context.Context, report *domain.ReportData, repo domain.Repository, window domain.Window) error {
	prs, err := r.fetcher.FetchPullRequests(ctx, repo.ID)
	if err != nil {
		return err
	}
	for _, pr := range prs {
		if pr.Author != "" && window.Contains(pr.CreatedAt) {
			report.AddCreatedPR(pr.Author)
		}
		if pr.MergedAt != nil && pr.MergedBy != "" && window.Contains(*pr.MergedAt) {
			report.AddMergedPR(pr.MergedBy)
		}
		if !report.Options.PullRequestComments || pr.UpdatedAt.Before(window.Since) {
			continue
		}
		comments, err := r.fetcher.FetchPullRequestComments(ctx, pr.ID)
		if err != nil {
			return err
		}
		for _, c := range comments {
			if c.Author != "" && window.Contains(c.CreatedAt) {
				report.AddPRComment(c.Author)
			}
		}
	}
	return nil
}

func (r *Reporter) countDiscussions(ctx context.Context, report *domain.ReportData, repo domain.Repository, window domain.Window) error {
	discussions, err := r.fetcher.FetchDiscussions(ctx, repo.ID)
	if err != nil {
		return err
	}
	for _, d := range discussions {
		if d.Author != "" && window.Contains(d.CreatedAt) {
			report.AddCreatedDiscussion(d.Author)
		}
		if !report.Options.DiscussionComments || d.UpdatedAt.Before(window.Since) {
			continue
		}
		comments, err := r.fetcher.FetchDiscussionComments(ctx, d.ID)
		if err != nil {
			return err
		}
		for _, c := range comments {
			if c.Author != "" && window.Contains(c.CreatedAt) {
				report.AddDiscussionComment(c.Author)
			}
		}
	}
	return nil
}
