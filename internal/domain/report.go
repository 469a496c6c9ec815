package domain

import (
	"bytes"
	"encoding/json"
)

// UserData holds the activity counters for a single user.
// IsActive is never set directly; every counter increment turns it on.
type UserData struct {
	IsOrgMember        bool `json:"isOrgMember"`
	IsActive           bool `json:"isActive"`
	Commits            int  `json:"commits"`
	CreatedIssues      int  `json:"createdIssues"`
	IssueComments      int  `json:"issueComments"`
	CreatedPRs         int  `json:"createdPrs"`
	MergedPRs          int  `json:"mergedPrs"`
	PRComments         int  `json:"prComments"`
	CreatedDiscussions int  `json:"createdDiscussions"`
	DiscussionComments int  `json:"discussionComments"`
}

// ReportData is the per-user activity report of one organization.
// Users are kept in the order they were first seen.
type ReportData struct {
	Organization string
	Options      AnalyzeOptions

	order []string
	users map[string]*UserData
}

// NewReportData creates an empty report bound to the options it was produced with.
func NewReportData(organization string, options AnalyzeOptions) *ReportData {
	return &ReportData{
		Organization: organization,
		Options:      options,
		users:        make(map[string]*UserData),
	}
}

// GetOrCreateUserData returns the record of login, creating a zero-valued one on first use.
func (r *ReportData) GetOrCreateUserData(login string) *UserData {
	if u, ok := r.users[login]; ok {
		return u
	}
	u := &UserData{}
	r.users[login] = u
	r.order = append(r.order, login)
	return u
}

// Users returns the logins in the report in first-seen order.
func (r *ReportData) Users() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// SetOrgMember flags login as a member of the organization.
func (r *ReportData) SetOrgMember(login string) {
	r.GetOrCreateUserData(login).IsOrgMember = true
}

// AddCommit counts one commit authored by login.
func (r *ReportData) AddCommit(login string) {
	r.increment(login, func(u *UserData) { u.Commits++ })
}

// AddCreatedIssue counts one issue opened by login.
func (r *ReportData) AddCreatedIssue(login string) {
	r.increment(login, func(u *UserData) { u.CreatedIssues++ })
}

// AddIssueComment counts one comment on an issue authored by login.
func (r *ReportData) AddIssueComment(login string) {
	r.increment(login, func(u *UserData) { u.IssueComments++ })
}

// AddCreatedPR counts one pull request opened by login.
func (r *ReportData) AddCreatedPR(login string) {
	r.increment(login, func(u *UserData) { u.CreatedPRs++ })
}

// AddMergedPR counts one pull request merged by login.
func (r *ReportData) AddMergedPR(login string) {
	r.increment(login, func(u *UserData) { u.MergedPRs++ })
}

// AddPRComment counts one pull request comment written by login.
func (r *ReportData) AddPRComment(login string) {
	r.increment(login, func(u *UserData) { u.PRComments++ })
}

// AddCreatedDiscussion counts one discussion opened by login.
func (r *ReportData) AddCreatedDiscussion(login string) {
	r.increment(login, func(u *UserData) { u.CreatedDiscussions++ })
}

// AddDiscussionComment counts one discussion comment written by login.
func (r *ReportData) AddDiscussionComment(login string) {
	r.increment(login, func(u *UserData) { u.DiscussionComments++ })
}

// increment applies one counter bump and then marks the user active.
func (r *ReportData) increment(login string, bump func(u *UserData)) {
	u := r.GetOrCreateUserData(login)
	bump(u)
	markActive(u)
}

func markActive(u *UserData) {
	u.IsActive = true
}

// ToJSON renders every user with all counters, independent of the analyze options.
// Keys appear in first-seen order.
func (r *ReportData) ToJSON() ([]byte, error) {
	if len(r.order) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, login := range r.order {
		key, err := json.Marshal(login)
		if err != nil {
			return nil, err
		}
		value, err := json.MarshalIndent(r.users[login], "  ", "  ")
		if err != nil {
			return nil, err
		}
		buf.WriteString("  ")
		buf.Write(key)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(r.order)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
