package domain

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

const (
	glyphYes = "✔️"
	glyphNo  = "❌"
)

// Column is one rendered column of a report table. Exactly one of Flag and Count is set.
type Column struct {
	Name  string
	Flag  func(u *UserData) bool
	Count func(u *UserData) int
}

func (c Column) render(u *UserData, yes, no string) string {
	if c.Flag != nil {
		if c.Flag(u) {
			return yes
		}
		return no
	}
	return strconv.Itoa(c.Count(u))
}

var baseColumns = []Column{
	{Name: "Org member", Flag: func(u *UserData) bool { return u.IsOrgMember }},
	{Name: "Active", Flag: func(u *UserData) bool { return u.IsActive }},
}

// gatedColumns lists the optional columns in output order together with the
// toggle that enables them. Every table renderer goes through this list.
var gatedColumns = []struct {
	enabled func(o AnalyzeOptions) bool
	columns []Column
}{
	{
		enabled: func(o AnalyzeOptions) bool { return o.Commits },
		columns: []Column{{Name: "Commits", Count: func(u *UserData) int { return u.Commits }}},
	},
	{
		enabled: func(o AnalyzeOptions) bool { return o.Issues },
		columns: []Column{{Name: "Created Issues", Count: func(u *UserData) int { return u.CreatedIssues }}},
	},
	{
		enabled: func(o AnalyzeOptions) bool { return o.IssueComments },
		columns: []Column{{Name: "Issue Comments", Count: func(u *UserData) int { return u.IssueComments }}},
	},
	{
		enabled: func(o AnalyzeOptions) bool { return o.PullRequests },
		columns: []Column{
			{Name: "Created PRs", Count: func(u *UserData) int { return u.CreatedPRs }},
			{Name: "Merged PRs", Count: func(u *UserData) int { return u.MergedPRs }},
		},
	},
	{
		enabled: func(o AnalyzeOptions) bool { return o.PullRequestComments },
		columns: []Column{{Name: "PR Comments", Count: func(u *UserData) int { return u.PRComments }}},
	},
	{
		enabled: func(o AnalyzeOptions) bool { return o.Discussions },
		columns: []Column{{Name: "Created Discussions", Count: func(u *UserData) int { return u.CreatedDiscussions }}},
	},
	{
		enabled: func(o AnalyzeOptions) bool { return o.DiscussionComments },
		columns: []Column{{Name: "Discussion Comments", Count: func(u *UserData) int { return u.DiscussionComments }}},
	},
}

// Columns returns the table columns after the User column for the report's options.
func (r *ReportData) Columns() []Column {
	cols := append([]Column(nil), baseColumns...)
	for _, g := range gatedColumns {
		if g.enabled(r.Options) {
			cols = append(cols, g.columns...)
		}
	}
	return cols
}

// Header returns the column names of the table renderers, starting with User.
func (r *ReportData) Header() []string {
	cols := r.Columns()
	header := make([]string, 0, len(cols)+1)
	header = append(header, "User")
	for _, c := range cols {
		header = append(header, c.Name)
	}
	return header
}

// rows renders one cell slice per user, booleans as yes/no.
func (r *ReportData) rows(yes, no string) [][]string {
	cols := r.Columns()
	rows := make([][]string, 0, len(r.order))
	for _, login := range r.order {
		u := r.users[login]
		row := make([]string, 0, len(cols)+1)
		row = append(row, login)
		for _, c := range cols {
			row = append(row, c.render(u, yes, no))
		}
		rows = append(rows, row)
	}
	return rows
}

// ToMarkdown renders the report as a Markdown table with a heading.
func (r *ReportData) ToMarkdown() string {
	var b strings.Builder
	header := r.Header()
	fmt.Fprintf(&b, "# User Activity Report for %s\n", r.Organization)
	b.WriteString("\n")
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString(strings.Repeat("|---", len(header)) + "|\n")
	for _, row := range r.rows(glyphYes, glyphNo) {
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return b.String()
}

// ToCSV renders the report as comma separated values with 1/0 booleans.
func (r *ReportData) ToCSV() string {
	var b strings.Builder
	b.WriteString(strings.Join(r.Header(), ",") + "\n")
	for _, row := range r.rows("1", "0") {
		b.WriteString(strings.Join(row, ",") + "\n")
	}
	return b.String()
}

// ToText renders the report as an aligned table for terminal output.
func (r *ReportData) ToText() string {
	header := r.Header()
	rows := r.rows(glyphYes, glyphNo)

	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	writeLine := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
				continue
			}
			b.WriteString(runewidth.FillRight(cell, widths[i]))
		}
		b.WriteString("\n")
	}

	writeLine(header)
	sep := make([]string, len(header))
	for i, w := range widths {
		sep[i] = strings.Repeat("-", w)
	}
	writeLine(sep)
	for _, row := range rows {
		writeLine(row)
	}
	return b.String()
}
