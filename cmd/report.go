package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/naka-gawa/org-activity/internal/config"
	"github.com/naka-gawa/org-activity/internal/domain"
	"github.com/naka-gawa/org-activity/internal/gateway"
	"github.com/naka-gawa/org-activity/internal/usecase"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Builds the user activity report of an organization",
	Long: `Counts commits, issues, pull requests, discussions and comments per user of a
GitHub organization within [since, until) and writes the result as JSON, CSV or Markdown.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		logger := newLogger(cmd)

		cfg, err := resolveConfig(cmd.Flags())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		window, err := cfg.Window(time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		token, err := config.TokenFromEnv()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger.Debug("Resolved window", "since", window.Since, "until", window.Until)

		// Inject dependencies and run the main business logic.
		githubGateway, err := gateway.NewGitHubGateway(token, cfg.APIURL, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		reporter := usecase.NewReporter(githubGateway, logger)

		report, err := reporter.Run(ctx, cfg.Organization, window, cfg.Options())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build report: %v\n", err)
			os.Exit(1)
		}
		logSummary(logger, report)

		if err := writeOutputs(report, cfg.Output); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write report: %v\n", err)
			os.Exit(1)
		}
		if cfg.Output.Print {
			fmt.Print(report.ToText())
		}
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addReportFlags(reportCmd.Flags())
}

func addReportFlags(flags *pflag.FlagSet) {
	defaults := config.Default()
	flags.StringP("org", "o", "", "Target GitHub organization name (required unless set in --config)")
	flags.StringP("config", "c", "", "Path to a YAML config file; explicit flags override its values")
	flags.String("since", "", "Start of the window, inclusive (RFC 3339 or YYYY-MM-DD)")
	flags.Int("since-days", defaults.SinceDays, "Window length in days when --since is not given")
	flags.String("until", "", "End of the window, exclusive (RFC 3339 or YYYY-MM-DD); defaults to now")
	flags.String("api-url", "", "GitHub Enterprise Server REST URL (defaults to $GITHUB_API_URL or github.com)")

	flags.Bool("analyze-commits", defaults.Analyze.Commits, "Count commits")
	flags.Bool("analyze-commits-on-all-branches", defaults.Analyze.CommitsOnAllBranches, "Count commits on every branch instead of the default branch only")
	flags.Bool("analyze-issues", defaults.Analyze.Issues, "Count created issues")
	flags.Bool("analyze-issue-comments", defaults.Analyze.IssueComments, "Count issue comments (requires --analyze-issues)")
	flags.Bool("analyze-pull-requests", defaults.Analyze.PullRequests, "Count created and merged pull requests")
	flags.Bool("analyze-pull-request-comments", defaults.Analyze.PullRequestComments, "Count pull request comments (requires --analyze-pull-requests)")
	flags.Bool("analyze-discussions", defaults.Analyze.Discussions, "Count created discussions")
	flags.Bool("analyze-discussion-comments", defaults.Analyze.DiscussionComments, "Count discussion comments (requires --analyze-discussions)")

	flags.String("json", "", "Write the report as JSON to this file")
	flags.String("csv", "", "Write the report as CSV to this file")
	flags.String("markdown", "", "Write the report as a Markdown table to this file")
	flags.Bool("print", false, "Print the report table to standard output")
}

// resolveConfig starts from the defaults or the --config file and applies every flag the user set.
func resolveConfig(flags *pflag.FlagSet) (config.Config, error) {
	cfg := config.Default()
	if path, _ := flags.GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	setString := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if flags.Changed(name) {
			*dst, _ = flags.GetBool(name)
		}
	}

	setString("org", &cfg.Organization)
	setString("since", &cfg.Since)
	setString("until", &cfg.Until)
	setString("api-url", &cfg.APIURL)
	if flags.Changed("since-days") {
		cfg.SinceDays, _ = flags.GetInt("since-days")
	}

	setBool("analyze-commits", &cfg.Analyze.Commits)
	setBool("analyze-commits-on-all-branches", &cfg.Analyze.CommitsOnAllBranches)
	setBool("analyze-issues", &cfg.Analyze.Issues)
	setBool("analyze-issue-comments", &cfg.Analyze.IssueComments)
	setBool("analyze-pull-requests", &cfg.Analyze.PullRequests)
	setBool("analyze-pull-request-comments", &cfg.Analyze.PullRequestComments)
	setBool("analyze-discussions", &cfg.Analyze.Discussions)
	setBool("analyze-discussion-comments", &cfg.Analyze.DiscussionComments)

	setString("json", &cfg.Output.JSON)
	setString("csv", &cfg.Output.CSV)
	setString("markdown", &cfg.Output.Markdown)
	setBool("print", &cfg.Output.Print)

	if cfg.APIURL == "" {
		cfg.APIURL = os.Getenv("GITHUB_API_URL")
	}
	return cfg, cfg.Validate()
}

// writeOutputs writes every requested file. The report is only read here,
// so the files are rendered and written concurrently.
func writeOutputs(report *domain.ReportData, out config.Output) error {
	var eg errgroup.Group
	write := func(path string, render func() ([]byte, error)) {
		if path == "" {
			return
		}
		eg.Go(func() error {
			data, err := render()
			if err != nil {
				return fmt.Errorf("failed to render %s: %w", path, err)
			}
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			return nil
		})
	}

	write(out.JSON, report.ToJSON)
	write(out.CSV, func() ([]byte, error) { return []byte(report.ToCSV()), nil })
	write(out.Markdown, func() ([]byte, error) { return []byte(report.ToMarkdown()), nil })
	return eg.Wait()
}

func logSummary(logger *log.Logger, report *domain.ReportData) {
	summaries, err := usecase.Summarize(report)
	if err != nil {
		logger.Warn("Could not summarize report", "err", err)
		return
	}
	for _, s := range summaries {
		logger.Info("Column summary", "column", s.Name, "total", s.Total, "mean", fmt.Sprintf("%.2f", s.Mean), "median", s.Median)
	}
}
