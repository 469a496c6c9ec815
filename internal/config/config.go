// Package config loads the settings of a report run from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/naka-gawa/org-activity/internal/domain"
)

var (
	ErrMissingOrganization = errors.New("organization is not set")
	ErrMissingToken        = errors.New("GITHUB_TOKEN environment variable is not set")
	ErrInvalidWindow       = errors.New("since must be before until")
)

// DefaultSinceDays is the look-back used when no explicit since is given.
const DefaultSinceDays = 30

// Accepted layouts for since/until, tried in order.
var timeLayouts = []string{time.RFC3339, "2006-01-02"}

// Config represents the settings of one report run.
type Config struct {
	Organization string `yaml:"organization"`
	// Since and Until are RFC 3339 timestamps or YYYY-MM-DD dates.
	Since     string                `yaml:"since,omitempty"`
	SinceDays int                   `yaml:"since_days,omitempty"`
	Until     string                `yaml:"until,omitempty"`
	APIURL    string                `yaml:"api_url,omitempty"`
	Analyze   domain.AnalyzeOptions `yaml:"analyze"`
	Output    Output                `yaml:"output"`
}

// Output selects where the report is written. Empty paths are skipped.
type Output struct {
	JSON     string `yaml:"json,omitempty"`
	CSV      string `yaml:"csv,omitempty"`
	Markdown string `yaml:"markdown,omitempty"`
	Print    bool   `yaml:"print,omitempty"`
}

// Default returns the configuration used when nothing is specified:
// the last 30 days, every resource and comment type on default branches only.
func Default() Config {
	return Config{
		SinceDays: DefaultSinceDays,
		Analyze: domain.AnalyzeOptions{
			Commits:             true,
			Issues:              true,
			IssueComments:       true,
			PullRequests:        true,
			PullRequestComments: true,
			Discussions:         true,
			DiscussionComments:  true,
		},
	}
}

// Load reads a YAML file on top of Default. Keys missing from the file keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the settings that have no sensible default.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Organization) == "" {
		return ErrMissingOrganization
	}
	if c.SinceDays < 0 {
		return fmt.Errorf("since_days must not be negative, got %d", c.SinceDays)
	}
	return nil
}

// Options returns the analyze options with comment toggles cleared when their parent is off.
func (c Config) Options() domain.AnalyzeOptions {
	return c.Analyze.Normalize()
}

// Window resolves since and until against now.
func (c Config) Window(now time.Time) (domain.Window, error) {
	w := domain.Window{
		Since: now.AddDate(0, 0, -c.SinceDays),
		Until: now,
	}
	if c.Since != "" {
		t, err := parseTime(c.Since)
		if err != nil {
			return domain.Window{}, fmt.Errorf("invalid since: %w", err)
		}
		w.Since = t
	}
	if c.Until != "" {
		t, err := parseTime(c.Until)
		if err != nil {
			return domain.Window{}, fmt.Errorf("invalid until: %w", err)
		}
		w.Until = t
	}
	if !w.Since.Before(w.Until) {
		return domain.Window{}, fmt.Errorf("%w (since %s, until %s)", ErrInvalidWindow, w.Since.Format(time.RFC3339), w.Until.Format(time.RFC3339))
	}
	return w, nil
}

// TokenFromEnv returns the GitHub token of the environment.
func TokenFromEnv() (string, error) {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func parseTime(value string) (time.Time, error) {
	var firstErr error
	for _, layout := range timeLayouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}
