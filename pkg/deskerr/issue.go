// issue.go composes pre-filled issue-tracker URLs for bug reports.

package deskerr

import (
	"net/url"
	"strings"
)

// Issue tracker defaults.
const (
	DefaultIssueBaseURL = "https://github.com/strongdm/deskerr/issues/new"
	DefaultIssueLabel   = "bug"
)

// IssueConfig identifies the issue tracker.
type IssueConfig struct {
	// BaseURL is the tracker's new-issue URL.
	BaseURL string

	// Label is attached to every issue via the "labels" parameter.
	Label string
}

// DefaultIssueConfig returns the built-in tracker settings.
func DefaultIssueConfig() IssueConfig {
	return IssueConfig{BaseURL: DefaultIssueBaseURL, Label: DefaultIssueLabel}
}

// IssueInfo is the environment section of an issue body.
type IssueInfo struct {
	Version     string
	Platform    string
	Path        string
	Language    string
	CountryCode string
}

// ComposeIssueURL builds the issue URL. When entry is nil the body has no
// "Error Info" section; the stack is fenced as a code block when present.
func ComposeIssueURL(cfg IssueConfig, entry *Entry, info IssueInfo) string {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultIssueBaseURL
	}
	if cfg.Label == "" {
		cfg.Label = DefaultIssueLabel
	}

	body := IssueBody(entry, info)

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return cfg.BaseURL + "?labels=" + url.QueryEscape(cfg.Label) + "&body=" + url.QueryEscape(body)
	}
	q := u.Query()
	q.Set("labels", cfg.Label)
	q.Set("body", body)
	u.RawQuery = q.Encode()
	return u.String()
}

// IssueBody renders the markdown body of an issue.
func IssueBody(entry *Entry, info IssueInfo) string {
	lines := []string{
		"<h2>Description</h2>",
		"Add some description...",
		"",
		"<h2>Steps to Reproduce</h2>",
		"Add steps to reproduce the error...",
		"",
	}

	if entry != nil {
		lines = append(lines,
			"<h2>Error Info</h2>",
			"",
			"**Error**: _"+entry.Name+": "+entry.Message+"_",
			"",
		)
		if entry.Stack != "" {
			lines = append(lines, "**Stack**:", "```", entry.Stack, "```", "")
		}
	}

	language := info.Language
	if language == "" {
		language = "-"
	}

	lines = append(lines,
		"<h2>Info</h2>",
		"",
		"**Version**: `"+info.Version+"`",
		"**Platform**: `"+info.Platform+"`",
		"**Path**: `"+info.Path+"`",
		"**Language**: `"+language+"`",
	)
	if info.CountryCode != "" {
		lines = append(lines, "**Country**: `"+info.CountryCode+"`")
	}

	return strings.Join(lines, "\n")
}
