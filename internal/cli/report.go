package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kilupskalvis/relnotes/internal/core"
	"github.com/kilupskalvis/relnotes/internal/models"
	"gopkg.in/yaml.v3"
)

const (
	formatMarkdown = "markdown"
	formatJSON     = "json"
	formatYAML     = "yaml"
)

func validFormat(format string) bool {
	switch format {
	case formatMarkdown, formatJSON, formatYAML:
		return true
	}
	return false
}

// report is the structured form of a computed change log.
type report struct {
	Repository  string         `json:"repository" yaml:"repository"`
	Target      string         `json:"target" yaml:"target"`
	StartCommit string         `json:"start_commit" yaml:"start_commit"`
	EndCommit   string         `json:"end_commit" yaml:"end_commit"`
	Entries     []reportEntry  `json:"entries" yaml:"entries"`
	Issues      []models.Issue `json:"issues,omitempty" yaml:"issues,omitempty"`
	ChangeLog   string         `json:"changelog" yaml:"changelog"`
}

// MarshalYAML writes the change log as a double-quoted scalar. Block
// scalars cannot carry its leading blank lines unchanged.
func (r report) MarshalYAML() (interface{}, error) {
	type plain report
	var node yaml.Node
	if err := node.Encode(plain(r)); err != nil {
		return nil, err
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "changelog" {
			node.Content[i+1].Value = r.ChangeLog
			node.Content[i+1].Style = yaml.DoubleQuotedStyle
		}
	}
	return &node, nil
}

type reportEntry struct {
	SHA    string           `json:"sha" yaml:"sha"`
	Title  string           `json:"title" yaml:"title"`
	Issues *models.IssueSet `json:"issues" yaml:"issues"`
}

func newReport(res *core.Result) report {
	r := report{
		Repository:  res.Repository,
		Target:      res.Target,
		StartCommit: res.StartCommit,
		EndCommit:   res.EndCommit,
		Entries:     make([]reportEntry, 0, len(res.Entries)),
		Issues:      res.Issues,
		ChangeLog:   res.ChangeLog,
	}
	for _, e := range res.Entries {
		issues := e.IssueIDs
		if issues == nil {
			issues = models.NewIssueSet()
		}
		r.Entries = append(r.Entries, reportEntry{
			SHA:    e.Commit.SHA,
			Title:  core.FirstLine(e.Commit.Message),
			Issues: issues,
		})
	}
	return r
}

// writeReport writes res to w in the given format. Markdown is the change
// log text as is.
func writeReport(w io.Writer, format string, res *core.Result) error {
	switch format {
	case formatMarkdown:
		_, err := io.WriteString(w, res.ChangeLog)
		return err
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(newReport(res)); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(newReport(res)); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
