package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/kilupskalvis/relnotes/internal/models"
	"github.com/kilupskalvis/relnotes/internal/remote"
)

// ChangeLogType selects what the change log lists.
type ChangeLogType string

const (
	// CommitBased lists one line per commit.
	CommitBased ChangeLogType = "commit"
	// IssueBased lists one line per issue referenced by the commits.
	IssueBased ChangeLogType = "issue"
)

// ParseChangeLogType validates a change log type name. An empty name selects
// CommitBased.
func ParseChangeLogType(s string) (ChangeLogType, error) {
	switch ChangeLogType(s) {
	case "", CommitBased:
		return CommitBased, nil
	case IssueBased:
		return IssueBased, nil
	default:
		return "", fmt.Errorf("invalid change log type %q (want %s or %s)", s, CommitBased, IssueBased)
	}
}

// Options describes one change log computation.
type Options struct {
	// Repository is "owner/name".
	Repository string
	// Target is a branch name or commit SHA.
	Target string
	// Type defaults to CommitBased.
	Type ChangeLogType
	// VisibleLimit is how many entries are listed before the collapsible
	// section. Zero means DefaultVisibleLimit.
	VisibleLimit int
	Range        RangeOptions
	// FooterLink is the pipeline run URL for the footer. Empty omits the footer.
	FooterLink string
}

// Result is a computed change log together with the range it covers.
type Result struct {
	Repository  string
	Target      string
	StartCommit string
	EndCommit   string
	// Behind is set when the target is older than the previous release.
	Behind    bool
	Entries []models.CommitLogEntry
	// Issues is only set for IssueBased change logs.
	Issues    []models.Issue
	ChangeLog string
}

// Generator computes change logs against a remote.
type Generator struct {
	client remote.RemoteClient
	logger *slog.Logger
}

// NewGenerator creates a Generator. A nil logger discards output.
func NewGenerator(client remote.RemoteClient, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Generator{client: client, logger: logger}
}

// ComputeChangeLog computes and renders the change log for opts.
func ComputeChangeLog(ctx context.Context, client remote.RemoteClient, opts Options) (string, error) {
	res, err := NewGenerator(client, nil).Compute(ctx, opts)
	if err != nil {
		return "", err
	}
	return res.ChangeLog, nil
}

// Compute resolves the commit range for opts, fetches the commits in it and
// renders them. A rollback or an empty range gives an empty change log.
func (g *Generator) Compute(ctx context.Context, opts Options) (*Result, error) {
	if opts.Repository == "" {
		return nil, errors.New("repository is required")
	}
	if opts.Target == "" {
		return nil, errors.New("target is required")
	}

	end, err := g.ResolveEndCommit(ctx, opts.Repository, opts.Target)
	if err != nil {
		return nil, err
	}
	start, err := g.ResolveStartCommit(ctx, opts.Repository, end, opts.Range)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Repository:  opts.Repository,
		Target:      opts.Target,
		StartCommit: start,
		EndCommit:   end,
	}

	op := "compare commits"
	resp, err := g.client.GetCommitsList(ctx, opts.Repository, start, end)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, remote.NewListingError(op, resp)
	}
	cmp, err := remote.DecodeComparison(resp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cmp.Status == remote.StatusBehind {
		g.logger.Info("target is behind the previous release, nothing to list", "start", start, "end", end)
		result.Behind = true
		return result, nil
	}
	if len(cmp.Commits) == 0 {
		g.logger.Info("no commits between previous release and target", "start", start, "end", end)
		return result, nil
	}

	commits := newestFirst(cmp.Commits)
	bound := opts.Range.bound()
	if len(commits) > bound {
		g.logger.Debug("capping commit list", "commits", len(commits), "bound", bound)
		commits = commits[:bound]
	}

	result.Entries = BuildEntries(commits, opts.Repository)
	for _, e := range result.Entries {
		g.logger.Debug("commit issues", "sha", e.Commit.SHA, "issues", e.IssueIDs.Strings())
	}
	if opts.Type == IssueBased {
		if err := g.renderIssues(ctx, result, opts, bound); err != nil {
			return nil, err
		}
		return result, nil
	}
	result.ChangeLog = RenderChangeLog(result.Entries, opts.Repository, opts.VisibleLimit, opts.FooterLink)

	g.logger.Debug("change log computed", "start", start, "end", end, "entries", len(result.Entries))
	return result, nil
}

// renderIssues fetches the issues referenced by result's entries and renders
// them. An issue that cannot be fetched leaves the change log empty.
func (g *Generator) renderIssues(ctx context.Context, result *Result, opts Options, limit int) error {
	numbers := CollectIssueNumbers(result.Entries, opts.Repository, limit)
	if len(numbers) == 0 {
		g.logger.Info("no issues linked to the listed commits", "commits", len(result.Entries))
		return nil
	}

	issues := make([]models.Issue, 0, len(numbers))
	for _, n := range numbers {
		resp, err := g.client.GetIssue(ctx, opts.Repository, n)
		if err != nil {
			return fmt.Errorf("get issue #%d: %w", n, err)
		}
		if resp.StatusCode != http.StatusOK {
			g.logger.Warn("could not fetch issue, leaving change log empty",
				"issue", n, "error", remote.NewListingError("get issue", resp))
			return nil
		}
		issue, err := remote.DecodeIssue(resp)
		if err != nil {
			return fmt.Errorf("get issue #%d: %w", n, err)
		}
		if issue.Number == 0 {
			issue.Number = n
		}
		issues = append(issues, issue)
	}

	result.Issues = issues
	result.ChangeLog = RenderIssueChangeLog(issues, opts.VisibleLimit, opts.FooterLink)
	g.logger.Debug("issue change log computed", "issues", len(issues))
	return nil
}

// CollectIssueNumbers returns the distinct issue numbers of repository that
// entries reference, newest commit first, stopping after limit issues.
// References to other repositories and to issue 0 are skipped.
func CollectIssueNumbers(entries []models.CommitLogEntry, repository string, limit int) []int {
	var picked models.IssueSet
	var numbers []int
	for _, e := range entries {
		for _, id := range e.IssueIDs.Items() {
			if picked.Len() >= limit {
				return numbers
			}
			if id.Repository != repository {
				continue
			}
			n, err := strconv.Atoi(id.IssueID)
			if err != nil || n <= 0 {
				continue
			}
			key := models.RepositoryIssueID{Repository: repository, IssueID: strconv.Itoa(n)}
			if picked.Contains(key) {
				continue
			}
			picked.Add(key)
			numbers = append(numbers, n)
		}
	}
	return numbers
}

// BuildEntries pairs each commit with the issues its message references.
func BuildEntries(commits []models.Commit, repository string) []models.CommitLogEntry {
	entries := make([]models.CommitLogEntry, 0, len(commits))
	for _, c := range commits {
		entries = append(entries, models.CommitLogEntry{
			Commit:   c,
			IssueIDs: ExtractIssueReferences(c.Message, repository),
		})
	}
	return entries
}

// newestFirst reverses an oldest-first commit list. A SHA listed twice keeps
// its first newest-first position.
func newestFirst(commits []models.Commit) []models.Commit {
	out := make([]models.Commit, 0, len(commits))
	seen := make(map[string]bool, len(commits))
	for i := len(commits) - 1; i >= 0; i-- {
		c := commits[i]
		if seen[c.SHA] {
			continue
		}
		seen[c.SHA] = true
		out = append(out, c)
	}
	return out
}
