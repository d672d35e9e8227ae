package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/kilupskalvis/relnotes/internal/config"
	"github.com/kilupskalvis/relnotes/internal/core"
	"github.com/kilupskalvis/relnotes/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func loadTestConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "")
	cfg, err := config.LoadFrom("")
	require.NoError(t, err)
	return cfg
}

// initCheckout creates a git checkout on branch "main" with an origin remote.
func initCheckout(t *testing.T, originURL string) string {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	worktree, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# Test"), 0o644))
	_, err = worktree.Add("README.md")
	require.NoError(t, err)
	_, err = worktree.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@test.com", When: time.Now()},
	})
	require.NoError(t, err)

	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: "origin", URLs: []string{originURL}})
	require.NoError(t, err)
	return dir
}

func sampleResult() *core.Result {
	entries := core.BuildEntries([]models.Commit{
		{SHA: "c2", Message: "Fix crash (#4)\n\nDetails"},
		{SHA: "c1", Message: "Add feature #7 and #8"},
	}, "owner/repo")
	return &core.Result{
		Repository:  "owner/repo",
		Target:      "main",
		StartCommit: "abc",
		EndCommit:   "c2",
		Entries:     entries,
		ChangeLog:   core.RenderChangeLog(entries, "owner/repo", 1, ""),
	}
}

// ==================== Logging Tests ====================

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, "info", "json")
	logger.Debug("hidden")
	logger.Info("shown", "key", "value")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &record))
	assert.Equal(t, "shown", record["msg"])
	assert.Equal(t, "value", record["key"])
}

func TestNewLogger_DefaultsToWarnText(t *testing.T) {
	var buf bytes.Buffer

	logger := newLogger(&buf, "bogus", "text")
	logger.Info("hidden")
	logger.Warn("careful")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "msg=careful")
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("RELNOTES_TEST_VALUE", "")
	assert.Equal(t, "fallback", envOrDefault("RELNOTES_TEST_VALUE", "fallback"))

	t.Setenv("RELNOTES_TEST_VALUE", "set")
	assert.Equal(t, "set", envOrDefault("RELNOTES_TEST_VALUE", "fallback"))
}

// ==================== Options Tests ====================

func TestBuildOptions_FromConfig(t *testing.T) {
	t.Setenv("RELEASE_RELEASEWEBURL", "https://example.com/release/1")
	cfg := loadTestConfig(t)

	opts, err := buildOptions(cfg, changelogFlags{}, "owner/repo", "main")
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", opts.Repository)
	assert.Equal(t, "main", opts.Target)
	assert.Equal(t, 10, opts.VisibleLimit)
	assert.Equal(t, core.StartLastFullRelease, opts.Range.Mode)
	assert.Equal(t, core.CommitBased, opts.Type)
	assert.Equal(t, 250, opts.Range.FallbackBound)
	assert.Equal(t, "", opts.Range.TagPattern)
	assert.Equal(t, "https://example.com/release/1", opts.FooterLink)
}

func TestBuildOptions_FlagsOverrideConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.ReleaseTagPattern = `v\d+`

	opts, err := buildOptions(cfg, changelogFlags{
		VisibleLimit:  3,
		FallbackBound: 40,
		StartMode:     "last-non-draft-release-by-tag",
		TagPattern:    `release-\d+`,
		Type:          "issue",
	}, "owner/repo", "main")
	require.NoError(t, err)
	assert.Equal(t, core.IssueBased, opts.Type)
	assert.Equal(t, 3, opts.VisibleLimit)
	assert.Equal(t, 40, opts.Range.FallbackBound)
	assert.Equal(t, core.StartLastNonDraftReleaseByTag, opts.Range.Mode)
	assert.Equal(t, `release-\d+`, opts.Range.TagPattern)
}

func TestBuildOptions_InvalidStartMode(t *testing.T) {
	cfg := loadTestConfig(t)

	_, err := buildOptions(cfg, changelogFlags{StartMode: "whenever"}, "owner/repo", "main")
	assert.ErrorContains(t, err, "invalid start mode")
}

func TestBuildOptions_TypeFromConfig(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.ChangeLogType = "issue"

	opts, err := buildOptions(cfg, changelogFlags{}, "owner/repo", "main")
	require.NoError(t, err)
	assert.Equal(t, core.IssueBased, opts.Type)

	_, err = buildOptions(cfg, changelogFlags{Type: "label"}, "owner/repo", "main")
	assert.ErrorContains(t, err, "invalid change log type")
}

func TestResolveDefaults_Explicit(t *testing.T) {
	cfg := loadTestConfig(t)
	cfg.Repository = "config/repo"

	repo, target, err := resolveDefaults(cfg, "flag/repo", "v2", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "flag/repo", repo)
	assert.Equal(t, "v2", target)

	repo, _, err = resolveDefaults(cfg, "", "v2", t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "config/repo", repo)
}

func TestResolveDefaults_FromCheckout(t *testing.T) {
	cfg := loadTestConfig(t)
	dir := initCheckout(t, "https://github.com/owner/repo.git")

	repo, target, err := resolveDefaults(cfg, "", "", dir)
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", repo)
	assert.Equal(t, "master", target)
}

func TestResolveDefaults_Errors(t *testing.T) {
	cfg := loadTestConfig(t)

	_, _, err := resolveDefaults(cfg, "", "main", t.TempDir())
	assert.ErrorContains(t, err, "no repository given")

	_, _, err = resolveDefaults(cfg, "nope", "main", t.TempDir())
	assert.ErrorContains(t, err, "owner/name")

	_, _, err = resolveDefaults(cfg, "owner/repo", "", t.TempDir())
	assert.ErrorContains(t, err, "no target given")
}

// ==================== Report Tests ====================

func TestWriteReport_Markdown(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer

	require.NoError(t, writeReport(&buf, formatMarkdown, res))
	assert.Equal(t, res.ChangeLog, buf.String())
}

func TestWriteReport_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, formatJSON, sampleResult()))

	var got struct {
		Repository  string `json:"repository"`
		Target      string `json:"target"`
		StartCommit string `json:"start_commit"`
		EndCommit   string `json:"end_commit"`
		Entries     []struct {
			SHA    string           `json:"sha"`
			Title  string           `json:"title"`
			Issues *models.IssueSet `json:"issues"`
		} `json:"entries"`
		ChangeLog string `json:"changelog"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "owner/repo", got.Repository)
	assert.Equal(t, "main", got.Target)
	assert.Equal(t, "abc", got.StartCommit)
	assert.Equal(t, "c2", got.EndCommit)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, "c2", got.Entries[0].SHA)
	assert.Equal(t, "Fix crash (#4)", got.Entries[0].Title)
	assert.Equal(t, []string{"owner/repo#4"}, got.Entries[0].Issues.Strings())
	assert.Equal(t, []string{"owner/repo#7", "owner/repo#8"}, got.Entries[1].Issues.Strings())
	assert.True(t, got.Entries[1].Issues.Contains(models.RepositoryIssueID{Repository: "owner/repo", IssueID: "8"}))
	assert.Contains(t, got.ChangeLog, "## Changes:")
	assert.NotContains(t, buf.String(), `"issues": [{`)
	// HTML in the change log is not escaped.
	assert.Contains(t, buf.String(), "<details>")
	assert.NotContains(t, buf.String(), `\u003c`)
}

func TestWriteReport_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, formatYAML, sampleResult()))

	var got struct {
		Repository string `yaml:"repository"`
		Entries    []struct {
			SHA    string   `yaml:"sha"`
			Issues []string `yaml:"issues"`
		} `yaml:"entries"`
		ChangeLog string `yaml:"changelog"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "owner/repo", got.Repository)
	require.Len(t, got.Entries, 2)
	assert.Equal(t, []string{"owner/repo#4"}, got.Entries[0].Issues)
	assert.Equal(t, sampleResult().ChangeLog, got.ChangeLog)
}

func TestWriteReport_YAMLKeepsLeadingBlankLines(t *testing.T) {
	res := sampleResult()
	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, formatYAML, res))

	assert.Contains(t, buf.String(), `changelog: "\n\n## Changes:`)

	var got struct {
		ChangeLog string `yaml:"changelog"`
	}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	assert.True(t, strings.HasPrefix(got.ChangeLog, "\n\n## Changes:\n\n* c2 "), got.ChangeLog)
	assert.Equal(t, res.ChangeLog, got.ChangeLog)
}

func TestWriteReport_IssueBased(t *testing.T) {
	res := sampleResult()
	res.Issues = []models.Issue{{Number: 4, Title: "Crash on start"}, {Number: 7, Title: "Feature"}}
	res.ChangeLog = core.RenderIssueChangeLog(res.Issues, core.DefaultVisibleLimit, "")

	var buf bytes.Buffer
	require.NoError(t, writeReport(&buf, formatJSON, res))
	var got struct {
		Issues    []models.Issue `json:"issues"`
		ChangeLog string         `json:"changelog"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, res.Issues, got.Issues)
	assert.Contains(t, got.ChangeLog, "* #4: Crash on start\n* #7: Feature\n")

	buf.Reset()
	require.NoError(t, writeReport(&buf, formatYAML, res))
	assert.Contains(t, buf.String(), "title: Crash on start")
}

func TestWriteReport_EmptyResult(t *testing.T) {
	res := &core.Result{Repository: "owner/repo", Target: "main", Behind: true}
	var buf bytes.Buffer

	require.NoError(t, writeReport(&buf, formatJSON, res))
	assert.Contains(t, buf.String(), `"entries": []`)
	assert.Contains(t, buf.String(), `"changelog": ""`)
	assert.NotContains(t, buf.String(), `"issues": null`)
}

func TestWriteReport_UnknownFormat(t *testing.T) {
	assert.False(t, validFormat("html"))
	assert.True(t, validFormat(formatYAML))
	assert.Error(t, writeReport(&bytes.Buffer{}, "html", sampleResult()))
}

// ==================== History Tests ====================

func TestRunFromResult(t *testing.T) {
	res := sampleResult()

	run := runFromResult(res)
	assert.Equal(t, "", run.ID)
	assert.Equal(t, "owner/repo", run.Repository)
	assert.Equal(t, "main", run.Target)
	assert.Equal(t, "abc", run.StartCommit)
	assert.Equal(t, "c2", run.EndCommit)
	assert.Equal(t, 2, run.CommitCount)
	assert.Equal(t, res.ChangeLog, run.ChangeLog)
}

func TestPrintRuns(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer

	printRuns(&buf, []*models.Run{{
		ID:          "0123456789abcdef",
		Repository:  "owner/repo",
		Target:      "main",
		StartCommit: "1111111aaaa",
		EndCommit:   "2222222bbbb",
		CommitCount: 5,
		CreatedAt:   time.Now(),
	}})

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "01234567 "))
	assert.Contains(t, out, "owner/repo@main")
	assert.Contains(t, out, "1111111..2222222")
	assert.Contains(t, out, "(5 commits)")
}
