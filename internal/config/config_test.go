package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestProject initializes a project in a temp directory.
func newTestProject(t *testing.T, repository string) *Config {
	t.Helper()
	t.Setenv("GITHUB_TOKEN", "")
	cfg, err := InitializeAt(t.TempDir(), repository)
	require.NoError(t, err)
	return cfg
}

func writeConfig(t *testing.T, projectPath, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(projectPath, ConfigFile), []byte(content), 0644))
}

// ==================== Load Tests ====================

func TestLoadFrom_Defaults(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.False(t, cfg.HasProject())
	assert.Equal(t, "https://api.github.com", cfg.APIURL)
	assert.Equal(t, 10, cfg.VisibleLimit)
	assert.Equal(t, 250, cfg.FallbackBound)
	assert.Equal(t, "last-full-release", cfg.StartMode)
	assert.Equal(t, "commit", cfg.ChangeLogType)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
}

func TestInitializeAt_RoundTrip(t *testing.T) {
	cfg := newTestProject(t, "owner/repo")
	assert.True(t, cfg.HasProject())
	assert.FileExists(t, filepath.Join(cfg.ProjectPath(), ConfigFile))
	assert.Equal(t, filepath.Join(cfg.ProjectPath(), DatabaseFile), cfg.DatabasePath())

	loaded, err := LoadFrom(cfg.ProjectPath())
	require.NoError(t, err)
	assert.Equal(t, "owner/repo", loaded.Repository)
	assert.Equal(t, 10, loaded.VisibleLimit)
}

func TestInitializeAt_AlreadyExists(t *testing.T) {
	cfg := newTestProject(t, "")

	_, err := InitializeAt(filepath.Dir(cfg.ProjectPath()), "")
	assert.ErrorContains(t, err, "already exists")
}

func TestInitializeAt_InvalidRepository(t *testing.T) {
	dir := t.TempDir()

	_, err := InitializeAt(dir, "not-a-repo")
	assert.ErrorContains(t, err, "owner/name")
	assert.NoDirExists(t, filepath.Join(dir, ProjectDir))
}

func TestLoadFrom_FileOverridesDefaults(t *testing.T) {
	cfg := newTestProject(t, "owner/repo")
	writeConfig(t, cfg.ProjectPath(), `
repository = "other/repo"
visible_limit = 5
start_mode = "last-non-draft-release"
release_web_url = "https://example.com/release/1"
`)

	loaded, err := LoadFrom(cfg.ProjectPath())
	require.NoError(t, err)
	assert.Equal(t, "other/repo", loaded.Repository)
	assert.Equal(t, 5, loaded.VisibleLimit)
	assert.Equal(t, 250, loaded.FallbackBound)
	assert.Equal(t, "last-non-draft-release", loaded.StartMode)
	assert.Equal(t, "https://example.com/release/1", loaded.PipelineRun().ReleaseWebURL)
}

func TestLoadFrom_EnvOverridesFile(t *testing.T) {
	cfg := newTestProject(t, "owner/repo")
	writeConfig(t, cfg.ProjectPath(), "visible_limit = 5\n")
	t.Setenv("RELNOTES_VISIBLE_LIMIT", "7")
	t.Setenv("RELNOTES_REPOSITORY", "env/repo")

	loaded, err := LoadFrom(cfg.ProjectPath())
	require.NoError(t, err)
	assert.Equal(t, 7, loaded.VisibleLimit)
	assert.Equal(t, "env/repo", loaded.Repository)
}

func TestLoadFrom_PipelineVariables(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("SYSTEM_TEAMFOUNDATIONCOLLECTIONURI", "https://dev.azure.com/org/")
	t.Setenv("SYSTEM_TEAMPROJECT", "proj")
	t.Setenv("BUILD_BUILDID", "42")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	run := cfg.PipelineRun()
	assert.Equal(t, "https://dev.azure.com/org/", run.CollectionURI)
	assert.Equal(t, "proj", run.TeamProject)
	assert.Equal(t, "42", run.BuildID)
}

func TestLoadFrom_Token(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "gh-token")

	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, "gh-token", cfg.Token)

	t.Setenv("RELNOTES_TOKEN", "relnotes-token")
	cfg, err = LoadFrom("")
	require.NoError(t, err)
	assert.Equal(t, "relnotes-token", cfg.Token)
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"zero visible limit", "visible_limit = 0\n", "visible_limit"},
		{"zero bound", "fallback_bound = 0\n", "fallback_bound"},
		{"negative retries", "max_retries = -1\n", "max_retries"},
		{"bad repository", "repository = \"nope\"\n", "owner/name"},
		{"bad toml", "visible_limit = \n", "failed to load config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := newTestProject(t, "")
			writeConfig(t, cfg.ProjectPath(), tt.content)

			_, err := LoadFrom(cfg.ProjectPath())
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSave_OmitsToken(t *testing.T) {
	cfg := newTestProject(t, "owner/repo")
	cfg.Token = "secret"
	require.NoError(t, cfg.Save())

	data, err := os.ReadFile(filepath.Join(cfg.ProjectPath(), ConfigFile))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
	assert.Contains(t, string(data), "owner/repo")
}

func TestSave_OutsideProject(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	cfg, err := LoadFrom("")
	require.NoError(t, err)
	assert.Error(t, cfg.Save())
}

func TestFindProjectRoot(t *testing.T) {
	cfg := newTestProject(t, "")
	nested := filepath.Join(filepath.Dir(cfg.ProjectPath()), "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	t.Chdir(nested)

	root, err := FindProjectRoot()
	require.NoError(t, err)

	want, err := filepath.EvalSymlinks(cfg.ProjectPath())
	require.NoError(t, err)
	got, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// ==================== Key Tests ====================

func TestSetValue(t *testing.T) {
	cfg := newTestProject(t, "owner/repo")

	require.NoError(t, SetValue(cfg.ProjectPath(), "visible_limit", "12"))
	require.NoError(t, SetValue(cfg.ProjectPath(), "release_tag_pattern", `v\d+`))
	require.NoError(t, SetValue(cfg.ProjectPath(), "changelog_type", "issue"))

	loaded, err := LoadFrom(cfg.ProjectPath())
	require.NoError(t, err)
	assert.Equal(t, 12, loaded.VisibleLimit)
	assert.Equal(t, `v\d+`, loaded.ReleaseTagPattern)
	assert.Equal(t, "issue", loaded.ChangeLogType)
	assert.Equal(t, "owner/repo", loaded.Repository)

	got, err := loaded.Get("visible_limit")
	require.NoError(t, err)
	assert.Equal(t, "12", got)
}

func TestSetValue_Rejected(t *testing.T) {
	cfg := newTestProject(t, "owner/repo")
	before, err := os.ReadFile(filepath.Join(cfg.ProjectPath(), ConfigFile))
	require.NoError(t, err)

	assert.ErrorContains(t, SetValue(cfg.ProjectPath(), "token", "x"), "unknown config key")
	assert.ErrorContains(t, SetValue(cfg.ProjectPath(), "timeout", "soon"), "must be an integer")
	assert.ErrorContains(t, SetValue(cfg.ProjectPath(), "visible_limit", "0"), "visible_limit")

	after, err := os.ReadFile(filepath.Join(cfg.ProjectPath(), ConfigFile))
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestGet_UnknownKey(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	cfg, err := LoadFrom("")
	require.NoError(t, err)

	_, err = cfg.Get("token")
	assert.Error(t, err)
}

func TestKeys_Sorted(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "visible_limit")
	assert.NotContains(t, keys, "token")
	assert.IsIncreasing(t, keys)
}
