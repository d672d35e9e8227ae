package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/kilupskalvis/relnotes/internal/config"
	"github.com/kilupskalvis/relnotes/internal/core"
	"github.com/kilupskalvis/relnotes/internal/gitrepo"
	"github.com/kilupskalvis/relnotes/internal/models"
	"github.com/kilupskalvis/relnotes/internal/remote"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var changelogCmd = &cobra.Command{
	Use:   "changelog [target]",
	Short: "Generate the change log for a branch or commit",
	Long: `Generate the change log between the previous release and a target
branch or commit SHA.

The repository defaults to the configured one, then to the origin remote
of the enclosing git checkout. The target defaults to the current branch.

Examples:
  relnotes changelog main
  relnotes changelog --repo owner/name 1a2b3c4
  relnotes changelog --format json --output changes.json`,
	Args: cobra.MaximumNArgs(1),
	Run:  runChangelog,
}

// changelogFlags holds the flag values of the changelog command. Zero values
// defer to the configuration.
type changelogFlags struct {
	Repo          string
	Target        string
	APIURL        string
	VisibleLimit  int
	FallbackBound int
	StartMode     string
	TagPattern    string
	Type          string
	Format        string
	Output        string
	NoHistory     bool
}

var clFlags changelogFlags

func init() {
	f := changelogCmd.Flags()
	f.StringVar(&clFlags.Repo, "repo", "", "GitHub repository (owner/name)")
	f.StringVar(&clFlags.Target, "target", "", "Target branch or commit SHA")
	f.StringVar(&clFlags.APIURL, "api-url", "", "GitHub API base URL")
	f.IntVar(&clFlags.VisibleLimit, "visible-limit", 0, "Entries shown before the collapsed section")
	f.IntVar(&clFlags.FallbackBound, "fallback-bound", 0, "Commits walked back when there is no previous release")
	f.StringVar(&clFlags.StartMode, "start-mode", "", "Previous release selection (last-full-release|last-non-draft-release|last-non-draft-release-by-tag)")
	f.StringVar(&clFlags.TagPattern, "tag-pattern", "", "Regular expression release tags must match")
	f.StringVar(&clFlags.Type, "type", "", "Change log type (commit|issue)")
	f.StringVarP(&clFlags.Format, "format", "f", formatMarkdown, "Output format (markdown|json|yaml)")
	f.StringVarP(&clFlags.Output, "output", "o", "", "Write the output to a file instead of stdout")
	f.BoolVar(&clFlags.NoHistory, "no-history", false, "Do not record this run in the project history")
}

func runChangelog(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		if clFlags.Target != "" && clFlags.Target != args[0] {
			exitError("target given both as argument and --target")
		}
		clFlags.Target = args[0]
	}
	if !validFormat(clFlags.Format) {
		exitError("unknown format %q (want markdown, json or yaml)", clFlags.Format)
	}

	c := initContext()
	defer c.Close()

	repository, target, err := resolveDefaults(c.Config, clFlags.Repo, clFlags.Target, "")
	if err != nil {
		exitError("%v", err)
	}
	opts, err := buildOptions(c.Config, clFlags, repository, target)
	if err != nil {
		exitError("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	gen := core.NewGenerator(newRemoteClient(c.Config, clFlags.APIURL), logger)

	stopSpinner := startSpinner(fmt.Sprintf(" Computing change log for %s@%s", repository, target))
	res, err := gen.Compute(ctx, opts)
	stopSpinner()
	if err != nil {
		exitError("failed to compute change log: %v", err)
	}

	if res.Behind {
		fmt.Fprintln(os.Stderr, color.YellowString("Target %s is behind the previous release; nothing to list", target))
	}

	if err := emit(res, clFlags.Format, clFlags.Output); err != nil {
		exitError("%v", err)
	}

	if c.Store != nil && !clFlags.NoHistory {
		run := runFromResult(res)
		if err := c.Store.SaveRun(run); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not record run: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "Recorded run %s\n", color.YellowString(run.ShortID()))
	}
}

// resolveDefaults fills in the repository and target from the configuration
// and the git checkout containing dir.
func resolveDefaults(cfg *config.Config, repository, target, dir string) (string, string, error) {
	if repository == "" {
		repository = cfg.Repository
	}
	if repository == "" {
		detected, err := gitrepo.DetectRepository(dir)
		if err != nil {
			return "", "", fmt.Errorf("no repository given and none detected: %w", err)
		}
		repository = detected
	}
	if !config.ValidRepository(repository) {
		return "", "", fmt.Errorf("repository must look like owner/name, got %q", repository)
	}

	if target == "" {
		branch, err := gitrepo.CurrentBranch(dir)
		if err != nil {
			return "", "", fmt.Errorf("no target given and none detected: %w", err)
		}
		if branch == "" {
			return "", "", fmt.Errorf("no target given and the checkout is in detached HEAD state")
		}
		target = branch
	}
	return repository, target, nil
}

// buildOptions merges flag values over the configuration.
func buildOptions(cfg *config.Config, f changelogFlags, repository, target string) (core.Options, error) {
	mode, err := core.ParseStartMode(firstNonEmpty(f.StartMode, cfg.StartMode))
	if err != nil {
		return core.Options{}, err
	}
	clType, err := core.ParseChangeLogType(firstNonEmpty(f.Type, cfg.ChangeLogType))
	if err != nil {
		return core.Options{}, err
	}

	visible := cfg.VisibleLimit
	if f.VisibleLimit > 0 {
		visible = f.VisibleLimit
	}
	bound := cfg.FallbackBound
	if f.FallbackBound > 0 {
		bound = f.FallbackBound
	}

	return core.Options{
		Repository:   repository,
		Target:       target,
		Type:         clType,
		VisibleLimit: visible,
		Range: core.RangeOptions{
			Mode:          mode,
			TagPattern:    firstNonEmpty(f.TagPattern, cfg.ReleaseTagPattern),
			FallbackBound: bound,
		},
		FooterLink: core.FooterLink(cfg.PipelineRun()),
	}, nil
}

// newRemoteClient builds the retrying GitHub client for cfg.
func newRemoteClient(cfg *config.Config, apiURL string) remote.RemoteClient {
	httpClient := remote.NewHTTPClient(firstNonEmpty(apiURL, cfg.APIURL), cfg.Token).
		WithTimeout(cfg.RequestTimeout()).
		WithLogger(logger)

	retry := remote.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries
	return remote.NewRetryClient(httpClient, retry)
}

// runFromResult converts a computed change log into a history record.
func runFromResult(res *core.Result) *models.Run {
	return &models.Run{
		Repository:  res.Repository,
		Target:      res.Target,
		StartCommit: res.StartCommit,
		EndCommit:   res.EndCommit,
		CommitCount: len(res.Entries),
		ChangeLog:   res.ChangeLog,
	}
}

// emit writes the result to path, or to stdout when path is empty.
func emit(res *core.Result, format, path string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeReport(w, format, res); err != nil {
		return err
	}

	if path == "" && format == formatMarkdown && res.ChangeLog != "" && !strings.HasSuffix(res.ChangeLog, "\n") {
		fmt.Println()
	}
	return nil
}

// startSpinner shows a spinner on stderr while stderr is a terminal. The
// returned function stops it.
func startSpinner(suffix string) func() {
	if !term.IsTerminal(int(os.Stderr.Fd())) || os.Getenv("NO_COLOR") != "" {
		return func() {}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	return s.Stop
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
