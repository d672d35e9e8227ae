package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/kilupskalvis/relnotes/internal/models"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List generated change logs",
	Long:  `List the change logs generated in this project, newest first.`,
	Args:  cobra.NoArgs,
	Run:   runHistory,
}

var (
	historyLimit int
	historyRepo  string
)

var showCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show a generated change log",
	Long: `Show a change log recorded by an earlier 'relnotes changelog' run.
The run ID may be abbreviated. Without an ID the most recent run is shown.`,
	Args: cobra.MaximumNArgs(1),
	Run:  runShow,
}

var showRaw bool

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "n", "n", 0, "Limit the number of runs to show")
	historyCmd.Flags().StringVar(&historyRepo, "repo", "", "Only show runs for this repository")

	showCmd.Flags().BoolVar(&showRaw, "raw", false, "Print only the change log")
}

func runHistory(cmd *cobra.Command, args []string) {
	c := initProjectContext()
	defer c.Close()

	runs, err := c.Store.ListRuns(historyRepo, historyLimit)
	if err != nil {
		exitError("failed to list runs: %v", err)
	}

	if len(runs) == 0 {
		fmt.Println("No change logs recorded yet")
		return
	}
	printRuns(os.Stdout, runs)
}

// printRuns writes one line per run.
func printRuns(w io.Writer, runs []*models.Run) {
	yellow := color.New(color.FgYellow)
	for _, r := range runs {
		yellow.Fprintf(w, "%s ", r.ShortID())
		fmt.Fprintf(w, "%s  %s@%s  %s..%s  (%d commits)\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			r.Repository, r.Target,
			shortSHA(r.StartCommit), shortSHA(r.EndCommit),
			r.CommitCount)
	}
}

func runShow(cmd *cobra.Command, args []string) {
	c := initProjectContext()
	defer c.Close()

	var run *models.Run
	var err error
	if len(args) > 0 {
		run, err = c.Store.GetRun(args[0])
	} else {
		run, err = c.Store.GetLastRun()
	}
	if err != nil {
		exitError("%v", err)
	}
	if run == nil {
		if len(args) > 0 {
			exitError("run not found: %s", args[0])
		}
		exitError("no change logs recorded yet")
	}

	if !showRaw {
		printRunHeader(os.Stdout, run)
	}
	fmt.Println(run.ChangeLog)
}

func printRunHeader(w io.Writer, run *models.Run) {
	color.New(color.FgYellow).Fprintf(w, "run %s\n", run.ID)
	fmt.Fprintf(w, "Repository: %s\n", run.Repository)
	fmt.Fprintf(w, "Target:     %s\n", run.Target)
	fmt.Fprintf(w, "Range:      %s..%s (%d commits)\n", run.StartCommit, run.EndCommit, run.CommitCount)
	fmt.Fprintf(w, "Date:       %s\n", run.CreatedAt.Local().Format("Mon Jan 2 15:04:05 2006"))
	if run.ChangeLog == "" {
		fmt.Fprintln(w, "\n(empty change log)")
	}
}

// shortSHA returns the first 7 characters of a commit SHA
func shortSHA(sha string) string {
	c := models.Commit{SHA: sha}
	return c.ShortSHA()
}
