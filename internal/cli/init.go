package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/relnotes/internal/config"
	"github.com/kilupskalvis/relnotes/internal/gitrepo"
	"github.com/kilupskalvis/relnotes/internal/store"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a relnotes project",
	Long: `Initialize a relnotes project in the current directory.
This creates a .relnotes directory holding the configuration and the
history of generated change logs.

Without --repo the repository is taken from the origin remote of the
enclosing git checkout, if there is one.`,
	Run: runInit,
}

var initRepo string

func init() {
	initCmd.Flags().StringVar(&initRepo, "repo", "", "GitHub repository (owner/name)")
}

func runInit(cmd *cobra.Command, args []string) {
	// Check if already initialized
	if _, err := config.FindProjectRoot(); err == nil {
		exitError("relnotes project already exists")
	}

	repository := initRepo
	if repository == "" {
		detected, err := gitrepo.DetectRepository("")
		if err != nil {
			logger.Debug("no repository detected from git checkout", "error", err)
		} else {
			repository = detected
		}
	}

	cfg, err := config.Initialize(repository)
	if err != nil {
		exitError("failed to initialize config: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		exitError("failed to create store: %v", err)
	}
	defer st.Close()

	if err := st.Initialize(); err != nil {
		exitError("failed to initialize store: %v", err)
	}

	fmt.Printf("Initialized relnotes project in %s/\n", config.ProjectDir)
	if repository != "" {
		fmt.Printf("Repository: %s\n", color.CyanString(repository))
	} else {
		color.Yellow("No repository detected; set one with 'relnotes config set repository owner/name'")
	}
}
