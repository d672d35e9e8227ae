package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/kilupskalvis/relnotes/internal/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change configuration",
	Long: `Show or change the project configuration.

Without a subcommand, lists the effective value of every key.

Examples:
  relnotes config                           List all keys
  relnotes config get visible_limit         Print one key
  relnotes config set start_mode last-non-draft-release`,
	Args: cobra.NoArgs,
	Run:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the effective value of a key",
	Args:  cobra.ExactArgs(1),
	Run:   runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Write a key to the project configuration",
	Args:  cobra.ExactArgs(2),
	Run:   runConfigSet,
}

func init() {
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
}

func runConfigList(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	cyan := color.New(color.FgCyan)
	for _, key := range config.Keys() {
		value, _ := cfg.Get(key)
		cyan.Printf("%s", key)
		fmt.Printf(" = %s\n", value)
	}
}

func runConfigGet(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		exitError("%v", err)
	}

	value, err := cfg.Get(args[0])
	if err != nil {
		exitError("%v", err)
	}
	fmt.Println(value)
}

func runConfigSet(cmd *cobra.Command, args []string) {
	projectPath, err := config.FindProjectRoot()
	if err != nil {
		exitError("%v", err)
	}

	if err := config.SetValue(projectPath, args[0], args[1]); err != nil {
		exitError("%v", err)
	}
	color.Green("Set %s = %s", args[0], args[1])
}
