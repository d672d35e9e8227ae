package cli

import (
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "completion [bash|zsh|fish]",
		Short: "Generate shell completion script",
		Long: `Generate shell completion script for relnotes.

To load completions:

Bash:
  $ source <(relnotes completion bash)
  # Or add to ~/.bashrc:
  $ echo 'source <(relnotes completion bash)' >> ~/.bashrc

Zsh:
  $ source <(relnotes completion zsh)
  # Or add to ~/.zshrc:
  $ echo 'source <(relnotes completion zsh)' >> ~/.zshrc

Fish:
  $ relnotes completion fish | source
  # Or add to config:
  $ relnotes completion fish > ~/.config/fish/completions/relnotes.fish
`,
		ValidArgs:             []string{"bash", "zsh", "fish"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		DisableFlagsInUseLine: true,
		Run: func(cmd *cobra.Command, args []string) {
			switch args[0] {
			case "bash":
				rootCmd.GenBashCompletion(os.Stdout)
			case "zsh":
				rootCmd.GenZshCompletion(os.Stdout)
			case "fish":
				rootCmd.GenFishCompletion(os.Stdout, true)
			}
		},
	})
}
