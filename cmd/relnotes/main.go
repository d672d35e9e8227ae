// Command relnotes generates release notes for GitHub repositories.
package main

import (
	"os"

	"github.com/kilupskalvis/relnotes/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
