package main

import (
	"github.com/cay-lang/cay/cmd"
	"github.com/spf13/cobra"
	"os"
)

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "cay [subcommand]",
	Short:        "cay\n the constraint solver behind the cay type checker",
	Args:         cobra.MinimumNArgs(1),
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(cmd.TraceCmd)
}
