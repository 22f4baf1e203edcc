package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/microbot/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Display the version, build time, git commit and Go version of MicroBot.`,
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := version.Get()
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "MicroBot - small self-hosted chat assistant")
			fmt.Fprintf(out, "Version: %s\n", info.Version)
			fmt.Fprintf(out, "Build Time: %s\n", info.BuildTime)
			fmt.Fprintf(out, "Git Commit: %s\n", info.GitCommit)
			fmt.Fprintf(out, "Go Version: %s\n", info.GoVersion)
		},
	}
}
