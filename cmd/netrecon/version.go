package main

import (
	"fmt"

	"netrecon/internal/pkg/version"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "显示版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("netrecon %s\n", version.GetVersion())
		if version.BuildTime != "" {
			fmt.Printf("Build Time: %s\n", version.BuildTime)
		}
		if version.GitCommit != "" {
			fmt.Printf("Git Commit: %s\n", version.GitCommit)
		}
		if version.GoVersion != "" {
			fmt.Printf("Go Version: %s\n", version.GoVersion)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
