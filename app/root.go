// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jobready",
	Short: "jobready is the AI job-readiness assessment backend",
	Long: `jobready is the REST backend of the AI job-readiness assessment
platform: accounts, role based access control, resume submission and
readiness scores.`,
	Args: cobra.OnlyValidArgs,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
