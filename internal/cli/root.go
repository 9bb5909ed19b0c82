// Package cli holds the courseweb command tree.
package cli

import (
	"fmt"

	"github.com/ghaggin/courseweb/internal/config"
	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	configPath string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "courseweb",
		Short: "Web and terminal client for the course enrollment service",
		Long: `courseweb talks to the course enrollment API.

"courseweb serve" runs the browser client: course listings, sign in and
registration, a student's enrollments and the admin console. The other
commands do the student operations from a terminal, keeping the session
token in a local credentials file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", string(config.DefaultPath), "path to the YAML config file")

	rootCmd.AddCommand(
		serveCmd(opts),
		loginCmd(opts),
		logoutCmd(opts),
		whoamiCmd(opts),
		coursesCmd(opts),
		enrollCmd(opts),
		dropCmd(opts),
		versionCmd(),
	)

	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "courseweb %s (%s)\n", version, commit)
		},
	}
}
