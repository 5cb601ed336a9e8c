/*
Package cmd provides the CLI commands for mailmerge.
*/
package cmd

import (
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool

	logger = log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: false})
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mailmerge",
	Short: "Resolve [Tag] placeholders in email templates",
	Long: `mailmerge resolves bracketed [Tag] placeholders in email templates.

Recipients in "to" and "cc" become [recipient] tags resolved against
recipientTokens; subject and body are resolved against tokens.

Example:
  mailmerge render -f request.yaml             # Resolve a request file
  mailmerge render -f request.json -o yaml     # Print the result as YAML
  mailmerge keys generate                      # Print a new MASTER_KEY
  mailmerge keys create --name ci              # Store a new function key`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		initLogging()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(keysCmd)
}

func initLogging() {
	if debug {
		logger.SetLevel(log.DebugLevel)
	} else if verbose {
		logger.SetLevel(log.InfoLevel)
	} else {
		logger.SetLevel(log.WarnLevel)
	}

	// Packages that log through slog (store, auth) share the CLI handler.
	slog.SetDefault(slog.New(logger))
}
