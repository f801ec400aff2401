package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/genexomics/runpack/bucketcfg"
	"github.com/genexomics/runpack/cmd/runpack/commands"
	"github.com/genexomics/runpack/errors"
	"github.com/genexomics/runpack/logger"
	"github.com/genexomics/runpack/provision"
)

// Exit statuses shared with the external tooling: 0 success, 1 runtime
// failure, 2 configuration error, 3 unmet precondition.
const (
	exitOK           = 0
	exitRuntime      = 1
	exitConfig       = 2
	exitPrecondition = 3
)

var rootCmd = &cobra.Command{
	Use:   "runpack",
	Short: "runpack - Sequencing-run ingestion and packaging",
	Long: `runpack - Ingest sequencing runs into versioned data packages.

runpack discovers run directories, uploads their files to object storage,
builds a versioned package per run, and optionally attaches external
metadata. A bootstrap subcommand provisions the storage buckets first,
against either a local emulator or the real cloud account.

Available commands:
  bootstrap - Provision buckets for the test or prod environment
  run       - Process all discovered runs (upload, package, metadata)
  version   - Show version information

Examples:
  runpack bootstrap test --sample-data   # Local emulator + synthetic runs
  runpack bootstrap prod                 # Cloud buckets
  runpack run                            # Process every discovered run`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			return logger.SetVerbose()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Emit logs as JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("config", "", "Configuration file (overrides the search path)")

	rootCmd.AddCommand(commands.BootstrapCmd)
	rootCmd.AddCommand(commands.RunCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	err := rootCmd.Execute()
	logger.Cleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(exitCode(err))
}

// exitCode maps the sentinel taxonomy onto process exit statuses.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.IsAny(err, provision.ErrPreconditionMissing, provision.ErrAuthInvalid):
		return exitPrecondition
	case errors.IsAny(err, bucketcfg.ErrConfigNotFound, commands.ErrBadConfig):
		return exitConfig
	default:
		return exitRuntime
	}
}
