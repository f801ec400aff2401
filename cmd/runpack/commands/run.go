package commands

import (
	"github.com/spf13/cobra"

	"github.com/genexomics/runpack/pipeline"
)

// RunCmd processes every discovered run without touching provisioning.
var RunCmd = &cobra.Command{
	Use:   "run",
	Short: "Process all discovered runs (upload, package, metadata)",
	Long: `Discover run directories under pipeline.run_root and drive each through
upload, packaging, and optional metadata attachment. Buckets must already
exist; use 'runpack bootstrap' to provision them first.

Runs are independent: one failed run never blocks its siblings. By default
any failed run flips the process exit status
(pipeline.fail_process_on_run_error = false disables that).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if _, err := resolveSpecs(cfg); err != nil {
			// The descriptor also carries registry defaults; a run without
			// a resolvable upload bucket cannot produce valid locations.
			return err
		}
		return runPipeline(cmd.Context(), cfg, pipeline.Deps{})
	},
}
