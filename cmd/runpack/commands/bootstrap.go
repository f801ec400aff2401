package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/genexomics/runpack/config"
	"github.com/genexomics/runpack/errors"
	"github.com/genexomics/runpack/internal/execx"
	"github.com/genexomics/runpack/logger"
	"github.com/genexomics/runpack/pipeline"
	"github.com/genexomics/runpack/provision"
	"github.com/genexomics/runpack/sampledata"
)

// BootstrapCmd provisions the object-storage environment for one mode.
var BootstrapCmd = &cobra.Command{
	Use:   "bootstrap <test|prod>",
	Short: "Provision buckets for the selected environment",
	Long: `Provision the object-storage buckets named by the bucket descriptor.

The test environment targets the local emulator containers; the prod
environment targets the real cloud account using ambient credentials.
Provisioning is idempotent: buckets that already exist are left untouched,
so re-running bootstrap converges without side effects.

Examples:
  runpack bootstrap test                  # Emulator buckets only
  runpack bootstrap test --sample-data    # Plus synthetic runs under run_root
  runpack bootstrap test --run-pipeline   # Provision, then process all runs
  runpack bootstrap prod                  # Cloud buckets via ambient credentials`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mode := config.Mode(args[0])
		if !mode.Valid() {
			return errors.Wrapf(ErrBadConfig, "unknown mode %q, expected test or prod", args[0])
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if section, _ := cmd.Flags().GetString("section"); section != "" {
			cfg.Descriptor.Section = section
		}
		if key, _ := cmd.Flags().GetString("bucket-key"); key != "" {
			cfg.Descriptor.BucketKey = key
		}

		specs, err := resolveSpecs(cfg)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		runner := execx.NewCommandRunner(logger.Logger)

		if build, _ := cmd.Flags().GetBool("build-images"); build {
			if mode != config.ModeTest {
				return errors.Wrap(ErrBadConfig, "--build-images applies to the test environment only")
			}
			pterm.Info.Println("Building container images")
			docker, dockerArgs, err := execx.SplitCommand(cfg.Tools.Docker)
			if err != nil {
				return err
			}
			if _, err := runner.Run(ctx, docker, append(dockerArgs, "compose", "build")...); err != nil {
				return errors.Wrap(err, "building container images")
			}
		}

		var provisioner provision.Provisioner
		switch mode {
		case config.ModeTest:
			provisioner = provision.NewLocal(cfg, runner, logger.Logger)
		case config.ModeProd:
			provisioner, err = provision.NewCloud(ctx, cfg, logger.Logger)
			if err != nil {
				return err
			}
		}

		spinner, _ := pterm.DefaultSpinner.Start("Provisioning buckets")
		if err := provisioner.Ensure(ctx, specs...); err != nil {
			if spinner != nil {
				spinner.Fail("Provisioning failed")
			}
			return err
		}
		if spinner != nil {
			spinner.Success("Buckets provisioned")
		}
		for _, spec := range specs {
			pterm.Success.Printf("Bucket ready: %s (%s/%s)", spec.Bucket, spec.Section, spec.Key)
			pterm.Println()
		}

		if sample, _ := cmd.Flags().GetBool("sample-data"); sample {
			if err := sampledata.Generate(cfg.Pipeline.RunRoot,
				cfg.Dataset.SampleRuns, cfg.Dataset.SampleFilesPerRun, logger.Logger); err != nil {
				return err
			}
			pterm.Success.Printf("Sample dataset generated under %s", cfg.Pipeline.RunRoot)
			pterm.Println()
		}
		if minimal, _ := cmd.Flags().GetBool("minimal"); minimal {
			if err := sampledata.FetchMinimal(ctx,
				cfg.Dataset.MinimalSources, cfg.Pipeline.RunRoot, logger.Logger); err != nil {
				return err
			}
			pterm.Success.Printf("Minimal dataset fetched into %s", cfg.Pipeline.RunRoot)
			pterm.Println()
		}

		if run, _ := cmd.Flags().GetBool("run-pipeline"); run {
			// Buckets are already ensured above; the pipeline skips its
			// own provisioning pass.
			return runPipeline(ctx, cfg, pipeline.Deps{})
		}
		return nil
	},
}

func init() {
	BootstrapCmd.Flags().Bool("sample-data", false, "Generate synthetic runs under pipeline.run_root")
	BootstrapCmd.Flags().Bool("minimal", false, "Fetch the configured minimal dataset into pipeline.run_root")
	BootstrapCmd.Flags().Bool("run-pipeline", false, "Process all discovered runs after provisioning")
	BootstrapCmd.Flags().Bool("build-images", false, "Build the emulator container images first (test mode)")
	BootstrapCmd.Flags().String("section", "", "Descriptor section override")
	BootstrapCmd.Flags().String("bucket-key", "", "Descriptor bucket key override")
}
