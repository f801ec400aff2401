package commands

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/genexomics/runpack/bucketcfg"
	"github.com/genexomics/runpack/config"
	"github.com/genexomics/runpack/errors"
	"github.com/genexomics/runpack/internal/execx"
	"github.com/genexomics/runpack/logger"
	"github.com/genexomics/runpack/pipeline"
)

// ErrBadConfig wraps configuration loading and validation failures so main
// can map them to the configuration-error exit status.
var ErrBadConfig = errors.New("configuration error")

// loadConfig honors the global --config override, falling back to the
// merged search-path configuration.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFromFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, errors.Wrapf(ErrBadConfig, "%v", err)
	}
	return cfg, nil
}

// resolveSpecs resolves the bucket targets named in the descriptor: the
// primary upload bucket plus, when configured, the registry bucket. The
// descriptor's quilt-style block also backfills registry coordinates the
// configuration leaves empty.
func resolveSpecs(cfg *config.Config) ([]bucketcfg.BucketSpec, error) {
	d := cfg.Descriptor
	primary, err := bucketcfg.Resolve(d.Path, d.Section, d.BucketKey)
	if err != nil {
		return nil, err
	}
	specs := []bucketcfg.BucketSpec{primary}

	if d.RegistryBucketKey != "" {
		registry, err := bucketcfg.Resolve(d.Path, d.Section, d.RegistryBucketKey)
		if err != nil {
			return nil, err
		}
		specs = append(specs, registry)
	}

	reg, err := bucketcfg.ResolveRegistry(d.Path, d.Section)
	if err == nil {
		if cfg.Registry.Namespace == "" {
			cfg.Registry.Namespace = reg.Namespace
		}
		if cfg.Registry.Registry == "" {
			cfg.Registry.Registry = reg.Registry
		}
	}
	return specs, nil
}

// runPipeline assembles the external collaborators and drives one full
// pipeline invocation, rendering the per-run summary afterwards.
func runPipeline(ctx context.Context, cfg *config.Config, deps pipeline.Deps) error {
	runner := execx.NewCommandRunner(logger.Logger)
	if deps.Uploader == nil {
		deps.Uploader = pipeline.NewExecUploader(runner, cfg)
	}
	if deps.Builder == nil {
		deps.Builder = pipeline.NewExecPackageBuilder(runner, cfg)
	}
	if deps.Attacher == nil {
		deps.Attacher = pipeline.NewExecMetadataAttacher(runner, cfg)
	}
	deps.Log = logger.Logger

	summary, err := pipeline.NewOrchestrator(cfg, deps).Execute(ctx)
	if summary != nil {
		renderSummary(summary)
	}
	return err
}

func renderSummary(summary *pipeline.Summary) {
	if len(summary.Results) == 0 {
		pterm.Warning.Println("No run directories found")
		return
	}

	data := pterm.TableData{{"Run", "State", "Package", "Detail"}}
	for _, r := range summary.Results {
		detail := ""
		if r.Failed() {
			detail = string(r.FailedStage) + ": " + r.Err.Error()
		} else if r.Metadata != "" {
			detail = string(r.Metadata)
		}
		data = append(data, []string{r.Run.Name, string(r.State), r.PackageID, detail})
	}
	pterm.DefaultTable.WithHasHeader().WithData(data).Render()

	failed := summary.Failed()
	if len(failed) == 0 {
		pterm.Success.Printf("All %d runs completed", len(summary.Results))
		pterm.Println()
		return
	}
	pterm.Error.Printf("%d of %d runs failed", len(failed), len(summary.Results))
	pterm.Println()
}
