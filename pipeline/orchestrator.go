package pipeline

import (
	"context"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/genexomics/runpack/bucketcfg"
	"github.com/genexomics/runpack/config"
	"github.com/genexomics/runpack/errors"
	"github.com/genexomics/runpack/provision"
)

// ErrRunsFailed is returned by Execute when per-run failures should flip
// the process exit status (pipeline.fail_process_on_run_error).
var ErrRunsFailed = errors.New("one or more runs failed")

// Deps are the orchestrator's injected collaborators.
type Deps struct {
	// Provisioner ensures buckets before any per-run work. Nil skips the
	// precondition (already provisioned out of band).
	Provisioner provision.Provisioner
	Specs       []bucketcfg.BucketSpec

	Uploader Uploader
	Builder  PackageBuilder
	Attacher MetadataAttacher
	Log      *zap.SugaredLogger
}

// Orchestrator fans out over discovered runs and drives each through
// upload → package → metadata with failure isolation between runs.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps

	upload *UploadStage
	pack   *PackageStage
	meta   *MetadataStage

	invocationID string
}

// Summary is the outcome of one pipeline invocation.
type Summary struct {
	InvocationID string
	Results      []RunResult
}

// Failed returns the runs that reached the failure terminal.
func (s *Summary) Failed() []RunResult {
	var out []RunResult
	for _, r := range s.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// NewOrchestrator assembles the stage pipeline from configuration.
func NewOrchestrator(cfg *config.Config, deps Deps) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = zap.NewNop().Sugar()
		deps.Log = log
	}

	manifestDir := ""
	if cfg.Pipeline.LogDir != "" {
		manifestDir = filepath.Join(cfg.Pipeline.LogDir, "manifests")
	}

	return &Orchestrator{
		cfg:  cfg,
		deps: deps,
		upload: NewUploadStage(deps.Uploader,
			cfg.Pipeline.UploadConcurrency,
			cfg.Pipeline.UploadLaunchesPerMin,
			manifestDir, log),
		pack: NewPackageStage(deps.Builder,
			cfg.Registry.Namespace,
			cfg.Registry.Registry,
			cfg.Pipeline.Message, log),
		meta: NewMetadataStage(deps.Attacher,
			cfg.Metadata,
			cfg.Registry.Registry, log),
		invocationID: uuid.NewString(),
	}
}

// Execute provisions buckets, then processes every discovered run. The
// returned Summary always covers all runs; the error is non-nil when
// provisioning failed or when failed runs should fail the process.
func (o *Orchestrator) Execute(ctx context.Context) (*Summary, error) {
	log := o.deps.Log
	log.Infow("pipeline starting",
		"invocation", o.invocationID,
		"run_root", o.cfg.Pipeline.RunRoot,
		"workers", o.workers())

	// Shared precondition: buckets must exist (or best-effort per the
	// provisioner's own policy) before the first upload launches.
	if o.deps.Provisioner != nil {
		if err := o.deps.Provisioner.Ensure(ctx, o.deps.Specs...); err != nil {
			return nil, errors.Wrap(err, "bucket provisioning precondition failed")
		}
	}

	runs, err := DiscoverRuns(o.cfg.Pipeline.RunRoot)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		log.Warnw("no run directories found", "run_root", o.cfg.Pipeline.RunRoot)
		return &Summary{InvocationID: o.invocationID}, nil
	}
	log.Infow("runs discovered", "count", len(runs))

	jobs := make(chan RunDirectory)
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results []RunResult
	)
	for i := 0; i < o.workers(); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for run := range jobs {
				result := o.processRun(ctx, run)
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}
		}()
	}
	for _, run := range runs {
		jobs <- run
	}
	close(jobs)
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Run.Name < results[j].Run.Name })
	summary := &Summary{InvocationID: o.invocationID, Results: results}

	if failed := summary.Failed(); len(failed) > 0 && o.cfg.Pipeline.FailProcessOnRunError {
		names := make([]string, len(failed))
		for i, r := range failed {
			names[i] = r.Run.Name
		}
		return summary, errors.Wrapf(ErrRunsFailed, "%d of %d runs failed: %v", len(failed), len(results), names)
	}
	return summary, nil
}

func (o *Orchestrator) workers() int {
	if w := o.cfg.Pipeline.Workers; w > 0 {
		return w
	}
	return 1
}

// processRun drives one run through the stage sequence. Failures here stay
// inside the returned result; siblings are unaffected.
func (o *Orchestrator) processRun(ctx context.Context, run RunDirectory) RunResult {
	log := o.deps.Log
	result := RunResult{Run: run, State: StateDiscovered}

	o.transition(&result, StateUploading)
	manifest, err := o.upload.Run(ctx, run)
	if err != nil {
		return o.fail(&result, StageUpload, err)
	}
	result.Manifest = manifest
	o.transition(&result, StateUploaded)

	o.transition(&result, StatePackaging)
	packageID, err := o.pack.Run(ctx, run, manifest)
	if err != nil {
		return o.fail(&result, StagePackage, err)
	}
	result.PackageID = packageID
	o.transition(&result, StatePackaged)

	if o.cfg.Metadata.Enabled {
		o.transition(&result, StateMetadataPending)
	}
	result.Metadata = o.meta.Run(ctx, run, packageID)
	o.transition(&result, result.Metadata)

	o.transition(&result, StateDone)
	log.Infow("run complete", "run", run.Name, "package", packageID)
	return result
}

func (o *Orchestrator) transition(result *RunResult, next State) {
	o.deps.Log.Debugw("run state",
		"run", result.Run.Name, "from", result.State, "to", next)
	result.State = next
}

func (o *Orchestrator) fail(result *RunResult, stage Stage, err error) RunResult {
	o.deps.Log.Errorw("run failed",
		"run", result.Run.Name, "stage", stage, "error", err)
	result.State = StateFailed
	result.FailedStage = stage
	result.Err = err
	return *result
}
