package provision

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/genexomics/runpack/bucketcfg"
	"github.com/genexomics/runpack/config"
	"github.com/genexomics/runpack/errors"
	"github.com/genexomics/runpack/internal/execx"
)

// Local provisions buckets in the emulated object store. It requires a
// container runtime; emulator readiness is advisory only.
type Local struct {
	cfg    *config.Config
	runner execx.Runner
	log    *zap.SugaredLogger

	httpClient *http.Client
	lookPath   func(string) (string, error)
	sleep      func(time.Duration)
}

// NewLocal returns a Local provisioner driving the configured container
// runtime through runner.
func NewLocal(cfg *config.Config, runner execx.Runner, log *zap.SugaredLogger) *Local {
	return &Local{
		cfg:        cfg,
		runner:     runner,
		log:        log,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		lookPath:   exec.LookPath,
		sleep:      time.Sleep,
	}
}

// Ensure verifies the runtime, waits (best effort) for the emulator, and
// creates every missing bucket.
func (l *Local) Ensure(ctx context.Context, specs ...bucketcfg.BucketSpec) error {
	docker, _, err := execx.SplitCommand(l.cfg.Tools.Docker)
	if err != nil {
		return err
	}
	if _, err := l.lookPath(docker); err != nil {
		return errors.WithHint(
			errors.Wrapf(ErrPreconditionMissing, "container runtime %q not found", docker),
			"install Docker or point tools.docker at your runtime")
	}

	if !l.waitHealthy(ctx) {
		// Readiness is advisory: the control container may still come up in
		// time for the create calls below.
		l.log.Warnw("emulator health check timed out, proceeding anyway",
			"endpoint", l.cfg.Emulator.Endpoint,
			"attempts", l.healthAttempts())
	}

	l.ensureContainer(ctx, docker)

	for _, spec := range dedupe(specs) {
		if err := l.ensureBucket(ctx, docker, spec.Bucket); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) healthAttempts() int {
	if n := l.cfg.Emulator.HealthAttempts; n > 0 {
		return n
	}
	return 30
}

func (l *Local) healthInterval() time.Duration {
	if s := l.cfg.Emulator.HealthIntervalS; s > 0 {
		return time.Duration(s) * time.Second
	}
	return 2 * time.Second
}

// waitHealthy polls the emulator health endpoint a bounded number of times.
// Returns false on exhaustion; never blocks indefinitely.
func (l *Local) waitHealthy(ctx context.Context) bool {
	url := strings.TrimRight(l.cfg.Emulator.Endpoint, "/") + l.cfg.Emulator.HealthPath
	attempts := l.healthAttempts()
	for i := 0; i < attempts; i++ {
		if ctx.Err() != nil {
			return false
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			l.log.Debugw("bad health URL", "url", url, "error", err)
			return false
		}
		resp, err := l.httpClient.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				l.log.Debugw("emulator ready", "url", url, "attempt", i+1)
				return true
			}
		}
		if i < attempts-1 {
			l.sleep(l.healthInterval())
		}
	}
	return false
}

// ensureContainer starts the emulator control container when it is not
// already running. Failures are warnings: the operator may run the emulator
// outside of the runtime entirely.
func (l *Local) ensureContainer(ctx context.Context, docker string) {
	name := l.cfg.Emulator.ContainerName
	if name == "" {
		return
	}
	out, err := l.runner.Run(ctx, docker, "ps", "--filter", "name="+name, "--format", "{{.Names}}")
	if err == nil && containerListed(out, name) {
		l.log.Debugw("emulator container already running", "container", name)
		return
	}
	l.log.Infow("starting emulator container", "container", name)
	if _, err := l.runner.Run(ctx, docker, "start", name); err != nil {
		l.log.Warnw("could not start emulator container", "container", name, "error", err)
		return
	}
	l.sleep(2 * time.Second)
}

func containerListed(psOutput, name string) bool {
	for _, line := range execx.Lines(psOutput) {
		if line == name {
			return true
		}
	}
	return false
}

// ensureBucket prefers the emulator's native control CLI inside the control
// container; when that CLI is unavailable it falls back to the generic
// object-storage client in the worker container.
func (l *Local) ensureBucket(ctx context.Context, docker, bucket string) error {
	container := l.cfg.Emulator.ContainerName

	_, err := l.runner.Run(ctx, docker, "exec", container, "mc", "ls", "local/"+bucket)
	if err == nil {
		l.log.Infow("bucket already exists", "bucket", bucket)
		return nil
	}
	if commandMissing(err) {
		l.log.Debugw("native control CLI unavailable, using worker container", "bucket", bucket)
		return l.ensureBucketViaWorker(ctx, docker, bucket)
	}

	l.log.Infow("creating bucket", "bucket", bucket)
	if _, err := l.runner.Run(ctx, docker, "exec", container, "mc", "mb", "local/"+bucket); err != nil {
		if alreadyExists(err) {
			l.log.Infow("bucket already exists", "bucket", bucket)
			return nil
		}
		return errors.Wrapf(err, "creating bucket %s in emulator", bucket)
	}
	l.log.Infow("bucket created", "bucket", bucket)
	return nil
}

// ensureBucketViaWorker head-checks and creates through the generic client.
func (l *Local) ensureBucketViaWorker(ctx context.Context, docker, bucket string) error {
	worker := l.cfg.Emulator.WorkerContainer
	endpoint := l.cfg.Emulator.Endpoint

	_, err := l.runner.Run(ctx, docker, "exec", worker,
		"aws", "--endpoint-url", endpoint, "s3api", "head-bucket", "--bucket", bucket)
	if err == nil {
		l.log.Infow("bucket already exists", "bucket", bucket)
		return nil
	}

	l.log.Infow("creating bucket", "bucket", bucket, "via", "worker")
	_, err = l.runner.Run(ctx, docker, "exec", worker,
		"aws", "--endpoint-url", endpoint, "s3api", "create-bucket", "--bucket", bucket)
	if err != nil {
		if alreadyExists(err) {
			l.log.Infow("bucket already exists", "bucket", bucket)
			return nil
		}
		return errors.Wrapf(err, "creating bucket %s via worker container", bucket)
	}
	l.log.Infow("bucket created", "bucket", bucket)
	return nil
}

// commandMissing recognizes exec failures that mean the binary itself is
// absent rather than the invocation failing.
func commandMissing(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"executable file not found",
		"command not found",
		"no such file or directory",
		fmt.Sprintf("exit status %d", 126),
		fmt.Sprintf("exit status %d", 127),
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
