package pipeline

import (
	"context"
	"strings"

	"github.com/genexomics/runpack/config"
	"github.com/genexomics/runpack/errors"
	"github.com/genexomics/runpack/internal/execx"
)

// The external collaborators are opaque commands with narrow contracts.
// Each is modeled as an interface so tests substitute doubles without
// spawning processes.

// Uploader pushes one local file to object storage and reports the
// resulting object location (scheme://bucket/key). The tool is externally
// idempotent: re-uploading a file yields the same location.
type Uploader interface {
	Upload(ctx context.Context, file string) (location string, err error)
}

// BuildRequest carries the package builder's inputs.
type BuildRequest struct {
	Bucket    string
	Prefix    string
	Namespace string
	BaseName  string
	Registry  string
	Message   string
}

// PackageBuilder creates a versioned package referencing uploaded objects
// and returns the tool's raw log output. The package identifier is
// extracted from the output by PackageStage, keeping the tool opaque here.
type PackageBuilder interface {
	Build(ctx context.Context, req BuildRequest) (output string, err error)
}

// AttachRequest carries the metadata attacher's inputs.
type AttachRequest struct {
	PackageID string
	Registry  string
	Source    string
	RunName   string
}

// MetadataAttacher attaches external metadata to an existing package.
type MetadataAttacher interface {
	Attach(ctx context.Context, req AttachRequest) error
}

// ErrUploadFailure wraps per-file uploader failures. Aborts that run's
// upload stage only.
var ErrUploadFailure = errors.New("upload failed")

// ExecUploader drives the external uploader tool.
type ExecUploader struct {
	runner     execx.Runner
	command    string
	descriptor config.DescriptorConfig
	logDir     string
}

// NewExecUploader wires the configured uploader command line.
func NewExecUploader(runner execx.Runner, cfg *config.Config) *ExecUploader {
	return &ExecUploader{
		runner:     runner,
		command:    cfg.Tools.Uploader,
		descriptor: cfg.Descriptor,
		logDir:     cfg.Pipeline.LogDir,
	}
}

// Upload invokes the uploader for one file and enforces the one-line output
// contract: exactly one object-location line on stdout.
func (u *ExecUploader) Upload(ctx context.Context, file string) (string, error) {
	name, args, err := execx.SplitCommand(u.command)
	if err != nil {
		return "", err
	}
	args = append(args,
		"-i", file,
		"-c", u.descriptor.Path,
		"-s", u.descriptor.Section,
		"-b", u.descriptor.BucketKey,
	)
	if u.logDir != "" {
		args = append(args, "-l", u.logDir)
	}

	out, err := u.runner.Run(ctx, name, args...)
	if err != nil {
		return "", errors.Wrapf(ErrUploadFailure, "%s: %v", file, err)
	}

	lines := execx.Lines(out)
	if len(lines) != 1 {
		return "", errors.Wrapf(ErrUploadFailure,
			"%s: uploader emitted %d output lines, expected exactly one object location", file, len(lines))
	}
	loc := lines[0]
	if !strings.Contains(loc, "://") {
		return "", errors.Wrapf(ErrUploadFailure, "%s: uploader output %q is not an object location", file, loc)
	}
	return loc, nil
}

// ExecPackageBuilder drives the external package builder tool.
type ExecPackageBuilder struct {
	runner  execx.Runner
	command string
}

// NewExecPackageBuilder wires the configured builder command line.
func NewExecPackageBuilder(runner execx.Runner, cfg *config.Config) *ExecPackageBuilder {
	return &ExecPackageBuilder{runner: runner, command: cfg.Tools.PackageBuilder}
}

// Build invokes the builder and returns its raw log output.
func (b *ExecPackageBuilder) Build(ctx context.Context, req BuildRequest) (string, error) {
	name, args, err := execx.SplitCommand(b.command)
	if err != nil {
		return "", err
	}
	args = append(args,
		"--bucket", req.Bucket,
		"--prefix", req.Prefix,
		"--namespace", req.Namespace,
		"--package-base", req.BaseName,
	)
	if req.Registry != "" {
		args = append(args, "--registry", req.Registry)
	}
	if req.Message != "" {
		args = append(args, "--message", req.Message)
	}

	out, err := b.runner.Run(ctx, name, args...)
	if err != nil {
		return out, errors.Wrapf(err, "package builder failed for %s", req.BaseName)
	}
	return out, nil
}

// ExecMetadataAttacher drives the external metadata integrator tool.
type ExecMetadataAttacher struct {
	runner  execx.Runner
	command string
	meta    config.MetadataConfig
}

// NewExecMetadataAttacher wires the configured attacher command line.
func NewExecMetadataAttacher(runner execx.Runner, cfg *config.Config) *ExecMetadataAttacher {
	return &ExecMetadataAttacher{
		runner:  runner,
		command: cfg.Tools.MetadataAttacher,
		meta:    cfg.Metadata,
	}
}

// Attach invokes the attacher with source-specific addressing and
// credentials. Callers guarantee the source is supported.
func (a *ExecMetadataAttacher) Attach(ctx context.Context, req AttachRequest) error {
	name, args, err := execx.SplitCommand(a.command)
	if err != nil {
		return err
	}
	args = append(args, req.Source,
		"--package", req.PackageID,
		"--registry", req.Registry,
	)

	switch req.Source {
	case SourceBenchling:
		args = append(args, "--benchling-entity-id", a.meta.Benchling.EntityID)
		if a.meta.Benchling.APIKey != "" {
			args = append(args, "--benchling-api-key", a.meta.Benchling.APIKey)
		}
		if a.meta.Benchling.HeaderType != "" {
			args = append(args, "--benchling-header-type", a.meta.Benchling.HeaderType)
		}
	case SourceSmartsheet:
		args = append(args, "--smartsheet-sheet-id", a.meta.Smartsheet.SheetID)
		if a.meta.Smartsheet.RowID != "" {
			args = append(args, "--smartsheet-row-id", a.meta.Smartsheet.RowID)
		} else {
			args = append(args,
				"--smartsheet-run-column", a.meta.Smartsheet.RunColumn,
				"--run-id", req.RunName,
			)
		}
		if a.meta.Smartsheet.Token != "" {
			args = append(args, "--smartsheet-token", a.meta.Smartsheet.Token)
		}
	}

	if _, err := a.runner.Run(ctx, name, args...); err != nil {
		return errors.Wrapf(err, "metadata attacher failed for package %s", req.PackageID)
	}
	return nil
}
