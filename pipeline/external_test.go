package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genexomics/runpack/config"
	"github.com/genexomics/runpack/errors"
)

type recordedCall struct {
	name string
	args []string
}

type fakeToolRunner struct {
	calls  []recordedCall
	stdout string
	err    error
}

func (f *fakeToolRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, recordedCall{name: name, args: args})
	return f.stdout, f.err
}

func uploaderConfig() *config.Config {
	return &config.Config{
		Descriptor: config.DescriptorConfig{
			Path:      "/etc/descriptor.yaml",
			Section:   "genexomics",
			BucketKey: "raw_uploads",
		},
		Pipeline: config.PipelineConfig{LogDir: "/tmp/logs"},
		Tools:    config.ToolsConfig{Uploader: "python3 bin/s3_uploader.py"},
	}
}

func TestExecUploader(t *testing.T) {
	runner := &fakeToolRunner{stdout: "s3://genexomics-runs/runs/run_001/a.fastq.gz\n"}
	up := NewExecUploader(runner, uploaderConfig())

	loc, err := up.Upload(context.Background(), "/runs/run_001/a.fastq.gz")
	require.NoError(t, err)
	assert.Equal(t, "s3://genexomics-runs/runs/run_001/a.fastq.gz", loc)

	require.Len(t, runner.calls, 1)
	call := runner.calls[0]
	assert.Equal(t, "python3", call.name)
	assert.Equal(t, []string{
		"bin/s3_uploader.py",
		"-i", "/runs/run_001/a.fastq.gz",
		"-c", "/etc/descriptor.yaml",
		"-s", "genexomics",
		"-b", "raw_uploads",
		"-l", "/tmp/logs",
	}, call.args)
}

func TestExecUploaderOutputContract(t *testing.T) {
	// Two lines of stdout violate the one-location contract.
	runner := &fakeToolRunner{stdout: "s3://b/a\ns3://b/b\n"}
	up := NewExecUploader(runner, uploaderConfig())
	_, err := up.Upload(context.Background(), "/runs/run_001/a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUploadFailure))

	// A single line that is not an object location also fails.
	runner = &fakeToolRunner{stdout: "upload complete\n"}
	up = NewExecUploader(runner, uploaderConfig())
	_, err = up.Upload(context.Background(), "/runs/run_001/a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUploadFailure))
}

func TestExecUploaderToolFailure(t *testing.T) {
	runner := &fakeToolRunner{err: errors.New("exit status 2")}
	up := NewExecUploader(runner, uploaderConfig())
	_, err := up.Upload(context.Background(), "/runs/run_001/a")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUploadFailure))
}

func TestExecPackageBuilder(t *testing.T) {
	runner := &fakeToolRunner{stdout: "Created package: genexomics/run_001\n"}
	cfg := &config.Config{Tools: config.ToolsConfig{PackageBuilder: "python3 bin/make_quilt_from_s3.py"}}
	b := NewExecPackageBuilder(runner, cfg)

	out, err := b.Build(context.Background(), BuildRequest{
		Bucket:    "genexomics-runs",
		Prefix:    "runs/run_001",
		Namespace: "genexomics",
		BaseName:  "run_001",
		Registry:  "s3://genexomics-quilt",
		Message:   "weekly batch",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Created package:")

	require.Len(t, runner.calls, 1)
	assert.Equal(t, []string{
		"bin/make_quilt_from_s3.py",
		"--bucket", "genexomics-runs",
		"--prefix", "runs/run_001",
		"--namespace", "genexomics",
		"--package-base", "run_001",
		"--registry", "s3://genexomics-quilt",
		"--message", "weekly batch",
	}, runner.calls[0].args)
}

func TestExecPackageBuilderOmitsEmptyFlags(t *testing.T) {
	runner := &fakeToolRunner{stdout: "ok"}
	cfg := &config.Config{Tools: config.ToolsConfig{PackageBuilder: "builder"}}
	b := NewExecPackageBuilder(runner, cfg)

	_, err := b.Build(context.Background(), BuildRequest{Bucket: "b", Namespace: "ns", BaseName: "run_001"})
	require.NoError(t, err)
	args := runner.calls[0].args
	assert.NotContains(t, args, "--registry")
	assert.NotContains(t, args, "--message")
}

func TestExecMetadataAttacherBenchling(t *testing.T) {
	runner := &fakeToolRunner{}
	cfg := &config.Config{
		Tools: config.ToolsConfig{MetadataAttacher: "python3 bin/metadata_integrator.py"},
		Metadata: config.MetadataConfig{
			Benchling: config.BenchlingConfig{EntityID: "ent_abc", APIKey: "key123", HeaderType: "bearer"},
		},
	}
	a := NewExecMetadataAttacher(runner, cfg)

	err := a.Attach(context.Background(), AttachRequest{
		PackageID: "ns/run_001",
		Registry:  "s3://reg",
		Source:    SourceBenchling,
		RunName:   "run_001",
	})
	require.NoError(t, err)

	args := runner.calls[0].args
	assert.Equal(t, "bin/metadata_integrator.py", args[0])
	assert.Equal(t, "benchling", args[1], "source subcommand comes first")
	assert.Contains(t, args, "--benchling-entity-id")
	assert.Contains(t, args, "ent_abc")
	assert.Contains(t, args, "--benchling-api-key")
	assert.NotContains(t, args, "--run-id")
}

func TestExecMetadataAttacherSmartsheetRowID(t *testing.T) {
	runner := &fakeToolRunner{}
	cfg := &config.Config{
		Tools: config.ToolsConfig{MetadataAttacher: "integrator"},
		Metadata: config.MetadataConfig{
			Smartsheet: config.SmartsheetConfig{SheetID: "123", RowID: "456", Token: "tok"},
		},
	}
	a := NewExecMetadataAttacher(runner, cfg)

	err := a.Attach(context.Background(), AttachRequest{
		PackageID: "ns/run_001", Registry: "s3://reg", Source: SourceSmartsheet, RunName: "run_001",
	})
	require.NoError(t, err)

	args := runner.calls[0].args
	assert.Contains(t, args, "--smartsheet-row-id")
	assert.NotContains(t, args, "--smartsheet-run-column", "explicit row id wins over column lookup")
	assert.NotContains(t, args, "--run-id")
}

func TestExecMetadataAttacherSmartsheetRunColumn(t *testing.T) {
	runner := &fakeToolRunner{}
	cfg := &config.Config{
		Tools: config.ToolsConfig{MetadataAttacher: "integrator"},
		Metadata: config.MetadataConfig{
			Smartsheet: config.SmartsheetConfig{SheetID: "123", RunColumn: "Run Name"},
		},
	}
	a := NewExecMetadataAttacher(runner, cfg)

	err := a.Attach(context.Background(), AttachRequest{
		PackageID: "ns/run_001", Registry: "s3://reg", Source: SourceSmartsheet, RunName: "run_001",
	})
	require.NoError(t, err)

	args := runner.calls[0].args
	assert.Contains(t, args, "--smartsheet-run-column")
	assert.Contains(t, args, "Run Name")
	assert.Contains(t, args, "--run-id")
	assert.Contains(t, args, "run_001")
}
