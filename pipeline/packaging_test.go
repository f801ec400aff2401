package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/genexomics/runpack/errors"
)

type fakeBuilder struct {
	requests []BuildRequest
	output   string
	err      error
}

func (f *fakeBuilder) Build(_ context.Context, req BuildRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.output, f.err
}

func TestParseLocation(t *testing.T) {
	tests := []struct {
		location string
		bucket   string
		prefix   string
	}{
		{"s3://genexomics-runs/runs/run_001/a.fastq.gz", "genexomics-runs", "runs/run_001"},
		{"s3://bucket/key.txt", "bucket", ""},
		{"s3://bucket/a/b/c/d.bin", "bucket", "a/b/c"},
		{"minio://local-bucket/raw/x.gz", "local-bucket", "raw"},
	}
	for _, tt := range tests {
		bucket, prefix, err := ParseLocation(tt.location)
		require.NoError(t, err, tt.location)
		assert.Equal(t, tt.bucket, bucket, tt.location)
		assert.Equal(t, tt.prefix, prefix, tt.location)
	}
}

func TestParseLocationInvalid(t *testing.T) {
	_, _, err := ParseLocation("no-scheme-here")
	assert.Error(t, err)

	_, _, err = ParseLocation("s3:///key-without-bucket")
	assert.Error(t, err)
}

func TestExtractPackageID(t *testing.T) {
	output := "listing objects under runs/run_001\n" +
		"pushing manifest\n" +
		"Created package: genexomics/run_001\n" +
		"done\n"
	id, ok := ExtractPackageID(output)
	require.True(t, ok)
	assert.Equal(t, "genexomics/run_001", id)

	id, ok = ExtractPackageID("Created package: genexomics/run_001@e3b0c44298fc\n")
	require.True(t, ok)
	assert.Equal(t, "genexomics/run_001@e3b0c44298fc", id)
}

func TestExtractPackageIDMissing(t *testing.T) {
	_, ok := ExtractPackageID("pushed 12 objects\nall good\n")
	assert.False(t, ok)

	// A bare marker with nothing after it carries no identifier.
	_, ok = ExtractPackageID("Created package:\n")
	assert.False(t, ok)
}

func TestPackageStageRun(t *testing.T) {
	builder := &fakeBuilder{output: "Created package: genexomics/run_001\n"}
	stage := NewPackageStage(builder, "genexomics", "s3://genexomics-quilt", "", zap.NewNop().Sugar())

	manifest := Manifest{
		"s3://genexomics-runs/runs/run_001/a.fastq.gz",
		"s3://genexomics-runs/runs/run_001/b.fastq.gz",
	}
	id, err := stage.Run(context.Background(), RunDirectory{Name: "run_001"}, manifest)
	require.NoError(t, err)
	assert.Equal(t, "genexomics/run_001", id)

	require.Len(t, builder.requests, 1)
	req := builder.requests[0]
	assert.Equal(t, "genexomics-runs", req.Bucket)
	assert.Equal(t, "runs/run_001", req.Prefix)
	assert.Equal(t, "genexomics", req.Namespace)
	assert.Equal(t, "run_001", req.BaseName)
	assert.Equal(t, "s3://genexomics-quilt", req.Registry)
	assert.Equal(t, "Created from existing S3 objects (2 entries)", req.Message)
}

func TestPackageStageCustomMessage(t *testing.T) {
	builder := &fakeBuilder{output: "Created package: ns/run_002\n"}
	stage := NewPackageStage(builder, "ns", "", "weekly batch", zap.NewNop().Sugar())

	_, err := stage.Run(context.Background(), RunDirectory{Name: "run_002"}, Manifest{"s3://b/k"})
	require.NoError(t, err)
	assert.Equal(t, "weekly batch", builder.requests[0].Message)
}

func TestPackageStageEmptyManifest(t *testing.T) {
	builder := &fakeBuilder{}
	stage := NewPackageStage(builder, "ns", "", "", zap.NewNop().Sugar())

	_, err := stage.Run(context.Background(), RunDirectory{Name: "run_empty"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmptyManifest))
	assert.Empty(t, builder.requests, "builder must not run on an empty manifest")
}

func TestPackageStageMarkerMissing(t *testing.T) {
	builder := &fakeBuilder{output: "pushed objects, no marker\n"}
	stage := NewPackageStage(builder, "ns", "", "", zap.NewNop().Sugar())

	_, err := stage.Run(context.Background(), RunDirectory{Name: "run_001"}, Manifest{"s3://b/k"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPackageMarkerMissing))
}

func TestPackageStageBuilderError(t *testing.T) {
	builder := &fakeBuilder{err: errors.New("exit status 1")}
	stage := NewPackageStage(builder, "ns", "", "", zap.NewNop().Sugar())

	_, err := stage.Run(context.Background(), RunDirectory{Name: "run_001"}, Manifest{"s3://b/k"})
	assert.Error(t, err)
}
