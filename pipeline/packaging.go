package pipeline

import (
	"context"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/genexomics/runpack/errors"
)

// ErrPackageMarkerMissing indicates the builder output lacked the expected
// "Created package:" line. Fatal for that run only.
var ErrPackageMarkerMissing = errors.New("package marker missing from builder output")

// ErrEmptyManifest indicates a run produced no uploaded objects, leaving
// nothing to derive a package from. Fatal for that run only.
var ErrEmptyManifest = errors.New("manifest is empty")

// packageMarker prefixes the builder output line carrying the identifier.
const packageMarker = "Created package:"

// PackageStage derives bucket/prefix from a run's manifest and drives the
// external package builder.
type PackageStage struct {
	builder   PackageBuilder
	namespace string
	registry  string
	message   string
	log       *zap.SugaredLogger
}

// NewPackageStage wires the builder with the registry coordinates packages
// are published under.
func NewPackageStage(builder PackageBuilder, namespace, registry, message string, log *zap.SugaredLogger) *PackageStage {
	return &PackageStage{
		builder:   builder,
		namespace: namespace,
		registry:  registry,
		message:   message,
		log:       log,
	}
}

// Run builds one package from the run's finalized manifest and returns the
// extracted package identifier.
func (s *PackageStage) Run(ctx context.Context, run RunDirectory, manifest Manifest) (string, error) {
	if len(manifest) == 0 {
		return "", errors.Wrapf(ErrEmptyManifest, "run %s has no uploaded objects", run.Name)
	}

	bucket, prefix, err := ParseLocation(manifest[0])
	if err != nil {
		return "", errors.Wrapf(err, "run %s", run.Name)
	}

	message := s.message
	if message == "" {
		message = fmt.Sprintf("Created from existing S3 objects (%d entries)", len(manifest))
	}

	s.log.Infow("building package",
		"run", run.Name, "bucket", bucket, "prefix", prefix, "namespace", s.namespace)

	output, err := s.builder.Build(ctx, BuildRequest{
		Bucket:    bucket,
		Prefix:    prefix,
		Namespace: s.namespace,
		BaseName:  run.Name,
		Registry:  s.registry,
		Message:   message,
	})
	if err != nil {
		return "", err
	}

	id, ok := ExtractPackageID(output)
	if !ok {
		return "", errors.Wrapf(ErrPackageMarkerMissing, "run %s", run.Name)
	}
	s.log.Infow("package created", "run", run.Name, "package", id)
	return id, nil
}

// ParseLocation splits an object location (scheme://bucket/key) into the
// bucket name and the key's directory portion, which is the prefix the
// package builder lists objects under.
func ParseLocation(location string) (bucket, prefix string, err error) {
	_, rest, found := strings.Cut(location, "://")
	if !found {
		return "", "", errors.Newf("object location %q has no scheme", location)
	}
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.Newf("object location %q has no bucket", location)
	}
	prefix = path.Dir(key)
	if prefix == "." || prefix == "/" {
		prefix = ""
	}
	return bucket, prefix, nil
}

// ExtractPackageID finds the marker line and returns its final
// whitespace-delimited token.
func ExtractPackageID(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, packageMarker) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		id := fields[len(fields)-1]
		if strings.HasSuffix(id, ":") {
			// Marker line with no token after it
			continue
		}
		return id, true
	}
	return "", false
}
