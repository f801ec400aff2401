// Package bucketcfg resolves bucket coordinates from the YAML descriptor.
//
// The descriptor maps section names to a buckets block:
//
//	genexomics:
//	  buckets:
//	    raw_uploads:
//	      Bucket: genexomics-runs
//	      Prefix: runs/
//	  quilt-style:
//	    namespace: genexomics
//	    registry: s3://genexomics-quilt
//
// Resolution runs an ordered chain of extraction strategies so the pipeline
// keeps working in environments that lack any single YAML toolchain. The
// first strategy yielding a usable bucket name wins; later strategies are
// not consulted even if they would disagree.
package bucketcfg

import (
	"strings"

	"github.com/genexomics/runpack/errors"
	"github.com/genexomics/runpack/logger"
)

// ErrConfigNotFound indicates no strategy could resolve the requested
// bucket entry. Fatal for provisioning: match with errors.Is.
var ErrConfigNotFound = errors.New("bucket configuration not found")

// BucketSpec is a resolved bucket target. Immutable after resolution.
type BucketSpec struct {
	Section string
	Key     string
	Bucket  string
	Prefix  string
}

// Registry is the optional quilt-style registry block of a section.
type Registry struct {
	Namespace string
	Registry  string
}

type strategy interface {
	name() string
	extract(path, section, key string) (bucket, prefix string, err error)
}

// Ordered extraction chain: full YAML parser, alternate YAML implementation,
// then the line-oriented scanner of last resort.
var strategies = []strategy{yamlStrategy{}, viperStrategy{}, scanStrategy{}}

// Resolve extracts the (bucket, prefix) pair for (section, key) from the
// descriptor at path. Returns ErrConfigNotFound when no strategy succeeds.
func Resolve(path, section, key string) (BucketSpec, error) {
	for _, s := range strategies {
		bucket, prefix, err := s.extract(path, section, key)
		if err != nil {
			logger.Debugw("bucket extraction strategy failed",
				"strategy", s.name(), "descriptor", path, "error", err)
			continue
		}
		if !usableBucket(bucket) {
			logger.Debugw("bucket extraction strategy returned no usable value",
				"strategy", s.name(), "descriptor", path, "bucket", bucket)
			continue
		}
		logger.Debugw("resolved bucket",
			"strategy", s.name(), "section", section, "key", key, "bucket", bucket, "prefix", prefix)
		return BucketSpec{
			Section: section,
			Key:     key,
			Bucket:  bucket,
			Prefix:  NormalizePrefix(prefix),
		}, nil
	}
	return BucketSpec{}, errors.Wrapf(ErrConfigNotFound,
		"no strategy resolved %s.buckets.%s in %s", section, key, path)
}

// ResolveRegistry extracts the optional quilt-style registry block for a
// section. A missing block is not an error; the zero Registry is returned.
func ResolveRegistry(path, section string) (Registry, error) {
	if reg, err := yamlRegistry(path, section); err == nil && reg.Registry != "" {
		return reg, nil
	}
	reg, err := viperRegistry(path, section)
	if err != nil {
		return Registry{}, err
	}
	return reg, nil
}

// usableBucket rejects empty and null-equivalent bucket values so a strategy
// that parsed the file but found nothing does not shadow a later strategy.
func usableBucket(bucket string) bool {
	switch strings.ToLower(strings.TrimSpace(bucket)) {
	case "", "null", "~", "none":
		return false
	}
	return true
}

// NormalizePrefix strips leading and trailing slashes; an empty prefix
// stays empty.
func NormalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}
