// Package provision idempotently ensures the object-storage buckets the
// pipeline depends on exist, against either the local emulated environment
// or the real cloud account.
//
// Both backends converge to "bucket exists": invoking Ensure twice for the
// same spec never surfaces an error, and two concurrent callers both observe
// eventual success because exists-vs-created races are absorbed rather than
// reported.
package provision

import (
	"context"
	"strings"

	"github.com/genexomics/runpack/bucketcfg"
	"github.com/genexomics/runpack/errors"
)

// Provisioner ensures every given bucket spec exists in the target backend.
type Provisioner interface {
	Ensure(ctx context.Context, specs ...bucketcfg.BucketSpec) error
}

// ErrPreconditionMissing indicates required tooling (the container runtime)
// is absent. Fatal for the whole process: no partial pipeline run is
// attempted without infrastructure.
var ErrPreconditionMissing = errors.New("required tooling missing")

// ErrAuthInvalid indicates the cloud credential probe failed.
var ErrAuthInvalid = errors.New("cloud credentials invalid")

// BaselineRegion is the region whose CreateBucket call must omit the
// location constraint.
const BaselineRegion = "us-east-1"

// dedupe collapses specs targeting the same bucket so a configured registry
// bucket identical to the primary is provisioned once.
func dedupe(specs []bucketcfg.BucketSpec) []bucketcfg.BucketSpec {
	seen := make(map[string]bool, len(specs))
	var out []bucketcfg.BucketSpec
	for _, spec := range specs {
		if spec.Bucket == "" || seen[spec.Bucket] {
			continue
		}
		seen[spec.Bucket] = true
		out = append(out, spec)
	}
	return out
}

// alreadyExists recognizes the create-time responses that mean the bucket is
// already there, across the emulator CLIs and the cloud API.
func alreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "already exists") ||
		strings.Contains(msg, "bucketalreadyownedbyyou") ||
		strings.Contains(msg, "bucketalreadyexists")
}
