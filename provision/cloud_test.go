package provision

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/genexomics/runpack/bucketcfg"
	"github.com/genexomics/runpack/errors"
)

type fakeS3 struct {
	existing map[string]bool
	headErr  error
	createErr error

	headCalls   []string
	createCalls []*s3.CreateBucketInput
}

func (f *fakeS3) HeadBucket(_ context.Context, params *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	bucket := aws.ToString(params.Bucket)
	f.headCalls = append(f.headCalls, bucket)
	if f.headErr != nil {
		return nil, f.headErr
	}
	if f.existing[bucket] {
		return &s3.HeadBucketOutput{}, nil
	}
	return nil, errors.New("NotFound: status code 404")
}

func (f *fakeS3) CreateBucket(_ context.Context, params *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	f.createCalls = append(f.createCalls, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.existing == nil {
		f.existing = map[string]bool{}
	}
	f.existing[aws.ToString(params.Bucket)] = true
	return &s3.CreateBucketOutput{}, nil
}

type fakeSTS struct {
	err   error
	calls int
}

func (f *fakeSTS) GetCallerIdentity(context.Context, *sts.GetCallerIdentityInput, ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &sts.GetCallerIdentityOutput{
		Account: aws.String("123456789012"),
		Arn:     aws.String("arn:aws:iam::123456789012:user/pipeline"),
	}, nil
}

func TestCloudAuthInvalid(t *testing.T) {
	c := NewCloudWithClients(&fakeS3{}, &fakeSTS{err: errors.New("InvalidClientTokenId")}, "", zap.NewNop().Sugar())

	err := c.Ensure(context.Background(), bucketcfg.BucketSpec{Bucket: "b"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthInvalid))
}

func TestCloudBucketAlreadyExists(t *testing.T) {
	s3c := &fakeS3{existing: map[string]bool{"have": true}}
	c := NewCloudWithClients(s3c, &fakeSTS{}, "", zap.NewNop().Sugar())

	require.NoError(t, c.Ensure(context.Background(), bucketcfg.BucketSpec{Bucket: "have"}))
	assert.Empty(t, s3c.createCalls, "no duplicate create call for an existing bucket")
}

func TestCloudCreatesMissingBucket(t *testing.T) {
	s3c := &fakeS3{}
	c := NewCloudWithClients(s3c, &fakeSTS{}, "", zap.NewNop().Sugar())

	require.NoError(t, c.Ensure(context.Background(), bucketcfg.BucketSpec{Bucket: "fresh"}))
	require.Len(t, s3c.createCalls, 1)
	assert.Equal(t, "fresh", aws.ToString(s3c.createCalls[0].Bucket))
}

func TestCloudBaselineRegionOmitsLocationConstraint(t *testing.T) {
	s3c := &fakeS3{}
	c := NewCloudWithClients(s3c, &fakeSTS{}, BaselineRegion, zap.NewNop().Sugar())

	require.NoError(t, c.Ensure(context.Background(), bucketcfg.BucketSpec{Bucket: "b"}))
	require.Len(t, s3c.createCalls, 1)
	assert.Nil(t, s3c.createCalls[0].CreateBucketConfiguration)
}

func TestCloudOtherRegionSetsLocationConstraint(t *testing.T) {
	s3c := &fakeS3{}
	c := NewCloudWithClients(s3c, &fakeSTS{}, "us-west-2", zap.NewNop().Sugar())

	require.NoError(t, c.Ensure(context.Background(), bucketcfg.BucketSpec{Bucket: "b"}))
	require.Len(t, s3c.createCalls, 1)
	require.NotNil(t, s3c.createCalls[0].CreateBucketConfiguration)
	assert.Equal(t, "us-west-2", string(s3c.createCalls[0].CreateBucketConfiguration.LocationConstraint))
}

// Create failures are ambiguous (exists vs denied) and must degrade to a
// warning, never an error.
func TestCloudCreateFailureIsNonFatal(t *testing.T) {
	s3c := &fakeS3{createErr: errors.New("AccessDenied: not allowed")}
	c := NewCloudWithClients(s3c, &fakeSTS{}, "", zap.NewNop().Sugar())

	require.NoError(t, c.Ensure(context.Background(), bucketcfg.BucketSpec{Bucket: "b"}))
}

// A race with another creator surfaces as an owned-bucket API error, which
// counts as converged.
func TestCloudCreateRaceCountsAsExisting(t *testing.T) {
	s3c := &fakeS3{createErr: &smithy.GenericAPIError{Code: "BucketAlreadyOwnedByYou", Message: "it's yours"}}
	c := NewCloudWithClients(s3c, &fakeSTS{}, "", zap.NewNop().Sugar())

	require.NoError(t, c.Ensure(context.Background(), bucketcfg.BucketSpec{Bucket: "b"}))
}

func TestCloudEnsureIsIdempotent(t *testing.T) {
	s3c := &fakeS3{}
	stsc := &fakeSTS{}
	c := NewCloudWithClients(s3c, stsc, "", zap.NewNop().Sugar())

	spec := bucketcfg.BucketSpec{Bucket: "b"}
	require.NoError(t, c.Ensure(context.Background(), spec))
	require.NoError(t, c.Ensure(context.Background(), spec), "second invocation must not error")

	assert.Len(t, s3c.createCalls, 1, "bucket created exactly once")
	assert.Equal(t, 2, stsc.calls)
}

func TestCloudDedupe(t *testing.T) {
	s3c := &fakeS3{}
	c := NewCloudWithClients(s3c, &fakeSTS{}, "", zap.NewNop().Sugar())

	require.NoError(t, c.Ensure(context.Background(),
		bucketcfg.BucketSpec{Key: "raw_uploads", Bucket: "same"},
		bucketcfg.BucketSpec{Key: "quilt_registry", Bucket: "same"},
		bucketcfg.BucketSpec{Key: "other", Bucket: "different"},
	))

	assert.Len(t, s3c.createCalls, 2)
}
