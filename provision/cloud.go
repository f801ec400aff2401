package provision

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/genexomics/runpack/bucketcfg"
	"github.com/genexomics/runpack/config"
	"github.com/genexomics/runpack/errors"
)

// S3API is the slice of the S3 client the cloud provisioner uses.
type S3API interface {
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// STSAPI is the identity probe surface.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Cloud provisions buckets in the real cloud account.
type Cloud struct {
	s3     S3API
	sts    STSAPI
	region string
	log    *zap.SugaredLogger
}

// NewCloud builds a Cloud provisioner from the default credential chain.
// The effective region is, in order: cloud.region config, the SDK's resolved
// region, the baseline region.
func NewCloud(ctx context.Context, cfg *config.Config, log *zap.SugaredLogger) (*Cloud, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading cloud credentials")
	}

	region := cfg.Cloud.Region
	if region == "" {
		region = awsCfg.Region
	}
	if region == "" {
		region = BaselineRegion
	}

	return &Cloud{
		s3:     s3.NewFromConfig(awsCfg, func(o *s3.Options) { o.Region = region }),
		sts:    sts.NewFromConfig(awsCfg, func(o *sts.Options) { o.Region = region }),
		region: region,
		log:    log,
	}, nil
}

// NewCloudWithClients wires explicit clients; used by tests.
func NewCloudWithClients(s3c S3API, stsc STSAPI, region string, log *zap.SugaredLogger) *Cloud {
	if region == "" {
		region = BaselineRegion
	}
	return &Cloud{s3: s3c, sts: stsc, region: region, log: log}
}

// Ensure probes credentials, then converges each bucket to existing.
func (c *Cloud) Ensure(ctx context.Context, specs ...bucketcfg.BucketSpec) error {
	ident, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return errors.WithHint(
			errors.Wrap(ErrAuthInvalid, err.Error()),
			"check AWS credentials and profile")
	}
	c.log.Infow("cloud identity verified",
		"account", aws.ToString(ident.Account),
		"arn", aws.ToString(ident.Arn),
		"region", c.region)

	for _, spec := range dedupe(specs) {
		c.ensureBucket(ctx, spec.Bucket)
	}
	return nil
}

// ensureBucket creates the bucket if the head-check says it is absent.
// Creation failures are downgraded to warnings: "already exists" and
// "insufficient permission" cannot be told apart without an additional
// privileged call, a documented limitation of this provisioner.
func (c *Cloud) ensureBucket(ctx context.Context, bucket string) {
	if _, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)}); err == nil {
		c.log.Infow("bucket already exists", "bucket", bucket)
		return
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// The baseline region rejects an explicit location constraint; every
	// other region requires one.
	if c.region != BaselineRegion {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, input); err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) {
			switch ae.ErrorCode() {
			case "BucketAlreadyOwnedByYou", "BucketAlreadyExists":
				c.log.Infow("bucket already exists", "bucket", bucket)
				return
			}
		}
		c.log.Warnw("bucket create failed, it may already exist or credentials may lack permission",
			"bucket", bucket, "region", c.region, "error", err)
		return
	}
	c.log.Infow("bucket created", "bucket", bucket, "region", c.region)
}
