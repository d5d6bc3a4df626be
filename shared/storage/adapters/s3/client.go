// Package s3 stores pet files in AWS S3 or any S3-compatible endpoint
// (MinIO, LocalStack) through aws-sdk-go-v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"petsync/shared/config"
	"petsync/shared/observability"
	"petsync/shared/storage/types"
)

// api is the part of the SDK client the adapter calls.
type api interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, opts ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, opts ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, opts ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
}

// Client implements types.ObjectStorage.
type Client struct {
	api     api
	region  string
	confirm time.Duration
	logger  observability.Logger
	metrics observability.Metrics
}

// NewClient builds a client from the storage config. Static credentials
// are used when both keys are set; otherwise the default AWS chain applies.
func NewClient(cfg *config.StorageConfig, logger observability.Logger, metrics observability.Metrics) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid S3 configuration: %w", err)
	}

	awsCfg, err := loadAWSConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	endpoint, pathStyle := cfg.S3.ResolvedEndpoint(), cfg.S3.UsePathStyle
	sdk := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = pathStyle
	})

	return &Client{
		api:     sdk,
		region:  cfg.S3.Region,
		confirm: cfg.S3.ConfirmTimeout,
		logger:  logger,
		metrics: metrics,
	}, nil
}

func loadAWSConfig(cfg *config.StorageConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		// a buildable client still accepts AWS_CA_BUNDLE
		awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)),
	}
	if cfg.S3.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.S3.Region))
	}
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3.AccessKeyID, cfg.S3.SecretAccessKey, ""),
		))
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, awsconfig.WithRetryMaxAttempts(cfg.MaxRetries))
	}
	return awsconfig.LoadDefaultConfig(context.Background(), opts...)
}

// call runs one request and records it under operation. A missing object
// is an answer, not a failure, so it is neither counted nor logged as one.
func (c *Client) call(ctx context.Context, operation string, fields observability.Fields, fn func() error) error {
	start := time.Now()
	err := fn()
	c.metrics.RecordDuration(operation, time.Since(start).Seconds())

	switch {
	case err == nil:
		c.metrics.RecordSuccess(operation)
	case errors.Is(err, types.ErrObjectNotFound):
		c.logger.Debug(ctx, "Object not found", fields)
	default:
		c.metrics.RecordError(operation, errorCode(err))
		c.logger.Error(ctx, "S3 request failed", err, withOperation(fields, operation))
	}
	return err
}

func withOperation(fields observability.Fields, operation string) observability.Fields {
	out := make(observability.Fields, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["operation"] = operation
	return out
}

// errorCode is the S3 error code, or a coarse reason for transport errors.
func errorCode(err error) string {
	var apiErr smithy.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.ErrorCode()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "client"
	}
}

// translate maps S3 misses onto the storage sentinel errors.
func translate(err error, bucket string) error {
	var (
		noBucket *s3types.NoSuchBucket
		noKey    *s3types.NoSuchKey
		notFound *s3types.NotFound
	)
	switch {
	case errors.As(err, &noBucket):
		return fmt.Errorf("%w: %s", types.ErrBucketNotFound, bucket)
	case errors.As(err, &noKey), errors.As(err, &notFound):
		return types.ErrObjectNotFound
	default:
		return err
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}

func objectFields(bucket, key string) observability.Fields {
	return observability.Fields{"bucket": bucket, "key": key}
}

// Put uploads the object and then waits until a HEAD request sees it, up
// to the configured confirm timeout. Non-seekable readers are buffered.
func (c *Client) Put(ctx context.Context, bucket, key string, reader io.Reader, metadata types.ObjectMetadata) error {
	body, ok := reader.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(reader)
		if err != nil {
			return fmt.Errorf("read content for %s: %w", key, err)
		}
		body = bytes.NewReader(data)
	}

	input := &s3.PutObjectInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		Body:            body,
		ContentType:     optional(metadata.ContentType),
		ContentEncoding: optional(metadata.ContentEncoding),
		CacheControl:    optional(metadata.CacheControl),
		Metadata:        metadata.UserMetadata,
	}
	if metadata.ContentLength > 0 {
		input.ContentLength = aws.Int64(metadata.ContentLength)
	}

	return c.call(ctx, "s3_put", objectFields(bucket, key), func() error {
		if _, err := c.api.PutObject(ctx, input); err != nil {
			return fmt.Errorf("put %s/%s: %w", bucket, key, translate(err, bucket))
		}
		if c.confirm <= 0 {
			return nil
		}
		head := &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}
		if err := s3.NewObjectExistsWaiter(c.api).Wait(ctx, head, c.confirm); err != nil {
			return fmt.Errorf("confirm %s/%s within %s: %w", bucket, key, c.confirm, err)
		}
		return nil
	})
}

func (c *Client) Get(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	body, _, err := c.GetWithMetadata(ctx, bucket, key)
	return body, err
}

// GetWithMetadata returns types.ErrObjectNotFound for a missing key.
func (c *Client) GetWithMetadata(ctx context.Context, bucket, key string) (io.ReadCloser, *types.ObjectMetadata, error) {
	var out *s3.GetObjectOutput
	err := c.call(ctx, "s3_get", objectFields(bucket, key), func() error {
		var err error
		out, err = c.api.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
		if err != nil {
			return fmt.Errorf("get %s/%s: %w", bucket, key, translate(err, bucket))
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return out.Body, &types.ObjectMetadata{
		ContentType:     aws.ToString(out.ContentType),
		ContentLength:   aws.ToInt64(out.ContentLength),
		ContentEncoding: aws.ToString(out.ContentEncoding),
		CacheControl:    aws.ToString(out.CacheControl),
		LastModified:    aws.ToTime(out.LastModified),
		ETag:            aws.ToString(out.ETag),
		UserMetadata:    out.Metadata,
	}, nil
}

func (c *Client) Delete(ctx context.Context, bucket, key string) error {
	return c.call(ctx, "s3_delete", objectFields(bucket, key), func() error {
		if _, err := c.api.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}); err != nil {
			return fmt.Errorf("delete %s/%s: %w", bucket, key, translate(err, bucket))
		}
		return nil
	})
}

func (c *Client) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.api.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if errors.Is(translate(err, bucket), types.ErrObjectNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("head %s/%s: %w", bucket, key, err)
}

// List follows every page of ListObjectsV2 under prefix.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]types.ObjectInfo, error) {
	var objects []types.ObjectInfo
	err := c.call(ctx, "s3_list", observability.Fields{"bucket": bucket, "prefix": prefix}, func() error {
		pages := s3.NewListObjectsV2Paginator(c.api, &s3.ListObjectsV2Input{
			Bucket: aws.String(bucket),
			Prefix: optional(prefix),
		})
		for pages.HasMorePages() {
			page, err := pages.NextPage(ctx)
			if err != nil {
				return fmt.Errorf("list %s/%s: %w", bucket, prefix, translate(err, bucket))
			}
			for _, obj := range page.Contents {
				objects = append(objects, types.ObjectInfo{
					Key:          aws.ToString(obj.Key),
					Size:         aws.ToInt64(obj.Size),
					LastModified: aws.ToTime(obj.LastModified),
					ETag:         aws.ToString(obj.ETag),
				})
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

// CreateBucket creates bucket in the client's region unless it exists.
func (c *Client) CreateBucket(ctx context.Context, bucket string) error {
	_, err := c.api.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("head bucket %s: %w", bucket, err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	// us-east-1 rejects an explicit location constraint
	if c.region != "" && c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}

	return c.call(ctx, "s3_create_bucket", observability.Fields{"bucket": bucket}, func() error {
		_, err := c.api.CreateBucket(ctx, input)
		var exists *s3types.BucketAlreadyExists
		var owned *s3types.BucketAlreadyOwnedByYou
		if err != nil && !errors.As(err, &exists) && !errors.As(err, &owned) {
			return fmt.Errorf("create bucket %s: %w", bucket, err)
		}
		c.logger.Info(ctx, "Bucket ready", observability.Fields{"bucket": bucket})
		return nil
	})
}
