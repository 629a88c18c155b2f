package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"ctph/internal/fuzzy"
)

// S3API is the subset of the S3 client used by the S3 source.
type S3API interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Options configure how the S3 client is built.
type S3Options struct {
	Region    string
	Endpoint  string // custom endpoint, e.g. a MinIO server
	PathStyle bool
}

// S3 implements Source over the objects of a bucket below a key prefix.
type S3 struct {
	client S3API
	bucket string
	prefix string
}

// Assert that S3 implements the Source interface
var _ Source = (*S3)(nil)

// NewS3 returns a source listing bucket objects whose keys start with prefix.
func NewS3(client S3API, bucket, prefix string) *S3 {
	return &S3{
		client: client,
		bucket: bucket,
		prefix: prefix,
	}
}

// NewS3Client builds an S3 client from the default credential chain.
func NewS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
		}
		o.UsePathStyle = opts.PathStyle
	}), nil
}

// ParseS3Location splits "bucket/prefix" or "s3://bucket/prefix".
func ParseS3Location(location string) (bucket, prefix string, err error) {
	location = strings.TrimPrefix(location, "s3://")
	bucket, prefix, _ = strings.Cut(location, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("invalid S3 location %q: missing bucket", location)
	}
	return bucket, prefix, nil
}

func (s *S3) Walk(ctx context.Context, fn func(Object) error) error {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
	}
	if s.prefix != "" {
		input.Prefix = aws.String(s.prefix)
	}

	paginator := s3.NewListObjectsV2Paginator(s.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("%w: listing s3://%s/%s: %w", fuzzy.ErrIO, s.bucket, s.prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			// Zero-byte keys ending in a slash are console-created folders.
			if strings.HasSuffix(key, "/") && aws.ToInt64(obj.Size) == 0 {
				continue
			}
			if err := fn(Object{Name: key, Size: aws.ToInt64(obj.Size)}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *S3) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(name),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("%w: s3://%s/%s", ErrNotFound, s.bucket, name)
		}
		return nil, fmt.Errorf("%w: s3://%s/%s: %w", fuzzy.ErrIO, s.bucket, name, err)
	}
	return out.Body, nil
}
