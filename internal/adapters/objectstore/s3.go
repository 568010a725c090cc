package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/okian/liftprogress/pkg/metrics"
)

const (
	contentType  = "application/vnd.apache.parquet"
	runIDMetaKey = "run-id"
)

// Option applies a configuration option to the S3Store.
type Option func(*S3Store)

// WithRegion sets the bucket region.
func WithRegion(region string) Option {
	return func(s *S3Store) {
		if region != "" {
			s.region = region
		}
	}
}

// WithEndpoint targets an S3-compatible endpoint with path-style addressing.
func WithEndpoint(endpoint string) Option {
	return func(s *S3Store) {
		s.endpoint = endpoint
	}
}

// WithPublicRead uploads objects with the public-read canned ACL.
func WithPublicRead(public bool) Option {
	return func(s *S3Store) {
		s.publicRead = public
	}
}

// S3Store keeps objects in an S3 bucket.
type S3Store struct {
	client     *s3.Client
	bucket     string
	region     string
	endpoint   string
	publicRead bool
}

// NewS3Store creates an S3Store from the default AWS credential chain.
func NewS3Store(ctx context.Context, bucket string, opts ...Option) (*S3Store, error) {
	s := &S3Store{bucket: bucket}
	for _, opt := range opts {
		opt(s)
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if s.region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(s.region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	s.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.endpoint != "" {
			o.BaseEndpoint = aws.String(s.endpoint)
			o.UsePathStyle = true
		}
	})
	return s, nil
}

// NewS3StoreWithClient creates an S3Store over an existing client.
func NewS3StoreWithClient(client *s3.Client, bucket string, opts ...Option) *S3Store {
	s := &S3Store{client: client, bucket: bucket}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put implements Store.
func (s *S3Store) Put(ctx context.Context, key string, body []byte) (err error) {
	defer func() { metrics.RecordStoreOperation("put", err) }()

	k, err := cleanKey(key)
	if err != nil {
		return err
	}
	in := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(k),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	}
	if s.publicRead {
		in.ACL = types.ObjectCannedACLPublicRead
	}
	if id := RunID(ctx); id != "" {
		in.Metadata = map[string]string{runIDMetaKey: id}
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", s.bucket, k, err)
	}
	return nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, key string) (b []byte, err error) {
	defer func() { metrics.RecordStoreOperation("get", err) }()

	k, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(k),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, k, err)
	}
	defer out.Body.Close()
	b, err = io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, k, err)
	}
	return b, nil
}
