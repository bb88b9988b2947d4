package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"mediavault/internal/config"
	"mediavault/internal/domain/media"
)

// S3Storage stores payload bytes in an S3-compatible bucket. Range reads map
// directly onto ranged GetObject requests, so byte-range delivery never pulls
// the whole object.
type S3Storage struct {
	bucket string
	client *s3.Client
	log    zerolog.Logger
}

// NewS3Storage creates an S3 storage backend.
func NewS3Storage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*S3Storage, error) {
	logger := log.With().Str("component", "s3-storage").Logger()

	if cfg.S3Bucket == "" || cfg.S3AccessKeyID == "" || cfg.S3SecretKey == "" {
		return nil, errors.New("MEDIA_S3_BUCKET and credentials must be set for the s3 storage backend")
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if cfg.S3Endpoint != "" {
			return aws.Endpoint{
				URL:           cfg.S3Endpoint,
				PartitionID:   "aws",
				SigningRegion: cfg.S3Region,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3SecretKey, "")),
		awsconfig.WithEndpointResolverWithOptions(resolver),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.S3UsePathStyle
	})

	logger.Info().Str("bucket", cfg.S3Bucket).Msg("s3 storage initialized")

	return &S3Storage{
		bucket: cfg.S3Bucket,
		client: client,
		log:    logger,
	}, nil
}

// Save uploads the payload bytes.
func (s *S3Storage) Save(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

// Open resolves the object size up front; byte reads are issued lazily as
// ranged GetObject calls.
func (s *S3Storage) Open(ctx context.Context, key string) (media.Payload, error) {
	head, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("open %s: %w", key, media.ErrPayloadMissing)
		}
		return nil, fmt.Errorf("head object %s: %w", key, err)
	}

	return &s3Payload{
		ctx:    ctx,
		client: s.client,
		bucket: s.bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
	}, nil
}

// Delete removes the object. A missing key is not an error: S3 DeleteObject
// is already idempotent.
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// Health performs a HeadBucket request.
func (s *S3Storage) Health(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	return err
}

type s3Payload struct {
	ctx    context.Context
	client *s3.Client
	bucket string
	key    string
	size   int64
}

func (p *s3Payload) Size() int64 { return p.size }

func (p *s3Payload) Close() error { return nil }

// ReadAt fetches the requested span with a ranged GetObject.
func (p *s3Payload) ReadAt(b []byte, off int64) (int, error) {
	if off >= p.size {
		return 0, io.EOF
	}

	end := off + int64(len(b)) - 1
	if limit := p.size - 1; end > limit {
		end = limit
	}

	out, err := p.client.GetObject(p.ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(p.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", off, end)),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return 0, fmt.Errorf("read %s: %w", p.key, media.ErrPayloadMissing)
		}
		return 0, fmt.Errorf("ranged get %s: %w", p.key, err)
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, b[:end-off+1])
	if err == io.ErrUnexpectedEOF {
		err = io.EOF
	}
	if err == nil && off+int64(n) >= p.size {
		err = io.EOF
	}
	return n, err
}
