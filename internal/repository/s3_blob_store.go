package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	domrepo "StockCast/internal/domain/repository"
	applogger "StockCast/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client used by the store.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3BlobStore implements BlobStore on one bucket.
type S3BlobStore struct {
	client  S3API
	presign *s3.PresignClient
	bucket  string
	l       *applogger.Logger
}

// NewS3BlobStore wraps an S3 client. endpoint, when set, switches to
// path-style addressing for S3-compatible stores.
func NewS3BlobStore(cfg aws.Config, bucket, endpoint string, l *applogger.Logger) *S3BlobStore {
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return &S3BlobStore{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		l:       l,
	}
}

var _ domrepo.BlobStore = (*S3BlobStore)(nil)

func (s *S3BlobStore) Location(key string) string {
	return "s3://" + s.bucket + "/" + key
}

func (s *S3BlobStore) Key(location string) (string, error) {
	bucket, key, err := parseS3Location(location)
	if err != nil {
		return "", err
	}
	if bucket != s.bucket {
		return "", fmt.Errorf("location %q is not in bucket %s", location, s.bucket)
	}
	return key, nil
}

func (s *S3BlobStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	start := time.Now()
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		if s.l != nil {
			s.l.Error("s3 put error", applogger.String("key", key), applogger.Error(err))
		}
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	if s.l != nil {
		s.l.Info("s3 put ok",
			applogger.String("key", key),
			applogger.Int("bytes", len(data)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return s.Location(key), nil
}

func (s *S3BlobStore) Get(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := s.resolve(location)
	if err != nil {
		return nil, err
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("s3://%s/%s: %w", bucket, key, ErrObjectNotFound)
		}
		return nil, fmt.Errorf("get s3://%s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read s3://%s/%s: %w", bucket, key, err)
	}
	return b, nil
}

func (s *S3BlobStore) PresignGet(ctx context.Context, location string, ttl time.Duration) (string, error) {
	bucket, key, err := s.resolve(location)
	if err != nil {
		return "", err
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign s3://%s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// resolve accepts full s3:// locations in any bucket, or bare keys in the
// store's bucket.
func (s *S3BlobStore) resolve(location string) (string, string, error) {
	if bucket, key, err := parseS3Location(location); err == nil {
		return bucket, key, nil
	}
	if location == "" {
		return "", "", fmt.Errorf("empty location")
	}
	return s.bucket, location, nil
}
