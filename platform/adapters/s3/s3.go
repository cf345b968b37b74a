// Package s3 adapts an S3 bucket to the ObjectStorage contract. A custom
// endpoint switches the client to path-style addressing so LocalStack and
// MinIO work out of the box.
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/schwarzerdavid/family-helper/platform/metrics"
	"github.com/schwarzerdavid/family-helper/platform/types"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("object not found")

const bucketCheckTimeout = 10 * time.Second

// Config carries the connection settings for the S3 adapter.
type Config struct {
	Region string
	Bucket string
	// Endpoint overrides the AWS endpoint for local S3 emulators.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// ObjectStorage implements the ObjectStorage contract on an S3 bucket.
type ObjectStorage struct {
	client  *s3.Client
	presign *s3.PresignClient
	cfg     Config
	logger  types.Logger
	metrics *metrics.Recorder
}

// New builds the S3 client and verifies the bucket exists, creating it when
// missing.
func New(ctx context.Context, cfg Config, log types.Logger, rec *metrics.Recorder) (*ObjectStorage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	storage := &ObjectStorage{
		client:  client,
		presign: s3.NewPresignClient(client),
		cfg:     cfg,
		logger:  log,
		metrics: rec,
	}

	checkCtx, cancel := context.WithTimeout(ctx, bucketCheckTimeout)
	defer cancel()

	if err := storage.ensureBucketExists(checkCtx); err != nil {
		log.Error("Failed to verify bucket existence", types.Fields{
			"bucket": cfg.Bucket,
			"error":  err,
		})
		return nil, fmt.Errorf("failed to verify bucket existence: %w", err)
	}

	log.Info("S3 client initialized successfully", types.Fields{
		"bucket": cfg.Bucket,
		"region": cfg.Region,
	})
	return storage, nil
}

// Put stores data under key and returns the object metadata.
func (s *ObjectStorage) Put(ctx context.Context, key string, data []byte, contentType string) (types.ObjectMeta, error) {
	start := time.Now()

	out, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		s.observe("storage_put", start, err)
		s.logger.Error("Failed to put object", types.Fields{
			"bucket": s.cfg.Bucket,
			"key":    key,
			"error":  err,
		})
		return types.ObjectMeta{}, fmt.Errorf("failed to put object: %w", err)
	}

	s.observe("storage_put", start, nil)
	s.metrics.RecordPayloadSize("storage_put", int64(len(data)))
	s.logger.Debug("Object stored successfully", types.Fields{
		"bucket": s.cfg.Bucket,
		"key":    key,
		"size":   len(data),
	})

	return types.ObjectMeta{ETag: aws.ToString(out.ETag)}, nil
}

// Get returns the object's content. A missing key yields ErrObjectNotFound.
func (s *ObjectStorage) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		s.observe("storage_get", start, err)
		if isNotFoundError(err) {
			s.logger.Debug("Object not found", types.Fields{
				"bucket": s.cfg.Bucket,
				"key":    key,
			})
			return nil, ErrObjectNotFound
		}
		s.logger.Error("Failed to get object", types.Fields{
			"bucket": s.cfg.Bucket,
			"key":    key,
			"error":  err,
		})
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		s.observe("storage_get", start, err)
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	s.observe("storage_get", start, nil)
	s.logger.Debug("Object retrieved successfully", types.Fields{
		"bucket": s.cfg.Bucket,
		"key":    key,
		"size":   len(data),
	})
	return data, nil
}

// PresignPut returns a URL that uploads to key until it expires.
func (s *ObjectStorage) PresignPut(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		s.logger.Error("Failed to presign PUT", types.Fields{
			"bucket": s.cfg.Bucket,
			"key":    key,
			"error":  err,
		})
		return "", fmt.Errorf("failed to presign put: %w", err)
	}
	return req.URL, nil
}

// PresignGet returns a URL that downloads key until it expires.
func (s *ObjectStorage) PresignGet(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		s.logger.Error("Failed to presign GET", types.Fields{
			"bucket": s.cfg.Bucket,
			"key":    key,
			"error":  err,
		})
		return "", fmt.Errorf("failed to presign get: %w", err)
	}
	return req.URL, nil
}

// Delete removes key and reports whether it existed beforehand.
func (s *ObjectStorage) Delete(ctx context.Context, key string) (bool, error) {
	start := time.Now()

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			s.observe("storage_delete", start, nil)
			return false, nil
		}
		s.observe("storage_delete", start, err)
		return false, fmt.Errorf("failed to check object existence: %w", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}); err != nil {
		s.observe("storage_delete", start, err)
		s.logger.Error("Failed to delete object", types.Fields{
			"bucket": s.cfg.Bucket,
			"key":    key,
			"error":  err,
		})
		return false, fmt.Errorf("failed to delete object: %w", err)
	}

	s.observe("storage_delete", start, nil)
	s.logger.Debug("Object deleted successfully", types.Fields{
		"bucket": s.cfg.Bucket,
		"key":    key,
	})
	return true, nil
}

// ensureBucketExists checks the configured bucket, creating it when absent.
func (s *ObjectStorage) ensureBucketExists(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.cfg.Bucket),
	})
	if err == nil {
		return nil
	}

	var notFound *s3types.NotFound
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	s.logger.Info("Bucket does not exist, attempting to create", types.Fields{
		"bucket": s.cfg.Bucket,
	})
	return s.createBucket(ctx)
}

func (s *ObjectStorage) createBucket(ctx context.Context) error {
	input := &s3.CreateBucketInput{
		Bucket: aws.String(s.cfg.Bucket),
	}

	// us-east-1 rejects an explicit location constraint
	if s.cfg.Region != "" && s.cfg.Region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(s.cfg.Region),
		}
	}

	if _, err := s.client.CreateBucket(ctx, input); err != nil {
		var exists *s3types.BucketAlreadyExists
		var owned *s3types.BucketAlreadyOwnedByYou
		if errors.As(err, &exists) || errors.As(err, &owned) {
			return nil
		}
		return fmt.Errorf("failed to create bucket: %w", err)
	}

	s.logger.Info("Bucket created successfully", types.Fields{"bucket": s.cfg.Bucket})
	return nil
}

func (s *ObjectStorage) observe(operation string, start time.Time, err error) {
	s.metrics.RecordDuration(operation, time.Since(start).Seconds())
	if err != nil {
		s.metrics.RecordError(operation, fmt.Sprintf("%T", err))
		return
	}
	s.metrics.RecordSuccess(operation)
}

func buildAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error

	if cfg.Region != "" {
		optFns = append(optFns, awsconfig.WithRegion(cfg.Region))
	}

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		optFns = append(optFns, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID,
				cfg.SecretAccessKey,
				"",
			),
		))
	}

	return awsconfig.LoadDefaultConfig(ctx, optFns...)
}

// isNotFoundError reports whether err is S3's missing-key or missing-object
// answer.
func isNotFoundError(err error) bool {
	var noSuchKey *s3types.NoSuchKey
	var notFound *s3types.NotFound
	return errors.As(err, &noSuchKey) || errors.As(err, &notFound)
}
