package media

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3API is the subset of the S3 client the uploader uses.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Uploader stores assets in an S3 bucket.
type S3Uploader struct {
	client        S3API
	bucket        string
	prefix        string
	publicBaseURL string
	logger        *zap.Logger
}

// NewS3Uploader loads the default AWS configuration for region.
func NewS3Uploader(ctx context.Context, bucket, prefix, region, publicBaseURL string, logger *zap.Logger) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	if publicBaseURL == "" {
		publicBaseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
	}
	return NewS3UploaderWithClient(s3.NewFromConfig(cfg), bucket, prefix, publicBaseURL, logger), nil
}

// NewS3UploaderWithClient builds an uploader around an existing client.
func NewS3UploaderWithClient(client S3API, bucket, prefix, publicBaseURL string, logger *zap.Logger) *S3Uploader {
	return &S3Uploader{
		client:        client,
		bucket:        bucket,
		prefix:        prefix,
		publicBaseURL: publicBaseURL,
		logger:        logger.Named("s3"),
	}
}

func (u *S3Uploader) Upload(ctx context.Context, up Upload) (string, string, error) {
	key := u.fullKey(ObjectKey(up.Kind, up.Filename))

	input := &s3.PutObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
		Body:   up.Body,
	}
	if up.ContentType != "" {
		input.ContentType = aws.String(up.ContentType)
	}

	if _, err := u.client.PutObject(ctx, input); err != nil {
		return "", "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	u.logger.Debug("asset uploaded", zap.String("bucket", u.bucket), zap.String("key", key))
	return joinURL(u.publicBaseURL, key), key, nil
}

func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

func (u *S3Uploader) fullKey(key string) string {
	if u.prefix == "" {
		return key
	}
	return u.prefix + "/" + key
}
