// Package upload stores survey images in an S3 bucket.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"survey-app-server/internal/config"
)

// ObjectAPI is the subset of the S3 client used by S3Uploader.
type ObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Uploader uploads, deletes and replaces objects in one bucket and derives
// their public URLs as https://{bucket}.{domain}/{key}.
type S3Uploader struct {
	client ObjectAPI
	bucket string
	domain string
}

// NewS3Uploader creates an uploader over an existing client.
func NewS3Uploader(client ObjectAPI, bucket, domain string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket, domain: domain}
}

// NewS3UploaderFromConfig builds the S3 client from static credentials.
func NewS3UploaderFromConfig(ctx context.Context, cfg config.S3Config) (*S3Uploader, error) {
	if cfg.Region == "" || cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, errors.New("missing required AWS configuration")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("missing AWS_S3_BUCKET_NAME")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewS3Uploader(s3.NewFromConfig(awsCfg), cfg.Bucket, cfg.Domain), nil
}

// Upload stores data under key and returns its public URL.
func (u *S3Uploader) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return u.URL(key), nil
}

// Delete removes the object stored under key.
func (u *S3Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Replace deletes oldKey, then uploads data under newKey.
func (u *S3Uploader) Replace(ctx context.Context, oldKey, newKey string, data []byte, contentType string) (string, error) {
	if err := u.Delete(ctx, oldKey); err != nil {
		return "", err
	}
	return u.Upload(ctx, newKey, data, contentType)
}

// URL returns the public URL of key.
func (u *S3Uploader) URL(key string) string {
	return fmt.Sprintf("https://%s.%s/%s", u.bucket, u.domain, key)
}

// KeyFromURL is the inverse of URL. ok is false for URLs outside the bucket.
func (u *S3Uploader) KeyFromURL(url string) (string, bool) {
	prefix := fmt.Sprintf("https://%s.%s/", u.bucket, u.domain)
	if !strings.HasPrefix(url, prefix) || len(url) == len(prefix) {
		return "", false
	}
	return strings.TrimPrefix(url, prefix), true
}
