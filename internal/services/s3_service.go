package services

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/artswipe/backend/internal/config"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go/logging"
)

// S3Service stores generated images in an S3-compatible media bucket
type S3Service struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Service(cfg *config.Config) (*S3Service, error) {
	client, err := buildClient(cfg.MediaS3Endpoint, cfg.MediaS3Region, cfg.MediaS3AccessKeyID, cfg.MediaS3SecretAccessKey, cfg.MediaS3UsePathStyle)
	if err != nil {
		return nil, fmt.Errorf("failed to build S3 client: %w", err)
	}
	return &S3Service{
		client:    client,
		bucket:    cfg.MediaImagesBucket,
		publicURL: strings.TrimRight(cfg.MediaPublicURL, "/"),
	}, nil
}

func buildClient(endpoint, region, key, secret string, pathStyle bool) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")),
		awsconfig.WithLogger(logging.NewStandardLogger(nil)),
	)
	if err != nil {
		return nil, err
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = pathStyle
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return client, nil
}

func (s *S3Service) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         s3types.ObjectCannedACLPublicRead,
	}, func(u *manager.Uploader) { u.PartSize = 10 * 1024 * 1024 })
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}
	return s.MediaURL(key), nil
}

func (s *S3Service) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from S3: %w", err)
	}
	return nil
}

// MediaURL builds the public URL of an object, preferring the configured CDN/public base
func (s *S3Service) MediaURL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if s.publicURL != "" {
		return s.publicURL + "/" + escaped
	}
	e := s.client.Options().BaseEndpoint
	if e == nil {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, escaped)
	}
	return fmt.Sprintf("%s/%s/%s", strings.TrimRight(*e, "/"), s.bucket, escaped)
}
