// utils/storage.go
package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// MaxImageSize caps tree, quest and avatar photos.
const MaxImageSize = 10 * 1024 * 1024

// ObjectStore is the image storage area. Put overwrites an existing key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

type StorageOptions struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	PublicURL       string
}

// S3Store talks to any S3-compatible endpoint with static credentials.
type S3Store struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

func NewS3Store(ctx context.Context, opts StorageOptions) (*S3Store, error) {
	region := opts.Region
	if region == "" {
		region = "auto"
	}
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKeyID, opts.SecretAccessKey, "",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	})

	publicURL := strings.TrimRight(opts.PublicURL, "/")
	if publicURL == "" {
		publicURL = strings.TrimRight(opts.Endpoint, "/") + "/" + opts.Bucket
	}
	return &S3Store{client: client, bucket: opts.Bucket, publicURL: publicURL}, nil
}

func (s *S3Store) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return fmt.Sprintf("%s/%s", s.publicURL, key), nil
}

// UploadImage reads a multipart image and stores it under key, returning the public URL.
func UploadImage(ctx context.Context, store ObjectStore, fileHeader *multipart.FileHeader, key string) (string, error) {
	if fileHeader.Size > MaxImageSize {
		return "", &ValidationError{Field: "photo", Reason: "is too large (max 10MB)"}
	}
	contentType := fileHeader.Header.Get("Content-Type")
	if contentType != "" && !strings.HasPrefix(contentType, "image/") {
		return "", &ValidationError{Field: "photo", Reason: "must be an image"}
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, file); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return store.Put(ctx, key, contentType, buf)
}

// ImageKey builds an object key like "trees/old-oak-1b2c3d4e.jpg".
func ImageKey(prefix, label, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	name := slug.Make(label)
	if name == "" {
		name = "photo"
	}
	return fmt.Sprintf("%s/%s-%s%s", prefix, name, uuid.NewString()[:8], ext)
}
