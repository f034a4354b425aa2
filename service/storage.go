package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	gstorage "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Extension of an artifact
type Extension string

// Supported extensions
const (
	NoExtension  Extension = ""
	ExtensionVRT Extension = "vrt"
)

// ErrFileNotFound is returned by Persist when the source file does not exist
type ErrFileNotFound struct {
	File string
}

func (e ErrFileNotFound) Error() string {
	return fmt.Sprintf("File not found: %s", e.File)
}

// Storage persists a local file to a destination uri
type Storage interface {
	// Upload copies the content of r to the object key of the storage
	Upload(ctx context.Context, key string, r io.Reader) error
}

// LocalStorage implements Storage on the local filesystem
type LocalStorage struct {
	Root string
}

// Upload implements Storage
func (s LocalStorage) Upload(ctx context.Context, key string, r io.Reader) error {
	dst := filepath.Join(s.Root, key)
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("LocalStorage.MkdirAll: %w", err)
	}
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("LocalStorage.Create: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("LocalStorage.Copy: %w", err)
	}
	return f.Close()
}

// GSStorage implements Storage on a Google Cloud Storage bucket
type GSStorage struct {
	Bucket string
}

// Upload implements Storage
func (s GSStorage) Upload(ctx context.Context, key string, r io.Reader) error {
	client, err := gstorage.NewClient(ctx)
	if err != nil {
		return MakeTemporary(fmt.Errorf("GSStorage.NewClient: %w", err))
	}
	defer client.Close()

	w := client.Bucket(s.Bucket).Object(key).NewWriter(ctx)
	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return fmt.Errorf("GSStorage.Copy: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("GSStorage.Close: %w", err)
	}
	return nil
}

// Environment variables configuring an S3-compatible storage
const (
	S3EndpointEnv        = "S3_ENDPOINT"
	S3AccessKeyIDEnv     = "S3_ACCESS_KEY_ID"
	S3SecretAccessKeyEnv = "S3_SECRET_ACCESS_KEY"
)

// S3Storage implements Storage on an S3 bucket.
// Without AccessKeyID, the default credentials chain is used.
type S3Storage struct {
	Bucket          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Upload implements Storage
func (s S3Storage) Upload(ctx context.Context, key string, r io.Reader) error {
	var opts []func(*awsconfig.LoadOptions) error
	if s.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("S3Storage.LoadDefaultConfig: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if s.Endpoint != "" {
			o.BaseEndpoint = aws.String(s.Endpoint)
			o.UsePathStyle = true
		}
	})
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = 10 * 1024 * 1024
	})
	if _, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
		Body:   r,
	}); err != nil {
		return fmt.Errorf("S3Storage.Upload: %w", err)
	}
	return nil
}

// ParseStorageURI returns the storage and the object key of uri.
// Supported uris: gs://bucket/key, s3://bucket/key, file:///path or a local path.
func ParseStorageURI(uri string) (Storage, string, error) {
	protocol, rest, found := strings.Cut(uri, "://")
	if !found {
		return LocalStorage{Root: filepath.Dir(uri)}, filepath.Base(uri), nil
	}
	switch protocol {
	case "file":
		return LocalStorage{Root: filepath.Dir(rest)}, filepath.Base(rest), nil
	case "gs", "s3":
		bucket, key, _ := strings.Cut(rest, "/")
		if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
			return nil, "", fmt.Errorf("ParseStorageURI: %s must be %s://bucket/path/to/file", uri, protocol)
		}
		if protocol == "gs" {
			return GSStorage{Bucket: bucket}, key, nil
		}
		return S3Storage{
			Bucket:          bucket,
			Endpoint:        os.Getenv(S3EndpointEnv),
			AccessKeyID:     os.Getenv(S3AccessKeyIDEnv),
			SecretAccessKey: os.Getenv(S3SecretAccessKeyEnv),
		}, key, nil
	}
	return nil, "", fmt.Errorf("ParseStorageURI: unsupported protocol %s", protocol)
}

// Persist copies the local file src to the destination uri and returns the uri
func Persist(ctx context.Context, src, dstURI string) (string, error) {
	storage, key, err := ParseStorageURI(dstURI)
	if err != nil {
		return "", err
	}
	f, err := os.Open(src)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrFileNotFound{src}
		}
		return "", fmt.Errorf("Persist.Open: %w", err)
	}
	defer f.Close()

	if err := storage.Upload(ctx, key, f); err != nil {
		return "", fmt.Errorf("Persist to %s: %w", dstURI, err)
	}
	return dstURI, nil
}

// WithExt replaces the extension of filePath
func WithExt(filePath string, ext Extension) string {
	filePath = strings.TrimSuffix(filePath, filepath.Ext(filePath))
	if ext != "" {
		return fmt.Sprintf("%s.%s", filePath, string(ext))
	}
	return filePath
}

// GetExt returns the extension of filePath
func GetExt(filePath string) Extension {
	return Extension(strings.TrimPrefix(path.Ext(filePath), "."))
}
