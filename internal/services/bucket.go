package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/communityvault/backend/internal/platform/envutil"
	"github.com/communityvault/backend/internal/platform/logger"
)

// BucketService stores and serves uploaded content objects. The S3
// backend is used when S3_ENDPOINT is configured; otherwise objects
// land on local disk under LOCAL_STORAGE_DIR.
type BucketService interface {
	Upload(ctx context.Context, key string, file io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// ObjectURL returns a time-limited (S3) or path-based (local) URL
	// for the object.
	ObjectURL(ctx context.Context, key string) (string, error)
	// PresignUpload returns a short-lived PUT URL for direct client
	// uploads. The local backend returns ErrPresignUnsupported;
	// clients then upload through the API instead.
	PresignUpload(ctx context.Context, key string, contentType string) (string, error)
}

// ErrPresignUnsupported is returned by backends that cannot issue
// presigned upload URLs.
var ErrPresignUnsupported = fmt.Errorf("presigned uploads not supported by this storage backend")

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

// SanitizeFilename replaces anything outside [a-zA-Z0-9._-] with "_".
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		name = "upload"
	}
	return unsafeFilenameChars.ReplaceAllString(name, "_")
}

// BuildStorageKey namespaces object keys per owner:
// {ownerID}/{unixMillis}-{sanitizedFilename}.
func BuildStorageKey(ownerID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%d-%s", ownerID, time.Now().UnixMilli(), SanitizeFilename(filename))
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	serviceLog := log.With("service", "BucketService")

	endpoint := envutil.Str("S3_ENDPOINT", "")
	if endpoint != "" {
		return newS3Bucket(serviceLog, endpoint)
	}

	dir := envutil.Str("LOCAL_STORAGE_DIR", "./uploads")
	serviceLog.Warn("S3_ENDPOINT not set; storing uploads on local disk",
		"dir", dir,
	)
	return newLocalBucket(serviceLog, dir)
}

// -------------------- S3 / MinIO backend --------------------

type s3Bucket struct {
	log       *logger.Logger
	client    *minio.Client
	bucket    string
	urlExpiry time.Duration
}

func newS3Bucket(log *logger.Logger, endpoint string) (BucketService, error) {
	accessKey := envutil.Str("S3_ACCESS_KEY", "")
	secretKey := envutil.Str("S3_SECRET_KEY", "")
	bucket := envutil.Str("S3_BUCKET", "")
	useSSL := envutil.Bool("S3_USE_SSL", true)
	if bucket == "" {
		return nil, fmt.Errorf("missing S3_BUCKET")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	expiry := time.Duration(envutil.Int("S3_URL_EXPIRY_SECONDS", 3600)) * time.Second
	return &s3Bucket{
		log:       log,
		client:    client,
		bucket:    bucket,
		urlExpiry: expiry,
	}, nil
}

func (b *s3Bucket) Upload(ctx context.Context, key string, file io.Reader, size int64, contentType string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	if _, err := b.client.PutObject(ctx, b.bucket, key, file, size, minio.PutObjectOptions{ContentType: contentType}); err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

func (b *s3Bucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := b.client.GetObject(ctx, b.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	return obj, nil
}

func (b *s3Bucket) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := b.client.RemoveObject(ctx, b.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

func (b *s3Bucket) ObjectURL(ctx context.Context, key string) (string, error) {
	u, err := b.client.PresignedGetObject(ctx, b.bucket, key, b.urlExpiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %q: %w", key, err)
	}
	return u.String(), nil
}

func (b *s3Bucket) PresignUpload(ctx context.Context, key string, contentType string) (string, error) {
	u, err := b.client.PresignedPutObject(ctx, b.bucket, key, 5*time.Minute)
	if err != nil {
		return "", fmt.Errorf("presign upload %q: %w", key, err)
	}
	return u.String(), nil
}

// -------------------- local disk backend --------------------

type localBucket struct {
	log  *logger.Logger
	root string
}

func newLocalBucket(log *logger.Logger, dir string) (BucketService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	return &localBucket{log: log, root: abs}, nil
}

func (b *localBucket) path(key string) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	full := filepath.Join(b.root, filepath.Clean("/"+key))
	if !strings.HasPrefix(full, b.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return full, nil
}

func (b *localBucket) Upload(ctx context.Context, key string, file io.Reader, size int64, contentType string) error {
	full, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return err
	}
	out, err := os.Create(full)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, file); err != nil {
		_ = out.Close()
		_ = os.Remove(full)
		return err
	}
	return out.Close()
}

func (b *localBucket) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	full, err := b.path(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

func (b *localBucket) Delete(ctx context.Context, key string) error {
	full, err := b.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (b *localBucket) ObjectURL(ctx context.Context, key string) (string, error) {
	// Served by the static /uploads route. Keys are already sanitized
	// to URL-safe characters.
	return "/uploads/" + key, nil
}

func (b *localBucket) PresignUpload(ctx context.Context, key string, contentType string) (string, error) {
	return "", ErrPresignUnsupported
}
