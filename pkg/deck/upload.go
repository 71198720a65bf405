package deck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// UploadConfig holds the S3-compatible target for finished decks.
// Endpoint may carry a scheme; plain hosts default to HTTPS.
type UploadConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Prefix    string `yaml:"prefix"`
	PublicURL string `yaml:"public_url"`
}

// Uploader pushes built decks to an S3-compatible bucket (R2, MinIO,
// AWS) and hands back a shareable URL.
type Uploader struct {
	client *minio.Client
	cfg    UploadConfig
	logger *slog.Logger
}

// NewUploader connects a client for cfg. The bucket must already exist;
// no call is made here, credentials are verified on first upload.
func NewUploader(cfg UploadConfig, logger *slog.Logger) (*Uploader, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("upload endpoint and bucket are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	endpoint := cfg.Endpoint
	secure := true
	if strings.Contains(endpoint, "://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("parse upload endpoint: %w", err)
		}
		secure = u.Scheme != "http"
		endpoint = u.Host
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("create upload client: %w", err)
	}
	return &Uploader{client: client, cfg: cfg, logger: logger}, nil
}

// Upload stores the deck under name (prefixed per config) and returns
// the URL to hand to the user: the configured public URL when set,
// otherwise a 7-day presigned link.
func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader, size int64) (string, error) {
	key := name
	if u.cfg.Prefix != "" {
		key = strings.TrimSuffix(u.cfg.Prefix, "/") + "/" + name
	}

	info, err := u.client.PutObject(ctx, u.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	})
	if err != nil {
		return "", fmt.Errorf("upload deck %s: %w", key, err)
	}
	u.logger.Info("deck uploaded", "bucket", u.cfg.Bucket, "key", key, "size", info.Size)

	if u.cfg.PublicURL != "" {
		return strings.TrimSuffix(u.cfg.PublicURL, "/") + "/" + key, nil
	}
	signed, err := u.client.PresignedGetObject(ctx, u.cfg.Bucket, key, 7*24*time.Hour, nil)
	if err != nil {
		return "", fmt.Errorf("presign deck %s: %w", key, err)
	}
	return signed.String(), nil
}
