package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"stayregister/internal/app/handlers/exports"
)

const (
	pdfContentType = "application/pdf"
	defaultLinkTTL = 24 * time.Hour
)

// ExportStore saves exported PDFs to an S3-compatible bucket and answers with
// a presigned download link.
type ExportStore struct {
	bucket         string
	client         *minio.Client
	linkTTL        time.Duration
	now            func() time.Time
	logger         *slog.Logger
	bucketInitOnce sync.Once
	bucketInitErr  error
}

// NewExportStore configures the store using the provided endpoint and credentials.
func NewExportStore(endpoint string, useSSL bool, accessKey, secretKey, bucket string, logger *slog.Logger) (*ExportStore, error) {
	cleanEndpoint := strings.TrimSpace(endpoint)
	if cleanEndpoint == "" {
		return nil, errors.New("s3: endpoint is required")
	}
	if bucket = strings.TrimSpace(bucket); bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}

	opts := &minio.Options{
		Creds:  credentials.NewStaticV4(strings.TrimSpace(accessKey), strings.TrimSpace(secretKey), ""),
		Secure: useSSL,
	}
	minioClient, err := minio.New(parseEndpoint(cleanEndpoint), opts)
	if err != nil {
		return nil, fmt.Errorf("s3: create client: %w", err)
	}
	return &ExportStore{
		bucket:  bucket,
		client:  minioClient,
		linkTTL: defaultLinkTTL,
		now:     time.Now,
		logger:  logger,
	}, nil
}

// Save uploads pdf under exports/YYYY/MM/<uuid>/<name>.
func (s *ExportStore) Save(ctx context.Context, name string, pdf []byte) (string, error) {
	if len(pdf) == 0 {
		return "", errors.New("s3: empty file")
	}
	if err := s.ensureBucket(ctx); err != nil {
		return "", err
	}
	key := ObjectKey(s.now(), uuid.NewString(), name)
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(pdf), int64(len(pdf)), minio.PutObjectOptions{
		ContentType:        pdfContentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", path.Base(key)),
	})
	if err != nil {
		return "", fmt.Errorf("s3: put object: %w", err)
	}
	link, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.linkTTL, url.Values{})
	if err != nil {
		return "", fmt.Errorf("s3: presign: %w", err)
	}
	if s.logger != nil {
		s.logger.InfoContext(ctx, "export stored", "bucket", s.bucket, "key", key, "bytes", len(pdf))
	}
	return link.String(), nil
}

// ObjectKey builds the object key for an export saved at t.
func ObjectKey(t time.Time, id, name string) string {
	name = strings.Trim(path.Base("/"+strings.TrimSpace(name)), "/")
	if name == "" || name == "." {
		name = "export.pdf"
	}
	return fmt.Sprintf("exports/%04d/%02d/%s/%s", t.Year(), int(t.Month()), id, name)
}

// Ready checks that the bucket can be reached.
func (s *ExportStore) Ready(ctx context.Context) error {
	_, err := s.client.BucketExists(ctx, s.bucket)
	return err
}

// Unconfigured is the picker used when no object store is set up; exports
// fall back to a direct download.
type Unconfigured struct{}

func (Unconfigured) Save(context.Context, string, []byte) (string, error) {
	return "", exports.ErrSaveUnsupported
}

func (s *ExportStore) ensureBucket(ctx context.Context) error {
	s.bucketInitOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.bucketInitErr = fmt.Errorf("s3: check bucket: %w", err)
			return
		}
		if exists {
			return
		}
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			s.bucketInitErr = fmt.Errorf("s3: create bucket: %w", err)
		}
	})
	return s.bucketInitErr
}

func parseEndpoint(endpoint string) string {
	if parsed, err := url.Parse(endpoint); err == nil && parsed.Host != "" {
		return parsed.Host
	}
	return endpoint
}

var (
	_ exports.SavePicker = (*ExportStore)(nil)
	_ exports.SavePicker = Unconfigured{}
)
