package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// Archive keeps the original pricelist files next to the parsed rows.
type Archive interface {
	Put(ctx context.Context, region, filename string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
	URL(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type MinIOArchive struct {
	client     *minio.Client
	bucketName string
	logger     zerolog.Logger
}

func NewMinIOArchive(ctx context.Context, endpoint, accessKey, secretKey, bucketName string, useSSL bool, logger zerolog.Logger) (*MinIOArchive, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, bucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		logger.Info().Str("bucket", bucketName).Msg("bucket created")
	}

	return &MinIOArchive{client: client, bucketName: bucketName, logger: logger}, nil
}

func (m *MinIOArchive) Put(ctx context.Context, region, filename string, data []byte) (string, error) {
	key := ObjectKey(region, filename, uuid.New())
	_, err := m.client.PutObject(ctx, m.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: ContentType(filename),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload file: %w", err)
	}
	m.logger.Info().Str("object", key).Int("bytes", len(data)).Msg("pricelist source archived")
	return key, nil
}

func (m *MinIOArchive) Delete(ctx context.Context, key string) error {
	if err := m.client.RemoveObject(ctx, m.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	m.logger.Info().Str("object", key).Msg("pricelist source removed")
	return nil
}

func (m *MinIOArchive) URL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := m.client.PresignedGetObject(ctx, m.bucketName, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// ObjectKey builds pricelists/<region>/<id><ext> with an ASCII region slug.
func ObjectKey(region, filename string, id uuid.UUID) string {
	return fmt.Sprintf("pricelists/%s/%s%s", slug(region), id.String(), strings.ToLower(filepath.Ext(filename)))
}

func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return "text/csv"
	case ".xls", ".xlsx":
		return "application/vnd.ms-excel"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

func slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			dash = false
		case b.Len() > 0 && !dash:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "nazionale"
	}
	return out
}
