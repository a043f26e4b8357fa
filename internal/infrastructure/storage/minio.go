package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/novelvoice-team/novelvoice/pkg/config"
)

// MinIOClient archives finished chapter audio to object storage so a wiped
// local audio folder does not force full regeneration
type MinIOClient struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewMinIOClient creates a new MinIO client
func NewMinIOClient(cfg *config.StorageConfig) (*MinIOClient, error) {
	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	client := &MinIOClient{
		client:    minioClient,
		bucket:    cfg.BucketName,
		publicURL: cfg.PublicURL,
	}

	ctx := context.Background()
	if err := client.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize bucket: %w", err)
	}

	return client, nil
}

// ensureBucket ensures the archive bucket exists
func (m *MinIOClient) ensureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return nil
}

// ArchiveChapterAudio uploads a finished chapter audio file under
// chapters/<chapterID>.mp3
func (m *MinIOClient) ArchiveChapterAudio(ctx context.Context, chapterID, audioPath string) error {
	f, err := os.Open(audioPath)
	if err != nil {
		return fmt.Errorf("failed to open audio file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat audio file: %w", err)
	}

	objectName := fmt.Sprintf("chapters/%s.mp3", chapterID)
	_, err = m.client.PutObject(ctx, m.bucket, objectName, f, info.Size(), minio.PutObjectOptions{
		ContentType: "audio/mpeg",
	})
	if err != nil {
		return fmt.Errorf("failed to upload audio: %w", err)
	}

	return nil
}

// UploadFile uploads an arbitrary object (used for novel source files)
func (m *MinIOClient) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}

	return nil
}

// GetFileURL gets a presigned URL for accessing an archived object
func (m *MinIOClient) GetFileURL(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}

	// When MinIO sits behind a reverse proxy, swap the internal endpoint
	// for the public one
	if m.publicURL != "" {
		urlStr := url.String()
		bucketPos := len(url.Scheme) + 3 + len(url.Host)
		if bucketPos < len(urlStr) {
			return m.publicURL + urlStr[bucketPos:], nil
		}
	}

	return url.String(), nil
}

// RemoveObject deletes an archived object (novel deletion cleanup)
func (m *MinIOClient) RemoveObject(ctx context.Context, objectName string) error {
	return m.client.RemoveObject(ctx, m.bucket, objectName, minio.RemoveObjectOptions{})
}

// ChapterAudioURL issues a time-limited download URL for an archived chapter
func (m *MinIOClient) ChapterAudioURL(ctx context.Context, chapterID string, expiry time.Duration) (string, error) {
	return m.GetFileURL(ctx, fmt.Sprintf("chapters/%s.mp3", chapterID), expiry)
}
