package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"tunechat/pkg/logger"
)

const publicURLPrefix = "https://storage.googleapis.com/"

// CloudStorageClient stores chat media in a GCS bucket.
type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
	folder     string
}

func NewCloudStorageClient(ctx context.Context, bucketName, folder string, opts ...option.ClientOption) (*CloudStorageClient, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	storageClient := &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
		folder:     strings.Trim(folder, "/"),
	}

	if err := storageClient.setBucketCORS(ctx); err != nil {
		logger.Warn("Failed to set CORS configuration: %v", err)
	}

	return storageClient, nil
}

func (c *CloudStorageClient) setBucketCORS(ctx context.Context) error {
	bucket := c.client.Bucket(c.bucketName)

	corsConfig := storage.CORS{
		MaxAge:          3600,
		Methods:         []string{"GET", "HEAD"},
		Origins:         []string{"*"},
		ResponseHeaders: []string{"Content-Type", "Content-Range"},
	}

	bucketAttrs, err := bucket.Attrs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}

	if len(bucketAttrs.CORS) == 0 {
		if _, err := bucket.Update(ctx, storage.BucketAttrsToUpdate{CORS: []storage.CORS{corsConfig}}); err != nil {
			return fmt.Errorf("failed to update bucket CORS: %v", err)
		}
	}

	return nil
}

// Upload streams r into a new object and returns its public URL. progress is
// called with the bytes sent so far.
func (c *CloudStorageClient) Upload(ctx context.Context, name, contentType string, r io.Reader, progress func(written int64)) (string, error) {
	objectName := c.objectName(name, contentType)

	obj := c.client.Bucket(c.bucketName).Object(objectName)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"
	if progress != nil {
		wc.ProgressFunc = progress
	}

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", fmt.Errorf("failed to copy file to GCS: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer: %v", err)
	}

	return publicURLPrefix + c.bucketName + "/" + objectName, nil
}

// Delete removes an object previously returned by Upload.
func (c *CloudStorageClient) Delete(ctx context.Context, fileURL string) error {
	objectName, err := c.objectFromURL(fileURL)
	if err != nil {
		return err
	}
	if err := c.client.Bucket(c.bucketName).Object(objectName).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete file: %v", err)
	}
	return nil
}

func (c *CloudStorageClient) objectName(name, contentType string) string {
	ext := strings.ToLower(path.Ext(name))
	if ext == "" {
		ext = extensionFor(contentType)
	}
	base := fmt.Sprintf("%s-%s%s", uuid.New().String(), time.Now().Format("20060102150405"), ext)
	if c.folder == "" {
		return base
	}
	return c.folder + "/" + base
}

func (c *CloudStorageClient) objectFromURL(fileURL string) (string, error) {
	if !strings.HasPrefix(fileURL, publicURLPrefix) {
		return "", fmt.Errorf("invalid GCS URL format")
	}
	parts := strings.SplitN(strings.TrimPrefix(fileURL, publicURLPrefix), "/", 2)
	if len(parts) != 2 || parts[0] != c.bucketName {
		return "", fmt.Errorf("invalid GCS URL format or bucket mismatch")
	}
	return parts[1], nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/quicktime":
		return ".mov"
	case "video/webm":
		return ".webm"
	case "audio/mp4", "audio/x-m4a":
		return ".m4a"
	case "audio/mpeg":
		return ".mp3"
	case "audio/ogg":
		return ".ogg"
	case "audio/webm":
		return ".weba"
	default:
		return ".bin"
	}
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
