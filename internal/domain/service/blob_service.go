package service

import (
	"context"
	"io"
)

// BlobStore stores uploaded media. progress receives the number of bytes
// written so far and may be called from any goroutine.
type BlobStore interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader, progress func(written int64)) (string, error)
	Delete(ctx context.Context, url string) error
}
