package usecase

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"tunechat/internal/domain/entity"
	"tunechat/internal/domain/service"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

// ProgressFunc receives the percent (0-100) reached by the file at index.
type ProgressFunc func(index, percent int)

// UploadPipeline stores a batch of files in the blob store. A batch either
// yields one URL per file or fails as a whole.
type UploadPipeline struct {
	blobs    service.BlobStore
	maxBytes int64
}

func NewUploadPipeline(blobs service.BlobStore, maxBytes int64) *UploadPipeline {
	return &UploadPipeline{
		blobs:    blobs,
		maxBytes: maxBytes,
	}
}

func (p *UploadPipeline) Upload(ctx context.Context, files []entity.LocalFile, onProgress ProgressFunc) ([]string, error) {
	if len(files) == 0 {
		return nil, errors.BadRequest("No files to upload", nil)
	}
	for _, f := range files {
		if f.Open == nil {
			return nil, errors.UploadFailed(fmt.Sprintf("File %s cannot be read", f.Name), nil)
		}
		if p.maxBytes > 0 && f.Size > p.maxBytes {
			return nil, errors.UploadFailed(fmt.Sprintf("File %s exceeds maximum allowed size", f.Name), nil)
		}
	}
	if onProgress == nil {
		onProgress = func(int, int) {}
	}

	urls := make([]string, len(files))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			url, err := p.uploadOne(gctx, f, func(percent int) { onProgress(i, percent) })
			if err != nil {
				return fmt.Errorf("upload %s: %w", f.Name, err)
			}
			mu.Lock()
			urls[i] = url
			mu.Unlock()
			onProgress(i, 100)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.discard(urls)
		return nil, errors.UploadFailed("Failed to upload media", err)
	}
	return urls, nil
}

func (p *UploadPipeline) uploadOne(ctx context.Context, f entity.LocalFile, progress func(int)) (string, error) {
	r, err := f.Open()
	if err != nil {
		return "", err
	}
	defer r.Close()

	last := -1
	return p.blobs.Upload(ctx, f.Name, detectContentType(f), r, func(written int64) {
		percent := 0
		if f.Size > 0 {
			percent = int(written * 100 / f.Size)
		}
		// 100 is reported once the store has returned the URL.
		if percent > 99 {
			percent = 99
		}
		if percent != last {
			last = percent
			progress(percent)
		}
	})
}

// discard deletes blobs that finished before the batch failed so nothing from
// a failed send is left behind.
func (p *UploadPipeline) discard(urls []string) {
	for _, url := range urls {
		if url == "" {
			continue
		}
		if err := p.blobs.Delete(context.Background(), url); err != nil {
			logger.Warn("Failed to delete orphaned upload %s: %v", url, err)
		}
	}
}
