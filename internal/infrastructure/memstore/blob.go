package memstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tunechat/pkg/errors"
)

const blobChunkSize = 16 * 1024

// Blobs is an in-memory service.BlobStore. Uploads report progress per chunk.
type Blobs struct {
	mu      sync.Mutex
	objects map[string][]byte
	failOn  map[string]error
	gate    <-chan struct{}
	deleted []string
}

func NewBlobs() *Blobs {
	return &Blobs{
		objects: make(map[string][]byte),
		failOn:  make(map[string]error),
	}
}

// FailOn makes uploads of the named file fail with err.
func (b *Blobs) FailOn(name string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failOn[name] = err
}

// SetGate holds every upload after its first chunk until gate is closed.
func (b *Blobs) SetGate(gate <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = gate
}

func (b *Blobs) Upload(ctx context.Context, name, contentType string, r io.Reader, progress func(written int64)) (string, error) {
	b.mu.Lock()
	failErr := b.failOn[name]
	gate := b.gate
	b.mu.Unlock()

	var data []byte
	buf := make([]byte, blobChunkSize)
	first := true
	for {
		n, err := r.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			if progress != nil {
				progress(int64(len(data)))
			}
			if first && gate != nil {
				select {
				case <-gate:
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			first = false
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	if failErr != nil {
		return "", failErr
	}

	url := fmt.Sprintf("mem://blobs/%s/%s", uuid.New().String(), name)
	b.mu.Lock()
	b.objects[url] = data
	b.mu.Unlock()
	return url, nil
}

func (b *Blobs) Delete(_ context.Context, url string) error {
	if !strings.HasPrefix(url, "mem://blobs/") {
		return errors.BadRequest("invalid blob URL", nil)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.objects, url)
	b.deleted = append(b.deleted, url)
	return nil
}

// URLs lists stored objects.
func (b *Blobs) URLs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.objects))
	for url := range b.objects {
		out = append(out, url)
	}
	return out
}

func (b *Blobs) Deleted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.deleted...)
}
