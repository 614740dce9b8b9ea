package usecase

import (
	"tunechat/internal/domain/entity"
)

type MediaKind string

const (
	// MediaAuto classifies from the files themselves.
	MediaAuto  MediaKind = "auto"
	MediaAudio MediaKind = "audio"
)

type pendingSend struct {
	message  entity.Message
	files    []entity.LocalFile
	uploaded []string
}

// OptimisticQueue owns the locally created placeholders for in-flight media
// sends, in insertion order. It is only touched from the engine loop.
type OptimisticQueue struct {
	order []string
	items map[string]*pendingSend
}

func NewOptimisticQueue() *OptimisticQueue {
	return &OptimisticQueue{items: make(map[string]*pendingSend)}
}

func (q *OptimisticQueue) Insert(placeholder entity.Message, files []entity.LocalFile) {
	if _, exists := q.items[placeholder.ID]; !exists {
		q.order = append(q.order, placeholder.ID)
	}
	q.items[placeholder.ID] = &pendingSend{
		message: placeholder.Clone(),
		files:   append([]entity.LocalFile(nil), files...),
	}
}

func (q *OptimisticQueue) Get(tempID string) (entity.Message, bool) {
	item, ok := q.items[tempID]
	if !ok {
		return entity.Message{}, false
	}
	return item.message.Clone(), true
}

// UpdateProgress touches only the progress field. It reports false when the
// placeholder is gone or the value did not change.
func (q *OptimisticQueue) UpdateProgress(tempID string, percent int) bool {
	item, ok := q.items[tempID]
	if !ok || item.message.Status != entity.StatusSending {
		return false
	}
	percent = clampPercent(percent)
	if item.message.UploadProgress == percent {
		return false
	}
	item.message.UploadProgress = percent
	return true
}

// Complete swaps the local previews for the uploaded URLs and marks the
// placeholder sent. It stays queued until retired by the merger.
func (q *OptimisticQueue) Complete(tempID string, urls []string) (entity.Message, bool) {
	item, ok := q.items[tempID]
	if !ok {
		return entity.Message{}, false
	}
	item.uploaded = append([]string(nil), urls...)
	item.message = withUploads(item.message, urls)
	item.message.Status = entity.StatusSent
	item.message.UploadProgress = 100
	return item.message.Clone(), true
}

func (q *OptimisticQueue) MarkError(tempID string) bool {
	item, ok := q.items[tempID]
	if !ok {
		return false
	}
	item.message.Status = entity.StatusError
	return true
}

// Resend puts a failed placeholder back into the sending state and returns
// what is needed to repeat it.
func (q *OptimisticQueue) Resend(tempID string) (entity.Message, []entity.LocalFile, []string, bool) {
	item, ok := q.items[tempID]
	if !ok || item.message.Status != entity.StatusError {
		return entity.Message{}, nil, nil, false
	}
	item.message.Status = entity.StatusSending
	if len(item.uploaded) == 0 {
		item.message.UploadProgress = 0
	}
	return item.message.Clone(), item.files, append([]string(nil), item.uploaded...), true
}

func (q *OptimisticQueue) Remove(tempID string) bool {
	if _, ok := q.items[tempID]; !ok {
		return false
	}
	delete(q.items, tempID)
	for i, id := range q.order {
		if id == tempID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	return true
}

// RetireWhere removes every placeholder matching fn and returns their ids.
func (q *OptimisticQueue) RetireWhere(fn func(entity.Message) bool) []string {
	var retired []string
	kept := q.order[:0]
	for _, id := range q.order {
		if fn(q.items[id].message) {
			retired = append(retired, id)
			delete(q.items, id)
			continue
		}
		kept = append(kept, id)
	}
	q.order = kept
	return retired
}

func (q *OptimisticQueue) List() []entity.Message {
	out := make([]entity.Message, 0, len(q.order))
	for _, id := range q.order {
		out = append(out, q.items[id].message.Clone())
	}
	return out
}

func (q *OptimisticQueue) Len() int {
	return len(q.order)
}

func withUploads(msg entity.Message, urls []string) entity.Message {
	out := msg.Clone()
	out.Attachments = append([]string(nil), urls...)
	if len(urls) > 0 {
		out.Content = urls[0]
	}
	return out
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
