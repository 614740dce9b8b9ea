package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tunechat/internal/domain/entity"
)

func TestUpdateProgressTouchesOnlyProgress(t *testing.T) {
	q := NewOptimisticQueue()
	p := placeholder("optimistic-1", "c1", 1)
	p.Content = "blob:local/1"
	p.Attachments = []string{"blob:local/1"}
	q.Insert(p, nil)

	assert.True(t, q.UpdateProgress("optimistic-1", 40))
	assert.False(t, q.UpdateProgress("optimistic-1", 40))
	assert.False(t, q.UpdateProgress("missing", 10))

	got, ok := q.Get("optimistic-1")
	require.True(t, ok)
	assert.Equal(t, 40, got.UploadProgress)
	assert.Equal(t, entity.StatusSending, got.Status)
	assert.Equal(t, "blob:local/1", got.Content)
	assert.Equal(t, []string{"blob:local/1"}, got.Attachments)
}

func TestCompleteSwapsPreviewsForURLs(t *testing.T) {
	q := NewOptimisticQueue()
	p := placeholder("optimistic-1", "c1", 1)
	p.Content = "blob:local/1"
	p.Attachments = []string{"blob:local/1", "blob:local/2"}
	q.Insert(p, nil)

	done, ok := q.Complete("optimistic-1", []string{"https://cdn/a", "https://cdn/b"})
	require.True(t, ok)

	assert.Equal(t, entity.StatusSent, done.Status)
	assert.Equal(t, 100, done.UploadProgress)
	assert.Equal(t, "https://cdn/a", done.Content)
	assert.Equal(t, []string{"https://cdn/a", "https://cdn/b"}, done.Attachments)
	assert.Equal(t, 1, q.Len())

	assert.False(t, q.UpdateProgress("optimistic-1", 50))
}

func TestResendOnlyFromError(t *testing.T) {
	q := NewOptimisticQueue()
	files := []entity.LocalFile{entity.FileFromBytes("a.jpg", "image/jpeg", []byte("a"))}
	q.Insert(placeholder("optimistic-1", "c1", 1), files)

	_, _, _, ok := q.Resend("optimistic-1")
	assert.False(t, ok)

	q.Complete("optimistic-1", []string{"https://cdn/a"})
	require.True(t, q.MarkError("optimistic-1"))

	msg, gotFiles, uploaded, ok := q.Resend("optimistic-1")
	require.True(t, ok)
	assert.Equal(t, entity.StatusSending, msg.Status)
	assert.Len(t, gotFiles, 1)
	assert.Equal(t, []string{"https://cdn/a"}, uploaded)
}

func TestRemoveKeepsInsertionOrder(t *testing.T) {
	q := NewOptimisticQueue()
	q.Insert(placeholder("optimistic-1", "c1", 1), nil)
	q.Insert(placeholder("optimistic-2", "c2", 2), nil)
	q.Insert(placeholder("optimistic-3", "c3", 3), nil)

	assert.True(t, q.Remove("optimistic-2"))
	assert.False(t, q.Remove("optimistic-2"))

	list := q.List()
	require.Len(t, list, 2)
	assert.Equal(t, "optimistic-1", list[0].ID)
	assert.Equal(t, "optimistic-3", list[1].ID)
}

func TestListDoesNotAliasQueue(t *testing.T) {
	q := NewOptimisticQueue()
	p := placeholder("optimistic-1", "c1", 1)
	p.Attachments = []string{"blob:local/1"}
	q.Insert(p, nil)

	list := q.List()
	list[0].Attachments[0] = "changed"

	got, _ := q.Get("optimistic-1")
	assert.Equal(t, "blob:local/1", got.Attachments[0])
}
