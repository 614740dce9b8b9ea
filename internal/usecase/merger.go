package usecase

import (
	"sort"

	"tunechat/internal/domain/entity"
)

// MessageMerger combines the authoritative stream with the optimistic queue
// into one ordered view.
type MessageMerger struct {
	authoritative []entity.Message
	byID          map[string]int
	clientIDs     map[string]struct{}
	timestamps    map[int64]struct{}
	merged        []entity.Message
}

func NewMessageMerger() *MessageMerger {
	return &MessageMerger{
		byID:       make(map[string]int),
		clientIDs:  make(map[string]struct{}),
		timestamps: make(map[int64]struct{}),
	}
}

// SetAuthoritative replaces the authoritative list. An empty list is accepted
// as is; pending placeholders are never dropped because of it.
func (m *MessageMerger) SetAuthoritative(list []entity.Message) {
	m.authoritative = make([]entity.Message, len(list))
	m.byID = make(map[string]int, len(list))
	m.clientIDs = make(map[string]struct{}, len(list))
	m.timestamps = make(map[int64]struct{})
	for i, msg := range list {
		m.authoritative[i] = msg.Clone()
		m.authoritative[i].Status = ""
		m.authoritative[i].UploadProgress = 0
		m.byID[msg.ID] = i
		if msg.ClientID != "" {
			m.clientIDs[msg.ClientID] = struct{}{}
		} else {
			m.timestamps[msg.Timestamp] = struct{}{}
		}
	}
}

// Observed reports whether the authoritative copy of a placeholder is present.
// Records carrying a client id are matched on it; older records without one
// fall back to timestamp equality.
func (m *MessageMerger) Observed(placeholder entity.Message) bool {
	if placeholder.ClientID != "" {
		if _, ok := m.clientIDs[placeholder.ClientID]; ok {
			return true
		}
	}
	_, ok := m.timestamps[placeholder.Timestamp]
	return ok
}

// Retire drops every placeholder whose authoritative copy has been observed.
func (m *MessageMerger) Retire(queue *OptimisticQueue) []string {
	return queue.RetireWhere(m.Observed)
}

// Merge recomputes the view from the current authoritative list and the given
// placeholders. Ties on timestamp keep authoritative-then-insertion order.
func (m *MessageMerger) Merge(optimistic []entity.Message) []entity.Message {
	merged := make([]entity.Message, 0, len(m.authoritative)+len(optimistic))
	for _, msg := range m.authoritative {
		merged = append(merged, msg.Clone())
	}
	merged = append(merged, optimistic...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Timestamp < merged[j].Timestamp
	})
	m.merged = merged
	return merged
}

func (m *MessageMerger) Merged() []entity.Message {
	return m.merged
}

// Find looks up an authoritative message by id.
func (m *MessageMerger) Find(id string) (entity.Message, bool) {
	idx, ok := m.byID[id]
	if !ok {
		return entity.Message{}, false
	}
	return m.authoritative[idx].Clone(), true
}
