// Package memstore holds in-memory, push-capable implementations of the
// collaborators the conversation engine talks to. It backs dev mode (no cloud
// credentials) and the engine tests.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"tunechat/internal/domain/entity"
	"tunechat/pkg/errors"
)

// Store is the in-memory document store. Writes made while offline are queued
// and applied in order on reconnect, the way a client SDK's write queue does.
type Store struct {
	mu       sync.Mutex
	messages map[string][]entity.Message
	msgSubs  map[string][]chan []entity.Message
	presence map[string]map[string]entity.TypingSignal
	presSubs map[string][]chan []entity.TypingSignal
	groups   map[string]*entity.Group

	offline  bool
	queued   []func()
	failNext error
	writes   int
}

func New() *Store {
	return &Store{
		messages: make(map[string][]entity.Message),
		msgSubs:  make(map[string][]chan []entity.Message),
		presence: make(map[string]map[string]entity.TypingSignal),
		presSubs: make(map[string][]chan []entity.TypingSignal),
		groups:   make(map[string]*entity.Group),
	}
}

// FailNextWrite makes the next write return err instead of being applied.
func (s *Store) FailNextWrite(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// SetOffline toggles connectivity. Going back online flushes queued writes.
func (s *Store) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
	if offline {
		return
	}
	queued := s.queued
	s.queued = nil
	for _, apply := range queued {
		apply()
	}
}

// Writes returns how many write calls reached the store, failed ones included.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// write runs apply now, or queues it while offline. Callers hold s.mu.
func (s *Store) write(apply func()) error {
	s.writes++
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return errors.WriteRejected("Write rejected by store", err)
	}
	if s.offline {
		s.queued = append(s.queued, apply)
		return nil
	}
	apply()
	return nil
}

func (s *Store) Subscribe(ctx context.Context, conversationID string) (<-chan []entity.Message, error) {
	ch := make(chan []entity.Message, 1)

	s.mu.Lock()
	s.msgSubs[conversationID] = append(s.msgSubs[conversationID], ch)
	offer(ch, s.messageSnapshot(conversationID))
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		defer s.mu.Unlock()
		s.msgSubs[conversationID] = removeChan(s.msgSubs[conversationID], ch)
		close(ch)
	}()
	return ch, nil
}

func (s *Store) Append(_ context.Context, conversationID string, message entity.Message) (string, error) {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.write(func() {
		stored := message.AuthoritativeRecord()
		stored.ID = id
		list := append(s.messages[conversationID], stored)
		sort.SliceStable(list, func(i, j int) bool { return list[i].Timestamp < list[j].Timestamp })
		s.messages[conversationID] = list
		s.publishMessages(conversationID)
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) Update(_ context.Context, conversationID, messageID string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(conversationID, messageID) < 0 {
		return errors.NotFound("Message", nil)
	}
	for key := range fields {
		if !updatableField(key) {
			return errors.BadRequest("Unsupported field "+key, nil)
		}
	}

	return s.write(func() {
		idx := s.indexOf(conversationID, messageID)
		if idx < 0 {
			return
		}
		msg := &s.messages[conversationID][idx]
		applyFields(msg, fields)
		s.publishMessages(conversationID)
	})
}

func (s *Store) Delete(_ context.Context, conversationID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.write(func() {
		idx := s.indexOf(conversationID, messageID)
		if idx < 0 {
			return
		}
		list := s.messages[conversationID]
		s.messages[conversationID] = append(list[:idx:idx], list[idx+1:]...)
		s.publishMessages(conversationID)
	})
}

func (s *Store) Get(_ context.Context, conversationID, messageID string) (*entity.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(conversationID, messageID)
	if idx < 0 {
		return nil, errors.NotFound("Message", nil)
	}
	msg := s.messages[conversationID][idx].Clone()
	return &msg, nil
}

// Messages returns a copy of the stored list, for assertions.
func (s *Store) Messages(conversationID string) []entity.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageSnapshot(conversationID)
}

func (s *Store) indexOf(conversationID, messageID string) int {
	for i, m := range s.messages[conversationID] {
		if m.ID == messageID {
			return i
		}
	}
	return -1
}

func (s *Store) messageSnapshot(conversationID string) []entity.Message {
	list := s.messages[conversationID]
	out := make([]entity.Message, len(list))
	for i, m := range list {
		out[i] = m.Clone()
	}
	return out
}

func (s *Store) publishMessages(conversationID string) {
	for _, ch := range s.msgSubs[conversationID] {
		offer(ch, s.messageSnapshot(conversationID))
	}
}

func updatableField(key string) bool {
	switch key {
	case "content", "isEdited", "isUnsent", "reactions", "attachments":
		return true
	}
	return false
}

func applyFields(msg *entity.Message, fields map[string]interface{}) {
	for key, value := range fields {
		switch key {
		case "content":
			msg.Content, _ = value.(string)
		case "isEdited":
			msg.IsEdited, _ = value.(bool)
		case "isUnsent":
			msg.IsUnsent, _ = value.(bool)
		case "reactions":
			reactions, _ := value.([]string)
			msg.Reactions = append([]string{}, reactions...)
		case "attachments":
			attachments, _ := value.([]string)
			msg.Attachments = append([]string{}, attachments...)
		}
	}
}

// offer delivers v, replacing an unread older value so slow readers only ever
// see the latest snapshot.
func offer[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func removeChan[T any](subs []chan T, target chan T) []chan T {
	out := subs[:0]
	for _, ch := range subs {
		if ch != target {
			out = append(out, ch)
		}
	}
	return out
}
