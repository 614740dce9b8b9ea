package memstore

import (
	"context"
	"sort"

	"tunechat/internal/domain/entity"
)

// Presence adapts the store to repository.PresenceRepository.
type Presence struct {
	s *Store
}

func (s *Store) Presence() *Presence {
	return &Presence{s: s}
}

func (p *Presence) Upsert(_ context.Context, conversationID string, signal entity.TypingSignal) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	return p.s.write(func() {
		records := p.s.presence[conversationID]
		if records == nil {
			records = make(map[string]entity.TypingSignal)
			p.s.presence[conversationID] = records
		}
		existing := records[signal.UserID]
		existing.UserID = signal.UserID
		if signal.DisplayName != "" {
			existing.DisplayName = signal.DisplayName
		}
		existing.LastSentAt = signal.LastSentAt
		records[signal.UserID] = existing
		p.s.publishPresence(conversationID)
	})
}

func (p *Presence) Delete(_ context.Context, conversationID, userID string) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()

	return p.s.write(func() {
		delete(p.s.presence[conversationID], userID)
		p.s.publishPresence(conversationID)
	})
}

func (p *Presence) Subscribe(ctx context.Context, conversationID string) (<-chan []entity.TypingSignal, error) {
	ch := make(chan []entity.TypingSignal, 1)

	p.s.mu.Lock()
	p.s.presSubs[conversationID] = append(p.s.presSubs[conversationID], ch)
	offer(ch, p.s.presenceSnapshot(conversationID))
	p.s.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.s.mu.Lock()
		defer p.s.mu.Unlock()
		p.s.presSubs[conversationID] = removeChan(p.s.presSubs[conversationID], ch)
		close(ch)
	}()
	return ch, nil
}

// Put writes a raw presence record, bypassing merge semantics. Tests use it to
// simulate other participants and delayed deletes.
func (p *Presence) Put(conversationID string, signal entity.TypingSignal) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if p.s.presence[conversationID] == nil {
		p.s.presence[conversationID] = make(map[string]entity.TypingSignal)
	}
	p.s.presence[conversationID][signal.UserID] = signal
	p.s.publishPresence(conversationID)
}

func (p *Presence) Signals(conversationID string) []entity.TypingSignal {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	return p.s.presenceSnapshot(conversationID)
}

func (s *Store) presenceSnapshot(conversationID string) []entity.TypingSignal {
	records := s.presence[conversationID]
	out := make([]entity.TypingSignal, 0, len(records))
	for _, sig := range records {
		out = append(out, sig)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

func (s *Store) publishPresence(conversationID string) {
	for _, ch := range s.presSubs[conversationID] {
		offer(ch, s.presenceSnapshot(conversationID))
	}
}
