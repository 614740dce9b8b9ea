package usecase

import (
	"context"
	"sync"

	"tunechat/internal/domain/repository"
	"tunechat/internal/domain/service"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

// NoticeSink receives send failures for a user.
type NoticeSink func(userID string, notice Notice)

type SessionDeps struct {
	ConversationID string
	Identities     service.IdentityProvider
	Messages       repository.MessageRepository
	Presence       repository.PresenceRepository
	Groups         repository.GroupRepository
	Blobs          service.BlobStore
	Options        Options
	Notices        NoticeSink
}

// Session is one user's view of the shared conversation.
type Session struct {
	Conversation *ConversationUseCase
	Group        *GroupUseCase
}

// SessionManager lazily starts one engine per user. Engines live until the
// manager's context ends.
type SessionManager struct {
	deps     SessionDeps
	ctx      context.Context
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewSessionManager(ctx context.Context, deps SessionDeps) *SessionManager {
	return &SessionManager{
		deps:     deps,
		ctx:      ctx,
		sessions: make(map[string]*Session),
	}
}

func (m *SessionManager) Get(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, errors.Unauthorized("User not authenticated", nil)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s, nil
	}

	identity, err := m.deps.Identities.LookupIdentity(ctx, userID)
	if err != nil {
		return nil, err
	}

	group := NewGroupUseCase(m.deps.Groups, m.deps.ConversationID, identity)
	if _, err := group.Group(ctx); err != nil {
		return nil, err
	}

	conversation := NewConversationUseCase(
		m.deps.ConversationID,
		identity,
		m.deps.Messages,
		m.deps.Presence,
		m.deps.Blobs,
		m.deps.Options,
	)
	if err := conversation.Start(m.ctx); err != nil {
		return nil, err
	}
	go m.forwardNotices(userID, conversation)

	s := &Session{Conversation: conversation, Group: group}
	m.sessions[userID] = s
	logger.Info("Started session for %s in %s", userID, m.deps.ConversationID)
	return s, nil
}

func (m *SessionManager) forwardNotices(userID string, conversation *ConversationUseCase) {
	for {
		select {
		case n := <-conversation.Notices():
			if m.deps.Notices != nil {
				m.deps.Notices(userID, n)
			}
		case <-conversation.Done():
			return
		}
	}
}

// HandleTyping forwards a typing signal from a connected client.
func (m *SessionManager) HandleTyping(ctx context.Context, userID string, typing bool) error {
	s, err := m.Get(ctx, userID)
	if err != nil {
		return err
	}
	s.Conversation.SetLocalTyping(typing)
	return nil
}

// Wait blocks until every started engine has stopped. Call it after the
// manager's context is cancelled.
func (m *SessionManager) Wait() {
	m.mu.Lock()
	engines := make([]*ConversationUseCase, 0, len(m.sessions))
	for _, s := range m.sessions {
		engines = append(engines, s.Conversation)
	}
	m.mu.Unlock()

	for _, uc := range engines {
		<-uc.Done()
	}
}

func (m *SessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
