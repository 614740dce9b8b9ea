package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"tunechat/internal/domain/entity"
	"tunechat/internal/domain/repository"
	"tunechat/internal/domain/service"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

const (
	defaultSweepInterval = time.Second
	noticeBufferSize     = 16
)

// View is what the presentation layer renders. It is never mutated after it
// has been published.
type View struct {
	Messages    []entity.Message      `json:"messages"`
	TypingUsers []entity.TypingSignal `json:"typing_users"`
	ReplyingTo  *entity.ReplySnapshot `json:"replying_to,omitempty"`
}

type NoticeKind string

const (
	NoticeUploadFailed  NoticeKind = "upload_failed"
	NoticeWriteRejected NoticeKind = "write_rejected"
)

// Notice is a user-visible failure report for an asynchronous send.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	TempID  string     `json:"temp_id,omitempty"`
	Message string     `json:"message"`
}

type Options struct {
	TypingIdle     time.Duration
	TypingTTL      time.Duration
	MaxUploadBytes int64
	SweepInterval  time.Duration
	Now            func() time.Time
}

// ConversationUseCase is the synchronization engine for one conversation. All
// of its state lives on a single loop goroutine; commands hop onto the loop
// for their local mutations and perform remote I/O on the caller's goroutine.
type ConversationUseCase struct {
	conversationID string
	identity       entity.Identity
	messageRepo    repository.MessageRepository
	presenceRepo   repository.PresenceRepository
	opts           Options

	// loop-owned
	queue     *OptimisticQueue
	merger    *MessageMerger
	presence  *PresenceTracker
	reply     ReplyContext
	issuer    *timestampIssuer
	pipeline  *UploadPipeline
	mutations *MutationDispatcher

	events  chan func()
	done    chan struct{}
	started atomic.Bool

	view    atomic.Pointer[View]
	subsMu  sync.Mutex
	subs    map[chan View]struct{}
	notices chan Notice
}

func NewConversationUseCase(
	conversationID string,
	identity entity.Identity,
	messageRepo repository.MessageRepository,
	presenceRepo repository.PresenceRepository,
	blobs service.BlobStore,
	opts Options,
) *ConversationUseCase {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = defaultSweepInterval
	}

	uc := &ConversationUseCase{
		conversationID: conversationID,
		identity:       identity,
		messageRepo:    messageRepo,
		presenceRepo:   presenceRepo,
		opts:           opts,
		queue:          NewOptimisticQueue(),
		merger:         NewMessageMerger(),
		issuer:         newTimestampIssuer(opts.Now),
		pipeline:       NewUploadPipeline(blobs, opts.MaxUploadBytes),
		events:         make(chan func()),
		done:           make(chan struct{}),
		subs:           make(map[chan View]struct{}),
		notices:        make(chan Notice, noticeBufferSize),
	}
	uc.presence = NewPresenceTracker(conversationID, identity, presenceRepo, opts.TypingIdle, opts.TypingTTL, opts.Now)
	uc.presence.post = uc.post
	uc.mutations = NewMutationDispatcher(conversationID, identity, messageRepo, uc.lookupAuthoritative)
	uc.view.Store(&View{Messages: []entity.Message{}, TypingUsers: []entity.TypingSignal{}})
	return uc
}

func (uc *ConversationUseCase) ConversationID() string {
	return uc.conversationID
}

func (uc *ConversationUseCase) Identity() entity.Identity {
	return uc.identity
}

// Start subscribes to the remote streams and runs the loop until ctx ends.
func (uc *ConversationUseCase) Start(ctx context.Context) error {
	if !uc.started.CompareAndSwap(false, true) {
		return errors.BadRequest("Conversation engine already started", nil)
	}

	messages, err := uc.messageRepo.Subscribe(ctx, uc.conversationID)
	if err != nil {
		return errors.Internal("Failed to subscribe to messages", err)
	}
	signals, err := uc.presenceRepo.Subscribe(ctx, uc.conversationID)
	if err != nil {
		return errors.Internal("Failed to subscribe to presence", err)
	}

	go uc.presence.run()
	go uc.loop(ctx, messages, signals)

	logger.Info("Conversation %s started for user %s", uc.conversationID, uc.identity.UserID)
	return nil
}

// Done is closed once the loop has exited and the final presence write has
// been sent.
func (uc *ConversationUseCase) Done() <-chan struct{} {
	return uc.done
}

func (uc *ConversationUseCase) loop(ctx context.Context, messages <-chan []entity.Message, signals <-chan []entity.TypingSignal) {
	defer close(uc.done)

	sweep := time.NewTicker(uc.opts.SweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.presence.Stop()
			<-uc.presence.drained
			uc.closeSubscribers()
			logger.Info("Conversation %s stopped", uc.conversationID)
			return

		case fn := <-uc.events:
			fn()

		case list, ok := <-messages:
			if !ok {
				// The feed owns reconnection; keep serving the last view.
				logger.Warn("Message stream for %s closed", uc.conversationID)
				messages = nil
				continue
			}
			uc.onAuthoritative(list)

		case list, ok := <-signals:
			if !ok {
				logger.Warn("Presence stream for %s closed", uc.conversationID)
				signals = nil
				continue
			}
			if uc.presence.OnSnapshot(list) {
				uc.publish()
			}

		case <-sweep.C:
			if uc.presence.Refresh() {
				uc.publish()
			}
		}
	}
}

// post hands fn to the loop. It reports false once the loop has stopped.
func (uc *ConversationUseCase) post(fn func()) bool {
	select {
	case uc.events <- fn:
		return true
	case <-uc.done:
		return false
	}
}

// do runs fn on the loop and waits for it to finish.
func (uc *ConversationUseCase) do(fn func()) error {
	if !uc.started.Load() {
		return errors.Internal("Conversation engine not started", nil)
	}
	finished := make(chan struct{})
	if !uc.post(func() {
		fn()
		close(finished)
	}) {
		return errors.Internal("Conversation engine stopped", nil)
	}
	<-finished
	return nil
}

func (uc *ConversationUseCase) onAuthoritative(list []entity.Message) {
	uc.merger.SetAuthoritative(list)
	if retired := uc.merger.Retire(uc.queue); len(retired) > 0 {
		logger.Debug("Retired placeholders %v in %s", retired, uc.conversationID)
	}
	uc.publish()
}

// publish recomputes the merged view and fans it out. Loop only.
func (uc *ConversationUseCase) publish() {
	view := &View{
		Messages:    uc.merger.Merge(uc.queue.List()),
		TypingUsers: FilterTyping(uc.presence.Signals(), uc.identity.UserID, uc.opts.Now(), uc.presence.ttl),
		ReplyingTo:  uc.reply.Current(),
	}
	uc.view.Store(view)

	uc.subsMu.Lock()
	defer uc.subsMu.Unlock()
	for ch := range uc.subs {
		offerView(ch, *view)
	}
}

func (uc *ConversationUseCase) lookupAuthoritative(messageID string) (entity.Message, bool) {
	var (
		msg entity.Message
		ok  bool
	)
	if err := uc.do(func() { msg, ok = uc.merger.Find(messageID) }); err != nil {
		return entity.Message{}, false
	}
	return msg, ok
}

// Messages returns a copy of the merged view.
func (uc *ConversationUseCase) Messages() []entity.Message {
	current := uc.view.Load().Messages
	out := make([]entity.Message, len(current))
	for i, m := range current {
		out[i] = m.Clone()
	}
	return out
}

// TypingUsers applies the staleness filter at read time, so a record whose
// delete has not propagated yet still drops out after the TTL.
func (uc *ConversationUseCase) TypingUsers() []entity.TypingSignal {
	var raw []entity.TypingSignal
	if err := uc.do(func() { raw = uc.presence.Signals() }); err != nil {
		raw = uc.view.Load().TypingUsers
	}
	return FilterTyping(raw, uc.identity.UserID, uc.opts.Now(), uc.presence.ttl)
}

func (uc *ConversationUseCase) CurrentView() View {
	return *uc.view.Load()
}

// Subscribe returns a channel carrying the latest view on every change. Slow
// readers only ever see the newest view.
func (uc *ConversationUseCase) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	// Seeding and registering under subsMu means a concurrent publish either
	// happened before the Load or will offer its view to ch.
	uc.subsMu.Lock()
	ch <- *uc.view.Load()
	uc.subs[ch] = struct{}{}
	uc.subsMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			uc.subsMu.Lock()
			defer uc.subsMu.Unlock()
			if _, ok := uc.subs[ch]; ok {
				delete(uc.subs, ch)
				close(ch)
			}
		})
	}
}

func (uc *ConversationUseCase) closeSubscribers() {
	uc.subsMu.Lock()
	defer uc.subsMu.Unlock()
	for ch := range uc.subs {
		delete(uc.subs, ch)
		close(ch)
	}
}

// Notices carries user-visible failure reports for sends.
func (uc *ConversationUseCase) Notices() <-chan Notice {
	return uc.notices
}

func (uc *ConversationUseCase) notify(n Notice) {
	select {
	case uc.notices <- n:
	default:
		logger.Warn("Notice buffer full, dropping %s for %s", n.Kind, n.TempID)
	}
}

func offerView(ch chan View, v View) {
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

// SetLocalTyping publishes or clears the local typing signal. Failures are
// absorbed.
func (uc *ConversationUseCase) SetLocalTyping(isTyping bool) {
	if err := uc.do(func() { uc.presence.SetLocalTyping(isTyping) }); err != nil {
		logger.Debug("SetLocalTyping ignored: %v", err)
	}
}

func (uc *ConversationUseCase) ToggleReaction(ctx context.Context, messageID, symbol string) ([]string, error) {
	return uc.mutations.ToggleReaction(ctx, messageID, symbol)
}

func (uc *ConversationUseCase) EditMessage(ctx context.Context, messageID, newContent string) error {
	return uc.mutations.EditMessage(ctx, messageID, newContent)
}

func (uc *ConversationUseCase) UnsendMessage(ctx context.Context, messageID string) error {
	return uc.mutations.UnsendMessage(ctx, messageID)
}

// Reply arms a reply to an authoritative message for the next send.
func (uc *ConversationUseCase) Reply(messageID string) error {
	if entity.IsOptimisticID(messageID) {
		return errors.StaleMutation("Message is still being sent")
	}
	var found bool
	if err := uc.do(func() {
		msg, ok := uc.merger.Find(messageID)
		if !ok {
			return
		}
		found = true
		uc.reply.Arm(msg)
		uc.publish()
	}); err != nil {
		return err
	}
	if !found {
		return errors.StaleMutation("Message no longer exists")
	}
	return nil
}

func (uc *ConversationUseCase) CancelReply() {
	_ = uc.do(func() {
		uc.reply.Clear()
		uc.publish()
	})
}
