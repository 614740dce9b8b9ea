package usecase

import (
	"context"
	"strings"

	"tunechat/internal/domain/entity"
	"tunechat/internal/domain/repository"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

// LookupFunc resolves an authoritative message from the local view.
type LookupFunc func(messageID string) (entity.Message, bool)

// MutationDispatcher applies reactions, edits and unsends to authoritative
// messages. Every target is validated against the local authoritative view
// before anything is sent to the store.
type MutationDispatcher struct {
	conversationID string
	identity       entity.Identity
	repo           repository.MessageRepository
	lookup         LookupFunc
}

func NewMutationDispatcher(conversationID string, identity entity.Identity, repo repository.MessageRepository, lookup LookupFunc) *MutationDispatcher {
	return &MutationDispatcher{
		conversationID: conversationID,
		identity:       identity,
		repo:           repo,
		lookup:         lookup,
	}
}

func (d *MutationDispatcher) target(messageID string) (entity.Message, error) {
	if messageID == "" {
		return entity.Message{}, errors.StaleMutation("Message id is required")
	}
	if entity.IsOptimisticID(messageID) {
		return entity.Message{}, errors.StaleMutation("Message is still being sent")
	}
	msg, ok := d.lookup(messageID)
	if !ok {
		return entity.Message{}, errors.StaleMutation("Message no longer exists")
	}
	return msg, nil
}

func (d *MutationDispatcher) owned(messageID string) (entity.Message, error) {
	msg, err := d.target(messageID)
	if err != nil {
		return msg, err
	}
	if msg.SenderID != d.identity.UserID {
		return msg, errors.StaleMutation("Only the sender can change this message")
	}
	return msg, nil
}

// ToggleReaction adds symbol to the message's shared reaction set, or removes
// it when already present. The set has no per-user attribution.
func (d *MutationDispatcher) ToggleReaction(ctx context.Context, messageID, symbol string) ([]string, error) {
	symbol = strings.TrimSpace(symbol)
	if symbol == "" {
		return nil, errors.BadRequest("Reaction symbol is required", nil)
	}
	if _, err := d.target(messageID); err != nil {
		return nil, err
	}

	current, err := d.repo.Get(ctx, d.conversationID, messageID)
	if err != nil {
		return nil, d.rejected("toggle_reaction", messageID, err)
	}

	next := ToggleSymbol(current.Reactions, symbol)
	if err := d.repo.Update(ctx, d.conversationID, messageID, map[string]interface{}{
		"reactions": next,
	}); err != nil {
		return nil, d.rejected("toggle_reaction", messageID, err)
	}
	return next, nil
}

func (d *MutationDispatcher) EditMessage(ctx context.Context, messageID, newContent string) error {
	if strings.TrimSpace(newContent) == "" {
		return errors.BadRequest("Message content cannot be empty", nil)
	}
	msg, err := d.owned(messageID)
	if err != nil {
		return err
	}
	if msg.Type != entity.MessageTypeText {
		return errors.BadRequest("Only text messages can be edited", nil)
	}

	if err := d.repo.Update(ctx, d.conversationID, messageID, map[string]interface{}{
		"content":  newContent,
		"isEdited": true,
	}); err != nil {
		return d.rejected("edit", messageID, err)
	}
	return nil
}

// UnsendMessage hard-deletes the authoritative record.
func (d *MutationDispatcher) UnsendMessage(ctx context.Context, messageID string) error {
	if _, err := d.owned(messageID); err != nil {
		return err
	}
	if err := d.repo.Delete(ctx, d.conversationID, messageID); err != nil {
		return d.rejected("unsend", messageID, err)
	}
	return nil
}

func (d *MutationDispatcher) rejected(action, messageID string, err error) error {
	logger.Warn("Mutation %s on %s/%s rejected: %v", action, d.conversationID, messageID, err)
	if errors.Is(err, errors.CodeNotFound) {
		return errors.StaleMutation("Message no longer exists")
	}
	if errors.Is(err, errors.CodeWriteRejected) {
		return err
	}
	return errors.WriteRejected("Store rejected the change", err)
}

// ToggleSymbol returns the symmetric difference of set and {symbol}, keeping
// the existing order.
func ToggleSymbol(set []string, symbol string) []string {
	out := make([]string, 0, len(set)+1)
	found := false
	for _, s := range set {
		if s == symbol {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		out = append(out, symbol)
	}
	return out
}

// ReplyContext holds the message the next send will reply to.
type ReplyContext struct {
	target *entity.ReplySnapshot
}

func (r *ReplyContext) Arm(msg entity.Message) {
	r.target = msg.Snapshot()
}

// Take returns the armed snapshot and clears it.
func (r *ReplyContext) Take() *entity.ReplySnapshot {
	target := r.target
	r.target = nil
	return target
}

func (r *ReplyContext) Clear() {
	r.target = nil
}

func (r *ReplyContext) Current() *entity.ReplySnapshot {
	if r.target == nil {
		return nil
	}
	snapshot := *r.target
	return &snapshot
}
