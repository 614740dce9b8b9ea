package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"tunechat/internal/domain/entity"
	"tunechat/pkg/errors"
	"tunechat/pkg/logger"
)

const localPreviewScheme = "blob:local/"

// draft is a message stamped on the loop: its timestamp, correlation id and
// any armed reply are fixed before the caller's goroutine does network I/O.
func (uc *ConversationUseCase) draft(msgType entity.MessageType, content string) (entity.Message, error) {
	var msg entity.Message
	err := uc.do(func() {
		msg = entity.Message{
			ClientID:     uuid.New().String(),
			SenderID:     uc.identity.UserID,
			SenderName:   uc.identity.DisplayName,
			SenderAvatar: uc.identity.AvatarURL,
			Content:      content,
			Type:         msgType,
			Timestamp:    uc.issuer.Next(),
			Reactions:    []string{},
		}
		if reply := uc.reply.Take(); reply != nil {
			msg.ReplyTo = reply
			uc.publish()
		}
	})
	return msg, err
}

// SendText writes straight to the store. No placeholder is shown; the message
// appears once the authoritative stream carries it.
func (uc *ConversationUseCase) SendText(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.BadRequest("Message content cannot be empty", nil)
	}
	msg, err := uc.draft(entity.MessageTypeText, text)
	if err != nil {
		return err
	}
	return uc.writeDirect(ctx, msg)
}

// SendTrack shares a catalog track as a music message.
func (uc *ConversationUseCase) SendTrack(ctx context.Context, track entity.Track) error {
	if track.ID == "" || track.Title == "" {
		return errors.BadRequest("Track id and title are required", nil)
	}
	content, err := entity.EncodeTrack(track)
	if err != nil {
		return errors.BadRequest("Invalid track", err)
	}
	msg, err := uc.draft(entity.MessageTypeMusic, content)
	if err != nil {
		return err
	}
	return uc.writeDirect(ctx, msg)
}

func (uc *ConversationUseCase) writeDirect(ctx context.Context, msg entity.Message) error {
	if _, err := uc.messageRepo.Append(ctx, uc.conversationID, msg.AuthoritativeRecord()); err != nil {
		logger.LogSendError(uc.conversationID, msg.ClientID, string(msg.Type), err)
		return asWriteRejected(err)
	}
	return nil
}

// SendMedia shows a placeholder immediately, uploads the files and writes the
// message once every file is stored. It returns when the send has settled,
// with the placeholder id so callers can retry or dismiss it.
func (uc *ConversationUseCase) SendMedia(ctx context.Context, files []entity.LocalFile, kind MediaKind) (string, error) {
	if len(files) == 0 {
		return "", errors.BadRequest("At least one file is required", nil)
	}
	msgType := ClassifyMedia(files, kind)

	previews := make([]string, len(files))
	for i := range files {
		previews[i] = localPreviewScheme + uuid.New().String()
	}

	msg, err := uc.draft(msgType, previews[0])
	if err != nil {
		return "", err
	}
	msg.ID = fmt.Sprintf("%s%d-%s", entity.OptimisticIDPrefix, msg.Timestamp, msg.ClientID[:8])
	msg.Attachments = previews
	msg.Status = entity.StatusSending
	msg.UploadProgress = 0

	if err := uc.do(func() {
		uc.queue.Insert(msg, files)
		uc.publish()
	}); err != nil {
		return "", err
	}

	return msg.ID, uc.runMediaSend(ctx, msg, files, nil)
}

// RetryMedia repeats a send whose authoritative write was rejected. Files that
// were already stored are reused.
func (uc *ConversationUseCase) RetryMedia(ctx context.Context, tempID string) error {
	var (
		msg      entity.Message
		files    []entity.LocalFile
		uploaded []string
		ok       bool
	)
	if err := uc.do(func() {
		msg, files, uploaded, ok = uc.queue.Resend(tempID)
		if ok {
			uc.publish()
		}
	}); err != nil {
		return err
	}
	if !ok {
		return errors.NotFound("Failed send", nil)
	}
	return uc.runMediaSend(ctx, msg, files, uploaded)
}

// DismissPlaceholder stops showing a placeholder. A send still in flight
// completes its write.
func (uc *ConversationUseCase) DismissPlaceholder(tempID string) error {
	var ok bool
	if err := uc.do(func() {
		if ok = uc.queue.Remove(tempID); ok {
			uc.publish()
		}
	}); err != nil {
		return err
	}
	if !ok {
		return errors.NotFound("Placeholder", nil)
	}
	return nil
}

func (uc *ConversationUseCase) runMediaSend(ctx context.Context, placeholder entity.Message, files []entity.LocalFile, uploaded []string) error {
	// Uploads and the write that follows are not cancellable once started.
	ctx = context.WithoutCancel(ctx)
	tempID := placeholder.ID

	urls := uploaded
	if len(urls) == 0 {
		var err error
		urls, err = uc.pipeline.Upload(ctx, files, func(index, percent int) {
			if index != 0 {
				return
			}
			if percent > 99 {
				percent = 99
			}
			uc.post(func() {
				if uc.queue.UpdateProgress(tempID, percent) {
					uc.publish()
				}
			})
		})
		if err != nil {
			logger.LogSendError(uc.conversationID, tempID, "upload", err)
			_ = uc.do(func() {
				if uc.queue.Remove(tempID) {
					uc.publish()
				}
			})
			uc.notify(Notice{Kind: NoticeUploadFailed, TempID: tempID, Message: "Media could not be uploaded"})
			return err
		}
	}

	record := withUploads(placeholder, urls)
	_ = uc.do(func() {
		if _, ok := uc.queue.Complete(tempID, urls); ok {
			uc.publish()
		}
	})

	if _, err := uc.messageRepo.Append(ctx, uc.conversationID, record.AuthoritativeRecord()); err != nil {
		logger.LogSendError(uc.conversationID, tempID, "write", err)
		_ = uc.do(func() {
			if uc.queue.MarkError(tempID) {
				uc.publish()
			}
		})
		uc.notify(Notice{Kind: NoticeWriteRejected, TempID: tempID, Message: "Message could not be sent"})
		return asWriteRejected(err)
	}
	return nil
}

func asWriteRejected(err error) error {
	if errors.Is(err, errors.CodeWriteRejected) {
		return err
	}
	return errors.WriteRejected("Store rejected the message", err)
}
