package entity

import (
	"strings"
)

type MessageType string

const (
	MessageTypeText      MessageType = "text"
	MessageTypeImage     MessageType = "image"
	MessageTypeVideo     MessageType = "video"
	MessageTypeImageGrid MessageType = "image-grid"
	MessageTypeMusic     MessageType = "music"
	MessageTypeAudio     MessageType = "audio"
)

// IsMedia reports whether messages of this type carry uploaded attachments.
func (t MessageType) IsMedia() bool {
	switch t {
	case MessageTypeImage, MessageTypeVideo, MessageTypeImageGrid, MessageTypeAudio:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusSending MessageStatus = "sending"
	StatusSent    MessageStatus = "sent"
	StatusError   MessageStatus = "error"
)

// OptimisticIDPrefix marks locally generated placeholder ids. Store-assigned
// ids never start with it.
const OptimisticIDPrefix = "optimistic-"

// ReplySnapshot is captured when the reply is armed and never re-linked.
type ReplySnapshot struct {
	ID         string      `json:"id" firestore:"id"`
	SenderName string      `json:"sender_name" firestore:"senderName"`
	Content    string      `json:"content" firestore:"content"`
	Type       MessageType `json:"type" firestore:"type"`
}

type Message struct {
	ID           string         `json:"id" firestore:"-"`
	ClientID     string         `json:"client_id,omitempty" firestore:"clientId,omitempty"`
	SenderID     string         `json:"sender_id" firestore:"senderId"`
	SenderName   string         `json:"sender_name" firestore:"senderName"`
	SenderAvatar string         `json:"sender_avatar,omitempty" firestore:"senderAvatar,omitempty"`
	Content      string         `json:"content" firestore:"content"`
	Type         MessageType    `json:"type" firestore:"type"`
	Attachments  []string       `json:"attachments,omitempty" firestore:"attachments,omitempty"`
	Timestamp    int64          `json:"timestamp" firestore:"timestamp"`
	Reactions    []string       `json:"reactions,omitempty" firestore:"reactions"`
	ReplyTo      *ReplySnapshot `json:"reply_to,omitempty" firestore:"replyTo,omitempty"`
	IsEdited     bool           `json:"is_edited" firestore:"isEdited"`
	IsUnsent     bool           `json:"is_unsent" firestore:"isUnsent"`

	// Local-only fields, never written to the store.
	Status         MessageStatus `json:"status,omitempty" firestore:"-"`
	UploadProgress int           `json:"upload_progress,omitempty" firestore:"-"`
}

func IsOptimisticID(id string) bool {
	return strings.HasPrefix(id, OptimisticIDPrefix)
}

func (m *Message) IsOptimistic() bool {
	return IsOptimisticID(m.ID)
}

// Clone returns a deep copy so views handed out never alias engine state.
func (m Message) Clone() Message {
	out := m
	if m.Attachments != nil {
		out.Attachments = append([]string(nil), m.Attachments...)
	}
	if m.Reactions != nil {
		out.Reactions = append([]string(nil), m.Reactions...)
	}
	if m.ReplyTo != nil {
		reply := *m.ReplyTo
		out.ReplyTo = &reply
	}
	return out
}

// Snapshot builds the reply snapshot for this message.
func (m *Message) Snapshot() *ReplySnapshot {
	return &ReplySnapshot{
		ID:         m.ID,
		SenderName: m.SenderName,
		Content:    m.Content,
		Type:       m.Type,
	}
}

// AuthoritativeRecord returns the copy written to the store: everything except
// the id and the local send state.
func (m Message) AuthoritativeRecord() Message {
	out := m.Clone()
	out.ID = ""
	out.Status = ""
	out.UploadProgress = 0
	return out
}
