package entity

import "time"

type TypingSignal struct {
	UserID      string `json:"user_id" firestore:"-"`
	DisplayName string `json:"display_name" firestore:"displayName"`
	LastSentAt  int64  `json:"last_sent_at" firestore:"lastSentAt"`
}

// Fresh reports whether the signal was sent less than ttl before now.
func (s TypingSignal) Fresh(now time.Time, ttl time.Duration) bool {
	return now.UnixMilli()-s.LastSentAt < ttl.Milliseconds()
}
