// Package chat keeps the direct-message history between customers and
// weavers: per-counterpart conversation summaries and the open thread with
// its scripted counterpart replies.
package chat

import (
	"errors"
	"strconv"
	"sync"
	"time"
)

var (
	ErrEmptyMessage       = errors.New("message is empty")
	ErrNoCounterpart      = errors.New("no counterpart selected")
	ErrSelfConversation   = errors.New("cannot open a conversation with yourself")
	ErrThreadClosed       = errors.New("conversation is closed")
	ErrThreadNotOpen      = errors.New("conversation with this user is not open")
	ErrInvalidLink        = errors.New("link must be a valid absolute http(s) URL")
	ErrAttachmentTooLarge = errors.New("attachment is too large")
	ErrAttachmentType     = errors.New("attachment type is not supported")
	ErrUnknownUser        = errors.New("user not found")
)

// Message is one entry of the global message log. Only IsRead changes after
// creation.
type Message struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	ReceiverID  string    `json:"receiverId"`
	Content     string    `json:"content"`
	Attachments []string  `json:"attachments,omitempty"`
	IsLink      bool      `json:"isLink,omitempty"`
	IsRead      bool      `json:"isRead"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Between reports whether the message belongs to the unordered pair {a, b}.
func (m Message) Between(a, b string) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

type Participant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// IDSource mints message ids from the send time. Ids are strictly increasing
// even when two sends share a clock reading.
type IDSource struct {
	mu   sync.Mutex
	last int64
}

func (s *IDSource) Next(at time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := at.UnixNano()
	if n <= s.last {
		n = s.last + 1
	}
	s.last = n
	return strconv.FormatInt(n, 10)
}

// earlier orders by CreatedAt, then by id so equal timestamps sort the same
// way regardless of storage order.
func earlier(a, b Message) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	if len(a.ID) != len(b.ID) {
		return len(a.ID) < len(b.ID)
	}
	return a.ID < b.ID
}
