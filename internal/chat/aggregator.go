package chat

import (
	"sort"
	"strings"
)

type Summary struct {
	Counterpart Participant `json:"counterpart"`
	LastMessage *Message    `json:"last_message,omitempty"`
	UnreadCount int         `json:"unread_count"`
}

// ConversationBetween returns the messages exchanged by user and
// counterpart in either direction, oldest first.
func ConversationBetween(log []Message, userID, counterpartID string) []Message {
	out := make([]Message, 0)
	for _, m := range log {
		if m.Between(userID, counterpartID) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return earlier(out[i], out[j]) })
	return out
}

// BuildSummaries produces one summary per counterpart, most recent activity
// first. Counterparts without messages keep their given order at the end.
func BuildSummaries(userID string, counterparts []Participant, log []Message) []Summary {
	out := make([]Summary, 0, len(counterparts))
	for _, cp := range counterparts {
		if cp.ID == "" || cp.ID == userID {
			continue
		}
		conv := ConversationBetween(log, userID, cp.ID)
		s := Summary{Counterpart: cp}
		if len(conv) > 0 {
			last := conv[len(conv)-1]
			s.LastMessage = &last
		}
		for _, m := range conv {
			if m.SenderID == cp.ID && !m.IsRead {
				s.UnreadCount++
			}
		}
		out = append(out, s)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastMessage, out[j].LastMessage
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.CreatedAt.After(b.CreatedAt)
		}
	})
	return out
}

// FilterByName keeps summaries whose counterpart name contains query,
// ignoring case. Order is preserved.
func FilterByName(summaries []Summary, query string) []Summary {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return summaries
	}
	out := make([]Summary, 0, len(summaries))
	for _, s := range summaries {
		if strings.Contains(strings.ToLower(s.Counterpart.Name), q) {
			out = append(out, s)
		}
	}
	return out
}

// UnreadFor counts unread messages addressed to userID across all
// conversations.
func UnreadFor(log []Message, userID string) int {
	n := 0
	for _, m := range log {
		if m.ReceiverID == userID && m.SenderID != userID && !m.IsRead {
			n++
		}
	}
	return n
}

// CounterpartIDs lists everyone userID has exchanged messages with, most
// recent first.
func CounterpartIDs(log []Message, userID string) []string {
	latest := map[string]Message{}
	for _, m := range log {
		var other string
		switch userID {
		case m.SenderID:
			other = m.ReceiverID
		case m.ReceiverID:
			other = m.SenderID
		default:
			continue
		}
		if other == userID {
			continue
		}
		if cur, ok := latest[other]; !ok || earlier(cur, m) {
			latest[other] = m
		}
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return earlier(latest[ids[j]], latest[ids[i]]) })
	return ids
}
