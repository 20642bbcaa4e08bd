package chat

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/kv"
)

// LogKey is the single key holding every message of every conversation.
const LogKey = "handloom_messages"

// MessageLog reads and rewrites the whole log on each change. Writes are
// serialised inside this process only; two processes sharing the store can
// still lose each other's updates (last writer wins).
type MessageLog struct {
	store kv.Store
	log   *zap.Logger
	mu    sync.Mutex
}

func NewMessageLog(store kv.Store, logger *zap.Logger) *MessageLog {
	return &MessageLog{store: store, log: logger}
}

// Load never fails: unreadable or malformed data reads as an empty log.
func (l *MessageLog) Load(ctx context.Context) []Message {
	var msgs []Message
	if !kv.LoadJSON(ctx, l.store, LogKey, &msgs, l.log) {
		return []Message{}
	}
	return msgs
}

// MergePair writes msgs over the stored messages of the pair {a, b}.
// Stored messages of the pair missing from msgs are kept, and a message
// read on either side stays read, so two open copies of one conversation
// never erase each other's messages or read flags.
func (l *MessageLog) MergePair(ctx context.Context, a, b string, msgs []Message) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	merged := make([]Message, len(msgs))
	copy(merged, msgs)
	index := make(map[string]int, len(merged))
	for i, m := range merged {
		index[m.ID] = i
	}

	all := l.Load(ctx)
	kept := make([]Message, 0, len(all)+len(msgs))
	for _, m := range all {
		if !m.Between(a, b) {
			kept = append(kept, m)
			continue
		}
		if i, seen := index[m.ID]; seen {
			merged[i].IsRead = merged[i].IsRead || m.IsRead
			continue
		}
		merged = append(merged, m)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.Before(merged[j].CreatedAt)
	})
	kept = append(kept, merged...)
	return kv.SaveJSON(ctx, l.store, LogKey, kept)
}
