package chat

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/scheduler"
)

type Settings struct {
	ReplyDelay        time.Duration
	UploadDelay       time.Duration
	MaxAttachmentSize int64
}

var allowedAttachments = map[string]bool{
	"image/jpeg":      true,
	"image/png":       true,
	"image/gif":       true,
	"image/webp":      true,
	"application/pdf": true,
}

// threadDeps are shared by every thread of a Service.
type threadDeps struct {
	log      *MessageLog
	sched    scheduler.Scheduler
	ids      *IDSource
	clock    func() time.Time
	settings Settings
	notify   func(Message)
	readBy   func(reader, sender string, ids []string)
	logger   *zap.Logger
}

// Thread is the open conversation between one user and one counterpart.
// Replies and uploads are scheduled on the thread's task group and dropped
// once the thread is closed.
type Thread struct {
	deps        threadDeps
	user        Participant
	counterpart Participant
	tasks       *scheduler.Group

	mu       sync.Mutex
	messages []Message
	closed   bool

	persistMu sync.Mutex
}

func openThread(ctx context.Context, deps threadDeps, user, counterpart Participant) (*Thread, error) {
	if counterpart.ID == "" {
		return nil, ErrNoCounterpart
	}
	if counterpart.ID == user.ID {
		return nil, ErrSelfConversation
	}

	t := &Thread{
		deps:        deps,
		user:        user,
		counterpart: counterpart,
		tasks:       scheduler.NewGroup(deps.sched),
		messages:    ConversationBetween(deps.log.Load(ctx), user.ID, counterpart.ID),
	}

	if len(t.messages) == 0 {
		t.messages = append(t.messages, t.newMessage(counterpart.ID, user.ID, Greeting(counterpart.Name)))
	}
	t.shareRead(t.markRead())
	t.persist(ctx)
	return t, nil
}

func (t *Thread) User() Participant        { return t.user }
func (t *Thread) Counterpart() Participant { return t.counterpart }

// Messages returns a copy, oldest first.
func (t *Thread) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// MarkRead flags the counterpart's messages as read and persists when that
// changed anything.
func (t *Thread) MarkRead(ctx context.Context) int {
	ids := t.markRead()
	if len(ids) > 0 {
		t.shareRead(ids)
		t.persist(ctx)
	}
	return len(ids)
}

// markRead returns the ids it flagged.
func (t *Thread) markRead() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for i := range t.messages {
		m := &t.messages[i]
		if m.SenderID == t.counterpart.ID && !m.IsRead {
			m.IsRead = true
			ids = append(ids, m.ID)
		}
	}
	return ids
}

func (t *Thread) shareRead(ids []string) {
	if len(ids) > 0 && t.deps.readBy != nil {
		t.deps.readBy(t.user.ID, t.counterpart.ID, ids)
	}
}

// applyRead flags ids as read after the counterpart read them elsewhere.
func (t *Thread) applyRead(ids []string) {
	read := make(map[string]bool, len(ids))
	for _, id := range ids {
		read[id] = true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.messages {
		if read[t.messages[i].ID] {
			t.messages[i].IsRead = true
		}
	}
}

// Send appends a text message from the user and schedules the
// counterpart's reply.
func (t *Thread) Send(ctx context.Context, content string) (Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return Message{}, ErrEmptyMessage
	}
	msg, err := t.appendFromUser(ctx, content, nil, false)
	if err != nil {
		return Message{}, err
	}
	t.scheduleReply(ReplyFor(content, KindText))
	return msg, nil
}

// ShareLink sends raw as a link message once it parses as an absolute
// http(s) URL.
func (t *Thread) ShareLink(ctx context.Context, raw string) (Message, error) {
	link, err := ValidateLink(raw)
	if err != nil {
		return Message{}, err
	}
	msg, err := t.appendFromUser(ctx, link, nil, true)
	if err != nil {
		return Message{}, err
	}
	t.scheduleReply(ReplyFor(link, KindLink))
	return msg, nil
}

// SendAttachment validates the file now and delivers it as a data URL
// message after the simulated upload delay.
func (t *Thread) SendAttachment(filename string, data []byte) error {
	if int64(len(data)) > t.deps.settings.MaxAttachmentSize {
		return ErrAttachmentTooLarge
	}
	if len(data) == 0 {
		return ErrEmptyMessage
	}
	mime := http.DetectContentType(data)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !allowedAttachments[mime] {
		return ErrAttachmentType
	}

	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrThreadClosed
	}

	dataURL := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
	name := strings.TrimSpace(filename)
	if name == "" {
		name = "attachment"
	}

	t.tasks.Schedule(t.deps.settings.UploadDelay, func() {
		ctx := context.Background()
		if _, err := t.appendFromUser(ctx, name, []string{dataURL}, false); err != nil {
			return
		}
		t.scheduleReply(ReplyFor(name, KindAttachment))
	})
	return nil
}

// Close cancels pending replies and uploads. Later sends fail.
func (t *Thread) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	if n := t.tasks.CancelAll(); n > 0 {
		t.deps.logger.Debug("cancelled pending chat tasks",
			zap.String("user", t.user.ID),
			zap.String("counterpart", t.counterpart.ID),
			zap.Int("tasks", n))
	}
}

// Pending reports scheduled replies and uploads that have not run yet.
func (t *Thread) Pending() int { return t.tasks.Pending() }

func (t *Thread) appendFromUser(ctx context.Context, content string, attachments []string, isLink bool) (Message, error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return Message{}, ErrThreadClosed
	}
	msg := t.newMessage(t.user.ID, t.counterpart.ID, content)
	msg.Attachments = attachments
	msg.IsLink = isLink
	t.messages = append(t.messages, msg)
	t.mu.Unlock()

	t.persist(ctx)
	t.deps.notify(msg)
	return msg, nil
}

func (t *Thread) scheduleReply(reply string) {
	t.tasks.Schedule(t.deps.settings.ReplyDelay, func() {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		msg := t.newMessage(t.counterpart.ID, t.user.ID, reply)
		t.messages = append(t.messages, msg)
		t.mu.Unlock()

		t.persist(context.Background())
		t.deps.notify(msg)
	})
}

// newMessage must be called with t.mu held or before t is shared.
func (t *Thread) newMessage(from, to, content string) Message {
	at := t.deps.clock()
	return Message{
		ID:         t.deps.ids.Next(at),
		SenderID:   from,
		ReceiverID: to,
		Content:    content,
		CreatedAt:  at,
	}
}

// persist writes the thread's current messages over the pair's entries in
// the log. Failures are logged; the in-memory thread stays authoritative.
func (t *Thread) persist(ctx context.Context) {
	t.persistMu.Lock()
	defer t.persistMu.Unlock()

	snapshot := t.Messages()
	if err := t.deps.log.MergePair(ctx, t.user.ID, t.counterpart.ID, snapshot); err != nil {
		t.deps.logger.Warn("persist conversation",
			zap.String("user", t.user.ID),
			zap.String("counterpart", t.counterpart.ID),
			zap.Error(err))
	}
}

func ValidateLink(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.ParseRequestURI(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "", ErrInvalidLink
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", ErrInvalidLink
	}
	return u.String(), nil
}

// receive adds a message written through the other participant's thread so
// both in-memory copies of the pair stay in step.
func (t *Thread) receive(msg Message) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	for i := range t.messages {
		if t.messages[i].ID == msg.ID {
			t.messages[i].IsRead = t.messages[i].IsRead || msg.IsRead
			return false
		}
	}
	t.messages = append(t.messages, msg)
	return true
}
