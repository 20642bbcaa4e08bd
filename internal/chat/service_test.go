package chat

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/kv"
	"github.com/Windi-Fikriyansyah/handloom_be/internal/scheduler"
)

type fakeDirectory struct {
	users map[string]Participant
}

func (d fakeDirectory) Participant(_ context.Context, id string) (Participant, error) {
	p, ok := d.users[id]
	if !ok {
		return Participant{}, ErrUnknownUser
	}
	return p, nil
}

func (d fakeDirectory) ByRole(_ context.Context, role string) ([]Participant, error) {
	var out []Participant
	for _, id := range []string{"w1", "w2", "w3"} {
		if p, ok := d.users[id]; ok && p.Role == role {
			out = append(out, p)
		}
	}
	return out, nil
}

type fixture struct {
	svc    *Service
	sched  *scheduler.Manual
	store  *kv.MemoryStore
	mu     sync.Mutex
	pushed []Message
}

var (
	customer = Participant{ID: "c1", Name: "Asha", Role: "customer"}
	meera    = Participant{ID: "w1", Name: "Meera", Role: "weaver"}
	ravi     = Participant{ID: "w2", Name: "Ravi", Role: "weaver"}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{sched: scheduler.NewManual(), store: kv.NewMemoryStore()}

	tick := base
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		tick = tick.Add(time.Second)
		return tick
	}

	dir := fakeDirectory{users: map[string]Participant{"c1": customer, "w1": meera, "w2": ravi}}
	settings := Settings{ReplyDelay: 2 * time.Second, UploadDelay: 1500 * time.Millisecond, MaxAttachmentSize: 1 << 10}
	f.svc = NewService(NewMessageLog(f.store, zap.NewNop()), dir, f.sched, settings, zap.NewNop(), WithClock(clock))
	f.svc.SetNotifier(NotifierFunc(func(m Message) {
		f.mu.Lock()
		f.pushed = append(f.pushed, m)
		f.mu.Unlock()
	}))
	return f
}

func (f *fixture) stored(t *testing.T) []Message {
	t.Helper()
	return f.svc.log.Load(context.Background())
}

func TestOpen_GreetsOnFirstContact(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	th, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)

	msgs := th.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "w1", msgs[0].SenderID)
	assert.Equal(t, Greeting("Meera"), msgs[0].Content)
	assert.Len(t, f.stored(t), 1)

	f.svc.Close("c1")
	th, err = f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)
	assert.Len(t, th.Messages(), 1, "greeting only once")
}

func TestOpen_RejectsMissingOrSelfCounterpart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, customer, "")
	assert.ErrorIs(t, err, ErrNoCounterpart)
	_, err = f.svc.Open(ctx, customer, "c1")
	assert.ErrorIs(t, err, ErrSelfConversation)
	_, err = f.svc.Open(ctx, customer, "nobody")
	assert.ErrorIs(t, err, ErrUnknownUser)
}

func TestSend_KeywordReplyAfterDelay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)

	sent, err := f.svc.Send(ctx, "c1", "w1", "Do you have custom orders?")
	require.NoError(t, err)
	assert.Equal(t, "c1", sent.SenderID)
	assert.Equal(t, "w1", sent.ReceiverID)
	assert.False(t, sent.IsRead)

	th, _ := f.svc.Active("c1", "w1")
	assert.Len(t, th.Messages(), 2)

	f.sched.Advance(1999 * time.Millisecond)
	assert.Len(t, th.Messages(), 2, "reply must wait for the full delay")

	f.sched.Advance(time.Millisecond)
	msgs := th.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "w1", msgs[2].SenderID)
	assert.Contains(t, msgs[2].Content, "custom")
	assert.Len(t, f.stored(t), 3)

	_, err = f.svc.Send(ctx, "c1", "w1", "hello")
	require.NoError(t, err)
	f.sched.Advance(2 * time.Second)
	msgs = th.Messages()
	assert.Equal(t, fallbackReply, msgs[len(msgs)-1].Content)
}

func TestSend_RejectsEmptyAndUnopened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, "c1", "w1", "hi")
	assert.ErrorIs(t, err, ErrThreadNotOpen)

	_, err = f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, "c1", "w1", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, 0, f.sched.Pending())
}

func TestSwitchCounterpart_CancelsStaleReply(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, "c1", "w1", "Do you have custom orders?")
	require.NoError(t, err)

	second, err := f.svc.Open(ctx, customer, "w2")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Pending())

	f.sched.Advance(5 * time.Second)

	assert.Len(t, second.Messages(), 1, "only Ravi's greeting")
	for _, m := range f.stored(t) {
		assert.NotContains(t, m.Content, "custom orders!", "stale reply must not be written anywhere")
	}

	_, err = first.Send(ctx, "late")
	assert.ErrorIs(t, err, ErrThreadClosed)
}

func TestShareLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)

	_, err = f.svc.ShareLink(ctx, "c1", "w1", "not-a-url")
	assert.ErrorIs(t, err, ErrInvalidLink)
	assert.Len(t, th.Messages(), 1)

	m, err := f.svc.ShareLink(ctx, "c1", "w1", "https://example.com")
	require.NoError(t, err)
	assert.True(t, m.IsLink)
	assert.Equal(t, "https://example.com", m.Content)
	assert.Len(t, th.Messages(), 2)

	f.sched.Advance(2 * time.Second)
	msgs := th.Messages()
	assert.Equal(t, sharedReply, msgs[len(msgs)-1].Content)
}

func TestValidateLink(t *testing.T) {
	for _, bad := range []string{"", "not-a-url", "/relative/path", "ftp://files.example.com", "https://"} {
		_, err := ValidateLink(bad)
		assert.ErrorIs(t, err, ErrInvalidLink, bad)
	}
	got, err := ValidateLink("  http://weaves.in/saree?id=1 ")
	require.NoError(t, err)
	assert.Equal(t, "http://weaves.in/saree?id=1", got)
}

func TestSendAttachment_DelayedDataURL(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	th, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)

	png := []byte("\x89PNG\r\n\x1a\n0000")
	require.NoError(t, f.svc.SendAttachment("c1", "w1", "motif.png", png))
	assert.Len(t, th.Messages(), 1, "upload still in flight")

	f.sched.Advance(1500 * time.Millisecond)
	msgs := th.Messages()
	require.Len(t, msgs, 2)
	require.Len(t, msgs[1].Attachments, 1)
	assert.True(t, strings.HasPrefix(msgs[1].Attachments[0], "data:image/png;base64,"))

	f.sched.Advance(2 * time.Second)
	msgs = th.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, sharedReply, msgs[2].Content)

	assert.ErrorIs(t, f.svc.SendAttachment("c1", "w1", "big.png", make([]byte, 2<<10)), ErrAttachmentTooLarge)
	assert.ErrorIs(t, f.svc.SendAttachment("c1", "w1", "notes.txt", []byte("plain text")), ErrAttachmentType)
}

func TestCloseCancelsPendingUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)

	require.NoError(t, f.svc.SendAttachment("c1", "w1", "motif.png", []byte("\x89PNG\r\n\x1a\n0000")))
	f.svc.Close("c1")
	f.sched.Advance(10 * time.Second)

	assert.Len(t, f.stored(t), 1)
}

func TestPersistence_MergesPairIntoGlobalLog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := []Message{msg("x1", "c9", "w1", 0, false), msg("x2", "w2", "c9", 1, true)}
	require.NoError(t, kv.SaveJSON(ctx, f.store, LogKey, other))

	_, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, "c1", "w1", "hello")
	require.NoError(t, err)

	stored := f.stored(t)
	require.Len(t, stored, 4)
	assert.Equal(t, "x1", stored[0].ID)
	assert.Equal(t, "x2", stored[1].ID)
	assert.Len(t, ConversationBetween(stored, "c1", "w1"), 2)
}

func TestMalformedLogReadsAsEmpty(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.Set(ctx, LogKey, "[{broken"))

	sums, err := f.svc.Conversations(ctx, customer, "")
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Nil(t, sums[0].LastMessage)
}

func TestConversations_CustomerAndWeaverViews(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, customer, "w2")
	require.NoError(t, err)
	_, err = f.svc.Send(ctx, "c1", "w2", "price please")
	require.NoError(t, err)
	f.sched.Advance(2 * time.Second)

	sums, err := f.svc.Conversations(ctx, customer, "")
	require.NoError(t, err)
	require.Len(t, sums, 2)
	assert.Equal(t, "w2", sums[0].Counterpart.ID)
	assert.Equal(t, 1, sums[0].UnreadCount, "reply stays unread until the thread is read again")
	assert.Nil(t, sums[1].LastMessage)
	f.svc.Close("c1")

	weaverView, err := f.svc.Conversations(ctx, ravi, "")
	require.NoError(t, err)
	require.Len(t, weaverView, 1)
	assert.Equal(t, "c1", weaverView[0].Counterpart.ID)
	assert.Equal(t, 1, weaverView[0].UnreadCount)

	assert.Equal(t, 1, f.svc.UnreadTotal(ctx, "w2"))
	assert.Equal(t, 1, f.svc.UnreadTotal(ctx, "c1"))
}

func TestNotifierAndMirror(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cust, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)
	weav, err := f.svc.Open(ctx, meera, "c1")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, "w1", "c1", "Your saree is ready")
	require.NoError(t, err)

	assert.Len(t, weav.Messages(), 2)
	assert.Len(t, cust.Messages(), 2, "mirrored into the customer's open thread")

	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.pushed)
	assert.Equal(t, "Your saree is ready", f.pushed[len(f.pushed)-1].Content)
}

func TestBothSidesOpen_AutoReplySurvivesCounterpartWrite(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)
	weav, err := f.svc.Open(ctx, meera, "c1")
	require.NoError(t, err)

	_, err = f.svc.Send(ctx, "c1", "w1", "hello")
	require.NoError(t, err)
	f.sched.Advance(2 * time.Second)

	before := ConversationBetween(f.stored(t), "c1", "w1")
	require.Len(t, before, 3)
	reply := before[2]
	assert.Equal(t, "w1", reply.SenderID)
	assert.Len(t, weav.Messages(), 3, "auto-reply reaches the weaver's open thread")

	_, err = f.svc.Send(ctx, "w1", "c1", "It ships tomorrow")
	require.NoError(t, err)

	after := ConversationBetween(f.stored(t), "c1", "w1")
	require.Len(t, after, 4)
	ids := make([]string, 0, len(after))
	for _, m := range after {
		ids = append(ids, m.ID)
	}
	assert.Contains(t, ids, reply.ID)
}

func TestBothSidesOpen_ReadStateSticks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cust, err := f.svc.Open(ctx, customer, "w1")
	require.NoError(t, err)
	first, err := f.svc.Send(ctx, "c1", "w1", "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, f.svc.UnreadTotal(ctx, "w1"))

	_, err = f.svc.Open(ctx, meera, "c1")
	require.NoError(t, err)
	assert.Equal(t, 0, f.svc.UnreadTotal(ctx, "w1"))

	for _, m := range cust.Messages() {
		if m.ID == first.ID {
			assert.True(t, m.IsRead, "read flag reaches the customer's open thread")
		}
	}

	_, err = f.svc.Send(ctx, "c1", "w1", "one more question")
	require.NoError(t, err)
	assert.Equal(t, 1, f.svc.UnreadTotal(ctx, "w1"))
}

func TestMergePair_KeepsStoredMessagesAndReadFlags(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	ml := NewMessageLog(store, zap.NewNop())

	stored := []Message{
		msg("a", "w1", "c1", 0, true),
		msg("b", "c1", "w1", 1, false),
		msg("x", "c9", "w2", 2, false),
	}
	require.NoError(t, kv.SaveJSON(ctx, store, LogKey, stored))

	// stale copy: lacks b, still thinks a is unread
	require.NoError(t, ml.MergePair(ctx, "c1", "w1", []Message{
		msg("a", "w1", "c1", 0, false),
		msg("c", "c1", "w1", 3, false),
	}))

	all := ml.Load(ctx)
	require.Len(t, all, 4)
	assert.Equal(t, "x", all[0].ID)
	pair := ConversationBetween(all, "c1", "w1")
	require.Len(t, pair, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{pair[0].ID, pair[1].ID, pair[2].ID})
	assert.True(t, pair[0].IsRead)
}
