package chat

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func msg(id, from, to string, minute int, read bool) Message {
	return Message{ID: id, SenderID: from, ReceiverID: to, Content: id, IsRead: read, CreatedAt: base.Add(time.Duration(minute) * time.Minute)}
}

func sampleLog() []Message {
	return []Message{
		msg("1", "u", "w1", 1, true),
		msg("2", "w1", "u", 2, false),
		msg("3", "w2", "u", 5, false),
		msg("4", "u", "w2", 6, false),
		msg("5", "w1", "other", 7, false),
		msg("6", "w1", "u", 3, false),
		msg("7", "w1", "u", 4, true),
	}
}

func ids(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.ID
	}
	return out
}

func TestConversationBetween_ExactPairSubset(t *testing.T) {
	conv := ConversationBetween(sampleLog(), "u", "w1")
	assert.Equal(t, []string{"1", "2", "6", "7"}, ids(conv))
}

func TestConversationBetween_IndependentOfStorageOrder(t *testing.T) {
	log := sampleLog()
	log = append(log, msg("8", "u", "w1", 4, false)) // same timestamp as "7"
	want := ids(ConversationBetween(log, "u", "w1"))

	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]Message(nil), log...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, ids(ConversationBetween(shuffled, "w1", "u")))
	}
}

func TestBuildSummaries_OrderAndUnread(t *testing.T) {
	counterparts := []Participant{
		{ID: "w3", Name: "Zoya Handlooms"},
		{ID: "w1", Name: "Meera"},
		{ID: "w4", Name: "Anil"},
		{ID: "w2", Name: "Ravi"},
		{ID: "u", Name: "Myself"},
	}

	got := BuildSummaries("u", counterparts, sampleLog())
	require.Len(t, got, 4)

	assert.Equal(t, "w2", got[0].Counterpart.ID)
	assert.Equal(t, "4", got[0].LastMessage.ID)
	assert.Equal(t, 1, got[0].UnreadCount, "own unread message must not count")

	assert.Equal(t, "w1", got[1].Counterpart.ID)
	assert.Equal(t, "7", got[1].LastMessage.ID)
	assert.Equal(t, 2, got[1].UnreadCount)

	// no-message conversations keep their relative order at the end
	assert.Equal(t, "w3", got[2].Counterpart.ID)
	assert.Nil(t, got[2].LastMessage)
	assert.Equal(t, 0, got[2].UnreadCount)
	assert.Equal(t, "w4", got[3].Counterpart.ID)
}

func TestBuildSummaries_SendingDoesNotChangeUnread(t *testing.T) {
	cps := []Participant{{ID: "w1", Name: "Meera"}}
	log := sampleLog()
	before := BuildSummaries("u", cps, log)[0].UnreadCount

	log = append(log, msg("9", "u", "w1", 30, false))
	after := BuildSummaries("u", cps, log)[0]

	assert.Equal(t, before, after.UnreadCount)
	assert.Equal(t, "9", after.LastMessage.ID)
}

func TestFilterByName_CaseInsensitiveKeepsOrder(t *testing.T) {
	sums := BuildSummaries("u", []Participant{
		{ID: "w1", Name: "Meera Weaves"},
		{ID: "w2", Name: "Ravi"},
		{ID: "w3", Name: "Sameer"},
	}, sampleLog())

	got := FilterByName(sums, "  mEe ")
	require.Len(t, got, 2)
	assert.Equal(t, "w1", got[0].Counterpart.ID)
	assert.Equal(t, "w3", got[1].Counterpart.ID)

	assert.Len(t, FilterByName(sums, ""), 3)
}

func TestUnreadForAndCounterpartIDs(t *testing.T) {
	log := sampleLog()
	assert.Equal(t, 3, UnreadFor(log, "u"))
	assert.Equal(t, []string{"other", "u"}, CounterpartIDs(log, "w1"))
	assert.Equal(t, []string{"w2", "w1"}, CounterpartIDs(log, "u"))
}

func TestIDSource_StrictlyIncreasing(t *testing.T) {
	var s IDSource
	a := s.Next(base)
	b := s.Next(base)
	c := s.Next(base.Add(-time.Hour))

	assert.NotEqual(t, a, b)
	assert.True(t, earlier(Message{ID: a, CreatedAt: base}, Message{ID: b, CreatedAt: base}))
	assert.True(t, earlier(Message{ID: b, CreatedAt: base}, Message{ID: c, CreatedAt: base}))
}

func TestReplyFor(t *testing.T) {
	assert.Contains(t, ReplyFor("Do you have custom orders?", KindText), "custom")
	assert.Equal(t, fallbackReply, ReplyFor("hello", KindText))
	assert.Contains(t, ReplyFor("How do I ORDER this?", KindText), "ordering")
	assert.Equal(t, sharedReply, ReplyFor("custom", KindLink))
	assert.Equal(t, sharedReply, ReplyFor("photo.png", KindAttachment))
	assert.Contains(t, Greeting("Meera"), "Meera")
}
