package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Windi-Fikriyansyah/handloom_be/internal/scheduler"
)

// Directory resolves chat participants from user profiles.
type Directory interface {
	Participant(ctx context.Context, id string) (Participant, error)
	ByRole(ctx context.Context, role string) ([]Participant, error)
}

// Notifier receives every message as it is added to a thread.
type Notifier interface {
	NotifyMessage(msg Message)
}

type NotifierFunc func(Message)

func (f NotifierFunc) NotifyMessage(msg Message) { f(msg) }

type Service struct {
	log      *MessageLog
	dir      Directory
	notifier Notifier
	deps     threadDeps

	mu      sync.Mutex
	threads map[string]*Thread // by user id; one open thread per user
}

type Option func(*Service)

// WithClock replaces time.Now for message timestamps.
func WithClock(clock func() time.Time) Option {
	return func(s *Service) { s.deps.clock = clock }
}

func NewService(log *MessageLog, dir Directory, sched scheduler.Scheduler, settings Settings, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		log:     log,
		dir:     dir,
		threads: make(map[string]*Thread),
	}
	s.deps = threadDeps{
		log:      log,
		sched:    sched,
		ids:      &IDSource{},
		clock:    time.Now,
		settings: settings,
		notify:   s.dispatch,
		readBy:   s.shareRead,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Conversations lists the user's conversation summaries, optionally
// filtered by counterpart name. Customers see every weaver; everyone else
// sees the people they have exchanged messages with.
func (s *Service) Conversations(ctx context.Context, user Participant, query string) ([]Summary, error) {
	log := s.log.Load(ctx)

	var counterparts []Participant
	if user.Role == "customer" {
		weavers, err := s.dir.ByRole(ctx, "weaver")
		if err != nil {
			return nil, err
		}
		counterparts = weavers
	} else {
		for _, id := range CounterpartIDs(log, user.ID) {
			p, err := s.dir.Participant(ctx, id)
			if errors.Is(err, ErrUnknownUser) {
				continue
			}
			if err != nil {
				return nil, err
			}
			counterparts = append(counterparts, p)
		}
	}

	return FilterByName(BuildSummaries(user.ID, counterparts, log), query), nil
}

func (s *Service) UnreadTotal(ctx context.Context, userID string) int {
	return UnreadFor(s.log.Load(ctx), userID)
}

// Open makes counterpartID the user's active conversation. Switching to a
// different counterpart closes the previous thread and cancels its pending
// replies; reopening the same counterpart keeps the thread.
func (s *Service) Open(ctx context.Context, user Participant, counterpartID string) (*Thread, error) {
	if counterpartID == "" {
		return nil, ErrNoCounterpart
	}
	if counterpartID == user.ID {
		return nil, ErrSelfConversation
	}

	s.mu.Lock()
	cur := s.threads[user.ID]
	s.mu.Unlock()
	if cur != nil && cur.counterpart.ID == counterpartID {
		cur.MarkRead(ctx)
		return cur, nil
	}

	counterpart, err := s.dir.Participant(ctx, counterpartID)
	if err != nil {
		return nil, err
	}

	t, err := openThread(ctx, s.deps, user, counterpart)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	prev := s.threads[user.ID]
	s.threads[user.ID] = t
	s.mu.Unlock()
	if prev != nil {
		prev.Close()
	}
	return t, nil
}

// Active returns the user's open thread when it is with counterpartID.
func (s *Service) Active(userID, counterpartID string) (*Thread, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := s.threads[userID]
	if t == nil || t.counterpart.ID != counterpartID {
		return nil, ErrThreadNotOpen
	}
	return t, nil
}

// shareRead copies read flags set by reader into the sender's open thread.
func (s *Service) shareRead(reader, sender string, ids []string) {
	if t := s.pairThread(sender, reader); t != nil {
		t.applyRead(ids)
	}
}

func (s *Service) Close(userID string) {
	s.mu.Lock()
	t := s.threads[userID]
	delete(s.threads, userID)
	s.mu.Unlock()
	if t != nil {
		t.Close()
	}
}

// Shutdown closes every open thread.
func (s *Service) Shutdown() {
	s.mu.Lock()
	threads := s.threads
	s.threads = make(map[string]*Thread)
	s.mu.Unlock()
	for _, t := range threads {
		t.Close()
	}
}

func (s *Service) Send(ctx context.Context, userID, counterpartID, content string) (Message, error) {
	t, err := s.Active(userID, counterpartID)
	if err != nil {
		return Message{}, err
	}
	return t.Send(ctx, content)
}

func (s *Service) ShareLink(ctx context.Context, userID, counterpartID, link string) (Message, error) {
	t, err := s.Active(userID, counterpartID)
	if err != nil {
		return Message{}, err
	}
	return t.ShareLink(ctx, link)
}

func (s *Service) SendAttachment(userID, counterpartID, filename string, data []byte) error {
	t, err := s.Active(userID, counterpartID)
	if err != nil {
		return err
	}
	return t.SendAttachment(filename, data)
}

// pairThread returns userID's open thread when it is with counterpartID.
func (s *Service) pairThread(userID, counterpartID string) *Thread {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t := s.threads[userID]; t != nil && t.counterpart.ID == counterpartID {
		return t
	}
	return nil
}

// dispatch mirrors msg into every open thread of its pair and hands it to
// the notifier. Auto-replies are written by the sender's counterpart
// thread, so both sides are checked.
func (s *Service) dispatch(msg Message) {
	for _, t := range []*Thread{
		s.pairThread(msg.SenderID, msg.ReceiverID),
		s.pairThread(msg.ReceiverID, msg.SenderID),
	} {
		if t != nil {
			t.receive(msg)
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyMessage(msg)
	}
}
