// Package scheduler runs delayed callbacks that can be cancelled, either one
// by one or all together when the view that scheduled them goes away.
package scheduler

import (
	"sort"
	"sync"
	"time"
)

// Cancel stops a pending task. It reports whether the task was stopped
// before it ran.
type Cancel func() bool

type Scheduler interface {
	Schedule(delay time.Duration, fn func()) Cancel
}

// Timers schedules on the runtime timer heap.
type Timers struct{}

func (Timers) Schedule(delay time.Duration, fn func()) Cancel {
	t := time.AfterFunc(delay, fn)
	return t.Stop
}

// Group binds tasks to one lifetime. After CancelAll nothing new is
// scheduled.
type Group struct {
	s Scheduler

	mu     sync.Mutex
	next   int
	tasks  map[int]Cancel
	closed bool
}

func NewGroup(s Scheduler) *Group {
	return &Group{s: s, tasks: make(map[int]Cancel)}
}

// Schedule returns a no-op Cancel when the group is already closed.
func (g *Group) Schedule(delay time.Duration, fn func()) Cancel {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return func() bool { return false }
	}

	id := g.next
	g.next++
	cancel := g.s.Schedule(delay, func() {
		g.mu.Lock()
		_, live := g.tasks[id]
		delete(g.tasks, id)
		g.mu.Unlock()
		if live {
			fn()
		}
	})
	g.tasks[id] = cancel

	return func() bool {
		g.mu.Lock()
		_, live := g.tasks[id]
		delete(g.tasks, id)
		g.mu.Unlock()
		if !live {
			return false
		}
		cancel()
		return true
	}
}

// Pending counts tasks that have neither fired nor been cancelled.
func (g *Group) Pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.tasks)
}

func (g *Group) CancelAll() int {
	g.mu.Lock()
	tasks := g.tasks
	g.tasks = make(map[int]Cancel)
	g.closed = true
	g.mu.Unlock()

	for _, cancel := range tasks {
		cancel()
	}
	return len(tasks)
}

// Manual is a scheduler driven by Advance, for tests.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	seq   int
	tasks []*manualTask
}

type manualTask struct {
	at   time.Duration
	seq  int
	fn   func()
	done bool
}

func NewManual() *Manual { return &Manual{} }

func (m *Manual) Schedule(delay time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &manualTask{at: m.now + delay, seq: m.seq, fn: fn}
	m.seq++
	m.tasks = append(m.tasks, t)
	return func() bool {
		m.mu.Lock()
		defer m.mu.Unlock()
		if t.done {
			return false
		}
		t.done = true
		return true
	}
}

// Advance moves the clock forward and runs due tasks in order, on the
// caller's goroutine.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now
	var due []*manualTask
	rest := m.tasks[:0]
	for _, t := range m.tasks {
		switch {
		case t.done:
		case t.at <= now:
			t.done = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	m.tasks = rest
	m.mu.Unlock()

	sort.Slice(due, func(i, j int) bool {
		if due[i].at != due[j].at {
			return due[i].at < due[j].at
		}
		return due[i].seq < due[j].seq
	})
	for _, t := range due {
		t.fn()
	}
}

func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if !t.done {
			n++
		}
	}
	return n
}
