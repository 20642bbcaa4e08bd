package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestManual_RunsDueTasksInOrder(t *testing.T) {
	m := NewManual()
	var order []string

	m.Schedule(2*time.Second, func() { order = append(order, "b") })
	m.Schedule(time.Second, func() { order = append(order, "a") })
	m.Schedule(5*time.Second, func() { order = append(order, "c") })

	m.Advance(1500 * time.Millisecond)
	assert.Equal(t, []string{"a"}, order)

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, 1, m.Pending())
}

func TestManual_Cancel(t *testing.T) {
	m := NewManual()
	fired := false
	cancel := m.Schedule(time.Second, func() { fired = true })

	assert.True(t, cancel())
	assert.False(t, cancel())
	m.Advance(2 * time.Second)
	assert.False(t, fired)
}

func TestGroup_CancelAllStopsPendingAndRejectsNew(t *testing.T) {
	m := NewManual()
	g := NewGroup(m)
	var fired int32

	g.Schedule(time.Second, func() { atomic.AddInt32(&fired, 1) })
	g.Schedule(2*time.Second, func() { atomic.AddInt32(&fired, 1) })
	assert.Equal(t, 2, g.Pending())

	assert.Equal(t, 2, g.CancelAll())
	g.Schedule(time.Second, func() { atomic.AddInt32(&fired, 1) })
	m.Advance(5 * time.Second)

	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
	assert.Equal(t, 0, g.Pending())
}

func TestGroup_CancelSingle(t *testing.T) {
	m := NewManual()
	g := NewGroup(m)
	fired := false

	cancel := g.Schedule(time.Second, func() { fired = true })
	assert.True(t, cancel())
	m.Advance(time.Second)

	assert.False(t, fired)
	assert.Equal(t, 0, g.Pending())
}

func TestTimers_NoLeakAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := NewGroup(Timers{})
	done := make(chan struct{})
	g.Schedule(10*time.Millisecond, func() { close(done) })
	g.Schedule(time.Hour, func() { t.Error("should have been cancelled") })

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}
	assert.Equal(t, 1, g.CancelAll())
}
