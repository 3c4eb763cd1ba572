package dialogue

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerAcquireCreates(t *testing.T) {
	m := NewManager(time.Minute)

	s := m.Acquire("u1")
	require.NotNil(t, s)
	assert.Equal(t, "u1", s.ID)
	assert.NotNil(t, s.Frame)
	m.Release(s)

	assert.Equal(t, 1, m.Len())

	// Acquiring again returns the same session.
	s2 := m.Acquire("u1")
	assert.Same(t, s, s2)
	m.Release(s2)
}

func TestManagerLazyExpiry(t *testing.T) {
	m := NewManager(10 * time.Millisecond)

	s := m.Acquire("u1")
	s.Conv = &Conversation{SessionID: "u1", Phase: PhaseCollecting}
	s.Frame.Update(Turn{Text: "hello", At: time.Now()})
	m.Release(s)

	time.Sleep(20 * time.Millisecond)

	s = m.Acquire("u1")
	defer m.Release(s)
	assert.Nil(t, s.Conv, "stale conversation is discarded")
	assert.Empty(t, s.Frame.Turns, "stale context is discarded")
}

func TestManagerSweep(t *testing.T) {
	m := NewManager(10 * time.Millisecond)

	m.Release(m.Acquire("a"))
	m.Release(m.Acquire("b"))
	assert.Equal(t, 2, m.Len())

	time.Sleep(20 * time.Millisecond)

	// A session held by a live turn is skipped.
	held := m.Acquire("c")
	removed := m.Sweep()
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Len())
	m.Release(held)
}

func TestManagerConcurrentSessions(t *testing.T) {
	m := NewManager(time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := string(rune('a' + n%4))
			for j := 0; j < 50; j++ {
				s := m.Acquire(id)
				s.Frame.Update(Turn{Text: "turn", At: time.Now()})
				m.Release(s)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 4, m.Len())
}
