package ioserial

import (
	"sync"
	"testing"
	"time"

	"gcfflasher/internal/engine"
	"gcfflasher/internal/logx"
)

// countingSink records posted events for timer tests.
type countingSink struct {
	mu     sync.Mutex
	events []engine.Kind
}

func (s *countingSink) Received(data []byte) {}
func (s *countingSink) PostEvent(kind engine.Kind) {
	s.mu.Lock()
	s.events = append(s.events, kind)
	s.mu.Unlock()
}

func (s *countingSink) timeouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, k := range s.events {
		if k == engine.Timeout {
			n++
		}
	}
	return n
}

func TestClearTimeoutSuppressesPendingTimer(t *testing.T) {
	sink := &countingSink{}
	tr := New(38400, logx.New(false))
	tr.Bind(sink)

	tr.SetTimeout(10 * time.Millisecond)
	tr.ClearTimeout()

	time.Sleep(100 * time.Millisecond)
	if n := sink.timeouts(); n != 0 {
		t.Fatalf("got %d Timeout events after ClearTimeout, want 0", n)
	}
}

func TestSetTimeoutSupersedesPriorTimer(t *testing.T) {
	sink := &countingSink{}
	tr := New(38400, logx.New(false))
	tr.Bind(sink)

	tr.SetTimeout(10 * time.Millisecond)
	tr.SetTimeout(30 * time.Millisecond)

	time.Sleep(200 * time.Millisecond)
	if n := sink.timeouts(); n != 1 {
		t.Fatalf("got %d Timeout events after re-arming, want 1", n)
	}
}
