package bridge

import "sync"

// Signal is a resettable one-shot notification shared by a waiting worker
// and the coordinator.
type Signal struct {
	mu       sync.Mutex
	cond     *sync.Cond
	notified bool
}

func NewSignal() *Signal {
	s := &Signal{}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Reset puts the signal back to pending.
func (s *Signal) Reset() {
	s.mu.Lock()
	s.notified = false
	s.mu.Unlock()
}

// Notify releases every current and future waiter until the next Reset.
func (s *Signal) Notify() {
	s.mu.Lock()
	s.notified = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Wait blocks until Notify. It has no timeout.
func (s *Signal) Wait() {
	s.mu.Lock()
	for !s.notified {
		s.cond.Wait()
	}
	s.mu.Unlock()
}
