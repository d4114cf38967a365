package bridge

import (
	"context"
	"errors"
	"sync"
)

// ErrPortClosed is returned by Receive once a port is closed and drained.
var ErrPortClosed = errors.New("bridge: port closed")

// Message is one unit on a port. ID correlates requests and replies; Err
// carries a failure message of the replying side.
type Message struct {
	ID      uint64
	Kind    string
	Payload any
	Err     string
}

// Port is an unbounded FIFO of messages. Post never blocks.
type Port struct {
	mu     sync.Mutex
	buf    []Message
	head   int
	closed bool
	ready  chan struct{}
}

func NewPort() *Port {
	return &Port{ready: make(chan struct{}, 1)}
}

// Post enqueues msg. Posting to a closed port drops the message and
// reports false.
func (p *Port) Post(msg Message) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	p.buf = append(p.buf, msg)
	p.mu.Unlock()
	p.wake()
	return true
}

func (p *Port) wake() {
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// TryReceive dequeues a message without blocking.
func (p *Port) TryReceive() (Message, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.popLocked()
}

func (p *Port) popLocked() (Message, bool) {
	if p.head >= len(p.buf) {
		return Message{}, false
	}
	msg := p.buf[p.head]
	p.buf[p.head] = Message{}
	p.head++
	if p.head == len(p.buf) {
		p.buf, p.head = p.buf[:0], 0
	}
	return msg, true
}

// Receive blocks until a message is available, the port is closed and
// drained, or ctx is done.
func (p *Port) Receive(ctx context.Context) (Message, error) {
	for {
		p.mu.Lock()
		msg, ok := p.popLocked()
		closed := p.closed
		more := p.head < len(p.buf)
		p.mu.Unlock()
		if ok {
			if more || closed {
				p.wake()
			}
			return msg, nil
		}
		if closed {
			p.wake()
			return Message{}, ErrPortClosed
		}
		select {
		case <-p.ready:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Close stops accepting messages. Queued messages can still be received.
func (p *Port) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.wake()
}

// Len returns the number of queued messages.
func (p *Port) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.buf) - p.head
}
