package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// SyncCaller issues blocking requests from the worker side, one at a
// time.
type SyncCaller struct {
	mu       sync.Mutex
	requests *Port
	replies  *Port
	signal   *Signal
	ids      *atomic.Uint64
}

// NewSyncCaller posts requests to requests and reads replies from replies.
// ids is shared with every other caller posting to the same port.
func NewSyncCaller(requests, replies *Port, signal *Signal, ids *atomic.Uint64) *SyncCaller {
	return &SyncCaller{requests: requests, replies: replies, signal: signal, ids: ids}
}

// Call posts a request and blocks until the coordinator notifies the
// signal.
func (c *SyncCaller) Call(kind string, payload any) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.signal.Reset()
	id := c.ids.Add(1)
	if !c.requests.Post(Message{ID: id, Kind: kind, Payload: payload}) {
		return nil, fmt.Errorf("%s: %w", kind, ErrPortClosed)
	}
	c.signal.Wait()

	reply, ok := c.replies.TryReceive()
	if !ok || reply.ID != id {
		return nil, fmt.Errorf("%s request %d: %w", kind, id, ErrUnexpectedReply)
	}
	if err := replyError(kind, reply); err != nil {
		return nil, err
	}
	return reply.Payload, nil
}

// Respond runs handle for a synchronous request and posts exactly one
// reply, then notifies signal. Errors and panics of handle travel in the
// reply.
func Respond(replies *Port, signal *Signal, req Message, handle func(payload any) (any, error)) {
	var (
		result any
		err    error
	)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		reply := Message{ID: req.ID, Kind: req.Kind, Payload: result}
		if err != nil {
			reply.Err = err.Error()
		}
		replies.Post(reply)
		signal.Notify()
	}()
	result, err = handle(req.Payload)
}

// AsyncCaller issues requests that may be in flight together. Each
// pending request owns a continuation keyed by its correlation id.
type AsyncCaller struct {
	requests *Port
	ids      *atomic.Uint64
	pending  *xsync.MapOf[uint64, chan Message]
}

func NewAsyncCaller(requests *Port, ids *atomic.Uint64) *AsyncCaller {
	return &AsyncCaller{
		requests: requests,
		ids:      ids,
		pending:  xsync.NewMapOf[uint64, chan Message](),
	}
}

// Call posts a request and waits for the reply carrying its id.
func (c *AsyncCaller) Call(ctx context.Context, kind string, payload any) (any, error) {
	id, done := c.Start(kind, payload)
	if done == nil {
		return nil, fmt.Errorf("%s: %w", kind, ErrPortClosed)
	}
	select {
	case reply := <-done:
		if err := replyError(kind, reply); err != nil {
			return nil, err
		}
		return reply.Payload, nil
	case <-ctx.Done():
		c.pending.Delete(id)
		return nil, ctx.Err()
	}
}

// Start registers a continuation and posts the request. The returned
// channel receives the reply once. It is nil when the port is closed.
func (c *AsyncCaller) Start(kind string, payload any) (uint64, <-chan Message) {
	id := c.ids.Add(1)
	done := make(chan Message, 1)
	c.pending.Store(id, done)
	if !c.requests.Post(Message{ID: id, Kind: kind, Payload: payload}) {
		c.pending.Delete(id)
		return id, nil
	}
	return id, done
}

// Resolve delivers reply to the continuation registered for reply.ID.
// Replies with unknown ids are dropped.
func (c *AsyncCaller) Resolve(reply Message) bool {
	done, ok := c.pending.LoadAndDelete(reply.ID)
	if !ok {
		return false
	}
	done <- reply
	return true
}

// Pending returns the number of unresolved requests.
func (c *AsyncCaller) Pending() int { return c.pending.Size() }

// Listen resolves replies read from replies until ctx is done or the port
// is closed.
func (c *AsyncCaller) Listen(ctx context.Context, replies *Port) error {
	for {
		msg, err := replies.Receive(ctx)
		if err != nil {
			return err
		}
		c.Resolve(msg)
	}
}
