package bridge

import (
	"errors"
	"fmt"
)

// ErrUnexpectedReply means a synchronous reply was missing or carried the
// wrong correlation id.
var ErrUnexpectedReply = errors.New("bridge: unexpected reply")

// RemoteError is a failure reported by the other side of the bridge.
type RemoteError struct {
	Kind string
	Msg  string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func replyError(kind string, msg Message) error {
	if msg.Err == "" {
		return nil
	}
	return &RemoteError{Kind: kind, Msg: msg.Err}
}
