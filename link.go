package namedmsg

import (
	"context"
	"sync/atomic"
)

var _ Link = (*localLink)(nil)

// localLink reaches an endpoint living in the same process. The message
// is still copied since `Message` is a value.
type localLink struct {
	ep        *endpoint
	principal string
	closed    atomic.Bool
}

func newLocalLink(ep *endpoint, principal string) *localLink {
	return &localLink{ep: ep, principal: principal}
}

func (l *localLink) Send(ctx context.Context, msg Message) (Status, error) {
	if l.closed.Load() {
		return 0, ErrLinkClosed
	}
	return l.ep.exchange(ctx, l.principal, msg)
}

func (l *localLink) Pulse(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLinkClosed
	}
	return l.ep.pulse(ctx, l.principal)
}

func (l *localLink) Close() error {
	l.closed.Store(true)
	return nil
}
