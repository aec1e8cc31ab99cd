package namedmsg

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/raskyld/namedmsg/pkg/wire"
)

var _ Link = (*remoteLink)(nil)

// remoteLink is a `Link` carried by a QUIC stream.
//
// NB(raskyld): go-quic streams are safe for one reader and one writer, a
// request and its reply are a single exchange so we serialise them.
// Any I/O failure leaves the stream in an unknown framing state, the link
// is then aborted and all later calls fail with `ErrLinkClosed`.
type remoteLink struct {
	stream quic.Stream
	reader *bufio.Reader

	lk        sync.Mutex
	closed    atomic.Bool
	closeOnce sync.Once
}

func newRemoteLink(stream quic.Stream, reader *bufio.Reader) *remoteLink {
	return &remoteLink{stream: stream, reader: reader}
}

func (l *remoteLink) Send(ctx context.Context, msg Message) (Status, error) {
	if l.closed.Load() {
		return 0, ErrLinkClosed
	}

	l.lk.Lock()
	defer l.lk.Unlock()
	stop := l.watch(ctx)
	defer stop()

	if err := wire.WriteFrame(l.stream, &wire.Frame{Kind: wire.KindRequest, Message: msg}); err != nil {
		return 0, l.abort(ctx, fmt.Errorf("%w: %w", ErrStreamWrite, err))
	}

	reply, err := wire.ReadFrame(l.reader)
	if err != nil {
		return 0, l.abort(ctx, err)
	}

	if reply.Kind != wire.KindReply {
		return 0, l.abort(ctx, Coded(CodeProtocolViolation, fmt.Sprintf("expected reply, got %s", reply.Kind)))
	}

	if reply.Code != uint64(CodeOK) {
		return 0, Coded(ErrorCode(reply.Code), "request refused by remote")
	}
	return reply.Status, nil
}

func (l *remoteLink) Pulse(ctx context.Context) error {
	if l.closed.Load() {
		return ErrLinkClosed
	}

	l.lk.Lock()
	defer l.lk.Unlock()
	stop := l.watch(ctx)
	defer stop()

	if err := wire.WriteFrame(l.stream, &wire.Frame{Kind: wire.KindPulse}); err != nil {
		return l.abort(ctx, fmt.Errorf("%w: %w", ErrStreamWrite, err))
	}
	return nil
}

func (l *remoteLink) Close() error {
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		l.stream.CancelRead(quic.StreamErrorCode(CodeOK))
		l.stream.Close()
	})
	return nil
}

// watch makes stream I/O honour ctx deadline and cancellation.
func (l *remoteLink) watch(ctx context.Context) func() bool {
	if dl, ok := ctx.Deadline(); ok {
		l.stream.SetDeadline(dl)
	} else {
		l.stream.SetDeadline(time.Time{})
	}
	return context.AfterFunc(ctx, func() {
		l.stream.SetDeadline(time.Now())
	})
}

func (l *remoteLink) abort(ctx context.Context, err error) error {
	closedByUser := l.closed.Load()
	l.closeOnce.Do(func() {
		l.closed.Store(true)
		cancelStream(l.stream, CodeInternal)
	})

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if closedByUser {
		return ErrLinkClosed
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return Coded(CodeShutdown, "link closed by remote")
	}
	return err
}
