package namedmsg

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLocalRegistry_Bind(t *testing.T) {
	reg := NewLocalRegistry(WithLocalLog(testLogHandler("local")))
	defer reg.Close()

	ep, err := reg.Bind("ep1")
	require.NoError(t, err)
	require.Equal(t, "ep1", ep.Name())

	_, err = reg.Bind("ep1")
	require.ErrorIs(t, err, ErrNameConflict)

	_, err = reg.Bind("not valid")
	require.ErrorIs(t, err, ErrNameInvalid)

	names, err := reg.Scan("ep")
	require.NoError(t, err)
	require.Equal(t, []string{"ep1"}, names)

	require.NoError(t, ep.Close())
	require.NoError(t, ep.Close(), "closing twice is a no-op")

	_, err = reg.Resolve(context.Background(), "ep1")
	require.ErrorIs(t, err, ErrNameResolution)

	_, err = reg.Bind("ep1")
	require.NoError(t, err, "a released name can be bound again")
}

func TestLocalRegistry_Exchange(t *testing.T) {
	reg := NewLocalRegistry()
	defer reg.Close()

	ep, err := reg.Bind("ep1")
	require.NoError(t, err)

	link, err := reg.As("S1").Resolve(context.Background(), "ep1")
	require.NoError(t, err)
	defer link.Close()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		delivery, err := ep.Receive(context.Background())
		require.NoError(t, err)
		require.False(t, delivery.Pulse)
		require.Equal(t, "S1", delivery.Sender)
		require.Equal(t, "Hello from S1 - Message #1", delivery.Text())
		require.NoError(t, delivery.Reply(3))

		delivery, err = ep.Receive(context.Background())
		require.NoError(t, err)
		require.True(t, delivery.Pulse)
	}()

	status, err := link.Send(context.Background(), NewMessage(1, 100, "Hello from S1 - Message #1"))
	require.NoError(t, err)
	require.Equal(t, Status(3), status)
	require.NoError(t, link.Pulse(context.Background()))
	wg.Wait()

	require.NoError(t, link.Close())
	_, err = link.Send(context.Background(), Message{})
	require.ErrorIs(t, err, ErrLinkClosed)
}

func TestLocalRegistry_Authorizer(t *testing.T) {
	sink := newCountingSink()
	reg := NewLocalRegistry(
		WithLocalMetrics(sink, nil),
		WithLocalAuthorizer(func(principal, _ string) Verdict {
			switch principal {
			case "intruder":
				return Report
			case "stranger":
				return Reject
			default:
				return Allow
			}
		}),
	)
	defer reg.Close()

	ep, err := reg.Bind("ep1")
	require.NoError(t, err)

	t.Run("rejected senders are never seen by the receiver", func(t *testing.T) {
		link, err := reg.As("stranger").Resolve(context.Background(), "ep1")
		require.NoError(t, err)

		_, err = link.Send(context.Background(), NewMessage(1, 1, "hi"))
		require.Equal(t, CodePermissionDenied, CodeOf(err))
		require.Equal(t, SecurityViolation, Classify(CodeOf(err)))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err = ep.Receive(ctx)
		require.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("reported senders surface on the receiver", func(t *testing.T) {
		link, err := reg.As("intruder").Resolve(context.Background(), "ep1")
		require.NoError(t, err)

		err = link.Pulse(context.Background())
		require.Equal(t, CodeAccessDenied, CodeOf(err))

		_, err = ep.Receive(context.Background())
		require.Equal(t, CodeAccessDenied, CodeOf(err))
	})

	require.Equal(t, float32(2), sink.count(MetricEndpointDenied))
}

func TestLocalRegistry_Close(t *testing.T) {
	reg := NewLocalRegistry()
	ep, err := reg.Bind("ep1")
	require.NoError(t, err)

	link, err := reg.Resolve(context.Background(), "ep1")
	require.NoError(t, err)

	require.NoError(t, reg.Close())
	require.NoError(t, reg.Close())

	_, err = ep.Receive(context.Background())
	var closed *ClosedError
	require.ErrorAs(t, err, &closed)
	require.Equal(t, ClosedByShutdown, closed.Cause)

	_, err = link.Send(context.Background(), Message{})
	require.Equal(t, CodeShutdown, CodeOf(err))

	_, err = reg.Bind("ep2")
	require.ErrorIs(t, err, ErrRegistryClosed)
}

func TestLocalRegistry_PulseHandOver(t *testing.T) {
	reg := NewLocalRegistry()
	defer reg.Close()

	ep, err := reg.Bind("ep1")
	require.NoError(t, err)

	link, err := reg.As("S1").Resolve(context.Background(), "ep1")
	require.NoError(t, err)
	defer link.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, link.Pulse(ctx), context.DeadlineExceeded, "nobody took the pulse")

	taken := make(chan Delivery, 1)
	go func() {
		delivery, err := ep.Receive(context.Background())
		if err == nil {
			taken <- delivery
		}
	}()
	require.NoError(t, link.Pulse(context.Background()))

	delivery := <-taken
	require.True(t, delivery.Pulse)
	require.Equal(t, "S1", delivery.Sender)
}
