package namedmsg

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestChannel_ServesInOrder(t *testing.T) {
	reg := NewLocalRegistry()
	defer reg.Close()

	var lk sync.Mutex
	var received []string
	ch := NewChannel(reg,
		WithChannelLog(testLogHandler("receiver")),
		WithHandler(HandlerFunc(func(_ context.Context, req Delivery) Status {
			lk.Lock()
			defer lk.Unlock()
			received = append(received, req.Text())
			return Status(len(received))
		})),
	)
	require.NoError(t, ch.Attach("qnx_receiver_secure"))
	require.Equal(t, "qnx_receiver_secure", ch.Name())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- ch.Run(ctx)
	}()

	conn := NewConnection(reg, "qnx_receiver_secure", WithSenderID("S1"))
	require.NoError(t, conn.Connect(context.Background(), 1, 0))
	sent := conn.SendBatch(context.Background(), SendConfig{Count: 3, Type: 1, Subtype: 100})
	require.Equal(t, 3, sent)

	cancel()
	require.NoError(t, <-done, "cancellation is not an error")
	require.Equal(t, []string{
		"Hello from S1 - Message #1",
		"Hello from S1 - Message #2",
		"Hello from S1 - Message #3",
	}, received)
	require.NoError(t, ch.Close())
}

func TestChannel_SurvivesViolations(t *testing.T) {
	ep := &MockEndpoint{}
	reg := &MockRegistry{}
	reg.m.On("Bind", "ep1").Return(ep, nil)

	replied := make(chan Status, 1)
	request := NewRequest(NewMessage(2, 200, "Hello from S2 - Message #1"), "S2", func(status Status) error {
		replied <- status
		return nil
	})
	ep.m.On("Receive").Return(Delivery{}, Coded(CodeAccessDenied, "intruder")).Once()
	ep.m.On("Receive").Return(Delivery{}, Coded(CodePermissionDenied, "stranger")).Once()
	ep.m.On("Receive").Return(request, nil).Once()
	ep.m.On("Receive").Return(NewPulse("S2"), nil).Once()
	ep.m.On("Receive").Return(Delivery{}, Coded(CodeInternal, "broken")).Once()
	ep.m.On("Close").Return(nil).Once()

	sink := newCountingSink()
	var violations []error
	ch := NewChannel(reg,
		WithChannelMetrics(sink, nil),
		WithViolationHook(func(err error) {
			violations = append(violations, err)
		}),
	)

	err := ch.Serve(context.Background(), "ep1")
	require.ErrorIs(t, err, ErrTransportFault)
	require.Equal(t, CodeInternal, CodeOf(err))

	require.Len(t, violations, 2)
	require.Equal(t, StatusOK, <-replied)
	require.Equal(t, float32(2), sink.count(MetricChannelViolationCount))
	require.Equal(t, float32(1), sink.count(MetricChannelRequestCount))
	require.Equal(t, float32(1), sink.count(MetricChannelPulseCount))
	require.Equal(t, float32(1), sink.count(MetricChannelFatalCount))
	ep.m.AssertExpectations(t)
}

func TestChannel_Lifecycle(t *testing.T) {
	t.Run("run requires attach", func(t *testing.T) {
		ch := NewChannel(NewLocalRegistry())
		require.ErrorIs(t, ch.Run(context.Background()), ErrNotAttached)
	})

	t.Run("attach failure leaves the channel unattached", func(t *testing.T) {
		reg := &MockRegistry{}
		reg.m.On("Bind", "ep1").Return(nil, fmt.Errorf("%w: ep1", ErrNameConflict)).Once()
		reg.m.On("Bind", "ep1").Return(&MockEndpoint{}, nil).Once()

		ch := NewChannel(reg)
		err := ch.Attach("ep1")
		require.ErrorIs(t, err, ErrAttach)
		require.ErrorIs(t, err, ErrNameConflict)
		require.Empty(t, ch.Name())

		require.NoError(t, ch.Attach("ep1"))
		require.ErrorIs(t, ch.Attach("ep1"), ErrAlreadyAttached)
	})

	t.Run("close is idempotent and unblocks run", func(t *testing.T) {
		reg := NewLocalRegistry()
		defer reg.Close()

		ch := NewChannel(reg)
		require.NoError(t, ch.Attach("ep1"))

		done := make(chan error)
		go func() {
			done <- ch.Run(context.Background())
		}()

		require.Eventually(t, func() bool {
			ch.lk.Lock()
			defer ch.lk.Unlock()
			return ch.running
		}, time.Second, 10*time.Millisecond)
		require.ErrorIs(t, ch.Run(context.Background()), ErrChannelBusy)

		require.NoError(t, ch.Close())
		require.NoError(t, ch.Close())
		require.NoError(t, <-done)

		require.ErrorIs(t, ch.Run(context.Background()), ErrChannelClosed)
		require.ErrorIs(t, ch.Attach("ep1"), ErrChannelClosed)

		_, err := reg.Resolve(context.Background(), "ep1")
		require.ErrorIs(t, err, ErrNameResolution, "closing the channel releases its name")
	})
}

func TestChannel_ServesAuthorizedAfterDenial(t *testing.T) {
	reg := NewLocalRegistry(WithLocalAuthorizer(func(principal, _ string) Verdict {
		switch principal {
		case "intruder":
			return Report
		case "stranger":
			return Reject
		default:
			return Allow
		}
	}))
	defer reg.Close()

	var violations sync.WaitGroup
	violations.Add(1)
	ch := NewChannel(reg, WithViolationHook(func(error) {
		violations.Done()
	}))
	require.NoError(t, ch.Attach("qnx_receiver_secure"))
	defer ch.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- ch.Run(ctx)
	}()

	for _, principal := range []string{"intruder", "stranger"} {
		conn := NewConnection(reg.As(principal), "qnx_receiver_secure", WithSenderID(principal))
		require.NoError(t, conn.Connect(context.Background(), 1, 0))
		require.Equal(t, 0, conn.SendBatch(context.Background(), SendConfig{Count: 3}))
		require.NoError(t, conn.Close())
	}
	violations.Wait()

	conn := NewConnection(reg.As("S1"), "qnx_receiver_secure", WithSenderID("S1"))
	require.NoError(t, conn.Connect(context.Background(), 1, 0))
	require.Equal(t, 5, conn.SendBatch(context.Background(), SendConfig{Count: 5, Type: 1, Subtype: 100}))
	require.NoError(t, conn.Close())

	cancel()
	require.NoError(t, <-done)
}

func TestChannel_ServeReleasesOnPanic(t *testing.T) {
	reg := NewLocalRegistry()
	defer reg.Close()

	ch := NewChannel(reg, WithHandler(HandlerFunc(func(context.Context, Delivery) Status {
		panic("handler bug")
	})))

	recovered := make(chan any, 1)
	go func() {
		defer func() {
			recovered <- recover()
		}()
		ch.Serve(context.Background(), "ep1")
	}()

	conn := NewConnection(reg, "ep1")
	require.NoError(t, conn.Connect(context.Background(), 50, 10*time.Millisecond))
	defer conn.Close()

	_, err := conn.Send(context.Background(), NewMessage(1, 100, "boom"))
	require.Equal(t, CodeShutdown, CodeOf(err), "the pending sender is released")
	require.Equal(t, "handler bug", <-recovered)

	_, err = reg.Resolve(context.Background(), "ep1")
	require.ErrorIs(t, err, ErrNameResolution)
}
