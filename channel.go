package namedmsg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/hashicorp/go-metrics"
)

// Handler processes the requests received by a `Channel`. The returned
// `Status` is replied to the sender.
type Handler interface {
	Handle(ctx context.Context, req Delivery) Status
}

type HandlerFunc func(ctx context.Context, req Delivery) Status

func (fn HandlerFunc) Handle(ctx context.Context, req Delivery) Status {
	return fn(ctx, req)
}

// Channel is the receiving side: it binds a name on a `Registry` and
// serves requests one at a time, replying to each before receiving the
// next one.
type Channel struct {
	reg    Registry
	opts   channelOpts
	logger *slog.Logger
	msink  metrics.MetricSink

	name    string
	ep      Endpoint
	running bool
	closed  bool
	lk      sync.Mutex
}

func NewChannel(reg Registry, opts ...ChannelOption) *Channel {
	ch := &Channel{reg: reg}
	for _, opt := range opts {
		opt(&ch.opts)
	}
	ch.logger = ch.opts.logger()
	ch.msink = ch.opts.sink()
	if ch.opts.handler == nil {
		ch.opts.handler = HandlerFunc(ch.logRequest)
	}
	return ch
}

// Name is the bound name, empty until `Attach` succeeded.
func (ch *Channel) Name() string {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	return ch.name
}

// Attach binds name. On failure the `Channel` stays unattached and
// `Attach` may be retried.
func (ch *Channel) Attach(name string) error {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	if ch.closed {
		return ErrChannelClosed
	}
	if ch.ep != nil {
		return ErrAlreadyAttached
	}

	ep, err := ch.reg.Bind(name)
	if err != nil {
		ch.logger.Error("failed to attach channel", LabelEndpointName.L(name), LabelError.L(err))
		return fmt.Errorf("%w: %w", ErrAttach, err)
	}

	ch.name = name
	ch.ep = ep
	ch.logger = ch.logger.With(LabelEndpointName.L(name))
	ch.logger.Info("channel attached")
	return nil
}

// Run serves requests until ctx is cancelled, `Close` is called or a
// fatal error occurs. Only the latter is returned, wrapped in
// `ErrTransportFault`.
func (ch *Channel) Run(ctx context.Context) error {
	ch.lk.Lock()
	if ch.closed {
		ch.lk.Unlock()
		return ErrChannelClosed
	}
	if ch.ep == nil {
		ch.lk.Unlock()
		ch.logger.Error("cannot run a channel which is not attached")
		return ErrNotAttached
	}
	if ch.running {
		ch.lk.Unlock()
		return ErrChannelBusy
	}
	ch.running = true
	ep := ch.ep
	logger := ch.logger
	ch.lk.Unlock()

	defer func() {
		ch.lk.Lock()
		ch.running = false
		ch.lk.Unlock()
	}()

	labels := withLabels(ch.opts.metricLabels, LabelEndpointName.M(ep.Name()))
	logger.Info("serving requests")

	for {
		delivery, err := ep.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutdown requested, stop serving")
				return nil
			}
			if ch.isClosed() {
				logger.Info("channel closed, stop serving")
				return nil
			}

			code := CodeOf(err)
			class := Classify(code)
			errLabels := withLabels(labels, LabelCode.M(strconv.FormatUint(uint64(code), 10)))
			if class == SecurityViolation {
				ch.msink.IncrCounterWithLabels(MetricChannelViolationCount, 1.0, errLabels)
				logger.Warn("security violation, continue serving", LabelCode.L(code.String()), LabelError.L(err))
				if ch.opts.onViolation != nil {
					ch.opts.onViolation(err)
				}
				continue
			}

			ch.msink.IncrCounterWithLabels(MetricChannelFatalCount, 1.0, errLabels)
			logger.Error("fatal receive error, stop serving", LabelCode.L(code.String()), LabelError.L(err))
			return fmt.Errorf("%w: %w", ErrTransportFault, err)
		}

		if delivery.Pulse {
			ch.msink.IncrCounterWithLabels(MetricChannelPulseCount, 1.0, labels)
			logger.Debug("pulse received", LabelSender.L(delivery.Sender))
			continue
		}

		ch.msink.IncrCounterWithLabels(MetricChannelRequestCount, 1.0, labels)
		status := ch.opts.handler.Handle(ctx, delivery)
		if err := delivery.Reply(status); err != nil && !errors.Is(err, ErrAlreadyReplied) {
			ch.msink.IncrCounterWithLabels(MetricChannelReplyErrCount, 1.0, labels)
			logger.Warn("failed to reply", LabelSender.L(delivery.Sender), LabelError.L(err))
		}
	}
}

// Close releases the endpoint. It is idempotent and unblocks a pending
// `Run`.
func (ch *Channel) Close() error {
	ch.lk.Lock()
	if ch.closed {
		ch.lk.Unlock()
		return nil
	}
	ch.closed = true
	ep := ch.ep
	ch.ep = nil
	ch.lk.Unlock()

	if ep == nil {
		return nil
	}
	ch.logger.Info("channel closed")
	return ep.Close()
}

// Serve attaches name, runs until ctx is done and always closes the
// `Channel` before returning, even when a handler panics.
func (ch *Channel) Serve(ctx context.Context, name string) error {
	if err := ch.Attach(name); err != nil {
		return err
	}
	defer ch.Close()
	return ch.Run(ctx)
}

func (ch *Channel) isClosed() bool {
	ch.lk.Lock()
	defer ch.lk.Unlock()
	return ch.closed
}

func (ch *Channel) logRequest(_ context.Context, req Delivery) Status {
	ch.logger.Info(
		"message received",
		LabelSender.L(req.Sender),
		LabelType.L(req.Type),
		LabelSubtype.L(req.Subtype),
		LabelBody.L(req.Text()),
	)
	return StatusOK
}
