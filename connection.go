package namedmsg

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-metrics"
)

const (
	DefaultMaxAttempts = 5
	DefaultRetryDelay  = 1 * time.Second
)

// SendConfig describes a batch of messages sent by `SendBatch`.
type SendConfig struct {
	Count    int
	Interval time.Duration
	Type     uint16
	Subtype  uint16
}

// Connection is the sending side: it resolves a target name into a
// `Link` and sends messages on it.
//
// A Connection owns its link, use `Transfer` to hand it to another one.
type Connection struct {
	reg    Registry
	target string
	opts   connectionOpts
	logger *slog.Logger
	msink  metrics.MetricSink

	link Link
	// abort cancels the attempts of a pending connect.
	abort context.CancelCauseFunc
	lk    sync.Mutex
}

func NewConnection(reg Registry, target string, opts ...ConnectionOption) *Connection {
	conn := &Connection{reg: reg, target: target}
	for _, opt := range opts {
		opt(&conn.opts)
	}
	if conn.opts.senderID == "" {
		conn.opts.senderID = uuid.NewString()
	}
	if conn.opts.bodyFormat == "" {
		conn.opts.bodyFormat = DefaultBodyFormat
	}
	conn.logger = conn.opts.logger().With(
		LabelEndpointName.L(target),
		LabelSender.L(conn.opts.senderID),
	)
	conn.msink = conn.opts.sink()
	return conn
}

func (conn *Connection) Target() string {
	return conn.target
}

func (conn *Connection) SenderID() string {
	return conn.opts.senderID
}

func (conn *Connection) Connected() bool {
	conn.lk.Lock()
	defer conn.lk.Unlock()
	return conn.link != nil
}

// Connect resolves the target at most maxAttempts times, waiting
// retryDelay between two attempts.
func (conn *Connection) Connect(ctx context.Context, maxAttempts int, retryDelay time.Duration) error {
	return conn.ConnectWith(ctx, maxAttempts, FixedDelay(retryDelay))
}

// ConnectWith is `Connect` with a custom delay policy. There is no delay
// after the last attempt. A maxAttempts lower than 1 means
// `DefaultMaxAttempts` and a nil strategy means `DefaultRetryDelay`.
//
// A concurrent `Close` aborts the attempts.
func (conn *Connection) ConnectWith(ctx context.Context, maxAttempts int, strategy RetryStrategy) error {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	if strategy == nil {
		strategy = FixedDelay(DefaultRetryDelay)
	}

	conn.lk.Lock()
	if conn.link != nil {
		conn.lk.Unlock()
		return ErrAlreadyConnected
	}
	if conn.abort != nil {
		conn.lk.Unlock()
		return ErrConnectPending
	}
	ctx, cancel := context.WithCancelCause(ctx)
	conn.abort = cancel
	conn.lk.Unlock()

	defer func() {
		conn.lk.Lock()
		conn.abort = nil
		conn.lk.Unlock()
		cancel(nil)
	}()

	strategy.Reset()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		labels := withLabels(conn.opts.metricLabels, LabelEndpointName.M(conn.target))
		conn.msink.IncrCounterWithLabels(MetricConnectAttemptCount, 1.0, labels)

		link, err := conn.reg.Resolve(ctx, conn.target)
		if err == nil {
			return conn.install(ctx, link, attempt)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %w", ErrConnect, context.Cause(ctx))
		}

		lastErr = err
		conn.msink.IncrCounterWithLabels(
			MetricConnectAttemptErrCount,
			1.0,
			withLabels(labels, LabelCode.M(strconv.FormatUint(uint64(CodeOf(err)), 10))),
		)
		if attempt == maxAttempts {
			break
		}

		delay := strategy.NextDelay()
		conn.logger.Warn(
			"attempt failed, retrying",
			LabelAttempt.L(attempt),
			LabelDelay.L(delay),
			LabelError.L(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %w", ErrConnect, context.Cause(ctx))
		case <-timer.C:
		}
	}

	conn.logger.Error("could not connect", LabelAttempt.L(maxAttempts), LabelError.L(lastErr))
	return fmt.Errorf("%w: %d attempts failed: %w", ErrConnect, maxAttempts, lastErr)
}

// install keeps link unless the connect was aborted in the meantime, in
// which case the link is released.
func (conn *Connection) install(ctx context.Context, link Link, attempt int) error {
	conn.lk.Lock()
	if ctx.Err() != nil {
		conn.lk.Unlock()
		if err := link.Close(); err != nil {
			conn.logger.Warn("failed to release link", LabelError.L(err))
		}
		return fmt.Errorf("%w: %w", ErrConnect, context.Cause(ctx))
	}
	conn.link = link
	conn.lk.Unlock()

	conn.logger.Info("connected", LabelAttempt.L(attempt))
	return nil
}

// Send blocks until the receiver replied.
func (conn *Connection) Send(ctx context.Context, msg Message) (Status, error) {
	conn.lk.Lock()
	link := conn.link
	conn.lk.Unlock()
	if link == nil {
		return 0, ErrNotConnected
	}

	labels := withLabels(conn.opts.metricLabels, LabelEndpointName.M(conn.target))
	status, err := link.Send(ctx, msg)
	if err != nil {
		conn.msink.IncrCounterWithLabels(
			MetricSendErrCount,
			1.0,
			withLabels(labels, LabelCode.M(strconv.FormatUint(uint64(CodeOf(err)), 10))),
		)
		return 0, fmt.Errorf("%w: %w", ErrSend, err)
	}
	conn.msink.IncrCounterWithLabels(MetricSendCount, 1.0, labels)
	return status, nil
}

// Pulse sends a notification without waiting for a reply.
func (conn *Connection) Pulse(ctx context.Context) error {
	conn.lk.Lock()
	link := conn.link
	conn.lk.Unlock()
	if link == nil {
		return ErrNotConnected
	}
	if err := link.Pulse(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrSend, err)
	}
	return nil
}

// SendBatch sends cfg.Count messages and returns how many were replied.
// It stops at the first failure and returns 0 right away when the
// `Connection` is not connected.
func (conn *Connection) SendBatch(ctx context.Context, cfg SendConfig) int {
	if !conn.Connected() {
		conn.logger.Error("cannot send a batch without being connected")
		return 0
	}

	sent := 0
	for seq := 1; seq <= cfg.Count; seq++ {
		msg := Message{Type: cfg.Type, Subtype: cfg.Subtype}
		if msg.SetText(fmt.Sprintf(conn.opts.bodyFormat, conn.opts.senderID, seq)) {
			conn.logger.Debug("message body truncated", LabelSeq.L(seq))
		}

		status, err := conn.Send(ctx, msg)
		if err != nil {
			conn.logger.Error("failed to send message", LabelSeq.L(seq), LabelError.L(err))
			return sent
		}
		sent++
		conn.logger.Info(
			"message sent",
			LabelSeq.L(seq),
			LabelType.L(cfg.Type),
			LabelSubtype.L(cfg.Subtype),
			LabelStatus.L(status),
		)

		if seq < cfg.Count && cfg.Interval > 0 {
			timer := time.NewTimer(cfg.Interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				conn.logger.Info("batch interrupted", LabelSeq.L(seq))
				return sent
			case <-timer.C:
			}
		}
	}
	return sent
}

// Close releases the link and aborts a pending connect. It is a no-op if
// the `Connection` was never connected or already closed.
func (conn *Connection) Close() error {
	conn.lk.Lock()
	link := conn.link
	conn.link = nil
	if conn.abort != nil {
		conn.abort(ErrConnectionClosed)
	}
	conn.lk.Unlock()

	if link == nil {
		return nil
	}
	conn.logger.Debug("connection closed")
	return link.Close()
}

// Transfer moves the link to a new `Connection`, the receiver of the
// method is left disconnected.
func (conn *Connection) Transfer() *Connection {
	conn.lk.Lock()
	defer conn.lk.Unlock()
	moved := &Connection{
		reg:    conn.reg,
		target: conn.target,
		opts:   conn.opts,
		logger: conn.logger,
		msink:  conn.msink,
		link:   conn.link,
	}
	conn.link = nil
	return moved
}
